package transport

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
)

type fakeBridge struct {
	result interface{}
	err    error
	calls  []string
}

func (b *fakeBridge) Call(method string, payload interface{}, onSuccess func(interface{}), onFailure func(error)) {
	b.calls = append(b.calls, method)
	if b.err != nil {
		onFailure(b.err)
		return
	}
	onSuccess(b.result)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestResolvePriority(t *testing.T) {
	bridge := &fakeBridge{}

	if mode := Resolve(bridge, "http://api.example"); mode != ModeEmbeddedHost {
		t.Errorf("bridge present should win, got %s", mode)
	}
	if mode := Resolve(nil, "http://api.example"); mode != ModeHTTPAPI {
		t.Errorf("endpoint without bridge should pick http-api, got %s", mode)
	}
	if mode := Resolve(nil, ""); mode != ModeLocalMock {
		t.Errorf("empty environment should fall back to local-mock, got %s", mode)
	}
}

func TestKnownOp(t *testing.T) {
	if !KnownOp(OpGetOrders) {
		t.Error("getOrders should be a known operation")
	}
	if KnownOp("dropAllTables") {
		t.Error("arbitrary names must not be known operations")
	}
}

func TestEmbeddedClientSuccess(t *testing.T) {
	bridge := &fakeBridge{result: map[string]interface{}{"ID": "x"}}
	client := NewEmbeddedClient(bridge, testLogger())

	result, err := client.Invoke(context.Background(), OpGetOrders, nil)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	m, ok := result.(map[string]interface{})
	if !ok || m["ID"] != "x" {
		t.Errorf("unexpected result %v", result)
	}
	if len(bridge.calls) != 1 || bridge.calls[0] != OpGetOrders {
		t.Errorf("bridge should be called once with the operation name, got %v", bridge.calls)
	}
}

func TestEmbeddedClientParsesJSONStrings(t *testing.T) {
	bridge := &fakeBridge{result: `[{"OrderNumber":"CAL-2024-001"}]`}
	client := NewEmbeddedClient(bridge, testLogger())

	result, err := client.Invoke(context.Background(), OpGetOrders, nil)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	seq, ok := result.([]interface{})
	if !ok || len(seq) != 1 {
		t.Fatalf("expected parsed sequence, got %T %v", result, result)
	}
}

func TestEmbeddedClientPassesRawStringOnParseFailure(t *testing.T) {
	bridge := &fakeBridge{result: "not json at all"}
	client := NewEmbeddedClient(bridge, testLogger())

	result, err := client.Invoke(context.Background(), OpCheckAdminPassword, nil)
	if err != nil {
		t.Fatalf("parse failure must be soft, got error %v", err)
	}
	if result != "not json at all" {
		t.Errorf("raw string should pass through, got %v", result)
	}
}

func TestEmbeddedClientFailureCallback(t *testing.T) {
	bridge := &fakeBridge{err: context.DeadlineExceeded}
	client := NewEmbeddedClient(bridge, testLogger())

	_, err := client.Invoke(context.Background(), OpGetOrders, nil)
	if err == nil {
		t.Fatal("expected error from failure callback")
	}
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TransportError, got %T", err)
	}
	if terr.Operation != OpGetOrders {
		t.Errorf("error should carry the operation, got %q", terr.Operation)
	}
}
