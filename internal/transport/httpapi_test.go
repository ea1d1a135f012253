package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/calibworks/calibtrack/pkg/models"
)

func TestHTTPClientSendsEnvelopeAndReturnsData(t *testing.T) {
	var received models.APIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(models.APIResponse{
			Success: true,
			Status:  "ok",
			Data:    []interface{}{map[string]interface{}{"OrderNumber": "CAL-2024-001"}},
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, testLogger())
	data, err := client.Invoke(context.Background(), OpGetOrders, map[string]string{"scope": "all"})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}

	if received.Action != OpGetOrders {
		t.Errorf("envelope action = %q, want %q", received.Action, OpGetOrders)
	}
	payload, ok := received.Payload.(map[string]interface{})
	if !ok || payload["scope"] != "all" {
		t.Errorf("payload not forwarded: %v", received.Payload)
	}

	seq, ok := data.([]interface{})
	if !ok || len(seq) != 1 {
		t.Fatalf("expected data sequence, got %T", data)
	}
}

func TestHTTPClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.APIResponse{
			Success: false,
			Status:  "error",
			Error:   "order not found",
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, testLogger())
	_, err := client.Invoke(context.Background(), OpDeleteOrderByNo, OrderNumberPayload{OrderNumber: "X"})
	if err == nil {
		t.Fatal("expected api error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Message != "order not found" {
		t.Errorf("unexpected message %q", apiErr.Message)
	}
}

func TestHTTPClientFailureWithoutErrorSignalIsNotAPIError(t *testing.T) {
	// success=false alone is not a failure signal; the envelope rule
	// requires status "error" or a non-empty error string.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.APIResponse{
			Success: false,
			Status:  "ok",
			Data:    false,
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, testLogger())
	data, err := client.Invoke(context.Background(), OpCheckAdminPassword, PasswordPayload{Password: "9999"})
	if err != nil {
		t.Fatalf("expected soft result, got %v", err)
	}
	if data != false {
		t.Errorf("expected data=false, got %v", data)
	}
}

func TestHTTPClientTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>gateway timeout</html>"))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, testLogger())
	_, err := client.Invoke(context.Background(), OpGetOrders, nil)
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TransportError for undecodable response, got %T: %v", err, err)
	}
}
