package transport

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// Bridge is the RPC surface an embedded host exposes to the application.
// Call resolves method to a same-named remote procedure and reports the
// outcome through exactly one of the two callbacks.
type Bridge interface {
	Call(method string, payload interface{}, onSuccess func(result interface{}), onFailure func(err error))
}

// EmbeddedClient drives a host bridge and converts its callback pair into a
// single awaitable result.
type EmbeddedClient struct {
	bridge Bridge
	logger *logrus.Logger
}

func NewEmbeddedClient(bridge Bridge, logger *logrus.Logger) *EmbeddedClient {
	return &EmbeddedClient{bridge: bridge, logger: logger}
}

func (c *EmbeddedClient) Invoke(ctx context.Context, operation string, payload interface{}) (interface{}, error) {
	type outcome struct {
		result interface{}
		err    error
	}
	done := make(chan outcome, 1)

	c.bridge.Call(operation, payload,
		func(result interface{}) {
			done <- outcome{result: result}
		},
		func(err error) {
			done <- outcome{err: err}
		},
	)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case o := <-done:
		if o.err != nil {
			c.logger.WithError(o.err).WithField("operation", operation).Error("Host bridge call failed")
			return nil, &TransportError{Operation: operation, Message: "host bridge failure", Err: o.err}
		}
		return c.decodeResult(operation, o.result), nil
	}
}

// decodeResult handles hosts that deliver results as JSON text. A string
// that fails to parse is passed through unchanged rather than raised as an
// error; some host procedures legitimately return plain strings.
func (c *EmbeddedClient) decodeResult(operation string, result interface{}) interface{} {
	raw, ok := result.(string)
	if !ok {
		return result
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		c.logger.WithFields(logrus.Fields{
			"operation": operation,
			"length":    len(raw),
		}).Debug("Bridge result is not JSON, passing raw string through")
		return raw
	}
	return parsed
}
