package transport

import "fmt"

// TransportError reports that a backend could not serve the call at all:
// the host bridge fired its failure callback, the network request failed, or
// the response could not be read. It wraps the underlying cause when one
// exists.
type TransportError struct {
	Operation string
	Message   string
	Err       error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport error during %s: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("transport error during %s: %s", e.Operation, e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError reports that the hosted API answered but signaled failure in its
// response envelope.
type APIError struct {
	Operation string
	Status    string
	Message   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error during %s (status=%s): %s", e.Operation, e.Status, e.Message)
}
