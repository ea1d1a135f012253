package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/calibworks/calibtrack/pkg/models"
)

// HTTPClient talks to the hosted backend: a single endpoint accepting POSTed
// {action, payload} envelopes and answering {success, status, error, data}.
type HTTPClient struct {
	endpoint   string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewHTTPClient(endpoint string, logger *logrus.Logger) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

func (c *HTTPClient) Invoke(ctx context.Context, operation string, payload interface{}) (interface{}, error) {
	body, err := json.Marshal(models.APIRequest{Action: operation, Payload: payload})
	if err != nil {
		return nil, &TransportError{Operation: operation, Message: "failed to marshal request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Operation: operation, Message: "failed to create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("operation", operation).Error("Failed to reach hosted API")
		return nil, &TransportError{Operation: operation, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	var envelope models.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"operation":   operation,
			"status_code": resp.StatusCode,
		}).Error("Failed to decode hosted API response")
		return nil, &TransportError{
			Operation: operation,
			Message:   fmt.Sprintf("failed to decode response (http %d)", resp.StatusCode),
			Err:       err,
		}
	}

	if !envelope.Success && (envelope.Status == "error" || envelope.Error != "") {
		c.logger.WithFields(logrus.Fields{
			"operation": operation,
			"status":    envelope.Status,
			"error":     envelope.Error,
		}).Error("Hosted API signaled failure")
		return nil, &APIError{Operation: operation, Status: envelope.Status, Message: envelope.Error}
	}

	return envelope.Data, nil
}
