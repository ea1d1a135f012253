// Package server exposes the operation engine over HTTP for hosted
// deployments. Every operation goes through the single action endpoint; the
// envelope is what remote clients unwrap.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/calibworks/calibtrack/internal/audit"
	"github.com/calibworks/calibtrack/internal/transport"
	"github.com/calibworks/calibtrack/internal/ws"
	"github.com/calibworks/calibtrack/pkg/models"
)

// Notifier is the slice of the websocket hub the server needs. Nil disables
// change notifications.
type Notifier interface {
	Notify(resource, action, orderNumber string, data interface{})
}

// AuditPublisher records committed order mutations. Nil disables auditing.
type AuditPublisher interface {
	PublishMutation(event audit.OrderMutationEvent) error
}

type Server struct {
	engine   transport.Transport
	hub      Notifier
	producer AuditPublisher
	logger   *logrus.Logger
}

// New wires the server around an operation engine. The engine is typically a
// local backend with artificial delays disabled, so hosted responses are not
// slowed down by the mock's latency simulation.
func New(engine transport.Transport, hub Notifier, producer AuditPublisher, logger *logrus.Logger) *Server {
	return &Server{
		engine:   engine,
		hub:      hub,
		producer: producer,
		logger:   logger,
	}
}

// Router builds the full route table. The action endpoint carries every
// operation; /ws is only registered when a hub is attached.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/api", s.HandleAction).Methods("POST")
	router.HandleFunc("/health", s.HandleHealth).Methods("GET")
	if hub, ok := s.hub.(*ws.Hub); ok && hub != nil {
		router.HandleFunc("/ws", hub.HandleWebSocket)
	}
	router.Use(loggingMiddleware(s.logger))
	router.Use(corsMiddleware)
	return router
}

// HandleAction decodes the request envelope, runs the operation and wraps the
// result. Operation failures still answer 200: the envelope's success flag is
// the error channel remote clients read.
func (s *Server) HandleAction(w http.ResponseWriter, r *http.Request) {
	var req models.APIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.WithError(err).Error("Failed to decode action request")
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !transport.KnownOp(req.Action) {
		s.respondError(w, http.StatusBadRequest, "unknown action: "+req.Action)
		return
	}

	result, err := s.engine.Invoke(r.Context(), req.Action, req.Payload)
	if err != nil {
		s.logger.WithError(err).WithField("action", req.Action).Error("Operation failed")
		s.respondJSON(w, http.StatusOK, models.APIResponse{
			Success: false,
			Status:  "error",
			Error:   err.Error(),
		})
		return
	}

	s.afterMutation(req.Action, req.Payload, result)

	s.respondJSON(w, http.StatusOK, models.APIResponse{
		Success: true,
		Status:  "ok",
		Data:    result,
	})
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "calibtrack-server",
	})
}

// mutationResources maps each mutating operation to the resource its change
// notification names. Read operations are absent.
var mutationResources = map[string]string{
	transport.OpChangeAdminPassword:   "adminPassword",
	transport.OpAddProduct:            "products",
	transport.OpUpdateProduct:         "products",
	transport.OpAddCustomer:           "customers",
	transport.OpAddTechnician:         "technicians",
	transport.OpDeleteTechnician:      "technicians",
	transport.OpCreateOrder:           "orders",
	transport.OpUpdateOrderStatusByNo: "orders",
	transport.OpUpdateOrderTargetByNo: "orders",
	transport.OpAppendOrderNotesByNo:  "orders",
	transport.OpRestoreOrderByNo:      "orders",
	transport.OpDeleteOrderByNo:       "orders",
}

func (s *Server) afterMutation(action string, payload, result interface{}) {
	resource, ok := mutationResources[action]
	if !ok {
		return
	}

	orderNumber := payloadOrderNumber(payload, result)
	if s.hub != nil {
		// Password changes are announced without data.
		var data interface{}
		if resource != "adminPassword" {
			data = result
		}
		s.hub.Notify(resource, action, orderNumber, data)
	}

	if s.producer != nil && resource == "orders" {
		event := audit.OrderMutationEvent{
			Action:      action,
			OrderNumber: orderNumber,
		}
		if err := s.producer.PublishMutation(event); err != nil {
			// The mutation already committed; auditing is best effort.
			s.logger.WithError(err).WithField("action", action).Error("Failed to publish audit event")
		}
	}
}

// payloadOrderNumber digs the order number out of an untyped payload, falling
// back to the result for creates, where the payload nests it inside lines.
func payloadOrderNumber(payload, result interface{}) string {
	if m, ok := payload.(map[string]interface{}); ok {
		if n, ok := m["orderNumber"].(string); ok && n != "" {
			return n
		}
	}
	if lines, ok := result.([]models.OrderLine); ok && len(lines) > 0 {
		return lines[0].OrderNumber
	}
	return ""
}

func (s *Server) respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func (s *Server) respondError(w http.ResponseWriter, code int, message string) {
	s.respondJSON(w, code, models.APIResponse{
		Success: false,
		Status:  "error",
		Error:   message,
	})
}

func loggingMiddleware(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start).Milliseconds(),
			}).Info("Request completed")
		})
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
