// Package dataservice composes the transport layer, the key normalizer and
// the resource cache into the domain operations the UI calls. Reads are
// cache-first; order mutations go through an optimistic coordinator that
// updates the cache before the backend round-trip completes.
package dataservice

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/calibworks/calibtrack/internal/cache"
	"github.com/calibworks/calibtrack/internal/normalize"
	"github.com/calibworks/calibtrack/internal/transport"
)

const (
	cacheKeyOrders      = "orders"
	cacheKeyProducts    = "products"
	cacheKeyCustomers   = "customers"
	cacheKeyTechnicians = "technicians"
)

// Environment supplies the runtime facts the transport decision depends on.
// It is probed fresh on every call so the environment can change between
// calls.
type Environment interface {
	// Bridge returns the embedded host's RPC bridge, or nil when no host
	// is present.
	Bridge() transport.Bridge
	// APIEndpoint returns the configured hosted API URL, or empty.
	APIEndpoint() string
}

// StaticEnvironment is the stock Environment for processes whose runtime
// does not change after startup.
type StaticEnvironment struct {
	HostBridge transport.Bridge
	Endpoint   string
}

func (e StaticEnvironment) Bridge() transport.Bridge { return e.HostBridge }
func (e StaticEnvironment) APIEndpoint() string      { return e.Endpoint }

type Config struct {
	Env    Environment
	Local  transport.Transport
	Logger *logrus.Logger
	// CacheTTL bounds how long an optimistic or fetched view may serve
	// reads. Zero means cache.DefaultTTL.
	CacheTTL time.Duration
}

type Service struct {
	env    Environment
	local  transport.Transport
	cache  *cache.Cache
	logger *logrus.Logger

	httpMu      sync.Mutex
	httpClients map[string]*transport.HTTPClient

	pending sync.WaitGroup
	now     func() time.Time
}

func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{
		env:         cfg.Env,
		local:       cfg.Local,
		cache:       cache.New(cfg.CacheTTL),
		logger:      logger,
		httpClients: make(map[string]*transport.HTTPClient),
		now:         time.Now,
	}
}

// invoke resolves the active transport for this call, runs the operation and
// normalizes the response for the backends that need it. Errors are logged
// here and rethrown unchanged; there is no retry at any layer.
func (s *Service) invoke(ctx context.Context, operation string, payload interface{}) (interface{}, error) {
	bridge := s.env.Bridge()
	endpoint := s.env.APIEndpoint()
	mode := transport.Resolve(bridge, endpoint)

	var backend transport.Transport
	switch mode {
	case transport.ModeEmbeddedHost:
		backend = transport.NewEmbeddedClient(bridge, s.logger)
	case transport.ModeHTTPAPI:
		backend = s.httpClient(endpoint)
	default:
		if s.local == nil {
			return nil, fmt.Errorf("no local backend configured")
		}
		backend = s.local
	}

	result, err := backend.Invoke(ctx, operation, payload)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"operation": operation,
			"mode":      mode.String(),
		}).Error("Operation failed")
		return nil, err
	}

	// The local mock already produces normalized shapes.
	if mode != transport.ModeLocalMock {
		result = normalize.Normalize(result)
	}
	return result, nil
}

func (s *Service) httpClient(endpoint string) *transport.HTTPClient {
	s.httpMu.Lock()
	defer s.httpMu.Unlock()
	client, ok := s.httpClients[endpoint]
	if !ok {
		client = transport.NewHTTPClient(endpoint, s.logger)
		s.httpClients[endpoint] = client
	}
	return client
}

// fireAndForget runs a mutating operation in the background. Failure is
// logged and nothing else: the optimistic cache view stands until it expires
// naturally, which is the accepted staleness window.
func (s *Service) fireAndForget(operation string, payload interface{}) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if _, err := s.invoke(context.Background(), operation, payload); err != nil {
			s.logger.WithError(err).WithField("operation", operation).
				Error("Background mutation failed; cached view stands until TTL expiry")
		}
	}()
}

// Flush blocks until every background mutation fired so far has resolved.
// Used at shutdown and by tests; callers do not wait on it per-operation.
func (s *Service) Flush() {
	s.pending.Wait()
}

// InvalidateCache drops every cached resource, forcing fresh reads.
func (s *Service) InvalidateCache() {
	s.cache.Invalidate("")
}

// decode funnels an untyped, normalized response value into a typed record
// via its JSON form.
func decode(raw interface{}, dst interface{}) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to re-encode response: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// coerceBool interprets the loosely-typed results password operations come
// back with: hosts may deliver a JSON bool or the strings "true"/"false".
func coerceBool(raw interface{}) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		return v == "true", nil
	default:
		return false, fmt.Errorf("unexpected boolean result of type %T", raw)
	}
}
