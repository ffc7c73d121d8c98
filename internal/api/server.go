package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/febos-bridge/internal/bridges/febos"
	"github.com/nerrad567/febos-bridge/internal/catalog"
	"github.com/nerrad567/febos-bridge/internal/infrastructure/config"
	"github.com/nerrad567/febos-bridge/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Bridge is the coordinator surface the API reads from and triggers.
// *febos.Coordinator satisfies it.
type Bridge interface {
	Status() febos.Status
	Model() *febos.Model
	Entities(kind febos.Kind) []febos.Entity
	Resource(key string) (*febos.Resource, error)
	Refresh(ctx context.Context) ([]febos.Change, error)
	Discover(ctx context.Context) (*febos.Model, error)
}

var _ Bridge = (*febos.Coordinator)(nil)

// HealthChecker is implemented by infrastructure components (database, MQTT).
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// DBStatser exposes connection pool statistics.
type DBStatser interface {
	Stats() sql.DBStats
}

// ConnectionReporter reports whether a broker link is up.
type ConnectionReporter interface {
	IsConnected() bool
}

// SessionReporter reports when the upstream cloud session was obtained.
type SessionReporter interface {
	LoggedInAt() time.Time
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	Metrics config.MetricsConfig
	Logger  *logging.Logger
	Bridge  Bridge

	Catalog        catalog.Repository       // optional
	MetricsHandler http.Handler             // optional: Prometheus exposition
	Checks         map[string]HealthChecker // optional: named health checks
	DB             DBStatser                // optional: pool stats in /system
	MQTT           ConnectionReporter       // optional: broker state in /system
	Session        SessionReporter          // optional: cloud session age in /system
	Version        string
}

// Server is the HTTP API server for the bridge.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg            config.APIConfig
	wsCfg          config.WebSocketConfig
	metricsCfg     config.MetricsConfig
	logger         *logging.Logger
	bridge         Bridge
	catalog        catalog.Repository
	metricsHandler http.Handler
	checks         map[string]HealthChecker
	db             DBStatser
	mqtt           ConnectionReporter
	session        SessionReporter
	version        string
	startTime      time.Time
	server         *http.Server
	hub            *Hub
	cancel         context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The hub exists from construction so the server can be registered as a
// coordinator observer before Start.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Bridge == nil {
		return nil, fmt.Errorf("bridge is required")
	}

	return &Server{
		cfg:            deps.Config,
		wsCfg:          deps.WS,
		metricsCfg:     deps.Metrics,
		logger:         deps.Logger,
		bridge:         deps.Bridge,
		catalog:        deps.Catalog,
		metricsHandler: deps.MetricsHandler,
		checks:         deps.Checks,
		db:             deps.DB,
		mqtt:           deps.MQTT,
		session:        deps.Session,
		version:        deps.Version,
		startTime:      time.Now(),
		hub:            NewHub(deps.WS, deps.Logger),
	}, nil
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
