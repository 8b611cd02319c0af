// Package api provides the HTTP REST API and WebSocket server for Verdant Core.
//
// It exposes device discovery, owner lookup, and the registration
// transaction to field technician tools (mobile app, web admin).
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/verdantgrid/verdant-core/internal/device"
	"github.com/verdantgrid/verdant-core/internal/discovery"
	"github.com/verdantgrid/verdant-core/internal/infrastructure/config"
	"github.com/verdantgrid/verdant-core/internal/infrastructure/logging"
	"github.com/verdantgrid/verdant-core/internal/infrastructure/mqtt"
	"github.com/verdantgrid/verdant-core/internal/owner"
	"github.com/verdantgrid/verdant-core/internal/registration"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config       config.APIConfig
	WS           config.WebSocketConfig
	Logger       *logging.Logger
	Inventory    *device.Inventory
	Registration *registration.Service
	Owners       owner.Repository
	Attempts     registration.AttemptsRepository
	MQTT         *mqtt.Client // optional: claim events relay to WebSocket when set
	Version      string
}

// Server is the HTTP API server for Verdant Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg          config.APIConfig
	wsCfg        config.WebSocketConfig
	logger       *logging.Logger
	inventory    *device.Inventory
	registration *registration.Service
	owners       owner.Repository
	attempts     registration.AttemptsRepository
	mqtt         *mqtt.Client
	topics       mqtt.Topics
	version      string
	server       *http.Server
	hub          *Hub
	watcher      *discovery.Watcher
	cancel       context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Inventory == nil {
		return nil, fmt.Errorf("device inventory is required")
	}
	if deps.Registration == nil {
		return nil, fmt.Errorf("registration service is required")
	}
	// MQTT is optional; claim events just won't relay to WebSocket without it

	return &Server{
		cfg:          deps.Config,
		wsCfg:        deps.WS,
		logger:       deps.Logger,
		inventory:    deps.Inventory,
		registration: deps.Registration,
		owners:       deps.Owners,
		attempts:     deps.Attempts,
		mqtt:         deps.MQTT,
		version:      deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, starts the discovery
// relay that pushes unclaimed-device snapshots to WebSocket clients,
// and launches the HTTP listener in a background goroutine. The server
// can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

	// Relay unclaimed-device snapshots to WebSocket subscribers.
	s.watcher = discovery.NewWatcher(s.inventory)
	s.watcher.SetLogger(s.logger)
	s.watcher.Start(srvCtx)
	go s.relayDiscovery(srvCtx)

	if err := s.subscribeClaimEvents(); err != nil {
		s.logger.Warn("failed to subscribe to claim events for WebSocket", "error", err)
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	// Cancel background goroutines (hub, discovery relay)
	if s.cancel != nil {
		s.cancel()
	}
	if s.watcher != nil {
		s.watcher.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
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
