// Package server exposes the operational HTTP API: session stats, delivered
// messages, the session registry, health, and prometheus metrics.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/zsiec/arq/internal/config"
	"github.com/zsiec/arq/internal/errors"
	"github.com/zsiec/arq/internal/gbn"
	"github.com/zsiec/arq/internal/health"
	"github.com/zsiec/arq/internal/registry"
)

// SenderStatsSource reports the live counters of a sender endpoint.
type SenderStatsSource interface {
	ID() string
	Stats() gbn.SenderStats
}

// ReceiverStatsSource reports the live counters and accepted messages of a
// receiver endpoint.
type ReceiverStatsSource interface {
	ID() string
	Stats() gbn.ReceiverStats
	Messages() []gbn.DeliveredMessage
}

// Server is the operational HTTP server. A process attaches whichever endpoint
// roles it runs; the corresponding API routes serve their counters.
type Server struct {
	config       *config.ServerConfig
	router       *mux.Router
	httpServer   *http.Server
	logger       *logrus.Logger
	errorHandler *errors.ErrorHandler
	healthMgr    *health.Manager

	registry registry.Registry
	sender   SenderStatsSource
	receiver ReceiverStatsSource

	routesOnce sync.Once
}

// New creates a server with no endpoints attached yet.
func New(cfg *config.ServerConfig, log *logrus.Logger) *Server {
	return &Server{
		config:       cfg,
		router:       mux.NewRouter(),
		logger:       log,
		errorHandler: errors.NewErrorHandler(log),
		healthMgr:    health.NewManager(log),
	}
}

// AttachSender wires a sender endpoint into the stats API.
func (s *Server) AttachSender(src SenderStatsSource) {
	s.sender = src
}

// AttachReceiver wires a receiver endpoint into the stats and messages API.
func (s *Server) AttachReceiver(src ReceiverStatsSource) {
	s.receiver = src
}

// AttachRegistry wires a session registry into the sessions API and health
// checks.
func (s *Server) AttachRegistry(reg registry.Registry) {
	s.registry = reg
	s.healthMgr.Register(health.CheckerFunc{
		CheckerName: "registry",
		Fn: func(ctx context.Context) error {
			_, err := reg.List(ctx)
			return err
		},
	})
}

// RegisterHealthChecker adds an extra dependency probe.
func (s *Server) RegisterHealthChecker(checker health.Checker) {
	s.healthMgr.Register(checker)
}

// Start serves HTTP until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.setupRoutes()

	go s.healthMgr.StartPeriodicChecks(ctx, 30*time.Second)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.ListenAddr, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting stats server")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("stats server failed: %w", err)
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown() error {
	s.logger.Info("Shutting down stats server")

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down stats server: %w", err)
	}
	return nil
}

// Router returns the configured router, primarily for tests.
func (s *Server) Router() *mux.Router {
	s.setupRoutes()
	return s.router
}
