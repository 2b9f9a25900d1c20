package diag

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/pixelgate/pixelgate/pkg/config"
	"github.com/pixelgate/pixelgate/pkg/stores"
	"github.com/pixelgate/pixelgate/pkg/telemetry"
)

// ComponentName is the lifecycle component name of the diagnostic server.
const ComponentName = "diag"

// Server serves the diagnostic HTTP endpoints.
type Server struct {
	cfg    config.DiagConfig
	server *http.Server
	log    *telemetry.Logger

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a diagnostic server. The listener is not bound
// until Init runs. history may be nil when persistence is disabled.
func NewServer(cfg config.DiagConfig, provider StatsProvider, history *stores.HistoryStore, metrics *telemetry.Metrics, log *telemetry.Logger) *Server {
	if log == nil {
		log = telemetry.NopLogger()
	}
	log = log.NewComponentLogger(ComponentName)

	return &Server{
		cfg: cfg,
		log: log,
		server: &http.Server{
			Handler:      newRouter(provider, history, metrics, log),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

// Name implements engine.Component.
func (s *Server) Name() string { return ComponentName }

// Init binds the listener and starts serving in the background. Binding
// inside Init makes a port collision a component failure instead of a
// background surprise.
func (s *Server) Init(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Listen, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("Diagnostic server failed")
		}
	}()

	s.log.WithField("addr", listener.Addr().String()).Info("Diagnostic server listening")
	return nil
}

// Shutdown drains connections and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	bound := s.listener != nil
	s.mu.Unlock()
	if !bound {
		return nil
	}

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("diagnostic server shutdown: %w", err)
	}
	s.log.Info("Diagnostic server stopped")
	return nil
}

// Addr returns the bound listener address, or "" before Init.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
