// Package server exposes the webhook receiver over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/cloud-gov/pages-core-sub005/internal/config"
)

const shutdownGrace = 30 * time.Second

// Server is the HTTP listener for webhook deliveries. Request contexts derive
// from the application context so in-flight ingestion stops on shutdown.
type Server struct {
	http   *http.Server
	logger *slog.Logger
}

// NewServer builds a listener on cfg.Port serving router.
func NewServer(ctx context.Context, cfg *config.ServerConfig, router http.Handler, logger *slog.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:              net.JoinHostPort("", cfg.Port),
			Handler:           router,
			BaseContext:       func(net.Listener) context.Context { return ctx },
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		logger: logger,
	}
}

// Start listens until Stop is called. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("listening for webhooks", "addr", s.http.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("webhook listener on %s: %w", s.http.Addr, err)
}

// Stop waits up to shutdownGrace for in-flight requests.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown webhook listener: %w", err)
	}
	s.logger.Info("webhook listener stopped")
	return nil
}
