// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-biovault.
//
// go-biovault is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package diag provides an optional loopback-only diagnostics HTTP server:
// Prometheus metrics, a health probe, and version info. It is disabled by
// default and never carries protocol traffic; the native messaging channel
// stays on stdin/stdout.
package diag

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeremyhahn/go-biovault/pkg/adapters/logger"
)

// DefaultAddr is the default listen address for the diagnostics server.
const DefaultAddr = "127.0.0.1:9472"

// Config holds the diagnostics server configuration.
type Config struct {
	// Addr is the listen address. Must resolve to a loopback interface.
	Addr string

	// Version is reported by the /version endpoint.
	Version string

	// Logger receives server logs. Defaults to a no-op logger.
	Logger logger.Logger
}

// Server is the diagnostics HTTP server.
type Server struct {
	config   *Config
	server   *http.Server
	listener net.Listener
	logger   logger.Logger
}

// NewServer creates a diagnostics server.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NoOp()
	}

	s := &Server{
		config: cfg,
		logger: cfg.Logger,
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/metrics", promhttp.Handler().ServeHTTP)
	router.Get("/healthz", s.healthzHandler)
	router.Get("/version", s.versionHandler)

	s.server = &http.Server{
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s, nil
}

// Start begins listening. It refuses non-loopback addresses: diagnostics
// are for the local operator only.
func (s *Server) Start() error {
	host, _, err := net.SplitHostPort(s.config.Addr)
	if err != nil {
		return fmt.Errorf("diag: invalid listen address %q: %w", s.config.Addr, err)
	}
	if ip := net.ParseIP(host); ip == nil || !ip.IsLoopback() {
		if !strings.EqualFold(host, "localhost") {
			return fmt.Errorf("diag: refusing non-loopback listen address %q", s.config.Addr)
		}
	}

	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("diag: failed to listen on %s: %w", s.config.Addr, err)
	}
	s.listener = listener

	go func() {
		s.logger.Info("diagnostics server listening", logger.String("addr", s.config.Addr))
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("diagnostics server failed", logger.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address, useful when the configured port is 0.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.config.Addr
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) healthzHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) versionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.config.Version})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
