// Package admin serves the read-only operational surface: health, pool
// statistics as JSON and Prometheus metrics.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapstore/pkg/session"
)

// StatsSource reports pool statistics. *session.Pool implements it.
type StatsSource interface {
	Stats(repo string) (session.Stats, bool)
	AllStats() []session.Stats
}

// Config holds configuration for the admin server.
type Config struct {
	Addr   string
	Stats  StatsSource
	Logger *slog.Logger
	// RuntimeMetrics adds the Go runtime and process collectors.
	RuntimeMetrics bool
}

// Server is the admin HTTP server.
type Server struct {
	addr    string
	stats   StatsSource
	logger  *slog.Logger
	handler http.Handler
}

// NewServer creates an admin server.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{addr: cfg.Addr, stats: cfg.Stats, logger: cfg.Logger}

	reg := newRegistry(cfg.Stats)
	if cfg.RuntimeMetrics {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	r := chi.NewMux()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/pools", s.handlePools)
	r.Get("/pools/{repository}", s.handlePool)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	s.handler = r
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.handler }

// Serve listens on the configured address and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting admin server", slog.String("addr", ln.Addr().String()))

	eg, egctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Handler: s.handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down admin server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"repositories": len(s.stats.AllStats()),
	})
}

func (s *Server) handlePools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.AllStats())
}

func (s *Server) handlePool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "repository")
	st, ok := s.stats.Stats(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": fmt.Sprintf("unknown repository %q", name),
		})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
