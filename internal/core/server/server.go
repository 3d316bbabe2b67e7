// Package server runs the ops HTTP endpoint next to a conformance run.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/health"
	middleware "github.com/mohammed-shakir/ogcapi-features-ets/internal/core/middleware"
)

type Handlers struct {
	Metrics http.Handler
	Ready   health.ReadinessReporter
	Report  *LatestReport
}

// NewRouter wires the ops endpoints. Nil handlers leave their route unmounted.
func NewRouter(logger *slog.Logger, h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	if h.Ready != nil {
		r.Get("/readyz", health.Readiness(h.Ready, 2*time.Second))
	}
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics)
	}
	if h.Report != nil {
		r.Get("/report", h.Report.ServeHTTP)
	}
	return r
}

// Run serves the ops endpoints on addr until ctx is cancelled.
func Run(ctx context.Context, addr string, logger *slog.Logger, h Handlers) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return Serve(ctx, ln, logger, h)
}

// Serve is Run on an existing listener.
func Serve(ctx context.Context, ln net.Listener, logger *slog.Logger, h Handlers) error {
	srv := &http.Server{
		Handler:           NewRouter(logger, h),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", ln.Addr().String())
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

// LatestReport holds the encoded report of the most recent run.
type LatestReport struct {
	mu   sync.RWMutex
	body []byte
}

func (l *LatestReport) Set(body []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.body = append([]byte(nil), body...)
}

func (l *LatestReport) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	l.mu.RLock()
	body := l.body
	l.mu.RUnlock()
	if body == nil {
		http.Error(w, "no run has finished yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}
