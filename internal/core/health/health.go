// Package health serves the liveness and readiness endpoints of the ops server.
package health

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
)

func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

type ReadinessReporter interface {
	// Readiness reports whether the process is ready and, if not, which checks fail.
	Readiness(ctx context.Context) (ready bool, failing []string)
}

// Readiness answers 200 when rr is ready and 503 otherwise. Each request
// gets at most timeout to evaluate the checks.
func Readiness(rr ReadinessReporter, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type resp struct {
			Status  string   `json:"status"`
			Failing []string `json:"failing,omitempty"`
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		ready, failing := rr.Readiness(ctx)
		out := resp{Status: "ready"}
		if !ready {
			out = resp{Status: "not_ready", Failing: failing}
		}
		w.Header().Set("Content-Type", "application/json")
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}

type check struct {
	name string
	fn   func(context.Context) error
}

// Checks is a ReadinessReporter built from named check functions, evaluated
// in registration order.
type Checks struct {
	mu     sync.RWMutex
	checks []check
}

func (c *Checks) Add(name string, fn func(context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = append(c.checks, check{name: name, fn: fn})
}

func (c *Checks) Readiness(ctx context.Context) (bool, []string) {
	c.mu.RLock()
	checks := append([]check(nil), c.checks...)
	c.mu.RUnlock()

	var failing []string
	for _, ch := range checks {
		if err := ch.fn(ctx); err != nil {
			failing = append(failing, ch.name+": "+err.Error())
		}
	}
	return len(failing) == 0, failing
}

// Flag is a readiness check that passes once Set has been called.
type Flag struct {
	set atomic.Bool
	err error
}

// NewFlag returns an unset flag whose check fails with err.
func NewFlag(err error) *Flag { return &Flag{err: err} }

func (f *Flag) Set() { f.set.Store(true) }

func (f *Flag) Check(context.Context) error {
	if f.set.Load() {
		return nil
	}
	return f.err
}
