package server

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/health"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/metrics"
	"github.com/mohammed-shakir/ogcapi-features-ets/pkg/verdict"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestRouter_Endpoints(t *testing.T) {
	p := metrics.Init(metrics.Config{})
	p.RecordRun(verdict.Summary{Passed: 4, Failed: 1}, 1.7e9)

	var checks health.Checks
	var report LatestReport
	h := NewRouter(discard(), Handlers{Metrics: p.Handler(), Ready: &checks, Report: &report})

	if rr := get(t, h, "/healthz"); rr.Code != http.StatusOK {
		t.Fatalf("healthz=%d", rr.Code)
	}
	if rr := get(t, h, "/readyz"); rr.Code != http.StatusOK {
		t.Fatalf("readyz=%d body=%s", rr.Code, rr.Body.String())
	}
	rr := get(t, h, "/metrics")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `ets_last_run_checks{status="fail"} 1`) {
		t.Fatalf("metrics=%d body=%s", rr.Code, rr.Body.String())
	}

	if rr := get(t, h, "/report"); rr.Code != http.StatusNotFound {
		t.Fatalf("report before run=%d", rr.Code)
	}
	report.Set([]byte(`{"run_id":"r1"}`))
	rr = get(t, h, "/report")
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "application/json" || !strings.Contains(rr.Body.String(), "r1") {
		t.Fatalf("report=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestRouter_OptionalRoutesUnmounted(t *testing.T) {
	h := NewRouter(discard(), Handlers{})
	for _, path := range []string{"/readyz", "/metrics", "/report"} {
		if rr := get(t, h, path); rr.Code != http.StatusNotFound {
			t.Fatalf("%s=%d want 404", path, rr.Code)
		}
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, ln, discard(), Handlers{}) }()

	url := "http://" + ln.Addr().String() + "/healthz"
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("healthz=%d", resp.StatusCode)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never answered: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Serve did not return")
	}
}
