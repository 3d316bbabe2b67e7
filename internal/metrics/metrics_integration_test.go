package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/observability"
	"github.com/mohammed-shakir/ogcapi-features-ets/pkg/verdict"
)

func assertHasMetricLine(t *testing.T, body, metric string, wantLabels ...string) {
	t.Helper()
	for ln := range strings.SplitSeq(body, "\n") {
		if !strings.HasPrefix(ln, metric+"{") {
			continue
		}
		ok := true
		for _, s := range wantLabels {
			if !strings.Contains(ln, s) {
				ok = false
				break
			}
		}
		if ok && (len(ln) > 0 && ln[len(ln)-1] >= '0' && ln[len(ln)-1] <= '9') {
			return
		}
	}
	t.Fatalf("expected a %s line with labels %v; got:\n%s", metric, wantLabels, body)
}

func Test_RunMetrics_CustomRegistry_Smoke(t *testing.T) {
	p := Init(Config{Build: BuildInfo{Version: "test"}})
	observability.Init(p.Registerer())

	start := time.Now()
	observability.ObserveProbe("collections", 200, time.Since(start).Seconds())
	observability.IncVerdict("collections", verdict.StatusPass.String())
	p.RecordRun(verdict.Summary{Passed: 3, Failed: 1, Skipped: 2}, float64(time.Now().Unix()))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, req)
	body := rr.Body.String()

	assertHasMetricLine(t, body, "ets_build_info", `version="test"`)
	assertHasMetricLine(t, body, "ets_probe_requests_total", `category="collections"`, `status="200"`)
	assertHasMetricLine(t, body, "ets_verdicts_total", `group="collections"`, `status="pass"`)
	assertHasMetricLine(t, body, "ets_last_run_checks", `status="fail"`)
	if !strings.Contains(body, `ets_last_run_checks{status="skip"} 2`) {
		t.Fatalf("expected skip count 2; got:\n%s", body)
	}
}
