// Package metrics owns the Prometheus registry served by the ops endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/ogcapi-features-ets/pkg/verdict"
)

type BuildInfo struct {
	Version   string
	Revision  string
	BuildDate string
}

type Config struct {
	Build BuildInfo
}

type Provider struct {
	reg        *prometheus.Registry
	buildInfo  *prometheus.GaugeVec
	lastRun    *prometheus.GaugeVec
	lastRunEnd prometheus.Gauge
}

func Init(cfg Config) *Provider {
	reg := prometheus.NewRegistry()

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	build := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ets_build_info",
			Help: "Build info for this binary (value is always 1).",
		},
		[]string{"version", "revision", "build_date"},
	)
	lastRun := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ets_last_run_checks",
			Help: "Checks of the most recent run by status.",
		},
		[]string{"status"},
	)
	lastRunEnd := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ets_last_run_timestamp_seconds",
		Help: "Unix time the most recent run finished.",
	})
	reg.MustRegister(build, lastRun, lastRunEnd)

	v := cfg.Build
	if v.Version == "" {
		v.Version = "dev"
	}
	build.WithLabelValues(v.Version, v.Revision, v.BuildDate).Set(1)

	return &Provider{reg: reg, buildInfo: build, lastRun: lastRun, lastRunEnd: lastRunEnd}
}

func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}

func (p *Provider) Register(cs ...prometheus.Collector) {
	for _, c := range cs {
		p.reg.MustRegister(c)
	}
}

func (p *Provider) Registerer() prometheus.Registerer { return p.reg }

// RecordRun publishes the summary of a finished run.
func (p *Provider) RecordRun(s verdict.Summary, finishedUnix float64) {
	p.lastRun.WithLabelValues(verdict.StatusPass.String()).Set(float64(s.Passed))
	p.lastRun.WithLabelValues(verdict.StatusFail.String()).Set(float64(s.Failed))
	p.lastRun.WithLabelValues(verdict.StatusSkip.String()).Set(float64(s.Skipped))
	p.lastRunEnd.Set(finishedUnix)
}
