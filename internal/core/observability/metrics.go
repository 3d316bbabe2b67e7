// Package observability holds the Prometheus collectors of a conformance run.
package observability

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	probeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ets_probe_requests_total",
			Help: "HTTP probes sent to the service under test.",
		},
		[]string{"category", "status"},
	)

	probeDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ets_probe_duration_seconds",
			Help:    "Latency of HTTP probes in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"category"},
	)

	verdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ets_verdicts_total",
			Help: "Check verdicts by group and status.",
		},
		[]string{"group", "status"},
	)

	docCacheResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ets_doc_cache_results_total",
			Help: "Document memo lookups by outcome.",
		},
		[]string{"outcome"},
	)

	snapshotOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ets_fixture_snapshot_op_total",
			Help: "Fixture snapshot store operations by op and result.",
		},
		[]string{"op", "result"},
	)

	snapshotOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ets_fixture_snapshot_op_duration_seconds",
			Help:    "Latency of fixture snapshot store operations.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op"},
	)

	eventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ets_verdict_events_dropped_total",
			Help: "Verdict events dropped because the publish queue was full.",
		},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		probeRequestsTotal,
		probeDurationSeconds,
		verdictsTotal,
		docCacheResults,
		snapshotOps,
		snapshotOpDuration,
		eventsDropped,
	}
}

// Init registers the collectors with reg. Registering twice with the same
// registry is a no-op.
func Init(reg prometheus.Registerer) {
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			panic(err)
		}
	}
}

// ObserveProbe records one probe; status 0 means the request never got a response.
func ObserveProbe(category string, status int, durationSeconds float64) {
	st := "error"
	if status > 0 {
		st = strconv.Itoa(status)
	}
	probeRequestsTotal.WithLabelValues(category, st).Inc()
	probeDurationSeconds.WithLabelValues(category).Observe(durationSeconds)
}

func IncVerdict(group, status string) {
	verdictsTotal.WithLabelValues(group, status).Inc()
}

func IncDocCacheHit()  { docCacheResults.WithLabelValues("hit").Inc() }
func IncDocCacheMiss() { docCacheResults.WithLabelValues("miss").Inc() }

func ObserveSnapshotOp(op string, err error, durationSeconds float64) {
	res := "ok"
	if err != nil {
		res = "error"
	}
	snapshotOps.WithLabelValues(op, res).Inc()
	snapshotOpDuration.WithLabelValues(op).Observe(durationSeconds)
}

func IncEventsDropped() { eventsDropped.Inc() }
