// Package obsmetrics exposes the gateway's Prometheus metrics, replacing
// the teacher's SQLite-persisted percentile collector (internal metrics
// table, periodic collectLoop) with the library the rest of the pack
// reaches for when it needs counters and histograms exported over HTTP.
package obsmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the gateway's process-wide metric handles.
type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	StatementErrors *prometheus.CounterVec
	OpenStreams     prometheus.Gauge
}

// NewCollector registers and returns the gateway's metrics against reg. A
// nil reg registers against prometheus's default registry, since
// promauto.With only registers when given a non-nil Registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Collector{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "libsqld_requests_total",
			Help: "Total number of protocol requests handled, by version and route.",
		}, []string{"version", "route"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "libsqld_request_duration_seconds",
			Help:    "Request handling latency by version and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"version", "route"}),
		StatementErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "libsqld_statement_errors_total",
			Help: "Total number of statement executions that returned an ExecError.",
		}, []string{"version"}),
		OpenStreams: factory.NewGauge(prometheus.GaugeOpts{
			Name: "libsqld_open_streams",
			Help: "Number of currently checked-in, not-yet-idle-evicted streams.",
		}),
	}
}
