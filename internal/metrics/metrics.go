// Package metrics holds the Prometheus collectors of the dashboard and a few
// helpers that keep label values consistent.
//
// Exposed at /metrics:
//   - sales_table_loads_total{status}: fact table loads by outcome
//   - sales_table_load_duration_seconds: time spent in one load
//   - sales_table_rows: rows in the most recently loaded table
//   - dashboard_pipeline_duration_seconds: filter + aggregate time per run
//   - dashboard_empty_selections_total: runs whose selection matched no rows
//   - dashboard_sessions_active: sessions holding a loaded table
//   - http_requests_total{method,route,status}, http_request_duration_seconds{method,route}
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TableLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sales_table_loads_total",
			Help: "Fact table loads by outcome",
		},
		[]string{"status"},
	)

	TableLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sales_table_load_duration_seconds",
			Help:    "Duration of one fact table load in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	TableRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sales_table_rows",
			Help: "Rows in the most recently loaded fact table",
		},
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dashboard_pipeline_duration_seconds",
			Help:    "Duration of one filter and aggregate run in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	EmptySelections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_empty_selections_total",
			Help: "Pipeline runs whose selection matched no rows",
		},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboard_sessions_active",
			Help: "Sessions currently holding a loaded fact table",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Status labels for TableLoads.
const (
	StatusOK         = "ok"
	StatusError      = "error"
	StatusConnection = "connection_error"
)

func ObserveLoad(d time.Duration, rows int, status string) {
	TableLoadDuration.Observe(d.Seconds())
	TableLoads.WithLabelValues(status).Inc()
	if status == StatusOK {
		TableRows.Set(float64(rows))
	}
}

func ObservePipeline(d time.Duration, empty bool) {
	PipelineDuration.Observe(d.Seconds())
	if empty {
		EmptySelections.Inc()
	}
}

func ObserveRequest(method, route string, status int, d time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
