// Package metrics exposes Prometheus collectors for the ledger, production
// logging and the HTTP API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups the collectors. Each instance owns its own registry so tests
// and multiple servers in one process do not collide.
type Metrics struct {
	Registry *prometheus.Registry

	InventoryAdjustments *prometheus.CounterVec
	InventoryRejections  *prometheus.CounterVec
	LedgerLogFailures    prometheus.Counter
	ProductionLogs       *prometheus.CounterVec
	StageInputKg         *prometheus.CounterVec
	HTTPRequests         *prometheus.CounterVec
	HTTPDuration         *prometheus.HistogramVec
}

// New creates and registers the collectors
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		InventoryAdjustments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cashew",
			Subsystem: "inventory",
			Name:      "adjustments_total",
			Help:      "Committed inventory quantity changes by reason.",
		}, []string{"reason"}),
		InventoryRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cashew",
			Subsystem: "inventory",
			Name:      "rejections_total",
			Help:      "Inventory changes rejected before commit by cause.",
		}, []string{"cause"}),
		LedgerLogFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cashew",
			Subsystem: "inventory",
			Name:      "log_write_failures_total",
			Help:      "Audit log rows that could not be written after a committed change.",
		}),
		ProductionLogs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cashew",
			Subsystem: "production",
			Name:      "logs_total",
			Help:      "Production logs recorded by stage.",
		}, []string{"stage"}),
		StageInputKg: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cashew",
			Subsystem: "production",
			Name:      "input_kg_total",
			Help:      "Input weight recorded by stage.",
		}, []string{"stage"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cashew",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "API requests by route and status code.",
		}, []string{"route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cashew",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "API request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.Registry.MustRegister(
		m.InventoryAdjustments,
		m.InventoryRejections,
		m.LedgerLogFailures,
		m.ProductionLogs,
		m.StageInputKg,
		m.HTTPRequests,
		m.HTTPDuration,
		collectors.NewGoCollector(),
	)
	return m
}
