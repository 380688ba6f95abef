// Package metric provides Prometheus metrics for VarMesh.
//
// It exposes counters, gauges, and histograms for diff passes, watcher
// activity, and reconciliation traffic.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics.
type Metrics struct {
	// Diff metrics
	DiffPasses   prometheus.Counter
	DiffDuration prometheus.Histogram
	ChangedBytes prometheus.Counter

	// Watcher metrics
	WatchEvents   prometheus.Counter
	EventsEmitted prometheus.Counter
	EventsDropped prometheus.Counter
	QueueDepth    prometheus.Gauge

	// Reconciliation metrics
	DeltasSent         prometheus.Counter
	DeltasApplied      prometheus.Counter
	ReconcileConflicts prometheus.Counter
}

// New creates the metric set. Metrics are created unregistered; call
// Register to attach them to a registry.
func New() *Metrics {
	return &Metrics{
		DiffPasses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "varmesh",
			Subsystem: "diff",
			Name:      "passes_total",
			Help:      "Number of change detection passes executed.",
		}),
		DiffDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "varmesh",
			Subsystem: "diff",
			Name:      "pass_duration_seconds",
			Help:      "Duration of change detection passes.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		ChangedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "varmesh",
			Subsystem: "diff",
			Name:      "changed_bytes_total",
			Help:      "Total bytes covered by reported changed ranges.",
		}),
		WatchEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "varmesh",
			Subsystem: "watcher",
			Name:      "fs_events_total",
			Help:      "Raw filesystem events observed for watched paths.",
		}),
		EventsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "varmesh",
			Subsystem: "watcher",
			Name:      "change_events_total",
			Help:      "Debounced change events enqueued for consumers.",
		}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "varmesh",
			Subsystem: "watcher",
			Name:      "change_events_dropped_total",
			Help:      "Change events coalesced away because the queue was full.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "varmesh",
			Subsystem: "watcher",
			Name:      "queue_depth",
			Help:      "Current depth of the change event queue.",
		}),
		DeltasSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "varmesh",
			Subsystem: "sync",
			Name:      "deltas_sent_total",
			Help:      "Outbound variable deltas handed to the transport.",
		}),
		DeltasApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "varmesh",
			Subsystem: "sync",
			Name:      "deltas_applied_total",
			Help:      "Inbound peer deltas applied to virtual files.",
		}),
		ReconcileConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "varmesh",
			Subsystem: "sync",
			Name:      "conflicts_total",
			Help:      "Inbound deltas rejected for referencing unregistered variables.",
		}),
	}
}

// Register attaches all metrics to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.DiffPasses,
		m.DiffDuration,
		m.ChangedBytes,
		m.WatchEvents,
		m.EventsEmitted,
		m.EventsDropped,
		m.QueueDepth,
		m.DeltasSent,
		m.DeltasApplied,
		m.ReconcileConflicts,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
