// Package metrics exposes prometheus instruments for the data layer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

type Metrics struct {
	ledgerEntries    *prometheus.CounterVec
	snapshotRuns     prometheus.Counter
	snapshotDuration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ledgerEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentdesk",
			Name:      "cost_ledger_entries_total",
			Help:      "Cost ledger entries recorded, by provider.",
		}, []string{"provider"}),
		snapshotRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agentdesk",
			Name:      "analytics_refresh_total",
			Help:      "Completed analytics snapshot refreshes.",
		}),
		snapshotDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "agentdesk",
			Name:      "analytics_refresh_duration_seconds",
			Help:      "Duration of analytics snapshot refreshes.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	if reg != nil {
		reg.MustRegister(m.ledgerEntries, m.snapshotRuns, m.snapshotDuration)
	}
	return m
}

func (m *Metrics) RecordLedgerEntry(provider string) {
	if m == nil {
		return
	}
	m.ledgerEntries.WithLabelValues(provider).Inc()
}

func (m *Metrics) RecordSnapshotRefresh(d time.Duration) {
	if m == nil {
		return
	}
	m.snapshotRuns.Inc()
	m.snapshotDuration.Observe(d.Seconds())
}

func provideRegistry() prometheus.Registerer { return prometheus.DefaultRegisterer }

// Module provides the data-layer metrics.
var Module = fx.Module("observability.metrics",
	fx.Provide(provideRegistry),
	fx.Provide(New),
)
