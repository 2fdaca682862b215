package core

import (
	"errors"

	"github.com/devilelephant/blacklist/db"
	"github.com/devilelephant/blacklist/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Lookup results as reported in blacklist_lookups_total.
const (
	LookupListed      = "listed"
	LookupNotListed   = "not_listed"
	LookupInvalid     = "invalid"
	LookupUnavailable = "unavailable"
)

// Metrics holds the service collectors on a registry of its own, so tests
// and several Apps in one process never collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	snapshotEntries prometheus.Gauge
	snapshotBuilt   prometheus.Gauge
	rebuilds        *prometheus.CounterVec
	rebuildDuration prometheus.Histogram
	lookups         *prometheus.CounterVec
}

// NewMetrics creates and registers the service collectors together with
// the Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		snapshotEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blacklist_snapshot_entries",
			Help: "Number of distinct prefixes in the serving snapshot.",
		}),
		snapshotBuilt: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blacklist_snapshot_build_timestamp_seconds",
			Help: "Unix time the serving snapshot was built.",
		}),
		rebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blacklist_rebuilds_total",
			Help: "Rebuild attempts, labeled by outcome.",
		}, []string{"outcome"}),
		rebuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "blacklist_rebuild_duration_seconds",
			Help:    "Duration of rebuilds that ran, successful or not.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blacklist_lookups_total",
			Help: "Address lookups, labeled by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.snapshotEntries,
		m.snapshotBuilt,
		m.rebuilds,
		m.rebuildDuration,
		m.lookups,
	)
	return m
}

// Registry is the registry the collectors live on. Middleware registers
// its own collectors here too.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRebuild accounts a rebuild that ran.
func (m *Metrics) ObserveRebuild(ev registry.Event) {
	m.rebuildDuration.Observe(ev.Duration.Seconds())
	if ev.Err != nil {
		m.rebuilds.WithLabelValues(db.OutcomeFailure).Inc()
		return
	}
	m.rebuilds.WithLabelValues(db.OutcomeSuccess).Inc()
	m.snapshotEntries.Set(float64(ev.Snapshot.Entries))
	m.snapshotBuilt.Set(float64(ev.Snapshot.BuiltAt.Unix()))
}

// ObserveBusy accounts a rebuild request rejected because one was running.
func (m *Metrics) ObserveBusy() {
	m.rebuilds.WithLabelValues(db.OutcomeBusy).Inc()
}

// ObserveLookup accounts one lookup under result.
func (m *Metrics) ObserveLookup(result string) {
	m.lookups.WithLabelValues(result).Inc()
}

// LookupResult classifies the outcome of a registry lookup for
// ObserveLookup.
func LookupResult(matched bool, err error) string {
	switch {
	case err == nil && matched:
		return LookupListed
	case err == nil:
		return LookupNotListed
	case errors.Is(err, registry.ErrNoSnapshot):
		return LookupUnavailable
	default:
		return LookupInvalid
	}
}
