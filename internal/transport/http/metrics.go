package http

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes the freshness and outcome of the last published run.
// Every gauge reads through the snapshot store, so scrapes always see
// the current table without the pipeline pushing anything.
type Metrics struct {
	registry *prometheus.Registry
}

// NewMetrics creates and registers the server metrics on a dedicated
// registry.
func NewMetrics(store *SnapshotStore) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "motcli_last_run_records",
		Help: "Number of bond records in the published table.",
	}, func() float64 {
		snap, err := store.Snapshot()
		if err != nil {
			return 0
		}
		return float64(len(snap.Records))
	})

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "motcli_last_run_skipped",
		Help: "Number of instruments skipped by the last run.",
	}, func() float64 {
		snap, err := store.Snapshot()
		if err != nil || snap.Summary == nil {
			return 0
		}
		return float64(snap.Summary.Skipped)
	})

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "motcli_snapshot_age_seconds",
		Help: "Seconds since the bond table was last published; -1 when no snapshot exists.",
	}, func() float64 {
		snap, err := store.Snapshot()
		if err != nil {
			return -1
		}
		return time.Since(snap.PublishedAt).Seconds()
	})

	return &Metrics{registry: registry}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
