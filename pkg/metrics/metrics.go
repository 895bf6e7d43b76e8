// Package metrics exposes the Prometheus metrics of the disruption engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/travigo/disruptions/pkg/ctdf"
)

type Metrics struct {
	Registry *prometheus.Registry

	// DisruptionsHandled counts ingested records by kind and outcome
	// (applied, dropped, failed).
	DisruptionsHandled *prometheus.CounterVec
	DisruptionsDeleted prometheus.Counter

	BatchDuration prometheus.Histogram

	Disruptions     prometheus.Gauge
	VehicleJourneys *prometheus.GaugeVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	handled := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travigo_disruptions_handled_total",
			Help: "Total number of realtime records handled",
		},
		[]string{"kind", "outcome"},
	)

	deleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "travigo_disruptions_deleted_total",
		Help: "Total number of disruptions deleted",
	})

	batchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "travigo_disruptions_batch_duration_seconds",
		Help:    "Time taken to apply a batch of realtime records to a snapshot",
		Buckets: prometheus.DefBuckets,
	})

	disruptions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "travigo_disruptions_current",
		Help: "Number of disruptions in the current snapshot",
	})

	vehicleJourneys := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "travigo_vehicle_journeys",
			Help: "Number of vehicle journeys in the current snapshot by realtime level",
		},
		[]string{"level"},
	)

	registry.MustRegister(handled, deleted, batchDuration, disruptions, vehicleJourneys)

	return &Metrics{
		Registry:           registry,
		DisruptionsHandled: handled,
		DisruptionsDeleted: deleted,
		BatchDuration:      batchDuration,
		Disruptions:        disruptions,
		VehicleJourneys:    vehicleJourneys,
	}
}

func (m *Metrics) RecordHandled(kind string, outcome string) {
	m.DisruptionsHandled.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveBatch(started time.Time) {
	m.BatchDuration.Observe(time.Since(started).Seconds())
}

// ObserveSnapshot refreshes the gauges from a published snapshot.
func (m *Metrics) ObserveSnapshot(data *ctdf.Data) {
	m.Disruptions.Set(float64(data.PT.Disruptions.Len()))
	for _, level := range ctdf.RTLevels {
		m.VehicleJourneys.WithLabelValues(level.String()).Set(float64(data.PT.CountVehicleJourneys(level)))
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
