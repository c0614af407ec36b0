package obstacles

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Frame outcomes recorded by Metrics and Stats.
const (
	outcomeProcessed = "processed"
	outcomeEmpty     = "empty"
	outcomeSkipped   = "skipped"
	outcomeDropped   = "dropped"
	outcomeFailed    = "failed"
)

// Metrics holds the Prometheus collectors of a Detector.
type Metrics struct {
	FramesTotal        *prometheus.CounterVec
	ProcessingDuration prometheus.Histogram
	OutputPoints       *prometheus.HistogramVec
}

// NewMetrics creates the detector collectors and registers them with reg. A nil reg registers
// with the default registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		FramesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "obstacles_frames_total",
				Help: "Input frames by outcome (processed, empty, skipped, dropped, failed).",
			},
			[]string{"outcome"},
		),
		ProcessingDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "obstacles_processing_duration_seconds",
				Help:    "Time to classify one frame in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),
		OutputPoints: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "obstacles_output_points",
				Help:    "Points published per frame by output channel.",
				Buckets: prometheus.ExponentialBuckets(1, 4, 10),
			},
			[]string{"channel"},
		),
	}
	for _, c := range []prometheus.Collector{m.FramesTotal, m.ProcessingDuration, m.OutputPoints} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler returns the Prometheus scrape HTTP handler for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
