package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the decision service's Prometheus collectors.
type Metrics struct {
	Decisions *prometheus.CounterVec
	Duration  prometheus.Histogram
}

// NewMetrics registers collectors on reg; a nil reg gets a private registry
// so tests never collide on the global one.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &Metrics{
		Decisions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "sitegate_decisions_total",
			Help: "Access decisions by verdict and reason.",
		}, []string{"verdict", "reason"}),
		Duration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "sitegate_evaluation_duration_seconds",
			Help:    "End-to-end evaluation latency.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
	}
}
