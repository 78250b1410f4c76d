package evolve

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for evolution passes.
//
// Metrics:
//   - instinct_evolve_passes_total{outcome} - passes by completed, skipped, error
//   - instinct_evolve_records_total{result} - records by evolved, unchanged, failed
//   - instinct_evolve_pass_duration_seconds - pass wall time
//   - instinct_confidence{name} - last confidence written per instinct
type Metrics struct {
	PassesTotal  *prometheus.CounterVec
	RecordsTotal *prometheus.CounterVec
	PassDuration prometheus.Histogram
	Confidence   *prometheus.GaugeVec
}

// NewMetrics creates the pass metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PassesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "instinct_evolve_passes_total",
				Help: "Total number of evolution passes",
			},
			[]string{"outcome"},
		),
		RecordsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "instinct_evolve_records_total",
				Help: "Total number of records examined by evolution passes",
			},
			[]string{"result"},
		),
		PassDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "instinct_evolve_pass_duration_seconds",
				Help:    "Duration of evolution passes in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
		),
		Confidence: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "instinct_confidence",
				Help: "Confidence most recently written for an instinct",
			},
			[]string{"name"},
		),
	}
}

// observe records a finished pass. A nil receiver is a no-op.
func (m *Metrics) observe(r *Report, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PassDuration.Observe(elapsed.Seconds())

	switch {
	case err != nil:
		m.PassesTotal.WithLabelValues("error").Inc()
		return
	case r.NothingToDo():
		m.PassesTotal.WithLabelValues("skipped").Inc()
		return
	default:
		m.PassesTotal.WithLabelValues("completed").Inc()
	}

	unchanged := r.Instincts - len(r.Changes) - len(r.Failures)
	m.RecordsTotal.WithLabelValues("evolved").Add(float64(len(r.Changes)))
	m.RecordsTotal.WithLabelValues("failed").Add(float64(len(r.Failures)))
	m.RecordsTotal.WithLabelValues("unchanged").Add(float64(max(0, unchanged)))

	if r.DryRun {
		return
	}
	for _, c := range r.Changes {
		m.Confidence.WithLabelValues(c.Name).Set(c.New)
	}
}
