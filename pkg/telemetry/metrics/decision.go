package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DecisionMetrics tracks proposal evaluation.
type DecisionMetrics struct {
	decisions *prometheus.CounterVec
	degraded  prometheus.Counter
	duration  prometheus.Histogram
	verdicts  *prometheus.CounterVec
}

// NewDecisionMetrics creates and registers decision metrics.
func NewDecisionMetrics(namespace string, registry *prometheus.Registry) *DecisionMetrics {
	dm := &DecisionMetrics{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decisions_total",
				Help:      "Total number of proposal decisions by outcome",
			},
			[]string{"outcome"},
		),
		degraded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decisions_degraded_total",
				Help:      "Total number of allowed decisions with degraded precision",
			},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of proposal evaluation including the ledger append",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14), // 100µs to ~800ms
			},
		),
		verdicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "guard_verdicts_total",
				Help:      "Total number of guard verdicts by guard and kind",
			},
			[]string{"guard", "kind"},
		),
	}

	registry.MustRegister(dm.decisions, dm.degraded, dm.duration, dm.verdicts)
	return dm
}

func (dm *DecisionMetrics) record(outcome string, degraded bool, duration time.Duration) {
	dm.decisions.WithLabelValues(outcome).Inc()
	if degraded {
		dm.degraded.Inc()
	}
	dm.duration.Observe(duration.Seconds())
}
