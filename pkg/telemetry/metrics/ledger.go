package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics tracks the audit ledger.
type LedgerMetrics struct {
	appends        *prometheus.CounterVec
	appendDuration prometheus.Histogram
	records        prometheus.Gauge
	verifications  *prometheus.CounterVec
	verifyDuration prometheus.Histogram
}

// NewLedgerMetrics creates and registers ledger metrics.
func NewLedgerMetrics(namespace string, registry *prometheus.Registry) *LedgerMetrics {
	lm := &LedgerMetrics{
		appends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_appends_total",
				Help:      "Total number of ledger append attempts by result",
			},
			[]string{"result"},
		),
		appendDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ledger_append_duration_seconds",
				Help:      "Duration of ledger appends including signing and storage",
				Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 16),
			},
		),
		records: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ledger_records",
				Help:      "Number of records in the ledger",
			},
		),
		verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_verifications_total",
				Help:      "Total number of chain verifications by result",
			},
			[]string{"result"},
		),
		verifyDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ledger_verify_duration_seconds",
				Help:      "Duration of full chain verification",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
			},
		),
	}

	registry.MustRegister(lm.appends, lm.appendDuration, lm.records, lm.verifications, lm.verifyDuration)
	return lm
}

func (lm *LedgerMetrics) recordAppend(err error, duration time.Duration, records int64) {
	lm.appends.WithLabelValues(result(err)).Inc()
	lm.appendDuration.Observe(duration.Seconds())
	if err == nil {
		lm.records.Set(float64(records))
	}
}

func (lm *LedgerMetrics) recordVerification(err error, duration time.Duration) {
	lm.verifications.WithLabelValues(result(err)).Inc()
	lm.verifyDuration.Observe(duration.Seconds())
}
