package metrics

import "github.com/prometheus/client_golang/prometheus"

// ProfileMetrics tracks the policy profile store.
type ProfileMetrics struct {
	supersessions *prometheus.CounterVec
	reloads       *prometheus.CounterVec
	catalogSize   prometheus.Gauge
}

// NewProfileMetrics creates and registers profile metrics.
func NewProfileMetrics(namespace string, registry *prometheus.Registry) *ProfileMetrics {
	pm := &ProfileMetrics{
		supersessions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "profile_supersessions_total",
				Help:      "Total number of profile supersession attempts by result",
			},
			[]string{"result"},
		),
		reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "profile_reloads_total",
				Help:      "Total number of profile catalog reloads by result",
			},
			[]string{"result"},
		),
		catalogSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "profile_catalog_size",
				Help:      "Number of profiles in the catalog",
			},
		),
	}

	registry.MustRegister(pm.supersessions, pm.reloads, pm.catalogSize)
	return pm
}
