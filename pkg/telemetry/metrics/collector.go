package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/warden/pkg/config"
)

// Collector owns the registry and every warden metric.
type Collector struct {
	config   config.MetricsConfig
	registry *prometheus.Registry

	decisions *DecisionMetrics
	ledger    *LedgerMetrics
	profiles  *ProfileMetrics
}

// NewCollector creates a collector and registers its metrics. A nil registry
// gets a fresh one.
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}

	return &Collector{
		config:    cfg,
		registry:  registry,
		decisions: NewDecisionMetrics(cfg.Namespace, registry),
		ledger:    NewLedgerMetrics(cfg.Namespace, registry),
		profiles:  NewProfileMetrics(cfg.Namespace, registry),
	}
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Path returns the configured scrape path.
func (c *Collector) Path() string {
	return c.config.Path
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordDecision records one evaluated proposal.
func (c *Collector) RecordDecision(outcome string, degraded bool, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.decisions.record(outcome, degraded, duration)
}

// RecordVerdict records one guard verdict.
func (c *Collector) RecordVerdict(guard, kind string) {
	if !c.enabled() {
		return
	}
	c.decisions.verdicts.WithLabelValues(guard, kind).Inc()
}

// RecordAppend records a ledger append attempt and the resulting length.
func (c *Collector) RecordAppend(err error, duration time.Duration, records int64) {
	if !c.enabled() {
		return
	}
	c.ledger.recordAppend(err, duration, records)
}

// RecordVerification records a chain verification run.
func (c *Collector) RecordVerification(err error, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.ledger.recordVerification(err, duration)
}

// RecordSupersession records a supersession attempt.
func (c *Collector) RecordSupersession(err error) {
	if !c.enabled() {
		return
	}
	c.profiles.supersessions.WithLabelValues(result(err)).Inc()
}

// RecordReload records a profile catalog reload.
func (c *Collector) RecordReload(err error, catalogSize int) {
	if !c.enabled() {
		return
	}
	c.profiles.reloads.WithLabelValues(result(err)).Inc()
	if err == nil {
		c.profiles.catalogSize.Set(float64(catalogSize))
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
