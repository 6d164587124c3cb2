// Package metrics exposes warden's Prometheus metrics.
//
// Metrics (namespace defaults to "warden"):
//
//	warden_decisions_total{outcome}
//	warden_decisions_degraded_total
//	warden_evaluation_duration_seconds
//	warden_guard_verdicts_total{guard,kind}
//	warden_ledger_appends_total{result}
//	warden_ledger_append_duration_seconds
//	warden_ledger_records
//	warden_ledger_verifications_total{result}
//	warden_ledger_verify_duration_seconds
//	warden_profile_supersessions_total{result}
//	warden_profile_reloads_total{result}
//	warden_profile_catalog_size
//
// A nil *Collector is valid and records nothing.
package metrics
