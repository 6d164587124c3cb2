// Package guard implements the guard pipeline: independent, read-only
// evaluators that each turn a proposal, its policy profile and the prior
// state into a verdict, and the fail-closed aggregation of those verdicts.
//
// # Guards
//
// The standard set is:
//
//   - CeilingGuard: absolute envelope ceilings and their warn bands
//   - MonotonicityGuard: history-aware monotonicity and ceilings
//   - CapabilityGuard: forbidden capabilities
//   - ConsentGuard: corridor consent status
//   - EnvelopeTighteningGuard: before/after monotonicity of the proposal itself
//   - RightsFloorGuard: waivers of non-derogable rights
//
// Each custom constraint of a profile adds one CustomGuard evaluated through
// the registered predicate table.
//
// # Aggregation
//
// Guards never see each other's verdicts. Aggregate combines them:
// any Forbid gives Forbidden, otherwise any PauseAndRest gives Deferred,
// otherwise the outcome is Allowed, degraded when any guard asked for
// DegradePrecision.
package guard
