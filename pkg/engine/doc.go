// Package engine reconciles evolution proposals against policy.
//
// Evaluate validates a proposal, resolves the corridor's policy profile, runs
// the guard pipeline and monotonicity checker, aggregates the verdicts
// fail-closed and appends a signed audit record for every outcome, denials
// included. The engine never acts on a decision; it returns the outcome and
// the record.
//
// Guard evaluation runs outside the commit lock, so independent proposals
// are evaluated in parallel. The commit lock serializes ledger appends,
// updates of the per-subject prior state and profile supersession. When a
// subject's prior state or its corridor's profile changed while guards were
// running, the proposal is re-evaluated under the lock before it is recorded.
package engine
