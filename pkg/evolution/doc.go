// Package evolution defines the inputs of a decision: the evolution proposal,
// the evidence bundle attached to it and the corridor context that scopes it.
//
// Values in this package are read-only snapshots. The engine never mutates a
// proposal, its evidence or its corridor context; callers construct them and
// pass them in by reference.
//
// # Structural Validation
//
// Validate checks a proposal before any guard runs:
//
//	if errs := evolution.Validate(p); len(errs) > 0 {
//	    // outcome is Rejected, errs are recorded in the audit record
//	}
//
// Every problem is reported, not just the first one.
package evolution
