// Package health provides liveness and readiness probes.
//
// Liveness only reports that the process is serving. Readiness runs every
// registered check concurrently, each bounded by the checker's timeout, and
// reports "not_ready" if any check fails. Warden registers checks for the
// ledger backend, the profile catalog and the last scheduled chain
// verification.
package health
