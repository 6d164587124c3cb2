// Warden is a policy-gated decision engine for self-modifying neuro-adaptive
// systems.
//
// Every proposed change to a subject's operating envelopes is evaluated
// against the jurisdiction profile bound to its corridor, checked for
// monotone tightening and recorded in a hash-chained, signed audit ledger.
//
// Usage:
//
//	# Generate a ledger signing key
//	warden keys generate --key-id prod-2026 --output ./keys
//
//	# Start the decision API
//	warden serve --config warden.yaml
//
//	# Evaluate one proposal from a file
//	warden evaluate --file proposal.json
//
//	# Verify and inspect the audit ledger
//	warden ledger verify
//	warden ledger list --limit 20
//	warden ledger export --format csv > audit.csv
//
//	# Check a profile document and preview a supersession
//	warden profile validate profiles/eu.yaml
//	warden profile diff eu-neurorights profiles/eu-v2.yaml
package main

import "os"

func main() {
	os.Exit(Execute())
}
