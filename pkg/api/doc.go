// Package api serves warden over HTTP.
//
// Routes:
//
//	POST /v1/evaluate                      evaluate a proposal
//	GET  /v1/ledger/records                page through audit records
//	GET  /v1/ledger/records/{seq}          one audit record
//	GET  /v1/ledger/verify                 verify the whole chain
//	GET  /v1/profiles                      corridor bindings
//	GET  /v1/profiles/{corridor}           a corridor's active profile and history
//	POST /v1/profiles/{corridor}/supersede supersede a corridor's profile
//	GET  /health/live, /health/ready       probes
//	GET  /version                          build information
//	GET  /metrics                          Prometheus metrics
//
// With server.auth enabled the /v1 routes need an API key: evaluate for
// POST /v1/evaluate, read for the other GET routes and admin for
// supersession. Probes, version and metrics stay open. With server.tls
// enabled the listener serves HTTPS.
//
// The API only reports decisions. Nothing here acts on them.
package api
