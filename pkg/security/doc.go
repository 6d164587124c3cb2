// Package security holds the transport security of the decision API:
// subpackage tls serves it over TLS or mutual TLS and subpackage auth
// authenticates callers by API key and role.
package security
