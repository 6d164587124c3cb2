/*
Package tls serves the decision API over TLS.

Certificates are read from PEM files and re-read when either file changes, so
a renewed certificate is picked up without a restart. Setting a client CA
file turns on mutual TLS.

	server:
	  tls:
	    enabled: true
	    cert_file: /etc/warden/tls/server.crt
	    key_file: /etc/warden/tls/server.key
	    min_version: "1.3"
	    client_ca_file: /etc/warden/tls/clients.pem

	ln, err := tls.NewListener(ctx, ln, cfg.Server.TLS, logger)
*/
package tls
