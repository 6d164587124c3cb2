/*
Package auth authenticates API requests by key and authorizes them by role.

Keys are configured by their SHA-256 digest only:

	server:
	  auth:
	    enabled: true
	    keys:
	      - name: clinic-gateway
	        sha256: 9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08
	        roles: [evaluate, read]

Each route group requires one role: evaluate for proposal submission, read
for ledger and binding queries and admin for supersession. The admin role
holds every other role.

	validator, err := auth.FromConfig(cfg.Server.Auth)
	mw := auth.NewAPIKeyMiddleware(validator, cfg.Server.Auth.Header, logger)
	r.With(mw.Require(auth.RoleAdmin)).Post("/v1/profiles/{corridor}/supersede", h)
*/
package auth
