package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// APIKeyMiddleware authenticates requests by API key and authorizes them by
// role.
type APIKeyMiddleware struct {
	validator *APIKeyValidator
	header    string
	logger    *slog.Logger
}

// NewAPIKeyMiddleware creates a middleware reading keys from header. The
// Authorization header carries "Bearer <key>"; any other header carries the
// bare key.
func NewAPIKeyMiddleware(validator *APIKeyValidator, header string, logger *slog.Logger) *APIKeyMiddleware {
	if header == "" {
		header = "Authorization"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &APIKeyMiddleware{
		validator: validator,
		header:    header,
		logger:    logger.With("component", "auth"),
	}
}

// Require returns middleware that admits only keys holding role.
func (m *APIKeyMiddleware) Require(role Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, err := m.extractAPIKey(r)
			if err != nil {
				m.logger.Warn("Missing API key", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
				deny(w, http.StatusUnauthorized, "missing API key")
				return
			}

			info, err := m.validator.Validate(key)
			if err != nil {
				m.logger.Warn("Rejected API key", "error", err, "remote_addr", r.RemoteAddr, "path", r.URL.Path)
				deny(w, http.StatusUnauthorized, err.Error())
				return
			}
			if !info.Allows(role) {
				m.logger.Warn("API key lacks role",
					"key", info.Name,
					"role", role,
					"path", r.URL.Path)
				deny(w, http.StatusForbidden, "API key lacks role "+string(role))
				return
			}

			m.logger.Debug("API key authenticated", "key", info.Name, "path", r.URL.Path)
			next.ServeHTTP(w, r.WithContext(WithAPIKeyInfo(r.Context(), info)))
		})
	}
}

func (m *APIKeyMiddleware) extractAPIKey(r *http.Request) (string, error) {
	value := strings.TrimSpace(r.Header.Get(m.header))
	if strings.EqualFold(m.header, "Authorization") {
		scheme, key, ok := strings.Cut(value, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return "", errNoKey
		}
		value = strings.TrimSpace(key)
	}
	if value == "" {
		return "", errNoKey
	}
	return value, nil
}

var errNoKey = errors.New("no API key found")

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="warden"`)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

type contextKey string

// #nosec G101 - context key, not a credential
const apiKeyInfoKey contextKey = "api_key_info"

// WithAPIKeyInfo returns ctx carrying info.
func WithAPIKeyInfo(ctx context.Context, info *APIKeyInfo) context.Context {
	return context.WithValue(ctx, apiKeyInfoKey, info)
}

// GetAPIKeyInfo returns the authenticated key of a request.
func GetAPIKeyInfo(ctx context.Context) (*APIKeyInfo, bool) {
	info, ok := ctx.Value(apiKeyInfoKey).(*APIKeyInfo)
	return info, ok
}
