package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// Role grants access to a group of API routes.
type Role string

const (
	// RoleEvaluate may submit proposals.
	RoleEvaluate Role = "evaluate"
	// RoleRead may read the ledger and corridor bindings.
	RoleRead Role = "read"
	// RoleAdmin may supersede corridor profiles and holds every other role.
	RoleAdmin Role = "admin"
)

// ParseRole parses a configured role name.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleEvaluate, RoleRead, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// APIKeyInfo describes one API key. The key itself is never held, only its
// SHA-256 digest.
type APIKeyInfo struct {
	Name    string
	Digest  [sha256.Size]byte
	Roles   []Role
	Enabled bool
}

// Allows reports whether the key holds role.
func (k *APIKeyInfo) Allows(role Role) bool {
	for _, r := range k.Roles {
		if r == role || r == RoleAdmin {
			return true
		}
	}
	return false
}

// HashKey returns the hex SHA-256 digest of key, the form stored in
// configuration.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// GenerateKey returns a new random API key.
func GenerateKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate API key: %w", err)
	}
	return "wdn_" + base64.RawURLEncoding.EncodeToString(buf), nil
}
