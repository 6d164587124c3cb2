package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"

	"mercator-hq/warden/pkg/config"
)

var (
	// ErrInvalidKey is returned for an unknown key.
	ErrInvalidKey = errors.New("invalid API key")

	// ErrKeyDisabled is returned for a configured key that has been disabled.
	ErrKeyDisabled = errors.New("API key disabled")
)

// APIKeyValidator validates API keys against a set of key digests.
type APIKeyValidator struct {
	mu   sync.RWMutex
	keys map[[sha256.Size]byte]*APIKeyInfo
}

// NewAPIKeyValidator creates a validator for keys.
func NewAPIKeyValidator(keys []*APIKeyInfo) *APIKeyValidator {
	v := &APIKeyValidator{keys: make(map[[sha256.Size]byte]*APIKeyInfo, len(keys))}
	for _, k := range keys {
		v.keys[k.Digest] = k
	}
	return v
}

// FromConfig builds a validator from the configured key digests.
func FromConfig(cfg config.AuthConfig) (*APIKeyValidator, error) {
	keys := make([]*APIKeyInfo, 0, len(cfg.Keys))
	for _, kc := range cfg.Keys {
		raw, err := hex.DecodeString(kc.SHA256)
		if err != nil || len(raw) != sha256.Size {
			return nil, fmt.Errorf("key %q: sha256 must be a hex SHA-256 digest", kc.Name)
		}

		info := &APIKeyInfo{Name: kc.Name, Enabled: !kc.Disabled}
		copy(info.Digest[:], raw)
		for _, name := range kc.Roles {
			role, err := ParseRole(name)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", kc.Name, err)
			}
			info.Roles = append(info.Roles, role)
		}
		keys = append(keys, info)
	}
	return NewAPIKeyValidator(keys), nil
}

// Validate returns the info of key. Keys are looked up by digest, so lookup
// time does not depend on how much of a key matches.
func (v *APIKeyValidator) Validate(key string) (*APIKeyInfo, error) {
	digest := sha256.Sum256([]byte(key))

	v.mu.RLock()
	defer v.mu.RUnlock()

	info, ok := v.keys[digest]
	if !ok {
		return nil, ErrInvalidKey
	}
	if !info.Enabled {
		return nil, ErrKeyDisabled
	}
	return info, nil
}

// List returns every key sorted by name.
func (v *APIKeyValidator) List() []*APIKeyInfo {
	v.mu.RLock()
	defer v.mu.RUnlock()

	keys := make([]*APIKeyInfo, 0, len(v.keys))
	for _, k := range v.keys {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Name < keys[j].Name })
	return keys
}

// Add adds or replaces a key.
func (v *APIKeyValidator) Add(info *APIKeyInfo) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.keys[info.Digest] = info
}

// Remove removes the key with the given name.
func (v *APIKeyValidator) Remove(name string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for digest, k := range v.keys {
		if k.Name == name {
			delete(v.keys, digest)
		}
	}
}
