package ledger

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
)

// PEM block types used for key files.
const (
	PEMPublicKey  = "PUBLIC KEY"
	PEMPrivateKey = "PRIVATE KEY"
)

// Signer signs canonical record payloads.
type Signer interface {
	KeyID() string
	Sign(msg []byte) ([]byte, error)
}

// Verifier checks a signature made by the key with the given id.
type Verifier interface {
	Verify(msg, sig []byte, keyID string) bool
}

// Ed25519Signer signs with a single Ed25519 private key. It also verifies
// its own signatures.
type Ed25519Signer struct {
	keyID string
	key   ed25519.PrivateKey
}

// NewEd25519Signer creates a signer for key.
func NewEd25519Signer(keyID string, key ed25519.PrivateKey) (*Ed25519Signer, error) {
	if keyID == "" {
		return nil, errors.New("key id is required")
	}
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid ed25519 private key size %d", len(key))
	}
	return &Ed25519Signer{keyID: keyID, key: key}, nil
}

// GenerateSigner creates a signer with a fresh key pair.
func GenerateSigner(keyID string) (*Ed25519Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate keypair: %w", err)
	}
	return NewEd25519Signer(keyID, priv)
}

// KeyID implements Signer.
func (s *Ed25519Signer) KeyID() string { return s.keyID }

// Sign implements Signer.
func (s *Ed25519Signer) Sign(msg []byte) ([]byte, error) {
	return ed25519.Sign(s.key, msg), nil
}

// PublicKey returns the public half of the signing key.
func (s *Ed25519Signer) PublicKey() ed25519.PublicKey {
	return s.key.Public().(ed25519.PublicKey)
}

// PrivateKey returns the signing key.
func (s *Ed25519Signer) PrivateKey() ed25519.PrivateKey {
	return s.key
}

// Verify implements Verifier for the signer's own key id.
func (s *Ed25519Signer) Verify(msg, sig []byte, keyID string) bool {
	return keyID == s.keyID && ed25519.Verify(s.PublicKey(), msg, sig)
}

// KeyRing verifies signatures from any of several public keys, so records
// signed before a key rotation stay verifiable.
type KeyRing struct {
	mu   sync.RWMutex
	keys map[string]ed25519.PublicKey
}

// NewKeyRing creates an empty key ring.
func NewKeyRing() *KeyRing {
	return &KeyRing{keys: make(map[string]ed25519.PublicKey)}
}

// Add registers a public key under keyID, replacing any previous key.
func (k *KeyRing) Add(keyID string, key ed25519.PublicKey) error {
	if keyID == "" {
		return errors.New("key id is required")
	}
	if len(key) != ed25519.PublicKeySize {
		return fmt.Errorf("invalid ed25519 public key size %d", len(key))
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[keyID] = key
	return nil
}

// KeyIDs returns the registered key ids, sorted.
func (k *KeyRing) KeyIDs() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()

	ids := make([]string, 0, len(k.keys))
	for id := range k.keys {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Verify implements Verifier.
func (k *KeyRing) Verify(msg, sig []byte, keyID string) bool {
	k.mu.RLock()
	key, ok := k.keys[keyID]
	k.mu.RUnlock()

	return ok && ed25519.Verify(key, msg, sig)
}

// LoadKeyRing builds a key ring from key id to public key file path.
func LoadKeyRing(paths map[string]string) (*KeyRing, error) {
	ring := NewKeyRing()
	for id, path := range paths {
		key, err := LoadPublicKey(path)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", id, err)
		}
		if err := ring.Add(id, key); err != nil {
			return nil, fmt.Errorf("key %s: %w", id, err)
		}
	}
	return ring, nil
}

// SavePublicKey writes key as PEM, world-readable.
func SavePublicKey(path string, key ed25519.PublicKey) error {
	return writePEM(path, PEMPublicKey, key, 0644)
}

// SavePrivateKey writes key as PEM, readable only by the owner.
func SavePrivateKey(path string, key ed25519.PrivateKey) error {
	return writePEM(path, PEMPrivateKey, key, 0600)
}

func writePEM(path, blockType string, data []byte, perm os.FileMode) error {
	// #nosec G304 - key paths are operator supplied.
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer file.Close()

	return pem.Encode(file, &pem.Block{Type: blockType, Bytes: data})
}

// LoadPrivateKey reads a PEM private key. Both the 64-byte key and its
// 32-byte seed are accepted.
func LoadPrivateKey(path string) (ed25519.PrivateKey, error) {
	data, err := readPEM(path, PEMPrivateKey)
	if err != nil {
		return nil, err
	}
	switch len(data) {
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(data), nil
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(data), nil
	}
	return nil, fmt.Errorf("%s: invalid ed25519 private key size %d", path, len(data))
}

// LoadPublicKey reads a PEM public key.
func LoadPublicKey(path string) (ed25519.PublicKey, error) {
	data, err := readPEM(path, PEMPublicKey)
	if err != nil {
		return nil, err
	}
	if len(data) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%s: invalid ed25519 public key size %d", path, len(data))
	}
	return ed25519.PublicKey(data), nil
}

// LoadSigner reads a private key file and wraps it in a signer.
func LoadSigner(keyID, path string) (*Ed25519Signer, error) {
	key, err := LoadPrivateKey(path)
	if err != nil {
		return nil, err
	}
	return NewEd25519Signer(keyID, key)
}

func readPEM(path, blockType string) ([]byte, error) {
	// #nosec G304 - key paths are operator supplied.
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("%s: no PEM block found", path)
	}
	if block.Type != blockType {
		return nil, fmt.Errorf("%s: PEM block type %q, want %q", path, block.Type, blockType)
	}
	return block.Bytes, nil
}
