// Package keymanager defines the key management contract the DID methods
// build against, plus an in-memory implementation keyed by deterministic
// JWK-thumbprint aliases.
package keymanager

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pilacorp/go-did-sdk/did/common/crypto"
)

// ErrAliasNotFound is returned when no key exists under the given alias.
var ErrAliasNotFound = errors.New("keymanager: alias not found")

// KeyManager generates, stores and uses private keys on behalf of the DID
// methods. Implementations must be safe for concurrent use: multiple DID
// creations may run against the same manager at once.
type KeyManager interface {
	// GeneratePrivateKey mints a key for the algorithm and returns its alias.
	GeneratePrivateKey(alg crypto.AlgorithmID) (string, error)

	// GetPublicKey returns the public JWK stored under alias.
	GetPublicKey(alias string) (*crypto.JWK, error)

	// Sign signs payload with the private key stored under alias.
	Sign(alias string, payload []byte) ([]byte, error)

	// GetDeterministicAlias computes the alias a public key would be stored
	// under, without requiring the key to be present.
	GetDeterministicAlias(publicJwk *crypto.JWK) (string, error)
}

// InMemoryKeyManager keeps private keys in a mutex-guarded map. Aliases are
// RFC 7638 thumbprints of the public key, so the same key always maps to the
// same alias.
type InMemoryKeyManager struct {
	mu   sync.RWMutex
	keys map[string]*crypto.JWK
}

// NewInMemoryKeyManager creates an empty in-memory key manager.
func NewInMemoryKeyManager() *InMemoryKeyManager {
	return &InMemoryKeyManager{
		keys: make(map[string]*crypto.JWK),
	}
}

// GeneratePrivateKey mints a fresh key and stores it under its deterministic
// alias.
func (m *InMemoryKeyManager) GeneratePrivateKey(alg crypto.AlgorithmID) (string, error) {
	priv, err := crypto.GeneratePrivateKey(alg)
	if err != nil {
		return "", fmt.Errorf("keymanager: failed to generate key: %w", err)
	}

	return m.Import(priv)
}

// Import stores an existing private key and returns its alias. Importing the
// same key twice is idempotent.
func (m *InMemoryKeyManager) Import(priv *crypto.JWK) (string, error) {
	if !priv.IsPrivate() {
		return "", fmt.Errorf("keymanager: %w: import requires a private key", crypto.ErrInvalidKey)
	}

	pub, err := crypto.DerivePublicKey(priv)
	if err != nil {
		return "", fmt.Errorf("keymanager: failed to derive public key: %w", err)
	}

	alias, err := m.GetDeterministicAlias(pub)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[alias] = priv

	return alias, nil
}

// GetPublicKey returns the public JWK stored under alias.
func (m *InMemoryKeyManager) GetPublicKey(alias string) (*crypto.JWK, error) {
	m.mu.RLock()
	priv, ok := m.keys[alias]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrAliasNotFound, alias)
	}

	pub, err := crypto.DerivePublicKey(priv)
	if err != nil {
		return nil, fmt.Errorf("keymanager: failed to derive public key: %w", err)
	}

	return pub, nil
}

// Sign signs payload with the private key stored under alias.
func (m *InMemoryKeyManager) Sign(alias string, payload []byte) ([]byte, error) {
	m.mu.RLock()
	priv, ok := m.keys[alias]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrAliasNotFound, alias)
	}

	return crypto.Sign(priv, payload)
}

// GetDeterministicAlias computes the thumbprint alias for a public key.
func (m *InMemoryKeyManager) GetDeterministicAlias(publicJwk *crypto.JWK) (string, error) {
	alias, err := publicJwk.Public().Thumbprint()
	if err != nil {
		return "", fmt.Errorf("keymanager: failed to compute alias: %w", err)
	}

	return alias, nil
}
