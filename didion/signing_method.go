package didion

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pilacorp/go-did-sdk/did/common/crypto"
	"github.com/pilacorp/go-did-sdk/did/common/keymanager"
)

// SigningMethodES256K implements ES256K signing for the compact JWS carried
// in Sidetree signed data. The signing key is addressed through the key
// manager, so private material never leaves it.
type SigningMethodES256K struct{}

// ES256K is the ES256K signing method instance.
var ES256K = &SigningMethodES256K{}

func init() {
	jwt.RegisterSigningMethod(ES256K.Alg(), func() jwt.SigningMethod {
		return ES256K
	})
}

// managedKey addresses a private key held by a key manager.
type managedKey struct {
	km    keymanager.KeyManager
	alias string
}

// Alg returns the algorithm name.
func (m *SigningMethodES256K) Alg() string {
	return "ES256K"
}

// Sign signs the signing string with the managed key, returning the 64-byte
// R||S signature.
func (m *SigningMethodES256K) Sign(signingString string, key interface{}) ([]byte, error) {
	mk, ok := key.(managedKey)
	if !ok {
		return nil, fmt.Errorf("didion: ES256K expects a key-manager alias, got %T", key)
	}

	sig, err := mk.km.Sign(mk.alias, []byte(signingString))
	if err != nil {
		return nil, fmt.Errorf("didion: signing failed: %w", err)
	}

	return sig, nil
}

// Verify verifies a signature against a public JWK.
func (m *SigningMethodES256K) Verify(signingString string, signature []byte, key interface{}) error {
	pub, ok := key.(*crypto.JWK)
	if !ok {
		return fmt.Errorf("didion: ES256K verification expects a *crypto.JWK, got %T", key)
	}

	valid, err := crypto.Verify(pub, []byte(signingString), signature)
	if err != nil {
		return fmt.Errorf("didion: verification failed: %w", err)
	}
	if !valid {
		return fmt.Errorf("didion: signature verification failed")
	}

	return nil
}
