package crypto

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// JWK represents a JSON Web Key as used throughout the SDK. Private keys
// carry the D member; public keys never do.
type JWK struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
	D   string `json:"d,omitempty"`
	Alg string `json:"alg,omitempty"`
	Kid string `json:"kid,omitempty"`
}

// IsPrivate reports whether the key carries private material.
func (k *JWK) IsPrivate() bool {
	return k != nil && k.D != ""
}

// Public returns a copy of the key with the private material removed.
func (k *JWK) Public() *JWK {
	if k == nil {
		return nil
	}
	pub := *k
	pub.D = ""
	return &pub
}

// Thumbprint computes the RFC 7638 JWK thumbprint, base64url-encoded.
// Only the required members of each key type participate, in lexicographic
// order, with no insignificant whitespace.
func (k *JWK) Thumbprint() (string, error) {
	if k == nil {
		return "", fmt.Errorf("jwk: thumbprint of nil key")
	}

	var payload string
	switch k.Kty {
	case KeyTypeEC:
		if k.Crv == "" || k.X == "" || k.Y == "" {
			return "", fmt.Errorf("jwk: EC thumbprint requires crv, x and y")
		}
		payload = fmt.Sprintf(`{"crv":%q,"kty":%q,"x":%q,"y":%q}`, k.Crv, k.Kty, k.X, k.Y)
	case KeyTypeOKP:
		if k.Crv == "" || k.X == "" {
			return "", fmt.Errorf("jwk: OKP thumbprint requires crv and x")
		}
		payload = fmt.Sprintf(`{"crv":%q,"kty":%q,"x":%q}`, k.Crv, k.Kty, k.X)
	default:
		return "", fmt.Errorf("jwk: %w: kty %q", ErrUnsupportedAlgorithm, k.Kty)
	}

	digest := sha256.Sum256([]byte(payload))

	return base64.RawURLEncoding.EncodeToString(digest[:]), nil
}
