// Package crypto provides the key generation, signing and verification
// primitives shared by every DID method in the SDK: Ed25519 and secp256k1
// keys in JWK form, raw-byte conversions, point compression and multicodec
// tagging.
package crypto

import (
	"errors"
	"fmt"
)

// AlgorithmID identifies a supported signature algorithm / curve pair.
type AlgorithmID string

const (
	// AlgorithmEd25519 is EdDSA over edwards25519.
	AlgorithmEd25519 AlgorithmID = "Ed25519"
	// AlgorithmSecp256k1 is ECDSA over secp256k1 with SHA-256 (ES256K).
	AlgorithmSecp256k1 AlgorithmID = "secp256k1"
)

// JWK constants for the supported algorithms.
const (
	KeyTypeOKP = "OKP"
	KeyTypeEC  = "EC"

	CurveEd25519   = "Ed25519"
	CurveSecp256k1 = "secp256k1"

	algEdDSA  = "EdDSA"
	algES256K = "ES256K"
)

// ErrUnsupportedAlgorithm is returned for unknown algorithm or curve
// combinations.
var ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")

// ErrInvalidKey is returned when key material is malformed or of the wrong
// kind for the requested operation.
var ErrInvalidKey = errors.New("invalid key")

// GeneratePrivateKey mints a fresh private key for the given algorithm. The
// returned JWK carries alg and a thumbprint-derived kid.
func GeneratePrivateKey(alg AlgorithmID) (*JWK, error) {
	var (
		jwk *JWK
		err error
	)

	switch alg {
	case AlgorithmEd25519:
		jwk, err = generateEd25519Key()
	case AlgorithmSecp256k1:
		jwk, err = generateSecp256k1Key()
	default:
		return nil, fmt.Errorf("crypto: %w: %q", ErrUnsupportedAlgorithm, alg)
	}
	if err != nil {
		return nil, err
	}

	kid, err := jwk.Public().Thumbprint()
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to compute kid: %w", err)
	}
	jwk.Kid = kid

	return jwk, nil
}

// DerivePublicKey returns the public JWK corresponding to the given private
// key.
func DerivePublicKey(priv *JWK) (*JWK, error) {
	if !priv.IsPrivate() {
		return nil, fmt.Errorf("crypto: %w: key has no private material", ErrInvalidKey)
	}

	switch {
	case priv.Kty == KeyTypeOKP && priv.Crv == CurveEd25519:
		return deriveEd25519PublicKey(priv)
	case priv.Kty == KeyTypeEC && priv.Crv == CurveSecp256k1:
		return deriveSecp256k1PublicKey(priv)
	default:
		return nil, fmt.Errorf("crypto: %w: kty %q crv %q", ErrUnsupportedAlgorithm, priv.Kty, priv.Crv)
	}
}

// Sign signs message with the given private key. Ed25519 signs the raw
// message; secp256k1 signs its SHA-256 digest and returns a fixed-width
// 64-byte R||S signature.
func Sign(priv *JWK, message []byte) ([]byte, error) {
	if !priv.IsPrivate() {
		return nil, fmt.Errorf("crypto: %w: signing requires a private key", ErrInvalidKey)
	}

	switch {
	case priv.Kty == KeyTypeOKP && priv.Crv == CurveEd25519:
		return signEd25519(priv, message)
	case priv.Kty == KeyTypeEC && priv.Crv == CurveSecp256k1:
		return signSecp256k1(priv, message)
	default:
		return nil, fmt.Errorf("crypto: %w: kty %q crv %q", ErrUnsupportedAlgorithm, priv.Kty, priv.Crv)
	}
}

// Verify checks signature over message against the given public key.
func Verify(pub *JWK, message, signature []byte) (bool, error) {
	if pub == nil {
		return false, fmt.Errorf("crypto: %w: nil public key", ErrInvalidKey)
	}

	switch {
	case pub.Kty == KeyTypeOKP && pub.Crv == CurveEd25519:
		return verifyEd25519(pub, message, signature)
	case pub.Kty == KeyTypeEC && pub.Crv == CurveSecp256k1:
		return verifySecp256k1(pub, message, signature)
	default:
		return false, fmt.Errorf("crypto: %w: kty %q crv %q", ErrUnsupportedAlgorithm, pub.Kty, pub.Crv)
	}
}

// PublicKeyToBytes serializes a public JWK to its raw wire form: 32 bytes
// for Ed25519, the 65-byte uncompressed point for secp256k1.
func PublicKeyToBytes(pub *JWK) ([]byte, error) {
	if pub == nil || pub.IsPrivate() {
		return nil, fmt.Errorf("crypto: %w: expected a public key", ErrInvalidKey)
	}

	switch {
	case pub.Kty == KeyTypeOKP && pub.Crv == CurveEd25519:
		return ed25519PublicKeyBytes(pub)
	case pub.Kty == KeyTypeEC && pub.Crv == CurveSecp256k1:
		return secp256k1PublicKeyBytes(pub)
	default:
		return nil, fmt.Errorf("crypto: %w: kty %q crv %q", ErrUnsupportedAlgorithm, pub.Kty, pub.Crv)
	}
}

// PublicKeyFromBytes is the inverse of PublicKeyToBytes. secp256k1 accepts
// both the 33-byte compressed and 65-byte uncompressed forms.
func PublicKeyFromBytes(alg AlgorithmID, b []byte) (*JWK, error) {
	switch alg {
	case AlgorithmEd25519:
		return ed25519PublicKeyFromBytes(b)
	case AlgorithmSecp256k1:
		return secp256k1PublicKeyFromBytes(b)
	default:
		return nil, fmt.Errorf("crypto: %w: %q", ErrUnsupportedAlgorithm, alg)
	}
}
