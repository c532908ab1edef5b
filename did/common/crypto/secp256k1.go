package crypto

import (
	stdcrypto "crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const (
	secp256k1CoordinateSize      = 32
	secp256k1CompressedKeySize   = 33
	secp256k1UncompressedKeySize = 65
)

func generateSecp256k1Key() (*JWK, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("secp256k1: failed to generate key: %v", err)
	}

	jwk := secp256k1JWKFromPublicKey(priv.PubKey())
	jwk.D = base64.RawURLEncoding.EncodeToString(priv.Serialize())

	return jwk, nil
}

func secp256k1PrivateKey(priv *JWK) (*secp256k1.PrivateKey, error) {
	d, err := base64.RawURLEncoding.DecodeString(priv.D)
	if err != nil {
		return nil, fmt.Errorf("secp256k1: invalid d member: %w", err)
	}
	if len(d) != secp256k1CoordinateSize {
		return nil, fmt.Errorf("secp256k1: %w: private scalar must be %d bytes, got %d",
			ErrInvalidKey, secp256k1CoordinateSize, len(d))
	}

	return secp256k1.PrivKeyFromBytes(d), nil
}

func deriveSecp256k1PublicKey(priv *JWK) (*JWK, error) {
	key, err := secp256k1PrivateKey(priv)
	if err != nil {
		return nil, err
	}

	pub := secp256k1JWKFromPublicKey(key.PubKey())
	pub.Kid = priv.Kid

	return pub, nil
}

// signSecp256k1 hashes the message with SHA-256 and produces a fixed-width
// 64-byte R||S signature.
func signSecp256k1(priv *JWK, message []byte) ([]byte, error) {
	key, err := secp256k1PrivateKey(priv)
	if err != nil {
		return nil, err
	}

	hasher := stdcrypto.SHA256.New()
	if _, err := hasher.Write(message); err != nil {
		return nil, fmt.Errorf("secp256k1: hash error: %w", err)
	}
	hashed := hasher.Sum(nil)

	r, s, err := ecdsa.Sign(rand.Reader, key.ToECDSA(), hashed)
	if err != nil {
		return nil, fmt.Errorf("secp256k1: sign error: %w", err)
	}

	// Pad r and s to fixed length
	signature := make([]byte, 2*secp256k1CoordinateSize)
	r.FillBytes(signature[:secp256k1CoordinateSize])
	s.FillBytes(signature[secp256k1CoordinateSize:])

	return signature, nil
}

func verifySecp256k1(pub *JWK, message, signature []byte) (bool, error) {
	key, err := secp256k1ECDSAPublicKey(pub)
	if err != nil {
		return false, err
	}
	if len(signature) != 2*secp256k1CoordinateSize {
		return false, nil
	}

	hasher := stdcrypto.SHA256.New()
	if _, err := hasher.Write(message); err != nil {
		return false, fmt.Errorf("secp256k1: hash error: %w", err)
	}
	hashed := hasher.Sum(nil)

	r := new(big.Int).SetBytes(signature[:secp256k1CoordinateSize])
	s := new(big.Int).SetBytes(signature[secp256k1CoordinateSize:])
	if r.Sign() == 0 || s.Sign() == 0 {
		return false, nil
	}

	return ecdsa.Verify(key, hashed, r, s), nil
}

func secp256k1PublicKeyBytes(pub *JWK) ([]byte, error) {
	key, err := secp256k1ParseJWK(pub)
	if err != nil {
		return nil, err
	}

	return key.SerializeUncompressed(), nil
}

func secp256k1PublicKeyFromBytes(b []byte) (*JWK, error) {
	key, err := btcec.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("secp256k1: %w: %v", ErrInvalidKey, err)
	}

	return secp256k1JWKFromPublicKey(key), nil
}

// CompressPublicKey converts a 65-byte uncompressed secp256k1 point into the
// 33-byte compressed form with the even/odd-Y prefix.
func CompressPublicKey(uncompressed []byte) ([]byte, error) {
	if len(uncompressed) != secp256k1UncompressedKeySize {
		return nil, fmt.Errorf("secp256k1: %w: uncompressed point must be %d bytes, got %d",
			ErrInvalidKey, secp256k1UncompressedKeySize, len(uncompressed))
	}

	key, err := btcec.ParsePubKey(uncompressed)
	if err != nil {
		return nil, fmt.Errorf("secp256k1: %w: %v", ErrInvalidKey, err)
	}

	return key.SerializeCompressed(), nil
}

// InflatePublicKey converts a 33-byte compressed secp256k1 point into the
// 65-byte uncompressed form.
func InflatePublicKey(compressed []byte) ([]byte, error) {
	if len(compressed) != secp256k1CompressedKeySize {
		return nil, fmt.Errorf("secp256k1: %w: compressed point must be %d bytes, got %d",
			ErrInvalidKey, secp256k1CompressedKeySize, len(compressed))
	}

	key, err := btcec.ParsePubKey(compressed)
	if err != nil {
		return nil, fmt.Errorf("secp256k1: %w: %v", ErrInvalidKey, err)
	}

	return key.SerializeUncompressed(), nil
}

func secp256k1JWKFromPublicKey(key *btcec.PublicKey) *JWK {
	pub := key.ToECDSA()

	x := make([]byte, secp256k1CoordinateSize)
	y := make([]byte, secp256k1CoordinateSize)
	pub.X.FillBytes(x)
	pub.Y.FillBytes(y)

	return &JWK{
		Kty: KeyTypeEC,
		Crv: CurveSecp256k1,
		X:   base64.RawURLEncoding.EncodeToString(x),
		Y:   base64.RawURLEncoding.EncodeToString(y),
		Alg: algES256K,
	}
}

func secp256k1ParseJWK(pub *JWK) (*btcec.PublicKey, error) {
	key, err := secp256k1ECDSAPublicKey(pub)
	if err != nil {
		return nil, err
	}

	uncompressed := make([]byte, 0, secp256k1UncompressedKeySize)
	uncompressed = append(uncompressed, 0x04)

	x := make([]byte, secp256k1CoordinateSize)
	y := make([]byte, secp256k1CoordinateSize)
	key.X.FillBytes(x)
	key.Y.FillBytes(y)
	uncompressed = append(uncompressed, x...)
	uncompressed = append(uncompressed, y...)

	parsed, err := btcec.ParsePubKey(uncompressed)
	if err != nil {
		return nil, fmt.Errorf("secp256k1: %w: %v", ErrInvalidKey, err)
	}

	return parsed, nil
}

func secp256k1ECDSAPublicKey(pub *JWK) (*ecdsa.PublicKey, error) {
	xBytes, err := base64.RawURLEncoding.DecodeString(pub.X)
	if err != nil {
		return nil, fmt.Errorf("secp256k1: invalid x member: %w", err)
	}
	yBytes, err := base64.RawURLEncoding.DecodeString(pub.Y)
	if err != nil {
		return nil, fmt.Errorf("secp256k1: invalid y member: %w", err)
	}
	if len(xBytes) == 0 || len(yBytes) == 0 {
		return nil, fmt.Errorf("secp256k1: %w: missing coordinates", ErrInvalidKey)
	}

	return &ecdsa.PublicKey{
		Curve: btcec.S256(),
		X:     new(big.Int).SetBytes(xBytes),
		Y:     new(big.Int).SetBytes(yBytes),
	}, nil
}
