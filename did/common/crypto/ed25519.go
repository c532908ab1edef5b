package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

func generateEd25519Key() (*JWK, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("ed25519: failed to generate key: %v", err)
	}

	return &JWK{
		Kty: KeyTypeOKP,
		Crv: CurveEd25519,
		X:   base64.RawURLEncoding.EncodeToString(pub),
		D:   base64.RawURLEncoding.EncodeToString(priv.Seed()),
		Alg: algEdDSA,
	}, nil
}

func ed25519PrivateKey(priv *JWK) (ed25519.PrivateKey, error) {
	seed, err := base64.RawURLEncoding.DecodeString(priv.D)
	if err != nil {
		return nil, fmt.Errorf("ed25519: invalid d member: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("ed25519: %w: seed must be %d bytes, got %d", ErrInvalidKey, ed25519.SeedSize, len(seed))
	}

	return ed25519.NewKeyFromSeed(seed), nil
}

func deriveEd25519PublicKey(priv *JWK) (*JWK, error) {
	key, err := ed25519PrivateKey(priv)
	if err != nil {
		return nil, err
	}

	pub := priv.Public()
	pub.X = base64.RawURLEncoding.EncodeToString(key.Public().(ed25519.PublicKey))

	return pub, nil
}

func signEd25519(priv *JWK, message []byte) ([]byte, error) {
	key, err := ed25519PrivateKey(priv)
	if err != nil {
		return nil, err
	}

	return ed25519.Sign(key, message), nil
}

func verifyEd25519(pub *JWK, message, signature []byte) (bool, error) {
	raw, err := ed25519PublicKeyBytes(pub)
	if err != nil {
		return false, err
	}
	if len(signature) != ed25519.SignatureSize {
		return false, nil
	}

	return ed25519.Verify(ed25519.PublicKey(raw), message, signature), nil
}

func ed25519PublicKeyBytes(pub *JWK) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(pub.X)
	if err != nil {
		return nil, fmt.Errorf("ed25519: invalid x member: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("ed25519: %w: public key must be %d bytes, got %d", ErrInvalidKey, ed25519.PublicKeySize, len(raw))
	}

	return raw, nil
}

func ed25519PublicKeyFromBytes(b []byte) (*JWK, error) {
	if len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("ed25519: %w: public key must be %d bytes, got %d", ErrInvalidKey, ed25519.PublicKeySize, len(b))
	}

	return &JWK{
		Kty: KeyTypeOKP,
		Crv: CurveEd25519,
		X:   base64.RawURLEncoding.EncodeToString(b),
		Alg: algEdDSA,
	}, nil
}
