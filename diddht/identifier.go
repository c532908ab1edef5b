package diddht

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/tv42/zbase32"

	"github.com/pilacorp/go-did-sdk/did"
)

// MethodName is the DID method name this package implements.
const MethodName = "dht"

// ErrInvalidIdentifierSize is returned when a decoded method-specific id is
// not exactly a 32-byte ed25519 public key.
var ErrInvalidIdentifierSize = errors.New("diddht: identifier must decode to a 32-byte public key")

// IdentifierFromPublicKey derives the DID for an ed25519 identity key:
// "did:dht:" followed by the z-base-32 encoding of the key bytes.
func IdentifierFromPublicKey(publicKey []byte) (string, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return "", fmt.Errorf("%w: got %d bytes", ErrInvalidIdentifierSize, len(publicKey))
	}

	return "did:dht:" + zbase32.EncodeToString(publicKey), nil
}

// PublicKeyFromIdentifier decodes and validates the method-specific id of a
// did:dht identifier, returning the identity public key it encodes.
func PublicKeyFromIdentifier(uri string) ([]byte, error) {
	parsed, err := did.Parse(uri)
	if err != nil {
		return nil, err
	}
	if parsed.Method != MethodName {
		return nil, fmt.Errorf("%w: method %q is not %q", did.ErrInvalidDID, parsed.Method, MethodName)
	}

	return decodeSuffix(parsed.ID)
}

// decodeSuffix decodes a bare z-base-32 method-specific id.
func decodeSuffix(suffix string) ([]byte, error) {
	publicKey, err := zbase32.DecodeString(suffix)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid z-base-32 id: %v", did.ErrInvalidDID, err)
	}
	if len(publicKey) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidIdentifierSize, len(publicKey))
	}

	return publicKey, nil
}
