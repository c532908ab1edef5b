package crypto

import (
	"bytes"
	"fmt"

	"github.com/multiformats/go-varint"
)

// Multicodec codes for the supported public key types, from the multicodec
// registry.
const (
	MulticodecEd25519PublicKey   uint64 = 0xed
	MulticodecSecp256k1PublicKey uint64 = 0xe7
)

// MulticodecTag returns the varint-encoded multicodec prefix for public keys
// of the given algorithm.
func MulticodecTag(alg AlgorithmID) ([]byte, error) {
	switch alg {
	case AlgorithmEd25519:
		return varint.ToUvarint(MulticodecEd25519PublicKey), nil
	case AlgorithmSecp256k1:
		return varint.ToUvarint(MulticodecSecp256k1PublicKey), nil
	default:
		return nil, fmt.Errorf("crypto: %w: %q", ErrUnsupportedAlgorithm, alg)
	}
}

// MulticodecEncode prefixes the raw public key bytes with the multicodec
// varint tag. secp256k1 keys use the 33-byte compressed form, per the
// multicodec registry.
func MulticodecEncode(pub *JWK) ([]byte, error) {
	raw, err := PublicKeyToBytes(pub)
	if err != nil {
		return nil, err
	}

	var alg AlgorithmID
	switch pub.Crv {
	case CurveEd25519:
		alg = AlgorithmEd25519
	case CurveSecp256k1:
		alg = AlgorithmSecp256k1
		raw, err = CompressPublicKey(raw)
		if err != nil {
			return nil, err
		}
	}

	tag, err := MulticodecTag(alg)
	if err != nil {
		return nil, err
	}

	return append(tag, raw...), nil
}

// MulticodecDecode parses multicodec-tagged public key bytes back into a
// JWK.
func MulticodecDecode(b []byte) (*JWK, error) {
	code, n, err := varint.FromUvarint(b)
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid multicodec prefix: %w", err)
	}

	raw := bytes.Clone(b[n:])
	switch code {
	case MulticodecEd25519PublicKey:
		return PublicKeyFromBytes(AlgorithmEd25519, raw)
	case MulticodecSecp256k1PublicKey:
		return PublicKeyFromBytes(AlgorithmSecp256k1, raw)
	default:
		return nil, fmt.Errorf("crypto: %w: multicodec 0x%x", ErrUnsupportedAlgorithm, code)
	}
}
