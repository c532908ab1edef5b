package canonical

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/pilacorp/go-did-sdk/did/common/crypto"
)

// ErrPrivateKeyInput is returned when a commitment or reveal is requested
// over a JWK that carries private material. Commitments bind future public
// keys; computing one over a private key is a programming error.
var ErrPrivateKeyInput = errors.New("canonical: commitment input must be a public key")

// Commitment computes the Sidetree commitment/reveal pair for a public key:
//
//	reveal     = multihash(sha256(canonicalize(jwk)))
//	commitment = multihash(sha256(reveal))
//
// Both values are base64url-encoded.
func Commitment(publicJwk *crypto.JWK) (commitment, reveal string, err error) {
	if publicJwk == nil {
		return "", "", fmt.Errorf("canonical: nil public key")
	}
	if publicJwk.IsPrivate() {
		return "", "", ErrPrivateKeyInput
	}

	canonical, err := Canonicalize(publicJwk)
	if err != nil {
		return "", "", err
	}

	revealBytes, err := hashThenMultihash(canonical)
	if err != nil {
		return "", "", err
	}

	commitmentBytes, err := hashThenMultihash(revealBytes)
	if err != nil {
		return "", "", err
	}

	return base64.RawURLEncoding.EncodeToString(commitmentBytes),
		base64.RawURLEncoding.EncodeToString(revealBytes), nil
}

// Reveal computes only the reveal value for a public key, as disclosed in
// update operations to open the previous commitment.
func Reveal(publicJwk *crypto.JWK) (string, error) {
	_, reveal, err := Commitment(publicJwk)
	return reveal, err
}

// CommitmentMatchesReveal reports whether a disclosed reveal value opens the
// given commitment. Sidetree commits to the double hash, so the check needs
// no key material.
func CommitmentMatchesReveal(commitment, reveal string) (bool, error) {
	revealBytes, err := base64.RawURLEncoding.DecodeString(reveal)
	if err != nil {
		return false, fmt.Errorf("canonical: invalid reveal encoding: %w", err)
	}

	mh, err := hashThenMultihash(revealBytes)
	if err != nil {
		return false, err
	}

	return base64.RawURLEncoding.EncodeToString(mh) == commitment, nil
}
