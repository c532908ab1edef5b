// Package canonical implements the deterministic JSON serialization (JSON
// Canonicalization Scheme, RFC 8785) and the double-hash commitment/reveal
// scheme used by the Sidetree protocol.
package canonical

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
	"github.com/multiformats/go-multihash"
)

// Canonicalize serializes value as canonical JSON: sorted object keys, no
// insignificant whitespace.
func Canonicalize(value interface{}) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("canonical: failed to marshal value: %w", err)
	}

	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonical: failed to canonicalize value: %w", err)
	}

	return canonical, nil
}

// Multihash canonicalizes value, hashes it with SHA-256 and wraps the digest
// in a multihash, base64url-encoded. This is the hash form Sidetree uses for
// delta hashes and DID suffixes.
func Multihash(value interface{}) (string, error) {
	canonical, err := Canonicalize(value)
	if err != nil {
		return "", err
	}

	mh, err := hashThenMultihash(canonical)
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(mh), nil
}

func hashThenMultihash(b []byte) ([]byte, error) {
	digest := sha256.Sum256(b)

	mh, err := multihash.Encode(digest[:], multihash.SHA2_256)
	if err != nil {
		return nil, fmt.Errorf("canonical: failed to encode multihash: %w", err)
	}

	return mh, nil
}
