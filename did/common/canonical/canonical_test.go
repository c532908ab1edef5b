package canonical

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/pilacorp/go-did-sdk/did/common/crypto"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{
			name:  "object keys are sorted",
			value: map[string]interface{}{"b": 2, "a": 1, "c": 3},
			want:  `{"a":1,"b":2,"c":3}`,
		},
		{
			name: "nested objects are sorted",
			value: map[string]interface{}{
				"z": map[string]interface{}{"y": "x", "a": "b"},
				"a": []interface{}{1, 2},
			},
			want: `{"a":[1,2],"z":{"a":"b","y":"x"}}`,
		},
		{
			name: "struct field order is irrelevant",
			value: struct {
				Zeta  string `json:"zeta"`
				Alpha string `json:"alpha"`
			}{Zeta: "z", Alpha: "a"},
			want: `{"alpha":"a","zeta":"z"}`,
		},
		{
			name:  "no insignificant whitespace",
			value: map[string]interface{}{"key": "value with spaces"},
			want:  `{"key":"value with spaces"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonicalize(tt.value)
			if err != nil {
				t.Fatalf("Canonicalize() failed: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Canonicalize() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCommitment(t *testing.T) {
	priv, err := crypto.GeneratePrivateKey(crypto.AlgorithmSecp256k1)
	if err != nil {
		t.Fatalf("GeneratePrivateKey() failed: %v", err)
	}
	pub, err := crypto.DerivePublicKey(priv)
	if err != nil {
		t.Fatalf("DerivePublicKey() failed: %v", err)
	}

	commitment, reveal, err := Commitment(pub)
	if err != nil {
		t.Fatalf("Commitment() failed: %v", err)
	}

	// Pure function of its input.
	commitment2, reveal2, err := Commitment(pub)
	if err != nil {
		t.Fatalf("Commitment() failed: %v", err)
	}
	if commitment != commitment2 || reveal != reveal2 {
		t.Error("Commitment() is not deterministic")
	}
	if commitment == reveal {
		t.Error("commitment equals reveal; double hash missing")
	}

	// The reveal must open the commitment.
	matches, err := CommitmentMatchesReveal(commitment, reveal)
	if err != nil {
		t.Fatalf("CommitmentMatchesReveal() failed: %v", err)
	}
	if !matches {
		t.Error("reveal does not open its own commitment")
	}

	// Distinct keys produce distinct commitments.
	otherPriv, err := crypto.GeneratePrivateKey(crypto.AlgorithmSecp256k1)
	if err != nil {
		t.Fatalf("GeneratePrivateKey() failed: %v", err)
	}
	otherPub, err := crypto.DerivePublicKey(otherPriv)
	if err != nil {
		t.Fatalf("DerivePublicKey() failed: %v", err)
	}
	otherCommitment, _, err := Commitment(otherPub)
	if err != nil {
		t.Fatalf("Commitment() failed: %v", err)
	}
	if commitment == otherCommitment {
		t.Error("distinct keys produced the same commitment")
	}
}

func TestCommitmentReferenceVector(t *testing.T) {
	// Fixed update-key JWK carrying only the RFC 7638 members, so its
	// canonical form is pinned exactly.
	jwk := &crypto.JWK{
		Kty: "EC",
		Crv: "secp256k1",
		X:   "5s3-bKjD1Eu_3NJu8pk7qIdOPl1GBzU_V8aR3xiacoM",
		Y:   "v0-Q5H3vcfAfQ4zsebJQvMrIg3pcsaJzRvuIYZ3_UOY",
	}
	const canonicalForm = `{"crv":"secp256k1","kty":"EC","x":"5s3-bKjD1Eu_3NJu8pk7qIdOPl1GBzU_V8aR3xiacoM","y":"v0-Q5H3vcfAfQ4zsebJQvMrIg3pcsaJzRvuIYZ3_UOY"}`

	got, err := Canonicalize(jwk)
	if err != nil {
		t.Fatalf("Canonicalize() failed: %v", err)
	}
	if string(got) != canonicalForm {
		t.Fatalf("Canonicalize() = %s, want %s", got, canonicalForm)
	}

	// Reference values built from the pinned canonical form, byte by byte:
	//
	//	reveal     = b64url(0x12 0x20 || sha256(canonical JWK))
	//	commitment = b64url(0x12 0x20 || sha256(reveal multihash bytes))
	//
	// independent of the production hashing pipeline.
	digest := sha256.Sum256([]byte(canonicalForm))
	revealBytes := append([]byte{0x12, 0x20}, digest[:]...)
	wantReveal := base64.RawURLEncoding.EncodeToString(revealBytes)

	digest = sha256.Sum256(revealBytes)
	wantCommitment := base64.RawURLEncoding.EncodeToString(append([]byte{0x12, 0x20}, digest[:]...))

	commitment, reveal, err := Commitment(jwk)
	if err != nil {
		t.Fatalf("Commitment() failed: %v", err)
	}
	if reveal != wantReveal {
		t.Errorf("reveal = %q, want %q", reveal, wantReveal)
	}
	if commitment != wantCommitment {
		t.Errorf("commitment = %q, want %q", commitment, wantCommitment)
	}

	single, err := Reveal(jwk)
	if err != nil {
		t.Fatalf("Reveal() failed: %v", err)
	}
	if single != wantReveal {
		t.Errorf("Reveal() = %q, want %q", single, wantReveal)
	}
}

func TestCommitmentRejectsPrivateKey(t *testing.T) {
	priv, err := crypto.GeneratePrivateKey(crypto.AlgorithmSecp256k1)
	if err != nil {
		t.Fatalf("GeneratePrivateKey() failed: %v", err)
	}

	if _, _, err := Commitment(priv); !errors.Is(err, ErrPrivateKeyInput) {
		t.Errorf("Commitment(private key) error = %v, want ErrPrivateKeyInput", err)
	}
	if _, err := Reveal(priv); !errors.Is(err, ErrPrivateKeyInput) {
		t.Errorf("Reveal(private key) error = %v, want ErrPrivateKeyInput", err)
	}
}

func TestMultihashEncoding(t *testing.T) {
	// Sidetree hashes are sha2-256 multihashes: 0x12 code, 0x20 length, 32
	// digest bytes, base64url encoded without padding.
	encoded, err := Multihash(map[string]interface{}{"hello": "world"})
	if err != nil {
		t.Fatalf("Multihash() failed: %v", err)
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("Multihash() output is not base64url: %v", err)
	}
	if len(raw) != 34 {
		t.Fatalf("multihash is %d bytes, want 34", len(raw))
	}
	if raw[0] != 0x12 || raw[1] != 0x20 {
		t.Errorf("multihash prefix = %x %x, want 12 20", raw[0], raw[1])
	}

	// Deterministic across calls and input orderings.
	again, err := Multihash(map[string]interface{}{"hello": "world"})
	if err != nil {
		t.Fatalf("Multihash() failed: %v", err)
	}
	if encoded != again {
		t.Error("Multihash() is not deterministic")
	}
}
