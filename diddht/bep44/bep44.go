// Package bep44 implements the BEP44 mutable-record scheme used to publish
// DID documents on the BitTorrent DHT: ed25519-signed payloads with a
// sequence number, plus the relay wire encoding.
package bep44

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pilacorp/go-did-sdk/did/common/crypto"
)

const (
	// PublicKeySize is the required length of the record's public key.
	PublicKeySize = ed25519.PublicKeySize
	// SignatureSize is the required length of the record's signature.
	SignatureSize = ed25519.SignatureSize
	// MaxVSize is the BEP44 ceiling on the bencoded payload length.
	MaxVSize = 1000
	// wireHeaderSize is sig plus the big-endian seq on the relay wire.
	wireHeaderSize = SignatureSize + 8
)

var (
	// ErrValueTooLarge is returned when the bencoded payload exceeds the
	// BEP44 1000-byte limit.
	ErrValueTooLarge = errors.New("bep44: bencoded value exceeds 1000 bytes")

	// ErrMalformedMessage is returned for records that violate the BEP44
	// size invariants or truncated wire bodies.
	ErrMalformedMessage = errors.New("bep44: malformed message")
)

// Message is a signed mutable DHT record. It is created fresh for every
// publish and never mutated after signing.
type Message struct {
	// V is the payload, 1-1000 bytes once bencoded.
	V []byte
	// K is the 32-byte ed25519 public key the record lives under.
	K []byte
	// Sig is the 64-byte ed25519 signature over the signable buffer.
	Sig []byte
	// Seq is the record sequence number. The DHT only accepts a record if
	// its seq is at least as high as the stored one.
	Seq int64
}

// Signable builds the exact byte string BEP44 signs:
//
//	"3:seqi" + seq + "e1:v" + len(v) + ":" + v
//
// the bencoded seq and v entries of the record dictionary, concatenated.
func Signable(seq int64, v []byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "3:seqi%de1:v%d:", seq, len(v))
	buf.Write(v)

	return buf.Bytes()
}

// bencodedLen is the length of "<len>:" + v, the bencoding of a byte string.
func bencodedLen(v []byte) int {
	return len(fmt.Sprintf("%d:", len(v))) + len(v)
}

// Sign builds and signs a mutable record with the given ed25519 private key.
func Sign(privateJwk *crypto.JWK, seq int64, v []byte) (*Message, error) {
	if privateJwk == nil || privateJwk.Kty != crypto.KeyTypeOKP || privateJwk.Crv != crypto.CurveEd25519 {
		return nil, fmt.Errorf("bep44: %w: records require an Ed25519 key", crypto.ErrInvalidKey)
	}
	if !privateJwk.IsPrivate() {
		return nil, fmt.Errorf("bep44: %w: signing requires a private key", crypto.ErrInvalidKey)
	}

	pub, err := crypto.DerivePublicKey(privateJwk)
	if err != nil {
		return nil, fmt.Errorf("bep44: failed to derive public key: %w", err)
	}
	pubBytes, err := crypto.PublicKeyToBytes(pub)
	if err != nil {
		return nil, fmt.Errorf("bep44: failed to serialize public key: %w", err)
	}

	sign := func(payload []byte) ([]byte, error) {
		return crypto.Sign(privateJwk, payload)
	}

	return SignWithSigner(sign, pubBytes, seq, v)
}

// SignWithSigner builds a mutable record using an external signing function,
// e.g. a key manager that never releases private material. The signer must
// produce an ed25519 signature matching publicKey.
func SignWithSigner(sign func([]byte) ([]byte, error), publicKey []byte, seq int64, v []byte) (*Message, error) {
	if len(publicKey) != PublicKeySize {
		return nil, fmt.Errorf("bep44: %w: public key must be %d bytes, got %d",
			crypto.ErrInvalidKey, PublicKeySize, len(publicKey))
	}
	if len(v) == 0 {
		return nil, fmt.Errorf("%w: empty value", ErrMalformedMessage)
	}
	if bencodedLen(v) > MaxVSize {
		return nil, fmt.Errorf("%w: %d bytes bencoded", ErrValueTooLarge, bencodedLen(v))
	}

	sig, err := sign(Signable(seq, v))
	if err != nil {
		return nil, fmt.Errorf("bep44: failed to sign record: %w", err)
	}
	if len(sig) != SignatureSize {
		return nil, fmt.Errorf("%w: signature must be %d bytes, got %d", ErrMalformedMessage, SignatureSize, len(sig))
	}

	return &Message{
		V:   bytes.Clone(v),
		K:   bytes.Clone(publicKey),
		Sig: sig,
		Seq: seq,
	}, nil
}

// Verify reconstructs the signable buffer and checks the record signature
// against K. Any mutation of V, Sig or Seq makes verification fail.
func (m *Message) Verify() error {
	if m == nil {
		return fmt.Errorf("%w: nil message", ErrMalformedMessage)
	}
	if len(m.K) != PublicKeySize {
		return fmt.Errorf("%w: public key must be %d bytes, got %d", ErrMalformedMessage, PublicKeySize, len(m.K))
	}
	if len(m.Sig) != SignatureSize {
		return fmt.Errorf("%w: signature must be %d bytes, got %d", ErrMalformedMessage, SignatureSize, len(m.Sig))
	}
	if len(m.V) == 0 {
		return fmt.Errorf("%w: empty value", ErrMalformedMessage)
	}

	if !ed25519.Verify(ed25519.PublicKey(m.K), Signable(m.Seq, m.V), m.Sig) {
		return errors.New("bep44: signature verification failed")
	}

	return nil
}

// Encode serializes the record for relay transport:
//
//	sig (64 bytes) || seq (8 bytes, big-endian) || v
func (m *Message) Encode() ([]byte, error) {
	if len(m.Sig) != SignatureSize {
		return nil, fmt.Errorf("%w: signature must be %d bytes, got %d", ErrMalformedMessage, SignatureSize, len(m.Sig))
	}
	if len(m.V) == 0 {
		return nil, fmt.Errorf("%w: empty value", ErrMalformedMessage)
	}

	body := make([]byte, 0, wireHeaderSize+len(m.V))
	body = append(body, m.Sig...)
	body = binary.BigEndian.AppendUint64(body, uint64(m.Seq))
	body = append(body, m.V...)

	return body, nil
}

// Decode parses a relay transport body into a record living under the given
// public key. The body must carry at least the 64-byte signature and the
// 8-byte sequence number.
func Decode(body, publicKey []byte) (*Message, error) {
	if len(body) < wireHeaderSize {
		return nil, fmt.Errorf("%w: body must be at least %d bytes, got %d", ErrMalformedMessage, wireHeaderSize, len(body))
	}
	if len(publicKey) != PublicKeySize {
		return nil, fmt.Errorf("%w: public key must be %d bytes, got %d", ErrMalformedMessage, PublicKeySize, len(publicKey))
	}

	return &Message{
		Sig: bytes.Clone(body[:SignatureSize]),
		Seq: int64(binary.BigEndian.Uint64(body[SignatureSize:wireHeaderSize])),
		V:   bytes.Clone(body[wireHeaderSize:]),
		K:   bytes.Clone(publicKey),
	}, nil
}
