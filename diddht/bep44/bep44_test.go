package bep44

import (
	"bytes"
	"errors"
	"testing"

	"github.com/pilacorp/go-did-sdk/did/common/crypto"
)

func TestSignableVector(t *testing.T) {
	// Concrete vector from BEP44: seq=1, v="hello".
	got := Signable(1, []byte("hello"))
	want := []byte("3:seqi1e1:v5:hello")
	if !bytes.Equal(got, want) {
		t.Errorf("Signable() = %q, want %q", got, want)
	}
}

func TestSignVerify(t *testing.T) {
	priv, err := crypto.GeneratePrivateKey(crypto.AlgorithmEd25519)
	if err != nil {
		t.Fatalf("GeneratePrivateKey() failed: %v", err)
	}

	msg, err := Sign(priv, 42, []byte("hello"))
	if err != nil {
		t.Fatalf("Sign() failed: %v", err)
	}
	if len(msg.K) != PublicKeySize {
		t.Errorf("K is %d bytes, want %d", len(msg.K), PublicKeySize)
	}
	if len(msg.Sig) != SignatureSize {
		t.Errorf("Sig is %d bytes, want %d", len(msg.Sig), SignatureSize)
	}
	if msg.Seq != 42 {
		t.Errorf("Seq = %d, want 42", msg.Seq)
	}

	if err := msg.Verify(); err != nil {
		t.Fatalf("Verify() failed on freshly signed message: %v", err)
	}
}

func TestVerifyDetectsAnyMutation(t *testing.T) {
	priv, err := crypto.GeneratePrivateKey(crypto.AlgorithmEd25519)
	if err != nil {
		t.Fatalf("GeneratePrivateKey() failed: %v", err)
	}

	fresh := func() *Message {
		msg, err := Sign(priv, 7, []byte("mutable record payload"))
		if err != nil {
			t.Fatalf("Sign() failed: %v", err)
		}
		return msg
	}

	tests := []struct {
		name   string
		mutate func(*Message)
	}{
		{"flip a payload byte", func(m *Message) { m.V[0] ^= 0x01 }},
		{"flip a signature byte", func(m *Message) { m.Sig[63] ^= 0x01 }},
		{"bump the sequence number", func(m *Message) { m.Seq++ }},
		{"swap the public key", func(m *Message) {
			other, err := crypto.GeneratePrivateKey(crypto.AlgorithmEd25519)
			if err != nil {
				t.Fatalf("GeneratePrivateKey() failed: %v", err)
			}
			pub, _ := crypto.DerivePublicKey(other)
			m.K, _ = crypto.PublicKeyToBytes(pub)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := fresh()
			tt.mutate(msg)
			if err := msg.Verify(); err == nil {
				t.Error("Verify() accepted a mutated message")
			}
		})
	}
}

func TestSignRejectsWrongKeyType(t *testing.T) {
	secp, err := crypto.GeneratePrivateKey(crypto.AlgorithmSecp256k1)
	if err != nil {
		t.Fatalf("GeneratePrivateKey() failed: %v", err)
	}
	if _, err := Sign(secp, 1, []byte("hello")); !errors.Is(err, crypto.ErrInvalidKey) {
		t.Errorf("Sign(secp256k1 key) error = %v, want ErrInvalidKey", err)
	}

	ed, err := crypto.GeneratePrivateKey(crypto.AlgorithmEd25519)
	if err != nil {
		t.Fatalf("GeneratePrivateKey() failed: %v", err)
	}
	if _, err := Sign(ed.Public(), 1, []byte("hello")); !errors.Is(err, crypto.ErrInvalidKey) {
		t.Errorf("Sign(public key) error = %v, want ErrInvalidKey", err)
	}
}

func TestSignRejectsOversizedValue(t *testing.T) {
	priv, err := crypto.GeneratePrivateKey(crypto.AlgorithmEd25519)
	if err != nil {
		t.Fatalf("GeneratePrivateKey() failed: %v", err)
	}

	// 996 payload bytes bencode to "996:" + payload = 1000 bytes: the limit.
	atLimit := bytes.Repeat([]byte("x"), 996)
	if _, err := Sign(priv, 1, atLimit); err != nil {
		t.Errorf("Sign() rejected a value at the bencoded limit: %v", err)
	}

	over := bytes.Repeat([]byte("x"), 997)
	if _, err := Sign(priv, 1, over); !errors.Is(err, ErrValueTooLarge) {
		t.Errorf("Sign() error = %v, want ErrValueTooLarge", err)
	}

	if _, err := Sign(priv, 1, nil); !errors.Is(err, ErrMalformedMessage) {
		t.Errorf("Sign(empty value) error = %v, want ErrMalformedMessage", err)
	}
}

func TestWireEncoding(t *testing.T) {
	priv, err := crypto.GeneratePrivateKey(crypto.AlgorithmEd25519)
	if err != nil {
		t.Fatalf("GeneratePrivateKey() failed: %v", err)
	}

	msg, err := Sign(priv, 1755900000, []byte("hello"))
	if err != nil {
		t.Fatalf("Sign() failed: %v", err)
	}

	wire, err := msg.Encode()
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	if len(wire) != SignatureSize+8+len(msg.V) {
		t.Fatalf("wire body is %d bytes, want %d", len(wire), SignatureSize+8+len(msg.V))
	}
	if !bytes.Equal(wire[:SignatureSize], msg.Sig) {
		t.Error("wire body does not start with the signature")
	}

	decoded, err := Decode(wire, msg.K)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if decoded.Seq != msg.Seq {
		t.Errorf("decoded Seq = %d, want %d", decoded.Seq, msg.Seq)
	}
	if !bytes.Equal(decoded.V, msg.V) {
		t.Error("decoded V differs from original")
	}
	if err := decoded.Verify(); err != nil {
		t.Errorf("decoded message does not verify: %v", err)
	}
}

func TestDecodeRejectsShortBody(t *testing.T) {
	key := make([]byte, PublicKeySize)
	if _, err := Decode(make([]byte, 71), key); !errors.Is(err, ErrMalformedMessage) {
		t.Errorf("Decode(71 bytes) error = %v, want ErrMalformedMessage", err)
	}
}
