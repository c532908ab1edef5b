package didion

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-did-sdk/did/common/canonical"
	"github.com/pilacorp/go-did-sdk/did/common/crypto"
	"github.com/pilacorp/go-did-sdk/did/common/keymanager"
)

func TestNewCreateOperation(t *testing.T) {
	km := keymanager.NewInMemoryKeyManager()

	op, aliases, err := NewCreateOperation(km, CreateOptions{
		Services: []Service{{
			ID:              "agent",
			Type:            "DecentralizedWebNode",
			ServiceEndpoint: "https://dwn.example.com",
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, OperationTypeCreate, op.Type)
	require.NotNil(t, op.SuffixData)
	require.NotNil(t, op.Delta)
	assert.NotEmpty(t, aliases.Verification)
	assert.NotEmpty(t, aliases.Update)
	assert.NotEmpty(t, aliases.Recovery)

	// The suffix data commits to the delta.
	deltaHash, err := canonical.Multihash(op.Delta)
	require.NoError(t, err)
	assert.Equal(t, deltaHash, op.SuffixData.DeltaHash)

	// The recovery commitment opens with the recovery key's reveal value.
	recoveryKey, err := km.GetPublicKey(aliases.Recovery)
	require.NoError(t, err)
	reveal, err := canonical.Reveal(recoveryKey)
	require.NoError(t, err)
	matches, err := canonical.CommitmentMatchesReveal(op.SuffixData.RecoveryCommitment, reveal)
	require.NoError(t, err)
	assert.True(t, matches)

	// The initial document travels in a single replace patch.
	require.Len(t, op.Delta.Patches, 1)
	patch := op.Delta.Patches[0]
	assert.Equal(t, ActionReplace, patch.Action)
	require.NotNil(t, patch.Document)
	require.Len(t, patch.Document.PublicKeys, 1)
	assert.Equal(t, DefaultVerificationMethodID, patch.Document.PublicKeys[0].ID)
	assert.Equal(t, VerificationKeyType, patch.Document.PublicKeys[0].Type)
	require.Len(t, patch.Document.Services, 1)
}

func TestNewCreateOperationValidatesKeyID(t *testing.T) {
	km := keymanager.NewInMemoryKeyManager()

	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{name: "valid id", id: "key-1"},
		{name: "valid with underscore", id: "signing_key_2024"},
		{name: "fifty characters", id: strings.Repeat("a", 50)},
		{name: "fifty-one characters", id: strings.Repeat("a", 51), wantErr: true},
		{name: "hash prefix", id: "#key-1", wantErr: true},
		{name: "spaces", id: "key 1", wantErr: true},
		{name: "unicode", id: "kéy", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewCreateOperation(km, CreateOptions{VerificationMethodID: tt.id})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKeyID)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIdentifierDeterminism(t *testing.T) {
	km := keymanager.NewInMemoryKeyManager()

	op, _, err := NewCreateOperation(km, CreateOptions{})
	require.NoError(t, err)

	// Identical suffix data always yields the identical short-form DID.
	first, err := ShortFormDID(op.SuffixData)
	require.NoError(t, err)
	second, err := ShortFormDID(op.SuffixData)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(first, "did:ion:"))

	// A different recovery commitment yields a different short-form DID.
	other := &SuffixData{
		DeltaHash:          op.SuffixData.DeltaHash,
		RecoveryCommitment: op.SuffixData.RecoveryCommitment + "x",
	}
	different, err := ShortFormDID(other)
	require.NoError(t, err)
	assert.NotEqual(t, first, different)
}

func TestLongFormDIDEmbedsInitialState(t *testing.T) {
	km := keymanager.NewInMemoryKeyManager()

	op, _, err := NewCreateOperation(km, CreateOptions{})
	require.NoError(t, err)

	shortForm, err := ShortFormDID(op.SuffixData)
	require.NoError(t, err)
	longForm, err := LongFormDID(op.SuffixData, op.Delta)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(longForm, shortForm+":"))

	// The embedded initial state decodes back to the operation state.
	encoded := strings.TrimPrefix(longForm, shortForm+":")
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	require.NoError(t, err)

	var state struct {
		SuffixData *SuffixData `json:"suffixData"`
		Delta      *Delta      `json:"delta"`
	}
	require.NoError(t, json.Unmarshal(raw, &state))
	assert.Equal(t, op.SuffixData.DeltaHash, state.SuffixData.DeltaHash)
	assert.Equal(t, op.Delta.UpdateCommitment, state.Delta.UpdateCommitment)
}

func TestNewUpdateOperation(t *testing.T) {
	km := keymanager.NewInMemoryKeyManager()

	createOp, aliases, err := NewCreateOperation(km, CreateOptions{})
	require.NoError(t, err)

	suffix := strings.TrimPrefix(mustShortForm(t, createOp.SuffixData), "did:ion:")
	oldUpdateKey, err := km.GetPublicKey(aliases.Update)
	require.NoError(t, err)

	patch, err := AddServicesPatch(Service{
		ID:              "agent",
		Type:            "DecentralizedWebNode",
		ServiceEndpoint: "https://dwn.example.com",
	})
	require.NoError(t, err)

	op, newAlias, err := NewUpdateOperation(km, suffix, aliases.Update, []Patch{patch})
	require.NoError(t, err)

	assert.Equal(t, OperationTypeUpdate, op.Type)
	assert.Equal(t, suffix, op.DidSuffix)
	assert.NotEqual(t, aliases.Update, newAlias, "update key must rotate")

	// The reveal value opens the previous operation's commitment.
	expectedReveal, err := canonical.Reveal(oldUpdateKey)
	require.NoError(t, err)
	assert.Equal(t, expectedReveal, op.RevealValue)

	// The new commitment chains to the rotated key.
	newKey, err := km.GetPublicKey(newAlias)
	require.NoError(t, err)
	newCommitment, _, err := canonical.Commitment(newKey)
	require.NoError(t, err)
	assert.Equal(t, newCommitment, op.Delta.UpdateCommitment)

	// The signed data is a compact JWS over the old key and delta hash,
	// verifiable with the old update key.
	parts := strings.Split(op.SignedData, ".")
	require.Len(t, parts, 3)

	header, err := base64.RawURLEncoding.DecodeString(parts[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"alg":"ES256K"}`, string(header))

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	var signedData UpdateSignedData
	require.NoError(t, json.Unmarshal(payload, &signedData))
	deltaHash, err := canonical.Multihash(op.Delta)
	require.NoError(t, err)
	assert.Equal(t, deltaHash, signedData.DeltaHash)
	assert.Equal(t, oldUpdateKey.X, signedData.UpdateKey.X)

	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	require.NoError(t, err)
	valid, err := crypto.Verify(oldUpdateKey, []byte(parts[0]+"."+parts[1]), sig)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestNewUpdateOperationRequiresKnownAlias(t *testing.T) {
	km := keymanager.NewInMemoryKeyManager()

	patch, err := RemoveServicesPatch("agent")
	require.NoError(t, err)

	_, _, err = NewUpdateOperation(km, "EiDsuffix", "missing-alias", []Patch{patch})
	assert.ErrorIs(t, err, keymanager.ErrAliasNotFound)
}

func TestPatchConstructors(t *testing.T) {
	_, err := AddPublicKeysPatch()
	assert.Error(t, err, "empty add-public-keys patch must be rejected")

	_, err = RemovePublicKeysPatch("bad id!")
	assert.ErrorIs(t, err, ErrInvalidKeyID)

	_, err = AddServicesPatch()
	assert.Error(t, err, "empty add-services patch must be rejected")

	patch, err := RemovePublicKeysPatch("key-1", "key-2")
	require.NoError(t, err)
	assert.Equal(t, ActionRemovePublicKeys, patch.Action)
	assert.Equal(t, []string{"key-1", "key-2"}, patch.IDs)
}

func mustShortForm(t *testing.T, suffixData *SuffixData) string {
	t.Helper()
	shortForm, err := ShortFormDID(suffixData)
	require.NoError(t, err)
	return shortForm
}
