package didion

import (
	"encoding/base64"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pilacorp/go-did-sdk/did/common/canonical"
	"github.com/pilacorp/go-did-sdk/did/common/crypto"
	"github.com/pilacorp/go-did-sdk/did/common/keymanager"
)

// VerificationKeyType is the verification method type anchored for ION
// documents.
const VerificationKeyType = "EcdsaSecp256k1VerificationKey2019"

// DefaultVerificationMethodID is used when the caller does not name the
// initial verification key.
const DefaultVerificationMethodID = "key-1"

// CreateOptions parameterizes create-operation construction. Any key alias
// left empty is generated through the key manager.
type CreateOptions struct {
	// VerificationMethodID is the fragment id of the initial key. Must match
	// the Sidetree id rules; defaults to DefaultVerificationMethodID.
	VerificationMethodID string

	// VerificationKeyAlias, UpdateKeyAlias and RecoveryKeyAlias address
	// existing keys in the key manager. Empty aliases are minted fresh.
	VerificationKeyAlias string
	UpdateKeyAlias       string
	RecoveryKeyAlias     string

	// Purposes are the relationship lists the initial key joins. Defaults to
	// authentication and assertionMethod.
	Purposes []string

	// Services are the initial service endpoints, if any.
	Services []Service
}

// NewCreateOperation builds a Sidetree create operation: it generates any
// missing key, commits to the update and recovery keys, and wraps the
// initial document in a replace patch.
func NewCreateOperation(km keymanager.KeyManager, opts CreateOptions) (*CreateOperation, *KeyAliases, error) {
	vmID := opts.VerificationMethodID
	if vmID == "" {
		vmID = DefaultVerificationMethodID
	}
	if err := ValidateKeyID(vmID); err != nil {
		return nil, nil, err
	}

	purposes := opts.Purposes
	if len(purposes) == 0 {
		purposes = []string{"authentication", "assertionMethod"}
	}

	aliases := &KeyAliases{
		Verification: opts.VerificationKeyAlias,
		Update:       opts.UpdateKeyAlias,
		Recovery:     opts.RecoveryKeyAlias,
	}
	for _, alias := range []*string{&aliases.Verification, &aliases.Update, &aliases.Recovery} {
		if *alias != "" {
			continue
		}
		generated, err := km.GeneratePrivateKey(crypto.AlgorithmSecp256k1)
		if err != nil {
			return nil, nil, fmt.Errorf("didion: failed to generate key: %w", err)
		}
		*alias = generated
	}

	verificationKey, err := km.GetPublicKey(aliases.Verification)
	if err != nil {
		return nil, nil, fmt.Errorf("didion: failed to load verification key: %w", err)
	}
	updateKey, err := km.GetPublicKey(aliases.Update)
	if err != nil {
		return nil, nil, fmt.Errorf("didion: failed to load update key: %w", err)
	}
	recoveryKey, err := km.GetPublicKey(aliases.Recovery)
	if err != nil {
		return nil, nil, fmt.Errorf("didion: failed to load recovery key: %w", err)
	}

	updateCommitment, _, err := canonical.Commitment(updateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("didion: failed to commit to update key: %w", err)
	}
	recoveryCommitment, _, err := canonical.Commitment(recoveryKey)
	if err != nil {
		return nil, nil, fmt.Errorf("didion: failed to commit to recovery key: %w", err)
	}

	patch, err := ReplacePatch(DocumentState{
		PublicKeys: []PublicKey{{
			ID:           vmID,
			Type:         VerificationKeyType,
			PublicKeyJwk: verificationKey,
			Purposes:     purposes,
		}},
		Services: opts.Services,
	})
	if err != nil {
		return nil, nil, err
	}

	delta := &Delta{
		UpdateCommitment: updateCommitment,
		Patches:          []Patch{patch},
	}

	deltaHash, err := canonical.Multihash(delta)
	if err != nil {
		return nil, nil, fmt.Errorf("didion: failed to hash delta: %w", err)
	}

	op := &CreateOperation{
		Type: OperationTypeCreate,
		SuffixData: &SuffixData{
			DeltaHash:          deltaHash,
			RecoveryCommitment: recoveryCommitment,
		},
		Delta: delta,
	}

	return op, aliases, nil
}

// NewUpdateOperation builds a Sidetree update operation: it rotates the
// update key, reveals the previous one, and signs the new commitment chain
// link with the previous update key. The returned alias addresses the new
// update key for the next operation.
func NewUpdateOperation(km keymanager.KeyManager, didSuffix, updateKeyAlias string, patches []Patch) (*UpdateOperation, string, error) {
	if len(patches) == 0 {
		return nil, "", fmt.Errorf("didion: update operation requires at least one patch")
	}

	oldUpdateKey, err := km.GetPublicKey(updateKeyAlias)
	if err != nil {
		return nil, "", fmt.Errorf("didion: failed to load update key: %w", err)
	}

	revealValue, err := canonical.Reveal(oldUpdateKey)
	if err != nil {
		return nil, "", fmt.Errorf("didion: failed to compute reveal value: %w", err)
	}

	newUpdateKeyAlias, err := km.GeneratePrivateKey(crypto.AlgorithmSecp256k1)
	if err != nil {
		return nil, "", fmt.Errorf("didion: failed to rotate update key: %w", err)
	}
	newUpdateKey, err := km.GetPublicKey(newUpdateKeyAlias)
	if err != nil {
		return nil, "", fmt.Errorf("didion: failed to load rotated update key: %w", err)
	}

	newUpdateCommitment, _, err := canonical.Commitment(newUpdateKey)
	if err != nil {
		return nil, "", fmt.Errorf("didion: failed to commit to rotated update key: %w", err)
	}

	delta := &Delta{
		UpdateCommitment: newUpdateCommitment,
		Patches:          patches,
	}

	deltaHash, err := canonical.Multihash(delta)
	if err != nil {
		return nil, "", fmt.Errorf("didion: failed to hash delta: %w", err)
	}

	signedData, err := signUpdateData(km, updateKeyAlias, UpdateSignedData{
		UpdateKey: oldUpdateKey,
		DeltaHash: deltaHash,
	})
	if err != nil {
		return nil, "", err
	}

	op := &UpdateOperation{
		Type:        OperationTypeUpdate,
		DidSuffix:   didSuffix,
		RevealValue: revealValue,
		Delta:       delta,
		SignedData:  signedData,
	}

	return op, newUpdateKeyAlias, nil
}

// signUpdateData produces the compact JWS over the update key and delta
// hash, signed with the previous update key through the key manager.
func signUpdateData(km keymanager.KeyManager, alias string, data UpdateSignedData) (string, error) {
	token := jwt.NewWithClaims(ES256K, jwt.MapClaims{
		"updateKey": data.UpdateKey,
		"deltaHash": data.DeltaHash,
	})
	// Sidetree signed data carries only alg in the protected header.
	delete(token.Header, "typ")

	signed, err := token.SignedString(managedKey{km: km, alias: alias})
	if err != nil {
		return "", fmt.Errorf("didion: failed to sign update data: %w", err)
	}

	return signed, nil
}

// ShortFormDID derives the canonical short-form identifier from suffix data.
func ShortFormDID(suffixData *SuffixData) (string, error) {
	suffix, err := canonical.Multihash(suffixData)
	if err != nil {
		return "", fmt.Errorf("didion: failed to derive DID suffix: %w", err)
	}

	return "did:ion:" + suffix, nil
}

// LongFormDID derives the self-contained long-form identifier, which embeds
// the canonicalized initial state after the short form.
func LongFormDID(suffixData *SuffixData, delta *Delta) (string, error) {
	shortForm, err := ShortFormDID(suffixData)
	if err != nil {
		return "", err
	}

	initialState, err := canonical.Canonicalize(struct {
		SuffixData *SuffixData `json:"suffixData"`
		Delta      *Delta      `json:"delta"`
	}{SuffixData: suffixData, Delta: delta})
	if err != nil {
		return "", fmt.Errorf("didion: failed to canonicalize initial state: %w", err)
	}

	return shortForm + ":" + base64.RawURLEncoding.EncodeToString(initialState), nil
}
