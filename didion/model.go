// Package didion implements the Sidetree-based "ion" DID method: operation
// construction with commitment chains, short/long-form identifiers, and the
// HTTP gateway client used to anchor and resolve documents.
package didion

import (
	"github.com/pilacorp/go-did-sdk/did/common/crypto"
)

// OperationType distinguishes Sidetree operation requests.
type OperationType string

const (
	OperationTypeCreate OperationType = "create"
	OperationTypeUpdate OperationType = "update"
)

// CreateOperation is the JCS form of a Sidetree create request.
type CreateOperation struct {
	Type OperationType `json:"type"`

	// SuffixData commits to the initial delta and the recovery key.
	SuffixData *SuffixData `json:"suffixData"`

	// Delta carries the initial document patches.
	Delta *Delta `json:"delta"`
}

// SuffixData is the create-time commitment the DID suffix is derived from.
type SuffixData struct {
	// DeltaHash is the multihash of the canonicalized delta.
	DeltaHash string `json:"deltaHash"`

	// RecoveryCommitment commits to the next recovery key.
	RecoveryCommitment string `json:"recoveryCommitment"`
}

// Delta carries document patches plus the commitment to the next update key.
type Delta struct {
	UpdateCommitment string  `json:"updateCommitment"`
	Patches          []Patch `json:"patches"`
}

// UpdateOperation is the JCS form of a Sidetree update request.
type UpdateOperation struct {
	Type OperationType `json:"type"`

	// DidSuffix identifies the DID being updated.
	DidSuffix string `json:"didSuffix"`

	// RevealValue opens the update commitment of the previous operation.
	RevealValue string `json:"revealValue"`

	// Delta carries the patches plus the next update commitment.
	Delta *Delta `json:"delta"`

	// SignedData is a compact JWS over the update key and delta hash, signed
	// with the previous update key.
	SignedData string `json:"signedData"`
}

// UpdateSignedData is the payload of an update operation's SignedData JWS.
type UpdateSignedData struct {
	UpdateKey *crypto.JWK `json:"updateKey"`
	DeltaHash string      `json:"deltaHash"`
}

// PublicKey is a verification key in Sidetree document-state form: the id is
// a bare fragment and purposes name the relationship lists it joins.
type PublicKey struct {
	ID           string      `json:"id"`
	Type         string      `json:"type"`
	PublicKeyJwk *crypto.JWK `json:"publicKeyJwk"`
	Purposes     []string    `json:"purposes,omitempty"`
}

// Service is a service endpoint in Sidetree document-state form.
type Service struct {
	ID              string      `json:"id"`
	Type            string      `json:"type"`
	ServiceEndpoint interface{} `json:"serviceEndpoint"`
}

// DocumentState is the document carried by a replace patch.
type DocumentState struct {
	PublicKeys []PublicKey `json:"publicKeys,omitempty"`
	Services   []Service   `json:"services,omitempty"`
}

// KeyAliases names the key-manager aliases involved in an operation.
type KeyAliases struct {
	Verification string
	Update       string
	Recovery     string
}
