package didion

import (
	"errors"
	"fmt"
	"regexp"
)

// PatchAction names a Sidetree document patch action.
type PatchAction string

const (
	ActionReplace          PatchAction = "replace"
	ActionAddPublicKeys    PatchAction = "add-public-keys"
	ActionRemovePublicKeys PatchAction = "remove-public-keys"
	ActionAddServices      PatchAction = "add-services"
	ActionRemoveServices   PatchAction = "remove-services"
)

// Patch is a tagged document patch. Exactly the fields relevant to its
// action are populated.
type Patch struct {
	Action     PatchAction    `json:"action"`
	Document   *DocumentState `json:"document,omitempty"`
	PublicKeys []PublicKey    `json:"publicKeys,omitempty"`
	Services   []Service      `json:"services,omitempty"`
	IDs        []string       `json:"ids,omitempty"`
}

// ErrInvalidKeyID is returned for verification-method ids that fail the
// Sidetree charset or length rules.
var ErrInvalidKeyID = errors.New("didion: invalid verification method id")

// Sidetree restricts fragment ids to base64url characters, at most 50 long.
var keyIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,50}$`)

// ValidateKeyID checks a verification-method fragment id against the
// Sidetree charset and length rules.
func ValidateKeyID(id string) error {
	if !keyIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q must match [A-Za-z0-9_-] and be at most 50 characters", ErrInvalidKeyID, id)
	}
	return nil
}

// ReplacePatch builds a replace patch carrying a full document state.
func ReplacePatch(doc DocumentState) (Patch, error) {
	for _, pk := range doc.PublicKeys {
		if err := ValidateKeyID(pk.ID); err != nil {
			return Patch{}, err
		}
	}
	return Patch{Action: ActionReplace, Document: &doc}, nil
}

// AddPublicKeysPatch builds an add-public-keys patch.
func AddPublicKeysPatch(keys ...PublicKey) (Patch, error) {
	if len(keys) == 0 {
		return Patch{}, fmt.Errorf("didion: add-public-keys patch requires at least one key")
	}
	for _, pk := range keys {
		if err := ValidateKeyID(pk.ID); err != nil {
			return Patch{}, err
		}
	}
	return Patch{Action: ActionAddPublicKeys, PublicKeys: keys}, nil
}

// RemovePublicKeysPatch builds a remove-public-keys patch.
func RemovePublicKeysPatch(ids ...string) (Patch, error) {
	if len(ids) == 0 {
		return Patch{}, fmt.Errorf("didion: remove-public-keys patch requires at least one id")
	}
	for _, id := range ids {
		if err := ValidateKeyID(id); err != nil {
			return Patch{}, err
		}
	}
	return Patch{Action: ActionRemovePublicKeys, IDs: ids}, nil
}

// AddServicesPatch builds an add-services patch.
func AddServicesPatch(services ...Service) (Patch, error) {
	if len(services) == 0 {
		return Patch{}, fmt.Errorf("didion: add-services patch requires at least one service")
	}
	return Patch{Action: ActionAddServices, Services: services}, nil
}

// RemoveServicesPatch builds a remove-services patch.
func RemoveServicesPatch(ids ...string) (Patch, error) {
	if len(ids) == 0 {
		return Patch{}, fmt.Errorf("didion: remove-services patch requires at least one id")
	}
	return Patch{Action: ActionRemoveServices, IDs: ids}, nil
}
