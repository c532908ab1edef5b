package did

import (
	"encoding/json"
	"fmt"

	"github.com/pilacorp/go-did-sdk/did/common/crypto"
)

// Purpose names a verification relationship in a DID Document.
type Purpose string

const (
	PurposeAuthentication       Purpose = "authentication"
	PurposeAssertionMethod      Purpose = "assertionMethod"
	PurposeKeyAgreement         Purpose = "keyAgreement"
	PurposeCapabilityInvocation Purpose = "capabilityInvocation"
	PurposeCapabilityDelegation Purpose = "capabilityDelegation"
)

// Document is a W3C DID Document.
type Document struct {
	Context              []string             `json:"@context,omitempty"`
	ID                   string               `json:"id"`
	Controller           []string             `json:"controller,omitempty"`
	AlsoKnownAs          []string             `json:"alsoKnownAs,omitempty"`
	VerificationMethod   []VerificationMethod `json:"verificationMethod,omitempty"`
	Service              []Service            `json:"service,omitempty"`
	Authentication       []string             `json:"authentication,omitempty"`
	AssertionMethod      []string             `json:"assertionMethod,omitempty"`
	KeyAgreement         []string             `json:"keyAgreement,omitempty"`
	CapabilityInvocation []string             `json:"capabilityInvocation,omitempty"`
	CapabilityDelegation []string             `json:"capabilityDelegation,omitempty"`
}

// VerificationMethod binds a public key to a DID Document.
type VerificationMethod struct {
	ID           string      `json:"id"`
	Type         string      `json:"type"`
	Controller   string      `json:"controller"`
	PublicKeyJwk *crypto.JWK `json:"publicKeyJwk,omitempty"`
}

// Service is a service endpoint entry. ServiceEndpoint holds one or more
// endpoint URIs; a single endpoint marshals as a bare JSON string.
type Service struct {
	ID              string   `json:"id"`
	Type            string   `json:"type"`
	ServiceEndpoint Endpoint `json:"serviceEndpoint"`
}

// Endpoint is a one-or-more list of service endpoint strings.
type Endpoint []string

// MarshalJSON emits a bare string for a single endpoint and an array
// otherwise.
func (e Endpoint) MarshalJSON() ([]byte, error) {
	if len(e) == 1 {
		return json.Marshal(e[0])
	}
	return json.Marshal([]string(e))
}

// UnmarshalJSON accepts both a bare string and an array of strings.
func (e *Endpoint) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*e = Endpoint{single}
		return nil
	}

	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("did: serviceEndpoint must be a string or array of strings: %w", err)
	}
	*e = Endpoint(many)

	return nil
}

// NewDocument creates an empty DID Document for the given identifier.
func NewDocument(id string) *Document {
	return &Document{
		Context: []string{"https://www.w3.org/ns/did/v1"},
		ID:      id,
	}
}

// AddVerificationMethod appends a verification method and registers it under
// the given purposes.
func (d *Document) AddVerificationMethod(vm VerificationMethod, purposes ...Purpose) {
	d.VerificationMethod = append(d.VerificationMethod, vm)
	for _, p := range purposes {
		d.AddPurpose(p, vm.ID)
	}
}

// AddService appends a service entry.
func (d *Document) AddService(svc Service) {
	d.Service = append(d.Service, svc)
}

// AddPurpose appends a verification-method reference to the named
// relationship list.
func (d *Document) AddPurpose(p Purpose, ref string) {
	switch p {
	case PurposeAuthentication:
		d.Authentication = append(d.Authentication, ref)
	case PurposeAssertionMethod:
		d.AssertionMethod = append(d.AssertionMethod, ref)
	case PurposeKeyAgreement:
		d.KeyAgreement = append(d.KeyAgreement, ref)
	case PurposeCapabilityInvocation:
		d.CapabilityInvocation = append(d.CapabilityInvocation, ref)
	case PurposeCapabilityDelegation:
		d.CapabilityDelegation = append(d.CapabilityDelegation, ref)
	}
}

// Purposes returns the relationship lists a verification-method reference
// appears in.
func (d *Document) Purposes(ref string) []Purpose {
	var purposes []Purpose
	for _, rel := range []struct {
		purpose Purpose
		refs    []string
	}{
		{PurposeAuthentication, d.Authentication},
		{PurposeAssertionMethod, d.AssertionMethod},
		{PurposeKeyAgreement, d.KeyAgreement},
		{PurposeCapabilityInvocation, d.CapabilityInvocation},
		{PurposeCapabilityDelegation, d.CapabilityDelegation},
	} {
		for _, r := range rel.refs {
			if r == ref {
				purposes = append(purposes, rel.purpose)
				break
			}
		}
	}

	return purposes
}

// FindVerificationMethod returns the verification method with the given id,
// accepting both full DID URLs and bare "#fragment" references.
func (d *Document) FindVerificationMethod(ref string) (*VerificationMethod, bool) {
	for i := range d.VerificationMethod {
		vm := &d.VerificationMethod[i]
		if vm.ID == ref || vm.ID == d.ID+ref {
			return vm, true
		}
	}
	return nil, false
}

// Validate checks the document's structural invariant: every reference in a
// relationship list must resolve to a verification method present in the
// document.
func (d *Document) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: document has no id", ErrInvalidDID)
	}

	for _, rel := range [][]string{
		d.Authentication,
		d.AssertionMethod,
		d.KeyAgreement,
		d.CapabilityInvocation,
		d.CapabilityDelegation,
	} {
		for _, ref := range rel {
			if _, ok := d.FindVerificationMethod(ref); !ok {
				return fmt.Errorf("did: relationship references unknown verification method %q", ref)
			}
		}
	}

	return nil
}
