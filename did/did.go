// Package did holds the method-independent pieces of the SDK: DID syntax,
// the DID Document model, the uniform resolution result, and the method
// registry that routes resolution to the registered method implementations.
package did

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidDID is returned when a string does not satisfy the generic DID
// syntax.
var ErrInvalidDID = errors.New("did: invalid DID")

var (
	methodPattern = regexp.MustCompile(`^[a-z0-9]+$`)
	idPattern     = regexp.MustCompile(`^[A-Za-z0-9._:%-]+$`)
)

// DID is a parsed Decentralized Identifier.
type DID struct {
	// URI is the full identifier, e.g. "did:dht:abc123".
	URI string
	// Method is the method name, e.g. "dht".
	Method string
	// ID is the method-specific identifier.
	ID string
	// Fragment is the part after '#', without the '#', if any.
	Fragment string
}

// Parse splits a DID URI into its components and validates the generic
// syntax.
func Parse(uri string) (*DID, error) {
	base, fragment, _ := strings.Cut(uri, "#")

	parts := strings.SplitN(base, ":", 3)
	if len(parts) != 3 || parts[0] != "did" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDID, uri)
	}

	method, id := parts[1], parts[2]
	if !methodPattern.MatchString(method) {
		return nil, fmt.Errorf("%w: malformed method name %q", ErrInvalidDID, method)
	}
	if !idPattern.MatchString(id) {
		return nil, fmt.Errorf("%w: malformed method-specific id %q", ErrInvalidDID, id)
	}

	return &DID{
		URI:      base,
		Method:   method,
		ID:       id,
		Fragment: fragment,
	}, nil
}

// MustParse is Parse for statically known identifiers; it panics on error.
func MustParse(uri string) *DID {
	d, err := Parse(uri)
	if err != nil {
		panic(err)
	}
	return d
}

// String returns the DID URI, including the fragment if present.
func (d *DID) String() string {
	if d.Fragment != "" {
		return d.URI + "#" + d.Fragment
	}
	return d.URI
}
