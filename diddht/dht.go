// Package diddht implements the "dht" DID method: documents are encoded as
// compact DNS packets, wrapped in BEP44 signed mutable records, and
// published to the BitTorrent DHT through a Pkarr relay.
package diddht

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/pilacorp/go-did-sdk/did"
	"github.com/pilacorp/go-did-sdk/did/common/crypto"
	"github.com/pilacorp/go-did-sdk/did/common/keymanager"
	"github.com/pilacorp/go-did-sdk/diddht/bep44"
)

// DefaultRelayURL is the Pkarr relay used when none is configured.
const DefaultRelayURL = "https://diddht.tbddev.org"

// verificationMethodType is the verification method type for did:dht keys,
// which are always carried as JWKs.
const verificationMethodType = "JsonWebKey"

// identityKeyFragment is the reserved fragment of the identity key: the
// ed25519 key the identifier itself is derived from.
const identityKeyFragment = "0"

// Config holds the configuration for the DHT method.
type Config struct {
	// RelayURL is the Pkarr relay base URL.
	RelayURL string

	// KeyManager holds identity and verification keys. Defaults to an
	// in-memory manager.
	KeyManager keymanager.KeyManager

	// HTTPClient overrides the default instrumented client.
	HTTPClient *http.Client
}

// API implements the dht method: document construction, relay publication
// and resolution.
type API struct {
	keyManager keymanager.KeyManager
	relay      *RelayClient
}

// New creates a DHT method API, applying defaults for any zero field.
func New(cfg Config) *API {
	if cfg.RelayURL == "" {
		cfg.RelayURL = DefaultRelayURL
	}
	if cfg.KeyManager == nil {
		cfg.KeyManager = keymanager.NewInMemoryKeyManager()
	}

	return &API{
		keyManager: cfg.KeyManager,
		relay:      NewRelayClient(cfg.RelayURL, cfg.HTTPClient),
	}
}

// Method returns the method name.
func (a *API) Method() string {
	return MethodName
}

// VerificationMethodOptions describes an additional verification method to
// mint during create.
type VerificationMethodOptions struct {
	// Algorithm selects the key type.
	Algorithm crypto.AlgorithmID

	// Fragment is the verification method's fragment id. Defaults to the
	// key's JWK thumbprint.
	Fragment string

	// Controller defaults to the document id.
	Controller string

	// Purposes are the relationship lists the key joins.
	Purposes []did.Purpose
}

// CreateOptions parameterizes DID creation.
type CreateOptions struct {
	// Publish pushes the document to the relay as part of create.
	Publish bool

	// VerificationMethods are additional keys beyond the identity key.
	VerificationMethods []VerificationMethodOptions

	// Services are the document's service endpoints. Ids may be bare
	// fragments; they are expanded against the document id.
	Services []did.Service

	// Controllers and AlsoKnownAs populate the optional document-level
	// records.
	Controllers []string
	AlsoKnownAs []string

	// Types are registered DID type indices published alongside the
	// document.
	Types []int
}

// CreateResult is the outcome of a create: the document, the identity key
// alias, and the published record when publication was requested.
type CreateResult struct {
	DID              string
	Document         *did.Document
	IdentityKeyAlias string
	Types            []int

	// Message is the signed record pushed to the relay; nil when the create
	// did not publish.
	Message *bep44.Message
}

// Create mints an ed25519 identity key, derives the identifier from it, and
// builds the DID document. The identity key is always verification method
// "#0" and joins the authentication, assertion, invocation and delegation
// relationships. With opts.Publish the document is immediately pushed to the
// relay.
func (a *API) Create(ctx context.Context, opts CreateOptions) (*CreateResult, error) {
	identityAlias, err := a.keyManager.GeneratePrivateKey(crypto.AlgorithmEd25519)
	if err != nil {
		return nil, fmt.Errorf("diddht: failed to generate identity key: %w", err)
	}

	identityKey, err := a.keyManager.GetPublicKey(identityAlias)
	if err != nil {
		return nil, fmt.Errorf("diddht: failed to load identity key: %w", err)
	}
	identityKeyBytes, err := crypto.PublicKeyToBytes(identityKey)
	if err != nil {
		return nil, fmt.Errorf("diddht: failed to serialize identity key: %w", err)
	}

	didURI, err := IdentifierFromPublicKey(identityKeyBytes)
	if err != nil {
		return nil, err
	}

	doc := did.NewDocument(didURI)
	doc.Controller = opts.Controllers
	doc.AlsoKnownAs = opts.AlsoKnownAs

	doc.AddVerificationMethod(did.VerificationMethod{
		ID:           didURI + "#" + identityKeyFragment,
		Type:         verificationMethodType,
		Controller:   didURI,
		PublicKeyJwk: identityKey,
	},
		did.PurposeAuthentication,
		did.PurposeAssertionMethod,
		did.PurposeCapabilityInvocation,
		did.PurposeCapabilityDelegation,
	)

	for _, vmOpts := range opts.VerificationMethods {
		if err := a.addVerificationMethod(doc, vmOpts); err != nil {
			return nil, err
		}
	}

	for _, svc := range opts.Services {
		switch {
		case svc.ID == "":
			return nil, fmt.Errorf("diddht: service has no id")
		case isDIDURL(svc.ID):
			// Full DID URLs must already carry the fragment the service is
			// published under.
			if !strings.Contains(svc.ID, "#") {
				return nil, fmt.Errorf("diddht: service id %q has no fragment", svc.ID)
			}
		case svc.ID[0] == '#':
			svc.ID = didURI + svc.ID
		default:
			svc.ID = didURI + "#" + svc.ID
		}
		doc.AddService(svc)
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}

	result := &CreateResult{
		DID:              didURI,
		Document:         doc,
		IdentityKeyAlias: identityAlias,
		Types:            opts.Types,
	}

	if opts.Publish {
		msg, err := a.Publish(ctx, doc, identityAlias, opts.Types)
		if err != nil {
			return nil, err
		}
		result.Message = msg
	}

	return result, nil
}

func (a *API) addVerificationMethod(doc *did.Document, opts VerificationMethodOptions) error {
	alias, err := a.keyManager.GeneratePrivateKey(opts.Algorithm)
	if err != nil {
		return fmt.Errorf("diddht: failed to generate verification key: %w", err)
	}
	pub, err := a.keyManager.GetPublicKey(alias)
	if err != nil {
		return fmt.Errorf("diddht: failed to load verification key: %w", err)
	}

	fragment := opts.Fragment
	if fragment == "" {
		fragment, err = pub.Thumbprint()
		if err != nil {
			return fmt.Errorf("diddht: failed to derive fragment: %w", err)
		}
	}

	controller := opts.Controller
	if controller == "" {
		controller = doc.ID
	}

	doc.AddVerificationMethod(did.VerificationMethod{
		ID:           doc.ID + "#" + fragment,
		Type:         verificationMethodType,
		Controller:   controller,
		PublicKeyJwk: pub,
	}, opts.Purposes...)

	return nil
}

// Publish encodes the document as a DNS packet, signs it as a BEP44 record
// with the identity key, and PUTs it to the relay.
//
// The sequence number is derived from wall-clock seconds with no persisted
// high-water mark: rapid or concurrent republication of the same identity
// key can produce non-increasing seq values, which a DHT node is entitled to
// reject. Callers needing monotonicity must persist the returned Seq
// themselves.
func (a *API) Publish(ctx context.Context, doc *did.Document, identityKeyAlias string, types []int) (*bep44.Message, error) {
	parsed, err := did.Parse(doc.ID)
	if err != nil {
		return nil, err
	}

	identityKey, err := a.keyManager.GetPublicKey(identityKeyAlias)
	if err != nil {
		return nil, fmt.Errorf("diddht: failed to load identity key: %w", err)
	}
	identityKeyBytes, err := crypto.PublicKeyToBytes(identityKey)
	if err != nil {
		return nil, fmt.Errorf("diddht: failed to serialize identity key: %w", err)
	}

	packet, err := ToDNSPacket(doc, types)
	if err != nil {
		return nil, err
	}
	wire, err := packet.Pack()
	if err != nil {
		return nil, fmt.Errorf("diddht: failed to pack DNS message: %w", err)
	}

	sign := func(payload []byte) ([]byte, error) {
		return a.keyManager.Sign(identityKeyAlias, payload)
	}

	msg, err := bep44.SignWithSigner(sign, identityKeyBytes, time.Now().Unix(), wire)
	if err != nil {
		return nil, err
	}

	if err := a.relay.Put(ctx, parsed.ID, msg); err != nil {
		return nil, err
	}

	return msg, nil
}

// Resolve fetches and verifies the record for a did:dht identifier and
// rebuilds the document from its DNS packet. It never returns a Go error:
// syntax, transport, verification and parse failures all map to an error
// code in the returned result.
func (a *API) Resolve(ctx context.Context, uri string) did.ResolutionResult {
	parsed, err := did.Parse(uri)
	if err != nil {
		return did.ResolutionError(did.ErrorInvalidDID)
	}
	if parsed.Method != MethodName {
		return did.ResolutionError(did.ErrorMethodNotSupported)
	}
	if _, err := decodeSuffix(parsed.ID); err != nil {
		return did.ResolutionError(did.ErrorInvalidDID)
	}

	msg, err := a.relay.Get(ctx, parsed.ID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return did.ResolutionError(did.ErrorNotFound)
		}
		return did.ResolutionError(did.ErrorInternal)
	}

	if err := msg.Verify(); err != nil {
		return did.ResolutionError(did.ErrorInternal)
	}

	packet := new(dns.Msg)
	if err := packet.Unpack(msg.V); err != nil {
		return did.ResolutionError(did.ErrorInternal)
	}

	doc, types, err := FromDNSPacket(parsed.URI, packet)
	if err != nil {
		return did.ResolutionError(did.ErrorInternal)
	}

	return did.ResolutionResult{
		Document: doc,
		DocumentMetadata: did.DocumentMetadata{
			Types: types,
		},
	}
}

func isDIDURL(id string) bool {
	return len(id) > 4 && id[:4] == "did:"
}
