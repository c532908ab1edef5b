package didion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pilacorp/go-did-sdk/did"
	"github.com/pilacorp/go-did-sdk/did/common/keymanager"
)

// DefaultGatewayURL is the Sidetree anchoring service used when none is
// configured.
const DefaultGatewayURL = "https://ion.tbddev.org"

// MethodName is the DID method name this package implements.
const MethodName = "ion"

// Config holds the configuration for the ION method.
type Config struct {
	// GatewayURL is the Sidetree anchoring service base URL.
	GatewayURL string

	// KeyManager holds operation keys. Defaults to an in-memory manager.
	KeyManager keymanager.KeyManager

	// HTTPClient overrides the default instrumented client.
	HTTPClient *http.Client
}

// Manager implements the ION method: operation construction, anchoring and
// resolution through a Sidetree gateway.
type Manager struct {
	keyManager keymanager.KeyManager
	client     *Client
}

// New creates an ION method manager, applying defaults for any zero field.
func New(cfg Config) *Manager {
	if cfg.GatewayURL == "" {
		cfg.GatewayURL = DefaultGatewayURL
	}
	if cfg.KeyManager == nil {
		cfg.KeyManager = keymanager.NewInMemoryKeyManager()
	}

	return &Manager{
		keyManager: cfg.KeyManager,
		client:     NewClient(cfg.GatewayURL, cfg.HTTPClient),
	}
}

// Method returns the method name.
func (m *Manager) Method() string {
	return MethodName
}

// CreateResult is the outcome of a successful create: the anchored
// identifiers, the confirming resolution, and the aliases of the keys that
// now control the DID.
type CreateResult struct {
	// DID is the long-form identifier, resolvable before anchoring settles.
	DID string

	// ShortFormDID is the canonical identifier.
	ShortFormDID string

	// Suffix is the method-specific suffix shared by both forms.
	Suffix string

	// Operation is the submitted create operation.
	Operation *CreateOperation

	// Resolution is the confirmation resolution of the long-form DID.
	Resolution *did.ResolutionResult

	// Keys names the verification, update and recovery key aliases.
	Keys KeyAliases
}

// Create builds a create operation, submits it to the gateway, and confirms
// anchoring by immediately resolving the long-form DID.
func (m *Manager) Create(ctx context.Context, opts CreateOptions) (*CreateResult, error) {
	op, aliases, err := NewCreateOperation(m.keyManager, opts)
	if err != nil {
		return nil, err
	}

	if _, err := m.client.SubmitOperation(ctx, op); err != nil {
		return nil, err
	}

	longForm, err := LongFormDID(op.SuffixData, op.Delta)
	if err != nil {
		return nil, err
	}
	shortForm, err := ShortFormDID(op.SuffixData)
	if err != nil {
		return nil, err
	}

	resolution, err := m.client.ResolveDID(ctx, longForm)
	if err != nil {
		return nil, fmt.Errorf("didion: failed to confirm anchoring: %w", err)
	}
	if resolution.Failed() {
		return nil, fmt.Errorf("%w: %s", ErrResolutionFailed, resolution.ResolutionMetadata.Error)
	}

	return &CreateResult{
		DID:          longForm,
		ShortFormDID: shortForm,
		Suffix:       strings.TrimPrefix(shortForm, "did:ion:"),
		Operation:    op,
		Resolution:   resolution,
		Keys:         *aliases,
	}, nil
}

// UpdateResult is the outcome of a successful update.
type UpdateResult struct {
	// Operation is the submitted update operation.
	Operation *UpdateOperation

	// UpdateKeyAlias addresses the rotated update key for the next
	// operation.
	UpdateKeyAlias string
}

// Update builds an update operation against the DID suffix, rotating the
// update key addressed by updateKeyAlias, and submits it to the gateway.
func (m *Manager) Update(ctx context.Context, didSuffix, updateKeyAlias string, patches []Patch) (*UpdateResult, error) {
	op, newAlias, err := NewUpdateOperation(m.keyManager, didSuffix, updateKeyAlias, patches)
	if err != nil {
		return nil, err
	}

	if _, err := m.client.SubmitOperation(ctx, op); err != nil {
		return nil, err
	}

	return &UpdateResult{
		Operation:      op,
		UpdateKeyAlias: newAlias,
	}, nil
}

// Resolve resolves an ION DID through the gateway. It never returns a Go
// error: syntax, transport and not-found failures are all mapped to an error
// code inside the result.
func (m *Manager) Resolve(ctx context.Context, uri string) did.ResolutionResult {
	parsed, err := did.Parse(uri)
	if err != nil {
		return did.ResolutionError(did.ErrorInvalidDID)
	}
	if parsed.Method != MethodName {
		return did.ResolutionError(did.ErrorMethodNotSupported)
	}

	result, err := m.client.ResolveDID(ctx, parsed.URI)
	if err != nil {
		var statusErr *InvalidStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return did.ResolutionError(did.ErrorNotFound)
		}
		return did.ResolutionError(did.ErrorInternal)
	}

	return *result
}
