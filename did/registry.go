package did

import (
	"context"
	"sync"
)

// Method is a DID method implementation. Resolve never returns a Go error:
// syntax, transport and not-found failures must all be converted into an
// error code inside the returned result.
type Method interface {
	// Method returns the method name, e.g. "ion" or "dht".
	Method() string

	// Resolve performs a fresh resolution of the identifier. There is no
	// caching; repeated resolution is idempotent but not cheap.
	Resolve(ctx context.Context, uri string) ResolutionResult
}

// Registry routes resolution requests to registered DID methods.
type Registry struct {
	mu      sync.RWMutex
	methods map[string]Method
}

// NewRegistry creates a registry with the given methods registered.
func NewRegistry(methods ...Method) *Registry {
	r := &Registry{
		methods: make(map[string]Method, len(methods)),
	}
	for _, m := range methods {
		r.Register(m)
	}

	return r
}

// Register adds or replaces a method implementation.
func (r *Registry) Register(m Method) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.methods[m.Method()] = m
}

// Resolve parses the identifier, routes it to the registered method, and
// returns the method's result. Unknown methods and syntax failures yield a
// result carrying the corresponding error code.
func (r *Registry) Resolve(ctx context.Context, uri string) ResolutionResult {
	parsed, err := Parse(uri)
	if err != nil {
		return ResolutionError(ErrorInvalidDID)
	}

	r.mu.RLock()
	method, ok := r.methods[parsed.Method]
	r.mu.RUnlock()

	if !ok {
		return ResolutionError(ErrorMethodNotSupported)
	}

	return method.Resolve(ctx, uri)
}
