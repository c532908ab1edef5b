package did

// ErrorCode is a DID resolution error code as defined by the DID Core
// resolution contract. Resolution never returns a Go error; failures are
// carried as a code inside the returned result so every method presents the
// same composable contract.
type ErrorCode string

const (
	// ErrorMethodNotSupported indicates no registered method handles the DID.
	ErrorMethodNotSupported ErrorCode = "methodNotSupported"
	// ErrorInvalidDID indicates the identifier fails syntax validation.
	ErrorInvalidDID ErrorCode = "invalidDid"
	// ErrorNotFound indicates the identifier resolved to no record.
	ErrorNotFound ErrorCode = "notFound"
	// ErrorInternal covers transport and parse failures during resolution.
	ErrorInternal ErrorCode = "internalError"
)

// ResolutionResult is the uniform return value of every resolve call.
type ResolutionResult struct {
	Document           *Document          `json:"didDocument"`
	ResolutionMetadata ResolutionMetadata `json:"didResolutionMetadata"`
	DocumentMetadata   DocumentMetadata   `json:"didDocumentMetadata"`
}

// ResolutionMetadata describes the outcome of the resolution process itself.
type ResolutionMetadata struct {
	Error ErrorCode `json:"error,omitempty"`
}

// DocumentMetadata describes the resolved document.
type DocumentMetadata struct {
	Created       string   `json:"created,omitempty"`
	Updated       string   `json:"updated,omitempty"`
	Deactivated   bool     `json:"deactivated,omitempty"`
	VersionID     string   `json:"versionId,omitempty"`
	CanonicalID   string   `json:"canonicalId,omitempty"`
	EquivalentID  []string `json:"equivalentId,omitempty"`
	NextUpdate    string   `json:"nextUpdate,omitempty"`
	NextVersionID string   `json:"nextVersionId,omitempty"`
	Types         []int    `json:"types,omitempty"`
}

// ResolutionError builds a result carrying only an error code.
func ResolutionError(code ErrorCode) ResolutionResult {
	return ResolutionResult{
		ResolutionMetadata: ResolutionMetadata{Error: code},
	}
}

// Failed reports whether the result carries a resolution error.
func (r ResolutionResult) Failed() bool {
	return r.ResolutionMetadata.Error != ""
}
