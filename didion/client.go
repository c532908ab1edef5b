package didion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pilacorp/go-did-sdk/did"
)

// InvalidStatusError is returned when the gateway answers with a non-2xx
// status.
type InvalidStatusError struct {
	StatusCode int
	Body       string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("didion: gateway returned status %d: %s", e.StatusCode, e.Body)
}

// ErrResolutionFailed is returned when a freshly anchored DID fails its
// confirmation resolution.
var ErrResolutionFailed = errors.New("didion: resolution of anchored DID failed")

// Client submits operations to and resolves documents from a Sidetree
// anchoring service. Each call is a single synchronous round trip with no
// retries; a failed call is terminal for that call.
type Client struct {
	host       string
	httpClient *http.Client
}

// NewClient creates a gateway client for the given host. A nil httpClient
// gets a 10-second-timeout client with an instrumented transport.
func NewClient(host string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	return &Client{
		host:       strings.TrimSuffix(host, "/"),
		httpClient: httpClient,
	}
}

// SubmitOperation POSTs a create or update operation to the gateway and
// returns the raw response body.
func (c *Client) SubmitOperation(ctx context.Context, operation interface{}) ([]byte, error) {
	body, err := json.Marshal(operation)
	if err != nil {
		return nil, fmt.Errorf("didion: failed to marshal operation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/operations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("didion: failed to build operation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("didion: failed to call operations endpoint: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("didion: failed to read operation response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &InvalidStatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

// ResolveDID GETs the resolution result for a DID from the gateway. A 404
// with a parseable resolution body is returned as that body; any other
// non-2xx status is an InvalidStatusError.
func (c *Client) ResolveDID(ctx context.Context, didURI string) (*did.ResolutionResult, error) {
	endpoint := c.host + "/identifiers/" + url.PathEscape(didURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("didion: failed to build resolution request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("didion: failed to call identifiers endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("didion: failed to read resolution response: %w", err)
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode <= 299
	if ok || resp.StatusCode == http.StatusNotFound {
		var result did.ResolutionResult
		if jsonErr := json.Unmarshal(body, &result); jsonErr == nil && (ok || result.Failed()) {
			return &result, nil
		}
	}
	if !ok {
		return nil, &InvalidStatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return nil, fmt.Errorf("didion: failed to parse resolution response")
}
