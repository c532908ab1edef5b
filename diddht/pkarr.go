package diddht

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pilacorp/go-did-sdk/diddht/bep44"
)

// ErrRecordNotFound is returned when the relay holds no record for the
// identifier.
var ErrRecordNotFound = errors.New("diddht: record not found")

// RecordResponseError is returned for any other non-success relay response.
type RecordResponseError struct {
	StatusCode int
	Body       string
}

func (e *RecordResponseError) Error() string {
	return fmt.Sprintf("diddht: relay returned status %d: %s", e.StatusCode, e.Body)
}

// RelayClient talks the Pkarr relay protocol: BEP44 records PUT and GET over
// HTTP, addressed by the z-base-32 identity key. Each call is a single
// synchronous round trip with no retries.
type RelayClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRelayClient creates a relay client for the given gateway URL. A nil
// httpClient gets a 10-second-timeout client with an instrumented transport.
func NewRelayClient(baseURL string, httpClient *http.Client) *RelayClient {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	return &RelayClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Put publishes a signed record under the given method-specific id. The id
// is validated locally before any network traffic: it must be the z-base-32
// encoding of the record's 32-byte public key.
func (c *RelayClient) Put(ctx context.Context, id string, msg *bep44.Message) error {
	publicKey, err := decodeSuffix(id)
	if err != nil {
		return err
	}
	if !bytes.Equal(publicKey, msg.K) {
		return fmt.Errorf("diddht: id %q does not encode the record's public key", id)
	}

	body, err := msg.Encode()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/"+id, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("diddht: failed to build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("diddht: failed to call relay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return &RecordResponseError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return nil
}

// Get fetches the signed record stored under the given method-specific id.
func (c *RelayClient) Get(ctx context.Context, id string) (*bep44.Message, error) {
	publicKey, err := decodeSuffix(id)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("diddht: failed to build relay request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("diddht: failed to call relay: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("diddht: failed to read relay response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrRecordNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RecordResponseError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return bep44.Decode(body, publicKey)
}
