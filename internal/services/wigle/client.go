// Package wigle fetches network detail from the WiGLE lookup API.
//
// The detail endpoint returns canonical metadata for one BSSID plus its full
// location history grouped into clusters. The client flattens clusters into
// the uniform observation shape so results feed straight into the ingest
// gateway.
package wigle

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"netsight/internal/services"
)

const (
	defaultBaseURL     = "https://api.wigle.net"
	defaultHTTPTimeout = 30 * time.Second
)

// Client wraps the WiGLE v3 network detail API.
type Client struct {
	credential string
	baseURL    string
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the default API base (useful for tests/mocks).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// NewClient constructs a WiGLE API client. The credential is either an API
// name:token pair or an already base64-encoded authorization value.
func NewClient(credential string, opts ...Option) *Client {
	client := &Client{
		credential: strings.TrimSpace(credential),
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// FetchNetworkDetail retrieves the authoritative record for one BSSID.
func (c *Client) FetchNetworkDetail(ctx context.Context, bssid string) (*NetworkDetail, error) {
	bssid = strings.ToUpper(strings.TrimSpace(bssid))
	if bssid == "" {
		return nil, services.Wrap(services.ErrValidation, "wigle", "fetch detail", "bssid required", nil)
	}
	if c.credential == "" {
		return nil, services.Wrap(services.ErrConfiguration, "wigle", "fetch detail", "api credential required", nil)
	}

	endpoint, err := url.JoinPath(c.baseURL, "/api/v3/detail/wifi/", bssid)
	if err != nil {
		return nil, fmt.Errorf("wigle fetch: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("wigle fetch: request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+encodeCredential(c.credential))
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "wigle", "fetch detail", bssid, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "wigle", "read body", bssid, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, services.Wrap(services.ErrNotFound, "wigle", "fetch detail", bssid, nil)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		detail := strings.TrimSpace(string(body))
		return nil, services.Wrap(services.ErrExternalAPI, "wigle", "fetch detail",
			fmt.Sprintf("%s: http %d: %s", bssid, resp.StatusCode, detail), nil)
	}

	var payload detailResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, services.Wrap(services.ErrExternalAPI, "wigle", "decode response", bssid, err)
	}
	if payload.NetworkID == "" {
		return nil, services.Wrap(services.ErrExternalAPI, "wigle", "decode response", "missing networkId", nil)
	}

	detail := payload.flatten()
	return detail, nil
}

// encodeCredential base64-encodes name:token pairs. Anything without a colon
// (or implausibly long for a pair) is assumed to be pre-encoded.
func encodeCredential(credential string) string {
	if strings.Contains(credential, ":") && len(credential) < 100 {
		return base64.StdEncoding.EncodeToString([]byte(credential))
	}
	return credential
}

var errNoLocation = errors.New("location without coordinates")
