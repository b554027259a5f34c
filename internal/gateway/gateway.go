// Package gateway implements the HTTPS/JSON client for the remote DNS
// profile API.
//
// Requests carry the credential in a static header. Errors follow the
// panel taxonomy: missing credential, missing profile id, transport
// failure, or a non-2xx status carrying the upstream text. Nothing is
// retried automatically and no client-side timeout is applied; callers
// own cancellation through ctx.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/apperr"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.nextdns.io"

// ListType selects the deny or allow list resource.
type ListType string

const (
	Denylist  ListType = "denylist"
	Allowlist ListType = "allowlist"
)

// Valid reports whether lt names a known list resource.
func (lt ListType) Valid() bool {
	return lt == Denylist || lt == Allowlist
}

// ExportSections are the per-profile sub-resources included in a full
// profile export, keyed by page name in the output.
var ExportSections = []string{
	"security", "privacy", "parentalcontrol",
	"denylist", "allowlist", "settings", "rewrites",
}

// Client is the thin remote API client. Credential and profile id are
// read per request so a handoff commit takes effect immediately.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Credential func() string
	ProfileID  func() string
}

// New creates a client reading the credential and profile id through the
// given accessors.
func New(baseURL string, credential, profileID func() string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: http.DefaultClient,
		Credential: credential,
		ProfileID:  profileID,
	}
}

// profile returns the current profile id or the taxonomy error.
func (c *Client) profile() (string, error) {
	pid := c.ProfileID()
	if pid == "" {
		return "", apperr.ErrMissingProfile
	}
	return pid, nil
}

// do performs one request with the given credential. A non-2xx response
// becomes a RequestError; transport failures are wrapped.
func (c *Client) do(ctx context.Context, method, endpoint, key string, body, out any) error {
	if key == "" {
		return apperr.ErrMissingCredential
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("gateway: encode body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("gateway: build request: %w", err)
	}
	req.Header.Set("X-Api-Key", key)
	if body != nil {
		req.Header.Set("Content-Type", "application/json;charset=utf-8")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: network request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &apperr.RequestError{Status: resp.StatusCode, Text: resp.Status}
	}
	if out == nil {
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("gateway: read response: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("gateway: decode response: %w", err)
	}
	return nil
}

// CreateListEntry adds a domain to the deny or allow list.
func (c *Client) CreateListEntry(ctx context.Context, list ListType, dom string) error {
	pid, err := c.profile()
	if err != nil {
		return err
	}
	body := map[string]any{"id": dom, "active": true}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/profiles/%s/%s", pid, list), c.Credential(), body, nil)
}

// DeleteListEntry removes a list entry by id.
func (c *Client) DeleteListEntry(ctx context.Context, list ListType, id string) error {
	pid, err := c.profile()
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/profiles/%s/%s/%s", pid, list, id), c.Credential(), nil, nil)
}

// Probe performs the lightweight authenticated request used to validate
// a captured credential before committing it.
func (c *Client) Probe(ctx context.Context, key string) error {
	pid, err := c.profile()
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodGet, "/profiles/"+pid, key, nil, nil)
}

// FetchSection retrieves one per-profile sub-resource's data payload.
func (c *Client) FetchSection(ctx context.Context, section string) (json.RawMessage, error) {
	pid, err := c.profile()
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	err = c.do(ctx, http.MethodGet, fmt.Sprintf("/profiles/%s/%s", pid, section), c.Credential(), nil, &envelope)
	if err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// DownloadLogsCSV fetches the log export as CSV text.
func (c *Client) DownloadLogsCSV(ctx context.Context) ([]byte, error) {
	key := c.Credential()
	if key == "" {
		return nil, apperr.ErrMissingCredential
	}
	pid, err := c.profile()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/profiles/%s/logs/download", c.BaseURL, pid), nil)
	if err != nil {
		return nil, fmt.Errorf("gateway: build request: %w", err)
	}
	req.Header.Set("X-Api-Key", key)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway: network request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &apperr.RequestError{Status: resp.StatusCode, Text: resp.Status}
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gateway: read csv: %w", err)
	}
	return raw, nil
}
