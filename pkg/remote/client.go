// Package remote provides the network leg of the autosave pipeline: a
// fire-and-forget client that posts snapshots to a server endpoint, and the
// handler that receives them on the other side.
package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	formstate "github.com/goliatone/go-formstate"
)

// DefaultFormIDField names the form field that carries the form identifier
// alongside the snapshot values.
const DefaultFormIDField = "_form_id"

// ErrEndpointRequired is returned when a client is built without a target URL.
var ErrEndpointRequired = errors.New("remote: endpoint must be provided")

// Client posts snapshots to a remote endpoint as form-encoded data. It
// implements the cache Syncer contract: failures are reported to the caller
// but never retried here.
type Client struct {
	http     *resty.Client
	endpoint string
	idField  string
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// ClientWithHTTPClient swaps the underlying resty client, useful for tests
// and shared transports.
func ClientWithHTTPClient(rc *resty.Client) ClientOption {
	return func(c *Client) {
		if rc != nil {
			c.http = rc
		}
	}
}

// ClientWithTimeout bounds each sync request.
func ClientWithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// ClientWithFormIDField overrides the field name that carries the form ID.
func ClientWithFormIDField(name string) ClientOption {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			c.idField = trimmed
		}
	}
}

// NewClient builds a sync client for the given endpoint.
func NewClient(endpoint string, opts ...ClientOption) (*Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, ErrEndpointRequired
	}

	client := &Client{
		http:     resty.New().SetTimeout(10 * time.Second),
		endpoint: trimmed,
		idField:  DefaultFormIDField,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Endpoint returns the configured target URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Sync posts the snapshot to the endpoint. The response body is ignored and a
// non-2xx status is an error.
func (c *Client) Sync(ctx context.Context, formID string, snapshot formstate.Snapshot) error {
	if ctx == nil {
		ctx = context.Background()
	}

	payload := make(map[string]string, len(snapshot)+1)
	for name, value := range snapshot {
		payload[name] = value
	}
	payload[c.idField] = formID

	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(payload).
		Post(c.endpoint)
	if err != nil {
		return fmt.Errorf("remote: sync %s: %w", formID, err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("remote: sync %s: unexpected status %d", formID, resp.StatusCode())
	}
	return nil
}
