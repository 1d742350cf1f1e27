// Package inventory implements the remote inventory service client.
// The intake engine only consumes the four operation contracts; payload
// encoding and server-side persistence are this collaborator's concern.
package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/partflow-io/partflow/internal/domain"
)

// Config controls the client.
type Config struct {
	BaseURL string
	APIKey  string        // optional bearer token
	Timeout time.Duration // per-request; default 10s
}

// DefaultConfig returns client defaults for a local development server.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://127.0.0.1:8085",
		Timeout: 10 * time.Second,
	}
}

// Client is an HTTP implementation of domain.InventoryService.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates an inventory client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

var _ domain.InventoryService = (*Client)(nil)

// LookupByCode resolves a scanned code against the catalog.
// A 404 maps to domain.ErrPartNotFound; anything else non-2xx is a
// transport-level error so the resolver can tell the two apart.
func (c *Client) LookupByCode(ctx context.Context, code string) (*domain.PartRecord, error) {
	var rec domain.PartRecord
	status, err := c.do(ctx, http.MethodGet, "/api/parts/"+code, nil, &rec)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, domain.ErrPartNotFound
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("lookup %q: unexpected status %d", code, status)
	}
	return &rec, nil
}

// SubmitManualEntry records an unknown-code sighting for catalog
// curation. The server deduplicates, so resubmission at commit time is
// safe.
func (c *Client) SubmitManualEntry(ctx context.Context, entry domain.ManualEntry) error {
	status, err := c.do(ctx, http.MethodPost, "/api/manual-entries", entry, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return fmt.Errorf("submit manual entry %q: unexpected status %d", entry.Code, status)
	}
	return nil
}

// commitPayload is one transaction line on the wire.
type commitPayload struct {
	Line    domain.CartLine           `json:"line"`
	Context domain.TransactionContext `json:"context"`
}

// CommitCatalogLine submits one charge-out transaction line.
func (c *Client) CommitCatalogLine(ctx context.Context, line domain.CartLine, tc domain.TransactionContext) error {
	return c.commitLine(ctx, "/api/transactions/catalog", line, tc)
}

// CommitManualLine submits one manual-review line at commit time.
func (c *Client) CommitManualLine(ctx context.Context, line domain.CartLine, tc domain.TransactionContext) error {
	return c.commitLine(ctx, "/api/transactions/manual", line, tc)
}

func (c *Client) commitLine(ctx context.Context, path string, line domain.CartLine, tc domain.TransactionContext) error {
	status, err := c.do(ctx, http.MethodPost, path, commitPayload{Line: line, Context: tc}, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return fmt.Errorf("commit line %q: unexpected status %d", line.Key, status)
	}
	return nil
}

// do issues one JSON request. out is decoded only on 2xx; the status is
// always returned so callers can map 404s themselves.
func (c *Client) do(ctx context.Context, method, path string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, nil
}
