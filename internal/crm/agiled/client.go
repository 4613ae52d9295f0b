// Package agiled is the HTTP client for the Agiled CRM contacts API.
package agiled

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/JakeFAU/narration-leads/internal/crm"
	"github.com/JakeFAU/narration-leads/internal/lead"
)

const maxDiagnosticBytes = 4 << 10

// Config holds the CRM endpoint and credentials.
type Config struct {
	APIURL string
	APIKey string
	// Brand is the hostname of the account's CRM URL, sent as the Brand header.
	Brand string
}

// HTTPClient is satisfied by *http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client creates CRM contacts for captured leads.
type Client struct {
	cfg  Config
	http HTTPClient
}

// New returns a Client. A nil httpClient gets one with timeout.
func New(cfg Config, httpClient HTTPClient, timeout time.Duration) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: crm api key", lead.ErrConfigurationMissing)
	}
	if cfg.APIURL == "" || cfg.Brand == "" {
		return nil, fmt.Errorf("crm api url and brand are required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	return &Client{cfg: cfg, http: httpClient}, nil
}

// Sync implements lead.CRM. Non-2xx answers become *crm.SyncError.
func (c *Client) Sync(ctx context.Context, rec lead.Record) error {
	contact, err := crm.BuildContact(rec)
	if err != nil {
		return err
	}
	body, err := json.Marshal(contact)
	if err != nil {
		return fmt.Errorf("marshal contact: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL+"/contacts", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build crm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Brand", c.cfg.Brand)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("crm request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxDiagnosticBytes))
		return &crm.SyncError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
