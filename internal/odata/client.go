// Package odata is the client for the product catalogue's OData API:
// incremental product search, product node metadata and file download.
package odata

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/eo-cat/sentinel-stac/internal/netrc"
)

// Client talks to one catalogue host.
type Client struct {
	baseURL string
	http    *http.Client
	creds   netrc.Provider
	logger  *slog.Logger
}

// NewClient creates a catalogue client for baseURL. Credentials are
// resolved per request host from the provider.
func NewClient(baseURL string, creds netrc.Provider, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: trimSlash(baseURL),
		http:    &http.Client{Timeout: 5 * time.Minute},
		creds:   creds,
		logger:  logger,
	}
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// BaseURL returns the configured catalogue base URL.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) do(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if cred, ok := c.creds.Lookup(req.URL.Hostname()); ok {
		req.SetBasicAuth(cred.Login, cred.Password)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("catalogue returned %d for %s: %s", resp.StatusCode, url, string(body))
	}
	return resp, nil
}

// Download fetches url and streams the body to w.
func (c *Client) Download(ctx context.Context, url string, w io.Writer) error {
	resp, err := c.do(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("downloading %s: %w", url, err)
	}
	return nil
}
