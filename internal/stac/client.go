// Package stac is the client for the downstream STAC catalogue:
// token authentication, item upload with conflict handling, and
// entry removal.
package stac

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eo-cat/sentinel-stac/internal/netrc"
)

// ErrConflict is returned when the catalogue already holds an item
// for the product and overwriting was not requested.
var ErrConflict = errors.New("item already registered")

// The namespace under which product titles map to feature ids.
var featureNamespace = uuid.UUID{
	0x92, 0x70, 0x80, 0x59, 0x20, 0x77, 0x45, 0xa3,
	0xa4, 0xf3, 0x1e, 0xb4, 0x28, 0x78, 0x9c, 0xff,
}

// FeatureID derives the deterministic STAC feature id for a product
// title (UUIDv5 under the fixed namespace).
func FeatureID(title string) string {
	return uuid.NewSHA1(featureNamespace, []byte(title)).String()
}

// Client talks to one STAC catalogue host.
type Client struct {
	baseURL string
	http    *http.Client
	creds   netrc.Provider
	logger  *slog.Logger
}

// NewClient creates a STAC catalogue client. creds may be nil when
// the auth endpoint is open.
func NewClient(baseURL string, creds netrc.Provider, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 2 * time.Minute},
		creds:   creds,
		logger:  logger,
	}
}

// Token obtains an API token from the catalogue's auth endpoint.
func (c *Client) Token(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth", nil)
	if err != nil {
		return "", err
	}
	if c.creds != nil {
		if cred, ok := c.creds.Lookup(req.URL.Hostname()); ok {
			req.SetBasicAuth(cred.Login, cred.Password)
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting API token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}
	var parsed struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if parsed.Token == "" {
		return "", fmt.Errorf("token endpoint returned an empty token")
	}
	return parsed.Token, nil
}

func (c *Client) send(ctx context.Context, method, url, token string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

// Push uploads an item to a collection. On a conflict it returns
// ErrConflict unless overwrite is set, in which case the existing
// feature is replaced in place.
func (c *Client) Push(ctx context.Context, collection string, item []byte, overwrite bool) error {
	token, err := c.Token(ctx)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/collections/%s/items", c.baseURL, collection)
	resp, err := c.send(ctx, http.MethodPost, url, token, item)
	if err != nil {
		return fmt.Errorf("uploading item: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusConflict:
		if !overwrite {
			return ErrConflict
		}
		featureID, err := conflictFeatureID(resp.Body)
		if err != nil {
			return fmt.Errorf("cannot update existing entry: %w", err)
		}
		return c.update(ctx, collection, featureID, token, item)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("collection %s does not exist at %s", collection, c.baseURL)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("item upload returned %d: %s", resp.StatusCode, string(body))
	}
}

// conflictFeatureID digs the existing feature id out of a 409
// response body of the form
// {"ErrorMessage": "Feature <id> already exists"}.
func conflictFeatureID(body io.Reader) (string, error) {
	var parsed struct {
		ErrorMessage string `json:"ErrorMessage"`
	}
	if err := json.NewDecoder(body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding conflict response: %w", err)
	}
	fields := strings.Fields(parsed.ErrorMessage)
	if len(fields) < 2 || !strings.Contains(parsed.ErrorMessage, "Feature") {
		return "", fmt.Errorf("feature id not present in conflict response %q", parsed.ErrorMessage)
	}
	return fields[1], nil
}

// update rewrites an existing catalogue entry in full.
func (c *Client) update(ctx context.Context, collection, featureID, token string, item []byte) error {
	url := fmt.Sprintf("%s/collections/%s/items/%s", c.baseURL, collection, featureID)
	c.logger.Info("overwriting existing catalogue entry", "feature_id", featureID)

	resp, err := c.send(ctx, http.MethodPut, url, token, item)
	if err != nil {
		return fmt.Errorf("updating item %s: %w", featureID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("item update returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Remove deletes a feature from a collection.
func (c *Client) Remove(ctx context.Context, collection, featureID string) error {
	token, err := c.Token(ctx)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/collections/%s/items/%s", c.baseURL, collection, featureID)
	resp, err := c.send(ctx, http.MethodDelete, url, token, nil)
	if err != nil {
		return fmt.Errorf("removing item %s: %w", featureID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("feature %s not found under collection %s", featureID, collection)
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("insufficient permissions to remove feature %s", featureID)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("item removal returned %d: %s", resp.StatusCode, string(body))
	}
}
