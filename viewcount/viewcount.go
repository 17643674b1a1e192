// Package viewcount resolves per-publication view counts from the views
// service in a single batched request.
package viewcount

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/unkn0wn-root/feedcache/feed"
)

const (
	defaultTimeout = 10 * time.Second
	viewsPath      = "/publicationViews"
	maxErrBody     = 512
)

var ErrUnsuccessful = errors.New("viewcount: service reported failure")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("viewcount: unexpected status %d", e.Code)
	}
	return fmt.Sprintf("viewcount: unexpected status %d: %s", e.Code, e.Body)
}

type Config struct {
	// BaseURL is the views service root; the request goes to BaseURL/publicationViews.
	BaseURL    string
	HTTPClient *http.Client
}

type Client struct {
	endpoint string
	http     *http.Client
}

var _ feed.ViewCounter = (*Client)(nil)

func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("viewcount: base URL is required")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{endpoint: base + viewsPath, http: hc}, nil
}

type request struct {
	IDs []string `json:"ids"`
}

type response struct {
	Success bool             `json:"success"`
	Views   []feed.ViewCount `json:"views"`
}

// ViewCounts returns counts for ids. Ids the service does not know are
// absent from the result. An empty ids slice issues no request.
func (c *Client) ViewCounts(ctx context.Context, ids []string) ([]feed.ViewCount, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(request{IDs: ids})
	if err != nil {
		return nil, fmt.Errorf("failed to encode view request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch view counts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode view counts: %w", err)
	}
	if !out.Success {
		return nil, ErrUnsuccessful
	}
	return out.Views, nil
}
