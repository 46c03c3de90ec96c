// Package contentstore provides an HTTP client for downstream content
// stores (draft and live). It implements simplepublishing.ContentStore:
// representations are PUT to /content<base_path> as JSON and removed with
// DELETE on the same path. Status interpretation is the caller's job; the
// client only reports what the store said.
package contentstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to one content store instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption represents a functional option for configuring the client
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a content store client for the given base URL
func NewClient(baseURL string, options ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Put writes a store-facing projection to /content<base_path> and returns
// the upstream status code.
func (c *Client) Put(ctx context.Context, basePath string, projection map[string]interface{}) (int, error) {
	body, err := json.Marshal(projection)
	if err != nil {
		return 0, fmt.Errorf("marshal projection: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.contentURL(basePath), bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

// Delete removes the representation at /content<base_path> and returns the
// upstream status code.
func (c *Client) Delete(ctx context.Context, basePath string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.contentURL(basePath), nil)
	if err != nil {
		return 0, err
	}

	return c.do(req)
}

func (c *Client) do(req *http.Request) (int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("content store request: %w", err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

func (c *Client) contentURL(basePath string) string {
	return c.baseURL + "/content" + basePath
}
