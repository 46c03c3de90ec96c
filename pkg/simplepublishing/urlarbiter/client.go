// Package urlarbiter provides an HTTP client for the path reservation
// service. It implements simplepublishing.PathReserver: a path must be
// reserved for a publishing app before anything is written to a content
// store at that path.
package urlarbiter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tendant/simple-publishing/pkg/simplepublishing"
)

// Client talks to the path reservation service.
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

// NewClient creates a path reservation client for the given base URL
func NewClient(baseURL string, options ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, option := range options {
		option(c)
	}
	return c
}

type reserveRequest struct {
	PublishingApp string `json:"publishing_app"`
}

type reserveResponse struct {
	Path          string `json:"path"`
	PublishingApp string `json:"publishing_app"`
}

// Reserve claims basePath for publishingApp. A path owned by a different app
// fails with *simplepublishing.ConflictError naming the owner; any
// transport-level failure fails with *simplepublishing.ArbitrationError.
func (c *Client) Reserve(ctx context.Context, basePath, publishingApp string) error {
	body, err := json.Marshal(reserveRequest{PublishingApp: publishingApp})
	if err != nil {
		return &simplepublishing.ArbitrationError{Err: err}
	}

	url := c.baseURL + "/paths" + basePath
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return &simplepublishing.ArbitrationError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &simplepublishing.ArbitrationError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusConflict:
		var conflict reserveResponse
		// A malformed conflict body still reports the conflict, just
		// without the owning app.
		json.NewDecoder(resp.Body).Decode(&conflict)
		return &simplepublishing.ConflictError{
			Resource:  "path",
			Path:      basePath,
			OwningApp: conflict.PublishingApp,
		}
	default:
		return &simplepublishing.ArbitrationError{
			Err: fmt.Errorf("path reservation service responded %d for %s", resp.StatusCode, basePath),
		}
	}
}
