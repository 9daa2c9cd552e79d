// Package client is a minimal Go client for the multivec HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Option configures the Client.
type Option interface {
	apply(*Client)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*Client)

func (f optionFunc) apply(c *Client) { f(c) }

// WithHTTPClient sets a custom http.Client (timeouts, transport, proxies).
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *Client) {
		c.http = hc
	})
}

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) Option {
	return optionFunc(func(c *Client) {
		c.apiKey = key
	})
}

// Client talks to a multivec server.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a Client for the given server base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("multivec: invalid base url: %w", err)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
	}
	for _, o := range opts {
		o.apply(c)
	}
	return c, nil
}

// Search runs a two-stage semantic search.
func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	var resp SearchResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/search", req, &resp)
	return resp, err
}

// PutItem stores one item and returns its deterministic item id.
func (c *Client) PutItem(ctx context.Context, item Item) (string, error) {
	var resp putItemResponse
	if err := c.do(ctx, http.MethodPut, "/api/v1/items", item, &resp); err != nil {
		return "", err
	}
	return resp.ItemID, nil
}

// PutBatch stores up to the server's batch limit of items in one call.
// Per-item outcomes are reported in the response; the call itself only
// fails on transport or request-level errors.
func (c *Client) PutBatch(ctx context.Context, items []Item) (BatchResult, error) {
	var resp BatchResult
	err := c.do(ctx, http.MethodPost, "/api/v1/items/batch", batchPutRequest{Items: items}, &resp)
	return resp, err
}

// DeleteDocument removes every item of a document from both collections.
func (c *Client) DeleteDocument(ctx context.Context, docID string) (DeleteResult, error) {
	var resp DeleteResult
	err := c.do(ctx, http.MethodDelete, "/api/v1/documents/"+url.PathEscape(docID), nil, &resp)
	return resp, err
}

// Stats returns per-collection item counts.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var resp Stats
	err := c.do(ctx, http.MethodGet, "/api/v1/stats", nil, &resp)
	return resp, err
}

// Health reports aggregated component health. An unhealthy server answers
// 503 but still carries a report, so the report is returned without error.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var resp HealthStatus
	err := c.do(ctx, http.MethodGet, "/health", nil, &resp)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable && resp.Status != "" {
		return resp, nil
	}
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader = http.NoBody
	if in != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return fmt.Errorf("multivec: encode request: %w", err)
		}
		reader = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("multivec: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("multivec: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("multivec: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}

		var wire struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &wire) == nil {
			apiErr.Code = wire.Code
			apiErr.Message = wire.Message
		}

		// A 503 health report carries a regular body alongside the status.
		if out != nil {
			_ = json.Unmarshal(body, out)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("multivec: decode response: %w", err)
	}
	return nil
}
