package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"uniswap-econ-lab/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout  = 30 * time.Second
	DefaultPageSize = 1000
)

// Client is a GraphQL HTTP client for one subgraph endpoint. It performs a
// single attempt per call; the harvester owns the retry policy so that retry
// accounting stays with the pagination algorithm.
type Client struct {
	endpoint string
	client   *http.Client
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets a custom http.Client (shared connection pool).
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a subgraph client for the given endpoint URL.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the configured endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// FetchSwapsPage fetches one page of swaps within [start, end] (inclusive
// epoch seconds), ordered by ascending id. afterID empty requests the first
// page; otherwise only ids strictly greater than afterID are returned.
func (c *Client) FetchSwapsPage(ctx context.Context, start, end int64, afterID string, first int) ([]*domain.SwapRecord, error) {
	if first <= 0 {
		first = DefaultPageSize
	}

	query := swapsQueryFirst
	if afterID != "" {
		query = swapsQueryAfter
	}

	var data swapsData
	if err := c.post(ctx, query, swapsPageVariables(first, start, end, afterID), &data); err != nil {
		return nil, err
	}

	// A present-but-empty array is a valid terminator; an absent field is a
	// malformed response.
	if data.Swaps == nil {
		return nil, fmt.Errorf("response missing data.swaps")
	}

	return decodeSwaps(*data.Swaps)
}

// post executes one GraphQL request and decodes the data object into out.
// Non-200 status, malformed JSON, and a populated errors array all fail.
func (c *Client) post(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(respBody, 200))
	}

	var envelope graphqlResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	// GraphQL-level failure with HTTP 200.
	if len(envelope.Errors) > 0 {
		return &envelope.Errors[0]
	}

	if envelope.Data == nil {
		return fmt.Errorf("response has neither data nor errors")
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("unmarshal data: %w", err)
		}
	}

	return nil
}

// truncate limits response bodies quoted in error messages.
func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
