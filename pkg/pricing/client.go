// Package pricing provides a client for the optional remote pricing backend.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the remote pricing backend operations.
type Client interface {
	// GetPrice fetches the current price record for a material key.
	// A miss returns (nil, nil); only transport and protocol faults error.
	GetPrice(ctx context.Context, key string) (*PriceRecord, error)
}

// PriceRecord is a remote price entry.
type PriceRecord struct {
	Key         string  `json:"key"`
	Price       float64 `json:"price"`
	Unit        string  `json:"unit"`
	Description string  `json:"description,omitempty"`
}

// Option configures the pricing client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new remote pricing client. The timeout is short on
// purpose: lookups happen on the hot path of every calculation, and an
// unavailable backend must degrade to the in-memory table quickly.
func NewClient(baseURL, apiKey string, timeout time.Duration, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) GetPrice(ctx context.Context, key string) (*PriceRecord, error) {
	reqURL := fmt.Sprintf("%s/v1/prices/%s", c.baseURL, url.PathEscape(key))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "pricing: create request")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "pricing: request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "pricing: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.New(fmt.Sprintf("pricing: unexpected status %d: %s", resp.StatusCode, string(body)))
	}

	var rec PriceRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, eris.Wrap(err, "pricing: unmarshal response")
	}

	return &rec, nil
}
