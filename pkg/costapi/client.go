// Package costapi provides a client for the cost-baseline collaborator.
package costapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the cost-baseline collaborator operations.
type Client interface {
	// Estimate prices a coarse material list for a project.
	Estimate(ctx context.Context, req EstimateRequest) (*EstimateResponse, error)
}

// EstimateRequest is the cost-baseline request payload.
type EstimateRequest struct {
	Zip         string         `json:"zip"`
	Region      string         `json:"region"`
	ProjectType string         `json:"project_type"`
	Materials   []MaterialSpec `json:"materials"`
}

// MaterialSpec names one material with its quantity.
type MaterialSpec struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// EstimateResponse is the priced baseline returned by the collaborator.
type EstimateResponse struct {
	Materials []MaterialLine `json:"materials"`
	Labor     []LaborLine    `json:"labor"`
	Totals    Totals         `json:"totals"`
}

// MaterialLine is one priced material row from the baseline.
type MaterialLine struct {
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	Unit      string  `json:"unit"`
	UnitPrice float64 `json:"unit_price"`
	Total     float64 `json:"total"`
}

// LaborLine is one priced labor row from the baseline.
type LaborLine struct {
	Trade string  `json:"trade"`
	Hours float64 `json:"hours"`
	Rate  float64 `json:"rate"`
	Total float64 `json:"total"`
}

// Totals summarizes the baseline.
type Totals struct {
	Materials float64 `json:"materials"`
	Labor     float64 `json:"labor"`
	Total     float64 `json:"total"`
}

// Option configures the costapi client.
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
	baseURL string
	http    *http.Client
}

// NewClient creates a new cost-baseline client.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Estimate(ctx context.Context, er EstimateRequest) (*EstimateResponse, error) {
	payload, err := json.Marshal(er)
	if err != nil {
		return nil, eris.Wrap(err, "costapi: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/estimate", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "costapi: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "costapi: request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "costapi: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.New(fmt.Sprintf("costapi: unexpected status %d: %s", resp.StatusCode, string(body)))
	}

	var result EstimateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "costapi: unmarshal response")
	}

	return &result, nil
}
