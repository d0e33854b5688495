// Package compose provides a client for the reasoning/compose collaborator,
// which turns vision output and cost data into narrative timeline and steps.
package compose

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

// Client defines the compose collaborator operations.
type Client interface {
	// Compose renders the final narrative sections for a quote.
	Compose(ctx context.Context, req ComposeRequest) (*ComposeResponse, error)
}

// ComposeRequest is the compose request payload. Vision and Costs are
// passed through opaquely; the collaborator owns their interpretation.
type ComposeRequest struct {
	UserInputs map[string]any  `json:"user_inputs"`
	Vision     json.RawMessage `json:"vision,omitempty"`
	Costs      any             `json:"costs,omitempty"`
	Template   Template        `json:"template"`
	Model      string          `json:"model"`
}

// Template tells the collaborator which sections to produce.
type Template struct {
	Phases []string `json:"phases"`
	Output string   `json:"output"`
}

// ComposeResponse wraps the collaborator's output. Output is itself a
// JSON-encoded object with optional timeline and steps sections.
type ComposeResponse struct {
	Output string `json:"output"`
}

// Sections is the decoded shape of ComposeResponse.Output.
type Sections struct {
	Timeline *Timeline  `json:"timeline,omitempty"`
	Steps    []WorkStep `json:"steps,omitempty"`
}

// Timeline is a composed duration estimate.
type Timeline struct {
	EstimatedHours float64 `json:"estimated_hours"`
	EstimatedDays  int     `json:"estimated_days"`
	MinDays        int     `json:"min_days"`
	MaxDays        int     `json:"max_days"`
}

// WorkStep is one composed plan step.
type WorkStep struct {
	Order       int    `json:"order"`
	Description string `json:"description"`
	Duration    string `json:"duration"`
}

// Decode parses the nested Output JSON.
func (r *ComposeResponse) Decode() (*Sections, error) {
	var s Sections
	if err := json.Unmarshal([]byte(r.Output), &s); err != nil {
		return nil, eris.Wrap(err, "compose: decode output sections")
	}
	return &s, nil
}

// Option configures the compose client.
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

// NewClient creates a new compose client. Compose runs are slower than the
// other collaborators, so the timeout is tens of seconds.
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

func (c *httpClient) Compose(ctx context.Context, cr ComposeRequest) (*ComposeResponse, error) {
	payload, err := json.Marshal(cr)
	if err != nil {
		return nil, eris.Wrap(err, "compose: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/compose", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "compose: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "compose: request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "compose: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.New(fmt.Sprintf("compose: unexpected status %d: %s", resp.StatusCode, string(body)))
	}

	var result ComposeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "compose: unmarshal response")
	}

	return &result, nil
}
