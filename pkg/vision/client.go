// Package vision provides a client for the image-analysis collaborator.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the vision collaborator operations.
type Client interface {
	// Infer uploads an image and returns detections and measurements.
	Infer(ctx context.Context, imagePath, projectType string) (*InferResponse, error)
}

// InferResponse is the parsed vision analysis payload.
type InferResponse struct {
	Detections       []Detection    `json:"detections"`
	Measurements     Measurements   `json:"measurements"`
	SceneDescription string         `json:"scene_description"`
	Summary          map[string]any `json:"summary,omitempty"`
}

// Detection is one detected object.
type Detection struct {
	Class      string    `json:"class"`
	Confidence float64   `json:"confidence"`
	BBox       []float64 `json:"bbox,omitempty"`
}

// Measurements holds measurable image features.
type Measurements struct {
	EstimatedAreaSqft float64 `json:"estimated_area_sqft"`
}

// Option configures the vision client.
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

// NewClient creates a new vision collaborator client. The timeout bounds
// the whole round-trip; a hung collaborator surfaces as a stage failure,
// never as a stuck pipeline.
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

func (c *httpClient) Infer(ctx context.Context, imagePath, projectType string) (*InferResponse, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return nil, eris.Wrapf(err, "vision: open image %s", imagePath)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filepath.Base(imagePath))
	if err != nil {
		return nil, eris.Wrap(err, "vision: create form file")
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, eris.Wrap(err, "vision: copy image")
	}
	if err := mw.WriteField("project_type", projectType); err != nil {
		return nil, eris.Wrap(err, "vision: write project_type field")
	}
	if err := mw.Close(); err != nil {
		return nil, eris.Wrap(err, "vision: close multipart writer")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/infer", &buf)
	if err != nil {
		return nil, eris.Wrap(err, "vision: create request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "vision: request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "vision: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.New(fmt.Sprintf("vision: unexpected status %d: %s", resp.StatusCode, string(body)))
	}

	var result InferResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "vision: unmarshal response")
	}

	return &result, nil
}
