package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o", body["model"])
		assert.EqualValues(t, 2000, body["max_tokens"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "analysis text"}}]}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	text, err := client.ChatCompletion(context.Background(), ChatRequest{Prompt: "describe"})
	require.NoError(t, err)
	assert.Equal(t, "analysis text", text)
}

func TestChatCompletionWithImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body chatBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Messages, 1)

		// Multimodal content is a part list, not a plain string.
		parts, ok := body.Messages[0].Content.([]any)
		require.True(t, ok)
		require.Len(t, parts, 2)

		img := parts[1].(map[string]any)
		assert.Equal(t, "image_url", img["type"])
		uri := img["image_url"].(map[string]any)["url"].(string)
		assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/png;base64,"))
		require.NoError(t, err)
		assert.Equal(t, "raw-image", string(decoded))

		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "ok"}}]}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.ChatCompletion(context.Background(), ChatRequest{
		Prompt:   "describe",
		Image:    []byte("raw-image"),
		MimeType: "image/png",
	})
	require.NoError(t, err)
}

func TestChatCompletionCustomHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://estimategenie.net", r.Header.Get("HTTP-Referer"))
		assert.Equal(t, "EstimateGenie", r.Header.Get("X-Title"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "openai/gpt-oss-20b", body["model"])

		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "ok"}}]}`))
	}))
	defer srv.Close()

	client := NewClient("test-key",
		WithBaseURL(srv.URL),
		WithModel("openai/gpt-oss-20b"),
		WithHeader("HTTP-Referer", "https://estimategenie.net"),
		WithHeader("X-Title", "EstimateGenie"),
	)
	_, err := client.ChatCompletion(context.Background(), ChatRequest{Prompt: "describe"})
	require.NoError(t, err)
}

func TestChatCompletionErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"rate_limit", http.StatusTooManyRequests, `{"error": "rate limit"}`, "unexpected status 429"},
		{"malformed", http.StatusOK, `{invalid`, "unmarshal response"},
		{"empty", http.StatusOK, `{"choices": []}`, "empty response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("test-key", WithBaseURL(srv.URL))
			_, err := client.ChatCompletion(context.Background(), ChatRequest{Prompt: "x"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWithTimeout(t *testing.T) {
	c := NewClient("test-key", WithTimeout(5*time.Second)).(*httpClient)
	assert.Equal(t, 5*time.Second, c.http.Timeout)

	c = NewClient("test-key", WithTimeout(0)).(*httpClient)
	assert.Equal(t, 60*time.Second, c.http.Timeout)
}
