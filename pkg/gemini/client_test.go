package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-2.0-flash-exp:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var body generateBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Contents, 1)
		require.Len(t, body.Contents[0].Parts, 2)
		assert.Equal(t, "analyze this", body.Contents[0].Parts[0].Text)
		require.NotNil(t, body.Contents[0].Parts[1].InlineData)
		assert.Equal(t, "image/png", body.Contents[0].Parts[1].InlineData.MimeType)
		assert.Equal(t, []byte("raw-image"), body.Contents[0].Parts[1].InlineData.Data)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "part one "}, {"text": "part two"}]}}]}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	text, err := client.GenerateContent(context.Background(), GenerateRequest{
		Prompt:   "analyze this",
		Image:    []byte("raw-image"),
		MimeType: "image/png",
	})
	require.NoError(t, err)
	assert.Equal(t, "part one part two", text)
}

func TestGenerateContentTextOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body generateBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Contents[0].Parts, 1)
		assert.Nil(t, body.Contents[0].Parts[0].InlineData)

		_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "ok"}]}}]}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	text, err := client.GenerateContent(context.Background(), GenerateRequest{Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestGenerateContentModelOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-custom:generateContent", r.URL.Path)
		_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "ok"}]}}]}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.GenerateContent(context.Background(), GenerateRequest{
		Model:  "gemini-custom",
		Prompt: "hello",
	})
	require.NoError(t, err)
}

func TestGenerateContentErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"quota", http.StatusTooManyRequests, `{"error": "quota exceeded"}`, "unexpected status 429"},
		{"malformed", http.StatusOK, `{invalid`, "unmarshal response"},
		{"empty", http.StatusOK, `{"candidates": []}`, "empty response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("test-key", WithBaseURL(srv.URL))
			_, err := client.GenerateContent(context.Background(), GenerateRequest{Prompt: "hello"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWithTimeout(t *testing.T) {
	c := NewClient("test-key", WithTimeout(5*time.Second)).(*httpClient)
	assert.Equal(t, 5*time.Second, c.http.Timeout)

	// Non-positive values keep the default.
	c = NewClient("test-key", WithTimeout(0)).(*httpClient)
	assert.Equal(t, 60*time.Second, c.http.Timeout)
}
