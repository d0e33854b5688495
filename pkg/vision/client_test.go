package vision

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "site.jpg")
	require.NoError(t, os.WriteFile(path, []byte("fake-jpeg-bytes"), 0o644))
	return path
}

func TestInfer(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body: `{
				"detections": [{"class": "bathtub", "confidence": 0.92, "bbox": [1, 2, 3, 4]}],
				"measurements": {"estimated_area_sqft": 48.5},
				"scene_description": "dated bathroom with tub"
			}`,
		},
		{
			name:    "server_error",
			status:  http.StatusInternalServerError,
			body:    `{"error": "model not loaded"}`,
			wantErr: "unexpected status 500",
		},
		{
			name:    "malformed_response",
			status:  http.StatusOK,
			body:    `{invalid json`,
			wantErr: "unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/infer", r.URL.Path)

				require.NoError(t, r.ParseMultipartForm(1<<20))
				assert.Equal(t, "bathroom", r.FormValue("project_type"))

				file, header, err := r.FormFile("file")
				require.NoError(t, err)
				defer file.Close()
				assert.Equal(t, "site.jpg", header.Filename)
				data, err := io.ReadAll(file)
				require.NoError(t, err)
				assert.Equal(t, "fake-jpeg-bytes", string(data))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient(srv.URL, 5*time.Second)
			resp, err := client.Infer(context.Background(), writeTestImage(t), "bathroom")

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, resp)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, resp)
			require.Len(t, resp.Detections, 1)
			assert.Equal(t, "bathtub", resp.Detections[0].Class)
			assert.InDelta(t, 0.92, resp.Detections[0].Confidence, 0.001)
			assert.InDelta(t, 48.5, resp.Measurements.EstimatedAreaSqft, 0.001)
			assert.Equal(t, "dated bathroom with tub", resp.SceneDescription)
		})
	}
}

func TestInferMissingImage(t *testing.T) {
	client := NewClient("http://localhost:1", time.Second)
	_, err := client.Infer(context.Background(), filepath.Join(t.TempDir(), "absent.jpg"), "bathroom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open image")
}
