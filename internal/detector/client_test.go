package detector

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientDetect(t *testing.T) {
	t.Parallel()

	t.Run("ships the frame and decodes detections", func(t *testing.T) {
		t.Parallel()
		frame := []byte{0xFF, 0xD8, 0x01, 0x02, 0xFF, 0xD9}

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/detect", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var req struct {
				Image      string `json:"image"`
				FrameIndex int    `json:"frame_index"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, base64.StdEncoding.EncodeToString(frame), req.Image)
			assert.Equal(t, 7, req.FrameIndex)

			w.Write([]byte(`{"detections": [
				{"box": [10, 20, 110, 220], "confidence": 0.91, "class_id": 2},
				{"box": [300, 40, 380, 120], "confidence": 0.55, "class_id": 7}
			]}`))
		}))
		defer srv.Close()

		got, err := NewClient(srv.URL).Detect(context.Background(), frame, 7)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 10.0, got[0].Box.X1)
		assert.Equal(t, 220.0, got[0].Box.Y2)
		assert.InDelta(t, 0.91, got[0].Confidence, 1e-9)
		assert.Equal(t, 2, got[0].ClassID)
		assert.Equal(t, 7, got[1].ClassID)
	})

	t.Run("empty frame yields no detections", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"detections": []}`))
		}))
		defer srv.Close()

		got, err := NewClient(srv.URL).Detect(context.Background(), []byte{0x01}, 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("non-200 is an error", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL).Detect(context.Background(), []byte{0x01}, 0)
		assert.ErrorContains(t, err, "unexpected status 503")
	})

	t.Run("unreachable sidecar is an error", func(t *testing.T) {
		t.Parallel()
		_, err := NewClient("http://127.0.0.1:1").Detect(context.Background(), []byte{0x01}, 0)
		assert.Error(t, err)
	})
}

func TestClientHealth(t *testing.T) {
	t.Parallel()

	t.Run("healthy", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/health", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		assert.NoError(t, NewClient(srv.URL).Health(context.Background()))
	})

	t.Run("unhealthy", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		assert.Error(t, NewClient(srv.URL).Health(context.Background()))
	})
}
