// Package detector bridges to the external object-detection sidecar over
// HTTP. The sidecar owns the model; this client only ships frames and
// decodes detections.
package detector

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/roadwatch/backend/internal/domain"
)

// Client talks to the detection sidecar.
type Client struct {
	serviceURL string
	httpClient *http.Client
}

// NewClient creates a detector client.
func NewClient(serviceURL string) *Client {
	return &Client{
		serviceURL: serviceURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type detectRequest struct {
	Image      string `json:"image"` // base64-encoded JPEG
	FrameIndex int    `json:"frame_index"`
}

type detectResponse struct {
	Detections []struct {
		Box        [4]float64 `json:"box"`
		Confidence float64    `json:"confidence"`
		ClassID    int        `json:"class_id"`
	} `json:"detections"`
}

// Detect submits one frame and returns its detections.
func (c *Client) Detect(ctx context.Context, frame []byte, frameIndex int) ([]domain.Detection, error) {
	body, err := json.Marshal(detectRequest{
		Image:      base64.StdEncoding.EncodeToString(frame),
		FrameIndex: frameIndex,
	})
	if err != nil {
		return nil, fmt.Errorf("detector: failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/detect", c.serviceURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("detector: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("detector: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector: unexpected status %d", resp.StatusCode)
	}

	var dr detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, fmt.Errorf("detector: failed to decode response: %w", err)
	}

	detections := make([]domain.Detection, 0, len(dr.Detections))
	for _, d := range dr.Detections {
		detections = append(detections, domain.Detection{
			Box: domain.Box{
				X1: d.Box[0],
				Y1: d.Box[1],
				X2: d.Box[2],
				Y2: d.Box[3],
			},
			Confidence: d.Confidence,
			ClassID:    d.ClassID,
		})
	}
	return detections, nil
}

// Health checks sidecar connectivity.
func (c *Client) Health(ctx context.Context) error {
	url := fmt.Sprintf("%s/health", c.serviceURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("detector: failed to create health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("detector: health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("detector: health check returned status %d", resp.StatusCode)
	}
	return nil
}
