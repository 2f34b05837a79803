package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadwatch/backend/internal/domain"
	"github.com/roadwatch/backend/internal/pipeline"
	"github.com/roadwatch/backend/internal/repository/postgres"
)

type stubProcessor struct {
	result *pipeline.Result
	err    error
	path   string
}

func (s *stubProcessor) ProcessVideo(ctx context.Context, path string) (*pipeline.Result, error) {
	s.path = path
	return s.result, s.err
}

func newTestApp(processor VideoProcessor, repo domain.IncidentRepository) *fiber.App {
	app := fiber.New()
	SetupRoutes(app, NewHandler(processor, repo), nil)
	return app
}

func seedIncident(t *testing.T, repo domain.IncidentRepository) domain.IncidentReport {
	t.Helper()
	report := domain.IncidentReport{
		ID:             uuid.New(),
		Timestamp:      time.Now().UTC(),
		Latitude:       19.070,
		Longitude:      72.877,
		CollisionTotal: 4,
		Severity:       domain.SeverityMedium,
		Notified:       true,
	}
	require.NoError(t, repo.SaveIncident(context.Background(), report))
	return report
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()
	app := newTestApp(&stubProcessor{}, postgres.NewMockRepository())

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["database"])
}

func TestDetect(t *testing.T) {
	t.Parallel()

	t.Run("runs the pipeline and returns the result", func(t *testing.T) {
		t.Parallel()
		processor := &stubProcessor{result: &pipeline.Result{
			AccidentDetected: true,
			Notified:         true,
			FramesProcessed:  120,
		}}
		app := newTestApp(processor, postgres.NewMockRepository())

		req := httptest.NewRequest("POST", "/api/v1/detect",
			bytes.NewReader([]byte(`{"video_path": "traffic.mp4"}`)))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "traffic.mp4", processor.path)

		var body struct {
			Success bool            `json:"success"`
			Data    pipeline.Result `json:"data"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.True(t, body.Success)
		assert.True(t, body.Data.AccidentDetected)
		assert.Equal(t, 120, body.Data.FramesProcessed)
	})

	t.Run("missing video path", func(t *testing.T) {
		t.Parallel()
		app := newTestApp(&stubProcessor{}, postgres.NewMockRepository())

		req := httptest.NewRequest("POST", "/api/v1/detect", bytes.NewReader([]byte(`{}`)))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()
		app := newTestApp(&stubProcessor{}, postgres.NewMockRepository())

		req := httptest.NewRequest("POST", "/api/v1/detect", bytes.NewReader([]byte(`not json`)))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unopenable source", func(t *testing.T) {
		t.Parallel()
		processor := &stubProcessor{err: errors.New("no such file")}
		app := newTestApp(processor, postgres.NewMockRepository())

		req := httptest.NewRequest("POST", "/api/v1/detect",
			bytes.NewReader([]byte(`{"video_path": "missing.mp4"}`)))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	})
}

func TestListIncidents(t *testing.T) {
	t.Parallel()

	repo := postgres.NewMockRepository()
	first := seedIncident(t, repo)
	second := seedIncident(t, repo)
	app := newTestApp(&stubProcessor{}, repo)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/incidents", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Success bool                    `json:"success"`
		Data    []domain.IncidentReport `json:"data"`
		Count   int                     `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, 2, body.Count)
	require.Len(t, body.Data, 2)
	// Newest first.
	assert.Equal(t, second.ID, body.Data[0].ID)
	assert.Equal(t, first.ID, body.Data[1].ID)
}

func TestGetIncident(t *testing.T) {
	t.Parallel()

	repo := postgres.NewMockRepository()
	report := seedIncident(t, repo)
	app := newTestApp(&stubProcessor{}, repo)

	t.Run("found", func(t *testing.T) {
		t.Parallel()
		resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/incidents/"+report.ID.String(), nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body domain.IncidentResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.True(t, body.Success)
		assert.Equal(t, report.ID, body.Data.ID)
	})

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()
		resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/incidents/"+uuid.NewString(), nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("invalid id", func(t *testing.T) {
		t.Parallel()
		resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/incidents/not-a-uuid", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}
