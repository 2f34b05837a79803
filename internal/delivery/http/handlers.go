package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/roadwatch/backend/internal/domain"
	"github.com/roadwatch/backend/internal/pipeline"
)

// VideoProcessor runs the full decision pipeline over one video.
type VideoProcessor interface {
	ProcessVideo(ctx context.Context, path string) (*pipeline.Result, error)
}

// Handler contains all HTTP handlers
type Handler struct {
	processor VideoProcessor
	repo      domain.IncidentRepository
}

// NewHandler creates a new handler
func NewHandler(processor VideoProcessor, repo domain.IncidentRepository) *Handler {
	return &Handler{
		processor: processor,
		repo:      repo,
	}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := h.repo.Health(c.Context()); err != nil {
		dbStatus = "unavailable"
	}
	return c.JSON(fiber.Map{
		"status":   "ok",
		"service":  "roadwatch-backend",
		"version":  "1.0.0",
		"database": dbStatus,
	})
}

type detectRequest struct {
	VideoPath string `json:"video_path"`
}

// Detect runs the accident-detection pipeline over the given video and
// returns the session result once the stream is fully consumed.
func (h *Handler) Detect(c *fiber.Ctx) error {
	var req detectRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if req.VideoPath == "" {
		return fiber.NewError(fiber.StatusBadRequest, "video_path is required")
	}

	result, err := h.processor.ProcessVideo(c.Context(), req.VideoPath)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "Failed to open video source")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}

// ListIncidents returns recent incident reports
func (h *Handler) ListIncidents(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	incidents, err := h.repo.ListIncidents(c.Context(), limit)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch incidents")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    incidents,
		"count":   len(incidents),
	})
}

// GetIncident returns one incident report by ID
func (h *Handler) GetIncident(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid incident ID")
	}

	incident, err := h.repo.GetIncident(c.Context(), id)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch incident")
	}
	if incident == nil {
		return fiber.NewError(fiber.StatusNotFound, "Incident not found")
	}

	return c.JSON(domain.IncidentResponse{
		Data:    *incident,
		Success: true,
	})
}
