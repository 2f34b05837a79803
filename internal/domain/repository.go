package domain

import (
	"context"

	"github.com/google/uuid"
)

// IncidentRepository defines the interface for incident persistence.
// This follows the Dependency Inversion Principle - domain defines the interface
type IncidentRepository interface {
	// SaveIncident persists a confirmed incident report
	SaveIncident(ctx context.Context, report IncidentReport) error

	// ListIncidents retrieves the most recent incident reports
	ListIncidents(ctx context.Context, limit int) ([]IncidentReport, error)

	// GetIncident retrieves a single incident by ID
	GetIncident(ctx context.Context, id uuid.UUID) (*IncidentReport, error)

	// Health checks database connectivity
	Health(ctx context.Context) error
}

// TelemetryProvider supplies real vehicle telemetry tags (e.g. "Overspeeding",
// "Hard braking") for the report. Optional; a nil provider means no events.
type TelemetryProvider interface {
	VehicleEvents(ctx context.Context) ([]string, error)
}
