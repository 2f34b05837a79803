package domain

import (
	"time"

	"github.com/google/uuid"
)

// Severity is the coarse urgency tier attached to an incident report.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// ServiceKind distinguishes the emergency service categories we resolve.
type ServiceKind string

const (
	ServicePolice   ServiceKind = "police"
	ServiceHospital ServiceKind = "hospital"
)

// ServiceLocation is one emergency service returned by the point-of-interest
// collaborator, annotated with its distance from the accident site.
type ServiceLocation struct {
	Name       string      `json:"name"`
	Latitude   float64     `json:"lat"`
	Longitude  float64     `json:"lon"`
	Kind       ServiceKind `json:"kind"`
	DistanceKm float64     `json:"distance_km"`
}

// IncidentReport is the immutable record assembled once per confirmed
// accident. Either nearest-service field may be nil when the category
// returned no results; that is a valid report state, not an error.
type IncidentReport struct {
	ID                 uuid.UUID        `json:"id"`
	Timestamp          time.Time        `json:"timestamp"`
	Latitude           float64          `json:"lat"`
	Longitude          float64          `json:"lon"`
	CollisionTotal     int              `json:"collision_total"`
	PeakSpeed          float64          `json:"peak_speed"`
	WeatherDescription string           `json:"weather_description"`
	Temperature        float64          `json:"temperature"`
	VehicleEvents      []string         `json:"vehicle_events"`
	NearestPolice      *ServiceLocation `json:"nearest_police,omitempty"`
	NearestHospital    *ServiceLocation `json:"nearest_hospital,omitempty"`
	Severity           Severity         `json:"severity"`
	ClipPath           string           `json:"clip_path,omitempty"`
	Notified           bool             `json:"notified"`
}

// IncidentResponse wraps an incident report with metadata.
type IncidentResponse struct {
	Data    IncidentReport `json:"data"`
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
}
