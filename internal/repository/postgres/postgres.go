package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roadwatch/backend/internal/domain"
)

// PostgresRepository implements domain.IncidentRepository
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Init creates the incidents table if it does not exist.
func (r *PostgresRepository) Init(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS incidents (
			id UUID PRIMARY KEY,
			occurred_at TIMESTAMPTZ NOT NULL,
			lat DOUBLE PRECISION NOT NULL,
			lon DOUBLE PRECISION NOT NULL,
			collision_total INTEGER NOT NULL,
			peak_speed DOUBLE PRECISION NOT NULL,
			weather_description TEXT NOT NULL,
			temperature DOUBLE PRECISION NOT NULL,
			vehicle_events TEXT[] NOT NULL DEFAULT '{}',
			police_name TEXT,
			police_lat DOUBLE PRECISION,
			police_lon DOUBLE PRECISION,
			police_distance_km DOUBLE PRECISION,
			hospital_name TEXT,
			hospital_lat DOUBLE PRECISION,
			hospital_lon DOUBLE PRECISION,
			hospital_distance_km DOUBLE PRECISION,
			severity TEXT NOT NULL,
			clip_path TEXT,
			notified BOOLEAN NOT NULL DEFAULT FALSE
		);
		CREATE INDEX IF NOT EXISTS idx_incidents_occurred ON incidents(occurred_at);
	`
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: failed to create schema: %w", err)
	}
	return nil
}

// SaveIncident persists an incident report to PostgreSQL
func (r *PostgresRepository) SaveIncident(ctx context.Context, report domain.IncidentReport) error {
	query := `
		INSERT INTO incidents (
			id, occurred_at, lat, lon, collision_total, peak_speed,
			weather_description, temperature, vehicle_events,
			police_name, police_lat, police_lon, police_distance_km,
			hospital_name, hospital_lat, hospital_lon, hospital_distance_km,
			severity, clip_path, notified
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	var (
		policeName, hospitalName           *string
		policeLat, policeLon, policeDist   *float64
		hospitalLat, hospitalLon, hospDist *float64
	)
	if p := report.NearestPolice; p != nil {
		policeName, policeLat, policeLon, policeDist = &p.Name, &p.Latitude, &p.Longitude, &p.DistanceKm
	}
	if h := report.NearestHospital; h != nil {
		hospitalName, hospitalLat, hospitalLon, hospDist = &h.Name, &h.Latitude, &h.Longitude, &h.DistanceKm
	}

	events := report.VehicleEvents
	if events == nil {
		events = []string{}
	}

	_, err := r.pool.Exec(ctx, query,
		report.ID, report.Timestamp, report.Latitude, report.Longitude,
		report.CollisionTotal, report.PeakSpeed,
		report.WeatherDescription, report.Temperature, events,
		policeName, policeLat, policeLon, policeDist,
		hospitalName, hospitalLat, hospitalLon, hospDist,
		string(report.Severity), report.ClipPath, report.Notified,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save incident: %w", err)
	}
	return nil
}

const selectColumns = `
	id, occurred_at, lat, lon, collision_total, peak_speed,
	weather_description, temperature, vehicle_events,
	police_name, police_lat, police_lon, police_distance_km,
	hospital_name, hospital_lat, hospital_lon, hospital_distance_km,
	severity, clip_path, notified
`

// ListIncidents retrieves the most recent incidents from PostgreSQL
func (r *PostgresRepository) ListIncidents(ctx context.Context, limit int) ([]domain.IncidentReport, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT %s FROM incidents ORDER BY occurred_at DESC LIMIT $1`, selectColumns)

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query incidents: %w", err)
	}
	defer rows.Close()

	var results []domain.IncidentReport
	for rows.Next() {
		report, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, report)
	}
	return results, nil
}

// GetIncident retrieves a single incident by ID; (nil, nil) when absent.
func (r *PostgresRepository) GetIncident(ctx context.Context, id uuid.UUID) (*domain.IncidentReport, error) {
	query := fmt.Sprintf(`SELECT %s FROM incidents WHERE id = $1`, selectColumns)

	row := r.pool.QueryRow(ctx, query, id)
	report, err := scanIncident(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanIncident(row scannable) (domain.IncidentReport, error) {
	var (
		report                             domain.IncidentReport
		severity                           string
		clipPath                           *string
		policeName, hospitalName           *string
		policeLat, policeLon, policeDist   *float64
		hospitalLat, hospitalLon, hospDist *float64
	)

	err := row.Scan(
		&report.ID, &report.Timestamp, &report.Latitude, &report.Longitude,
		&report.CollisionTotal, &report.PeakSpeed,
		&report.WeatherDescription, &report.Temperature, &report.VehicleEvents,
		&policeName, &policeLat, &policeLon, &policeDist,
		&hospitalName, &hospitalLat, &hospitalLon, &hospDist,
		&severity, &clipPath, &report.Notified,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return report, err
		}
		return report, fmt.Errorf("postgres: failed to scan incident row: %w", err)
	}

	report.Severity = domain.Severity(severity)
	if clipPath != nil {
		report.ClipPath = *clipPath
	}
	if policeName != nil {
		report.NearestPolice = &domain.ServiceLocation{
			Name:       *policeName,
			Latitude:   deref(policeLat),
			Longitude:  deref(policeLon),
			Kind:       domain.ServicePolice,
			DistanceKm: deref(policeDist),
		}
	}
	if hospitalName != nil {
		report.NearestHospital = &domain.ServiceLocation{
			Name:       *hospitalName,
			Latitude:   deref(hospitalLat),
			Longitude:  deref(hospitalLon),
			Kind:       domain.ServiceHospital,
			DistanceKm: deref(hospDist),
		}
	}
	return report, nil
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}
