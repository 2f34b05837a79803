package postgres

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/roadwatch/backend/internal/domain"
)

// MockRepository implements domain.IncidentRepository for testing/demo mode.
// Reports are kept in memory for the lifetime of the process.
type MockRepository struct {
	mu        sync.RWMutex
	incidents []domain.IncidentReport
}

// NewMockRepository creates a new mock repository
func NewMockRepository() *MockRepository {
	return &MockRepository{}
}

// SaveIncident stores the report in memory
func (r *MockRepository) SaveIncident(ctx context.Context, report domain.IncidentReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.incidents = append(r.incidents, report)
	return nil
}

// ListIncidents returns stored reports, newest first
func (r *MockRepository) ListIncidents(ctx context.Context, limit int) ([]domain.IncidentReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > len(r.incidents) {
		limit = len(r.incidents)
	}
	out := make([]domain.IncidentReport, 0, limit)
	for i := len(r.incidents) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.incidents[i])
	}
	return out, nil
}

// GetIncident returns a stored report by ID, (nil, nil) when absent
func (r *MockRepository) GetIncident(ctx context.Context, id uuid.UUID) (*domain.IncidentReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.incidents {
		if r.incidents[i].ID == id {
			report := r.incidents[i]
			return &report, nil
		}
	}
	return nil, nil
}

// Health always returns nil in mock mode
func (r *MockRepository) Health(ctx context.Context) error {
	return nil
}
