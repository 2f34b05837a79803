package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadwatch/backend/internal/domain"
)

func TestTrackerStableIdentities(t *testing.T) {
	t.Parallel()
	tr := NewTracker(DefaultTrackerConfig())

	first := tr.Update([]domain.Detection{
		det(box(0, 0, 50, 50)),
		det(box(200, 0, 250, 50)),
	}, 0)
	require.Len(t, first, 2)
	assert.NotEqual(t, first[0].ID, first[1].ID)
	assert.Zero(t, first[0].Speed)
	assert.Zero(t, first[1].Speed)

	// Same objects, slightly moved, returned in reverse order.
	second := tr.Update([]domain.Detection{
		det(box(205, 0, 255, 50)),
		det(box(5, 0, 55, 50)),
	}, 1.0/30.0)
	require.Len(t, second, 2)
	assert.Equal(t, first[1].ID, second[0].ID)
	assert.Equal(t, first[0].ID, second[1].ID)
}

func TestTrackerSpeedPerIdentity(t *testing.T) {
	t.Parallel()
	tr := NewTracker(DefaultTrackerConfig())

	tr.Update([]domain.Detection{det(box(0, 0, 50, 50))}, 0)
	// 10px displacement over 1/30s: 300 px/s.
	out := tr.Update([]domain.Detection{det(box(10, 0, 60, 50))}, 1.0/30.0)
	require.Len(t, out, 1)
	assert.InDelta(t, 300, out[0].Speed, 1e-6)
}

func TestTrackerNewObjectGetsNewID(t *testing.T) {
	t.Parallel()
	tr := NewTracker(DefaultTrackerConfig())

	first := tr.Update([]domain.Detection{det(box(0, 0, 50, 50))}, 0)
	second := tr.Update([]domain.Detection{
		det(box(2, 0, 52, 50)),
		det(box(400, 400, 450, 450)),
	}, 1.0/30.0)
	require.Len(t, second, 2)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.NotEqual(t, first[0].ID, second[1].ID)
	assert.Zero(t, second[1].Speed)
}

func TestTrackerCentroidFallback(t *testing.T) {
	t.Parallel()
	tr := NewTracker(TrackerConfig{MinIoU: 0.1, MaxCenterDistance: 75, MaxMisses: 5})

	first := tr.Update([]domain.Detection{det(box(0, 0, 20, 20))}, 0)
	// Jumped 60px: no box overlap left, but within centroid range.
	second := tr.Update([]domain.Detection{det(box(60, 0, 80, 20))}, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.InDelta(t, 60, second[0].Speed, 1e-6)
}

func TestTrackerPrunesMissedTracks(t *testing.T) {
	t.Parallel()
	tr := NewTracker(TrackerConfig{MinIoU: 0.1, MaxCenterDistance: 75, MaxMisses: 2})

	first := tr.Update([]domain.Detection{det(box(0, 0, 50, 50))}, 0)
	assert.Equal(t, 1, tr.ActiveTracks())

	// Three empty frames exceed MaxMisses.
	for i := 1; i <= 3; i++ {
		tr.Update(nil, float64(i))
	}
	assert.Zero(t, tr.ActiveTracks())

	// The object reappearing at the same spot is a fresh identity now.
	back := tr.Update([]domain.Detection{det(box(0, 0, 50, 50))}, 4)
	require.Len(t, back, 1)
	assert.NotEqual(t, first[0].ID, back[0].ID)
	assert.Zero(t, back[0].Speed)
}

func TestTrackerCoastingSurvivesShortGap(t *testing.T) {
	t.Parallel()
	tr := NewTracker(TrackerConfig{MinIoU: 0.1, MaxCenterDistance: 75, MaxMisses: 5})

	first := tr.Update([]domain.Detection{det(box(0, 0, 50, 50))}, 0)
	tr.Update(nil, 1)
	tr.Update(nil, 2)

	back := tr.Update([]domain.Detection{det(box(5, 0, 55, 50))}, 3)
	require.Len(t, back, 1)
	assert.Equal(t, first[0].ID, back[0].ID)
}

func TestTrackerGreedyPrefersBestOverlap(t *testing.T) {
	t.Parallel()
	tr := NewTracker(DefaultTrackerConfig())

	first := tr.Update([]domain.Detection{
		det(box(0, 0, 100, 100)),
		det(box(80, 0, 180, 100)),
	}, 0)

	// Both tracks overlap both detections; greedy assignment must keep each
	// identity on its closer box.
	second := tr.Update([]domain.Detection{
		det(box(85, 0, 185, 100)),
		det(box(5, 0, 105, 100)),
	}, 1.0/30.0)
	require.Len(t, second, 2)
	assert.Equal(t, first[1].ID, second[0].ID)
	assert.Equal(t, first[0].ID, second[1].ID)
}
