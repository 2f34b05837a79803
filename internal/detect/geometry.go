// Package detect implements the per-frame accident decision core: box
// geometry, pairwise collision evaluation, object tracking and the stateful
// accident latch.
package detect

import (
	"math"

	"github.com/roadwatch/backend/internal/domain"
)

// OverlapRatio returns the intersection-over-union of two axis-aligned
// boxes. Non-overlapping boxes yield 0, as do degenerate zero-area boxes.
func OverlapRatio(a, b domain.Box) float64 {
	interX1 := math.Max(a.X1, b.X1)
	interY1 := math.Max(a.Y1, b.Y1)
	interX2 := math.Min(a.X2, b.X2)
	interY2 := math.Min(a.Y2, b.Y2)

	interArea := math.Max(0, interX2-interX1) * math.Max(0, interY2-interY1)
	unionArea := a.Area() + b.Area() - interArea
	if unionArea <= 0 {
		return 0
	}
	return interArea / unionArea
}

// CenterDistance returns the Euclidean distance between two box centers.
func CenterDistance(a, b domain.Box) float64 {
	ax, ay := a.Center()
	bx, by := b.Center()
	return math.Hypot(bx-ax, by-ay)
}

// EstimateSpeed returns the displacement between two box centers divided by
// the elapsed time, in pixels per second. A non-positive dt yields 0.
func EstimateSpeed(prev, curr domain.Box, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	px, py := prev.Center()
	cx, cy := curr.Center()
	return math.Hypot(cx-px, cy-py) / dt
}
