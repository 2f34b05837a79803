package detect

import "github.com/roadwatch/backend/internal/domain"

// Evaluator classifies detection pairs of a single frame. A pair qualifies
// as a collision when its overlap ratio exceeds OverlapThreshold, or as a
// proximity event when its center distance falls below MinDistance.
type Evaluator struct {
	OverlapThreshold float64
	MinDistance      float64
}

// FrameCollisions is the evaluator's per-frame output. Pairs are not
// retained beyond the frame; only counter contributions persist.
// QualifyingPairs counts only overlap-qualified pairs, the ones that feed
// the accident counters; proximity-only events ride along in Pairs.
type FrameCollisions struct {
	Pairs           []domain.CollisionPair
	QualifyingPairs int
	AnyCollision    bool
}

// Evaluate compares every unordered pair of detections in the frame.
func (e Evaluator) Evaluate(detections []domain.Detection) FrameCollisions {
	var out FrameCollisions
	for i := 0; i < len(detections); i++ {
		for j := i + 1; j < len(detections); j++ {
			iou := OverlapRatio(detections[i].Box, detections[j].Box)
			dist := CenterDistance(detections[i].Box, detections[j].Box)

			if iou > e.OverlapThreshold || dist < e.MinDistance {
				out.Pairs = append(out.Pairs, domain.CollisionPair{
					I:            i,
					J:            j,
					OverlapRatio: iou,
					Proximity:    dist,
				})
				if iou > e.OverlapThreshold {
					out.QualifyingPairs++
					out.AnyCollision = true
				}
			}
		}
	}
	return out
}
