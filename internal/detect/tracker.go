package detect

import (
	"sort"

	"github.com/roadwatch/backend/internal/domain"
)

// TrackerConfig tunes the frame-to-frame assignment of object identities.
type TrackerConfig struct {
	// MinIoU is the minimum overlap for an IoU-based match.
	MinIoU float64
	// MaxCenterDistance gates the centroid fallback for objects that moved
	// too far for their boxes to still overlap, in pixels.
	MaxCenterDistance float64
	// MaxMisses is how many consecutive frames a track may go unmatched
	// before it is dropped.
	MaxMisses int
}

// DefaultTrackerConfig returns the tracker defaults.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		MinIoU:            0.1,
		MaxCenterDistance: 75,
		MaxMisses:         5,
	}
}

type track struct {
	id       int
	box      domain.Box
	lastSeen float64
	misses   int
}

// TrackedDetection is a detection annotated with a stable identity and the
// instantaneous speed derived from that identity's previous position.
// Speed is 0 for objects seen for the first time.
type TrackedDetection struct {
	ID        int
	Detection domain.Detection
	Speed     float64
}

// Tracker assigns stable integer identities to detections across frames
// using greedy IoU matching with a centroid-distance fallback. It replaces
// positional list correspondence, which breaks whenever the detector
// reorders its output.
type Tracker struct {
	cfg    TrackerConfig
	nextID int
	tracks []*track
}

// NewTracker creates a tracker. Zero-valued config fields fall back to
// defaults.
func NewTracker(cfg TrackerConfig) *Tracker {
	def := DefaultTrackerConfig()
	if cfg.MinIoU <= 0 {
		cfg.MinIoU = def.MinIoU
	}
	if cfg.MaxCenterDistance <= 0 {
		cfg.MaxCenterDistance = def.MaxCenterDistance
	}
	if cfg.MaxMisses <= 0 {
		cfg.MaxMisses = def.MaxMisses
	}
	return &Tracker{cfg: cfg}
}

type candidate struct {
	trackIdx int
	detIdx   int
	score    float64
}

// Update matches the frame's detections against live tracks and returns
// them with stable IDs and speeds. Timestamp is in seconds and must be
// non-decreasing across calls.
func (t *Tracker) Update(detections []domain.Detection, timestamp float64) []TrackedDetection {
	matchedTrack := make([]bool, len(t.tracks))
	matchedDet := make([]bool, len(detections))
	out := make([]TrackedDetection, len(detections))

	assign := func(ti, di int) {
		tr := t.tracks[ti]
		dt := timestamp - tr.lastSeen
		out[di] = TrackedDetection{
			ID:        tr.id,
			Detection: detections[di],
			Speed:     EstimateSpeed(tr.box, detections[di].Box, dt),
		}
		tr.box = detections[di].Box
		tr.lastSeen = timestamp
		tr.misses = 0
		matchedTrack[ti] = true
		matchedDet[di] = true
	}

	// First pass: greedy IoU, best overlaps first.
	var byIoU []candidate
	for ti, tr := range t.tracks {
		for di, det := range detections {
			if iou := OverlapRatio(tr.box, det.Box); iou >= t.cfg.MinIoU {
				byIoU = append(byIoU, candidate{ti, di, iou})
			}
		}
	}
	sort.Slice(byIoU, func(a, b int) bool { return byIoU[a].score > byIoU[b].score })
	for _, c := range byIoU {
		if !matchedTrack[c.trackIdx] && !matchedDet[c.detIdx] {
			assign(c.trackIdx, c.detIdx)
		}
	}

	// Second pass: centroid distance for whatever is left, closest first.
	var byDist []candidate
	for ti, tr := range t.tracks {
		if matchedTrack[ti] {
			continue
		}
		for di, det := range detections {
			if matchedDet[di] {
				continue
			}
			if d := CenterDistance(tr.box, det.Box); d <= t.cfg.MaxCenterDistance {
				byDist = append(byDist, candidate{ti, di, d})
			}
		}
	}
	sort.Slice(byDist, func(a, b int) bool { return byDist[a].score < byDist[b].score })
	for _, c := range byDist {
		if !matchedTrack[c.trackIdx] && !matchedDet[c.detIdx] {
			assign(c.trackIdx, c.detIdx)
		}
	}

	// Unmatched detections open new tracks.
	for di, det := range detections {
		if matchedDet[di] {
			continue
		}
		tr := &track{id: t.nextID, box: det.Box, lastSeen: timestamp}
		t.nextID++
		t.tracks = append(t.tracks, tr)
		out[di] = TrackedDetection{ID: tr.id, Detection: det}
	}

	// Unmatched tracks accumulate misses and eventually expire.
	alive := t.tracks[:0]
	for ti, tr := range t.tracks {
		if ti < len(matchedTrack) && !matchedTrack[ti] {
			tr.misses++
		}
		if tr.misses <= t.cfg.MaxMisses {
			alive = append(alive, tr)
		}
	}
	t.tracks = alive

	return out
}

// ActiveTracks returns the number of live tracks, matched or coasting.
func (t *Tracker) ActiveTracks() int {
	return len(t.tracks)
}
