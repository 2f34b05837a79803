package domain

// Box is an axis-aligned bounding box in pixel coordinates.
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Width returns the box width, never negative.
func (b Box) Width() float64 {
	if b.X2 < b.X1 {
		return 0
	}
	return b.X2 - b.X1
}

// Height returns the box height, never negative.
func (b Box) Height() float64 {
	if b.Y2 < b.Y1 {
		return 0
	}
	return b.Y2 - b.Y1
}

// Area returns the box area, 0 for degenerate boxes.
func (b Box) Area() float64 {
	return b.Width() * b.Height()
}

// Center returns the box center point.
func (b Box) Center() (float64, float64) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// Detection is one object's bounding box and metadata, produced by the
// external detector for a single frame.
type Detection struct {
	Box        Box     `json:"box"`
	Confidence float64 `json:"confidence"`
	ClassID    int     `json:"class_id"`
}

// FrameSnapshot holds everything the detector reported for one frame.
// FrameIndex is strictly increasing within a session.
type FrameSnapshot struct {
	FrameIndex int         `json:"frame_index"`
	Timestamp  float64     `json:"timestamp"`
	Detections []Detection `json:"detections"`
}

// CollisionPair records a qualifying overlap or proximity event between two
// detections of the same frame. Indices refer to the frame's detection list.
type CollisionPair struct {
	I            int     `json:"i"`
	J            int     `json:"j"`
	OverlapRatio float64 `json:"overlap_ratio"`
	Proximity    float64 `json:"proximity"`
}
