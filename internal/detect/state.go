package detect

import "math"

// Status is the accident state machine's state.
type Status int

const (
	StatusMonitoring Status = iota
	StatusAccidentConfirmed
)

// String returns the wire representation of the status.
func (s Status) String() string {
	if s == StatusAccidentConfirmed {
		return "ACCIDENT_CONFIRMED"
	}
	return "MONITORING"
}

// Thresholds are the tunable trigger levels for accident confirmation.
type Thresholds struct {
	// ProlongedFrames is the cumulative count of collision frames that
	// confirms an accident. The count never resets on quiet frames.
	ProlongedFrames int
	// ContinuousFrames is the run length of back-to-back collision frames
	// that confirms an accident.
	ContinuousFrames int
	// CollisionPercentage confirms when qualifying pairs reach this share
	// of the frame's detection count.
	CollisionPercentage float64
}

// DefaultThresholds returns the standard trigger levels.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ProlongedFrames:     30,
		ContinuousFrames:    120,
		CollisionPercentage: 0.20,
	}
}

// Observation is one frame's contribution to the accident counters.
type Observation struct {
	FrameIndex      int
	DetectionCount  int
	QualifyingPairs int
	AnyCollision    bool
	MaxSpeed        float64
}

// SessionSnapshot is an immutable copy of the accumulated counters, taken
// for the incident-response workflow so it shares no state with the
// ongoing frame loop.
type SessionSnapshot struct {
	ProlongedCollisionCount   int
	ContinuousCollisionFrames int
	NoMovementFrames          int
	CollisionTotal            int
	PeakSpeed                 float64
	Status                    Status
	WindowStart               int
	WindowEnd                 int
}

// StateMachine accumulates collision and motion signals across frames and
// latches into ACCIDENT_CONFIRMED. The latch is monotonic: once confirmed,
// no sequence of quiet frames reverts it. One instance per monitoring
// session; not safe for concurrent use.
type StateMachine struct {
	thresholds Thresholds

	prolongedCollisionCount   int
	continuousCollisionFrames int
	noMovementFrames          int
	collisionTotal            int
	peakSpeed                 float64
	status                    Status
	windowStart               int
	windowEnd                 int
	hasWindow                 bool
}

// NewStateMachine creates a state machine in MONITORING with the given
// thresholds. Zero-valued threshold fields fall back to defaults.
func NewStateMachine(t Thresholds) *StateMachine {
	def := DefaultThresholds()
	if t.ProlongedFrames <= 0 {
		t.ProlongedFrames = def.ProlongedFrames
	}
	if t.ContinuousFrames <= 0 {
		t.ContinuousFrames = def.ContinuousFrames
	}
	if t.CollisionPercentage <= 0 {
		t.CollisionPercentage = def.CollisionPercentage
	}
	return &StateMachine{thresholds: t, windowStart: -1, windowEnd: -1}
}

// Observe folds one frame into the counters and returns the resulting
// status. Frames must arrive in non-decreasing index order.
func (m *StateMachine) Observe(o Observation) Status {
	if o.AnyCollision {
		m.prolongedCollisionCount++
		m.continuousCollisionFrames++
		m.noMovementFrames = 0
		m.collisionTotal += o.QualifyingPairs
	} else {
		m.noMovementFrames++
		m.continuousCollisionFrames = 0
	}

	m.peakSpeed = math.Max(m.peakSpeed, o.MaxSpeed)

	detections := o.DetectionCount
	if detections < 1 {
		detections = 1
	}
	collisionPercentage := float64(o.QualifyingPairs) / float64(detections)

	if m.status == StatusMonitoring {
		if m.prolongedCollisionCount >= m.thresholds.ProlongedFrames ||
			m.continuousCollisionFrames >= m.thresholds.ContinuousFrames ||
			collisionPercentage >= m.thresholds.CollisionPercentage {
			m.status = StatusAccidentConfirmed
		}
	}

	if m.status == StatusAccidentConfirmed {
		if !m.hasWindow {
			m.windowStart = o.FrameIndex
			m.hasWindow = true
		}
		m.windowEnd = o.FrameIndex
	}

	return m.status
}

// Status returns the current state.
func (m *StateMachine) Status() Status {
	return m.status
}

// Window returns the inclusive confirmed-accident frame range. ok is false
// before the first confirmed frame.
func (m *StateMachine) Window() (start, end int, ok bool) {
	return m.windowStart, m.windowEnd, m.hasWindow
}

// Snapshot copies the accumulated counters for background use.
func (m *StateMachine) Snapshot() SessionSnapshot {
	return SessionSnapshot{
		ProlongedCollisionCount:   m.prolongedCollisionCount,
		ContinuousCollisionFrames: m.continuousCollisionFrames,
		NoMovementFrames:          m.noMovementFrames,
		CollisionTotal:            m.collisionTotal,
		PeakSpeed:                 m.peakSpeed,
		Status:                    m.status,
		WindowStart:               m.windowStart,
		WindowEnd:                 m.windowEnd,
	}
}
