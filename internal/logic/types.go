// Package logic contains the pure counting state machines: two-phase rep
// counters, hold timers and the cadence guard.
// This package has NO external I/O (no MQTT, GPIO, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Phase is the position of a two-phase rep machine.
type Phase string

const (
	PhaseUp   Phase = "up"
	PhaseDown Phase = "down"
)

// LimbPose is the geometric reading for one independently counted limb.
// Single-limb exercises use exactly one.
type LimbPose struct {
	Down bool
	Up   bool
}

// RepInput is one frame's worth of input to a RepCounter.
type RepInput struct {
	Time time.Time
	// Valid is the hysteresis-filtered posture verdict. Invalid frames are inert.
	Valid bool
	// Start reports whether the canonical start pose holds on this frame.
	Start bool
	// Metric is the mode's primary measurement; it becomes the baseline when
	// start-pose gating opens.
	Metric float64
	Limbs  []LimbPose
}

// RepResult describes what a frame did to a RepCounter.
type RepResult struct {
	// Counted is the number of reps added on this frame.
	Counted int
	// Transitions is the number of limbs that changed phase.
	Transitions int
	// GateOpened is true on the frame where start-pose gating was satisfied.
	GateOpened bool
	// Anomalies lists reps suppressed by the cadence guard.
	Anomalies []Anomaly
}

// Anomaly is a rep whose timing was judged physiologically implausible.
type Anomaly struct {
	Time     time.Time     `json:"time"`
	Reason   AnomalyReason `json:"reason"`
	Interval time.Duration `json:"interval_ns"`
	Average  time.Duration `json:"average_ns"`
}

// AnomalyReason explains why the cadence guard rejected a rep.
type AnomalyReason string

const (
	AnomalyBelowFloor   AnomalyReason = "below_floor"
	AnomalyAcceleration AnomalyReason = "sudden_acceleration"
)

// State is a snapshot of a mode's counting state.
type State struct {
	Phase           Phase         `json:"phase,omitempty"`
	Count           int           `json:"count"`
	LastRep         time.Time     `json:"last_rep"`
	Baseline        float64       `json:"baseline"`
	StableFrames    int           `json:"stable_frames"`
	GateOpen        bool          `json:"gate_open"`
	GoodFrames      int           `json:"good_frames"`
	BadFrames       int           `json:"bad_frames"`
	HoldAccumulated time.Duration `json:"hold_accumulated_ns"`
	HoldRunning     bool          `json:"hold_running"`
	HoldStart       time.Time     `json:"hold_start"`
}
