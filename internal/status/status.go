// Package status provides a thread-safe status tracker for the rep-counter daemon.
// It is read by the HTTP handlers and the system events published to MQTT.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/rep-counter/internal/session"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Exercise     string
	SourceKind   string
	SourcePath   string
	HeartbeatMs  int64
	Broker       string
	TopicPrefix  string
	HTTPAddr     string
	WSBroker     string // Websocket broker URL for browser MQTT (empty = disabled)
	Telemetry    bool
	CardioBypass bool
}

// EventCounts tallies the session events seen since startup.
type EventCounts struct {
	Reps           int
	PostureChanges int
	Warnings       int
	Calibrations   int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Session       session.Stats
	Counts        EventCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Ready reports whether at least one frame has been processed.
func (s Snapshot) Ready() bool {
	return s.Session.Frames > 0
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update stores the latest session stats.
// Called from runLoop after every frame and control action.
func (t *Tracker) Update(stats session.Stats) {
	t.mu.Lock()
	t.snap.Session = stats
	t.mu.Unlock()
}

// Record tallies one session event.
func (t *Tracker) Record(e session.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch e.Type {
	case session.EventRepCount:
		t.snap.Counts.Reps++
	case session.EventPostureChange:
		t.snap.Counts.PostureChanges++
	case session.EventFormFeedback:
		if e.Feedback != nil && e.Feedback.Type == session.FeedbackWarning {
			t.snap.Counts.Warnings++
		}
	case session.EventCalibrationComplete:
		t.snap.Counts.Calibrations++
	}
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// SetCardioBypass records a runtime change of the cardio bypass option.
func (t *Tracker) SetCardioBypass(on bool) {
	t.mu.Lock()
	t.snap.Config.CardioBypass = on
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	if s.Session.Calibration != nil {
		c := *s.Session.Calibration
		s.Session.Calibration = &c
	}
	return s
}
