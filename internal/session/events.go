package session

import (
	"time"

	"github.com/sweeney/rep-counter/internal/calibration"
	"github.com/sweeney/rep-counter/internal/exercise"
	"github.com/sweeney/rep-counter/internal/logic"
	"github.com/sweeney/rep-counter/internal/pose"
	"github.com/sweeney/rep-counter/internal/telemetry"
)

// EventType identifies the kind of an Event.
type EventType string

const (
	EventRepCount            EventType = "rep_count"
	EventTimeUpdate          EventType = "time_update"
	EventPostureChange       EventType = "posture_change"
	EventFormFeedback        EventType = "form_feedback"
	EventTelemetry           EventType = "telemetry"
	EventCalibrationComplete EventType = "calibration_complete"
)

// FeedbackType distinguishes encouragement from corrections.
type FeedbackType string

const (
	FeedbackSuccess FeedbackType = "success"
	FeedbackWarning FeedbackType = "warning"
)

// Feedback is a human-readable form message.
type Feedback struct {
	Message string       `json:"message"`
	Type    FeedbackType `json:"type"`
	Time    time.Time    `json:"timestamp"`
	// Sound asks the host to play the success cue.
	Sound bool `json:"sound,omitempty"`
}

// Event is one emitted notification. Only the fields of its Type are set.
type Event struct {
	Type      EventType
	SessionID string
	Time      time.Time
	Mode      exercise.Mode

	Count       int
	Seconds     int
	Paused      bool
	Status      logic.Status
	Landmarks   *pose.Frame
	Feedback    *Feedback
	Telemetry   *telemetry.Record
	Calibration *calibration.Data
}

// Handlers is the callback surface. Every field is optional. Handlers run on
// the processing goroutine and must not block.
type Handlers struct {
	OnRepCount            func(count int)
	OnTimeUpdate          func(seconds int)
	OnPostureChange       func(status logic.Status, landmarks pose.Frame)
	OnFormFeedback        func(Feedback)
	OnTelemetry           func(telemetry.Record)
	OnCalibrationComplete func(calibration.Data)

	// Sink receives every event after the typed handler, for fan-out.
	Sink func(Event)
}

func (h Handlers) dispatch(e Event) {
	switch e.Type {
	case EventRepCount:
		if h.OnRepCount != nil {
			h.OnRepCount(e.Count)
		}
	case EventTimeUpdate:
		if h.OnTimeUpdate != nil {
			h.OnTimeUpdate(e.Seconds)
		}
	case EventPostureChange:
		if h.OnPostureChange != nil && e.Landmarks != nil {
			h.OnPostureChange(e.Status, *e.Landmarks)
		}
	case EventFormFeedback:
		if h.OnFormFeedback != nil && e.Feedback != nil {
			h.OnFormFeedback(*e.Feedback)
		}
	case EventTelemetry:
		if h.OnTelemetry != nil && e.Telemetry != nil {
			h.OnTelemetry(*e.Telemetry)
		}
	case EventCalibrationComplete:
		if h.OnCalibrationComplete != nil && e.Calibration != nil {
			h.OnCalibrationComplete(*e.Calibration)
		}
	}
	if h.Sink != nil {
		h.Sink(e)
	}
}
