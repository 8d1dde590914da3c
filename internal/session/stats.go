package session

import (
	"time"

	"github.com/sweeney/rep-counter/internal/calibration"
	"github.com/sweeney/rep-counter/internal/exercise"
	"github.com/sweeney/rep-counter/internal/logic"
)

// Stats is a point-in-time view of the active mode.
type Stats struct {
	SessionID   string            `json:"session_id"`
	Mode        string            `json:"mode"`
	Label       string            `json:"label"`
	Kind        exercise.Kind     `json:"kind"`
	Count       int               `json:"count"`
	Phase       logic.Phase       `json:"phase,omitempty"`
	Posture     logic.Status      `json:"posture"`
	Seconds     int               `json:"seconds"`
	HoldRunning bool              `json:"hold_running"`
	GateOpen    bool              `json:"gate_open"`
	Calibrating bool              `json:"calibrating"`
	Calibration *calibration.Data `json:"calibration,omitempty"`
	// Frames and Skipped are throughput counters for diagnostics. They move on
	// rejected frames too; nothing in the exercise pipeline reads them.
	Frames      uint64            `json:"frames"`
	Skipped     uint64            `json:"skipped"`
	LastFrame   time.Time         `json:"last_frame"`
}

// Stats returns the active mode's count, phase, posture and elapsed hold
// seconds as of the last processed frame.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(s.mode)
	out := Stats{
		SessionID:   s.id,
		Mode:        s.mode.String(),
		Label:       st.profile.Label,
		Kind:        st.profile.Kind,
		Posture:     s.posture.Status(s.mode),
		Calibrating: s.calibrating.Load(),
		Frames:      s.frames,
		Skipped:     s.skipped,
		LastFrame:   s.lastFrame,
	}
	if st.reps != nil {
		out.Count = st.reps.Count()
		out.Phase = st.reps.Phase()
		out.GateOpen = st.reps.GateOpen()
	}
	if st.hold != nil {
		out.Seconds = int(st.hold.Elapsed(st.lastTime) / time.Second)
		out.HoldRunning = st.hold.Running()
	}
	if s.cal != nil {
		c := *s.cal
		out.Calibration = &c
	}
	return out
}
