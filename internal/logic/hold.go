package logic

import "time"

// HoldUpdate is the outcome of feeding one frame to a HoldTimer.
type HoldUpdate struct {
	// Emit is true when a time update should be reported.
	Emit bool
	// Seconds is the cumulative hold time in whole seconds.
	Seconds int
	// Started is true on the frame the timer starts running.
	Started bool
	// Paused is true on the frame the timer stops.
	Paused bool
}

// HoldTimer accumulates time only while posture stays valid.
type HoldTimer struct {
	accumulated time.Duration
	running     bool
	start       time.Time
}

// NewHoldTimer creates a stopped timer at zero.
func NewHoldTimer() *HoldTimer {
	return &HoldTimer{}
}

// Update feeds one frame. since is when the current valid streak began; when
// non-zero and not after t, a newly started hold is anchored there so the
// hysteresis delay is not lost. A pause is accounted up to t.
func (h *HoldTimer) Update(t time.Time, valid bool, since time.Time) HoldUpdate {
	if valid {
		var u HoldUpdate
		if !h.running {
			h.running = true
			h.start = t
			if !since.IsZero() && !since.After(t) {
				h.start = since
			}
			u.Started = true
		}
		u.Emit = true
		u.Seconds = h.seconds(t)
		return u
	}

	if !h.running {
		return HoldUpdate{}
	}
	if t.After(h.start) {
		h.accumulated += t.Sub(h.start)
	}
	h.running = false
	h.start = time.Time{}
	return HoldUpdate{Emit: true, Paused: true, Seconds: h.seconds(t)}
}

// Elapsed returns the cumulative hold time as of t.
func (h *HoldTimer) Elapsed(t time.Time) time.Duration {
	if h.running && t.After(h.start) {
		return h.accumulated + t.Sub(h.start)
	}
	return h.accumulated
}

// Running reports whether the timer is currently advancing.
func (h *HoldTimer) Running() bool {
	return h.running
}

// Accumulated returns the time banked by completed intervals.
func (h *HoldTimer) Accumulated() time.Duration {
	return h.accumulated
}

// Start returns when the running interval began (zero when stopped).
func (h *HoldTimer) Start() time.Time {
	return h.start
}

// Reset stops the timer and clears accumulated time.
func (h *HoldTimer) Reset() {
	h.accumulated = 0
	h.running = false
	h.start = time.Time{}
}

func (h *HoldTimer) seconds(t time.Time) int {
	return int(h.Elapsed(t) / time.Second)
}
