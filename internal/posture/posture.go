// Package posture decides whether a frame shows acceptable form for the active
// exercise. Each rule family produces an instant verdict which is then
// debounced per mode so single-frame jitter cannot interrupt counting.
package posture

import (
	"time"

	"github.com/sweeney/rep-counter/internal/exercise"
	"github.com/sweeney/rep-counter/internal/logic"
	"github.com/sweeney/rep-counter/internal/pose"
)

// Options are caller-settable evaluation switches.
type Options struct {
	// CardioBypass forces cardio modes valid even when the instant check
	// fails. Feedback is still reported.
	CardioBypass bool
}

// Verdict is the result of evaluating one frame.
type Verdict struct {
	// Instant is the unfiltered rule outcome for this frame.
	Instant bool
	// Valid is the debounced outcome used for counting and timing.
	Valid bool
	// Bypassed is true when the cardio bypass overrode a failing check.
	Bypassed bool
	Status   logic.Status
	Changed  bool
	// Since is when the streak behind the current status began.
	Since time.Time
	// Reason is a stable identifier of the first failing check.
	Reason      string
	Message     string
	Orientation pose.Orientation
}

// Evaluator owns one debounced status per exercise mode.
type Evaluator struct {
	opts   Options
	states [exercise.NumModes]*logic.Debounce
}

// NewEvaluator creates an Evaluator with every mode unknown.
func NewEvaluator(opts Options) *Evaluator {
	e := &Evaluator{opts: opts}
	for _, m := range exercise.Modes() {
		p := exercise.ProfileFor(m)
		e.states[m] = logic.NewDebounce(p.GoodFrames, p.BadFrames)
	}
	return e
}

// SetOptions replaces the evaluation switches.
func (e *Evaluator) SetOptions(opts Options) {
	e.opts = opts
}

// Options returns the current evaluation switches.
func (e *Evaluator) Options() Options {
	return e.opts
}

// Evaluate applies p's rule family to m, feeds the instant result through
// the mode's debounce and returns the combined verdict.
func (e *Evaluator) Evaluate(p exercise.Profile, m exercise.Metrics, t time.Time) Verdict {
	c := Check(p, m)
	instant := c.OK
	bypassed := false
	if !instant && p.Family == exercise.FamilyCardio && e.opts.CardioBypass {
		instant = true
		bypassed = true
	}

	d := e.states[p.Mode]
	changed := d.Update(instant, t)
	return Verdict{
		Instant:     instant,
		Valid:       d.Valid(),
		Bypassed:    bypassed,
		Status:      d.Status(),
		Changed:     changed,
		Since:       d.Since(),
		Reason:      c.Reason,
		Message:     c.Message,
		Orientation: m.Orientation,
	}
}

// Status returns the debounced status of mode m.
func (e *Evaluator) Status(m exercise.Mode) logic.Status {
	if !m.Valid() {
		return logic.StatusUnknown
	}
	return e.states[m].Status()
}

// Runs returns the current good and bad streak lengths of mode m.
func (e *Evaluator) Runs(m exercise.Mode) (good, bad int) {
	if !m.Valid() {
		return 0, 0
	}
	return e.states[m].Runs()
}

// Reset returns mode m to unknown.
func (e *Evaluator) Reset(m exercise.Mode) {
	if m.Valid() {
		e.states[m].Reset()
	}
}
