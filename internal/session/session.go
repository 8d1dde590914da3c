// Package session is the frame processing pipeline. It validates each frame,
// evaluates posture, drives the active mode's rep counter or hold timer and
// emits events. Frames are processed one at a time to completion.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/rep-counter/internal/calibration"
	"github.com/sweeney/rep-counter/internal/exercise"
	"github.com/sweeney/rep-counter/internal/logic"
	"github.com/sweeney/rep-counter/internal/pose"
	"github.com/sweeney/rep-counter/internal/posture"
	"github.com/sweeney/rep-counter/internal/telemetry"
)

var (
	ErrUnknownMode = errors.New("session: unknown exercise mode")
	ErrCalibrating = errors.New("session: calibration already running")
)

// Outcome reports what Process did with a frame.
type Outcome string

const (
	Processed     Outcome = "processed"
	Skipped       Outcome = "skipped"
	Calibrating   Outcome = "calibrating"
	NotCalibrated Outcome = "not_calibrated"
)

// Config is everything a Session needs. It is copied at construction.
type Config struct {
	Mode             exercise.Mode
	Validator        pose.ValidatorConfig
	Cadence          logic.CadenceConfig
	Calibration      calibration.Config
	StartFrames      int
	FeedbackCooldown time.Duration
	Telemetry        bool
	CardioBypass     bool
}

// DefaultConfig returns the standard pipeline settings for push-ups.
func DefaultConfig() Config {
	return Config{
		Mode:             exercise.PushUp,
		Validator:        pose.DefaultValidatorConfig(),
		Cadence:          logic.DefaultCadenceConfig(),
		Calibration:      calibration.DefaultConfig(),
		StartFrames:      logic.DefaultStartFrames,
		FeedbackCooldown: 2 * time.Second,
	}
}

type modeState struct {
	profile     exercise.Profile
	reps        *logic.RepCounter
	hold        *logic.HoldTimer
	lastWarning time.Time
	lastTime    time.Time
}

// Session owns all mutable pipeline state for one user.
type Session struct {
	id string

	mu         sync.Mutex
	cfg        Config
	h          Handlers
	validator  *pose.Validator
	posture    *posture.Evaluator
	mode       exercise.Mode
	states     [exercise.NumModes]*modeState
	cal        *calibration.Data
	calSkipped bool
	lastFrame  time.Time

	// Throughput counters, outside the exercise state a rejected frame must
	// leave untouched.
	frames  uint64
	skipped uint64

	calibrating atomic.Bool
}

// New creates a Session. An invalid cfg.Mode falls back to push-ups.
func New(cfg Config, h Handlers) *Session {
	if !cfg.Mode.Valid() {
		cfg.Mode = exercise.PushUp
	}
	s := &Session{
		id:        uuid.NewString(),
		cfg:       cfg,
		h:         h,
		validator: pose.NewValidator(cfg.Validator),
		posture:   posture.NewEvaluator(posture.Options{CardioBypass: cfg.CardioBypass}),
		mode:      cfg.Mode,
	}
	s.state(cfg.Mode)
	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Mode returns the active exercise mode.
func (s *Session) Mode() exercise.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Session) state(m exercise.Mode) *modeState {
	if st := s.states[m]; st != nil {
		return st
	}
	p := exercise.ProfileFor(m)
	st := &modeState{profile: p}
	switch p.Kind {
	case exercise.KindRep:
		st.reps = logic.NewRepCounter(logic.RepConfig{
			CountOn:     p.CountOn,
			MinInterval: p.MinRepInterval,
			StartFrames: s.cfg.StartFrames,
			Limbs:       p.Limbs,
			Cadence:     s.cfg.Cadence,
		})
	case exercise.KindHold:
		st.hold = logic.NewHoldTimer()
	}
	s.states[m] = st
	return st
}

func (st *modeState) reset() {
	if st.reps != nil {
		st.reps.Reset()
	}
	if st.hold != nil {
		st.hold.Reset()
	}
	st.lastWarning = time.Time{}
	st.lastTime = time.Time{}
}

// Process runs one frame through the pipeline. Events are delivered to the
// handlers after the frame's state changes are complete.
func (s *Session) Process(f pose.Frame) Outcome {
	s.mu.Lock()
	out, events := s.process(f)
	h := s.h
	s.mu.Unlock()

	for _, e := range events {
		h.dispatch(e)
	}
	return out
}

func (s *Session) process(f pose.Frame) (Outcome, []Event) {
	if s.calibrating.Load() {
		return Calibrating, nil
	}
	st := s.state(s.mode)
	p := st.profile
	if p.RequiresCalibration && s.cal == nil && !s.calSkipped {
		return NotCalibrated, nil
	}
	if !s.lastFrame.IsZero() && !f.Time.After(s.lastFrame) {
		s.skipped++
		return Skipped, nil
	}

	s.frames++
	vf, ok := s.validator.Validate(f, p.Critical)
	if !ok {
		s.skipped++
		if s.cfg.Telemetry {
			rec := s.record(st, &f, Skipped)
			return Skipped, []Event{s.event(EventTelemetry, f.Time, func(e *Event) { e.Telemetry = &rec })}
		}
		return Skipped, nil
	}
	s.lastFrame = vf.Time
	st.lastTime = vf.Time

	var events []Event
	m := exercise.Measure(&vf, p)
	v := s.posture.Evaluate(p, m, vf.Time)
	if v.Changed {
		events = append(events, s.event(EventPostureChange, vf.Time, func(e *Event) {
			e.Status = v.Status
			e.Landmarks = &vf
		}))
	}

	var anomaly *logic.Anomaly
	switch p.Kind {
	case exercise.KindRep:
		ps := exercise.Classify(p, m, s.calibrationData())
		res := st.reps.Update(logic.RepInput{
			Time:   vf.Time,
			Valid:  v.Valid,
			Start:  ps.Start && v.Instant,
			Metric: ps.Metric,
			Limbs:  ps.Limbs,
		})
		base := st.reps.Count() - res.Counted
		for i := 1; i <= res.Counted; i++ {
			count := base + i
			events = append(events,
				s.event(EventRepCount, vf.Time, func(e *Event) { e.Count = count }),
				s.event(EventFormFeedback, vf.Time, func(e *Event) {
					e.Feedback = &Feedback{Message: p.RepMessage, Type: FeedbackSuccess, Time: vf.Time, Sound: true}
				}),
			)
		}
		if len(res.Anomalies) > 0 {
			anomaly = &res.Anomalies[0]
		}
	case exercise.KindHold:
		u := st.hold.Update(vf.Time, v.Valid, v.Since)
		if u.Emit {
			events = append(events, s.event(EventTimeUpdate, vf.Time, func(e *Event) {
				e.Seconds = u.Seconds
				e.Paused = u.Paused
			}))
		}
	}

	if (v.Status == logic.StatusIncorrect || v.Bypassed) && v.Message != "" && s.warningDue(st, vf.Time) {
		st.lastWarning = vf.Time
		events = append(events, s.event(EventFormFeedback, vf.Time, func(e *Event) {
			e.Feedback = &Feedback{Message: v.Message, Type: FeedbackWarning, Time: vf.Time}
		}))
	}

	if s.cfg.Telemetry {
		rec := s.record(st, &vf, Processed)
		rec.Instant = v.Instant
		rec.Valid = v.Valid
		rec.Status = v.Status
		rec.Reason = v.Reason
		rec.Angles = telemetry.Angles(m)
		rec.Anomaly = anomaly
		events = append(events, s.event(EventTelemetry, vf.Time, func(e *Event) { e.Telemetry = &rec }))
	}
	return Processed, events
}

func (s *Session) warningDue(st *modeState, t time.Time) bool {
	return st.lastWarning.IsZero() || t.Sub(st.lastWarning) >= s.cfg.FeedbackCooldown
}

func (s *Session) event(typ EventType, t time.Time, fill func(*Event)) Event {
	e := Event{Type: typ, SessionID: s.id, Time: t, Mode: s.mode}
	if fill != nil {
		fill(&e)
	}
	return e
}

func (s *Session) record(st *modeState, f *pose.Frame, out Outcome) telemetry.Record {
	return telemetry.Record{
		SessionID:  s.id,
		Frame:      s.frames,
		Time:       f.Time,
		Mode:       s.mode.String(),
		Outcome:    string(out),
		Visibility: telemetry.Visibility(f, st.profile.Critical),
		State:      s.stateOf(st),
	}
}

func (s *Session) calibrationData() calibration.Data {
	if s.cal != nil {
		return *s.cal
	}
	return calibration.Defaults(time.Time{})
}

// SetExerciseMode activates m and resets its counting state. Other modes keep
// their state.
func (s *Session) SetExerciseMode(m exercise.Mode) error {
	if !m.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
	s.state(m).reset()
	s.posture.Reset(m)
	return nil
}

// ResetCounter zeroes the active mode's count, phase, gating and hold time.
func (s *Session) ResetCounter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state(s.mode).reset()
	s.posture.Reset(s.mode)
}

// SetCardioBypass toggles forced validity for cardio modes.
func (s *Session) SetCardioBypass(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posture.SetOptions(posture.Options{CardioBypass: on})
}

// Calibrate samples body proportions from src for duration, blocking until
// done. A nil tick reads one frame per 1/FPS seconds of wall time. Frames
// passed to Process meanwhile return Calibrating.
func (s *Session) Calibrate(ctx context.Context, src calibration.FrameReader, duration time.Duration, tick <-chan time.Time) (calibration.Data, error) {
	if !s.calibrating.CompareAndSwap(false, true) {
		return calibration.Data{}, ErrCalibrating
	}
	defer s.calibrating.Store(false)

	s.mu.Lock()
	cfg := s.cfg.Calibration
	s.mu.Unlock()

	if tick == nil && cfg.FPS > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(cfg.FPS))
		defer ticker.Stop()
		tick = ticker.C
	}

	d, err := calibration.Run(ctx, src, cfg, duration, tick)
	if err != nil {
		return calibration.Data{}, err
	}

	s.mu.Lock()
	s.cal = &d
	s.calSkipped = false
	e := s.event(EventCalibrationComplete, d.Timestamp, func(e *Event) { e.Calibration = &d })
	h := s.h
	s.mu.Unlock()

	h.dispatch(e)
	return d, nil
}

// SkipCalibration lets calibration-dependent modes run on default proportions.
func (s *Session) SkipCalibration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calSkipped = true
}

// Calibration returns the current calibration, if any.
func (s *Session) Calibration() (calibration.Data, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cal == nil {
		return calibration.Data{}, false
	}
	return *s.cal, true
}

// IsCalibrating reports whether a calibration run is in progress.
func (s *Session) IsCalibrating() bool {
	return s.calibrating.Load()
}

// State returns the active mode's counter snapshot.
func (s *Session) State() logic.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateOf(s.state(s.mode))
}

func (s *Session) stateOf(st *modeState) logic.State {
	var out logic.State
	if st.reps != nil {
		out = st.reps.State()
	}
	if st.hold != nil {
		out.HoldAccumulated = st.hold.Accumulated()
		out.HoldRunning = st.hold.Running()
		out.HoldStart = st.hold.Start()
	}
	out.GoodFrames, out.BadFrames = s.posture.Runs(st.profile.Mode)
	return out
}
