package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/rep-counter/internal/calibration"
	"github.com/sweeney/rep-counter/internal/exercise"
	"github.com/sweeney/rep-counter/internal/logic"
	"github.com/sweeney/rep-counter/internal/pose"
	"github.com/sweeney/rep-counter/internal/pose/posetest"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

const step = 100 * time.Millisecond

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) sink(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) of(typ EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) feedback(typ FeedbackType) []Feedback {
	var out []Feedback
	for _, e := range r.of(EventFormFeedback) {
		if e.Feedback.Type == typ {
			out = append(out, *e.Feedback)
		}
	}
	return out
}

func newSession(t *testing.T, mode exercise.Mode) (*Session, *recorder) {
	t.Helper()
	rec := &recorder{}
	cfg := DefaultConfig()
	cfg.Mode = mode
	return New(cfg, Handlers{Sink: rec.sink}), rec
}

// feeder hands out frames at a fixed 100ms cadence.
type feeder struct {
	s *Session
	n int
}

func (f *feeder) at() time.Time {
	return t0.Add(time.Duration(f.n) * step)
}

func (f *feeder) feed(t *testing.T, count int, build func(time.Time) pose.Frame) {
	t.Helper()
	for i := 0; i < count; i++ {
		out := f.s.Process(build(f.at()))
		require.Equal(t, Processed, out, "frame %d", f.n)
		f.n++
	}
}

func pushUp(deg float64) func(time.Time) pose.Frame {
	return func(t time.Time) pose.Frame { return posetest.PushUp(t, deg) }
}

func wallSit(deg float64) func(time.Time) pose.Frame {
	return func(t time.Time) pose.Frame { return posetest.WallSit(t, deg) }
}

func TestPushUpScenario(t *testing.T) {
	s, rec := newSession(t, exercise.PushUp)
	f := &feeder{s: s}

	f.feed(t, 6, pushUp(170))
	assert.True(t, s.Stats().GateOpen)
	assert.Empty(t, rec.of(EventRepCount))

	f.feed(t, 3, pushUp(80))
	f.feed(t, 3, pushUp(165))

	reps := rec.of(EventRepCount)
	require.Len(t, reps, 1)
	assert.Equal(t, 1, reps[0].Count)
	assert.Equal(t, s.ID(), reps[0].SessionID)

	success := rec.feedback(FeedbackSuccess)
	require.Len(t, success, 1)
	assert.True(t, success[0].Sound)
	assert.Equal(t, exercise.ProfileFor(exercise.PushUp).RepMessage, success[0].Message)
	assert.Empty(t, rec.feedback(FeedbackWarning))

	changes := rec.of(EventPostureChange)
	require.Len(t, changes, 1)
	assert.Equal(t, logic.StatusCorrect, changes[0].Status)
	assert.NotNil(t, changes[0].Landmarks)

	st := s.Stats()
	assert.Equal(t, 1, st.Count)
	assert.Equal(t, logic.PhaseUp, st.Phase)
	assert.Equal(t, logic.StatusCorrect, st.Posture)
}

func TestNoCountBeforeStartPose(t *testing.T) {
	s, rec := newSession(t, exercise.PushUp)
	f := &feeder{s: s}

	f.feed(t, 5, pushUp(170))
	f.feed(t, 3, pushUp(80))
	f.feed(t, 3, pushUp(165))
	assert.Empty(t, rec.of(EventRepCount))
	assert.False(t, s.Stats().GateOpen)
}

func TestSquatCountsOnStandUp(t *testing.T) {
	s, rec := newSession(t, exercise.Squat)
	f := &feeder{s: s}

	f.feed(t, 6, posetest.Standing)
	f.feed(t, 4, func(at time.Time) pose.Frame { return posetest.Squat(at, 90) })
	assert.Empty(t, rec.of(EventRepCount), "descent must not count")
	assert.Equal(t, logic.PhaseDown, s.Stats().Phase)

	f.feed(t, 4, posetest.Standing)
	reps := rec.of(EventRepCount)
	require.Len(t, reps, 1)
	assert.Equal(t, exercise.Squat, reps[0].Mode)
}

func TestWallSitScenario(t *testing.T) {
	s, rec := newSession(t, exercise.WallSit)
	f := &feeder{s: s}

	f.feed(t, 50, wallSit(90))
	f.feed(t, 20, wallSit(170))
	pauseAt := len(rec.of(EventTimeUpdate))
	f.feed(t, 30, wallSit(90))

	updates := rec.of(EventTimeUpdate)
	require.NotEmpty(t, updates)

	prev := 0
	for _, u := range updates {
		assert.GreaterOrEqual(t, u.Seconds, prev, "hold time decreased")
		prev = u.Seconds
	}

	var paused []Event
	for _, u := range updates[:pauseAt] {
		if u.Paused {
			paused = append(paused, u)
		}
	}
	require.Len(t, paused, 1)
	assert.Equal(t, 5, paused[0].Seconds)
	assert.True(t, updates[pauseAt-1].Paused, "pause is the last update before resuming")
	for _, u := range updates[:pauseAt] {
		assert.LessOrEqual(t, u.Seconds, 5)
	}

	resumed := updates[pauseAt:]
	require.NotEmpty(t, resumed)
	assert.Equal(t, 5, resumed[0].Seconds)
	assert.Equal(t, 8, resumed[len(resumed)-1].Seconds)

	assert.NotEmpty(t, rec.feedback(FeedbackWarning))
	assert.Equal(t, 8, s.Stats().Seconds)
}

func TestInsufficientVisibilityIsInert(t *testing.T) {
	s, rec := newSession(t, exercise.PushUp)
	before := s.State()

	f := posetest.WithVisibility(posetest.PushUp(t0, 170), 0.1, pose.LeftShoulder)
	assert.Equal(t, Skipped, s.Process(f))

	assert.Empty(t, rec.events)
	if diff := cmp.Diff(before, s.State()); diff != "" {
		t.Errorf("state changed (-before +after):\n%s", diff)
	}
	assert.Equal(t, 0, s.validator.History().Len(pose.RightShoulder), "history must not be touched")

	// Only the throughput counters move.
	stats := s.Stats()
	assert.Equal(t, uint64(1), stats.Skipped)
	assert.Equal(t, logic.StatusUnknown, stats.Posture)
	assert.True(t, stats.LastFrame.IsZero())
}

func TestBackfilledFrameProcessed(t *testing.T) {
	s, _ := newSession(t, exercise.PushUp)
	assert.Equal(t, Processed, s.Process(posetest.PushUp(t0, 170)))

	f := posetest.WithVisibility(posetest.PushUp(t0.Add(step), 170), 0.1, pose.LeftShoulder)
	assert.Equal(t, Processed, s.Process(f))
}

func TestNonIncreasingTimestampSkipped(t *testing.T) {
	s, _ := newSession(t, exercise.PushUp)
	assert.Equal(t, Processed, s.Process(posetest.PushUp(t0, 170)))
	assert.Equal(t, Skipped, s.Process(posetest.PushUp(t0, 170)))
}

func TestResetCounterIdempotent(t *testing.T) {
	s, _ := newSession(t, exercise.PushUp)
	f := &feeder{s: s}
	f.feed(t, 6, pushUp(170))
	f.feed(t, 2, pushUp(80))
	require.Equal(t, 1, s.Stats().Count)

	s.ResetCounter()
	once := s.State()
	s.ResetCounter()
	twice := s.State()

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second reset differs (-once +twice):\n%s", diff)
	}
	assert.Equal(t, 0, once.Count)
	assert.False(t, once.GateOpen)
	assert.Equal(t, logic.PhaseUp, once.Phase)
}

func TestSetExerciseMode(t *testing.T) {
	s, _ := newSession(t, exercise.PushUp)
	f := &feeder{s: s}
	f.feed(t, 6, pushUp(170))
	f.feed(t, 2, pushUp(80))

	require.NoError(t, s.SetExerciseMode(exercise.WallSit))
	assert.Equal(t, exercise.WallSit, s.Mode())
	assert.Equal(t, exercise.KindHold, s.Stats().Kind)

	require.NoError(t, s.SetExerciseMode(exercise.PushUp))
	assert.Equal(t, 0, s.Stats().Count, "activating a mode resets it")

	err := s.SetExerciseMode(exercise.Mode(42))
	assert.True(t, errors.Is(err, ErrUnknownMode))
	assert.Equal(t, exercise.PushUp, s.Mode())
}

type sliceReader struct {
	frames []pose.Frame
	i      int
}

func (r *sliceReader) Next(ctx context.Context) (pose.Frame, error) {
	if r.i >= len(r.frames) {
		return pose.Frame{}, io.EOF
	}
	f := r.frames[r.i]
	r.i++
	return f, nil
}

func standing(n int) []pose.Frame {
	out := make([]pose.Frame, n)
	for i := range out {
		out[i] = posetest.Standing(t0.Add(time.Duration(i) * 33 * time.Millisecond))
	}
	return out
}

func TestCalibrationShortfall(t *testing.T) {
	var got []calibration.Data
	s := New(DefaultConfig(), Handlers{OnCalibrationComplete: func(d calibration.Data) { got = append(got, d) }})

	d, err := s.Calibrate(context.Background(), &sliceReader{frames: standing(10)}, 3*time.Second, nil)
	require.NoError(t, err)
	assert.True(t, d.IsDefault)
	assert.Equal(t, calibration.DefaultShoulderWidth, d.ShoulderWidth)
	assert.Equal(t, calibration.DefaultNeutralAnkleSpacing, d.NeutralAnkleSpacing)
	assert.Equal(t, calibration.DefaultTorsoLength, d.TorsoLength)
	require.Len(t, got, 1)
	assert.Equal(t, d, got[0])

	c, ok := s.Calibration()
	assert.True(t, ok)
	assert.Equal(t, d, c)
}

func TestJumpingJackRequiresCalibration(t *testing.T) {
	s, _ := newSession(t, exercise.JumpingJack)
	assert.Equal(t, NotCalibrated, s.Process(posetest.JumpingJack(t0, false)))

	s.SkipCalibration()
	assert.Equal(t, Processed, s.Process(posetest.JumpingJack(t0, false)))
}

func TestJumpingJacksCount(t *testing.T) {
	s, rec := newSession(t, exercise.JumpingJack)
	_, err := s.Calibrate(context.Background(), &sliceReader{frames: standing(40)}, 3*time.Second, nil)
	require.NoError(t, err)

	f := &feeder{s: s, n: 100}
	open := func(at time.Time) pose.Frame { return posetest.JumpingJack(at, true) }
	closed := func(at time.Time) pose.Frame { return posetest.JumpingJack(at, false) }
	f.feed(t, 6, closed)
	for i := 0; i < 3; i++ {
		f.feed(t, 3, open)
		f.feed(t, 3, closed)
	}
	assert.Len(t, rec.of(EventRepCount), 3)
}

func TestCalibrationPacedByFPS(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Calibration.FPS = 20
	s := New(cfg, Handlers{})

	start := time.Now()
	d, err := s.Calibrate(context.Background(), &sliceReader{frames: standing(6)}, 3*time.Second, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, d.FrameCount)

	// Seven reads (the last one hits EOF) at 50ms apart.
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)
}

func TestCalibrationUsesSuppliedTick(t *testing.T) {
	s, _ := newSession(t, exercise.JumpingJack)
	tick := make(chan time.Time)
	src := &sliceReader{frames: standing(3)}

	done := make(chan error, 1)
	go func() {
		_, err := s.Calibrate(context.Background(), src, 3*time.Second, tick)
		done <- err
	}()

	for i := 0; i < 2; i++ {
		tick <- time.Time{}
	}
	assert.True(t, s.IsCalibrating())
	tick <- time.Time{}
	tick <- time.Time{}
	require.NoError(t, <-done)
	assert.Equal(t, 3, src.i)
}

type blockingReader struct {
	release chan struct{}
}

func (r *blockingReader) Next(ctx context.Context) (pose.Frame, error) {
	select {
	case <-r.release:
		return pose.Frame{}, io.EOF
	case <-ctx.Done():
		return pose.Frame{}, ctx.Err()
	}
}

func TestProcessWhileCalibrating(t *testing.T) {
	s, _ := newSession(t, exercise.PushUp)
	src := &blockingReader{release: make(chan struct{})}

	done := make(chan error, 1)
	go func() {
		_, err := s.Calibrate(context.Background(), src, time.Second, nil)
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !s.IsCalibrating() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	require.True(t, s.IsCalibrating())
	assert.Equal(t, Calibrating, s.Process(posetest.PushUp(t0, 170)))

	_, err := s.Calibrate(context.Background(), src, time.Second, nil)
	assert.ErrorIs(t, err, ErrCalibrating)

	close(src.release)
	require.NoError(t, <-done)
	assert.Equal(t, Processed, s.Process(posetest.PushUp(t0, 170)))
}

func TestHandlersMayReadStats(t *testing.T) {
	var counts []int
	var s *Session
	cfg := DefaultConfig()
	s = New(cfg, Handlers{OnRepCount: func(n int) { counts = append(counts, s.Stats().Count) }})

	f := &feeder{s: s}
	f.feed(t, 6, pushUp(170))
	f.feed(t, 2, pushUp(80))
	assert.Equal(t, []int{1}, counts)
}

func TestWarningCooldown(t *testing.T) {
	s, rec := newSession(t, exercise.PushUp)
	f := &feeder{s: s}
	f.feed(t, 30, posetest.SaggingPlank)

	// Incorrect from the 5th frame (400ms); warnings every 2s after that.
	warnings := rec.feedback(FeedbackWarning)
	require.Len(t, warnings, 2)
	assert.Equal(t, "Keep your body in a straight line", warnings[0].Message)
	assert.Equal(t, 2*time.Second, warnings[1].Time.Sub(warnings[0].Time))
}

func TestTelemetry(t *testing.T) {
	rec := &recorder{}
	cfg := DefaultConfig()
	cfg.Telemetry = true
	s := New(cfg, Handlers{Sink: rec.sink})

	s.Process(posetest.PushUp(t0, 170))
	s.Process(posetest.WithVisibility(posetest.PushUp(t0.Add(5*time.Second), 170), 0.1, pose.LeftHip))

	tel := rec.of(EventTelemetry)
	require.Len(t, tel, 2)
	first := tel[0].Telemetry
	assert.Equal(t, s.ID(), first.SessionID)
	assert.Equal(t, uint64(1), first.Frame)
	assert.Equal(t, "pushup", first.Mode)
	assert.Equal(t, string(Processed), first.Outcome)
	assert.True(t, first.Instant)
	assert.Contains(t, first.Angles, "left_elbow")
	assert.Contains(t, first.Visibility, "left_wrist")

	second := tel[1].Telemetry
	assert.Equal(t, string(Skipped), second.Outcome)
	assert.Equal(t, 0.1, second.Visibility["left_hip"])
}

func TestCardioBypassToggledMidStream(t *testing.T) {
	s, rec := newSession(t, exercise.JumpingJack)
	s.SkipCalibration()
	f := &feeder{s: s}

	f.feed(t, 5, posetest.Plank)
	assert.Equal(t, logic.StatusIncorrect, s.Stats().Posture)

	s.SetCardioBypass(true)
	f.feed(t, 3, posetest.Plank)
	assert.Equal(t, logic.StatusCorrect, s.Stats().Posture)

	s.SetCardioBypass(false)
	f.feed(t, 4, posetest.Plank)
	assert.Equal(t, logic.StatusIncorrect, s.Stats().Posture)

	var statuses []logic.Status
	for _, e := range rec.of(EventPostureChange) {
		statuses = append(statuses, e.Status)
	}
	assert.Equal(t, []logic.Status{logic.StatusIncorrect, logic.StatusCorrect, logic.StatusIncorrect}, statuses)
	assert.Empty(t, rec.of(EventRepCount))
}

func TestPushUpNotCountedWhileStanding(t *testing.T) {
	s, rec := newSession(t, exercise.PushUp)
	f := &feeder{s: s}

	f.feed(t, 10, pushUp(170))
	require.True(t, s.Stats().GateOpen)

	// Standing up fails the horizontal check; bending the elbows upright is
	// not a push-up.
	f.feed(t, 6, posetest.Standing)
	assert.Equal(t, logic.StatusIncorrect, s.Stats().Posture)
	for i := 0; i < 4; i++ {
		f.feed(t, 3, func(at time.Time) pose.Frame { return posetest.StandingElbows(at, 80) })
		f.feed(t, 3, func(at time.Time) pose.Frame { return posetest.StandingElbows(at, 170) })
	}

	assert.Empty(t, rec.of(EventRepCount))
	assert.Equal(t, 0, s.Stats().Count)
	assert.Equal(t, logic.StatusIncorrect, s.Stats().Posture)
}

func TestCardioBypassReportsFeedback(t *testing.T) {
	rec := &recorder{}
	cfg := DefaultConfig()
	cfg.Mode = exercise.HighKnees
	cfg.CardioBypass = true
	s := New(cfg, Handlers{Sink: rec.sink})

	f := &feeder{s: s}
	f.feed(t, 5, posetest.Plank)
	assert.Equal(t, logic.StatusCorrect, s.Stats().Posture)
	warnings := rec.feedback(FeedbackWarning)
	require.NotEmpty(t, warnings)
	assert.Equal(t, "Stand up straight", warnings[0].Message)
}
