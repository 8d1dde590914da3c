package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sweeney/rep-counter/internal/exercise"
	"github.com/sweeney/rep-counter/internal/framesource"
	"github.com/sweeney/rep-counter/internal/mqtt"
	"github.com/sweeney/rep-counter/internal/pose"
	"github.com/sweeney/rep-counter/internal/pose/posetest"
	"github.com/sweeney/rep-counter/internal/session"
	"github.com/sweeney/rep-counter/internal/status"
	"github.com/sweeney/rep-counter/internal/telemetry"
)

var startTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

const frameInterval = 100 * time.Millisecond

// pipeline wires a session to a fake publisher and a status tracker the
// same way the daemon does, without the publish queue.
type pipeline struct {
	sess      *session.Session
	publisher *mqtt.FakePublisher
	tracker   *status.Tracker
	telemetry bytes.Buffer
}

func newPipeline(mode exercise.Mode, telemetryOn bool) *pipeline {
	p := &pipeline{
		publisher: mqtt.NewFakePublisher(),
		tracker:   status.NewTracker(startTime, status.Config{Exercise: mode.String()}),
	}
	tw := telemetry.NewWriter(&p.telemetry)
	cfg := session.DefaultConfig()
	cfg.Mode = mode
	cfg.Telemetry = telemetryOn
	p.sess = session.New(cfg, session.Handlers{
		Sink: func(e session.Event) {
			p.tracker.Record(e)
			if e.Telemetry != nil {
				tw.Write(*e.Telemetry)
			}
			p.publisher.Publish(e)
		},
	})
	return p
}

// drain feeds every frame from src into the session, skipping malformed
// records, until the stream ends.
func (p *pipeline) drain(t *testing.T, src framesource.Source) (malformed int) {
	t.Helper()
	ctx := context.Background()
	for {
		f, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return malformed
		}
		if errors.Is(err, pose.ErrMalformedFrame) {
			malformed++
			continue
		}
		if err != nil {
			t.Fatalf("read frame: %v", err)
		}
		p.sess.Process(f)
		p.tracker.Update(p.sess.Stats())
	}
}

// encode writes frames at a fixed cadence as JSON lines.
func encode(t *testing.T, builders ...func(time.Time) pose.Frame) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	for i, build := range builders {
		if err := framesource.EncodeJSONL(&buf, build(startTime.Add(time.Duration(i)*frameInterval))); err != nil {
			t.Fatalf("encode frame %d: %v", i, err)
		}
	}
	return &buf
}

func times(n int, build func(time.Time) pose.Frame) []func(time.Time) pose.Frame {
	out := make([]func(time.Time) pose.Frame, n)
	for i := range out {
		out[i] = build
	}
	return out
}

func pushUp(deg float64) func(time.Time) pose.Frame {
	return func(t time.Time) pose.Frame { return posetest.PushUp(t, deg) }
}

func pushUpReps(n int) []func(time.Time) pose.Frame {
	var out []func(time.Time) pose.Frame
	out = append(out, times(6, pushUp(170))...)
	for i := 0; i < n; i++ {
		out = append(out, times(3, pushUp(80))...)
		out = append(out, times(3, pushUp(165))...)
	}
	return out
}

// TestIntegrationPushUpFlow runs encoded frames through the reader, session,
// publisher and tracker.
func TestIntegrationPushUpFlow(t *testing.T) {
	p := newPipeline(exercise.PushUp, false)
	buf := encode(t, pushUpReps(3)...)

	if n := p.drain(t, framesource.NewJSONLReader(io.NopCloser(buf))); n != 0 {
		t.Errorf("expected no malformed frames, got %d", n)
	}

	if got := p.publisher.Count(session.EventRepCount); got != 3 {
		t.Fatalf("expected 3 rep_count events, got %d", got)
	}

	var counts []int
	for i, e := range p.publisher.Events {
		if e.Type != session.EventRepCount {
			continue
		}
		counts = append(counts, e.Count)

		var parsed mqtt.Payload
		if err := json.Unmarshal(p.publisher.Payloads[i], &parsed); err != nil {
			t.Fatalf("payload %d: invalid JSON: %v", i, err)
		}
		if parsed.RepCounter.Event != "rep_count" {
			t.Errorf("payload %d: event %q", i, parsed.RepCounter.Event)
		}
		if parsed.RepCounter.Mode != "pushup" {
			t.Errorf("payload %d: mode %q", i, parsed.RepCounter.Mode)
		}
		if parsed.RepCounter.SessionID != p.sess.ID() {
			t.Errorf("payload %d: session %q, want %q", i, parsed.RepCounter.SessionID, p.sess.ID())
		}
		if parsed.RepCounter.Count == nil || *parsed.RepCounter.Count != e.Count {
			t.Errorf("payload %d: count %v, want %d", i, parsed.RepCounter.Count, e.Count)
		}
	}
	for i, c := range counts {
		if c != i+1 {
			t.Errorf("rep %d: count %d, want %d", i, c, i+1)
		}
	}

	snap := p.tracker.Snapshot()
	if snap.Session.Count != 3 {
		t.Errorf("tracker count: got %d, want 3", snap.Session.Count)
	}
	if snap.Counts.Reps != 3 {
		t.Errorf("tracker rep events: got %d, want 3", snap.Counts.Reps)
	}
	if !snap.Ready() {
		t.Error("expected tracker ready after frames")
	}

	var sj status.StatusJSON
	if err := json.Unmarshal(status.FormatStatusEvent(snap, "HEARTBEAT", ""), &sj); err != nil {
		t.Fatalf("status JSON: %v", err)
	}
	if sj.Status.Exercise.Count != 3 || sj.Status.Exercise.Posture != "correct" {
		t.Errorf("status exercise: %+v", sj.Status.Exercise)
	}
}

// TestIntegrationMalformedFramesSkipped verifies a broken record in the
// middle of the stream does not stop counting.
func TestIntegrationMalformedFramesSkipped(t *testing.T) {
	p := newPipeline(exercise.PushUp, false)
	frames := pushUpReps(1)
	head := encode(t, frames[:8]...)
	head.WriteString("{\"t\": \"not a number\"}\n")
	tail := encode(t, frames...)
	// Only the frames after the first eight keep increasing timestamps.
	lines := bytes.SplitAfter(tail.Bytes(), []byte("\n"))
	for _, l := range lines[8:] {
		head.Write(l)
	}

	if n := p.drain(t, framesource.NewJSONLReader(io.NopCloser(head))); n != 1 {
		t.Errorf("expected 1 malformed frame, got %d", n)
	}
	if got := p.publisher.Count(session.EventRepCount); got != 1 {
		t.Errorf("expected 1 rep after malformed frame, got %d", got)
	}
}

// TestIntegrationNoRepsBeforeGate verifies motion before the start pose is
// never counted.
func TestIntegrationNoRepsBeforeGate(t *testing.T) {
	p := newPipeline(exercise.PushUp, false)
	var frames []func(time.Time) pose.Frame
	for i := 0; i < 4; i++ {
		frames = append(frames, times(2, pushUp(80))...)
		frames = append(frames, times(2, pushUp(165))...)
	}

	p.drain(t, framesource.NewJSONLReader(io.NopCloser(encode(t, frames...))))

	if got := p.publisher.Count(session.EventRepCount); got != 0 {
		t.Errorf("expected no reps before the gate opens, got %d", got)
	}
}

// TestIntegrationWallSitHold verifies hold modes publish time updates with
// non-decreasing seconds.
func TestIntegrationWallSitHold(t *testing.T) {
	p := newPipeline(exercise.WallSit, false)
	sit := func(at time.Time) pose.Frame { return posetest.WallSit(at, 90) }

	p.drain(t, framesource.NewJSONLReader(io.NopCloser(encode(t, times(40, sit)...))))

	if p.publisher.Count(session.EventTimeUpdate) == 0 {
		t.Fatal("expected time_update events")
	}
	prev := 0
	for _, e := range p.publisher.Events {
		if e.Type != session.EventTimeUpdate {
			continue
		}
		if e.Seconds < prev {
			t.Errorf("hold seconds decreased: %d after %d", e.Seconds, prev)
		}
		prev = e.Seconds
	}
	if snap := p.tracker.Snapshot(); snap.Session.Seconds != prev {
		t.Errorf("tracker seconds: got %d, want %d", snap.Session.Seconds, prev)
	}
}

// TestIntegrationTelemetryStream verifies per-frame telemetry reaches both
// the publisher as bare records and the JSON lines writer.
func TestIntegrationTelemetryStream(t *testing.T) {
	p := newPipeline(exercise.PushUp, true)
	frames := pushUpReps(1)

	p.drain(t, framesource.NewJSONLReader(io.NopCloser(encode(t, frames...))))

	n := p.publisher.Count(session.EventTelemetry)
	if n != len(frames) {
		t.Fatalf("expected %d telemetry events, got %d", len(frames), n)
	}
	for i, e := range p.publisher.Events {
		if e.Type != session.EventTelemetry {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal(p.publisher.Payloads[i], &rec); err != nil {
			t.Fatalf("telemetry payload: %v", err)
		}
		if _, wrapped := rec["rep_counter"]; wrapped {
			t.Error("telemetry payload should be a bare record")
		}
		break
	}

	lines := bytes.Count(p.telemetry.Bytes(), []byte("\n"))
	if lines != len(frames) {
		t.Errorf("telemetry file lines: got %d, want %d", lines, len(frames))
	}
}

// TestIntegrationMsgpackSource verifies the msgpack transport feeds the same
// pipeline.
func TestIntegrationMsgpackSource(t *testing.T) {
	p := newPipeline(exercise.PushUp, false)
	var buf bytes.Buffer
	for i, build := range pushUpReps(2) {
		if err := framesource.EncodeMsgpack(&buf, build(startTime.Add(time.Duration(i)*frameInterval))); err != nil {
			t.Fatalf("encode frame %d: %v", i, err)
		}
	}

	p.drain(t, framesource.NewMsgpackReader(io.NopCloser(&buf)))

	if got := p.publisher.Count(session.EventRepCount); got != 2 {
		t.Errorf("expected 2 reps over msgpack, got %d", got)
	}
}

// TestIntegrationModeSwitchKeepsCounts verifies switching away and back
// resets only the mode being activated.
func TestIntegrationModeSwitchKeepsCounts(t *testing.T) {
	p := newPipeline(exercise.PushUp, false)
	p.drain(t, framesource.NewJSONLReader(io.NopCloser(encode(t, pushUpReps(2)...))))

	if err := p.sess.SetExerciseMode(exercise.Squat); err != nil {
		t.Fatalf("SetExerciseMode: %v", err)
	}
	p.tracker.Update(p.sess.Stats())

	snap := p.tracker.Snapshot()
	if snap.Session.Mode != "squat" || snap.Session.Count != 0 {
		t.Errorf("after switch: mode %q count %d", snap.Session.Mode, snap.Session.Count)
	}
	if snap.Counts.Reps != 2 {
		t.Errorf("session rep events: got %d, want 2", snap.Counts.Reps)
	}
}

// TestIntegrationShutdownPayloadFormat verifies the retained status event
// carries the session snapshot.
func TestIntegrationShutdownPayloadFormat(t *testing.T) {
	p := newPipeline(exercise.PushUp, false)
	p.drain(t, framesource.NewJSONLReader(io.NopCloser(encode(t, pushUpReps(1)...))))

	snap := p.tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  time.Date(2026, 2, 3, 10, 30, 45, 0, time.UTC),
		Event:      "SHUTDOWN",
		Reason:     "SIGTERM",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM"),
	}
	if err := p.publisher.PublishSystem(event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !bytes.Equal(p.publisher.SystemPayloads[0], event.RawPayload) {
		t.Error("system payload should pass the raw status through")
	}

	var sj status.StatusJSON
	if err := json.Unmarshal(p.publisher.SystemPayloads[0], &sj); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if sj.Status.Event != "SHUTDOWN" || sj.Status.Reason != "SIGTERM" {
		t.Errorf("event/reason: %q/%q", sj.Status.Event, sj.Status.Reason)
	}
	if sj.Status.SessionID != p.sess.ID() {
		t.Errorf("session id: got %q, want %q", sj.Status.SessionID, p.sess.ID())
	}
	if sj.Status.Exercise.Count != 1 {
		t.Errorf("count: got %d, want 1", sj.Status.Exercise.Count)
	}
}
