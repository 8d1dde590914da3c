package pose

import (
	"errors"
	"math"
	"testing"
	"time"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func uniformFrame(t time.Time, vis float64) Frame {
	f := Frame{Time: t}
	for i := range f.Landmarks {
		f.Landmarks[i] = Landmark{X: 0.1 + float64(i)*0.02, Y: 0.2 + float64(i)*0.01, Visibility: vis}
	}
	return f
}

var critical = []Joint{LeftShoulder, LeftElbow, LeftWrist}

func TestValidateConfidentFrameUnchanged(t *testing.T) {
	v := NewValidator(DefaultValidatorConfig())

	for i := 0; i < 8; i++ {
		f := uniformFrame(t0.Add(time.Duration(i)*33*time.Millisecond), 0.9)
		f.Landmarks[LeftElbow].X += float64(i) * 0.01

		got, ok := v.Validate(f, critical)
		if !ok {
			t.Fatalf("frame %d: expected accept", i)
		}
		if got.Landmarks != f.Landmarks {
			t.Fatalf("frame %d: returned landmarks differ from input", i)
		}
	}

	if n := v.History().Len(LeftElbow); n != DefaultHistorySize {
		t.Errorf("history len: got %d, want %d", n, DefaultHistorySize)
	}
}

func TestValidateEMASmoothing(t *testing.T) {
	v := NewValidator(DefaultValidatorConfig())

	f1 := uniformFrame(t0, 0.9)
	f1.Landmarks[LeftElbow].X = 0.5
	v.Validate(f1, critical)

	f2 := uniformFrame(t0.Add(33*time.Millisecond), 0.9)
	f2.Landmarks[LeftElbow].X = 0.6
	v.Validate(f2, critical)

	s, ok := v.History().Latest(LeftElbow)
	if !ok {
		t.Fatal("expected history sample")
	}
	want := 0.3*0.6 + 0.7*0.5
	if math.Abs(s.X-want) > 1e-12 {
		t.Errorf("smoothed X: got %f, want %f", s.X, want)
	}
}

func TestValidateBackfill(t *testing.T) {
	v := NewValidator(DefaultValidatorConfig())
	v.Validate(uniformFrame(t0, 0.9), critical)
	before, _ := v.History().Latest(LeftWrist)

	f := uniformFrame(t0.Add(33*time.Millisecond), 0.9)
	f.Landmarks[LeftWrist] = Landmark{X: 0.99, Y: 0.99, Visibility: 0.1}

	got, ok := v.Validate(f, critical)
	if !ok {
		t.Fatal("expected backfilled frame to be accepted")
	}
	w := got.Landmarks[LeftWrist]
	if !w.Backfilled {
		t.Error("expected wrist marked backfilled")
	}
	if w.Visibility != 0.3 {
		t.Errorf("backfill visibility: got %f, want 0.3", w.Visibility)
	}
	if w.X != before.X || w.Y != before.Y {
		t.Errorf("backfill position: got (%f,%f), want (%f,%f)", w.X, w.Y, before.X, before.Y)
	}
	if n := v.History().Len(LeftWrist); n != 1 {
		t.Errorf("backfilled joint history must not grow: got %d", n)
	}
	if n := v.History().Len(LeftShoulder); n != 2 {
		t.Errorf("confident joint history: got %d, want 2", n)
	}
}

func TestValidateRejectsWithoutHistory(t *testing.T) {
	v := NewValidator(DefaultValidatorConfig())

	f := uniformFrame(t0, 0.9)
	f.Landmarks[LeftWrist].Visibility = 0.1

	if _, ok := v.Validate(f, critical); ok {
		t.Fatal("expected frame rejected")
	}
	for _, j := range critical {
		if n := v.History().Len(j); n != 0 {
			t.Errorf("%s: rejected frame mutated history (len %d)", j, n)
		}
	}
}

func TestValidateRejectsStaleHistory(t *testing.T) {
	v := NewValidator(DefaultValidatorConfig())
	v.Validate(uniformFrame(t0, 0.9), critical)

	f := uniformFrame(t0.Add(2*time.Second), 0.9)
	f.Landmarks[LeftWrist].Visibility = 0.1
	if _, ok := v.Validate(f, critical); ok {
		t.Error("expected stale history to be unusable")
	}
}

func TestValidateIgnoresNonCritical(t *testing.T) {
	v := NewValidator(DefaultValidatorConfig())
	f := uniformFrame(t0, 0.9)
	f.Landmarks[RightAnkle].Visibility = 0

	got, ok := v.Validate(f, critical)
	if !ok {
		t.Fatal("non-critical joints must not fail the frame")
	}
	if got.Landmarks[RightAnkle].Backfilled {
		t.Error("non-critical joint must not be backfilled")
	}
}

func TestValidatorReset(t *testing.T) {
	v := NewValidator(DefaultValidatorConfig())
	v.Validate(uniformFrame(t0, 0.9), critical)
	v.Reset()
	if n := v.History().Len(LeftShoulder); n != 0 {
		t.Errorf("after reset: got %d samples", n)
	}
}

func TestHistorySamplesOrder(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Push(Nose, Sample{Landmark: Landmark{X: float64(i)}})
	}
	got := h.Samples(Nose)
	if len(got) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(got))
	}
	for i, s := range got {
		if s.X != float64(i+2) {
			t.Errorf("sample %d: got %f, want %d", i, s.X, i+2)
		}
	}
	if h.Samples(LeftKnee) != nil {
		t.Error("expected nil for empty joint")
	}
}

func TestNewFrame(t *testing.T) {
	raw := make([]Landmark, NumJoints)
	raw[0] = Landmark{X: 0.5, Y: 0.5, Visibility: 1.7}

	f, err := NewFrame(t0, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Landmarks[0].Visibility != 1 {
		t.Errorf("visibility should be clamped, got %f", f.Landmarks[0].Visibility)
	}
	if !f.Time.Equal(t0) {
		t.Errorf("time: got %v", f.Time)
	}

	if _, err := NewFrame(t0, raw[:10]); !errors.Is(err, ErrMalformedFrame) {
		t.Errorf("short slice: got %v, want ErrMalformedFrame", err)
	}

	raw[5].X = math.NaN()
	if _, err := NewFrame(t0, raw); !errors.Is(err, ErrMalformedFrame) {
		t.Errorf("NaN: got %v, want ErrMalformedFrame", err)
	}
}

func TestJointString(t *testing.T) {
	if LeftKnee.String() != "left_knee" {
		t.Errorf("got %q", LeftKnee.String())
	}
	if Joint(99).String() != "joint(99)" {
		t.Errorf("got %q", Joint(99).String())
	}
}
