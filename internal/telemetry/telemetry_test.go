package telemetry

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/sweeney/rep-counter/internal/exercise"
	"github.com/sweeney/rep-counter/internal/logic"
	"github.com/sweeney/rep-counter/internal/pose"
	"github.com/sweeney/rep-counter/internal/pose/posetest"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestWriterJSONLines(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	in := []Record{
		{SessionID: "s1", Frame: 1, Time: t0, Mode: "pushup", Outcome: "processed", Valid: true, Status: logic.StatusCorrect},
		{SessionID: "s1", Frame: 2, Time: t0.Add(33 * time.Millisecond), Mode: "pushup", Outcome: "skipped"},
	}
	for _, r := range in {
		if err := w.Write(r); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if w.Count() != 2 {
		t.Errorf("Count = %d, want 2", w.Count())
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	var got Record
	if err := json.Unmarshal([]byte(lines[0]), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(in[0], got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
	if strings.Contains(lines[1], `"anomaly"`) {
		t.Errorf("nil anomaly should be omitted: %s", lines[1])
	}
}

func TestVisibilityMap(t *testing.T) {
	f := posetest.WithVisibility(posetest.Standing(t0), 0.2, pose.LeftKnee)
	got := Visibility(&f, []pose.Joint{pose.LeftKnee, pose.RightKnee})
	want := map[string]float64{"left_knee": 0.2, "right_knee": posetest.Visibility}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("visibility (-want +got):\n%s", diff)
	}
}

func TestAnglesOmitsUnmeasured(t *testing.T) {
	p := exercise.ProfileFor(exercise.PushUp)
	f := posetest.WithVisibility(posetest.PushUp(t0, 90), 0.1, pose.RightElbow)
	got := Angles(exercise.Measure(&f, p))
	if _, ok := got["right_elbow"]; ok {
		t.Error("right_elbow should be omitted")
	}
	if v, ok := got["left_elbow"]; !ok || v < 89 || v > 91 {
		t.Errorf("left_elbow = %v, %v", v, ok)
	}
}
