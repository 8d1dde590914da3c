// Package telemetry defines the per-frame diagnostic record and a JSON lines
// writer for offline validation.
package telemetry

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sweeney/rep-counter/internal/exercise"
	"github.com/sweeney/rep-counter/internal/logic"
	"github.com/sweeney/rep-counter/internal/pose"
)

// Record is one frame's diagnostic snapshot.
type Record struct {
	SessionID  string             `json:"session_id"`
	Frame      uint64             `json:"frame"`
	Time       time.Time          `json:"time"`
	Mode       string             `json:"mode"`
	Outcome    string             `json:"outcome"`
	Instant    bool               `json:"instant"`
	Valid      bool               `json:"valid"`
	Status     logic.Status       `json:"status,omitempty"`
	Reason     string             `json:"reason,omitempty"`
	Visibility map[string]float64 `json:"visibility,omitempty"`
	Angles     map[string]float64 `json:"angles,omitempty"`
	State      logic.State        `json:"state"`
	Anomaly    *logic.Anomaly     `json:"anomaly,omitempty"`
}

// Visibility returns the visibility of joints keyed by joint name.
func Visibility(f *pose.Frame, joints []pose.Joint) map[string]float64 {
	out := make(map[string]float64, len(joints))
	for _, j := range joints {
		out[j.String()] = f.At(j).Visibility
	}
	return out
}

// Angles flattens the measured angles of m. Angles that could not be
// measured are omitted.
func Angles(m exercise.Metrics) map[string]float64 {
	out := make(map[string]float64)
	put := func(name string, v float64, ok bool) {
		if ok {
			out[name] = v
		}
	}
	put("left_elbow", m.Left.Elbow, m.Left.HasElbow)
	put("right_elbow", m.Right.Elbow, m.Right.HasElbow)
	put("left_knee", m.Left.Knee, m.Left.HasKnee)
	put("right_knee", m.Right.Knee, m.Right.HasKnee)
	put("left_hip", m.Left.Hip, m.Left.HasHip)
	put("right_hip", m.Right.Hip, m.Right.HasHip)
	put("left_body", m.Left.Body, m.Left.HasBody)
	put("right_body", m.Right.Body, m.Right.HasBody)
	put("straightness", m.Straightness, m.HasStraightness)
	put("tilt", m.Tilt, m.TorsoLength > 0)
	return out
}

// Writer encodes records as JSON lines. It is safe for concurrent use.
type Writer struct {
	mu  sync.Mutex
	enc *json.Encoder
	n   uint64
}

// NewWriter creates a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(w)}
}

// Write encodes r as one line.
func (w *Writer) Write(r Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(r); err != nil {
		return fmt.Errorf("telemetry: encode frame %d: %w", r.Frame, err)
	}
	w.n++
	return nil
}

// Count returns the number of records written.
func (w *Writer) Count() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}
