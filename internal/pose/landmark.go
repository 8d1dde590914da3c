// Package pose holds the landmark data model produced by a pose-estimation
// model and the pure helpers that operate on it: joint indices, geometry,
// per-joint history and the visibility validator.
// Time is never read from the wall clock here; every Frame carries its own.
package pose

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Joint is a stable landmark index in the 33-point body layout.
type Joint int

// Body landmark indices (MediaPipe pose convention).
const (
	Nose Joint = iota
	LeftEyeInner
	LeftEye
	LeftEyeOuter
	RightEyeInner
	RightEye
	RightEyeOuter
	LeftEar
	RightEar
	MouthLeft
	MouthRight
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftPinky
	RightPinky
	LeftIndex
	RightIndex
	LeftThumb
	RightThumb
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftFootIndex
	RightFootIndex

	NumJoints = 33
)

var jointNames = [NumJoints]string{
	"nose", "left_eye_inner", "left_eye", "left_eye_outer",
	"right_eye_inner", "right_eye", "right_eye_outer", "left_ear", "right_ear",
	"mouth_left", "mouth_right", "left_shoulder", "right_shoulder",
	"left_elbow", "right_elbow", "left_wrist", "right_wrist",
	"left_pinky", "right_pinky", "left_index", "right_index",
	"left_thumb", "right_thumb", "left_hip", "right_hip",
	"left_knee", "right_knee", "left_ankle", "right_ankle",
	"left_heel", "right_heel", "left_foot_index", "right_foot_index",
}

// String returns the snake_case joint name.
func (j Joint) String() string {
	if j < 0 || int(j) >= NumJoints {
		return fmt.Sprintf("joint(%d)", int(j))
	}
	return jointNames[j]
}

// Landmark is a single normalized joint position with a confidence score.
// X and Y are in [0,1] relative to the frame; Z is optional relative depth.
type Landmark struct {
	X          float64 `json:"x" msgpack:"x"`
	Y          float64 `json:"y" msgpack:"y"`
	Z          float64 `json:"z" msgpack:"z"`
	Visibility float64 `json:"visibility" msgpack:"visibility"`
	// Backfilled is set when the validator substituted this point from history.
	Backfilled bool `json:"backfilled,omitempty" msgpack:"-"`
}

// Frame is one full set of landmarks plus its arrival time.
type Frame struct {
	Time      time.Time
	Landmarks [NumJoints]Landmark
}

// ErrMalformedFrame is returned when upstream landmark data cannot be
// turned into a Frame. It is the only hard failure at the input boundary.
var ErrMalformedFrame = errors.New("pose: malformed frame")

// NewFrame builds a Frame from a raw landmark slice. The slice must hold at
// least NumJoints entries with finite coordinates; extra entries are ignored.
func NewFrame(t time.Time, landmarks []Landmark) (Frame, error) {
	var f Frame
	if len(landmarks) < NumJoints {
		return f, fmt.Errorf("%w: %d landmarks, need %d", ErrMalformedFrame, len(landmarks), NumJoints)
	}
	for i := 0; i < NumJoints; i++ {
		lm := landmarks[i]
		if !finite(lm.X) || !finite(lm.Y) || !finite(lm.Z) || !finite(lm.Visibility) {
			return f, fmt.Errorf("%w: non-finite value at %s", ErrMalformedFrame, Joint(i))
		}
		lm.Visibility = clamp01(lm.Visibility)
		lm.Backfilled = false
		f.Landmarks[i] = lm
	}
	f.Time = t
	return f, nil
}

// At returns the landmark for joint j.
func (f *Frame) At(j Joint) Landmark {
	return f.Landmarks[j]
}

// Visible reports whether joint j has at least the given visibility.
func (f *Frame) Visible(j Joint, min float64) bool {
	return f.Landmarks[j].Visibility >= min
}

// AllVisible reports whether every listed joint has at least min visibility.
func (f *Frame) AllVisible(min float64, joints ...Joint) bool {
	for _, j := range joints {
		if f.Landmarks[j].Visibility < min {
			return false
		}
	}
	return true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
