package exercise

import (
	"math"

	"github.com/sweeney/rep-counter/internal/pose"
)

const (
	// usableVisibility admits backfilled points, which carry 0.3.
	usableVisibility = 0.3
	// fullSideVisibility is required of every joint on a "fully visible" side.
	fullSideVisibility = 0.5
)

// SideMetrics are the joint angles of one body side.
type SideMetrics struct {
	Elbow    float64
	Knee     float64
	Hip      float64
	Body     float64 // shoulder-hip-anchor
	HasElbow bool
	HasKnee  bool
	HasHip   bool
	HasBody  bool
	// Full is true when shoulder, hip and anchor are all clearly visible.
	Full bool
}

// Metrics is the geometry of one frame that posture rules and pose
// predicates work from.
type Metrics struct {
	Left, Right SideMetrics

	Elbow    float64
	Knee     float64
	MinKnee  float64
	Hip      float64
	HasElbow bool
	HasKnee  bool
	HasHip   bool

	// Straightness is the cosine between mid-shoulder→mid-hip and
	// mid-hip→mid-anchor.
	Straightness    float64
	HasStraightness bool
	AnchorVisible   bool

	// Tilt is the torso angle from horizontal; ForwardTilt from vertical.
	Tilt        float64
	ForwardTilt float64
	Orientation pose.Orientation

	ShoulderWidth float64
	AnkleSpacing  float64
	TorsoLength   float64
	WristsAbove   bool
	WristsBelow   bool
	// KneeRise is (knee.y - hip.y) / torso length per leg; small when raised.
	KneeRise    [2]float64
	HasKneeRise [2]bool
}

type sideJoints struct {
	shoulder, elbow, wrist, hip, knee, ankle pose.Joint
}

var (
	leftSide  = sideJoints{pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist, pose.LeftHip, pose.LeftKnee, pose.LeftAnkle}
	rightSide = sideJoints{pose.RightShoulder, pose.RightElbow, pose.RightWrist, pose.RightHip, pose.RightKnee, pose.RightAnkle}
)

// Measure computes the metrics of f for profile p.
func Measure(f *pose.Frame, p Profile) Metrics {
	var m Metrics
	m.Left = measureSide(f, leftSide, p.KneeAnchor)
	m.Right = measureSide(f, rightSide, p.KneeAnchor)

	m.Elbow, m.HasElbow = mean(m.Left.Elbow, m.Left.HasElbow, m.Right.Elbow, m.Right.HasElbow)
	m.Knee, m.HasKnee = mean(m.Left.Knee, m.Left.HasKnee, m.Right.Knee, m.Right.HasKnee)
	m.Hip, m.HasHip = mean(m.Left.Hip, m.Left.HasHip, m.Right.Hip, m.Right.HasHip)
	m.MinKnee = minPresent(m.Left.Knee, m.Left.HasKnee, m.Right.Knee, m.Right.HasKnee)

	shoulder, hip := f.Torso()
	m.TorsoLength = pose.Distance(shoulder, hip)
	m.Tilt = pose.TiltFromHorizontal(hip, shoulder)
	m.ForwardTilt = 90 - m.Tilt
	m.Orientation = pose.OrientationUnknown
	if m.TorsoLength > 0 {
		m.Orientation = pose.ClassifyTilt(m.Tilt)
	}

	anchorL, anchorR := pose.LeftAnkle, pose.RightAnkle
	if p.KneeAnchor {
		anchorL, anchorR = pose.LeftKnee, pose.RightKnee
	}
	anchor := pose.Midpoint(f.At(anchorL), f.At(anchorR))
	m.AnchorVisible = anchor.Visibility >= usableVisibility
	if m.AnchorVisible {
		m.Straightness, m.HasStraightness = pose.Straightness(shoulder, hip, anchor)
	}

	m.ShoulderWidth = pose.Distance(f.At(pose.LeftShoulder), f.At(pose.RightShoulder))
	m.AnkleSpacing = pose.Distance(f.At(pose.LeftAnkle), f.At(pose.RightAnkle))

	if f.AllVisible(usableVisibility, pose.LeftWrist, pose.RightWrist, pose.LeftShoulder, pose.RightShoulder) {
		lw, rw := f.At(pose.LeftWrist), f.At(pose.RightWrist)
		ls, rs := f.At(pose.LeftShoulder), f.At(pose.RightShoulder)
		m.WristsAbove = lw.Y < ls.Y && rw.Y < rs.Y
		m.WristsBelow = lw.Y > ls.Y && rw.Y > rs.Y
	}

	for i, s := range []sideJoints{leftSide, rightSide} {
		if m.TorsoLength > 0 && f.AllVisible(usableVisibility, s.hip, s.knee) {
			m.KneeRise[i] = (f.At(s.knee).Y - f.At(s.hip).Y) / m.TorsoLength
			m.HasKneeRise[i] = true
		}
	}
	return m
}

func measureSide(f *pose.Frame, s sideJoints, kneeAnchor bool) SideMetrics {
	var sm SideMetrics
	if f.AllVisible(usableVisibility, s.shoulder, s.elbow, s.wrist) {
		sm.Elbow = pose.Angle(f.At(s.shoulder), f.At(s.elbow), f.At(s.wrist))
		sm.HasElbow = true
	}
	if f.AllVisible(usableVisibility, s.hip, s.knee, s.ankle) {
		sm.Knee = pose.Angle(f.At(s.hip), f.At(s.knee), f.At(s.ankle))
		sm.HasKnee = true
	}
	if f.AllVisible(usableVisibility, s.shoulder, s.hip, s.knee) {
		sm.Hip = pose.Angle(f.At(s.shoulder), f.At(s.hip), f.At(s.knee))
		sm.HasHip = true
	}
	anchor := s.ankle
	if kneeAnchor {
		anchor = s.knee
	}
	if f.AllVisible(usableVisibility, s.shoulder, s.hip, anchor) {
		sm.Body = pose.Angle(f.At(s.shoulder), f.At(s.hip), f.At(anchor))
		sm.HasBody = true
	}
	sm.Full = f.AllVisible(fullSideVisibility, s.shoulder, s.hip, anchor)
	return sm
}

func mean(a float64, okA bool, b float64, okB bool) (float64, bool) {
	switch {
	case okA && okB:
		return (a + b) / 2, true
	case okA:
		return a, true
	case okB:
		return b, true
	}
	return 0, false
}

func minPresent(a float64, okA bool, b float64, okB bool) float64 {
	switch {
	case okA && okB:
		return math.Min(a, b)
	case okA:
		return a
	case okB:
		return b
	}
	return 0
}
