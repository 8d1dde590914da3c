// Package posetest builds synthetic pose frames with known joint angles for
// tests. Coordinates are normalized with y growing downwards.
package posetest

import (
	"math"
	"time"

	"github.com/sweeney/rep-counter/internal/pose"
)

// Visibility is the confidence given to every generated landmark.
const Visibility = 0.95

const (
	shin      = 0.18
	thigh     = 0.18
	torso     = 0.28
	upperArm  = 0.12
	forearm   = 0.12
	halfWidth = 0.06
)

type point struct{ x, y float64 }

func (p point) add(dx, dy float64) point { return point{p.x + dx, p.y + dy} }

type side struct {
	shoulder, elbow, wrist, hip, knee, ankle point
}

func set(f *pose.Frame, j pose.Joint, p point) {
	f.Landmarks[j] = pose.Landmark{X: p.x, Y: p.y, Visibility: Visibility}
}

// build lays out both sides and derives the face, hands and feet from them.
func build(t time.Time, l, r side) pose.Frame {
	f := pose.Frame{Time: t}
	set(&f, pose.LeftShoulder, l.shoulder)
	set(&f, pose.LeftElbow, l.elbow)
	set(&f, pose.LeftWrist, l.wrist)
	set(&f, pose.LeftHip, l.hip)
	set(&f, pose.LeftKnee, l.knee)
	set(&f, pose.LeftAnkle, l.ankle)
	set(&f, pose.RightShoulder, r.shoulder)
	set(&f, pose.RightElbow, r.elbow)
	set(&f, pose.RightWrist, r.wrist)
	set(&f, pose.RightHip, r.hip)
	set(&f, pose.RightKnee, r.knee)
	set(&f, pose.RightAnkle, r.ankle)

	head := point{(l.shoulder.x + r.shoulder.x) / 2, (l.shoulder.y + r.shoulder.y) / 2}
	hx, hy := head.x-(l.hip.x+r.hip.x)/2, head.y-(l.hip.y+r.hip.y)/2
	if n := math.Hypot(hx, hy); n > 0 {
		head = head.add(0.1*hx/n, 0.1*hy/n)
	}
	for _, j := range []pose.Joint{
		pose.Nose, pose.LeftEyeInner, pose.LeftEye, pose.LeftEyeOuter,
		pose.RightEyeInner, pose.RightEye, pose.RightEyeOuter,
		pose.LeftEar, pose.RightEar, pose.MouthLeft, pose.MouthRight,
	} {
		set(&f, j, head)
	}
	for _, j := range []pose.Joint{pose.LeftPinky, pose.LeftIndex, pose.LeftThumb} {
		set(&f, j, l.wrist)
	}
	for _, j := range []pose.Joint{pose.RightPinky, pose.RightIndex, pose.RightThumb} {
		set(&f, j, r.wrist)
	}
	set(&f, pose.LeftHeel, l.ankle)
	set(&f, pose.LeftFootIndex, l.ankle.add(0.03, 0))
	set(&f, pose.RightHeel, r.ankle)
	set(&f, pose.RightFootIndex, r.ankle.add(0.03, 0))
	return f
}

// bentLeg returns a side whose knee and hip angles both equal deg, with a
// vertical shin, a vertical torso and hanging arms.
func bentLeg(x, deg float64) side {
	rad := deg * math.Pi / 180
	var s side
	s.ankle = point{x, 0.95}
	s.knee = s.ankle.add(0, -shin)
	s.hip = s.knee.add(thigh*math.Sin(rad), thigh*math.Cos(rad))
	s.shoulder = s.hip.add(0, -torso)
	s.elbow = s.shoulder.add(0, upperArm)
	s.wrist = s.elbow.add(0, forearm)
	return s
}

// Squat returns an upright frame with knee and hip angles of kneeDeg.
func Squat(t time.Time, kneeDeg float64) pose.Frame {
	return build(t, bentLeg(0.5-halfWidth, kneeDeg), bentLeg(0.5+halfWidth, kneeDeg))
}

// Standing returns an upright frame with straight legs and arms down.
func Standing(t time.Time) pose.Frame {
	return Squat(t, 180)
}

// StandingElbows returns an upright frame with straight legs and the elbows
// at elbowDeg.
func StandingElbows(t time.Time, elbowDeg float64) pose.Frame {
	rad := elbowDeg * math.Pi / 180
	bend := func(s side) side {
		s.wrist = s.elbow.add(forearm*math.Sin(rad), -forearm*math.Cos(rad))
		return s
	}
	return build(t, bend(bentLeg(0.5-halfWidth, 180)), bend(bentLeg(0.5+halfWidth, 180)))
}

// WallSit returns a seated-against-the-wall frame with knee and hip at kneeDeg.
func WallSit(t time.Time, kneeDeg float64) pose.Frame {
	return Squat(t, kneeDeg)
}

// Lunge returns an upright frame whose left knee is at frontDeg and whose
// right leg is straight below the hips.
func Lunge(t time.Time, frontDeg float64) pose.Frame {
	l := bentLeg(0.5-halfWidth, frontDeg)
	r := bentLeg(0.5+halfWidth, 180)
	r.hip = point{l.hip.x + 2*halfWidth, l.hip.y}
	r.knee = r.hip.add(0, thigh)
	r.ankle = r.knee.add(0, shin)
	r.shoulder = r.hip.add(0, -torso)
	r.elbow = r.shoulder.add(0, upperArm)
	r.wrist = r.elbow.add(0, forearm)
	return build(t, l, r)
}

// pushUpSide is a side view with a straight shoulder-hip-knee-ankle line and
// the elbow at elbowDeg.
func pushUpSide(elbowDeg float64) side {
	rad := elbowDeg * math.Pi / 180
	var s side
	s.shoulder = point{0.30, 0.50}
	s.hip = point{0.55, 0.52}
	s.knee = point{0.70, 0.532}
	s.ankle = point{0.85, 0.544}
	s.elbow = s.shoulder.add(0, upperArm)
	s.wrist = s.elbow.add(forearm*math.Sin(rad), -forearm*math.Cos(rad))
	return s
}

// PushUp returns a horizontal side-view frame with the elbows at elbowDeg.
func PushUp(t time.Time, elbowDeg float64) pose.Frame {
	s := pushUpSide(elbowDeg)
	return build(t, s, s)
}

// Plank returns a straight horizontal frame on extended arms.
func Plank(t time.Time) pose.Frame {
	return PushUp(t, 170)
}

// SaggingPlank returns a horizontal frame whose hips have dropped well
// below the shoulder-ankle line.
func SaggingPlank(t time.Time) pose.Frame {
	s := pushUpSide(170)
	s.hip = point{0.55, 0.65}
	s.knee = point{0.70, 0.62}
	return build(t, s, s)
}

// KneePushUp returns a horizontal frame supported on the knees, with a
// straight shoulder-hip-knee line and the elbows at elbowDeg.
func KneePushUp(t time.Time, elbowDeg float64) pose.Frame {
	s := pushUpSide(elbowDeg)
	s.hip = point{0.50, 0.55}
	s.knee = point{0.65, 0.5875}
	s.ankle = point{0.78, 0.45}
	return build(t, s, s)
}

// SitUp returns a lying frame with the knees at 90° and the hip angle
// (shoulder-hip-knee) at hipDeg.
func SitUp(t time.Time, hipDeg float64) pose.Frame {
	rad := hipDeg * math.Pi / 180
	var s side
	s.hip = point{0.5, 0.8}
	s.knee = point{0.6, 0.7}
	s.ankle = point{0.7, 0.8}
	ux, uy := math.Sqrt2/2, -math.Sqrt2/2
	dx := ux*math.Cos(rad) + uy*math.Sin(rad)
	dy := -ux*math.Sin(rad) + uy*math.Cos(rad)
	s.shoulder = s.hip.add(torso*dx, torso*dy)
	s.elbow = s.shoulder.add(0.05, -0.02)
	s.wrist = s.shoulder.add(0.02, -0.06)
	return build(t, s, s)
}

// JumpingJack returns a standing frame with arms overhead and feet apart
// when open, or arms down and feet under the hips when closed.
func JumpingJack(t time.Time, open bool) pose.Frame {
	f := Standing(t)
	if !open {
		return f
	}
	for i, sign := range []float64{-1, 1} {
		sh := pose.LeftShoulder
		el, wr, kn, an := pose.LeftElbow, pose.LeftWrist, pose.LeftKnee, pose.LeftAnkle
		if i == 1 {
			sh = pose.RightShoulder
			el, wr, kn, an = pose.RightElbow, pose.RightWrist, pose.RightKnee, pose.RightAnkle
		}
		s := f.Landmarks[sh]
		set(&f, el, point{s.X + sign*0.09, s.Y - 0.11})
		set(&f, wr, point{s.X + sign*0.14, s.Y - 0.19})
		set(&f, kn, point{0.5 + sign*0.15, 0.77})
		set(&f, an, point{0.5 + sign*0.20, 0.95})
	}
	return f
}

// HighKnee returns a standing frame with the selected knees lifted to hip
// height.
func HighKnee(t time.Time, leftUp, rightUp bool) pose.Frame {
	f := Standing(t)
	lift := func(hip, knee, ankle pose.Joint) {
		h := f.Landmarks[hip]
		set(&f, knee, point{h.X + 0.05, h.Y + 0.02})
		set(&f, ankle, point{h.X + 0.05, h.Y + 0.20})
	}
	if leftUp {
		lift(pose.LeftHip, pose.LeftKnee, pose.LeftAnkle)
	}
	if rightUp {
		lift(pose.RightHip, pose.RightKnee, pose.RightAnkle)
	}
	return f
}

// WithVisibility returns a copy of f with the visibility of joints set to v.
func WithVisibility(f pose.Frame, v float64, joints ...pose.Joint) pose.Frame {
	for _, j := range joints {
		f.Landmarks[j].Visibility = v
	}
	return f
}

// Clock yields frame times at a fixed step starting at Start.
type Clock struct {
	Start time.Time
	Step  time.Duration
	n     int
}

// Next returns the next frame time.
func (c *Clock) Next() time.Time {
	t := c.Start.Add(time.Duration(c.n) * c.Step)
	c.n++
	return t
}

// Now returns the time of the most recently issued frame.
func (c *Clock) Now() time.Time {
	if c.n == 0 {
		return c.Start
	}
	return c.Start.Add(time.Duration(c.n-1) * c.Step)
}
