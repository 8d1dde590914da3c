package pose

import (
	"math"

	"github.com/golang/geo/r3"
)

// Orientation classifies the torso relative to the ground.
type Orientation string

const (
	OrientationUnknown    Orientation = "unknown"
	OrientationHorizontal Orientation = "horizontal"
	OrientationVertical   Orientation = "vertical"
)

// horizontalLimit is the torso tilt (degrees from horizontal) below which the
// torso counts as horizontal.
const horizontalLimit = 45.0

// Angle returns the interior angle at vertex b formed by rays to a and c,
// using the 2D projection. The result is in [0, 180] degrees.
func Angle(a, b, c Landmark) float64 {
	rad := math.Atan2(c.Y-b.Y, c.X-b.X) - math.Atan2(a.Y-b.Y, a.X-b.X)
	deg := math.Abs(rad * 180 / math.Pi)
	if deg > 180 {
		deg = 360 - deg
	}
	return deg
}

// Angle3D returns the angle at vertex b using x, y and z. It returns false
// when either ray has zero length.
func Angle3D(a, b, c Landmark) (float64, bool) {
	v1 := vec3(a).Sub(vec3(b))
	v2 := vec3(c).Sub(vec3(b))
	if v1.Norm() == 0 || v2.Norm() == 0 {
		return 0, false
	}
	// r3 computes atan2(|v1×v2|, v1·v2), which stays accurate near 0° and 180°.
	return v1.Angle(v2).Degrees(), true
}

// Straightness returns the cosine similarity between the segment a→b and
// the segment b→c in 2D. 1 means a, b and c lie on a straight line.
func Straightness(a, b, c Landmark) (float64, bool) {
	v1 := vec2(b).Sub(vec2(a))
	v2 := vec2(c).Sub(vec2(b))
	n := v1.Norm() * v2.Norm()
	if n == 0 {
		return 0, false
	}
	return v1.Dot(v2) / n, true
}

// Midpoint returns the point halfway between a and b. Its visibility is the
// lower of the two.
func Midpoint(a, b Landmark) Landmark {
	return Landmark{
		X:          (a.X + b.X) / 2,
		Y:          (a.Y + b.Y) / 2,
		Z:          (a.Z + b.Z) / 2,
		Visibility: math.Min(a.Visibility, b.Visibility),
	}
}

// Distance returns the 2D distance between a and b.
func Distance(a, b Landmark) float64 {
	return vec2(a).Sub(vec2(b)).Norm()
}

// TiltFromHorizontal returns the angle in [0, 90] degrees between the
// segment from→to and the horizontal axis.
func TiltFromHorizontal(from, to Landmark) float64 {
	dx := math.Abs(to.X - from.X)
	dy := math.Abs(to.Y - from.Y)
	if dx == 0 && dy == 0 {
		return 0
	}
	return math.Atan2(dy, dx) * 180 / math.Pi
}

// ClassifyTilt maps a tilt from horizontal to an Orientation.
func ClassifyTilt(tilt float64) Orientation {
	if tilt < horizontalLimit {
		return OrientationHorizontal
	}
	return OrientationVertical
}

// Torso returns the mid-shoulder and mid-hip points of a frame.
func (f *Frame) Torso() (shoulder, hip Landmark) {
	shoulder = Midpoint(f.Landmarks[LeftShoulder], f.Landmarks[RightShoulder])
	hip = Midpoint(f.Landmarks[LeftHip], f.Landmarks[RightHip])
	return shoulder, hip
}

// TorsoTilt returns the torso tilt from horizontal in degrees.
func (f *Frame) TorsoTilt() float64 {
	shoulder, hip := f.Torso()
	return TiltFromHorizontal(hip, shoulder)
}

// Orientation classifies the torso vector of the frame.
func (f *Frame) Orientation() Orientation {
	shoulder, hip := f.Torso()
	if Distance(shoulder, hip) == 0 {
		return OrientationUnknown
	}
	return ClassifyTilt(TiltFromHorizontal(hip, shoulder))
}

func vec3(l Landmark) r3.Vector {
	return r3.Vector{X: l.X, Y: l.Y, Z: l.Z}
}

func vec2(l Landmark) r3.Vector {
	return r3.Vector{X: l.X, Y: l.Y}
}
