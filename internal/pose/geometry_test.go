package pose

import (
	"math"
	"testing"
)

func lm(x, y float64) Landmark {
	return Landmark{X: x, Y: y, Visibility: 1}
}

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestAngle(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c Landmark
		want    float64
	}{
		{"right angle", lm(0, 1), lm(0, 0), lm(1, 0), 90},
		{"straight", lm(-1, 0), lm(0, 0), lm(1, 0), 180},
		{"collapsed", lm(1, 0), lm(0, 0), lm(1, 0), 0},
		{"45 degrees", lm(1, 1), lm(0, 0), lm(1, 0), 45},
		{"reflex folds back", lm(1, -1), lm(0, 0), lm(-1, -1), 90},
		{"order independent", lm(1, 0), lm(0, 0), lm(0, 1), 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Angle(tt.a, tt.b, tt.c)
			if !approx(got, tt.want, 1e-9) {
				t.Errorf("Angle: got %.6f, want %.6f", got, tt.want)
			}
			if got < 0 || got > 180 {
				t.Errorf("Angle out of range: %f", got)
			}
		})
	}
}

func TestAngleNearlyStraight(t *testing.T) {
	got := Angle(lm(-1, 1e-9), lm(0, 0), lm(1, 0))
	if !approx(got, 180, 1e-6) {
		t.Errorf("expected ~180, got %.9f", got)
	}
}

func TestAngle3D(t *testing.T) {
	a := Landmark{X: 0, Y: 0, Z: 1}
	b := Landmark{}
	c := Landmark{X: 1, Y: 0, Z: 0}

	got, ok := Angle3D(a, b, c)
	if !ok {
		t.Fatal("expected ok")
	}
	if !approx(got, 90, 1e-9) {
		t.Errorf("got %.6f, want 90", got)
	}

	got, ok = Angle3D(Landmark{X: -1}, b, Landmark{X: 1})
	if !ok || !approx(got, 180, 1e-9) {
		t.Errorf("straight: got %.6f ok=%v", got, ok)
	}

	got, ok = Angle3D(Landmark{X: 1}, b, Landmark{X: 1, Y: 1e-12})
	if !ok || !approx(got, 0, 1e-6) {
		t.Errorf("near zero: got %.9f ok=%v", got, ok)
	}
}

func TestAngle3DZeroLength(t *testing.T) {
	b := Landmark{X: 0.5, Y: 0.5}
	if _, ok := Angle3D(b, b, Landmark{X: 1}); ok {
		t.Error("expected !ok when first ray has zero length")
	}
	if _, ok := Angle3D(Landmark{X: 1}, b, b); ok {
		t.Error("expected !ok when second ray has zero length")
	}
}

func TestStraightness(t *testing.T) {
	got, ok := Straightness(lm(0, 0), lm(0.5, 0.01), lm(1, 0.02))
	if !ok || got < 0.999 {
		t.Errorf("straight line: got %.4f ok=%v", got, ok)
	}

	got, ok = Straightness(lm(0, 0), lm(0.5, 0), lm(0.5, 0.5))
	if !ok || !approx(got, 0, 1e-9) {
		t.Errorf("right angle: got %.4f", got)
	}

	if _, ok := Straightness(lm(0, 0), lm(0, 0), lm(1, 0)); ok {
		t.Error("expected !ok for degenerate segment")
	}
}

func TestTiltAndOrientation(t *testing.T) {
	if got := TiltFromHorizontal(lm(0, 0), lm(1, 0)); !approx(got, 0, 1e-9) {
		t.Errorf("horizontal tilt: got %f", got)
	}
	if got := TiltFromHorizontal(lm(0, 1), lm(0, 0)); !approx(got, 90, 1e-9) {
		t.Errorf("vertical tilt: got %f", got)
	}
	if ClassifyTilt(30) != OrientationHorizontal {
		t.Error("30 degrees should be horizontal")
	}
	if ClassifyTilt(60) != OrientationVertical {
		t.Error("60 degrees should be vertical")
	}

	var f Frame
	f.Landmarks[LeftShoulder] = lm(0.45, 0.3)
	f.Landmarks[RightShoulder] = lm(0.55, 0.3)
	f.Landmarks[LeftHip] = lm(0.46, 0.6)
	f.Landmarks[RightHip] = lm(0.54, 0.6)
	if f.Orientation() != OrientationVertical {
		t.Errorf("standing torso: got %s", f.Orientation())
	}

	var empty Frame
	if empty.Orientation() != OrientationUnknown {
		t.Errorf("degenerate torso: got %s", empty.Orientation())
	}
}

func TestMidpointAndDistance(t *testing.T) {
	m := Midpoint(Landmark{X: 0, Y: 0, Visibility: 0.9}, Landmark{X: 1, Y: 1, Visibility: 0.4})
	if m.X != 0.5 || m.Y != 0.5 {
		t.Errorf("midpoint: got (%f,%f)", m.X, m.Y)
	}
	if m.Visibility != 0.4 {
		t.Errorf("midpoint visibility: got %f, want 0.4", m.Visibility)
	}
	if d := Distance(lm(0, 0), lm(3, 4)); d != 5 {
		t.Errorf("distance: got %f, want 5", d)
	}
}
