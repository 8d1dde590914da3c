package posture

import (
	"github.com/sweeney/rep-counter/internal/exercise"
	"github.com/sweeney/rep-counter/internal/pose"
)

// Rule thresholds in degrees unless noted.
const (
	noAnkleMaxTilt = 35.0

	sidePlankMinBody   = 155.0
	frontPlankMinCos   = 0.90
	frontPlankMinKnees = 150.0

	squatRoundedHip  = 60.0
	squatRoundedTilt = 70.0

	uprightMaxForwardTilt = 45.0
	situpMaxKnee          = 130.0

	wallSitMin = 60.0
	wallSitMax = 150.0
)

// Result is the instant outcome of a rule family.
type Result struct {
	OK      bool
	Reason  string
	Message string
}

func pass() Result { return Result{OK: true} }

func fail(reason, msg string) Result {
	return Result{Reason: reason, Message: msg}
}

// Check evaluates the instant rule of p's family against m. The first failing
// check decides the reason and message.
func Check(p exercise.Profile, m exercise.Metrics) Result {
	switch p.Family {
	case exercise.FamilyHorizontal:
		return checkHorizontal(p, m)
	case exercise.FamilyPlank:
		return checkPlank(p, m)
	case exercise.FamilySquat:
		return checkSquat(m)
	case exercise.FamilyUpright:
		if m.ForwardTilt > uprightMaxForwardTilt {
			return fail("torso_lean", "Keep your torso upright")
		}
		return pass()
	case exercise.FamilySitUp:
		if !m.HasKnee || m.Knee > situpMaxKnee {
			return fail("knees_straight", "Keep your knees bent")
		}
		return pass()
	case exercise.FamilyDynamic:
		return pass()
	case exercise.FamilyCardio:
		if m.Orientation != pose.OrientationVertical {
			return fail("not_standing", "Stand up straight")
		}
		return pass()
	case exercise.FamilyWallSit:
		return checkWallSit(m)
	}
	return fail("unsupported", "Unsupported exercise")
}

func checkHorizontal(p exercise.Profile, m exercise.Metrics) Result {
	// A standing body is also a straight line.
	if m.Orientation == pose.OrientationVertical {
		return fail("not_horizontal", "Get into a horizontal position")
	}
	if m.AnchorVisible && m.HasStraightness {
		if m.Straightness < p.Straightness {
			return fail("body_not_straight", "Keep your body in a straight line")
		}
		return pass()
	}
	// Without a lower anchor only the torso axis is available.
	if m.Tilt > noAnkleMaxTilt {
		return fail("not_horizontal", "Get into a horizontal position")
	}
	return pass()
}

// checkPlank passes when either fully visible side holds the line. A front-on
// estimate can report both sides with one of them occluded.
func checkPlank(p exercise.Profile, m exercise.Metrics) Result {
	sideSeen := false
	for _, s := range []exercise.SideMetrics{m.Left, m.Right} {
		if !s.Full || !s.HasBody {
			continue
		}
		if s.Body >= sidePlankMinBody {
			return pass()
		}
		sideSeen = true
	}
	if sideSeen {
		return fail("hips_out_of_line", "Keep your hips in line with your shoulders")
	}

	if !m.HasStraightness || m.Straightness < frontPlankMinCos {
		return fail("body_not_straight", "Keep your body in a straight line")
	}
	if m.Orientation != pose.OrientationHorizontal {
		return fail("not_horizontal", "Get into a horizontal position")
	}
	if !p.KneeAnchor && (!m.HasKnee || m.Knee < frontPlankMinKnees) {
		return fail("knees_bent", "Straighten your legs")
	}
	return pass()
}

func checkSquat(m exercise.Metrics) Result {
	if m.HasHip && m.Hip < squatRoundedHip && m.ForwardTilt > squatRoundedTilt {
		return fail("back_rounded", "Keep your chest up and back straight")
	}
	return pass()
}

func checkWallSit(m exercise.Metrics) Result {
	in := func(v float64) bool { return v >= wallSitMin && v <= wallSitMax }
	seen := false
	for _, s := range []exercise.SideMetrics{m.Left, m.Right} {
		if !s.Full || !s.HasKnee || !s.HasHip {
			continue
		}
		seen = true
		if in(s.Knee) && in(s.Hip) {
			return pass()
		}
	}
	if !seen {
		return fail("side_not_visible", "Turn so one side of your body is visible")
	}
	return fail("knee_angle", "Bend your knees to about 90 degrees")
}
