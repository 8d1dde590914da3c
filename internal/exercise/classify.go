package exercise

import (
	"math"

	"github.com/sweeney/rep-counter/internal/calibration"
	"github.com/sweeney/rep-counter/internal/logic"
	"github.com/sweeney/rep-counter/internal/pose"
)

// Standing thresholds shared by the squat start pose.
const (
	standingHipAngle    = 120.0
	standingForwardTilt = 60.0
	closedSpacingRatio  = 1.3
)

// Poses are the per-frame pose predicates fed to a rep counter.
type Poses struct {
	// Start is true when the frame shows the mode's start pose.
	Start bool
	// Limbs holds the down/up predicates, one entry per counted limb.
	Limbs []logic.LimbPose
	// Metric is the primary measurement, recorded as the baseline when
	// counting opens.
	Metric float64
}

// Down reports the first limb's down predicate.
func (p Poses) Down() bool { return len(p.Limbs) > 0 && p.Limbs[0].Down }

// Up reports the first limb's up predicate.
func (p Poses) Up() bool { return len(p.Limbs) > 0 && p.Limbs[0].Up }

// Classify evaluates the pose predicates of a rep profile on m. Calibration
// data scales the thresholds of modes that depend on body proportions.
func Classify(p Profile, m Metrics, cal calibration.Data) Poses {
	switch p.Mode {
	case JumpingJack:
		return classifyJumpingJack(p, m, cal)
	case HighKnees:
		return classifyHighKnees(p, m)
	}

	var lp logic.LimbPose
	var ps Poses
	switch p.Family {
	case FamilyHorizontal:
		lp.Down = m.HasElbow && m.Elbow <= p.DownThreshold
		lp.Up = m.HasElbow && m.Elbow >= p.UpThreshold
		ps.Start = lp.Up && m.Orientation == pose.OrientationHorizontal
		ps.Metric = m.Elbow
	case FamilySquat:
		lp.Down = m.HasKnee && m.Knee <= p.DownThreshold
		lp.Up = m.HasKnee && m.Knee >= p.UpThreshold
		ps.Start = lp.Up && standing(m)
		ps.Metric = m.Knee
	case FamilyUpright:
		lp.Down = m.HasKnee && m.MinKnee <= p.DownThreshold
		lp.Up = m.HasKnee && m.MinKnee >= p.UpThreshold
		ps.Start = lp.Up && m.Orientation == pose.OrientationVertical
		ps.Metric = m.MinKnee
	case FamilySitUp:
		lp.Down = m.HasHip && m.Hip <= p.DownThreshold
		lp.Up = m.HasHip && m.Hip >= p.UpThreshold
		ps.Start = lp.Up
		ps.Metric = m.Hip
	case FamilyDynamic:
		lp.Down = m.Orientation == pose.OrientationHorizontal
		lp.Up = m.Orientation == pose.OrientationVertical && m.HasKnee && m.Knee >= p.UpThreshold
		ps.Start = lp.Up
		ps.Metric = m.Tilt
	}
	ps.Limbs = []logic.LimbPose{lp}
	return ps
}

func standing(m Metrics) bool {
	if m.HasHip && m.Hip < standingHipAngle {
		return false
	}
	return m.ForwardTilt <= standingForwardTilt
}

// Open (arms overhead, feet apart) is the down phase; closed is up.
func classifyJumpingJack(p Profile, m Metrics, cal calibration.Data) Poses {
	width := cal.ShoulderWidth
	if width <= 0 {
		width = calibration.DefaultShoulderWidth
	}
	closedMax := math.Max(width*p.UpThreshold, cal.NeutralAnkleSpacing*closedSpacingRatio)

	open := m.WristsAbove && m.AnkleSpacing >= width*p.DownThreshold
	closed := m.WristsBelow && m.AnkleSpacing <= closedMax
	return Poses{
		Start:  closed && m.Orientation == pose.OrientationVertical,
		Limbs:  []logic.LimbPose{{Down: open, Up: closed}},
		Metric: m.AnkleSpacing,
	}
}

// Each leg is its own limb: raised is down, lowered is up.
func classifyHighKnees(p Profile, m Metrics) Poses {
	ps := Poses{Limbs: make([]logic.LimbPose, 2)}
	lowered := 0
	for i := range ps.Limbs {
		if !m.HasKneeRise[i] {
			continue
		}
		ps.Limbs[i].Down = m.KneeRise[i] <= p.DownThreshold
		ps.Limbs[i].Up = m.KneeRise[i] >= p.UpThreshold
		if ps.Limbs[i].Up {
			lowered++
		}
	}
	ps.Start = lowered == 2 && m.Orientation == pose.OrientationVertical
	return ps
}
