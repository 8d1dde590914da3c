package exercise

import (
	"time"

	"github.com/sweeney/rep-counter/internal/logic"
	"github.com/sweeney/rep-counter/internal/pose"
)

// Profile is the per-mode configuration consumed by the shared posture rules
// and counting machines.
type Profile struct {
	Mode   Mode
	Label  string
	Kind   Kind
	Family Family
	// Critical joints must be visible (or backfillable) for a frame to be used.
	Critical []pose.Joint

	// CountOn is the phase whose entry completes a rep.
	CountOn        logic.Phase
	MinRepInterval time.Duration
	// Limbs is 2 for exercises counted per leg.
	Limbs int

	// GoodFrames and BadFrames are the posture hysteresis lengths.
	GoodFrames int
	BadFrames  int

	// Straightness is the minimum cosine between the upper and lower body
	// segments for horizontal-support exercises.
	Straightness float64
	// KneeAnchor uses the knees instead of the ankles as the lower body anchor.
	KneeAnchor bool

	// DownThreshold and UpThreshold are the mode's pose thresholds: joint
	// angles in degrees, or proportions for the cardio modes.
	DownThreshold float64
	UpThreshold   float64

	// RequiresCalibration gates counting until body proportions are known.
	RequiresCalibration bool

	RepMessage string
	StartHint  string
}

var (
	pushUpJoints = []pose.Joint{
		pose.LeftShoulder, pose.RightShoulder,
		pose.LeftElbow, pose.RightElbow,
		pose.LeftWrist, pose.RightWrist,
		pose.LeftHip, pose.RightHip,
	}
	torsoJoints = []pose.Joint{
		pose.LeftShoulder, pose.RightShoulder,
		pose.LeftHip, pose.RightHip,
	}
	legJoints = []pose.Joint{
		pose.LeftHip, pose.RightHip,
		pose.LeftKnee, pose.RightKnee,
		pose.LeftAnkle, pose.RightAnkle,
	}
	trunkAndKneeJoints = []pose.Joint{
		pose.LeftShoulder, pose.RightShoulder,
		pose.LeftHip, pose.RightHip,
		pose.LeftKnee, pose.RightKnee,
	}
	jumpingJackJoints = []pose.Joint{
		pose.LeftShoulder, pose.RightShoulder,
		pose.LeftWrist, pose.RightWrist,
		pose.LeftHip, pose.RightHip,
		pose.LeftAnkle, pose.RightAnkle,
	}
	wallSitJoints = []pose.Joint{
		pose.LeftShoulder, pose.RightShoulder,
		pose.LeftHip, pose.RightHip,
		pose.LeftKnee, pose.RightKnee,
		pose.LeftAnkle, pose.RightAnkle,
	}
)

func pushUp(m Mode, label string, minRep time.Duration, straight, down float64, knee bool, msg string) Profile {
	return Profile{
		Mode:           m,
		Label:          label,
		Kind:           KindRep,
		Family:         FamilyHorizontal,
		Critical:       pushUpJoints,
		CountOn:        logic.PhaseDown,
		MinRepInterval: minRep,
		Limbs:          1,
		GoodFrames:     3,
		BadFrames:      5,
		Straightness:   straight,
		KneeAnchor:     knee,
		DownThreshold:  down,
		UpThreshold:    150,
		RepMessage:     msg,
		StartHint:      "Get into a push-up position with your arms extended",
	}
}

func hold(m Mode, label string, knee bool) Profile {
	return Profile{
		Mode:         m,
		Label:        label,
		Kind:         KindHold,
		Family:       FamilyPlank,
		Critical:     torsoJoints,
		GoodFrames:   3,
		BadFrames:    5,
		Straightness: 0.90,
		KneeAnchor:   knee,
		StartHint:    "Hold a straight line from shoulders to heels",
	}
}

var profiles = [NumModes]Profile{
	PushUp:        pushUp(PushUp, "Push-up", 500*time.Millisecond, 0.85, 90, false, "Nice push-up!"),
	WidePushUp:    pushUp(WidePushUp, "Wide push-up", 550*time.Millisecond, 0.85, 100, false, "Nice wide push-up!"),
	NarrowPushUp:  pushUp(NarrowPushUp, "Narrow push-up", 500*time.Millisecond, 0.85, 90, false, "Nice narrow push-up!"),
	DiamondPushUp: pushUp(DiamondPushUp, "Diamond push-up", 550*time.Millisecond, 0.82, 90, false, "Nice diamond push-up!"),
	KneePushUp:    pushUp(KneePushUp, "Knee push-up", 450*time.Millisecond, 0.90, 90, true, "Nice knee push-up!"),
	Squat: {
		Mode:           Squat,
		Label:          "Squat",
		Kind:           KindRep,
		Family:         FamilySquat,
		Critical:       legJoints,
		CountOn:        logic.PhaseUp,
		MinRepInterval: 500 * time.Millisecond,
		Limbs:          1,
		GoodFrames:     3,
		BadFrames:      4,
		DownThreshold:  100,
		UpThreshold:    160,
		RepMessage:     "Great squat!",
		StartHint:      "Stand tall with your feet shoulder-width apart",
	},
	Lunge: {
		Mode:           Lunge,
		Label:          "Lunge",
		Kind:           KindRep,
		Family:         FamilyUpright,
		Critical:       legJoints,
		CountOn:        logic.PhaseDown,
		MinRepInterval: 550 * time.Millisecond,
		Limbs:          1,
		GoodFrames:     3,
		BadFrames:      4,
		DownThreshold:  100,
		UpThreshold:    155,
		RepMessage:     "Good lunge!",
		StartHint:      "Stand tall to begin",
	},
	SitUp: {
		Mode:           SitUp,
		Label:          "Sit-up",
		Kind:           KindRep,
		Family:         FamilySitUp,
		Critical:       trunkAndKneeJoints,
		CountOn:        logic.PhaseDown,
		MinRepInterval: 550 * time.Millisecond,
		Limbs:          1,
		GoodFrames:     3,
		BadFrames:      4,
		DownThreshold:  70,
		UpThreshold:    115,
		RepMessage:     "Good sit-up!",
		StartHint:      "Lie on your back with your knees bent",
	},
	Burpee: {
		Mode:           Burpee,
		Label:          "Burpee",
		Kind:           KindRep,
		Family:         FamilyDynamic,
		Critical:       trunkAndKneeJoints,
		CountOn:        logic.PhaseDown,
		MinRepInterval: 550 * time.Millisecond,
		Limbs:          1,
		GoodFrames:     3,
		BadFrames:      4,
		UpThreshold:    150,
		RepMessage:     "Burpee!",
		StartHint:      "Stand tall to begin",
	},
	JumpingJack: {
		Mode:                JumpingJack,
		Label:               "Jumping jack",
		Kind:                KindRep,
		Family:              FamilyCardio,
		Critical:            jumpingJackJoints,
		CountOn:             logic.PhaseDown,
		MinRepInterval:      400 * time.Millisecond,
		Limbs:               1,
		GoodFrames:          3,
		BadFrames:           4,
		DownThreshold:       1.5,
		UpThreshold:         1.1,
		RequiresCalibration: true,
		RepMessage:          "Keep it up!",
		StartHint:           "Stand with your feet together and arms down",
	},
	HighKnees: {
		Mode:           HighKnees,
		Label:          "High knees",
		Kind:           KindRep,
		Family:         FamilyCardio,
		Critical:       trunkAndKneeJoints,
		CountOn:        logic.PhaseDown,
		MinRepInterval: 400 * time.Millisecond,
		Limbs:          2,
		GoodFrames:     3,
		BadFrames:      4,
		DownThreshold:  0.3,
		UpThreshold:    0.5,
		RepMessage:     "Knees up!",
		StartHint:      "Stand tall to begin",
	},
	Plank:                   hold(Plank, "Plank", false),
	SidePlank:               hold(SidePlank, "Side plank", false),
	StraightArmPlank:        hold(StraightArmPlank, "Straight-arm plank", false),
	ReverseStraightArmPlank: hold(ReverseStraightArmPlank, "Reverse straight-arm plank", false),
	KneePlank:               hold(KneePlank, "Knee plank", true),
	WallSit: {
		Mode:       WallSit,
		Label:      "Wall sit",
		Kind:       KindHold,
		Family:     FamilyWallSit,
		Critical:   wallSitJoints,
		GoodFrames: 3,
		BadFrames:  4,
		StartHint:  "Slide down the wall until your knees are bent",
	},
}

// ProfileFor returns the profile of m. Invalid modes get the push-up profile.
func ProfileFor(m Mode) Profile {
	if !m.Valid() {
		return profiles[PushUp]
	}
	return profiles[m]
}
