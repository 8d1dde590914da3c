// Package exercise describes the closed set of supported exercises: one
// Profile per Mode carrying the thresholds, labels and critical joints that
// parameterize the shared posture rules and counting state machines.
package exercise

import (
	"fmt"
	"strings"
)

// Mode is one supported exercise variant.
type Mode int

const (
	PushUp Mode = iota
	WidePushUp
	NarrowPushUp
	DiamondPushUp
	KneePushUp
	Squat
	Lunge
	SitUp
	Burpee
	JumpingJack
	HighKnees
	Plank
	SidePlank
	StraightArmPlank
	ReverseStraightArmPlank
	KneePlank
	WallSit

	NumModes = 17
)

var modeNames = [NumModes]string{
	"pushup",
	"wide_pushup",
	"narrow_pushup",
	"diamond_pushup",
	"knee_pushup",
	"squat",
	"lunge",
	"situp",
	"burpee",
	"jumping_jack",
	"high_knees",
	"plank",
	"side_plank",
	"straight_arm_plank",
	"reverse_straight_arm_plank",
	"knee_plank",
	"wall_sit",
}

// String returns the wire name of the mode.
func (m Mode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

// Valid reports whether m is one of the defined modes.
func (m Mode) Valid() bool {
	return m >= 0 && int(m) < NumModes
}

// ParseMode returns the Mode with the given wire name. Dashes and case are
// ignored so "Wall-Sit" parses as WallSit.
func ParseMode(s string) (Mode, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for i, n := range modeNames {
		if n == name {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown exercise %q", s)
}

// Modes returns every mode in declaration order.
func Modes() []Mode {
	out := make([]Mode, NumModes)
	for i := range out {
		out[i] = Mode(i)
	}
	return out
}

// Next returns the mode after m, wrapping around.
func Next(m Mode) Mode {
	if !m.Valid() {
		return PushUp
	}
	return Mode((int(m) + 1) % NumModes)
}

// Kind is the counting semantics of a mode.
type Kind string

const (
	KindRep  Kind = "rep"
	KindHold Kind = "hold"
)

// Family selects the posture rule set applied to a mode.
type Family string

const (
	FamilyHorizontal Family = "horizontal"
	FamilyPlank      Family = "plank"
	FamilySquat      Family = "squat"
	FamilyUpright    Family = "upright"
	FamilySitUp      Family = "situp"
	FamilyDynamic    Family = "dynamic"
	FamilyCardio     Family = "cardio"
	FamilyWallSit    Family = "wall_sit"
)
