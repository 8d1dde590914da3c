package pose

import "time"

// ValidatorConfig holds the validator thresholds.
type ValidatorConfig struct {
	// MinVisibility is the confidence a critical joint needs to be used as-is.
	MinVisibility float64
	// Alpha is the EMA weight of the newest sample when updating history.
	Alpha float64
	// BackfillVisibility is the confidence assigned to backfilled points.
	BackfillVisibility float64
	// HistorySize is the per-joint history capacity.
	HistorySize int
	// MaxBackfillAge bounds how old a history sample may be to be reused.
	// Zero disables the age check.
	MaxBackfillAge time.Duration
}

// DefaultValidatorConfig returns the standard validator settings.
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		MinVisibility:      0.35,
		Alpha:              0.3,
		BackfillVisibility: 0.3,
		HistorySize:        DefaultHistorySize,
		MaxBackfillAge:     time.Second,
	}
}

// Validator checks critical-joint visibility and backfills weak points from
// history. A frame is either accepted whole or rejected without side effects.
type Validator struct {
	cfg     ValidatorConfig
	history *History
}

// NewValidator creates a Validator with an empty history.
func NewValidator(cfg ValidatorConfig) *Validator {
	return &Validator{
		cfg:     cfg,
		history: NewHistory(cfg.HistorySize),
	}
}

// Config returns the validator configuration.
func (v *Validator) Config() ValidatorConfig {
	return v.cfg
}

// History exposes the landmark history, mainly for telemetry and tests.
func (v *Validator) History() *History {
	return v.history
}

// Validate returns the frame to use for this processing cycle, or false when
// some critical joint is neither visible enough nor recoverable from history.
// Confident joints are returned with their raw coordinates; history is only
// updated for them, and only when the whole frame is accepted.
func (v *Validator) Validate(f Frame, critical []Joint) (Frame, bool) {
	out := f
	updates := make([]pendingSample, 0, len(critical))

	for _, j := range critical {
		lm := f.Landmarks[j]
		if lm.Visibility >= v.cfg.MinVisibility {
			updates = append(updates, pendingSample{joint: j, sample: v.smooth(j, lm, f.Time)})
			continue
		}

		prev, ok := v.history.Latest(j)
		if !ok || v.stale(prev, f.Time) {
			return Frame{}, false
		}
		filled := prev.Landmark
		filled.Visibility = v.cfg.BackfillVisibility
		filled.Backfilled = true
		out.Landmarks[j] = filled
	}

	for _, u := range updates {
		v.history.Push(u.joint, u.sample)
	}
	return out, true
}

// Reset clears the landmark history.
func (v *Validator) Reset() {
	v.history.Reset()
}

type pendingSample struct {
	joint  Joint
	sample Sample
}

func (v *Validator) smooth(j Joint, lm Landmark, t time.Time) Sample {
	prev, ok := v.history.Latest(j)
	if !ok {
		return Sample{Landmark: lm, Time: t}
	}
	a := v.cfg.Alpha
	return Sample{
		Landmark: Landmark{
			X:          a*lm.X + (1-a)*prev.X,
			Y:          a*lm.Y + (1-a)*prev.Y,
			Z:          a*lm.Z + (1-a)*prev.Z,
			Visibility: lm.Visibility,
		},
		Time: t,
	}
}

func (v *Validator) stale(s Sample, now time.Time) bool {
	if v.cfg.MaxBackfillAge <= 0 {
		return false
	}
	return now.Sub(s.Time) > v.cfg.MaxBackfillAge
}
