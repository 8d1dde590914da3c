package logic

import "time"

// DefaultStartFrames is how many consecutive start-pose frames open counting.
const DefaultStartFrames = 6

// RepConfig parameterizes a RepCounter for one exercise.
type RepConfig struct {
	// CountOn is the phase whose entry completes a rep.
	CountOn Phase
	// MinInterval is the minimum time between two counted reps of a limb.
	MinInterval time.Duration
	// StartFrames is the start-pose stability requirement. Zero disables gating.
	StartFrames int
	// Limbs is the number of independently tracked limbs (1 or 2).
	Limbs   int
	Cadence CadenceConfig
}

// RepCounter is a two-phase up/down state machine, optionally replicated per
// limb with all limbs summing into one count.
type RepCounter struct {
	cfg      RepConfig
	limbs    []limb
	count    int
	lastRep  time.Time
	stable   int
	gateOpen bool
	baseline float64
}

type limb struct {
	phase   Phase
	lastRep time.Time
	guard   *CadenceGuard
}

// NewRepCounter creates a counter in the up phase with count zero.
func NewRepCounter(cfg RepConfig) *RepCounter {
	if cfg.Limbs <= 0 {
		cfg.Limbs = 1
	}
	if cfg.CountOn == "" {
		cfg.CountOn = PhaseDown
	}
	c := &RepCounter{cfg: cfg}
	c.Reset()
	return c
}

// Update feeds one frame and returns what happened.
func (c *RepCounter) Update(in RepInput) RepResult {
	var res RepResult

	if !c.gateOpen {
		if in.Start {
			c.stable++
		} else {
			c.stable = 0
		}
		if c.stable >= c.cfg.StartFrames {
			c.gateOpen = true
			c.baseline = in.Metric
			res.GateOpened = true
		}
		return res
	}

	if !in.Valid {
		return res
	}

	for i := range c.limbs {
		if i >= len(in.Limbs) {
			break
		}
		counted, moved, anomaly := c.limbs[i].step(in.Time, in.Limbs[i], c.cfg)
		if moved {
			res.Transitions++
		}
		if anomaly != nil {
			res.Anomalies = append(res.Anomalies, *anomaly)
		}
		if counted {
			c.count++
			c.lastRep = in.Time
			res.Counted++
		}
	}
	return res
}

// step advances one limb. A completing transition that arrives within the
// minimum interval is held back entirely; one rejected by the cadence guard
// still changes phase but is not counted.
func (l *limb) step(t time.Time, p LimbPose, cfg RepConfig) (counted, moved bool, anomaly *Anomaly) {
	var next Phase
	switch l.phase {
	case PhaseUp:
		if !p.Down {
			return false, false, nil
		}
		next = PhaseDown
	case PhaseDown:
		if !p.Up {
			return false, false, nil
		}
		next = PhaseUp
	}

	if next != cfg.CountOn {
		l.phase = next
		return false, true, nil
	}

	if !l.lastRep.IsZero() && t.Sub(l.lastRep) < cfg.MinInterval {
		return false, false, nil
	}

	l.phase = next
	if a := l.guard.Check(t); a != nil {
		return false, true, a
	}
	l.lastRep = t
	return true, true, nil
}

// Count returns the number of counted reps.
func (c *RepCounter) Count() int {
	return c.count
}

// Phase returns the phase of the first limb.
func (c *RepCounter) Phase() Phase {
	return c.limbs[0].phase
}

// LimbPhase returns the phase of limb i.
func (c *RepCounter) LimbPhase(i int) Phase {
	return c.limbs[i].phase
}

// GateOpen reports whether start-pose gating has been satisfied.
func (c *RepCounter) GateOpen() bool {
	return c.gateOpen
}

// State returns a snapshot of the counter.
func (c *RepCounter) State() State {
	return State{
		Phase:        c.Phase(),
		Count:        c.count,
		LastRep:      c.lastRep,
		Baseline:     c.baseline,
		StableFrames: c.stable,
		GateOpen:     c.gateOpen,
	}
}

// Reset returns the counter to its initial state.
func (c *RepCounter) Reset() {
	c.limbs = make([]limb, c.cfg.Limbs)
	for i := range c.limbs {
		c.limbs[i] = limb{phase: PhaseUp, guard: NewCadenceGuard(c.cfg.Cadence)}
	}
	c.count = 0
	c.lastRep = time.Time{}
	c.stable = 0
	c.baseline = 0
	c.gateOpen = c.cfg.StartFrames <= 0
}
