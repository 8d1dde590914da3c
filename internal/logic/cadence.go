package logic

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// CadenceConfig tunes the cadence guard.
type CadenceConfig struct {
	// Floor is the shortest plausible interval between two reps.
	Floor time.Duration
	// Ratio flags an interval shorter than Ratio times the rolling average.
	Ratio float64
	// History is how many recent intervals feed the rolling average.
	History int
	// MinSamples is how many intervals are needed before Ratio applies.
	MinSamples int
}

// DefaultCadenceConfig returns the standard guard settings.
func DefaultCadenceConfig() CadenceConfig {
	return CadenceConfig{
		Floor:      200 * time.Millisecond,
		Ratio:      0.3,
		History:    10,
		MinSamples: 3,
	}
}

// CadenceGuard rejects reps that arrive implausibly fast. Rejected reps do
// not move the reference timestamp or enter the interval history.
type CadenceGuard struct {
	cfg       CadenceConfig
	last      time.Time
	intervals []float64 // milliseconds, oldest first
}

// NewCadenceGuard creates a guard with an empty history.
func NewCadenceGuard(cfg CadenceConfig) *CadenceGuard {
	if cfg.History <= 0 {
		cfg.History = 10
	}
	return &CadenceGuard{cfg: cfg}
}

// Check returns nil when a rep at t is plausible and records it, or the
// anomaly that suppresses it.
func (g *CadenceGuard) Check(t time.Time) *Anomaly {
	if g.last.IsZero() {
		g.last = t
		return nil
	}

	interval := t.Sub(g.last)
	if interval < g.cfg.Floor {
		return &Anomaly{Time: t, Reason: AnomalyBelowFloor, Interval: interval, Average: g.average()}
	}
	if len(g.intervals) >= g.cfg.MinSamples {
		avg := g.average()
		if float64(interval) < g.cfg.Ratio*float64(avg) {
			return &Anomaly{Time: t, Reason: AnomalyAcceleration, Interval: interval, Average: avg}
		}
	}

	g.intervals = append(g.intervals, float64(interval.Milliseconds()))
	if len(g.intervals) > g.cfg.History {
		g.intervals = g.intervals[len(g.intervals)-g.cfg.History:]
	}
	g.last = t
	return nil
}

// Samples returns the number of intervals in the rolling window.
func (g *CadenceGuard) Samples() int {
	return len(g.intervals)
}

// Reset clears the guard.
func (g *CadenceGuard) Reset() {
	g.last = time.Time{}
	g.intervals = g.intervals[:0]
}

func (g *CadenceGuard) average() time.Duration {
	if len(g.intervals) == 0 {
		return 0
	}
	return time.Duration(stat.Mean(g.intervals, nil)) * time.Millisecond
}
