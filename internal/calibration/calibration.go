// Package calibration samples a user's body proportions over a short
// multi-frame window so exercise thresholds can be normalized to them.
package calibration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/sweeney/rep-counter/internal/pose"
)

// Documented fallbacks, in normalized frame units, used when too few
// stable frames were seen.
const (
	DefaultShoulderWidth       = 0.25
	DefaultNeutralAnkleSpacing = 0.20
	DefaultTorsoLength         = 0.30
)

// Config tunes a calibration run.
type Config struct {
	// MinFrames is the number of qualifying frames needed for a measured result.
	MinFrames int
	// MinVisibility is the confidence every sampled joint must reach.
	MinVisibility float64
	// FPS is the read rate for sessions calibrating without their own tick.
	FPS int
}

// DefaultConfig returns the standard calibration settings.
func DefaultConfig() Config {
	return Config{
		MinFrames:     30,
		MinVisibility: 0.5,
		FPS:           30,
	}
}

// Data is the result of a calibration run. It is read-only once produced.
type Data struct {
	ShoulderWidth       float64   `json:"shoulder_width"`
	NeutralAnkleSpacing float64   `json:"neutral_ankle_spacing"`
	TorsoLength         float64   `json:"torso_length"`
	FrameCount          int       `json:"frame_count"`
	IsDefault           bool      `json:"is_default"`
	Timestamp           time.Time `json:"timestamp"`
}

// Defaults returns the fallback proportions stamped with t.
func Defaults(t time.Time) Data {
	return Data{
		ShoulderWidth:       DefaultShoulderWidth,
		NeutralAnkleSpacing: DefaultNeutralAnkleSpacing,
		TorsoLength:         DefaultTorsoLength,
		IsDefault:           true,
		Timestamp:           t,
	}
}

var sampledJoints = []pose.Joint{
	pose.LeftShoulder, pose.RightShoulder,
	pose.LeftHip, pose.RightHip,
	pose.LeftAnkle, pose.RightAnkle,
}

// Calibrator accumulates proportion samples from qualifying frames.
type Calibrator struct {
	cfg      Config
	widths   []float64
	spacings []float64
	torsos   []float64
}

// New creates an empty Calibrator.
func New(cfg Config) *Calibrator {
	return &Calibrator{cfg: cfg}
}

// Add samples f if every sampled joint is visible enough and reports
// whether it qualified.
func (c *Calibrator) Add(f *pose.Frame) bool {
	if !f.AllVisible(c.cfg.MinVisibility, sampledJoints...) {
		return false
	}
	shoulder, hip := f.Torso()
	torso := pose.Distance(shoulder, hip)
	width := pose.Distance(f.At(pose.LeftShoulder), f.At(pose.RightShoulder))
	if torso == 0 || width == 0 {
		return false
	}
	c.widths = append(c.widths, width)
	c.spacings = append(c.spacings, pose.Distance(f.At(pose.LeftAnkle), f.At(pose.RightAnkle)))
	c.torsos = append(c.torsos, torso)
	return true
}

// Frames returns the number of qualifying frames so far.
func (c *Calibrator) Frames() int {
	return len(c.widths)
}

// Result returns the mean proportions, or the defaults when fewer than
// MinFrames qualifying frames were collected.
func (c *Calibrator) Result(t time.Time) Data {
	n := len(c.widths)
	if n < c.cfg.MinFrames || n == 0 {
		d := Defaults(t)
		d.FrameCount = n
		return d
	}
	return Data{
		ShoulderWidth:       stat.Mean(c.widths, nil),
		NeutralAnkleSpacing: stat.Mean(c.spacings, nil),
		TorsoLength:         stat.Mean(c.torsos, nil),
		FrameCount:          n,
		Timestamp:           t,
	}
}

// FrameReader yields frames one at a time.
type FrameReader interface {
	Next(ctx context.Context) (pose.Frame, error)
}

// Run samples frames from src until duration has elapsed in frame time or
// the source is exhausted. When tick is non-nil one frame is read per tick.
// It blocks for the whole window and returns ctx.Err() if cancelled.
func Run(ctx context.Context, src FrameReader, cfg Config, duration time.Duration, tick <-chan time.Time) (Data, error) {
	c := New(cfg)
	var start, last time.Time

	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return Data{}, ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return Data{}, err
		}

		f, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, pose.ErrMalformedFrame) {
			continue
		}
		if err != nil {
			return Data{}, fmt.Errorf("calibration: read frame: %w", err)
		}

		if start.IsZero() {
			start = f.Time
		}
		if f.Time.Sub(start) >= duration {
			last = f.Time
			break
		}
		last = f.Time
		c.Add(&f)
	}

	if last.IsZero() {
		last = start
	}
	return c.Result(last), nil
}
