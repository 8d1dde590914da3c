// Package config loads the rep-counter daemon configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/rep-counter/internal/calibration"
	"github.com/sweeney/rep-counter/internal/exercise"
	"github.com/sweeney/rep-counter/internal/framesource"
	"github.com/sweeney/rep-counter/internal/gpio"
	"github.com/sweeney/rep-counter/internal/logic"
	"github.com/sweeney/rep-counter/internal/mqtt"
	"github.com/sweeney/rep-counter/internal/pose"
	"github.com/sweeney/rep-counter/internal/session"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the complete daemon configuration.
type Config struct {
	Exercise    string            `yaml:"exercise"`
	StartFrames int               `yaml:"start_frames"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Cadence     CadenceConfig     `yaml:"cadence"`
	Source      SourceConfig      `yaml:"source"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	HTTP        HTTPConfig        `yaml:"http"`
	GPIO        GPIOConfig        `yaml:"gpio"`
}

// PipelineConfig contains the per-frame processing settings.
type PipelineConfig struct {
	MinVisibility      float64       `yaml:"min_visibility"`
	EMAAlpha           float64       `yaml:"ema_alpha"`
	HistorySize        int           `yaml:"history_size"`
	BackfillVisibility float64       `yaml:"backfill_visibility"`
	MaxBackfillAge     time.Duration `yaml:"max_backfill_age"`
	FeedbackCooldown   time.Duration `yaml:"feedback_cooldown"`
	Telemetry          bool          `yaml:"telemetry"`
	TelemetryFile      string        `yaml:"telemetry_file"` // JSON lines; empty = MQTT only
	CardioBypass       bool          `yaml:"cardio_bypass"`
}

// CalibrationConfig contains calibration sampling settings.
type CalibrationConfig struct {
	MinFrames     int           `yaml:"min_frames"`
	MinVisibility float64       `yaml:"min_visibility"`
	FPS           int           `yaml:"fps"`
	Duration      time.Duration `yaml:"duration"`
	OnStart       bool          `yaml:"on_start"` // calibrate from the first frames of the stream
	Auto          bool          `yaml:"auto"`     // calibrate when a mode needs it and none exists
}

// CadenceConfig contains the anomaly guard settings.
type CadenceConfig struct {
	Floor      time.Duration `yaml:"floor"`
	Ratio      float64       `yaml:"ratio"`
	History    int           `yaml:"history"`
	MinSamples int           `yaml:"min_samples"`
}

// SourceConfig selects the frame stream.
type SourceConfig struct {
	Kind string `yaml:"kind"` // jsonl, msgpack
	Path string `yaml:"path"` // "-" = stdin
}

// MQTTConfig contains MQTT broker settings.
type MQTTConfig struct {
	Broker      string        `yaml:"broker"` // empty disables publishing
	ClientID    string        `yaml:"client_id"`
	TopicPrefix string        `yaml:"topic_prefix"`
	BufferSize  int           `yaml:"buffer_size"`
	Heartbeat   time.Duration `yaml:"heartbeat"` // 0 disables
	WSBroker    string        `yaml:"ws_broker"` // "=broker" derives from broker, "off" disables
}

// HTTPConfig contains the status server settings.
type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables
}

// GPIOConfig contains the control button settings.
type GPIOConfig struct {
	Enabled  bool          `yaml:"enabled"`
	PinReset int           `yaml:"pin_reset"`
	PinNext  int           `yaml:"pin_next"`
	Poll     time.Duration `yaml:"poll"`
	Samples  int           `yaml:"samples"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	v := pose.DefaultValidatorConfig()
	c := logic.DefaultCadenceConfig()
	cal := calibration.DefaultConfig()
	s := session.DefaultConfig()

	return Config{
		Exercise:    s.Mode.String(),
		StartFrames: s.StartFrames,
		Pipeline: PipelineConfig{
			MinVisibility:      v.MinVisibility,
			EMAAlpha:           v.Alpha,
			HistorySize:        v.HistorySize,
			BackfillVisibility: v.BackfillVisibility,
			MaxBackfillAge:     v.MaxBackfillAge,
			FeedbackCooldown:   s.FeedbackCooldown,
		},
		Calibration: CalibrationConfig{
			MinFrames:     cal.MinFrames,
			MinVisibility: cal.MinVisibility,
			FPS:           cal.FPS,
			Duration:      3 * time.Second,
			Auto:          true,
		},
		Cadence: CadenceConfig{
			Floor:      c.Floor,
			Ratio:      c.Ratio,
			History:    c.History,
			MinSamples: c.MinSamples,
		},
		Source: SourceConfig{Kind: framesource.KindJSONL, Path: "-"},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			ClientID:    "rep-counter",
			TopicPrefix: mqtt.DefaultTopicPrefix,
			BufferSize:  mqtt.DefaultBufferSize,
			Heartbeat:   15 * time.Minute,
			WSBroker:    "=broker",
		},
		HTTP: HTTPConfig{Addr: ":8080"},
		GPIO: GPIOConfig{
			PinReset: gpio.DefaultPinReset,
			PinNext:  gpio.DefaultPinNext,
			Poll:     20 * time.Millisecond,
			Samples:  3,
		},
	}
}

// Load reads and parses a YAML configuration file. Keys missing from the
// file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and enumerations.
func Validate(cfg *Config) error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	_, err := exercise.ParseMode(cfg.Exercise)
	check(err == nil, "exercise %q is not a known mode", cfg.Exercise)
	check(cfg.StartFrames >= 1, "start_frames must be at least 1, got %d", cfg.StartFrames)

	p := cfg.Pipeline
	check(unit(p.MinVisibility), "pipeline.min_visibility must be in (0,1], got %v", p.MinVisibility)
	check(unit(p.EMAAlpha), "pipeline.ema_alpha must be in (0,1], got %v", p.EMAAlpha)
	check(p.HistorySize >= 1, "pipeline.history_size must be at least 1, got %d", p.HistorySize)
	check(unit(p.BackfillVisibility), "pipeline.backfill_visibility must be in (0,1], got %v", p.BackfillVisibility)
	check(p.MaxBackfillAge >= 0, "pipeline.max_backfill_age must not be negative")
	check(p.FeedbackCooldown >= 0, "pipeline.feedback_cooldown must not be negative")

	c := cfg.Calibration
	check(c.MinFrames >= 1, "calibration.min_frames must be at least 1, got %d", c.MinFrames)
	check(unit(c.MinVisibility), "calibration.min_visibility must be in (0,1], got %v", c.MinVisibility)
	check(c.FPS >= 1, "calibration.fps must be at least 1, got %d", c.FPS)
	check(c.Duration > 0, "calibration.duration must be positive")

	cd := cfg.Cadence
	check(cd.Floor >= 0, "cadence.floor must not be negative")
	check(cd.Ratio >= 0 && cd.Ratio < 1, "cadence.ratio must be in [0,1), got %v", cd.Ratio)
	check(cd.History >= 1, "cadence.history must be at least 1, got %d", cd.History)
	check(cd.MinSamples >= 1 && cd.MinSamples <= cd.History, "cadence.min_samples must be in [1,history], got %d", cd.MinSamples)

	check(cfg.Source.Kind == framesource.KindJSONL || cfg.Source.Kind == framesource.KindMsgpack,
		"source.kind must be %q or %q, got %q", framesource.KindJSONL, framesource.KindMsgpack, cfg.Source.Kind)
	check(cfg.Source.Path != "", "source.path is required")

	check(cfg.MQTT.BufferSize >= 1, "mqtt.buffer_size must be at least 1, got %d", cfg.MQTT.BufferSize)
	check(cfg.MQTT.Heartbeat >= 0, "mqtt.heartbeat must not be negative")

	if cfg.GPIO.Enabled {
		check(cfg.GPIO.PinReset != cfg.GPIO.PinNext, "gpio.pin_reset and gpio.pin_next must differ")
		check(cfg.GPIO.Poll > 0, "gpio.poll must be positive")
		check(cfg.GPIO.Samples >= 1, "gpio.samples must be at least 1, got %d", cfg.GPIO.Samples)
	}

	return errors.Join(errs...)
}

func unit(v float64) bool {
	return v > 0 && v <= 1
}

// Session maps the file onto the pipeline configuration.
func (c *Config) Session() session.Config {
	mode, err := exercise.ParseMode(c.Exercise)
	if err != nil {
		mode = exercise.PushUp
	}
	return session.Config{
		Mode: mode,
		Validator: pose.ValidatorConfig{
			MinVisibility:      c.Pipeline.MinVisibility,
			Alpha:              c.Pipeline.EMAAlpha,
			BackfillVisibility: c.Pipeline.BackfillVisibility,
			HistorySize:        c.Pipeline.HistorySize,
			MaxBackfillAge:     c.Pipeline.MaxBackfillAge,
		},
		Cadence: logic.CadenceConfig{
			Floor:      c.Cadence.Floor,
			Ratio:      c.Cadence.Ratio,
			History:    c.Cadence.History,
			MinSamples: c.Cadence.MinSamples,
		},
		Calibration: calibration.Config{
			MinFrames:     c.Calibration.MinFrames,
			MinVisibility: c.Calibration.MinVisibility,
			FPS:           c.Calibration.FPS,
		},
		StartFrames:      c.StartFrames,
		FeedbackCooldown: c.Pipeline.FeedbackCooldown,
		Telemetry:        c.Pipeline.Telemetry || c.Pipeline.TelemetryFile != "",
		CardioBypass:     c.Pipeline.CardioBypass,
	}
}

// MQTTOptions maps the file onto the publisher options.
func (c *Config) MQTTOptions() mqtt.Options {
	return mqtt.Options{
		Broker:     c.MQTT.Broker,
		ClientID:   c.MQTT.ClientID,
		Topics:     mqtt.TopicsFor(c.MQTT.TopicPrefix),
		BufferSize: c.MQTT.BufferSize,
	}
}
