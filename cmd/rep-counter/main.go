// Command rep-counter reads pose frames from a pose-estimation worker, counts
// exercise repetitions and hold time, and publishes the results to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/rep-counter/internal/calibration"
	"github.com/sweeney/rep-counter/internal/config"
	"github.com/sweeney/rep-counter/internal/exercise"
	"github.com/sweeney/rep-counter/internal/framesource"
	"github.com/sweeney/rep-counter/internal/gpio"
	"github.com/sweeney/rep-counter/internal/logic"
	"github.com/sweeney/rep-counter/internal/mqtt"
	"github.com/sweeney/rep-counter/internal/pose"
	"github.com/sweeney/rep-counter/internal/session"
	"github.com/sweeney/rep-counter/internal/status"
	"github.com/sweeney/rep-counter/internal/telemetry"
	"github.com/sweeney/rep-counter/internal/web"
)

// publishQueueSize bounds events waiting for the broker.
const publishQueueSize = 256

func main() {
	configPath := flag.String("config", "", "YAML configuration file (built-in defaults when empty)")
	envFile := flag.String("env-file", "/run/pi-helper.env", "Env file with NETWORK_* variables (ignored if missing)")
	printConfig := flag.Bool("print-config", false, "Print the resolved configuration and exit")
	registerOverrides(flag.CommandLine, config.Default())

	flag.Parse()

	cfg, err := resolveConfig(*configPath, flag.CommandLine)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if *printConfig {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		os.Stdout.Write(out)
		return
	}

	loadEnvFile(*envFile)

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// registerOverrides declares the flags that override configuration file values.
func registerOverrides(fs *flag.FlagSet, d config.Config) {
	fs.String("exercise", d.Exercise, "Initial exercise mode")
	fs.String("source", d.Source.Path, `Frame stream path ("-" for stdin)`)
	fs.String("source-kind", d.Source.Kind, "Frame stream encoding (jsonl, msgpack)")
	fs.String("broker", d.MQTT.Broker, "MQTT broker address (empty to disable)")
	fs.String("topic-prefix", d.MQTT.TopicPrefix, "MQTT topic prefix")
	fs.Duration("heartbeat", d.MQTT.Heartbeat, "Heartbeat interval (0 to disable)")
	fs.String("http", d.HTTP.Addr, "HTTP status address (empty to disable)")
	fs.String("ws-broker", d.MQTT.WSBroker, `MQTT websocket URL for live UI ("=broker" derives from --broker, "off" disables)`)
	fs.Bool("telemetry", d.Pipeline.Telemetry, "Publish per-frame telemetry")
	fs.String("telemetry-file", d.Pipeline.TelemetryFile, "Append per-frame telemetry as JSON lines to this file")
	fs.Bool("calibrate", d.Calibration.OnStart, "Calibrate body proportions from the first frames")
	fs.Bool("cardio-bypass", d.Pipeline.CardioBypass, "Count cardio reps even when the posture check fails")
	fs.Bool("gpio", d.GPIO.Enabled, "Enable reset/next-exercise buttons")
	fs.Int("pin-reset", d.GPIO.PinReset, "BCM pin number for the reset button")
	fs.Int("pin-next", d.GPIO.PinNext, "BCM pin number for the next-exercise button")
}

// resolveConfig loads the file (or defaults), then applies the flags that
// were set explicitly on the command line.
func resolveConfig(path string, fs *flag.FlagSet) (*config.Config, error) {
	var cfg *config.Config
	if path == "" {
		d := config.Default()
		cfg = &d
	} else {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if err := applyOverrides(cfg, fs); err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyOverrides(cfg *config.Config, fs *flag.FlagSet) error {
	var errs []error
	boolean := func(name, v string, dst *bool) {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("-%s: %w", name, err))
			return
		}
		*dst = b
	}
	integer := func(name, v string, dst *int) {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("-%s: %w", name, err))
			return
		}
		*dst = n
	}

	fs.Visit(func(f *flag.Flag) {
		v := f.Value.String()
		switch f.Name {
		case "exercise":
			cfg.Exercise = v
		case "source":
			cfg.Source.Path = v
		case "source-kind":
			cfg.Source.Kind = v
		case "broker":
			cfg.MQTT.Broker = v
		case "topic-prefix":
			cfg.MQTT.TopicPrefix = v
		case "heartbeat":
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("-heartbeat: %w", err))
				return
			}
			cfg.MQTT.Heartbeat = d
		case "http":
			cfg.HTTP.Addr = v
		case "ws-broker":
			cfg.MQTT.WSBroker = v
		case "telemetry":
			boolean(f.Name, v, &cfg.Pipeline.Telemetry)
		case "telemetry-file":
			cfg.Pipeline.TelemetryFile = v
		case "calibrate":
			boolean(f.Name, v, &cfg.Calibration.OnStart)
		case "cardio-bypass":
			boolean(f.Name, v, &cfg.Pipeline.CardioBypass)
		case "gpio":
			boolean(f.Name, v, &cfg.GPIO.Enabled)
		case "pin-reset":
			integer(f.Name, v, &cfg.GPIO.PinReset)
		case "pin-next":
			integer(f.Name, v, &cfg.GPIO.PinNext)
		}
	})
	return errors.Join(errs...)
}

// loadEnvFile loads pi-helper's env file. Variables already set in the
// environment win.
func loadEnvFile(path string) {
	if path == "" {
		return
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("env file %s: %v", path, err)
	}
}

func run(cfg *config.Config) error {
	src, err := framesource.Open(cfg.Source.Kind, cfg.Source.Path)
	if err != nil {
		return err
	}
	defer src.Close()

	var publisher mqtt.Publisher = nopPublisher{}
	var connStatus mqtt.ConnectionStatus = nopPublisher{}
	if cfg.MQTT.Broker != "" {
		p, err := mqtt.NewRealPublisher(cfg.MQTTOptions())
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer p.Close()
		publisher, connStatus = p, p
	}
	queue := newPublishQueue(publisher, publishQueueSize)

	ws := resolveWSBroker(cfg.MQTT.WSBroker, cfg.MQTT.Broker)
	tracker := status.NewTracker(time.Now(), statusConfig(cfg, ws))
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	var tw *telemetry.Writer
	if cfg.Pipeline.TelemetryFile != "" {
		f, err := os.OpenFile(cfg.Pipeline.TelemetryFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open telemetry file: %w", err)
		}
		defer f.Close()
		tw = telemetry.NewWriter(f)
	}

	sess := session.New(cfg.Session(), newHandlers(tracker, queue, tw))
	tracker.Update(sess.Stats())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	queue.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	})

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	tickInterval := time.Second
	var buttons *gpio.Buttons
	if cfg.GPIO.Enabled {
		r, err := gpio.NewRealReader(cfg.GPIO.PinReset, cfg.GPIO.PinNext)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		buttons = gpio.NewButtons(r, cfg.GPIO.Samples)
		defer buttons.Close()
		tickInterval = cfg.GPIO.Poll
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	frames := make(chan pose.Frame)
	go readFrames(ctx, src, frames)

	log.Printf("started: session=%s exercise=%s source=%s:%s broker=%s heartbeat=%v",
		sess.ID(), cfg.Exercise, cfg.Source.Kind, cfg.Source.Path, cfg.MQTT.Broker, cfg.MQTT.Heartbeat)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)

	lc := loopConfig{
		Heartbeat:         cfg.MQTT.Heartbeat,
		CalibrationWindow: cfg.Calibration.Duration,
		CalibrateOnStart:  cfg.Calibration.OnStart,
		AutoCalibrate:     cfg.Calibration.Auto,
	}
	err = runLoop(frames, buttons, sess, queue, connStatus, tracker, lc, time.Now, ticker.C, sigCh)
	queue.Close()
	return err
}

// newHandlers wires session events to the tracker, the telemetry file and
// the publish queue. Handlers run on the frame loop (or the calibration
// goroutine) and never block.
func newHandlers(tracker *status.Tracker, pub mqtt.Publisher, tw *telemetry.Writer) session.Handlers {
	return session.Handlers{
		OnRepCount: func(count int) {
			log.Printf("event: rep count=%d", count)
		},
		OnPostureChange: func(s logic.Status, _ pose.Frame) {
			log.Printf("event: posture %s", s)
		},
		OnCalibrationComplete: func(d calibration.Data) {
			log.Printf("event: calibration complete frames=%d default=%v shoulder=%.3f ankles=%.3f torso=%.3f",
				d.FrameCount, d.IsDefault, d.ShoulderWidth, d.NeutralAnkleSpacing, d.TorsoLength)
		},
		Sink: func(e session.Event) {
			tracker.Record(e)
			if tw != nil && e.Telemetry != nil {
				if err := tw.Write(*e.Telemetry); err != nil {
					log.Printf("telemetry write error: %v", err)
				}
			}
			// Queue errors are logged by the queue.
			pub.Publish(e)
		},
	}
}

// readFrames feeds frames from src to out until the stream ends. Malformed
// frames are skipped. out is closed on return.
func readFrames(ctx context.Context, src framesource.Source, out chan<- pose.Frame) {
	defer close(out)
	for {
		f, err := src.Next(ctx)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			log.Printf("frame source: end of stream")
			return
		case errors.Is(err, pose.ErrMalformedFrame):
			log.Printf("frame source: skipping: %v", err)
			continue
		case ctx.Err() != nil:
			return
		default:
			log.Printf("frame source: %v", err)
			return
		}

		select {
		case out <- f:
		case <-ctx.Done():
			return
		}
	}
}

// chanReader lets calibration consume frames from the loop's channel.
type chanReader <-chan pose.Frame

func (c chanReader) Next(ctx context.Context) (pose.Frame, error) {
	select {
	case <-ctx.Done():
		return pose.Frame{}, ctx.Err()
	case f, ok := <-c:
		if !ok {
			return pose.Frame{}, io.EOF
		}
		return f, nil
	}
}

type loopConfig struct {
	Heartbeat         time.Duration
	CalibrationWindow time.Duration
	CalibrateOnStart  bool
	AutoCalibrate     bool
}

func runLoop(frames <-chan pose.Frame, buttons *gpio.Buttons, sess *session.Session, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, lc loopConfig, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	lastHeartbeat := now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// While calibrating the calibration goroutine owns the frame channel and
	// input is nil.
	input := frames
	var calDone chan error
	startCalibration := func(reason string) {
		log.Printf("calibration: starting (%s, window=%v)", reason, lc.CalibrationWindow)
		input = nil
		calDone = make(chan error, 1)
		go func() {
			_, err := sess.Calibrate(ctx, chanReader(frames), lc.CalibrationWindow, nil)
			calDone <- err
		}()
	}

	refresh := func() {
		tracker.Update(sess.Stats())
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
	}

	shutdown := func(reason string) error {
		cancel()
		if calDone != nil {
			<-calDone
		}
		refresh()
		snap := tracker.Snapshot()
		event := mqtt.SystemEvent{
			Timestamp:  now(),
			Event:      "SHUTDOWN",
			Reason:     reason,
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", reason),
		}
		if err := publisher.PublishSystem(event); err != nil {
			log.Printf("failed to publish shutdown event: %v", err)
		} else {
			log.Printf("published shutdown event")
		}
		return nil
	}

	if lc.CalibrateOnStart {
		startCalibration("startup")
	}

	for {
		select {
		case s := <-sig:
			if s == syscall.SIGUSR1 {
				on := !tracker.Snapshot().Config.CardioBypass
				sess.SetCardioBypass(on)
				tracker.SetCardioBypass(on)
				log.Printf("received %v, cardio bypass %v", s, on)
				continue
			}
			log.Printf("received %v, shutting down", s)
			return shutdown(signalName(s))

		case err := <-calDone:
			calDone = nil
			input = frames
			if err != nil {
				log.Printf("calibration failed: %v", err)
			}
			refresh()

		case f, ok := <-input:
			if !ok {
				log.Printf("frame stream closed, shutting down")
				return shutdown("EOF")
			}
			if sess.Process(f) == session.NotCalibrated && lc.AutoCalibrate {
				startCalibration(sess.Mode().String() + " needs calibration")
			}
			tracker.Update(sess.Stats())

		case <-tick:
			t := now()
			if buttons != nil {
				p, err := buttons.Poll(t)
				if err != nil {
					log.Printf("gpio read error: %v", err)
				} else if p.Any() {
					handlePress(sess, p)
				}
			}
			refresh()

			if lc.Heartbeat > 0 && t.Sub(lastHeartbeat) >= lc.Heartbeat {
				lastHeartbeat = t
				// Refresh network info for heartbeat
				if net := readNetworkInfo(); net != nil {
					tracker.SetNetwork(net)
				}
				snap := tracker.Snapshot()
				log.Printf("heartbeat: uptime=%v mode=%s count=%d frames=%d skipped=%d",
					snap.Uptime().Truncate(time.Second), snap.Session.Mode, snap.Session.Count, snap.Session.Frames, snap.Session.Skipped)
				hb := mqtt.SystemEvent{
					Timestamp:  t,
					Event:      "HEARTBEAT",
					RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
				}
				if err := publisher.PublishSystem(hb); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

func handlePress(sess *session.Session, p gpio.Press) {
	if p.Reset {
		sess.ResetCounter()
		log.Printf("button: reset %s", sess.Mode())
	}
	if p.Next {
		next := exercise.Next(sess.Mode())
		if err := sess.SetExerciseMode(next); err != nil {
			log.Printf("button: %v", err)
			return
		}
		log.Printf("button: switched to %s", next)
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func statusConfig(cfg *config.Config, wsBroker string) status.Config {
	return status.Config{
		Exercise:     cfg.Exercise,
		SourceKind:   cfg.Source.Kind,
		SourcePath:   cfg.Source.Path,
		HeartbeatMs:  cfg.MQTT.Heartbeat.Milliseconds(),
		Broker:       cfg.MQTT.Broker,
		TopicPrefix:  cfg.MQTT.TopicPrefix,
		HTTPAddr:     cfg.HTTP.Addr,
		WSBroker:     wsBroker,
		Telemetry:    cfg.Pipeline.Telemetry,
		CardioBypass: cfg.Pipeline.CardioBypass,
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// resolveWSBroker converts the --ws-broker flag value into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; "off" or an
// empty broker disables.
func resolveWSBroker(ws, broker string) string {
	if ws == "off" || ws == "" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	if broker == "" {
		return ""
	}
	u, err := url.Parse(broker)
	if err != nil {
		log.Printf("ws-broker: cannot parse --broker %q: %v", broker, err)
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
