package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/rep-counter/internal/calibration"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string            `json:"event,omitempty"`
	Reason        string            `json:"reason,omitempty"`
	SessionID     string            `json:"session_id,omitempty"`
	Exercise      ExerciseJSON      `json:"exercise"`
	Calibrating   bool              `json:"calibrating"`
	Calibration   *calibration.Data `json:"calibration,omitempty"`
	Frames        FramesJSON        `json:"frames"`
	Ready         bool              `json:"ready"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	StartTime     string            `json:"start_time"`
	Timestamp     string            `json:"timestamp"`
	MQTT          MQTTStatus        `json:"mqtt"`
	Counts        CountsJSON        `json:"event_counts"`
	Network       *NetworkJSON      `json:"network,omitempty"`
	Config        ConfigJSON        `json:"config"`
}

// ExerciseJSON describes the active exercise mode.
type ExerciseJSON struct {
	Mode        string `json:"mode"`
	Label       string `json:"label"`
	Kind        string `json:"kind"`
	Count       int    `json:"count"`
	Seconds     int    `json:"seconds"`
	Posture     string `json:"posture"`
	Phase       string `json:"phase,omitempty"`
	HoldRunning bool   `json:"hold_running"`
	GateOpen    bool   `json:"gate_open"`
}

// FramesJSON reports frame throughput.
type FramesJSON struct {
	Processed uint64 `json:"processed"`
	Skipped   uint64 `json:"skipped"`
	Last      string `json:"last,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Reps           int `json:"reps"`
	PostureChanges int `json:"posture_changes"`
	Warnings       int `json:"warnings"`
	Calibrations   int `json:"calibrations"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Exercise     string `json:"exercise"`
	SourceKind   string `json:"source_kind"`
	SourcePath   string `json:"source_path"`
	HeartbeatMs  int64  `json:"heartbeat_ms"`
	Broker       string `json:"broker"`
	TopicPrefix  string `json:"topic_prefix"`
	HTTPAddr     string `json:"http_addr"`
	WSBroker     string `json:"ws_broker,omitempty"`
	Telemetry    bool   `json:"telemetry"`
	CardioBypass bool   `json:"cardio_bypass"`
}

func buildInner(snap Snapshot) StatusInner {
	s := snap.Session
	posture := string(s.Posture)
	if posture == "" {
		posture = "unknown"
	}
	mode := s.Mode
	if mode == "" {
		mode = snap.Config.Exercise
	}

	inner := StatusInner{
		SessionID: s.SessionID,
		Exercise: ExerciseJSON{
			Mode:        mode,
			Label:       s.Label,
			Kind:        string(s.Kind),
			Count:       s.Count,
			Seconds:     s.Seconds,
			Posture:     posture,
			Phase:       string(s.Phase),
			HoldRunning: s.HoldRunning,
			GateOpen:    s.GateOpen,
		},
		Calibrating:   s.Calibrating,
		Calibration:   s.Calibration,
		Frames:        FramesJSON{Processed: s.Frames, Skipped: s.Skipped},
		Ready:         snap.Ready(),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Reps:           snap.Counts.Reps,
			PostureChanges: snap.Counts.PostureChanges,
			Warnings:       snap.Counts.Warnings,
			Calibrations:   snap.Counts.Calibrations,
		},
		Config: ConfigJSON{
			Exercise:     snap.Config.Exercise,
			SourceKind:   snap.Config.SourceKind,
			SourcePath:   snap.Config.SourcePath,
			HeartbeatMs:  snap.Config.HeartbeatMs,
			Broker:       snap.Config.Broker,
			TopicPrefix:  snap.Config.TopicPrefix,
			HTTPAddr:     snap.Config.HTTPAddr,
			WSBroker:     snap.Config.WSBroker,
			Telemetry:    snap.Config.Telemetry,
			CardioBypass: snap.Config.CardioBypass,
		},
	}
	if !s.LastFrame.IsZero() {
		inner.Frames.Last = s.LastFrame.UTC().Format(time.RFC3339Nano)
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
