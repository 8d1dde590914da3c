package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/rep-counter/internal/mqtt"
	"github.com/sweeney/rep-counter/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"postureOrUnknown": func(s string) string {
		if s == "" {
			return "unknown"
		}
		return s
	},
	"clock": func(seconds int) string {
		return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Rep Counter</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.big { font-size: 2.4em; font-weight: bold; }
.correct { color: green; font-weight: bold; }
.incorrect { color: red; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.feedback.warning { color: #b60; }
.feedback.success { color: green; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Rep Counter{{if .Config.WSBroker}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2 id="label">{{if .Session.Label}}{{.Session.Label}}{{else}}{{.Config.Exercise}}{{end}}</h2>
<table>
{{if eq (printf "%s" .Session.Kind) "hold"}}<tr><th>Time</th><td id="value" class="big">{{clock .Session.Seconds}}</td></tr>
<tr><th>Timer</th><td id="timer">{{if .Session.HoldRunning}}running{{else}}paused{{end}}</td></tr>
{{else}}<tr><th>Reps</th><td id="value" class="big">{{.Session.Count}}</td></tr>
<tr><th>Started</th><td>{{if .Session.GateOpen}}yes{{else}}waiting for start position{{end}}</td></tr>
{{end}}<tr><th>Posture</th><td id="posture" class="{{postureOrUnknown (printf "%s" .Session.Posture)}}">{{postureOrUnknown (printf "%s" .Session.Posture)}}</td></tr>
<tr><th>Feedback</th><td id="feedback" class="feedback"></td></tr>
</table>

<h2>Calibration</h2>
<table>
{{if .Session.Calibrating}}<tr><th>State</th><td class="unknown">calibrating</td></tr>
{{else if .Session.Calibration}}<tr><th>Shoulder width</th><td>{{printf "%.3f" .Session.Calibration.ShoulderWidth}}</td></tr>
<tr><th>Ankle spacing</th><td>{{printf "%.3f" .Session.Calibration.NeutralAnkleSpacing}}</td></tr>
<tr><th>Torso length</th><td>{{printf "%.3f" .Session.Calibration.TorsoLength}}</td></tr>
<tr><th>Source</th><td>{{if .Session.Calibration.IsDefault}}defaults{{else}}{{.Session.Calibration.FrameCount}} frames{{end}}</td></tr>
{{else}}<tr><th>State</th><td>not calibrated</td></tr>
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Session</h2>
<table>
<tr><th>Reps counted</th><td>{{.Counts.Reps}}</td></tr>
<tr><th>Posture changes</th><td>{{.Counts.PostureChanges}}</td></tr>
<tr><th>Warnings</th><td>{{.Counts.Warnings}}</td></tr>
<tr><th>Frames</th><td>{{.Session.Frames}} ({{.Session.Skipped}} skipped)</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Source</th><td>{{.Config.SourceKind}} {{.Config.SourcePath}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
{{if .Config.WSBroker}}
<script src="https://unpkg.com/mqtt@5/dist/mqtt.min.js"></script>
<script>
(function() {
  var broker = "{{.Config.WSBroker}}";
  var topic = "{{.EventsTopic}}";
  var dot = document.getElementById("live-dot");
  var valueEl = document.getElementById("value");
  var postureEl = document.getElementById("posture");
  var feedbackEl = document.getElementById("feedback");
  var timerEl = document.getElementById("timer");

  function pad(n) { return n < 10 ? "0" + n : "" + n; }

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  var client = mqtt.connect(broker, { reconnectPeriod: 5000 });

  client.on("connect", function() {
    setDot("ok", "live");
    client.subscribe(topic);
  });

  client.on("reconnect", function() {
    setDot("pending", "reconnecting");
  });

  client.on("offline", function() {
    setDot("err", "offline");
  });

  client.on("error", function() {
    setDot("err", "error");
  });

  client.on("message", function(t, payload) {
    try {
      var msg = JSON.parse(payload.toString()).rep_counter;
      if (!msg) return;
      switch (msg.event) {
      case "rep_count":
        valueEl.textContent = msg.count;
        break;
      case "time_update":
        valueEl.textContent = Math.floor(msg.seconds / 60) + ":" + pad(msg.seconds % 60);
        if (timerEl) timerEl.textContent = msg.paused ? "paused" : "running";
        break;
      case "posture_change":
        postureEl.textContent = msg.posture;
        postureEl.className = msg.posture;
        break;
      case "form_feedback":
        feedbackEl.textContent = msg.feedback.message;
        feedbackEl.className = "feedback " + msg.feedback.type;
        break;
      }
    } catch (e) {}
  });
})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime      time.Duration
		EventsTopic string
	}{
		Snapshot:    snap,
		Uptime:      snap.Uptime(),
		EventsTopic: mqtt.TopicsFor(snap.Config.TopicPrefix).Events,
	}
	indexTmpl.Execute(w, data)
}
