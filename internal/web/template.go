package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/washer-sequencer/internal/status"
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
	"onoff": status.OnOff,
	"phaseOrNone": func(s string) string {
		if s == "" {
			return "none"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
{{if not .Live}}<meta http-equiv="refresh" content="5">{{end}}
<title>Washer</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.fault { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Washer{{if .Live}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>Program</h2>
<table>
<tr><th>State</th><td id="state" class="{{if eq .State "FAULT"}}fault{{end}}">{{.State}}</td></tr>
{{if .Fault}}<tr><th>Fault</th><td id="fault" class="fault">{{.Fault}}</td></tr>{{end}}
<tr><th>Phase</th><td id="phase">{{phaseOrNone (printf "%s" .Phase)}} ({{.PhaseIndex}}/{{.PhaseCount}})</td></tr>
{{if .Block}}<tr><th>Block</th><td id="block">{{.Block}} {{.Run}}/{{.Of}}</td></tr>{{end}}
</table>

<h2>Actuators</h2>
<table>
<tr><th>Power</th><td id="power" class="{{if .Actuators.Power}}on{{else}}off{{end}}">{{onoff .Actuators.Power}}</td></tr>
<tr><th>Direction</th><td id="direction" class="{{if .Actuators.Direction}}on{{else}}off{{end}}">{{onoff .Actuators.Direction}}</td></tr>
<tr><th>Drain</th><td id="drain" class="{{if .Actuators.Drain}}on{{else}}off{{end}}">{{onoff .Actuators.Drain}}</td></tr>
<tr><th>Inlet</th><td id="inlet" class="{{if .Actuators.Inlet}}on{{else}}off{{end}}">{{onoff .Actuators.Inlet}}</td></tr>
<tr><th>Transitions</th><td>{{.Transitions}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Chip</th><td>{{.Config.Chip}}</td></tr>
<tr><th>Fill timeout</th><td>{{if eq .Config.FillTimeoutMs 0}}none{{else}}{{.Config.FillTimeoutMs}}ms{{end}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
<tr><th>StatsD</th><td>{{if .Config.StatsdAddr}}{{.Config.StatsdAddr}}{{else}}disabled{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
{{if .Live}}
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var phaseEl = document.getElementById("phase");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function connect() {
    var scheme = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(scheme + location.host + "/events");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(m) {
      var e;
      try { e = JSON.parse(m.data); } catch (err) { return; }
      if (e.type === "actuator") {
        var el = document.getElementById(e.actuator);
        if (el) {
          el.textContent = e.state;
          el.className = e.state === "ON" ? "on" : "off";
        }
      } else if (e.type === "phase_started") {
        phaseEl.textContent = e.phase;
      } else if (e.type === "phase_failed") {
        location.reload();
      }
    };
  }
  connect();
})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, live bool) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Live   bool
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Live:     live,
	}
	return indexTmpl.Execute(w, data)
}
