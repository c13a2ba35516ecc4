package web

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/sweeney/probe-fixture/internal/status"
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
	"flag": func(b bool) string {
		if b {
			return "active"
		}
		return "clear"
	},
	"direction": func(down bool) string {
		if down {
			return "down"
		}
		return "up"
	},
	"stateClass": func(state string) string {
		switch {
		case state == "emergency-stop":
			return "emergency"
		case strings.HasPrefix(state, "going"):
			return "moving"
		case strings.HasPrefix(state, "stop"):
			return "stopped"
		}
		return "init"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Probe Fixture</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.active { color: green; font-weight: bold; }
.clear { color: #888; }
.moving { color: #06c; font-weight: bold; }
.stopped { color: green; font-weight: bold; }
.emergency { color: red; font-weight: bold; }
.init { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Probe Fixture</h1>

<h2>Probe</h2>
<table>
<tr><th>State</th><td class="{{stateClass .Vector.State.String}}">{{.Vector.State.String}} ({{printf "%c" .Vector.State}})</td></tr>
<tr><th>Ready</th><td>{{if .Started}}yes{{else}}warming up{{end}}</td></tr>
<tr><th>Rotation count</th><td>{{.Vector.Count}}</td></tr>
<tr><th>PWM frequency</th><td>{{.Vector.PWMFrequency}} Hz</td></tr>
<tr><th>Dump frame</th><td>{{.Vector.Encode}}</td></tr>
</table>

<h2>Sensors</h2>
<table>
<tr><th>Jumper</th><td class="{{flag .Vector.Jumper}}">{{flag .Vector.Jumper}}</td></tr>
<tr><th>Debug button</th><td class="{{flag .Vector.DebugButton}}">{{flag .Vector.DebugButton}}</td></tr>
<tr><th>Extreme up</th><td class="{{flag .Vector.SensorExtremeUp}}">{{flag .Vector.SensorExtremeUp}}</td></tr>
<tr><th>Up</th><td class="{{flag .Vector.SensorUp}}">{{flag .Vector.SensorUp}}</td></tr>
<tr><th>Down</th><td class="{{flag .Vector.SensorDown}}">{{flag .Vector.SensorDown}}</td></tr>
<tr><th>Safety</th><td class="{{if .Vector.SensorSafety}}emergency{{else}}clear{{end}}">{{flag .Vector.SensorSafety}}</td></tr>
</table>

<h2>Motor</h2>
<table>
<tr><th>Direction</th><td>{{direction .Vector.MotorDir}}</td></tr>
<tr><th>Enabled</th><td>{{if .Vector.MotorEnable}}no{{else}}yes{{end}}</td></tr>
<tr><th>Lock release</th><td>{{flag .Vector.MotorLock}}</td></tr>
<tr><th>Duty</th><td>{{if .Vector.MotorDuty}}half{{else}}off{{end}}</td></tr>
</table>

<h2>Activity</h2>
<table>
<tr><th>Drives</th><td>{{.Counts.Drives}}</td></tr>
<tr><th>Stops</th><td>{{.Counts.Stops}}</td></tr>
<tr><th>Emergency stops</th><td>{{.Counts.EmergencyStops}}</td></tr>
<tr><th>Host commands</th><td>{{.Counts.Commands}}</td></tr>
<tr><th>Debug dumps</th><td>{{.Counts.Dumps}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Control port</th><td>{{.Config.ControlDevice}}</td></tr>
<tr><th>Debug port</th><td>{{.Config.DebugDevice}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Jumper override</th><td>{{if .Config.JumperOverride}}on{{else}}off{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

// renderHTML renders the status page. Errors are ignored: the connection is
// the only failure mode and the client sees a truncated page either way.
func renderHTML(w io.Writer, snap status.Snapshot) {
	_ = indexTmpl.Execute(w, snap)
}
