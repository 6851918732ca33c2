package web

import (
	"fmt"
	"html/template"
	"image/color"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/espresso-gauge/internal/logic"
	"github.com/sweeney/espresso-gauge/internal/status"
)

// Graph geometry in SVG user units.
const (
	graphWidth  = 320
	graphHeight = 160
	barSegments = 40
)

// gridBars are the horizontal graph lines, in bar.
var gridBars = []int{0, 3, 6, 9}

type gridLine struct {
	Y     float64
	Label string
}

type segment struct {
	X, W  float64
	Color string
}

type view struct {
	status.Snapshot
	Uptime       time.Duration
	Pressure     string
	ShotSeconds  string
	LineColor    string
	Points       string
	Grid         []gridLine
	Segments     []segment
	BatteryLevel string
	Width        int
	Height       int
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// yFor maps a pressure to a graph row; values above scale pin to the top.
func yFor(p, scale logic.Pressure) float64 {
	if scale <= 0 {
		return graphHeight
	}
	v := float64(p) / float64(scale)
	if v > 1 {
		v = 1
	}
	if v < 0 {
		v = 0
	}
	return graphHeight - v*graphHeight
}

// polyline returns SVG points for h, oldest at the left edge.
func polyline(h []logic.Pressure, scale logic.Pressure) string {
	if len(h) == 0 {
		return ""
	}
	step := 0.0
	if len(h) > 1 {
		step = float64(graphWidth) / float64(len(h)-1)
	}
	var b strings.Builder
	for i, p := range h {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatFloat(float64(i)*step, 'f', 1, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(yFor(p, scale), 'f', 1, 64))
	}
	return b.String()
}

// gradientBar fills the bar up to the reading's position with the shared
// palette and leaves the rest dark.
func gradientBar(c *logic.Classifier, pos float32, scale logic.Pressure) []segment {
	w := float64(graphWidth) / barSegments
	segs := make([]segment, barSegments)
	for i := range segs {
		at := (float32(i) + 0.5) / barSegments
		col := "#202020"
		if at <= pos {
			col = hexColor(c.ColorAt(at, scale))
		}
		segs[i] = segment{X: float64(i) * w, W: w, Color: col}
	}
	return segs
}

func buildView(snap status.Snapshot, c *logic.Classifier) view {
	f := snap.Frame
	v := view{
		Snapshot:     snap,
		Uptime:       snap.Uptime(),
		Pressure:     f.Pressure.String(),
		ShotSeconds:  strconv.FormatFloat(f.Timer.Duration.Seconds(), 'f', 1, 64),
		LineColor:    hexColor(f.Severity.Zone.LineColor()),
		Points:       polyline(f.History, f.MaxRange),
		BatteryLevel: status.BatteryLevel(snap.Battery),
		Width:        graphWidth,
		Height:       graphHeight,
	}
	for _, bar := range gridBars {
		p := logic.Pressure(bar * 1000)
		if f.MaxRange > 0 && p > f.MaxRange {
			continue
		}
		v.Grid = append(v.Grid, gridLine{Y: yFor(p, f.MaxRange), Label: strconv.Itoa(bar)})
	}
	if c != nil {
		v.Segments = gradientBar(c, f.Severity.Position, f.MaxRange)
	}
	return v
}

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
	"ms": func(d time.Duration) int64 { return d.Milliseconds() },
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="2">
<title>Espresso Gauge</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; background: #000; color: #ddd; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #333; }
th { width: 40%; }
.pressure { font-size: 3em; }
.stop { color: #f00; font-weight: bold; font-size: 2em; margin-left: 0.5em; }
.ok, .green { color: #0f0; }
.failed, .red { color: #f00; }
.off, .unknown { color: #888; }
.yellow { color: #ff0; }
.orange { color: #fa0; }
</style>
</head>
<body>
<h1>Espresso Gauge</h1>

{{if .Rendered}}
<p><span id="pressure" class="pressure" style="color: {{.LineColor}}">{{.Pressure}} bar</span>{{if .Frame.Severity.Alarm}}<span id="alarm" class="stop">STOP!</span>{{end}}</p>
<p>Shot: <span id="shot">{{.ShotSeconds}}s</span> ({{.Frame.Timer.State}})</p>

<svg id="graph" width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}">
{{range .Grid}}<line x1="0" y1="{{.Y}}" x2="{{$.Width}}" y2="{{.Y}}" stroke="#444"/><text x="2" y="{{.Y}}" fill="#888" font-size="10">{{.Label}}</text>
{{end}}<polyline fill="none" stroke="{{.LineColor}}" stroke-width="2" points="{{.Points}}"/>
</svg>

<svg id="bar" width="{{.Width}}" height="12" viewBox="0 0 {{.Width}} 12">
{{range .Segments}}<rect x="{{.X}}" y="0" width="{{.W}}" height="12" fill="{{.Color}}"/>{{end}}
</svg>
{{else}}
<p>Waiting for first reading…</p>
{{end}}

<h2>Status</h2>
<table>
<tr><th>Zone</th><td>{{.Frame.Severity.Zone}}</td></tr>
<tr><th>Sensor</th><td>{{if .Frame.SensorOK}}ok{{else}}<span class="failed">error</span>{{end}}</td></tr>
<tr><th>Telemetry</th><td id="telemetry">{{.Frame.Telemetry}}</td></tr>
<tr><th>MQTT</th><td>{{if .MQTTConnected}}connected{{else}}disconnected{{end}} ({{.Config.Broker}})</td></tr>
<tr><th>Battery</th><td id="battery" class="{{.BatteryLevel}}">{{if lt .Battery 0}}unknown{{else}}{{.Battery}}%{{end}}</td></tr>
{{with .Frame.Debug}}<tr><th>Raw</th><td id="raw">{{.SensorHex}}</td></tr>
<tr><th>Last activity</th><td>{{.LastActivity.UTC.Format "15:04:05"}}</td></tr>
<tr><th>Power off in</th><td>{{ms .PowerOffIn}}ms</td></tr>{{end}}
</table>

<form method="post" action="/reset"><button type="submit">Reset shot timer</button></form>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Sensor source</th><td>{{.Config.SensorSource}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, v view) error {
	return indexTmpl.Execute(w, v)
}
