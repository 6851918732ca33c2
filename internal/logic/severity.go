package logic

import (
	"image/color"

	"github.com/chewxy/math32"
)

// Zone is the discrete risk classification of a pressure reading.
type Zone string

const (
	ZoneNormal   Zone = "NORMAL"
	ZoneElevated Zone = "ELEVATED"
	ZoneWarning  Zone = "WARNING"
	ZoneDanger   Zone = "DANGER"
)

var (
	colorGreen  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	colorYellow = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	colorRed    = color.RGBA{R: 255, G: 0, B: 0, A: 255}
)

// LineColor returns the colour used for the history graph and pressure text.
func (z Zone) LineColor() color.RGBA {
	switch z {
	case ZoneDanger:
		return colorRed
	case ZoneWarning:
		return colorYellow
	default:
		return colorGreen
	}
}

// Severity is the classification of one reading.
type Severity struct {
	Zone Zone
	// Position is the reading's place on the gradient scale, in [0,1].
	Position float32
	// Alarm is set in the danger zone; the consumer shows "STOP!".
	Alarm bool
}

// Thresholds are the inclusive lower bounds of the non-normal zones.
type Thresholds struct {
	Elevated Pressure
	Warning  Pressure
	Danger   Pressure
}

// DefaultThresholds are the reference zone bounds: 6, 9 and 12 bar.
var DefaultThresholds = Thresholds{Elevated: 6000, Warning: 9000, Danger: 12000}

// GradientStop is one breakpoint of the piecewise-linear bar palette.
type GradientStop struct {
	At    Pressure
	Color color.RGBA
}

// DefaultGradient runs gray, green, yellow, red across 0..10 bar.
var DefaultGradient = []GradientStop{
	{At: 0, Color: color.RGBA{R: 64, G: 64, B: 64, A: 255}},
	{At: 6000, Color: color.RGBA{R: 96, G: 96, B: 96, A: 255}},
	{At: 7000, Color: colorGreen},
	{At: 8000, Color: colorGreen},
	{At: 8500, Color: colorYellow},
	{At: 10000, Color: colorRed},
}

// Classifier maps readings to zones and gradient colours. The graph and the
// gradient bar share one Classifier so both use the same palette and scale.
type Classifier struct {
	thresholds Thresholds
	headroom   Pressure
	gradient   []GradientStop
}

// NewClassifier creates a classifier. headroom is subtracted from the sensor's
// maximum range to obtain the full-scale value of graphs and bars.
func NewClassifier(th Thresholds, headroom Pressure, gradient []GradientStop) *Classifier {
	if len(gradient) == 0 {
		gradient = DefaultGradient
	}
	return &Classifier{thresholds: th, headroom: headroom, gradient: gradient}
}

// Scale returns the full-scale pressure for a sensor with the given maximum.
func (c *Classifier) Scale(sensorMax Pressure) Pressure {
	s := sensorMax - c.headroom
	if s < 1 {
		return 1
	}
	return s
}

// Classify returns the zone and gradient position of p.
func (c *Classifier) Classify(p, sensorMax Pressure) Severity {
	zone := ZoneNormal
	switch {
	case p >= c.thresholds.Danger:
		zone = ZoneDanger
	case p >= c.thresholds.Warning:
		zone = ZoneWarning
	case p >= c.thresholds.Elevated:
		zone = ZoneElevated
	}

	pos := float32(p) / float32(c.Scale(sensorMax))
	return Severity{
		Zone:     zone,
		Position: math32.Min(math32.Max(pos, 0), 1),
		Alarm:    zone == ZoneDanger,
	}
}

// Color returns the palette colour at pressure p.
func (c *Classifier) Color(p Pressure) color.RGBA {
	g := c.gradient
	if p <= g[0].At {
		return g[0].Color
	}
	for i := 1; i < len(g); i++ {
		if p <= g[i].At {
			lo, hi := g[i-1], g[i]
			t := float32(p-lo.At) / float32(hi.At-lo.At)
			return color.RGBA{
				R: lerp(lo.Color.R, hi.Color.R, t),
				G: lerp(lo.Color.G, hi.Color.G, t),
				B: lerp(lo.Color.B, hi.Color.B, t),
				A: 255,
			}
		}
	}
	return g[len(g)-1].Color
}

// ColorAt returns the palette colour at gradient position pos in [0,1] of a
// meter whose full scale is scale (see Scale).
func (c *Classifier) ColorAt(pos float32, scale Pressure) color.RGBA {
	pos = math32.Min(math32.Max(pos, 0), 1)
	return c.Color(Pressure(math32.Round(pos * float32(scale))))
}

func lerp(a, b uint8, t float32) uint8 {
	v := float32(a) + (float32(b)-float32(a))*t
	return uint8(math32.Round(math32.Min(math32.Max(v, 0), 255)))
}
