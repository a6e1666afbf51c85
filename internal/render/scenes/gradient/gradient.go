package gradient

import (
	"sort"
	"time"

	"github.com/coreman2200/pixelclock/internal/color"
	"github.com/coreman2200/pixelclock/internal/render"
)

// Stop pins a color to a pixel address.
type Stop struct {
	Pixel int         `yaml:"pixel"`
	Color color.Color `yaml:"color"`
}

type Params struct {
	Stops  []Stop        `yaml:"stops"`
	Period time.Duration `yaml:"period"` // one full back and forth sweep, 0 holds still
}

func DefaultParams() Params {
	return Params{
		Stops: []Stop{
			{Pixel: 0, Color: color.Red},
			{Pixel: 64, Color: color.Blue},
			{Pixel: 128, Color: color.Green},
		},
		Period: 20 * time.Second,
	}
}

// Gradient draws a piecewise linear ramp along the chain whose stop
// colors swing toward their predecessors and back.
type Gradient struct {
	render.Base
	p Params
}

func New(c color.Color, p Params) *Gradient {
	stops := append([]Stop(nil), p.Stops...)
	sort.SliceStable(stops, func(i, j int) bool { return stops[i].Pixel < stops[j].Pixel })
	p.Stops = stops
	return &Gradient{Base: render.NewBase(c), p: p}
}

func (g *Gradient) Kind() render.Kind   { return render.GradientSweep }
func (g *Gradient) Begin(time.Duration) { g.Start() }
func (g *Gradient) Loop(time.Duration)  {}

// Phase is a triangle wave in [0,1] over Period.
func (g *Gradient) Phase(now time.Duration) float64 {
	if g.p.Period <= 0 {
		return 0
	}
	if now < 0 {
		now = 0
	}
	x := 2 * float64(now%g.p.Period) / float64(g.p.Period)
	if x > 1 {
		return 2 - x
	}
	return x
}

func blend(a, b color.Color, t float64) color.Color {
	return color.FromColorful(a.Colorful().BlendRgb(b.Colorful(), t))
}

func (g *Gradient) Render(dst *render.Frame, now time.Duration) {
	stops := g.p.Stops
	n := dst.Len()
	if len(stops) == 0 || n == 0 {
		dst.Clear()
		return
	}
	ph := g.Phase(now)
	eff := make([]color.Color, len(stops))
	pos := make([]int, len(stops))
	for i, s := range stops {
		prev := stops[(i+len(stops)-1)%len(stops)]
		eff[i] = blend(s.Color, prev.Color, ph)
		pos[i] = clampPixel(s.Pixel, n)
	}
	seg := 0
	for addr := 0; addr < n; addr++ {
		for seg < len(pos)-1 && addr >= pos[seg+1] {
			seg++
		}
		switch {
		case addr <= pos[0]:
			dst.SetAddress(addr, eff[0])
		case seg == len(pos)-1:
			dst.SetAddress(addr, eff[seg])
		default:
			span := pos[seg+1] - pos[seg]
			t := float64(addr-pos[seg]) / float64(span)
			dst.SetAddress(addr, blend(eff[seg], eff[seg+1], t))
		}
	}
}

func clampPixel(p, n int) int {
	if p < 0 {
		return 0
	}
	if p >= n {
		return n - 1
	}
	return p
}
