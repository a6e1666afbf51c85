package rainbow

import (
	"time"

	"github.com/coreman2200/pixelclock/internal/color"
	"github.com/coreman2200/pixelclock/internal/render"
)

const (
	ramp    = 120 // hue steps per full cycle
	segment = ramp / 3
)

// Bounce is a value walking between Min and Max by Step, reversing at
// either bound.
type Bounce struct {
	Value float64 `yaml:"value"`
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`
	Step  float64 `yaml:"step"`
}

func (b *Bounce) advance() {
	b.Value += b.Step
	if b.Value > b.Max {
		b.Value = b.Max
		b.Step = -b.Step
	} else if b.Value < b.Min {
		b.Value = b.Min
		b.Step = -b.Step
	}
}

type Params struct {
	Step       time.Duration `yaml:"step"`   // time per hue index
	Update     time.Duration `yaml:"update"` // bounce cadence
	Multiplier Bounce        `yaml:"multiplier"`
	Red        Bounce        `yaml:"red"`
	Green      Bounce        `yaml:"green"`
	Blue       Bounce        `yaml:"blue"`
	Floor      color.Color   `yaml:"floor"`
}

func DefaultParams() Params {
	return Params{
		Step:       30 * time.Millisecond,
		Update:     25 * time.Millisecond,
		Multiplier: Bounce{Value: 1.23, Min: 0.1, Max: 11, Step: 0.001},
		Red:        Bounce{Value: 1, Min: 0, Max: 1, Step: 0.1},
		Green:      Bounce{Value: 1, Min: 0, Max: 1, Step: 0.25},
		Blue:       Bounce{Value: 1, Min: 0, Max: 1, Step: 0.125},
	}
}

// Rainbow sweeps a three segment hue ramp along the chain.
type Rainbow struct {
	render.Base
	p    Params
	last time.Duration
}

func New(c color.Color, p Params) *Rainbow {
	if p.Step <= 0 {
		p.Step = DefaultParams().Step
	}
	if p.Update <= 0 {
		p.Update = DefaultParams().Update
	}
	return &Rainbow{Base: render.NewBase(c), p: p}
}

func (r *Rainbow) Kind() render.Kind { return render.HueSweep }

func (r *Rainbow) Begin(now time.Duration) {
	r.Start()
	r.last = now
}

func (r *Rainbow) Loop(now time.Duration) {
	if now-r.last > 8*r.p.Update {
		r.last = now - r.p.Update
	}
	for now-r.last >= r.p.Update {
		r.last += r.p.Update
		r.p.Multiplier.advance()
		r.p.Red.advance()
		r.p.Green.advance()
		r.p.Blue.advance()
	}
}

// Multiplier exposes the current spatial multiplier.
func (r *Rainbow) Multiplier() float64 { return r.p.Multiplier.Value }

func scale(f float64, v float64) uint8 {
	x := f * v * 255
	if x <= 0 {
		return 0
	}
	if x >= 255 {
		return 255
	}
	return uint8(x)
}

// hue returns the ramp color for index ind.
func (r *Rainbow) hue(ind uint32) color.Color {
	m := ind % ramp
	seg := m / segment
	frac := float64(m%segment) / segment
	up, down := frac, 1-frac
	fr, fg, fb := r.p.Red.Value, r.p.Green.Value, r.p.Blue.Value
	var c color.Color
	switch seg {
	case 0:
		c = color.New(scale(fr, down), scale(fg, up), 0)
	case 1:
		c = color.New(0, scale(fg, down), scale(fb, up))
	default:
		c = color.New(scale(fr, up), 0, scale(fb, down))
	}
	return color.Max(c, r.p.Floor)
}

func (r *Rainbow) Render(dst *render.Frame, now time.Duration) {
	shift := uint32(now / r.p.Step)
	mult := r.p.Multiplier.Value
	rows := dst.Rows()
	for addr := 0; addr < dst.Len(); addr++ {
		row, col := addr%rows, addr/rows
		ind := uint32(float64(addr)*mult) + shift
		dst.Set(row, col, r.hue(ind))
	}
}
