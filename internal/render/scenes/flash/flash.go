package flash

import (
	"time"

	"github.com/coreman2200/pixelclock/internal/color"
	"github.com/coreman2200/pixelclock/internal/render"
)

type Params struct {
	Period  time.Duration `yaml:"period"`
	Divisor int           `yaml:"divisor"` // lit one period out of Divisor
}

func DefaultParams() Params {
	return Params{Period: 150 * time.Millisecond, Divisor: 2}
}

// Flash strobes the base color against black.
type Flash struct {
	render.Base
	p Params
}

func New(c color.Color, p Params) *Flash {
	if p.Period <= 0 {
		p.Period = DefaultParams().Period
	}
	if p.Divisor < 1 {
		p.Divisor = 1
	}
	return &Flash{Base: render.NewBase(c), p: p}
}

func (f *Flash) Kind() render.Kind            { return render.Flashing }
func (f *Flash) Begin(time.Duration)          { f.Start() }
func (f *Flash) Loop(time.Duration)           {}
func (f *Flash) SupportsBlend() bool          { return false }
func (f *Flash) SuppressesAuxIndicator() bool { return true }

// Lit reports whether the strobe is on at now.
func (f *Flash) Lit(now time.Duration) bool {
	if now < 0 {
		now = 0
	}
	return int64(now/f.p.Period)%int64(f.p.Divisor) == 0
}

func (f *Flash) Render(dst *render.Frame, now time.Duration) {
	if f.Lit(now) {
		dst.Fill(f.Color())
		return
	}
	dst.Clear()
}
