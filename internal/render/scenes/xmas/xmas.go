package xmas

import (
	"time"

	"github.com/coreman2200/pixelclock/internal/color"
	"github.com/coreman2200/pixelclock/internal/render"
)

// Palettes are the built in light strings, picked by Params.Palette.
var Palettes = [][]color.Color{
	{0xff0000, 0x00ff00, 0xffff00, 0x0000ff},
	{0xc25f5f, 0xbb051f, 0x3f8f29, 0x056517, 0x1b5300},
	{0xfb4242, 0xa11029, 0xffd97d, 0x63250e, 0x1f400a},
	{0x668c6f, 0x7b0a0a, 0xbaa58c, 0xe5d5bb, 0x213c18},
	{0xdb0404, 0x169f48, 0x8cd4ff, 0xc6efff, 0xffffff},
}

const maxColors = 8

type Params struct {
	Palette int           `yaml:"palette"`
	Colors  []color.Color `yaml:"colors,omitempty"` // replaces the palette when set
	Speed   time.Duration `yaml:"speed"`            // time for the string to move by one light
	Pixels  int           `yaml:"pixels"`           // LEDs per light
	Gap     int           `yaml:"gap"`              // dark LEDs between lights
	Fade    time.Duration `yaml:"fade"`
	Sparkle uint8         `yaml:"sparkle"` // 0-100, fade through white instead of the previous color
	Reverse bool          `yaml:"reverse"`
}

func DefaultParams() Params {
	return Params{Speed: time.Second, Pixels: 1, Gap: 1, Fade: 250 * time.Millisecond}
}

// Xmas walks a string of colored lights along the chain, cross fading
// each light as its color changes.
type Xmas struct {
	render.Base
	p      Params
	colors []color.Color
}

func New(c color.Color, p Params) *Xmas {
	def := DefaultParams()
	if p.Speed <= 0 {
		p.Speed = def.Speed
	}
	if p.Pixels < 1 {
		p.Pixels = 1
	}
	if p.Gap < 0 {
		p.Gap = 0
	}
	if p.Fade < 0 || 2*p.Fade > p.Speed {
		p.Fade = p.Speed / 2
	}
	if p.Sparkle > 100 {
		p.Sparkle = 100
	}
	colors := p.Colors
	if len(colors) == 0 {
		colors = Palettes[mod(p.Palette, len(Palettes))]
	}
	if len(colors) > maxColors {
		colors = colors[:maxColors]
	}
	return &Xmas{Base: render.NewBase(c), p: p, colors: append([]color.Color(nil), colors...)}
}

func (x *Xmas) Kind() render.Kind   { return render.XmasLights }
func (x *Xmas) Begin(time.Duration) { x.Start() }
func (x *Xmas) Loop(time.Duration)  {}

func mod(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}

// light is the color of light k during step.
func (x *Xmas) light(k, step int) color.Color {
	return x.colors[mod(k+step, len(x.colors))]
}

func (x *Xmas) Render(dst *render.Frame, now time.Duration) {
	if now < 0 {
		now = 0
	}
	stride := x.p.Pixels + x.p.Gap
	step := int(now / x.p.Speed)
	phase := now % x.p.Speed
	shift := int(int64(phase) * int64(stride) / int64(x.p.Speed))
	rows := dst.Rows()
	var white color.Color
	if x.p.Sparkle > 0 {
		w := uint8(uint16(x.p.Sparkle) * 255 / 100)
		white = color.New(w, w, w)
	}
	n := dst.Len()
	for i := 0; i < n; i++ {
		pos := i + shift
		k, off := pos/stride, pos%stride
		var c color.Color
		if off < x.p.Pixels {
			c = x.light(k, step)
			base := x.light(k, step-1)
			if x.p.Sparkle > 0 {
				base = white
			}
			c = x.fade(c, base, phase)
		}
		addr := i
		if x.p.Reverse {
			addr = n - 1 - i
		}
		dst.Set(addr%rows, addr/rows, c)
	}
}

// fade blends in from base at the start of a step and back out toward it
// at the end.
func (x *Xmas) fade(c, base color.Color, phase time.Duration) color.Color {
	f := x.p.Fade
	if f <= 0 {
		return c
	}
	switch {
	case phase < f:
		return color.Lerp(base, c, float64(phase)/float64(f))
	case phase >= x.p.Speed-f:
		return color.Lerp(c, base, float64(phase-(x.p.Speed-f))/float64(f))
	}
	return c
}
