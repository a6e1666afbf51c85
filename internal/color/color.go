package color

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	RedOffset   uint8 = 0x10
	GreenOffset uint8 = 0x08
	BlueOffset  uint8 = 0x0
)

const mask24 uint32 = 0xFFFFFF

// Randomize draws each channel from a six step palette.
const (
	rndSteps = 6
	rndMul   = 51
)

// DefaultRandomMin is the channel floor used by Randomize when callers
// have no configured minimum.
const DefaultRandomMin uint8 = 127

const (
	Black Color = 0x000000
	White Color = 0xFFFFFF
	Red   Color = 0xFF0000
	Green Color = 0x00FF00
	Blue  Color = 0x0000FF
)

// Color is a packed 24-bit 0xRRGGBB value.
type Color uint32

func New(r, g, b uint8) Color {
	return Color(uint32(r)<<RedOffset | uint32(g)<<GreenOffset | uint32(b)<<BlueOffset)
}

// FromValue keeps the low 24 bits of v.
func FromValue(v uint32) Color {
	return Color(v & mask24)
}

func setchannel(c uint32, n uint8, off uint8) uint32 {
	var mask uint32 = 0xFF << off
	return (c & (^mask)) | uint32(n)<<off
}

func getchannel(c uint32, off uint8) uint8 {
	var mask uint32 = 0xFF << off
	return uint8((c & mask) >> off)
}

func (c Color) Value() uint32 { return uint32(c) & mask24 }
func (c Color) R() uint8      { return getchannel(uint32(c), RedOffset) }
func (c Color) G() uint8      { return getchannel(uint32(c), GreenOffset) }
func (c Color) B() uint8      { return getchannel(uint32(c), BlueOffset) }

func (c Color) RGB() (r, g, b uint8) { return c.R(), c.G(), c.B() }

func (c *Color) SetR(r uint8) { *c = Color(setchannel(uint32(*c), r, RedOffset)) }
func (c *Color) SetG(g uint8) { *c = Color(setchannel(uint32(*c), g, GreenOffset)) }
func (c *Color) SetB(b uint8) { *c = Color(setchannel(uint32(*c), b, BlueOffset)) }

// String formats the color as #RRGGBB.
func (c Color) String() string {
	return fmt.Sprintf("#%06X", c.Value())
}

// Parse reads a hex number after any mix of leading whitespace and '#'
// characters, with an optional 0x prefix. Parsing stops at the first
// non-hex character and the low 24 bits are kept, so "#1234567" is
// #234567. The value saturates like a 32 bit long; no digits yields 0.
func Parse(s string) Color {
	i := 0
	for i < len(s) && (s[i] == '#' || isSpace(s[i])) {
		i++
	}
	if i+2 < len(s) && s[i] == '0' && (s[i+1] == 'x' || s[i+1] == 'X') {
		if _, ok := hexDigit(s[i+2]); ok {
			i += 2
		}
	}
	var v uint64
	for ; i < len(s); i++ {
		d, ok := hexDigit(s[i])
		if !ok {
			break
		}
		if v = v<<4 | uint64(d); v > math.MaxInt32 {
			v = math.MaxInt32
		}
	}
	return Color(uint32(v) & mask24)
}

func isSpace(ch byte) bool {
	switch ch {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func hexDigit(ch byte) (uint8, bool) {
	switch {
	case ch >= '0' && ch <= '9':
		return ch - '0', true
	case ch >= 'a' && ch <= 'f':
		return ch - 'a' + 10, true
	case ch >= 'A' && ch <= 'F':
		return ch - 'A' + 10, true
	}
	return 0, false
}

// MarshalText and UnmarshalText let colors travel through YAML and JSON as
// "#RRGGBB".
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(b []byte) error {
	*c = Parse(string(b))
	return nil
}

// Randomize re-rolls c until at least one channel reaches min. There is no
// retry cap; with min 0 the first draw is accepted.
func (c *Color) Randomize(rng *rand.Rand, min uint8) {
	for {
		r := uint8(rng.Intn(rndSteps) * rndMul)
		g := uint8(rng.Intn(rndSteps) * rndMul)
		b := uint8(rng.Intn(rndSteps) * rndMul)
		if r >= min || g >= min || b >= min {
			*c = New(r, g, b)
			return
		}
	}
}

func lerp8(a, b uint8, f float64) uint8 {
	v := float64(a) + (float64(b)-float64(a))*f
	v = math.Floor(v + 0.5)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Lerp interpolates per channel, rounding half up. f is clamped to [0,1].
func Lerp(a, b Color, f float64) Color {
	if f <= 0 {
		return a
	}
	if f >= 1 {
		return b
	}
	return New(lerp8(a.R(), b.R(), f), lerp8(a.G(), b.G(), f), lerp8(a.B(), b.B(), f))
}

func scale8(v, s uint8) uint8 {
	return uint8((uint32(v)*uint32(s) + 127) / 255)
}

// Scale applies a 0..255 brightness to every channel.
func (c Color) Scale(s uint8) Color {
	if s == 255 {
		return c
	}
	return New(scale8(c.R(), s), scale8(c.G(), s), scale8(c.B(), s))
}

// Max takes the per channel maximum of a and b.
func Max(a, b Color) Color {
	return New(max8(a.R(), b.R()), max8(a.G(), b.G()), max8(a.B(), b.B()))
}

func max8(a, b uint8) uint8 {
	if a > b {
		return a
	}
	return b
}

func (c Color) Colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R()) / 255.0,
		G: float64(c.G()) / 255.0,
		B: float64(c.B()) / 255.0,
	}
}

func FromColorful(cc colorful.Color) Color {
	r, g, b := cc.Clamped().RGB255()
	return New(r, g, b)
}

// HSV builds a color from hue in degrees and saturation/value in [0,1].
func HSV(h, s, v float64) Color {
	return FromColorful(colorful.Hsv(math.Mod(h, 360), s, v))
}
