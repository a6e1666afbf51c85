package fire

import (
	"math/rand"
	"time"

	"github.com/coreman2200/pixelclock/internal/color"
	"github.com/coreman2200/pixelclock/internal/layout"
	"github.com/coreman2200/pixelclock/internal/render"
)

type Params struct {
	Cooling    uint8         `yaml:"cooling"`
	Sparking   uint8         `yaml:"sparking"`
	Interval   time.Duration `yaml:"interval"`
	Horizontal bool          `yaml:"horizontal"` // one line per row instead of per column
	Invert     bool          `yaml:"invert"`     // burn from the top / right
}

func DefaultParams() Params {
	return Params{Cooling: 60, Sparking: 95, Interval: 50 * time.Millisecond}
}

const (
	minInterval = 5 * time.Millisecond
	maxCatchUp  = 8
)

// Fire runs one heat automaton per line.
type Fire struct {
	render.Base
	p   Params
	m   *layout.Mapper
	rng *rand.Rand

	lines [][]uint8
	rows  int
	cols  int
	last  time.Duration
}

func New(c color.Color, p Params, m *layout.Mapper, rng *rand.Rand) *Fire {
	if p.Interval < minInterval {
		p.Interval = minInterval
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Fire{Base: render.NewBase(c), p: p, m: m, rng: rng}
}

func (f *Fire) Kind() render.Kind { return render.FireSimulation }

func (f *Fire) Begin(now time.Duration) {
	f.Start()
	f.last = now
	f.resize(f.m.Rows(), f.m.Cols())
}

// resize (re)allocates the heat lines. Sizes outside the layout capacity
// leave the fire without lines and it renders black.
func (f *Fire) resize(rows, cols int) {
	f.rows, f.cols = rows, cols
	f.lines = nil
	if rows <= 0 || cols <= 0 || rows*cols > layout.Capacity {
		return
	}
	n, length := cols, rows
	if f.p.Horizontal {
		n, length = rows, cols
	}
	heat := make([]uint8, n*length)
	f.lines = make([][]uint8, n)
	for i := range f.lines {
		f.lines[i] = heat[i*length : (i+1)*length]
	}
}

// Lines exposes the heat state.
func (f *Fire) Lines() [][]uint8 { return f.lines }

func (f *Fire) Loop(now time.Duration) {
	if f.m.Rows() != f.rows || f.m.Cols() != f.cols {
		f.resize(f.m.Rows(), f.m.Cols())
	}
	if now-f.last > maxCatchUp*f.p.Interval {
		f.last = now - f.p.Interval
	}
	for now-f.last >= f.p.Interval {
		f.last += f.p.Interval
		for _, h := range f.lines {
			f.step(h)
		}
	}
}

func subSat(a, b uint8) uint8 {
	if b > a {
		return 0
	}
	return a - b
}

func addSat(a, b uint8) uint8 {
	if int(a)+int(b) > 255 {
		return 255
	}
	return a + b
}

func (f *Fire) step(h []uint8) {
	n := len(h)
	if n == 0 {
		return
	}
	// cool
	bound := int(f.p.Cooling)*10/n + 2
	for i := range h {
		h[i] = subSat(h[i], uint8(f.rng.Intn(bound)%256))
	}
	// drift up and diffuse
	for k := n - 1; k >= 2; k-- {
		h[k] = uint8((int(h[k-1]) + 2*int(h[k-2])) / 3)
	}
	// ignite near the base
	if f.rng.Intn(255) < int(f.p.Sparking) {
		reach := n / 5
		if reach < 2 {
			reach = 2
		}
		if reach > n {
			reach = n
		}
		y := f.rng.Intn(reach)
		h[y] = addSat(h[y], uint8(160+f.rng.Intn(95)))
	}
}

// HeatColor maps a heat value onto the black, red, yellow, white ramp.
func HeatColor(heat uint8) color.Color {
	t := uint8(int(heat) * 191 / 255)
	r := (t & 0x3F) << 2
	switch {
	case t&0x80 != 0:
		return color.New(255, 255, r)
	case t&0x40 != 0:
		return color.New(255, r, 0)
	default:
		return color.New(r, 0, 0)
	}
}

func (f *Fire) Render(dst *render.Frame, _ time.Duration) {
	if f.lines == nil || dst.Rows() != f.rows || dst.Cols() != f.cols {
		dst.Clear()
		return
	}
	for i, h := range f.lines {
		n := len(h)
		for j, v := range h {
			pos := j
			var row, col int
			if f.p.Horizontal {
				if f.p.Invert {
					pos = n - 1 - j
				}
				row, col = i, pos
			} else {
				if !f.p.Invert {
					pos = n - 1 - j
				}
				row, col = pos, i
			}
			dst.Set(row, col, HeatColor(v))
		}
	}
}
