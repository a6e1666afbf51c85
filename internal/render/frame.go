package render

import (
	"github.com/coreman2200/pixelclock/internal/color"
	"github.com/coreman2200/pixelclock/internal/layout"
)

// Frame is the pixel buffer. It always holds layout.Capacity colors in
// wiring order; only the first Len() are shown.
type Frame struct {
	m  *layout.Mapper
	px []color.Color
}

func NewFrame(m *layout.Mapper) *Frame {
	return &Frame{m: m, px: make([]color.Color, layout.Capacity)}
}

func (f *Frame) Mapper() *layout.Mapper { return f.m }
func (f *Frame) Rows() int              { return f.m.Rows() }
func (f *Frame) Cols() int              { return f.m.Cols() }
func (f *Frame) Len() int               { return f.m.Count() }

// Pixels returns the visible part of the buffer in wiring order.
func (f *Frame) Pixels() []color.Color { return f.px[:f.m.Count()] }

// Set writes the pixel at a logical point. Points outside the grid are
// ignored.
func (f *Frame) Set(row, col int, c color.Color) {
	if addr := f.m.Address(row, col); addr >= 0 {
		f.px[addr] = c
	}
}

func (f *Frame) At(row, col int) color.Color {
	if addr := f.m.Address(row, col); addr >= 0 {
		return f.px[addr]
	}
	return color.Black
}

// SetAddress writes a pixel by wiring order.
func (f *Frame) SetAddress(addr int, c color.Color) {
	if addr >= 0 && addr < f.m.Count() {
		f.px[addr] = c
	}
}

func (f *Frame) Fill(c color.Color) {
	px := f.Pixels()
	for i := range px {
		px[i] = c
	}
}

func (f *Frame) Clear() { f.Fill(color.Black) }

// CopyFrom copies the visible pixels of src.
func (f *Frame) CopyFrom(src *Frame) {
	copy(f.Pixels(), src.Pixels())
}
