package render

import (
	"testing"
	"time"

	"github.com/coreman2200/pixelclock/internal/color"
	"github.com/coreman2200/pixelclock/internal/layout"
)

// fakeAnimation writes a constant color and counts Loop calls.
type fakeAnimation struct {
	Base
	loops int
}

func newFake(c color.Color) *fakeAnimation { return &fakeAnimation{Base: NewBase(c)} }

func (f *fakeAnimation) Kind() Kind                         { return Solid }
func (f *fakeAnimation) Begin(now time.Duration)            { f.Start() }
func (f *fakeAnimation) Loop(now time.Duration)             { f.loops++ }
func (f *fakeAnimation) Render(dst *Frame, _ time.Duration) { dst.Fill(f.Color()) }

func testMapper(t *testing.T) *layout.Mapper {
	m, err := layout.NewMapper(layout.Transform{Rows: 2, Cols: 3})
	if err != nil {
		t.Fatalf("mapper: %v", err)
	}
	return m
}

func TestMixAlpha(t *testing.T) {
	n := 10
	a := make([]color.Color, n)
	b := make([]color.Color, n)
	dst := make([]color.Color, n)
	for i := 0; i < n; i++ {
		a[i] = color.Red
		b[i] = color.Blue
	}
	Mix(dst, a, b, 0.5)
	if dst[0] != color.New(128, 0, 128) {
		t.Fatalf("expected purple at alpha=0.5, got %s", dst[0])
	}
	Mix(dst, a, b, -1)
	if dst[3] != color.Red {
		t.Fatalf("expected red below zero alpha, got %s", dst[3])
	}
}

func TestBlendRejectsZeroDuration(t *testing.T) {
	m := testMapper(t)
	if _, err := NewBlend(newFake(color.Red), newFake(color.Blue), m, 0, 0); err != ErrZeroDuration {
		t.Fatalf("expected ErrZeroDuration, got %v", err)
	}
}

func TestBlendEndpointsAndScenario(t *testing.T) {
	m := testMapper(t)
	out, in := newFake(color.Red), newFake(color.Blue)
	start := 5 * time.Second
	b, err := NewBlend(out, in, m, start, time.Second)
	if err != nil {
		t.Fatalf("blend: %v", err)
	}
	b.Begin(start)
	dst := NewFrame(m)

	b.Render(dst, start)
	for i, c := range dst.Pixels() {
		if c != color.Red {
			t.Fatalf("pixel %d at elapsed 0: want red, got %s", i, c)
		}
	}

	b.Render(dst, start+250*time.Millisecond)
	want := color.Lerp(color.Red, color.Blue, 0.25)
	for i, c := range dst.Pixels() {
		if c != want || c.R() != 0xBF || c.B() != 0x40 {
			t.Fatalf("pixel %d at elapsed 250ms: want %s, got %s", i, want, c)
		}
	}

	if b.Done(start + 999*time.Millisecond) {
		t.Fatalf("blend finished early")
	}
	b.Render(dst, start+time.Second)
	if !b.Done(start + time.Second) {
		t.Fatalf("blend should be done at its duration")
	}
	for i, c := range dst.Pixels() {
		if c != color.Blue {
			t.Fatalf("pixel %d at end: want blue, got %s", i, c)
		}
	}
}

func TestBlendAlphaMonotonic(t *testing.T) {
	m := testMapper(t)
	b, _ := NewBlend(newFake(color.Red), newFake(color.Blue), m, 0, 730*time.Millisecond)
	prev := -1.0
	for ms := 0; ms <= 1000; ms += 7 {
		a := b.Alpha(time.Duration(ms) * time.Millisecond)
		if a < prev || a < 0 || a > 1 {
			t.Fatalf("alpha went from %v to %v at %dms", prev, a, ms)
		}
		prev = a
	}
}

func TestBlendLoopAdvancesBothSides(t *testing.T) {
	m := testMapper(t)
	out, in := newFake(color.Red), newFake(color.Blue)
	b, _ := NewBlend(out, in, m, 0, time.Second)
	for i := 0; i < 4; i++ {
		b.Loop(time.Duration(i) * time.Millisecond)
	}
	if out.loops != 4 || in.loops != 4 {
		t.Fatalf("expected both sides looped 4 times, got out=%d in=%d", out.loops, in.loops)
	}
}

func TestRegistryOrderAndNext(t *testing.T) {
	reg := NewRegistry()
	reg.Register(FireSimulation, func(c color.Color) Animation { return newFake(c) })
	reg.Register(Solid, func(c color.Color) Animation { return newFake(c) })
	reg.Register(HueSweep, func(c color.Color) Animation { return newFake(c) })

	got := reg.List()
	if len(got) != 3 || got[0] != Solid || got[1] != HueSweep || got[2] != FireSimulation {
		t.Fatalf("unexpected order %v", got)
	}
	if reg.Next(FireSimulation) != Solid {
		t.Fatalf("Next should wrap")
	}
	if _, err := reg.New(PlasmaField, color.Black); err == nil {
		t.Fatalf("expected error for unregistered kind")
	}
}

func TestParseKind(t *testing.T) {
	for k := Solid; k <= XmasLights; k++ {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Fatalf("round trip %v: got %v %v", k, got, err)
		}
	}
	if _, err := ParseKind("disco"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFrameAddressing(t *testing.T) {
	m, _ := layout.NewMapper(layout.Transform{Rows: 2, Cols: 2, ReverseRows: true})
	f := NewFrame(m)
	f.Set(0, 0, color.Green)
	if f.Pixels()[1] != color.Green {
		t.Fatalf("expected (0,0) wired at address 1, got %v", f.Pixels())
	}
	if f.At(0, 0) != color.Green || f.At(5, 5) != color.Black {
		t.Fatalf("At mismatch")
	}
	f.Set(9, 9, color.Red)
	if len(f.Pixels()) != 4 {
		t.Fatalf("expected 4 visible pixels")
	}
}
