package render

import (
	"time"

	"github.com/pkg/errors"

	"github.com/coreman2200/pixelclock/internal/layout"
)

var ErrZeroDuration = errors.New("blend duration must be positive")

// Blend crossfades from an outgoing animation to an incoming one. Each side
// renders into its own frame; the composite is written to the caller's
// frame. The scheduler owns the session and promotes In once Done.
type Blend struct {
	Out Animation
	In  Animation

	start time.Duration
	dur   time.Duration

	bufA *Frame // outgoing
	bufB *Frame // incoming
}

// NewBlend refuses a non-positive duration; callers swap immediately
// instead.
func NewBlend(out, in Animation, m *layout.Mapper, now, dur time.Duration) (*Blend, error) {
	if dur <= 0 {
		return nil, ErrZeroDuration
	}
	if out == nil || in == nil {
		return nil, errors.New("blend needs two animations")
	}
	return &Blend{
		Out:   out,
		In:    in,
		start: now,
		dur:   dur,
		bufA:  NewFrame(m),
		bufB:  NewFrame(m),
	}, nil
}

// Begin snapshots the outgoing side.
func (b *Blend) Begin(now time.Duration) {
	b.Out.Render(b.bufA, now)
}

// Alpha is the interpolation factor at now, clamped to [0,1].
func (b *Blend) Alpha(now time.Duration) float64 {
	el := now - b.start
	if el <= 0 {
		return 0
	}
	if el >= b.dur {
		return 1
	}
	return float64(el) / float64(b.dur)
}

// Loop keeps both sides advancing so neither freezes mid blend.
func (b *Blend) Loop(now time.Duration) {
	b.Out.Loop(now)
	b.In.Loop(now)
}

func (b *Blend) Render(dst *Frame, now time.Duration) {
	b.Out.Render(b.bufA, now)
	b.In.Render(b.bufB, now)
	Mix(dst.Pixels(), b.bufA.Pixels(), b.bufB.Pixels(), b.Alpha(now))
}

func (b *Blend) Done(now time.Duration) bool {
	return now-b.start >= b.dur
}

func (b *Blend) Duration() time.Duration { return b.dur }
