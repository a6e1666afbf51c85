package app

import (
	"context"
	"time"

	"github.com/coreman2200/pixelclock/internal/color"
	"github.com/coreman2200/pixelclock/internal/render"
	"github.com/coreman2200/pixelclock/internal/sequence"
)

// Target is what a playlist steers.
type Target interface {
	SetAnimation(k render.Kind)
	SetColor(c color.Color)
	SetBrightness(b uint8, limit time.Duration)
}

// Conductor plays a Program against the scheduler.
type Conductor struct {
	Seq *sequence.Player
}

func NewConductor(t Target) *Conductor {
	hooks := sequence.Hooks{
		SetAnimation:  t.SetAnimation,
		SetColor:      t.SetColor,
		SetBrightness: func(b uint8) { t.SetBrightness(b, 0) },
	}
	return &Conductor{Seq: sequence.NewPlayer(hooks)}
}

// Run advances the player at fps until ctx is done.
func (c *Conductor) Run(ctx context.Context, fps int) error {
	if fps <= 0 {
		fps = 50
	}
	dt := time.Second / time.Duration(fps)
	ticker := time.NewTicker(dt)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Seq.Tick(dt)
		}
	}
}
