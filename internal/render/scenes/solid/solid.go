package solid

import (
	"time"

	"github.com/coreman2200/pixelclock/internal/color"
	"github.com/coreman2200/pixelclock/internal/render"
)

// Solid is a tiny animation that fills the panel with a single color.
type Solid struct {
	render.Base
}

func New(c color.Color) *Solid { return &Solid{Base: render.NewBase(c)} }

func (s *Solid) Kind() render.Kind { return render.Solid }

func (s *Solid) Begin(time.Duration) { s.Start() }

func (s *Solid) Loop(time.Duration) {}

func (s *Solid) Render(dst *render.Frame, _ time.Duration) {
	dst.Fill(s.Color())
}
