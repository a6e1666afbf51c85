package app

import (
	"math/rand"

	"github.com/coreman2200/pixelclock/internal/color"
	"github.com/coreman2200/pixelclock/internal/config"
	"github.com/coreman2200/pixelclock/internal/layout"
	"github.com/coreman2200/pixelclock/internal/render"
	"github.com/coreman2200/pixelclock/internal/render/scenes/fade"
	"github.com/coreman2200/pixelclock/internal/render/scenes/fire"
	"github.com/coreman2200/pixelclock/internal/render/scenes/flash"
	"github.com/coreman2200/pixelclock/internal/render/scenes/gradient"
	"github.com/coreman2200/pixelclock/internal/render/scenes/plasma"
	"github.com/coreman2200/pixelclock/internal/render/scenes/rainbow"
	"github.com/coreman2200/pixelclock/internal/render/scenes/solid"
	"github.com/coreman2200/pixelclock/internal/render/scenes/visualizer"
	"github.com/coreman2200/pixelclock/internal/render/scenes/xmas"
)

// NewRegistry registers the whole catalog. Every animation gets its own
// random source derived from rng so two instances never share state.
func NewRegistry(sc config.Scenes, m *layout.Mapper, src visualizer.Source, rng *rand.Rand) *render.Registry {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	fork := func() *rand.Rand { return rand.New(rand.NewSource(rng.Int63())) }

	reg := render.NewRegistry()
	reg.Register(render.Solid, func(c color.Color) render.Animation { return solid.New(c) })
	reg.Register(render.CrossfadeCycle, func(c color.Color) render.Animation { return fade.New(c, sc.Fade, fork()) })
	reg.Register(render.Flashing, func(c color.Color) render.Animation { return flash.New(c, sc.Flash) })
	reg.Register(render.HueSweep, func(c color.Color) render.Animation { return rainbow.New(c, sc.Rainbow) })
	reg.Register(render.FireSimulation, func(c color.Color) render.Animation { return fire.New(c, sc.Fire, m, fork()) })
	reg.Register(render.PlasmaField, func(c color.Color) render.Animation { return plasma.New(c, sc.Plasma, m) })
	reg.Register(render.GradientSweep, func(c color.Color) render.Animation { return gradient.New(c, sc.Gradient) })
	reg.Register(render.VisualizerDriven, func(c color.Color) render.Animation { return visualizer.New(c, sc.Visualizer, src) })
	reg.Register(render.XmasLights, func(c color.Color) render.Animation { return xmas.New(c, sc.Xmas) })
	return reg
}
