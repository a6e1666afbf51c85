package plasma

import (
	"math"
	"time"

	"github.com/coreman2200/pixelclock/internal/color"
	"github.com/coreman2200/pixelclock/internal/layout"
	"github.com/coreman2200/pixelclock/internal/render"
)

var sine [256]uint8

func init() {
	for i := range sine {
		sine[i] = uint8(math.Round(127.5 + 127.5*math.Sin(2*math.Pi*float64(i)/256)))
	}
}

// Sin8 looks up the precomputed sine; a full turn is 256.
func Sin8(theta uint8) uint8 { return sine[theta] }

type Params struct {
	Update time.Duration `yaml:"update"`
	// Speeds are angle steps per update, in 1/256 turns.
	Speeds   [4]float64 `yaml:"speeds"`
	HueSpeed float64    `yaml:"hue_speed"`
	Radius   float64    `yaml:"radius"` // source orbit, fraction of the panel
	Scale    float64    `yaml:"scale"`  // sine periods across the panel
}

func DefaultParams() Params {
	return Params{
		Update:   20 * time.Millisecond,
		Speeds:   [4]float64{1.1, -0.7, 1.9, -1.3},
		HueSpeed: 0.35,
		Radius:   0.35,
		Scale:    1.5,
	}
}

// Plasma sums four sine fields whose sources orbit the panel center.
type Plasma struct {
	render.Base
	p Params
	m *layout.Mapper

	angles [4]float64
	hue    float64
	lut    []layout.Vec2
	rows   int
	cols   int
	last   time.Duration
}

func New(c color.Color, p Params, m *layout.Mapper) *Plasma {
	if p.Update <= 0 {
		p.Update = DefaultParams().Update
	}
	if p.Scale <= 0 {
		p.Scale = DefaultParams().Scale
	}
	return &Plasma{Base: render.NewBase(c), p: p, m: m}
}

func (pl *Plasma) Kind() render.Kind { return render.PlasmaField }

func (pl *Plasma) Begin(now time.Duration) {
	pl.Start()
	pl.last = now
	pl.relayout()
}

func (pl *Plasma) relayout() {
	pl.lut = layout.BuildLUT(pl.m)
	pl.rows, pl.cols = pl.m.Rows(), pl.m.Cols()
}

func (pl *Plasma) Loop(now time.Duration) {
	if pl.m.Rows() != pl.rows || pl.m.Cols() != pl.cols {
		pl.relayout()
	}
	if now-pl.last > 8*pl.p.Update {
		pl.last = now - pl.p.Update
	}
	for now-pl.last >= pl.p.Update {
		pl.last += pl.p.Update
		for i := range pl.angles {
			pl.angles[i] = math.Mod(pl.angles[i]+pl.p.Speeds[i]+256, 256)
		}
		pl.hue = math.Mod(pl.hue+pl.p.HueSpeed, 256)
	}
}

// Value is the field value in [0,255] at a normalized position.
func (pl *Plasma) Value(pos layout.Vec2) uint8 {
	sum := 0
	for i, a := range pl.angles {
		theta := 2 * math.Pi * a / 256
		// alternate orbits so the sources do not move in lockstep
		r := pl.p.Radius * (1 - 0.25*float64(i%2))
		sx := 0.5 + r*math.Cos(theta)
		sy := 0.5 + r*math.Sin(theta)
		d := math.Hypot(pos.X-sx, pos.Y-sy)
		sum += int(Sin8(uint8(int(d*pl.p.Scale*256) & 0xFF)))
	}
	return uint8(sum / 4)
}

func (pl *Plasma) Render(dst *render.Frame, _ time.Duration) {
	if len(pl.lut) != dst.Len() {
		dst.Clear()
		return
	}
	for addr, pos := range pl.lut {
		v := pl.Value(pos)
		h := (float64(v) + pl.hue) / 256 * 360
		dst.SetAddress(addr, color.HSV(h, 1, 0.25+0.75*float64(v)/255))
	}
}
