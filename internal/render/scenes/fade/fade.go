package fade

import (
	"math/rand"
	"time"

	"github.com/coreman2200/pixelclock/internal/color"
	"github.com/coreman2200/pixelclock/internal/render"
)

// MaxProgress is full scale for the 16-bit crossfade position.
const MaxProgress = 0xFFFE

type Params struct {
	Duration  time.Duration `yaml:"duration"`   // one crossfade
	Hold      time.Duration `yaml:"hold"`       // pause on each target
	Repeat    bool          `yaml:"repeat"`     // pick a new random target when done
	RandomMin uint8         `yaml:"random_min"` // channel floor for random targets
}

func DefaultParams() Params {
	return Params{
		Duration:  3 * time.Second,
		Hold:      3 * time.Second,
		Repeat:    true,
		RandomMin: color.DefaultRandomMin,
	}
}

// Fade interpolates from one color to the next. After each target is
// reached and held it rolls a new random target, unless Repeat is off.
type Fade struct {
	render.Base
	p   Params
	rng *rand.Rand

	from, to color.Color
	started  time.Duration
	progress uint16
	doneAt   time.Duration
	done     bool
}

func New(c color.Color, p Params, rng *rand.Rand) *Fade {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Fade{Base: render.NewBase(c), p: p, rng: rng, from: c, to: c}
}

func (f *Fade) Kind() render.Kind { return render.CrossfadeCycle }

func (f *Fade) Begin(now time.Duration) {
	if f.State() == render.Running {
		return
	}
	f.Start()
	f.from = f.Color()
	f.to = f.from
	f.to.Randomize(f.rng, f.p.RandomMin)
	f.restart(now)
}

func (f *Fade) restart(now time.Duration) {
	f.started = now
	f.progress = 0
	f.done = false
}

// SetColor fades from whatever is currently shown toward c.
func (f *Fade) SetColor(c color.Color) {
	f.Base.SetColor(c)
	f.from = f.current()
	f.to = c
	f.progress = 0
	f.done = false
	f.started = -1
}

func (f *Fade) Loop(now time.Duration) {
	if f.started < 0 {
		f.started = now
	}
	if !f.done {
		f.progress = progressAt(now-f.started, f.p.Duration)
		if f.progress >= MaxProgress {
			f.done = true
			f.doneAt = now
			f.Base.SetColor(f.to)
		}
		return
	}
	if !f.p.Repeat || now-f.doneAt < f.p.Hold {
		return
	}
	f.from = f.to
	f.to.Randomize(f.rng, f.p.RandomMin)
	f.restart(now)
}

func progressAt(elapsed, dur time.Duration) uint16 {
	if dur <= 0 || elapsed >= dur {
		return MaxProgress
	}
	if elapsed <= 0 {
		return 0
	}
	return uint16(int64(elapsed) * MaxProgress / int64(dur))
}

func (f *Fade) current() color.Color {
	return color.Lerp(f.from, f.to, float64(f.progress)/MaxProgress)
}

func (f *Fade) Render(dst *render.Frame, _ time.Duration) {
	dst.Fill(f.current())
}

// Target is the color being faded toward.
func (f *Fade) Target() color.Color { return f.to }
func (f *Fade) Progress() uint16    { return f.progress }
