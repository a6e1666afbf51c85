package led

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/coreman2200/pixelclock/internal/color"
)

// Sim keeps the last frame in memory and logs a compact summary every
// LogEvery frames. It is the fallback when no hardware is present.
type Sim struct {
	LogEvery int
	Log      zerolog.Logger

	mu         sync.Mutex
	count      int
	last       []color.Color
	brightness uint8
	closed     bool
}

func NewSim(log zerolog.Logger) *Sim { return &Sim{LogEvery: 0, Log: log} }

func (d *Sim) Show(px []color.Color, brightness uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.count++
	d.last = append(d.last[:0], px...)
	d.brightness = brightness
	if d.LogEvery > 0 && d.count%d.LogEvery == 0 && len(px) > 0 {
		var r, g, b int
		for _, c := range px {
			r += int(c.R())
			g += int(c.G())
			b += int(c.B())
		}
		n := len(px)
		d.Log.Debug().
			Int("frame", d.count).
			Uint8("brightness", brightness).
			Str("first", px[0].String()).
			Ints("avg", []int{r / n, g / n, b / n}).
			Msg("sim frame")
	}
	return nil
}

// Last returns a copy of the most recent frame and its brightness.
func (d *Sim) Last() ([]color.Color, uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]color.Color(nil), d.last...), d.brightness
}

func (d *Sim) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

func (d *Sim) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}
