package led

import (
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/time/rate"

	"github.com/coreman2200/pixelclock/internal/color"
)

// Fanout shows every frame on several drivers. A failing driver does not
// keep the others from receiving the frame.
type Fanout []Driver

func (f Fanout) Show(px []color.Color, brightness uint8) error {
	var err error
	for _, d := range f {
		err = multierr.Append(err, d.Show(px, brightness))
	}
	return err
}

func (f Fanout) Close() error {
	var err error
	for _, d := range f {
		err = multierr.Append(err, d.Close())
	}
	return err
}

// Throttle enforces a minimum spacing between frames handed to the
// wrapped driver. Frames arriving too early are dropped, except that a
// brightness change is always let through.
type Throttle struct {
	Driver
	Now func() time.Time

	mu      sync.Mutex
	lim     *rate.Limiter
	lastB   uint8
	sent    bool
	dropped int
}

func NewThrottle(d Driver, min time.Duration) *Throttle {
	return &Throttle{Driver: d, Now: time.Now, lim: rate.NewLimiter(rate.Every(min), 1)}
}

func (t *Throttle) Show(px []color.Color, brightness uint8) error {
	t.mu.Lock()
	changed := !t.sent || brightness != t.lastB
	if !t.lim.AllowN(t.Now(), 1) && !changed {
		t.dropped++
		t.mu.Unlock()
		return nil
	}
	t.lastB, t.sent = brightness, true
	t.mu.Unlock()
	return t.Driver.Show(px, brightness)
}

func (t *Throttle) Dropped() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}
