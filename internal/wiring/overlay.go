package wiring

import (
	"sync"
	"time"

	"github.com/coreman2200/pixelclock/internal/color"
	"github.com/coreman2200/pixelclock/internal/governor"
	"github.com/coreman2200/pixelclock/internal/layout"
	"github.com/coreman2200/pixelclock/internal/led"
	"github.com/coreman2200/pixelclock/internal/render"
)

// Overlay sits in front of a driver and, while a test runs, shows the
// test pattern instead of the rendered frame. Brightness comes from the
// caller and is limited again by Power against the pattern actually sent.
type Overlay struct {
	led.Driver
	Power    governor.PowerModel
	Interval time.Duration
	Now      func() time.Time
	OnDone   func(k Kind)

	mu     sync.Mutex
	frame  *render.Frame
	runner *Runner
	last   time.Time
}

func NewOverlay(d led.Driver, m *layout.Mapper, interval time.Duration) *Overlay {
	return &Overlay{Driver: d, Interval: interval, Now: time.Now, frame: render.NewFrame(m)}
}

// Start replaces any running test.
func (o *Overlay) Start(k Kind) error {
	if _, err := ParseKind(string(k)); err != nil {
		return err
	}
	o.mu.Lock()
	o.runner = NewRunner(k)
	o.last = time.Time{}
	o.mu.Unlock()
	return nil
}

func (o *Overlay) Active() (Kind, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.runner == nil {
		return None, false
	}
	return o.runner.Kind(), true
}

func (o *Overlay) Show(px []color.Color, brightness uint8) error {
	o.mu.Lock()
	if o.runner == nil {
		o.mu.Unlock()
		return o.Driver.Show(px, brightness)
	}
	now := o.Now()
	if o.last.IsZero() || now.Sub(o.last) >= o.Interval {
		o.last = now
		if !o.runner.Step(o.frame) {
			k := o.runner.Kind()
			o.runner = nil
			o.mu.Unlock()
			if o.OnDone != nil {
				o.OnDone(k)
			}
			return o.Driver.Show(px, brightness)
		}
	}
	test := append([]color.Color(nil), o.frame.Pixels()...)
	o.mu.Unlock()
	return o.Driver.Show(test, o.Power.Limit(test, len(test), brightness))
}
