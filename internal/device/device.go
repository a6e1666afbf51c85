package device

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/pixelclock/internal/governor"
	"github.com/coreman2200/pixelclock/internal/layout"
	"github.com/coreman2200/pixelclock/internal/render"
)

// Clock is the time base of the core, measured from device start.
type Clock interface {
	Now() time.Duration
}

// MonotonicClock counts from its creation.
type MonotonicClock struct{ start time.Time }

func NewMonotonicClock() *MonotonicClock { return &MonotonicClock{start: time.Now()} }

func (c *MonotonicClock) Now() time.Duration { return time.Since(c.start) }

// ManualClock only moves when told to. Safe for concurrent use.
type ManualClock struct {
	mu  sync.Mutex
	now time.Duration
}

func (c *ManualClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Set(d time.Duration) {
	c.mu.Lock()
	c.now = d
	c.mu.Unlock()
}

func (c *ManualClock) Advance(d time.Duration) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
	return c.now
}

// Context is everything one display owns. Nothing in the core keeps
// package level state; tests build as many contexts as they like.
type Context struct {
	Mapper   *layout.Mapper
	Frame    *render.Frame
	Governor *governor.Governor
	Clock    Clock
}

func New(t layout.Transform, gov governor.Config, clock Clock, log zerolog.Logger) (*Context, error) {
	m, err := layout.NewMapper(t)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = NewMonotonicClock()
	}
	return &Context{
		Mapper:   m,
		Frame:    render.NewFrame(m),
		Governor: governor.New(gov, log),
		Clock:    clock,
	}, nil
}
