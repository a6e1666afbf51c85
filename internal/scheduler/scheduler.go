package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-stack/stack"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/coreman2200/pixelclock/internal/color"
	"github.com/coreman2200/pixelclock/internal/device"
	"github.com/coreman2200/pixelclock/internal/diagnostics"
	"github.com/coreman2200/pixelclock/internal/layout"
	"github.com/coreman2200/pixelclock/internal/led"
	"github.com/coreman2200/pixelclock/internal/render"
)

// Options tune the loop. Tick is the bookkeeping cadence of Run and
// Redraw the frame cadence. BlendTime 0 swaps animations immediately.
// FadeLimit caps brightness fades started by events, and OnLevel is what
// Toggle turns on to when nothing was remembered. AuxBlink is the half
// period of the auxiliary indicator; below MinAuxBlink it stays solid.
// MaxPixels bounds Resize, the initial grid size when zero.
type Options struct {
	Tick           time.Duration
	Redraw         time.Duration
	BlendTime      time.Duration
	FadeLimit      time.Duration
	AuxBlink       time.Duration
	MaxPixels      int
	BrightnessStep uint8
	OnLevel        uint8
	Kind           render.Kind
	Color          color.Color
	Logger         zerolog.Logger
}

func DefaultOptions() Options {
	return Options{
		Tick:           5 * time.Millisecond,
		Redraw:         20 * time.Millisecond,
		BlendTime:      time.Second,
		FadeLimit:      500 * time.Millisecond,
		BrightnessStep: 16,
		OnLevel:        64,
		Kind:           render.Solid,
		Color:          color.White,
		Logger:         zerolog.Nop(),
	}
}

const MinAuxBlink = 100 * time.Millisecond

// Status is a snapshot taken at the end of the last tick.
type Status struct {
	Kind         render.Kind `json:"kind"`
	Color        color.Color `json:"color"`
	Target       uint8       `json:"target"`
	Brightness   uint8       `json:"brightness"`
	On           bool        `json:"on"`
	Locked       bool        `json:"locked"`
	Fault        string      `json:"fault,omitempty"`
	Temperature  float64     `json:"temperature_c,omitempty"`
	Blending     bool        `json:"blending"`
	Frames       uint64      `json:"frames"`
	PowerMW      float64     `json:"power_mw"`
	Ambient      float64     `json:"ambient"`
	AuxIndicator bool        `json:"aux_indicator"`
	DriverError  string      `json:"driver_error,omitempty"`
}

type op func(s *Scheduler, now time.Duration)

// Scheduler owns the frame, the governor and the animation slots of one
// device. Tick must only be called from one goroutine; every other method
// is safe for concurrent use and takes effect on the next tick.
type Scheduler struct {
	dc  *device.Context
	reg *render.Registry
	drv led.Driver
	opt Options
	log zerolog.Logger

	mu      sync.Mutex
	pending []op
	force   bool
	status  Status

	// tick goroutine only
	active     render.Animation
	blend      *render.Blend
	kind       render.Kind
	color      color.Color
	lastRedraw time.Duration
	drawn      bool
	frames     uint64
	on         bool
	offLevel   uint8
	driverErr  error
}

func New(dc *device.Context, reg *render.Registry, drv led.Driver, opt Options) (*Scheduler, error) {
	def := DefaultOptions()
	if opt.Tick <= 0 {
		opt.Tick = def.Tick
	}
	if opt.Redraw <= 0 {
		opt.Redraw = def.Redraw
	}
	if opt.BrightnessStep == 0 {
		opt.BrightnessStep = def.BrightnessStep
	}
	if opt.OnLevel == 0 {
		opt.OnLevel = def.OnLevel
	}
	if opt.MaxPixels <= 0 || opt.MaxPixels > layout.Capacity {
		opt.MaxPixels = dc.Mapper.Count()
	}
	a, err := reg.New(opt.Kind, opt.Color)
	if err != nil {
		return nil, errors.Wrap(err, "initial animation")
	}
	s := &Scheduler{
		dc:    dc,
		reg:   reg,
		drv:   drv,
		opt:   opt,
		log:   opt.Logger.With().Str("component", "scheduler").Logger(),
		kind:  opt.Kind,
		color: opt.Color,
		on:    dc.Governor.Target() > 0,
	}
	s.active = a
	a.Begin(dc.Clock.Now())
	s.snapshot(dc.Clock.Now())
	return s, nil
}

func (s *Scheduler) stage(o op, redraw bool) {
	s.mu.Lock()
	s.pending = append(s.pending, o)
	s.force = s.force || redraw
	s.mu.Unlock()
}

// SetAnimation selects kind. The current animation is crossfaded out when
// it supports blending, otherwise replaced.
func (s *Scheduler) SetAnimation(kind render.Kind) {
	s.stage(func(s *Scheduler, now time.Duration) { s.selectKind(kind, now) }, true)
}

// SetBrightness fades to b; a positive limit caps the fade duration.
func (s *Scheduler) SetBrightness(b uint8, limit time.Duration) {
	s.stage(func(s *Scheduler, now time.Duration) { s.setBrightness(b, now, limit) }, true)
}

func (s *Scheduler) SetColor(c color.Color) {
	s.stage(func(s *Scheduler, now time.Duration) {
		s.color = c
		s.active.SetColor(c)
	}, true)
}

func (s *Scheduler) SubmitTemperature(v float64) {
	s.stage(func(s *Scheduler, now time.Duration) { s.dc.Governor.SampleTemperature(v) }, false)
}

// Resize reshapes the logical grid and restarts the current animation on
// it without a blend. It reports false, changing nothing, when the grid is
// empty or holds more than MaxPixels.
func (s *Scheduler) Resize(rows, cols int) bool {
	if rows <= 0 || cols <= 0 || rows*cols > s.opt.MaxPixels {
		return false
	}
	s.stage(func(s *Scheduler, now time.Duration) { s.resize(rows, cols, now) }, true)
	return true
}

func (s *Scheduler) resize(rows, cols int, now time.Duration) {
	m := s.dc.Mapper
	if m.Rows() == rows && m.Cols() == cols {
		return
	}
	in, err := s.reg.New(s.kind, s.color)
	if err != nil {
		s.log.Warn().Err(err).Msg("resize")
		return
	}
	if !m.Resize(rows, cols) {
		return
	}
	if s.blend != nil {
		s.blend.Out.End()
		s.blend = nil
	}
	s.active.End()
	in.Begin(now)
	s.active = in
	s.dc.Frame.Clear()
	s.log.Info().Int("rows", rows).Int("cols", cols).Msg("layout resized")
}

// SubmitLight feeds a light reading taken every interval.
func (s *Scheduler) SubmitLight(lux float64, interval time.Duration) {
	s.stage(func(s *Scheduler, now time.Duration) { s.dc.Governor.SampleLight(lux, interval) }, false)
}

func (s *Scheduler) ResetThermal() {
	s.stage(func(s *Scheduler, now time.Duration) {
		if s.dc.Governor.Locked() {
			s.log.Info().Msg("thermal lock reset")
		}
		s.dc.Governor.ResetThermal()
	}, true)
}

func (s *Scheduler) HandleEvent(e Event) {
	s.stage(func(s *Scheduler, now time.Duration) { s.handle(e, now) }, true)
}

// Redraw forces a frame on the next tick.
func (s *Scheduler) Redraw() {
	s.mu.Lock()
	s.force = true
	s.mu.Unlock()
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Diagnostics lists the faults worth showing an operator.
func (s *Scheduler) Diagnostics() []diagnostics.Diagnostic {
	s.mu.Lock()
	st := s.status
	s.mu.Unlock()
	var out []diagnostics.Diagnostic
	if st.Locked {
		out = append(out, diagnostics.ThermalLock(st.Fault, st.Temperature, s.dc.Governor.Limits().Max))
	}
	if st.DriverError != "" {
		out = append(out, diagnostics.DriverFault(driverName(s.drv), errors.New(st.DriverError)))
	}
	return out
}

func (s *Scheduler) Registry() *render.Registry { return s.reg }

// Run ticks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opt.Tick)
	defer ticker.Stop()
	s.log.Info().
		Dur("tick", s.opt.Tick).
		Dur("redraw", s.opt.Redraw).
		Stringer("kind", s.kind).
		Msg("scheduler started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick(s.dc.Clock.Now())
		}
	}
}

// Tick consumes staged requests, advances the animations and, when the
// redraw cadence is due or a redraw was forced, renders and shows a frame.
func (s *Scheduler) Tick(now time.Duration) {
	s.mu.Lock()
	ops := s.pending
	s.pending = nil
	force := s.force
	s.force = false
	s.mu.Unlock()

	for _, o := range ops {
		o(s, now)
	}

	if s.blend != nil {
		s.blend.Loop(now)
		if s.blend.Done(now) {
			s.blend.Out.End()
			s.blend = nil
			force = true
		}
	} else {
		s.active.Loop(now)
	}

	if force || !s.drawn || now-s.lastRedraw >= s.opt.Redraw {
		s.draw(now)
	}
	s.snapshot(now)
}

func (s *Scheduler) draw(now time.Duration) {
	f := s.dc.Frame
	if s.blend != nil {
		s.blend.Render(f, now)
	} else {
		s.active.Render(f, now)
	}
	px := f.Pixels()
	b := s.dc.Governor.Effective(now, px, len(px))
	s.lastRedraw = now
	s.drawn = true
	s.frames++
	err := s.drv.Show(px, b)
	switch {
	case err != nil && s.driverErr == nil:
		s.log.Warn().Err(err).Str("stack", stack.Trace().TrimRuntime().String()).Msg("driver show failed")
	case err != nil:
		s.log.Debug().Err(err).Msg("driver show failed")
	case s.driverErr != nil:
		s.log.Info().Msg("driver recovered")
	}
	s.driverErr = err
}

func (s *Scheduler) selectKind(kind render.Kind, now time.Duration) {
	in, err := s.reg.New(kind, s.color)
	if err != nil {
		s.log.Warn().Err(err).Msg("select animation")
		return
	}
	in.Begin(now)
	out := s.active
	if s.blend != nil {
		// the session being replaced loses its outgoing side; what was
		// incoming becomes the new outgoing reference
		s.blend.Out.End()
		s.blend = nil
	}
	s.active, s.kind = in, kind
	if s.opt.BlendTime <= 0 || !out.SupportsBlend() {
		out.End()
		return
	}
	b, err := render.NewBlend(out, in, s.dc.Mapper, now, s.opt.BlendTime)
	if err != nil {
		out.End()
		return
	}
	b.Begin(now)
	s.blend = b
}

func (s *Scheduler) setBrightness(b uint8, now, limit time.Duration) {
	s.dc.Governor.SetBrightness(b, now, limit)
	s.on = b > 0
}

func (s *Scheduler) handle(e Event, now time.Duration) {
	g := s.dc.Governor
	step := int(s.opt.BrightnessStep)
	switch e {
	case BrightnessUp:
		s.setBrightness(uint8(min(255, int(g.Target())+step)), now, s.opt.FadeLimit)
	case BrightnessDown:
		s.setBrightness(uint8(max(0, int(g.Target())-step)), now, s.opt.FadeLimit)
	case NextAnimation:
		s.selectKind(s.reg.Next(s.kind), now)
	case Toggle:
		if s.on {
			s.offLevel = g.Target()
			s.setBrightness(0, now, s.opt.FadeLimit)
			return
		}
		level := s.offLevel
		if level == 0 {
			level = s.opt.OnLevel
		}
		s.setBrightness(level, now, s.opt.FadeLimit)
	default:
		s.log.Debug().Int("event", int(e)).Msg("unknown event")
	}
}

// auxIndicator is whether the indicator is lit at now: never while the
// animation suppresses it, otherwise solid or blinking.
func (s *Scheduler) auxIndicator(now time.Duration) bool {
	if s.active.SuppressesAuxIndicator() {
		return false
	}
	if s.opt.AuxBlink < MinAuxBlink {
		return true
	}
	return (now/s.opt.AuxBlink)%2 == 0
}

func (s *Scheduler) snapshot(now time.Duration) {
	g := s.dc.Governor
	locked, fault := g.Status()
	temp, _ := g.Temperature()
	st := Status{
		Kind:         s.kind,
		Color:        s.color,
		Target:       g.Target(),
		Brightness:   g.LastEffective(),
		On:           s.on,
		Locked:       locked,
		Temperature:  temp,
		Blending:     s.blend != nil,
		Frames:       s.frames,
		PowerMW:      g.PowerMW(),
		Ambient:      g.AmbientFactor(),
		AuxIndicator: s.auxIndicator(now),
	}
	if locked {
		st.Fault = fault
	}
	if s.driverErr != nil {
		st.DriverError = s.driverErr.Error()
	}
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

func driverName(d led.Driver) string {
	if n, ok := d.(interface{ String() string }); ok {
		return n.String()
	}
	return "led"
}
