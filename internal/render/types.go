package render

import (
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/coreman2200/pixelclock/internal/color"
)

var ErrUnknownKind = errors.New("unknown animation kind")

// Kind names one entry of the animation catalog.
type Kind int

const (
	Solid Kind = iota
	CrossfadeCycle
	Flashing
	HueSweep
	FireSimulation
	PlasmaField
	GradientSweep
	VisualizerDriven
	XmasLights
)

var kindNames = [...]string{
	Solid:            "solid",
	CrossfadeCycle:   "fade",
	Flashing:         "flash",
	HueSweep:         "rainbow",
	FireSimulation:   "fire",
	PlasmaField:      "plasma",
	GradientSweep:    "gradient",
	VisualizerDriven: "visualizer",
	XmasLights:       "xmas",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return 0, errors.Wrap(ErrUnknownKind, s)
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// State is the animation lifecycle.
type State int

const (
	Created State = iota
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Running:
		return "running"
	case Finished:
		return "finished"
	}
	return "unknown"
}

// Animation is implemented by every pattern generator. Time is measured
// from device start.
type Animation interface {
	Kind() Kind
	// Begin (re)initializes kind state; calling it twice is harmless.
	Begin(now time.Duration)
	// Loop advances time dependent state. It may run more often than Render.
	Loop(now time.Duration)
	// Render fills every logical address of dst. It must not advance state.
	Render(dst *Frame, now time.Duration)
	End()
	State() State
	SupportsBlend() bool
	SuppressesAuxIndicator() bool
	SetColor(c color.Color)
}

// Base carries the lifecycle and base color shared by the scenes.
type Base struct {
	state State
	color color.Color
}

func NewBase(c color.Color) Base { return Base{color: c} }

func (b *Base) Start()                       { b.state = Running }
func (b *Base) End()                         { b.state = Finished }
func (b *Base) State() State                 { return b.state }
func (b *Base) Color() color.Color           { return b.color }
func (b *Base) SetColor(c color.Color)       { b.color = c }
func (b *Base) SupportsBlend() bool          { return true }
func (b *Base) SuppressesAuxIndicator() bool { return false }

// Factory builds a fresh animation seeded with the current base color.
type Factory func(base color.Color) Animation

// Registry maps kinds to factories.
type Registry struct{ m map[Kind]Factory }

func NewRegistry() *Registry { return &Registry{m: map[Kind]Factory{}} }

func (r *Registry) Register(k Kind, f Factory) {
	if f == nil {
		return
	}
	r.m[k] = f
}

func (r *Registry) New(k Kind, base color.Color) (Animation, error) {
	f, ok := r.m[k]
	if !ok {
		return nil, errors.Wrap(ErrUnknownKind, k.String())
	}
	return f(base), nil
}

// List returns the registered kinds in catalog order.
func (r *Registry) List() []Kind {
	out := make([]Kind, 0, len(r.m))
	for k := range r.m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Next returns the registered kind following k, wrapping around.
func (r *Registry) Next(k Kind) Kind {
	kinds := r.List()
	if len(kinds) == 0 {
		return k
	}
	for i, kk := range kinds {
		if kk == k {
			return kinds[(i+1)%len(kinds)]
		}
	}
	return kinds[0]
}
