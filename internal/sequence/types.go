package sequence

import (
	"time"

	"github.com/coreman2200/pixelclock/internal/color"
	"github.com/coreman2200/pixelclock/internal/render"
)

// Keyframe is a value at clip time T (seconds) with the easing used for
// the segment starting here.
type Keyframe struct {
	T    float64 `yaml:"t" json:"t"`
	V    float64 `yaml:"v" json:"v"`
	Ease string  `yaml:"ease,omitempty" json:"ease,omitempty"` // linear, smooth, cubic
}

// Envelope is a list of keyframes sorted by T.
type Envelope struct {
	Keys []Keyframe `yaml:"keys" json:"keys"`
}

// Clip shows one animation for Duration. Color and Brightness are applied
// when set; a Brightness envelope is evaluated over the clip's own time.
type Clip struct {
	Name       string        `yaml:"name" json:"name"`
	Kind       render.Kind   `yaml:"kind" json:"kind"`
	Color      *color.Color  `yaml:"color,omitempty" json:"color,omitempty"`
	Duration   time.Duration `yaml:"duration" json:"duration"`
	Brightness *Envelope     `yaml:"brightness,omitempty" json:"brightness,omitempty"`
}

// Program is a playlist of clips.
type Program struct {
	Loop  bool   `yaml:"loop" json:"loop"`
	Clips []Clip `yaml:"clips" json:"clips"`
}

type PlayerState string

const (
	Idle    PlayerState = "idle"
	Running PlayerState = "running"
	Paused  PlayerState = "paused"
)

// Hooks are the scheduler calls the player drives. Crossfades between
// clips are the scheduler's business.
type Hooks struct {
	SetAnimation  func(k render.Kind)
	SetColor      func(c color.Color)
	SetBrightness func(b uint8)
}
