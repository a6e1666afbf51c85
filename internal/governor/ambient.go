package governor

import (
	"math"
	"time"
)

// AmbientConfig scales brightness with room light. A reading of FullLux or
// more keeps the requested brightness, darker rooms scale it down to Floor.
type AmbientConfig struct {
	Enabled bool          `yaml:"enabled"`
	FullLux float64       `yaml:"full_lux"`
	Floor   float64       `yaml:"floor"`
	Smooth  time.Duration `yaml:"smooth"` // time constant of the running average
}

func DefaultAmbientConfig() AmbientConfig {
	return AmbientConfig{FullLux: 300, Floor: 0.1, Smooth: 2500 * time.Millisecond}
}

// Ambient keeps the smoothed light factor.
type Ambient struct {
	Config AmbientConfig

	value float64
	valid bool
}

// Sample folds a light reading taken every interval into the average.
// Negative and non finite readings are dropped.
func (a *Ambient) Sample(lux float64, interval time.Duration) {
	if lux < 0 || math.IsNaN(lux) || math.IsInf(lux, 0) {
		return
	}
	v := a.Config.Floor
	if a.Config.FullLux > 0 {
		v = lux / a.Config.FullLux
	}
	v = math.Max(a.Config.Floor, math.Min(1, v))
	if !a.valid || interval <= 0 {
		a.value, a.valid = v, true
		return
	}
	period := float64(a.Config.Smooth) / float64(interval)
	a.value = (a.value*period + v) / (period + 1)
}

// Factor is 1 when disabled or before the first reading.
func (a *Ambient) Factor() float64 {
	if !a.Config.Enabled || !a.valid {
		return 1
	}
	return a.value
}
