package governor

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/pixelclock/internal/color"
	"github.com/coreman2200/pixelclock/internal/diagnostics"
)

type Config struct {
	Brightness uint8         `yaml:"brightness"`
	FullScale  time.Duration `yaml:"full_scale"` // fade time for a 0 to 255 change
	Thermal    ThermalLimits `yaml:"thermal"`
	Power      PowerModel    `yaml:"power"`
	Ambient    AmbientConfig `yaml:"ambient"`
}

func DefaultConfig() Config {
	return Config{
		Brightness: 255 / 4,
		FullScale:  2500 * time.Millisecond,
		Thermal:    DefaultThermalLimits(),
		Power:      DefaultPowerModel(),
		Ambient:    DefaultAmbientConfig(),
	}
}

// Governor turns the requested brightness into the value applied to a
// frame: fade, then the ambient light and thermal de-rates, then the power
// budget. A thermal lock overrides all of it.
type Governor struct {
	cfg     Config
	fade    Fade
	thermal *Thermal
	ambient Ambient
	log     zerolog.Logger

	lastMW        float64
	lastEffective uint8
}

func New(cfg Config, log zerolog.Logger) *Governor {
	return &Governor{
		cfg:     cfg,
		fade:    Fade{From: cfg.Brightness, To: cfg.Brightness},
		thermal: NewThermal(cfg.Thermal),
		ambient: Ambient{Config: cfg.Ambient},
		log:     log.With().Str("component", "governor").Logger(),
	}
}

// SetBrightness starts a fade from the current value to target. A positive
// limit caps the fade duration. While locked the target is still recorded.
func (g *Governor) SetBrightness(target uint8, now, limit time.Duration) {
	cur := g.fade.Value(now)
	g.fade = Fade{
		From:     cur,
		To:       target,
		Start:    now,
		Duration: FadeDuration(cur, target, g.cfg.FullScale, limit),
	}
	g.log.Debug().
		Uint8("from", cur).
		Uint8("to", target).
		Dur("duration", g.fade.Duration).
		Msg("brightness fade")
}

// Target is the brightness last requested.
func (g *Governor) Target() uint8 { return g.fade.To }

// Current is the fade value at now, before thermal and power limits.
func (g *Governor) Current(now time.Duration) uint8 { return g.fade.Value(now) }

func (g *Governor) Fading(now time.Duration) bool { return !g.fade.Done(now) }

// SampleTemperature feeds a sensor reading.
func (g *Governor) SampleTemperature(v float64) {
	if g.thermal.Sample(v) {
		g.log.Error().
			Float64("temperature", v).
			Float64("max", g.cfg.Thermal.Max).
			Msg("over temperature, display locked")
		return
	}
	g.log.Trace().Float64("temperature", v).Float64("factor", g.thermal.Factor()).Msg("temperature")
}

// SampleLight feeds a light reading taken every interval.
func (g *Governor) SampleLight(lux float64, interval time.Duration) {
	g.ambient.Sample(lux, interval)
	g.log.Trace().Float64("lux", lux).Float64("factor", g.ambient.Factor()).Msg("ambient light")
}

func (g *Governor) AmbientFactor() float64 { return g.ambient.Factor() }

func (g *Governor) ResetThermal() {
	if g.thermal.Locked() {
		g.log.Warn().Msg("thermal lock reset")
	}
	g.thermal.Reset()
}

func (g *Governor) Locked() bool { return g.thermal.Locked() }

func (g *Governor) Temperature() (float64, bool) { return g.thermal.Last() }

func (g *Governor) ThermalFactor() float64 { return g.thermal.Factor() }

// Requested is the fade value scaled by the ambient and thermal factors at
// now. It is what the power budget is asked for.
func (g *Governor) Requested(now time.Duration) uint8 {
	if g.thermal.Locked() {
		return 0
	}
	v := float64(g.fade.Value(now)) * g.ambient.Factor() * g.thermal.Factor()
	return uint8(math.Floor(v + 0.5))
}

// Effective resolves the brightness for a rendered frame. px nil means
// count white pixels.
func (g *Governor) Effective(now time.Duration, px []color.Color, count int) uint8 {
	if g.thermal.Locked() {
		g.lastEffective, g.lastMW = 0, 0
		return 0
	}
	req := g.Requested(now)
	b := g.cfg.Power.Limit(px, count, req)
	if b < req {
		g.log.Trace().Uint8("requested", req).Uint8("allowed", b).Msg("power budget")
	}
	g.lastEffective = b
	if px == nil {
		g.lastMW = g.cfg.Power.EstimateWhite(count, b)
	} else {
		g.lastMW = g.cfg.Power.Estimate(px, b)
	}
	return b
}

// PowerMW is the estimate for the last Effective call.
func (g *Governor) PowerMW() float64 { return g.lastMW }

// LastEffective is the value returned by the last Effective call.
func (g *Governor) LastEffective() uint8 { return g.lastEffective }

func (g *Governor) Limits() ThermalLimits { return g.cfg.Thermal }

// Status reports the thermal fault, if any.
func (g *Governor) Status() (locked bool, summary string) {
	return g.thermal.Locked(), g.thermal.Summary()
}

// Diagnostic renders the lock as an operator diagnostic; ok is false when
// there is nothing to report.
func (g *Governor) Diagnostic() (diagnostics.Diagnostic, bool) {
	if !g.thermal.Locked() {
		return diagnostics.Diagnostic{}, false
	}
	temp, _ := g.thermal.Last()
	return diagnostics.ThermalLock(g.thermal.Summary(), temp, g.cfg.Thermal.Max), true
}
