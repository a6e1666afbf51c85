package governor

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/pixelclock/internal/color"
)

func TestFadeEndpointsAndBounds(t *testing.T) {
	for _, tc := range []struct{ a, b uint8 }{{0, 255}, {255, 0}, {10, 11}, {200, 37}, {90, 90}} {
		f := Fade{From: tc.a, To: tc.b, Start: time.Second, Duration: 700 * time.Millisecond}
		assert.Equal(t, tc.a, f.Value(time.Second))
		assert.Equal(t, tc.b, f.Value(time.Second+700*time.Millisecond))
		assert.Equal(t, tc.b, f.Value(time.Hour))
		lo, hi := tc.a, tc.b
		if lo > hi {
			lo, hi = hi, lo
		}
		prev := f.Value(time.Second)
		for ms := 1; ms < 700; ms++ {
			v := f.Value(time.Second + time.Duration(ms)*time.Millisecond)
			assert.True(t, v >= lo && v <= hi, "value %d outside [%d,%d]", v, lo, hi)
			if tc.b >= tc.a {
				assert.GreaterOrEqual(t, v, prev)
			} else {
				assert.LessOrEqual(t, v, prev)
			}
			prev = v
		}
	}
}

func TestFadeZeroDurationIsImmediate(t *testing.T) {
	f := Fade{From: 10, To: 200}
	assert.Equal(t, uint8(200), f.Value(0))
	assert.True(t, f.Done(0))
}

func TestFadeDuration(t *testing.T) {
	assert.Equal(t, 2*time.Second, FadeDuration(0, 255, 2*time.Second, 0))
	assert.Equal(t, time.Second, FadeDuration(255, 0, 2*time.Second, time.Second))
	assert.Equal(t, time.Duration(0), FadeDuration(40, 40, 2*time.Second, 0))
	assert.Equal(t, time.Duration(0), FadeDuration(0, 255, 0, 0))
}

func TestThermalFactorBand(t *testing.T) {
	th := NewThermal(DefaultThermalLimits())
	assert.Equal(t, 1.0, th.Factor(), "no sample yet")
	th.Sample(50)
	assert.Equal(t, 1.0, th.Factor())
	th.Sample(55)
	assert.Equal(t, 1.0, th.Factor())
	th.Sample(62.5)
	assert.InDelta(t, 0.625, th.Factor(), 1e-9)
	th.Sample(70)
	assert.Equal(t, MinThermalFactor, th.Factor())
	th.Sample(74)
	assert.Equal(t, MinThermalFactor, th.Factor())
	assert.False(t, th.Locked())
}

func TestThermalEmptyBandOnlyLocks(t *testing.T) {
	for _, l := range []ThermalLimits{{ReduceMin: 0, ReduceMax: 0, Max: 75}, {ReduceMin: 60, ReduceMax: 50, Max: 75}} {
		th := NewThermal(l)
		th.Sample(60)
		assert.Equal(t, 1.0, th.Factor())
		th.Sample(74.9)
		assert.Equal(t, 1.0, th.Factor())
		assert.True(t, th.Sample(76))
		assert.Equal(t, 0.0, th.Factor())
	}
}

func TestThermalIgnoresInvalidSamples(t *testing.T) {
	th := NewThermal(DefaultThermalLimits())
	th.Sample(65)
	for _, v := range []float64{0, math.NaN(), math.Inf(1), math.Inf(-1)} {
		assert.False(t, th.Sample(v))
	}
	last, ok := th.Last()
	require.True(t, ok)
	assert.Equal(t, 65.0, last)
}

func TestThermalLockScenario(t *testing.T) {
	g := New(Config{Brightness: 200, Thermal: ThermalLimits{ReduceMin: 55, ReduceMax: 70, Max: 75}}, zerolog.Nop())
	assert.Equal(t, uint8(200), g.Effective(0, nil, 16))

	g.SampleTemperature(80)
	locked, summary := g.Status()
	assert.True(t, locked)
	assert.Contains(t, summary, "80.0")
	assert.Equal(t, uint8(0), g.Effective(time.Second, nil, 16))

	g.SampleTemperature(40)
	assert.True(t, g.Locked(), "a lower reading must not clear the lock")
	g.SetBrightness(255, 2*time.Second, 0)
	for s := 2; s < 60; s++ {
		assert.Equal(t, uint8(0), g.Effective(time.Duration(s)*time.Second, nil, 16))
	}
	assert.Equal(t, uint8(255), g.Target(), "target is still recorded")

	d, ok := g.Diagnostic()
	require.True(t, ok)
	assert.Equal(t, "THERMAL.LOCKED", d.Code)

	g.ResetThermal()
	assert.False(t, g.Locked())
	assert.Equal(t, uint8(255), g.Effective(time.Minute, nil, 16))
	_, ok = g.Diagnostic()
	assert.False(t, ok)
}

func TestThermalDerateAppliesBeforePower(t *testing.T) {
	g := New(Config{Brightness: 200, Thermal: DefaultThermalLimits()}, zerolog.Nop())
	g.SampleTemperature(70)
	assert.Equal(t, uint8(50), g.Effective(0, nil, 4))
}

func TestAmbientFactor(t *testing.T) {
	a := Ambient{Config: AmbientConfig{Enabled: true, FullLux: 300, Floor: 0.1, Smooth: 2500 * time.Millisecond}}
	assert.Equal(t, 1.0, a.Factor(), "no reading yet")
	a.Sample(150, 500*time.Millisecond)
	assert.Equal(t, 0.5, a.Factor(), "first reading is taken as is")
	a.Sample(300, 500*time.Millisecond)
	assert.InDelta(t, 3.5/6, a.Factor(), 1e-9, "later readings are averaged")
	a.Sample(math.NaN(), 500*time.Millisecond)
	assert.InDelta(t, 3.5/6, a.Factor(), 1e-9)

	dark := Ambient{Config: a.Config}
	dark.Sample(0, time.Second)
	assert.Equal(t, 0.1, dark.Factor(), "floor")
	dark.Config.Enabled = false
	assert.Equal(t, 1.0, dark.Factor())
}

func TestAmbientScalesBeforeThermal(t *testing.T) {
	g := New(Config{
		Brightness: 200,
		Thermal:    DefaultThermalLimits(),
		Ambient:    AmbientConfig{Enabled: true, FullLux: 300, Floor: 0.1},
	}, zerolog.Nop())
	g.SampleLight(150, time.Second)
	assert.Equal(t, 0.5, g.AmbientFactor())
	assert.Equal(t, uint8(100), g.Effective(0, nil, 4))
	g.SampleTemperature(70)
	assert.Equal(t, uint8(25), g.Effective(0, nil, 4))
}

func scenarioModel(count int) PowerModel {
	p := PowerModel{RedMW: 80, GreenMW: 80, BlueMW: 80, IdleMW: 1}
	p.CeilingW = p.EstimateWhite(count, 255) / 2 / 1000
	return p
}

func TestPowerBudgetScenario(t *testing.T) {
	const count = 64
	p := scenarioModel(count)
	b := p.Limit(nil, count, 255)
	require.Less(t, b, uint8(255))
	assert.LessOrEqual(t, p.EstimateWhite(count, b), p.CeilingW*1000)
	assert.Greater(t, p.EstimateWhite(count, b+1), p.CeilingW*1000, "largest brightness that fits")
	for i := 0; i < 10; i++ {
		assert.Equal(t, b, p.Limit(nil, count, 255), "stable across evaluations")
	}
}

func TestPowerBudgetMonotonic(t *testing.T) {
	frames := [][]color.Color{
		nil,
		{color.White, color.Red, color.Black, color.New(10, 200, 30)},
		{color.Blue, color.Blue, color.Blue, color.Blue},
	}
	for _, px := range frames {
		p := scenarioModel(4)
		prev := uint8(0)
		for req := 0; req < 256; req++ {
			got := p.Limit(px, 4, uint8(req))
			assert.GreaterOrEqual(t, got, prev)
			assert.LessOrEqual(t, got, uint8(req), "scale factor stays within [0,1]")
			prev = got
		}
	}
}

func TestPowerUnlimitedAndIdleOnly(t *testing.T) {
	p := PowerModel{RedMW: 80, GreenMW: 80, BlueMW: 80}
	assert.Equal(t, uint8(255), p.Limit(nil, 1000, 255))

	p = PowerModel{RedMW: 80, IdleMW: 10, CeilingW: 0.001}
	assert.Equal(t, uint8(0), p.Limit(nil, 10, 255), "idle alone exceeds the ceiling")
}

func TestPowerEstimate(t *testing.T) {
	p := PowerModel{RedMW: 100, GreenMW: 50, BlueMW: 10, IdleMW: 1}
	px := []color.Color{color.Red, color.New(0, 255, 255)}
	assert.InDelta(t, 100+60+2, p.Estimate(px, 255), 1e-9)
	assert.InDelta(t, 2, p.Estimate(px, 0), 1e-9)
}

func TestGovernorFadesToTarget(t *testing.T) {
	g := New(Config{Brightness: 0, FullScale: time.Second}, zerolog.Nop())
	g.SetBrightness(255, 0, 0)
	assert.True(t, g.Fading(500*time.Millisecond))
	assert.Equal(t, uint8(128), g.Effective(500*time.Millisecond, nil, 1))
	assert.Equal(t, uint8(255), g.Effective(time.Second, nil, 1))

	g.SetBrightness(55, time.Second, 100*time.Millisecond)
	assert.Equal(t, uint8(155), g.Current(time.Second+50*time.Millisecond))
	assert.Equal(t, uint8(55), g.Current(time.Second+100*time.Millisecond))
}

func TestGovernorPowerUsesRenderedFrame(t *testing.T) {
	cfg := Config{Brightness: 255, Power: PowerModel{RedMW: 100, GreenMW: 100, BlueMW: 100, CeilingW: 0.1}}
	g := New(cfg, zerolog.Nop())
	dark := []color.Color{color.Black, color.Black}
	assert.Equal(t, uint8(255), g.Effective(0, dark, 2))
	assert.Equal(t, uint8(85), g.Effective(0, []color.Color{color.White}, 1))
	assert.InDelta(t, 100, g.PowerMW(), 1e-9)
}
