package app

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/pixelclock/internal/audio"
	"github.com/coreman2200/pixelclock/internal/color"
	"github.com/coreman2200/pixelclock/internal/config"
	"github.com/coreman2200/pixelclock/internal/device"
	"github.com/coreman2200/pixelclock/internal/layout"
	"github.com/coreman2200/pixelclock/internal/led"
	"github.com/coreman2200/pixelclock/internal/render"
	"github.com/coreman2200/pixelclock/internal/sensor"
	"github.com/coreman2200/pixelclock/internal/sequence"
	"github.com/coreman2200/pixelclock/internal/wiring"
	"github.com/coreman2200/pixelclock/internal/ws"
)

func newApp(t *testing.T, path string) (*App, *led.Sim) {
	return newAppWith(t, path, func(*config.Config) {})
}

func newAppWith(t *testing.T, path string, edit func(c *config.Config)) (*App, *led.Sim) {
	cfg := config.Default()
	cfg.Layout = layout.Transform{Rows: 4, Cols: 8}
	cfg.HTTP.Addr = ""
	edit(cfg)
	sim := led.NewSim(zerolog.Nop())
	a, err := New(cfg, Options{
		ConfigPath: path,
		Clock:      &device.ManualClock{},
		Seed:       7,
		Outputs:    led.Fanout{sim},
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)
	return a, sim
}

func TestAppDrawsThroughOutputs(t *testing.T) {
	a, sim := newApp(t, "")
	a.Sched.Tick(0)
	px, _ := sim.Last()
	require.Len(t, px, 32)
	assert.Equal(t, color.New(0, 0, 255), px[0])
	assert.Equal(t, 1, sim.Count())
}

func TestAppWiringTestOverridesFrame(t *testing.T) {
	a, sim := newApp(t, "")
	a.Sched.Tick(0)
	rep := a.Server.Apply(ws.Command{Cmd: "runTest", Test: "rgb_channels"})
	require.True(t, rep.OK, rep.Error)
	a.Sched.Tick(20 * time.Millisecond)
	px, _ := sim.Last()
	for _, c := range px {
		assert.Equal(t, color.Red, c)
	}
}

func TestAppWiringTestStaysWithinPowerCeiling(t *testing.T) {
	a, sim := newAppWith(t, "", func(c *config.Config) {
		c.Display.Color = color.Black
		c.Governor.Brightness = 255
		c.Governor.Power.CeilingW = 0.5
	})
	require.NoError(t, a.Tests.Start(wiring.RGBTest))
	a.Sched.Tick(0)

	px, b := sim.Last()
	require.Equal(t, color.Red, px[0])
	assert.LessOrEqual(t, a.Cfg.Governor.Power.Estimate(px, b), 500.0)
	assert.Greater(t, b, uint8(0), "the pattern is dimmed, not blanked")
}

func TestAppSavePersistsSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	a, _ := newApp(t, path)
	a.Server.Apply(ws.Command{Cmd: "setColor", Color: "#ff0000"})
	a.Sched.Tick(0)

	rep := a.Server.Apply(ws.Command{Cmd: "save"})
	require.True(t, rep.OK, rep.Error)
	assert.True(t, *rep.Saved)
	rep = a.Server.Apply(ws.Command{Cmd: "save"})
	require.True(t, rep.OK)
	assert.False(t, *rep.Saved, "unchanged settings are not rewritten")

	cfg, _, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, color.Red, cfg.Display.Color)
}

func TestAppRunStopsOnCancel(t *testing.T) {
	a, sim := newApp(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.ErrorIs(t, sim.Show(nil, 0), led.ErrClosed, "outputs are closed on exit")
}

func TestAppLightSensorScalesBrightness(t *testing.T) {
	a, _ := newAppWith(t, "", func(c *config.Config) {
		c.Governor.Ambient.Enabled = true
		c.Light.Interval = 10 * time.Millisecond
	})
	full := a.Cfg.Governor.Ambient.FullLux
	a.light = sensor.Func(func() (float64, error) { return full / 2, nil })
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	require.Eventually(t, func() bool {
		return a.Sched.Status().Ambient == 0.5
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestAppResizeThroughControl(t *testing.T) {
	a, sim := newApp(t, "")
	a.Sched.Tick(0)
	rep := a.Server.Apply(ws.Command{Cmd: "resize", Rows: 4, Cols: 4})
	require.True(t, rep.OK, rep.Error)
	a.Sched.Tick(time.Millisecond)
	px, _ := sim.Last()
	assert.Len(t, px, 16)

	rep = a.Server.Apply(ws.Command{Cmd: "resize", Rows: 8, Cols: 8})
	assert.False(t, rep.OK, "the chain only has 32 pixels")
}

func TestOpenLight(t *testing.T) {
	p, err := OpenLight(config.Light{Type: "none"})
	assert.NoError(t, err)
	assert.Nil(t, p)
	_, err = OpenLight(config.Light{Type: "photodiode"})
	assert.Error(t, err)
}

func TestRegistryCoversCatalog(t *testing.T) {
	m, err := layout.NewMapper(layout.Transform{Rows: 8, Cols: 8})
	require.NoError(t, err)
	reg := NewRegistry(config.Default().Scenes, m, &audio.Feed{}, rand.New(rand.NewSource(1)))
	require.Len(t, reg.List(), 9)
	f := render.NewFrame(m)
	for _, k := range reg.List() {
		an, err := reg.New(k, color.Blue)
		require.NoError(t, err, k.String())
		assert.Equal(t, k, an.Kind())
		an.Begin(0)
		an.Loop(time.Second)
		an.Render(f, time.Second)
	}
}

func TestOpenOutputsSkipsBroken(t *testing.T) {
	out, err := OpenOutputs(config.Driver{Outputs: []string{"bogus", "sim", "opc"}, OPC: config.OPC{Addr: "127.0.0.1:1"}}, 4, zerolog.Nop())
	require.NoError(t, err)
	assert.Len(t, out, 2)

	out, err = OpenOutputs(config.Driver{Outputs: []string{"bogus"}, MinInterval: time.Millisecond}, 4, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.IsType(t, &led.Sim{}, out[0], "falls back to the simulator")

	_, err = OpenOutputs(config.Driver{ColorOrder: "RGX"}, 4, zerolog.Nop())
	assert.Error(t, err)
}

type recorder struct {
	kinds  []render.Kind
	colors []color.Color
	levels []uint8
}

func (r *recorder) SetAnimation(k render.Kind)             { r.kinds = append(r.kinds, k) }
func (r *recorder) SetColor(c color.Color)                 { r.colors = append(r.colors, c) }
func (r *recorder) SetBrightness(b uint8, _ time.Duration) { r.levels = append(r.levels, b) }

func TestConductorDrivesTarget(t *testing.T) {
	r := &recorder{}
	c := NewConductor(r)
	green := color.Green
	require.NoError(t, c.Seq.Load(sequence.Program{Clips: []sequence.Clip{
		{Name: "a", Kind: render.FireSimulation, Duration: time.Second},
		{Name: "b", Kind: render.HueSweep, Color: &green, Duration: time.Second,
			Brightness: &sequence.Envelope{Keys: []sequence.Keyframe{{T: 0, V: 10}, {T: 1, V: 10}}}},
	}}))
	c.Seq.Start()
	c.Seq.Tick(1500 * time.Millisecond)
	assert.Equal(t, []render.Kind{render.FireSimulation, render.HueSweep}, r.kinds)
	assert.Equal(t, []color.Color{color.Green}, r.colors)
	assert.Equal(t, []uint8{10}, r.levels)
}
