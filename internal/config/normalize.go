package config

import (
	"fmt"
	"time"

	"github.com/coreman2200/pixelclock/internal/layout"
	"github.com/coreman2200/pixelclock/internal/led"
)

var (
	outputs     = map[string]bool{"sim": true, "spi": true, "screen": true, "opc": true}
	sensorTypes = map[string]bool{"none": true, "sysfs": true, "bmx280": true}
	lightTypes  = map[string]bool{"none": true, "bh1750": true}
	audioKinds  = map[string]bool{"none": true, "udp": true, "pcm": true}
)

const (
	minSensorInterval = time.Second
	minLightInterval  = 100 * time.Millisecond
	maxBins           = 64
)

// Normalize clamps invalid values to something usable and reports each
// change. It never fails.
func (c *Config) Normalize() []string {
	var notes []string
	note := func(format string, args ...any) { notes = append(notes, fmt.Sprintf(format, args...)) }
	def := Default()

	l := &c.Layout
	if l.Rows <= 0 || l.Cols <= 0 || l.Rows*l.Cols > layout.Capacity {
		note("layout %dx%d invalid or over capacity %d, using %dx%d", l.Rows, l.Cols, layout.Capacity, def.Layout.Rows, def.Layout.Cols)
		l.Rows, l.Cols = def.Layout.Rows, def.Layout.Cols
	}
	if o := mod(l.RowOffset, l.Rows); o != l.RowOffset {
		note("layout.row_offset %d wrapped to %d", l.RowOffset, o)
		l.RowOffset = o
	}
	if o := mod(l.ColOffset, l.Cols); o != l.ColOffset {
		note("layout.col_offset %d wrapped to %d", l.ColOffset, o)
		l.ColOffset = o
	}

	g := &c.Governor
	if g.FullScale < 0 {
		note("governor.full_scale negative, using 0")
		g.FullScale = 0
	}
	th := &g.Thermal
	if th.ReduceMax < th.ReduceMin {
		note("governor.thermal.reduce_max below reduce_min, swapped")
		th.ReduceMin, th.ReduceMax = th.ReduceMax, th.ReduceMin
	}
	if th.Max > 0 && th.Max < th.ReduceMax {
		note("governor.thermal.max %.1f below reduce_max, raised to %.1f", th.Max, th.ReduceMax)
		th.Max = th.ReduceMax
	}
	pw := &g.Power
	for name, v := range map[string]*float64{
		"red_mw": &pw.RedMW, "green_mw": &pw.GreenMW, "blue_mw": &pw.BlueMW,
		"idle_mw": &pw.IdleMW, "ceiling_w": &pw.CeilingW,
	} {
		if *v < 0 {
			note("governor.power.%s negative, using 0", name)
			*v = 0
		}
	}

	am := &g.Ambient
	if am.FullLux <= 0 {
		note("governor.ambient.full_lux must be positive, using %.0f", def.Governor.Ambient.FullLux)
		am.FullLux = def.Governor.Ambient.FullLux
	}
	if am.Floor <= 0 || am.Floor > 1 {
		note("governor.ambient.floor %.2f outside (0, 1], using %.2f", am.Floor, def.Governor.Ambient.Floor)
		am.Floor = def.Governor.Ambient.Floor
	}
	if am.Smooth < 0 {
		am.Smooth = 0
	}

	d := &c.Display
	if d.Color > 0xFFFFFF {
		note("display.color out of range, masked")
		d.Color &= 0xFFFFFF
	}
	if d.Tick <= 0 {
		d.Tick = def.Display.Tick
		note("display.tick must be positive, using %s", d.Tick)
	}
	if d.Redraw < d.Tick {
		note("display.redraw %s faster than tick, using %s", d.Redraw, d.Tick)
		d.Redraw = d.Tick
	}
	if d.BlendTime < 0 {
		note("display.blend_time negative, using 0")
		d.BlendTime = 0
	}
	if d.AuxBlink < 0 {
		note("display.aux_blink negative, indicator solid")
		d.AuxBlink = 0
	}
	if d.BrightnessStep == 0 {
		d.BrightnessStep = def.Display.BrightnessStep
	}

	s := &c.Scenes
	if s.Fade.Duration <= 0 {
		note("scenes.fade.duration must be positive, using default")
		s.Fade.Duration = def.Scenes.Fade.Duration
	}
	if s.Fade.Hold < 0 {
		s.Fade.Hold = 0
	}
	if s.Fire.Interval <= 0 {
		note("scenes.fire.interval must be positive, using default")
		s.Fire.Interval = def.Scenes.Fire.Interval
	}
	if s.Rainbow.Step <= 0 {
		note("scenes.rainbow.step must be positive, using default")
		s.Rainbow.Step = def.Scenes.Rainbow.Step
	}
	if len(s.Gradient.Stops) == 0 {
		note("scenes.gradient has no stops, using default")
		s.Gradient.Stops = def.Scenes.Gradient.Stops
	}

	dr := &c.Driver
	kept := dr.Outputs[:0]
	for _, o := range dr.Outputs {
		if outputs[o] {
			kept = append(kept, o)
		} else {
			note("driver.outputs: unknown output %q dropped", o)
		}
	}
	dr.Outputs = kept
	if len(dr.Outputs) == 0 {
		dr.Outputs = []string{"sim"}
	}
	if _, err := led.ParseOrder(dr.ColorOrder); err != nil {
		note("driver.color_order: %v, using %s", err, def.Driver.ColorOrder)
		dr.ColorOrder = def.Driver.ColorOrder
	}
	if dr.MinInterval < 0 {
		dr.MinInterval = 0
	}

	se := &c.Sensor
	if !sensorTypes[se.Type] {
		note("sensor.type %q unknown, disabled", se.Type)
		se.Type = "none"
	}
	if se.Interval < minSensorInterval {
		note("sensor.interval %s too short, using %s", se.Interval, minSensorInterval)
		se.Interval = minSensorInterval
	}

	li := &c.Light
	if !lightTypes[li.Type] {
		note("light.type %q unknown, disabled", li.Type)
		li.Type = "none"
	}
	if li.Interval < minLightInterval {
		note("light.interval %s too short, using %s", li.Interval, minLightInterval)
		li.Interval = minLightInterval
	}
	if am.Enabled && li.Type == "none" {
		note("governor.ambient enabled without a light sensor, brightness stays unscaled")
	}

	a := &c.Audio
	if !audioKinds[a.Source] {
		note("audio.source %q unknown, disabled", a.Source)
		a.Source = "none"
	}
	if a.Bins <= 0 || a.Bins > maxBins {
		note("audio.bins %d out of range, using %d", a.Bins, def.Audio.Bins)
		a.Bins = def.Audio.Bins
	}
	if a.Block < 64 || a.Block&(a.Block-1) != 0 {
		note("audio.block %d must be a power of two >= 64, using %d", a.Block, def.Audio.Block)
		a.Block = def.Audio.Block
	}
	if a.SampleRate <= 0 {
		a.SampleRate = def.Audio.SampleRate
	}

	if c.HTTP.FrameInterval <= 0 {
		c.HTTP.FrameInterval = def.HTTP.FrameInterval
	}
	return notes
}

func mod(v, n int) int {
	if n <= 0 {
		return 0
	}
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
