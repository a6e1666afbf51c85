package visualizer

import (
	"time"

	"github.com/coreman2200/pixelclock/internal/color"
	"github.com/coreman2200/pixelclock/internal/render"
)

// Source hands out the latest decoded amplitude array. seq changes every
// time a new array arrives. Latest must not block.
type Source interface {
	Latest() (bins []uint8, seq uint64)
}

type Style string

const (
	StyleColor   Style = "color"   // bars in the base color
	StyleRainbow Style = "rainbow" // hue across the columns
)

type PeakMode string

const (
	PeakDisabled PeakMode = "disabled"
	PeakHold     PeakMode = "hold"    // track and hold for PeakDecay
	PeakFalling  PeakMode = "falling" // fall one full height per PeakDecay
)

type Params struct {
	Style     Style         `yaml:"style"`
	Peak      PeakMode      `yaml:"peak"`
	PeakDecay time.Duration `yaml:"peak_decay"`
	PeakColor color.Color   `yaml:"peak_color"`
	Timeout   time.Duration `yaml:"timeout"`
}

func DefaultParams() Params {
	return Params{
		Style:     StyleRainbow,
		Peak:      PeakFalling,
		PeakDecay: time.Second,
		PeakColor: color.White,
		Timeout:   5 * time.Second,
	}
}

// blankAfter is how many timeouts of silence clear the bars.
const blankAfter = 5

type peak struct {
	value uint8
	at    time.Duration
}

// Visualizer draws one bar per column from the amplitude feed.
type Visualizer struct {
	render.Base
	p   Params
	src Source

	bins    []uint8
	seq     uint64
	heardAt time.Duration
	peaks   []peak
	now     time.Duration
}

func New(c color.Color, p Params, src Source) *Visualizer {
	if p.Timeout <= 0 {
		p.Timeout = DefaultParams().Timeout
	}
	if p.PeakDecay <= 0 {
		p.PeakDecay = DefaultParams().PeakDecay
	}
	return &Visualizer{Base: render.NewBase(c), p: p, src: src}
}

func (v *Visualizer) Kind() render.Kind            { return render.VisualizerDriven }
func (v *Visualizer) SupportsBlend() bool          { return false }
func (v *Visualizer) SuppressesAuxIndicator() bool { return true }

func (v *Visualizer) Begin(now time.Duration) {
	v.Start()
	v.heardAt = now
	v.now = now
}

// Stale reports that no array arrived within the timeout.
func (v *Visualizer) Stale(now time.Duration) bool {
	return now-v.heardAt > v.p.Timeout
}

func (v *Visualizer) Loop(now time.Duration) {
	v.now = now
	if v.src != nil {
		if bins, seq := v.src.Latest(); seq != v.seq && bins != nil {
			v.seq = seq
			v.bins = append(v.bins[:0], bins...)
			v.heardAt = now
		}
	}
	if now-v.heardAt > blankAfter*v.p.Timeout {
		v.bins = v.bins[:0]
	}
	if len(v.peaks) != len(v.bins) {
		v.peaks = make([]peak, len(v.bins))
	}
	for i, b := range v.bins {
		cur := v.peakValue(i, now)
		if b >= cur {
			v.peaks[i] = peak{value: b, at: now}
		}
	}
}

// peakValue is the displayed peak of bin i at now.
func (v *Visualizer) peakValue(i int, now time.Duration) uint8 {
	pk := v.peaks[i]
	el := now - pk.at
	switch v.p.Peak {
	case PeakHold:
		if el > v.p.PeakDecay {
			return 0
		}
		return pk.value
	case PeakFalling:
		drop := int64(el) * 255 / int64(v.p.PeakDecay)
		if drop >= int64(pk.value) {
			return 0
		}
		return pk.value - uint8(drop)
	}
	return 0
}

// Peak is the displayed peak of bin i, for inspection.
func (v *Visualizer) Peak(i int) uint8 {
	if i < 0 || i >= len(v.peaks) {
		return 0
	}
	return v.peakValue(i, v.now)
}

func (v *Visualizer) barColor(col, cols int) color.Color {
	if v.p.Style == StyleRainbow {
		return color.HSV(float64(col)*300/float64(max(1, cols)), 1, 1)
	}
	return v.Color()
}

func (v *Visualizer) Render(dst *render.Frame, now time.Duration) {
	dst.Clear()
	if len(v.bins) == 0 {
		return
	}
	rows, cols := dst.Rows(), dst.Cols()
	for col := 0; col < cols; col++ {
		bin := col * len(v.bins) / cols
		height := int(v.bins[bin]) * rows / 255
		c := v.barColor(col, cols)
		for h := 0; h < height; h++ {
			dst.Set(rows-1-h, col, c)
		}
		if v.p.Peak == PeakDisabled || bin >= len(v.peaks) {
			continue
		}
		if ph := int(v.peakValue(bin, now)) * rows / 255; ph > 0 {
			dst.Set(rows-ph, col, v.p.PeakColor)
		}
	}
}
