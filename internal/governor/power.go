package governor

import (
	"github.com/coreman2200/pixelclock/internal/color"
)

// PowerModel estimates the draw of a frame. Coefficients are milliwatts
// per LED with the channel at full intensity.
type PowerModel struct {
	RedMW    float64 `yaml:"red_mw"`
	GreenMW  float64 `yaml:"green_mw"`
	BlueMW   float64 `yaml:"blue_mw"`
	IdleMW   float64 `yaml:"idle_mw"`
	CeilingW float64 `yaml:"ceiling_w"` // 0 means unlimited
}

// DefaultPowerModel is a WS2812B at 5V.
func DefaultPowerModel() PowerModel {
	return PowerModel{
		RedMW:   16.3 * 5,
		GreenMW: 16.4 * 5,
		BlueMW:  16.3 * 5,
		IdleMW:  0.83 * 5,
	}
}

// full returns the estimated draw of px at full brightness, excluding idle.
func (p PowerModel) full(px []color.Color) float64 {
	var r, g, b float64
	for _, c := range px {
		r += float64(c.R())
		g += float64(c.G())
		b += float64(c.B())
	}
	return (r*p.RedMW + g*p.GreenMW + b*p.BlueMW) / 255
}

// Estimate returns milliwatts for px shown at brightness.
func (p PowerModel) Estimate(px []color.Color, brightness uint8) float64 {
	return p.estimate(p.full(px), len(px), brightness)
}

// EstimateWhite is Estimate for count full white pixels.
func (p PowerModel) EstimateWhite(count int, brightness uint8) float64 {
	full := float64(count) * (p.RedMW + p.GreenMW + p.BlueMW)
	return p.estimate(full, count, brightness)
}

func (p PowerModel) estimate(full float64, count int, brightness uint8) float64 {
	return full*float64(brightness)/255 + p.IdleMW*float64(count)
}

// Limit returns the largest brightness <= requested whose estimated draw
// for px stays within the ceiling. A nil px is treated as count white
// pixels. The result never decreases as requested grows.
func (p PowerModel) Limit(px []color.Color, count int, requested uint8) uint8 {
	if p.CeilingW <= 0 {
		return requested
	}
	var full float64
	if px == nil {
		full = float64(count) * (p.RedMW + p.GreenMW + p.BlueMW)
	} else {
		full = p.full(px)
		count = len(px)
	}
	ceiling := p.CeilingW * 1000
	if p.estimate(full, count, requested) <= ceiling {
		return requested
	}
	lo, hi := 0, int(requested)
	if p.estimate(full, count, 0) > ceiling {
		return 0
	}
	// estimate is non-decreasing in brightness: find the last b that fits
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if p.estimate(full, count, uint8(mid)) <= ceiling {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return uint8(lo)
}
