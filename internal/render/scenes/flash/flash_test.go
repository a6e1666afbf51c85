package flash

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/coreman2200/pixelclock/internal/color"
	"github.com/coreman2200/pixelclock/internal/layout"
	"github.com/coreman2200/pixelclock/internal/render"
)

func TestFlashDuty(t *testing.T) {
	f := New(color.Blue, Params{Period: 100 * time.Millisecond, Divisor: 3})
	assert.True(t, f.Lit(0))
	assert.True(t, f.Lit(99*time.Millisecond))
	assert.False(t, f.Lit(100*time.Millisecond))
	assert.False(t, f.Lit(250*time.Millisecond))
	assert.True(t, f.Lit(300*time.Millisecond))

	m, _ := layout.NewMapper(layout.Transform{Rows: 1, Cols: 3})
	dst := render.NewFrame(m)
	f.Render(dst, 150*time.Millisecond)
	assert.Equal(t, []color.Color{0, 0, 0}, dst.Pixels())
	f.Render(dst, 310*time.Millisecond)
	assert.Equal(t, []color.Color{color.Blue, color.Blue, color.Blue}, dst.Pixels())
}

func TestFlashCapabilities(t *testing.T) {
	f := New(color.Red, Params{})
	assert.True(t, f.SuppressesAuxIndicator())
	assert.False(t, f.SupportsBlend())
	assert.True(t, f.Lit(0), "defaults are applied to a zero period")
}
