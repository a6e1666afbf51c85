package gradient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/coreman2200/pixelclock/internal/color"
	"github.com/coreman2200/pixelclock/internal/layout"
	"github.com/coreman2200/pixelclock/internal/render"
)

func TestPhaseReflects(t *testing.T) {
	g := New(color.Black, Params{Period: 4 * time.Second})
	assert.Equal(t, 0.0, g.Phase(0))
	assert.Equal(t, 0.5, g.Phase(time.Second))
	assert.Equal(t, 1.0, g.Phase(2*time.Second))
	assert.Equal(t, 0.5, g.Phase(3*time.Second))
	assert.Equal(t, 0.0, g.Phase(4*time.Second))
	assert.Equal(t, 0.0, New(color.Black, Params{}).Phase(time.Hour))
}

func TestStaticRamp(t *testing.T) {
	m, _ := layout.NewMapper(layout.Transform{Rows: 1, Cols: 7})
	g := New(color.Black, Params{Stops: []Stop{
		{Pixel: 5, Color: color.Blue},
		{Pixel: 1, Color: color.Red},
	}})
	dst := render.NewFrame(m)
	g.Render(dst, 0)
	px := dst.Pixels()
	assert.Equal(t, color.Red, px[0])
	assert.Equal(t, color.Red, px[1])
	assert.Equal(t, color.New(128, 0, 128), px[3])
	assert.Equal(t, color.Blue, px[5])
	assert.Equal(t, color.Blue, px[6])
}

func TestSweepBlendsTowardPredecessor(t *testing.T) {
	m, _ := layout.NewMapper(layout.Transform{Rows: 1, Cols: 4})
	g := New(color.Black, Params{
		Stops:  []Stop{{Pixel: 0, Color: color.Red}, {Pixel: 3, Color: color.Blue}},
		Period: 2 * time.Second,
	})
	dst := render.NewFrame(m)
	g.Render(dst, time.Second)
	// at the far extreme every stop shows its predecessor
	assert.Equal(t, color.Blue, dst.Pixels()[0])
	assert.Equal(t, color.Red, dst.Pixels()[3])
}

func TestNoStopsIsBlack(t *testing.T) {
	m, _ := layout.NewMapper(layout.Transform{Rows: 1, Cols: 2})
	dst := render.NewFrame(m)
	dst.Fill(color.White)
	New(color.Black, Params{}).Render(dst, 0)
	assert.Equal(t, []color.Color{0, 0}, dst.Pixels())
}
