package device

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/pixelclock/internal/governor"
	"github.com/coreman2200/pixelclock/internal/layout"
)

func TestManualClock(t *testing.T) {
	var c ManualClock
	assert.Equal(t, time.Duration(0), c.Now())
	assert.Equal(t, 5*time.Millisecond, c.Advance(5*time.Millisecond))
	c.Set(time.Second)
	assert.Equal(t, time.Second, c.Now())
}

func TestContextsAreIndependent(t *testing.T) {
	a, err := New(layout.Transform{Rows: 2, Cols: 3}, governor.DefaultConfig(), &ManualClock{}, zerolog.Nop())
	require.NoError(t, err)
	b, err := New(layout.Transform{Rows: 4, Cols: 4}, governor.DefaultConfig(), nil, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, 6, a.Frame.Len())
	assert.Equal(t, 16, b.Frame.Len())
	assert.IsType(t, &MonotonicClock{}, b.Clock, "nil clock falls back to monotonic")

	a.Governor.SampleTemperature(200)
	assert.True(t, a.Governor.Locked())
	assert.False(t, b.Governor.Locked())
}

func TestNewRejectsBadLayout(t *testing.T) {
	_, err := New(layout.Transform{Rows: 0, Cols: 3}, governor.DefaultConfig(), nil, zerolog.Nop())
	assert.Error(t, err)
}
