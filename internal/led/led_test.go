package led

import (
	"bytes"
	"io"
	"net"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3/spi/spitest"

	"github.com/coreman2200/pixelclock/internal/color"
)

func TestEncodeOrderAndBrightness(t *testing.T) {
	px := []color.Color{color.New(255, 128, 0), color.New(1, 2, 3)}
	assert.Equal(t, []byte{255, 128, 0, 1, 2, 3}, Encode(nil, px, 255, RGB))
	assert.Equal(t, []byte{128, 255, 0, 2, 1, 3}, Encode(nil, px, 255, GRB))
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0}, Encode(nil, px, 0, RGB))
	half := Encode(nil, px[:1], 128, RGB)
	assert.Equal(t, []byte{128, 64, 0}, half)
}

func TestEncodeReusesBuffer(t *testing.T) {
	buf := make([]byte, 0, 64)
	out := Encode(buf, []color.Color{color.White}, 255, RGB)
	assert.Len(t, out, 3)
	assert.Equal(t, 64, cap(out))
}

func TestParseOrder(t *testing.T) {
	o, err := ParseOrder(" grb ")
	require.NoError(t, err)
	assert.Equal(t, GRB, o)
	assert.Equal(t, "GRB", o.String())

	o, err = ParseOrder("")
	require.NoError(t, err)
	assert.Equal(t, RGB, o)

	for _, bad := range []string{"RRB", "RGBW", "XYZ"} {
		_, err := ParseOrder(bad)
		assert.Error(t, err, bad)
	}
}

func TestSimKeepsLastFrame(t *testing.T) {
	d := NewSim(zerolog.Nop())
	d.LogEvery = 1
	require.NoError(t, d.Show([]color.Color{color.Red, color.Blue}, 40))
	px, b := d.Last()
	assert.Equal(t, []color.Color{color.Red, color.Blue}, px)
	assert.Equal(t, uint8(40), b)
	assert.Equal(t, 1, d.Count())

	px[0] = color.Green
	again, _ := d.Last()
	assert.Equal(t, color.Red, again[0], "Last hands out a copy")

	require.NoError(t, d.Close())
	assert.ErrorIs(t, d.Show(nil, 0), ErrClosed)
}

type failing struct{ shows int }

func (f *failing) Show([]color.Color, uint8) error {
	f.shows++
	return errors.New("boom")
}

func (f *failing) Close() error { return nil }

func TestFanoutReachesEveryDriver(t *testing.T) {
	a, b := NewSim(zerolog.Nop()), NewSim(zerolog.Nop())
	bad := &failing{}
	f := Fanout{a, bad, b}
	err := f.Show([]color.Color{color.White}, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 1, a.Count())
	assert.Equal(t, 1, b.Count())
	assert.Equal(t, 1, bad.shows)

	assert.NoError(t, Fanout{a, b}.Show(nil, 0))
	assert.NoError(t, f.Close())

	err = Fanout{bad, a, &failing{}}.Show(nil, 0)
	assert.Len(t, multierr.Errors(err), 2, "every failure is kept")
}

func TestThrottleSpacing(t *testing.T) {
	now := time.Unix(0, 0)
	sim := NewSim(zerolog.Nop())
	th := NewThrottle(sim, 30*time.Millisecond)
	th.Now = func() time.Time { return now }

	px := []color.Color{color.Red}
	require.NoError(t, th.Show(px, 10))
	now = now.Add(10 * time.Millisecond)
	require.NoError(t, th.Show(px, 10))
	assert.Equal(t, 1, sim.Count(), "too early")
	assert.Equal(t, 1, th.Dropped())

	require.NoError(t, th.Show(px, 11))
	assert.Equal(t, 2, sim.Count(), "brightness changes are never dropped")

	now = now.Add(30 * time.Millisecond)
	require.NoError(t, th.Show(px, 11))
	assert.Equal(t, 3, sim.Count())

	require.NoError(t, th.Show(px, 11))
	assert.Equal(t, 3, sim.Count(), "spacing restarts after a sent frame")
	assert.Equal(t, 2, th.Dropped())
}

func TestOPCWritesFrame(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	got := make(chan []byte, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		buf := make([]byte, 10)
		if _, err := io.ReadFull(c, buf); err == nil {
			got <- buf
		}
	}()

	d := NewOPC(ln.Addr().String(), 2)
	require.NoError(t, d.Show([]color.Color{color.New(255, 0, 10), color.Blue}, 255))
	select {
	case b := <-got:
		assert.Equal(t, []byte{2, 0, 0, 6, 255, 0, 10, 0, 0, 255}, b)
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
	}
	assert.NoError(t, d.Close())
}

func TestOPCDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	d := NewOPC(addr, 0)
	assert.Error(t, d.Show([]color.Color{color.Red}, 255))
}

func TestOPCScalesAndReconnects(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	conns := make(chan net.Conn, 2)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			conns <- c
		}
	}()

	d := NewOPC(ln.Addr().String(), 0)
	require.NoError(t, d.Show([]color.Color{color.White}, 128))
	first := <-conns
	buf := make([]byte, 7)
	_, err = io.ReadFull(first, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 3, 128, 128, 128}, buf)
	first.Close()

	failed := false
	for i := 0; i < 100 && !failed; i++ {
		failed = d.Show([]color.Color{color.White}, 255) != nil
		time.Sleep(5 * time.Millisecond)
	}
	require.True(t, failed, "a dead server surfaces as an error")

	require.NoError(t, d.Show([]color.Color{color.Red}, 255))
	select {
	case second := <-conns:
		defer second.Close()
		_, err = io.ReadFull(second, buf)
		require.NoError(t, err)
		assert.Equal(t, []byte{0, 0, 0, 3, 255, 0, 0}, buf)
	case <-time.After(2 * time.Second):
		t.Fatal("no reconnect")
	}
	assert.NoError(t, d.Close())
}

func TestSPIStripEncodesThroughNRZ(t *testing.T) {
	record := func(px []color.Color, b uint8) []byte {
		buf := bytes.Buffer{}
		s, err := NewSPI(spitest.NewRecordRaw(&buf), SPIOpts{NumPixels: len(px)})
		require.NoError(t, err)
		assert.Equal(t, "nrzled{recordraw}", s.String())
		require.NoError(t, s.Show(px, b))
		return buf.Bytes()
	}
	lit := []color.Color{color.White, color.Red, color.Blue}
	dark := []color.Color{color.Black, color.Black, color.Black}

	assert.Equal(t, record(dark, 255), record(lit, 0), "brightness 0 is the same stream as black")
	assert.NotEqual(t, record(dark, 255), record(lit, 255))
	assert.NotEmpty(t, record(lit, 128))
}

func TestSPIRejectsEmptyChain(t *testing.T) {
	_, err := NewSPI(spitest.NewRecordRaw(&bytes.Buffer{}), SPIOpts{})
	assert.Error(t, err)
}

func TestSwapForNRZ(t *testing.T) {
	assert.Equal(t, RGB, swapForNRZ(GRB))
	assert.Equal(t, Order{'B', 'R', 'G'}, swapForNRZ(Order{'R', 'B', 'G'}))
}
