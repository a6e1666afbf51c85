package sensor

import (
	"context"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ErrNoReading means the provider had nothing valid to report.
var ErrNoReading = errors.New("no valid reading")

// Provider reads one quantity, degrees Celsius for temperature sensors and
// lux for light sensors.
type Provider interface {
	Read() (float64, error)
}

// Sysfs reads a thermal zone that reports millidegrees.
type Sysfs struct {
	Path string
}

func (s Sysfs) Read() (float64, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return 0, errors.Wrap(err, "read thermal zone")
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse %s", s.Path)
	}
	return float64(v) / 1000, nil
}

// Func adapts a plain function.
type Func func() (float64, error)

func (f Func) Read() (float64, error) { return f() }

func valid(v float64) bool {
	return v != 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ValidLight accepts darkness, which a temperature check would drop.
func ValidLight(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Poller samples a Provider on an interval and hands valid readings to
// Submit. Invalid or failed reads are dropped so the consumer keeps its
// last good value.
type Poller struct {
	Provider Provider
	Interval time.Duration
	Submit   func(v float64)
	Log      zerolog.Logger
	// Name labels log lines, "temperature" when empty.
	Name     string
	// Valid filters readings; nil drops zero and non finite values.
	Valid    func(v float64) bool

	failing bool
}

// Poll takes one sample. It reports whether a reading was submitted.
func (p *Poller) Poll() bool {
	ok := p.Valid
	if ok == nil {
		ok = valid
	}
	name := p.Name
	if name == "" {
		name = "temperature"
	}
	v, err := p.Provider.Read()
	if err == nil && !ok(v) {
		err = ErrNoReading
	}
	if err != nil {
		if !p.failing {
			p.Log.Warn().Err(err).Msg(name + " read failed")
		}
		p.failing = true
		return false
	}
	if p.failing {
		p.Log.Info().Float64("value", v).Msg(name + " readings recovered")
	}
	p.failing = false
	p.Log.Trace().Float64("value", v).Msg(name)
	p.Submit(v)
	return true
}

// Run polls immediately and then every Interval until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	p.Poll()
	t := time.NewTicker(p.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			p.Poll()
		}
	}
}
