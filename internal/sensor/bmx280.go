package sensor

import (
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
)

// BMX280 reads a Bosch BME280/BMP280 over I²C.
type BMX280 struct {
	mu  sync.Mutex
	bus i2c.BusCloser // nil when the caller owns the bus
	dev *bmxx80.Dev
}

// OpenBMX280 opens the named bus ("" for the first) and talks to addr
// (0x76 or 0x77). host.Init must have run.
func OpenBMX280(bus string, addr uint16) (*BMX280, error) {
	b, err := i2creg.Open(bus)
	if err != nil {
		return nil, errors.Wrapf(err, "open i2c bus %q", bus)
	}
	s, err := NewBMX280(b, addr)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	s.bus = b
	return s, nil
}

func NewBMX280(b i2c.Bus, addr uint16) (*BMX280, error) {
	d, err := bmxx80.NewI2C(b, addr, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, errors.Wrapf(err, "bmxx80 at %#x", addr)
	}
	return &BMX280{dev: d}, nil
}

func (s *BMX280) Read() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev == nil {
		return 0, errors.New("bmx280 closed")
	}
	var e physic.Env
	if err := s.dev.Sense(&e); err != nil {
		return 0, errors.Wrap(err, "bmx280 sense")
	}
	return e.Temperature.Celsius(), nil
}

func (s *BMX280) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev == nil {
		return nil
	}
	err := s.dev.Halt()
	s.dev = nil
	if s.bus != nil {
		if cerr := s.bus.Close(); err == nil {
			err = cerr
		}
		s.bus = nil
	}
	return err
}
