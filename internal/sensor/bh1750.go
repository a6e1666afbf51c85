package sensor

import (
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bh1750"
)

// BH1750 reads ambient light in lux over I²C.
type BH1750 struct {
	mu  sync.Mutex
	bus i2c.BusCloser
	dev *bh1750.Dev
}

// OpenBH1750 opens the named bus ("" for the first). addr is 0x23 or 0x5c,
// 0 picks 0x23. host.Init must have run.
func OpenBH1750(bus string, addr uint16) (*BH1750, error) {
	b, err := i2creg.Open(bus)
	if err != nil {
		return nil, errors.Wrapf(err, "open i2c bus %q", bus)
	}
	s, err := NewBH1750(b, addr)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	s.bus = b
	return s, nil
}

func NewBH1750(b i2c.Bus, addr uint16) (*BH1750, error) {
	if addr == 0 {
		addr = bh1750.I2CAddr
	}
	d, err := bh1750.NewI2C(b, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "bh1750 at %#x", addr)
	}
	return &BH1750{dev: d}, nil
}

func (s *BH1750) Read() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev == nil {
		return 0, errors.New("bh1750 closed")
	}
	v, err := s.dev.Sense()
	if err != nil {
		return 0, errors.Wrap(err, "bh1750 sense")
	}
	return float64(v) / float64(physic.Lumen), nil
}

func (s *BH1750) Close() error {
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
