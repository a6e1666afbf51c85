package led

import (
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"

	"github.com/coreman2200/pixelclock/internal/color"
)

var ErrClosed = errors.New("driver closed")

// writer is what nrzled and the console screen have in common.
type writer interface {
	Write(p []byte) (int, error)
	Halt() error
	String() string
}

// Strip feeds encoded frames to a periph pixel device.
type Strip struct {
	mu    sync.Mutex
	dev   writer
	port  spi.PortCloser // nil unless Strip opened it
	order Order
	buf   []byte
}

// SPIOpts configures a WS2812 chain on SPI. An empty Port picks the first
// registered port; a zero Freq means 2.5MHz.
type SPIOpts struct {
	Port      string
	NumPixels int
	Freq      physic.Frequency
	Order     Order
}

// OpenSPI opens a SPI port through the registry and drives a WS2812 chain
// with nrzled. host.Init must have run.
func OpenSPI(o SPIOpts) (*Strip, error) {
	p, err := spireg.Open(o.Port)
	if err != nil {
		return nil, errors.Wrapf(err, "open spi port %q", o.Port)
	}
	s, err := NewSPI(p, o)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	s.port = p
	return s, nil
}

// NewSPI drives a chain on an already open port. The port stays owned by
// the caller.
func NewSPI(p spi.Port, o SPIOpts) (*Strip, error) {
	if o.NumPixels <= 0 {
		return nil, errors.Errorf("invalid LED count: %d", o.NumPixels)
	}
	if o.Freq == 0 {
		o.Freq = 2500 * physic.KiloHertz
	}
	d, err := nrzled.NewSPI(p, &nrzled.Opts{NumPixels: o.NumPixels, Channels: 3, Freq: o.Freq})
	if err != nil {
		return nil, errors.Wrap(err, "nrzled")
	}
	if o.Order == (Order{}) {
		o.Order = GRB
	}
	// nrzled already reorders RGB to GRB on the wire
	return &Strip{dev: d, order: swapForNRZ(o.Order)}, nil
}

// swapForNRZ turns the strip's wire order into the order nrzled must be
// fed so that its own RGB to GRB swap lands on it.
func swapForNRZ(o Order) Order {
	return Order{o[1], o[0], o[2]}
}

// NewScreen renders the chain as ANSI blocks on the terminal.
func NewScreen(numPixels int) *Strip {
	return &Strip{dev: screen.New(numPixels), order: RGB}
}

func (s *Strip) Show(px []color.Color, brightness uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev == nil {
		return ErrClosed
	}
	s.buf = Encode(s.buf, px, brightness, s.order)
	if _, err := s.dev.Write(s.buf); err != nil {
		return errors.Wrapf(err, "write %s", s.dev)
	}
	return nil
}

func (s *Strip) String() string {
	if s.dev == nil {
		return "closed"
	}
	return s.dev.String()
}

func (s *Strip) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev == nil {
		return nil
	}
	err := s.dev.Halt()
	s.dev = nil
	if s.port != nil {
		if cerr := s.port.Close(); err == nil {
			err = cerr
		}
		s.port = nil
	}
	return errors.Wrap(err, "close strip")
}
