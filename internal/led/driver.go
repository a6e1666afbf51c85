package led

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/coreman2200/pixelclock/internal/color"
)

// Driver abstracts an LED output sink. Show receives the rendered frame
// and the effective brightness; scaling is the driver's job so that the
// frame itself stays untouched for other consumers.
type Driver interface {
	Show(px []color.Color, brightness uint8) error
	Close() error
}

// Order is the byte order a strip expects on the wire, e.g. "GRB".
type Order [3]byte

var (
	RGB = Order{'R', 'G', 'B'}
	GRB = Order{'G', 'R', 'B'}
)

func ParseOrder(s string) (Order, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return RGB, nil
	}
	if len(s) != 3 || !strings.ContainsRune(s, 'R') || !strings.ContainsRune(s, 'G') || !strings.ContainsRune(s, 'B') {
		return RGB, errors.Errorf("invalid color order %q", s)
	}
	return Order{s[0], s[1], s[2]}, nil
}

func (o Order) String() string { return string(o[:]) }

// Encode writes px into dst as 3 bytes per pixel in order o, each channel
// scaled by brightness. dst is grown when short; the filled slice is
// returned.
func Encode(dst []byte, px []color.Color, brightness uint8, o Order) []byte {
	n := len(px) * 3
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]
	for i, c := range px {
		c = c.Scale(brightness)
		for j, ch := range o {
			var v uint8
			switch ch {
			case 'R':
				v = c.R()
			case 'G':
				v = c.G()
			case 'B':
				v = c.B()
			}
			dst[i*3+j] = v
		}
	}
	return dst
}
