package led

import (
	"sync"

	"github.com/kellydunn/go-opc"
	"github.com/pkg/errors"

	"github.com/coreman2200/pixelclock/internal/color"
)

// OPC sends frames to an Open Pixel Control server (fadecandy, gl_server).
// The client connects lazily and reconnects after a failed send.
type OPC struct {
	Addr    string
	Channel uint8

	mu     sync.Mutex
	client *opc.Client
}

func NewOPC(addr string, channel uint8) *OPC {
	return &OPC{Addr: addr, Channel: channel}
}

func (o *OPC) connect() error {
	if o.client != nil {
		return nil
	}
	c := opc.NewClient()
	if err := c.Connect("tcp", o.Addr); err != nil {
		return errors.Wrapf(err, "opc connect %s", o.Addr)
	}
	o.client = c
	return nil
}

func (o *OPC) Show(px []color.Color, brightness uint8) error {
	n := len(px) * 3
	if n > 0xFFFF {
		return errors.Errorf("opc frame too large: %d bytes", n)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.connect(); err != nil {
		return err
	}
	m := opc.NewMessage(o.Channel)
	m.SetLength(uint16(n))
	for i, c := range px {
		r, g, b := c.Scale(brightness).RGB()
		m.SetPixelColor(i, r, g, b)
	}
	if err := o.client.Send(m); err != nil {
		o.client = nil
		return errors.Wrapf(err, "opc send %s", o.Addr)
	}
	return nil
}

// Close drops the client. go-opc does not expose its connection, so the
// socket is released with it.
func (o *OPC) Close() error {
	o.mu.Lock()
	o.client = nil
	o.mu.Unlock()
	return nil
}
