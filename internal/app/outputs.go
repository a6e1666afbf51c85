package app

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/pixelclock/internal/config"
	"github.com/coreman2200/pixelclock/internal/led"
)

// OpenOutputs builds one driver per configured output. A hardware output
// that fails to open is logged and skipped; when nothing opens the
// simulator takes over so the clock still runs headless.
func OpenOutputs(c config.Driver, numPixels int, log zerolog.Logger) (led.Fanout, error) {
	order, err := led.ParseOrder(c.ColorOrder)
	if err != nil {
		return nil, err
	}
	var out led.Fanout
	for _, name := range c.Outputs {
		d, err := openOutput(strings.ToLower(strings.TrimSpace(name)), c, order, numPixels, log)
		if err != nil {
			log.Warn().Err(err).Str("driver", name).Msg("output init failed; skipping")
			continue
		}
		if c.MinInterval > 0 {
			d = led.NewThrottle(d, c.MinInterval)
		}
		log.Info().Str("driver", name).Int("pixels", numPixels).Stringer("order", order).Msg("output ready")
		out = append(out, d)
	}
	if len(out) == 0 {
		log.Warn().Msg("no output available; using SIM")
		out = append(out, newSim(log))
	}
	return out, nil
}

func openOutput(name string, c config.Driver, order led.Order, n int, log zerolog.Logger) (led.Driver, error) {
	switch name {
	case "sim":
		return newSim(log), nil
	case "spi":
		return led.OpenSPI(led.SPIOpts{
			Port:      c.SPI.Port,
			NumPixels: n,
			Freq:      physic.Frequency(c.SPI.FreqKHz) * physic.KiloHertz,
			Order:     order,
		})
	case "screen":
		return led.NewScreen(n), nil
	case "opc":
		return led.NewOPC(c.OPC.Addr, c.OPC.Channel), nil
	}
	return nil, errors.Errorf("unknown driver %q", name)
}

func newSim(log zerolog.Logger) *led.Sim {
	s := led.NewSim(log)
	s.LogEvery = 250
	return s
}
