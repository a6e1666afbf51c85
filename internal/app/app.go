package app

import (
	"context"
	"math/rand"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/coreman2200/pixelclock/internal/audio"
	"github.com/coreman2200/pixelclock/internal/config"
	"github.com/coreman2200/pixelclock/internal/device"
	"github.com/coreman2200/pixelclock/internal/led"
	"github.com/coreman2200/pixelclock/internal/scheduler"
	"github.com/coreman2200/pixelclock/internal/sensor"
	"github.com/coreman2200/pixelclock/internal/wiring"
	"github.com/coreman2200/pixelclock/internal/ws"
)

// Options are the process level knobs that do not live in the config
// file. Outputs replaces the configured drivers when set.
type Options struct {
	ConfigPath string
	Clock      device.Clock
	Seed       int64
	Outputs    led.Fanout
	Logger     zerolog.Logger
}

// App is one fully wired clock.
type App struct {
	Cfg       *config.Config
	Device    *device.Context
	Sched     *scheduler.Scheduler
	Server    *ws.Server
	Tests     *wiring.Overlay
	Feed      *audio.Feed
	Conductor *Conductor

	outputs led.Fanout
	sensor  sensor.Provider
	light   sensor.Provider
	log     zerolog.Logger
}

const (
	testStep     = 150 * time.Millisecond
	diagInterval = 500 * time.Millisecond
)

func New(cfg *config.Config, opt Options) (*App, error) {
	log := opt.Logger
	dc, err := device.New(cfg.Layout, cfg.Governor, opt.Clock, log)
	if err != nil {
		return nil, errors.Wrap(err, "device")
	}
	seed := opt.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	a := &App{Cfg: cfg, Device: dc, Feed: &audio.Feed{}, log: log}
	reg := NewRegistry(cfg.Scenes, dc.Mapper, a.Feed, rand.New(rand.NewSource(seed)))

	a.outputs = opt.Outputs
	if len(a.outputs) == 0 {
		if a.outputs, err = OpenOutputs(cfg.Driver, dc.Mapper.Count(), log); err != nil {
			return nil, err
		}
	}

	// the overlay's inner driver is bound once the server exists
	a.Tests = wiring.NewOverlay(nil, dc.Mapper, testStep)
	a.Tests.Power = cfg.Governor.Power
	a.Sched, err = scheduler.New(dc, reg, a.Tests, scheduler.Options{
		Tick:           cfg.Display.Tick,
		Redraw:         cfg.Display.Redraw,
		BlendTime:      cfg.Display.BlendTime,
		FadeLimit:      cfg.Display.FadeLimit,
		AuxBlink:       cfg.Display.AuxBlink,
		BrightnessStep: cfg.Display.BrightnessStep,
		Kind:           cfg.Display.Kind,
		Color:          cfg.Display.Color,
		Logger:         log,
	})
	if err != nil {
		a.outputs.Close()
		return nil, err
	}

	a.Server = ws.New(a.Sched, dc.Mapper)
	a.Server.FrameInterval = cfg.HTTP.FrameInterval
	a.Server.Tests = a.Tests
	a.Tests.OnDone = a.Server.TestDone
	a.Tests.Driver = append(append(led.Fanout(nil), a.outputs...), a.Server)
	if opt.ConfigPath != "" {
		p := config.NewPersister(opt.ConfigPath, cfg)
		a.Server.Save = func(st scheduler.Status) (bool, error) {
			return p.Save(config.Settings{Kind: st.Kind, Color: st.Color, Brightness: st.Target})
		}
	}

	a.Conductor = NewConductor(a.Sched)
	if cfg.Playlist != nil {
		if err := a.Conductor.Seq.Load(*cfg.Playlist); err != nil {
			a.outputs.Close()
			return nil, errors.Wrap(err, "playlist")
		}
	}

	if a.sensor, err = OpenSensor(cfg.Sensor); err != nil {
		log.Warn().Err(err).Str("sensor", cfg.Sensor.Type).Msg("sensor init failed; running without temperature")
	}
	if a.light, err = OpenLight(cfg.Light); err != nil {
		log.Warn().Err(err).Str("sensor", cfg.Light.Type).Msg("light sensor init failed; brightness stays unscaled")
	}
	return a, nil
}

// OpenLight returns nil for "none".
func OpenLight(c config.Light) (sensor.Provider, error) {
	switch c.Type {
	case "bh1750":
		s, err := sensor.OpenBH1750(c.Bus, c.Addr)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "none", "":
		return nil, nil
	}
	return nil, errors.Errorf("unknown light sensor %q", c.Type)
}

// OpenSensor returns nil for "none".
func OpenSensor(c config.Sensor) (sensor.Provider, error) {
	switch c.Type {
	case "sysfs":
		return sensor.Sysfs{Path: c.Path}, nil
	case "bmx280":
		s, err := sensor.OpenBMX280(c.Bus, c.Addr)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "none", "":
		return nil, nil
	}
	return nil, errors.Errorf("unknown sensor %q", c.Type)
}

// Handler is the HTTP surface of the command plane.
func (a *App) Handler() http.Handler { return WithCORS(a.Server.Routes()) }

// Run drives every subsystem until ctx is done or one of them fails, then
// releases the outputs.
func (a *App) Run(ctx context.Context) error {
	defer a.close()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.Sched.Run(ctx) })
	g.Go(func() error { return a.pollDiagnostics(ctx) })
	if a.sensor != nil {
		p := &sensor.Poller{
			Provider: a.sensor,
			Interval: a.Cfg.Sensor.Interval,
			Submit:   a.Sched.SubmitTemperature,
			Log:      a.log.With().Str("component", "sensor").Logger(),
		}
		g.Go(func() error { return p.Run(ctx) })
	}
	if a.light != nil {
		every := a.Cfg.Light.Interval
		p := &sensor.Poller{
			Provider: a.light,
			Interval: every,
			Submit:   func(v float64) { a.Sched.SubmitLight(v, every) },
			Log:      a.log.With().Str("component", "light").Logger(),
			Name:     "light",
			Valid:    sensor.ValidLight,
		}
		g.Go(func() error { return p.Run(ctx) })
	}
	if a.Cfg.Playlist != nil {
		a.Conductor.Seq.Start()
		g.Go(func() error { return a.Conductor.Run(ctx, 50) })
	}
	if err := a.startAudio(ctx, g); err != nil {
		return err
	}
	if a.Cfg.HTTP.Addr != "" {
		a.serveHTTP(ctx, g)
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) pollDiagnostics(ctx context.Context) error {
	t := time.NewTicker(diagInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			a.Server.PollDiagnostics()
		}
	}
}

func (a *App) startAudio(ctx context.Context, g *errgroup.Group) error {
	log := a.log.With().Str("component", "audio").Logger()
	c := a.Cfg.Audio
	switch c.Source {
	case "udp":
		conn, err := net.ListenPacket("udp", c.Listen)
		if err != nil {
			return errors.Wrap(err, "audio listen")
		}
		log.Info().Str("addr", conn.LocalAddr().String()).Msg("amplitude feed listening")
		g.Go(func() error { return a.Feed.ServeUDP(ctx, conn, log) })
	case "pcm":
		f, err := os.Open(c.PCM)
		if err != nil {
			return errors.Wrap(err, "audio pcm")
		}
		an := audio.NewAnalyzer(c.SampleRate, c.Bins)
		g.Go(func() error {
			defer f.Close()
			err := an.Run(ctx, f, c.Block, a.Feed)
			log.Info().Err(err).Str("path", c.PCM).Msg("pcm stream ended")
			if errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	return nil
}

func (a *App) serveHTTP(ctx context.Context, g *errgroup.Group) {
	srv := &http.Server{
		Addr:         a.Cfg.HTTP.Addr,
		Handler:      a.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	g.Go(func() error {
		a.log.Info().Str("addr", srv.Addr).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		a.Server.Close()
		return srv.Close()
	})
}

func (a *App) close() {
	if err := a.outputs.Close(); err != nil {
		a.log.Warn().Err(err).Msg("closing outputs")
	}
	a.Server.Close()
	for _, p := range []sensor.Provider{a.sensor, a.light} {
		if c, ok := p.(interface{ Close() error }); ok {
			c.Close()
		}
	}
}

func WithCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}
