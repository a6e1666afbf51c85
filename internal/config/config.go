package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/coreman2200/pixelclock/internal/color"
	"github.com/coreman2200/pixelclock/internal/governor"
	"github.com/coreman2200/pixelclock/internal/layout"
	"github.com/coreman2200/pixelclock/internal/render"
	"github.com/coreman2200/pixelclock/internal/render/scenes/fade"
	"github.com/coreman2200/pixelclock/internal/render/scenes/fire"
	"github.com/coreman2200/pixelclock/internal/render/scenes/flash"
	"github.com/coreman2200/pixelclock/internal/render/scenes/gradient"
	"github.com/coreman2200/pixelclock/internal/render/scenes/plasma"
	"github.com/coreman2200/pixelclock/internal/render/scenes/rainbow"
	"github.com/coreman2200/pixelclock/internal/render/scenes/visualizer"
	"github.com/coreman2200/pixelclock/internal/render/scenes/xmas"
	"github.com/coreman2200/pixelclock/internal/sequence"
)

// Display is what the scheduler starts with.
type Display struct {
	Kind           render.Kind   `yaml:"kind"`
	Color          color.Color   `yaml:"color"`
	BlendTime      time.Duration `yaml:"blend_time"` // 0 swaps immediately
	Tick           time.Duration `yaml:"tick"`
	Redraw         time.Duration `yaml:"redraw"`
	FadeLimit      time.Duration `yaml:"fade_limit"`
	AuxBlink       time.Duration `yaml:"aux_blink"` // 0 keeps the indicator solid
	BrightnessStep uint8         `yaml:"brightness_step"`
}

// Scenes holds the parameters of every animation kind.
type Scenes struct {
	Fade       fade.Params       `yaml:"fade"`
	Flash      flash.Params      `yaml:"flash"`
	Rainbow    rainbow.Params    `yaml:"rainbow"`
	Fire       fire.Params       `yaml:"fire"`
	Plasma     plasma.Params     `yaml:"plasma"`
	Gradient   gradient.Params   `yaml:"gradient"`
	Visualizer visualizer.Params `yaml:"visualizer"`
	Xmas       xmas.Params       `yaml:"xmas"`
}

type SPI struct {
	Port    string `yaml:"port"` // spireg name, empty for the first port
	FreqKHz int    `yaml:"freq_khz"`
}

type OPC struct {
	Addr    string `yaml:"addr"`
	Channel uint8  `yaml:"channel"`
}

// Driver selects the outputs. Several outputs are fanned out.
type Driver struct {
	Outputs     []string      `yaml:"outputs"` // sim, spi, screen, opc
	ColorOrder  string        `yaml:"color_order"`
	MinInterval time.Duration `yaml:"min_interval"`
	SPI         SPI           `yaml:"spi,omitempty"`
	OPC         OPC           `yaml:"opc,omitempty"`
}

type Sensor struct {
	Type     string        `yaml:"type"` // none, sysfs, bmx280
	Path     string        `yaml:"path,omitempty"`
	Bus      string        `yaml:"bus,omitempty"`
	Addr     uint16        `yaml:"addr,omitempty"`
	Interval time.Duration `yaml:"interval"`
}

// Light feeds governor.ambient.
type Light struct {
	Type     string        `yaml:"type"` // none, bh1750
	Bus      string        `yaml:"bus,omitempty"`
	Addr     uint16        `yaml:"addr,omitempty"`
	Interval time.Duration `yaml:"interval"`
}

type Audio struct {
	Source     string `yaml:"source"` // none, udp, pcm
	Listen     string `yaml:"listen,omitempty"`
	PCM        string `yaml:"pcm,omitempty"` // path of a raw s16le mono stream
	SampleRate int    `yaml:"sample_rate,omitempty"`
	Block      int    `yaml:"block,omitempty"`
	Bins       int    `yaml:"bins,omitempty"`
}

type HTTP struct {
	Addr          string        `yaml:"addr"`
	FrameInterval time.Duration `yaml:"frame_interval"`
}

type Config struct {
	Layout   layout.Transform  `yaml:"layout"`
	Governor governor.Config   `yaml:"governor"`
	Display  Display           `yaml:"display"`
	Scenes   Scenes            `yaml:"scenes"`
	Driver   Driver            `yaml:"driver"`
	Sensor   Sensor            `yaml:"sensor"`
	Light    Light             `yaml:"light"`
	Audio    Audio             `yaml:"audio"`
	HTTP     HTTP              `yaml:"http"`
	Playlist *sequence.Program `yaml:"playlist,omitempty"`
}

func Default() *Config {
	return &Config{
		Layout:   layout.Transform{Rows: 8, Cols: 32, Interleave: true},
		Governor: governor.DefaultConfig(),
		Display: Display{
			Kind:           render.Solid,
			Color:          color.New(0, 0, 255),
			BlendTime:      time.Second,
			Tick:           5 * time.Millisecond,
			Redraw:         20 * time.Millisecond,
			FadeLimit:      500 * time.Millisecond,
			AuxBlink:       time.Second,
			BrightnessStep: 16,
		},
		Scenes: Scenes{
			Fade:       fade.DefaultParams(),
			Flash:      flash.DefaultParams(),
			Rainbow:    rainbow.DefaultParams(),
			Fire:       fire.DefaultParams(),
			Plasma:     plasma.DefaultParams(),
			Gradient:   gradient.DefaultParams(),
			Visualizer: visualizer.DefaultParams(),
			Xmas:       xmas.DefaultParams(),
		},
		Driver: Driver{
			Outputs:     []string{"sim"},
			ColorOrder:  "GRB",
			MinInterval: 5 * time.Millisecond,
			SPI:         SPI{FreqKHz: 2500},
			OPC:         OPC{Addr: "127.0.0.1:7890"},
		},
		Sensor: Sensor{Type: "none", Path: "/sys/class/thermal/thermal_zone0/temp", Addr: 0x76, Interval: 5 * time.Second},
		Light:  Light{Type: "none", Addr: 0x23, Interval: 500 * time.Millisecond},
		Audio:  Audio{Source: "none", Listen: ":4210", SampleRate: 44100, Block: 1024, Bins: 32},
		HTTP:   HTTP{Addr: ":8080", FrameInterval: 50 * time.Millisecond},
	}
}

// Load reads path over the defaults, so a partial file is fine. The
// result is normalized; what had to be fixed is returned as notes.
func Load(path string) (*Config, []string, error) {
	c := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return c, nil, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return Default(), nil, errors.Wrapf(err, "parse %s", path)
	}
	return c, c.Normalize(), nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	return errors.Wrap(os.WriteFile(path, b, 0644), "write config")
}
