package config

import (
	"bytes"
	"sync"

	"github.com/cnf/structhash"

	"github.com/coreman2200/pixelclock/internal/color"
	"github.com/coreman2200/pixelclock/internal/render"
)

// Settings is the subset of the configuration that changes at runtime
// and is written back on request.
type Settings struct {
	Kind       render.Kind `hash:"name:kind"`
	Color      color.Color `hash:"name:color"`
	Brightness uint8       `hash:"name:brightness"`
}

func (c *Config) Settings() Settings {
	return Settings{Kind: c.Display.Kind, Color: c.Display.Color, Brightness: c.Governor.Brightness}
}

func (c *Config) Apply(s Settings) {
	c.Display.Kind = s.Kind
	c.Display.Color = s.Color
	c.Governor.Brightness = s.Brightness
}

// Persister writes settings to the config file, skipping the write when
// nothing changed since the last save.
type Persister struct {
	Path string

	mu   sync.Mutex
	cfg  *Config
	last []byte
}

func NewPersister(path string, cfg *Config) *Persister {
	return &Persister{Path: path, cfg: cfg, last: structhash.Md5(cfg.Settings(), 1)}
}

// Save reports whether the file was written.
func (p *Persister) Save(s Settings) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sum := structhash.Md5(s, 1)
	if bytes.Equal(sum, p.last) {
		return false, nil
	}
	p.cfg.Apply(s)
	if err := Save(p.Path, p.cfg); err != nil {
		return false, err
	}
	p.last = sum
	return true, nil
}
