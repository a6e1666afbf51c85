package sequence

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Player walks a Program and drives the scheduler through Hooks. It is
// safe for concurrent use.
type Player struct {
	mu    sync.Mutex
	state PlayerState
	prog  Program
	hooks Hooks

	idx   int           // current clip
	local time.Duration // position within the current clip

	lastLevel int // last brightness sent, -1 when none
}

func NewPlayer(h Hooks) *Player {
	return &Player{state: Idle, hooks: h, lastLevel: -1}
}

// Load replaces the program and rewinds to Idle.
func (p *Player) Load(prog Program) error {
	if len(prog.Clips) == 0 {
		return errors.New("program has no clips")
	}
	for i := range prog.Clips {
		c := &prog.Clips[i]
		if c.Duration <= 0 {
			return errors.Errorf("clip %d (%s): duration must be positive", i, c.Name)
		}
		if c.Brightness != nil {
			c.Brightness.Sort()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prog = prog
	p.state = Idle
	p.idx, p.local = 0, 0
	p.lastLevel = -1
	return nil
}

func (p *Player) State() PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Current returns the active clip index and the time spent in it.
func (p *Player) Current() (int, time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idx, p.local
}

// Start moves to Running and applies the current clip.
func (p *Player) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Running || len(p.prog.Clips) == 0 {
		return
	}
	p.state = Running
	p.enter()
}

func (p *Player) Pause() {
	p.mu.Lock()
	if p.state == Running {
		p.state = Paused
	}
	p.mu.Unlock()
}

func (p *Player) Resume() {
	p.mu.Lock()
	if p.state == Paused {
		p.state = Running
	}
	p.mu.Unlock()
}

// Stop rewinds to the first clip.
func (p *Player) Stop() {
	p.mu.Lock()
	p.state = Idle
	p.idx, p.local = 0, 0
	p.lastLevel = -1
	p.mu.Unlock()
}

// Skip jumps to the next clip, wrapping when the program loops.
func (p *Player) Skip() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Running {
		return
	}
	p.local = 0
	p.advance()
}

// Tick advances playback by dt.
func (p *Player) Tick(dt time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Running || dt <= 0 {
		return
	}
	p.local += dt
	// a long dt may cross several short clips
	for p.state == Running && p.local >= p.prog.Clips[p.idx].Duration {
		p.local -= p.prog.Clips[p.idx].Duration
		p.advance()
	}
	if p.state == Running {
		p.level()
	}
}

func (p *Player) enter() {
	c := p.prog.Clips[p.idx]
	p.lastLevel = -1
	if c.Color != nil && p.hooks.SetColor != nil {
		p.hooks.SetColor(*c.Color)
	}
	if p.hooks.SetAnimation != nil {
		p.hooks.SetAnimation(c.Kind)
	}
	p.level()
}

// level pushes the envelope value when it changed since the last call.
func (p *Player) level() {
	c := p.prog.Clips[p.idx]
	if c.Brightness == nil || p.hooks.SetBrightness == nil {
		return
	}
	v := c.Brightness.Level(p.local)
	if int(v) == p.lastLevel {
		return
	}
	p.lastLevel = int(v)
	p.hooks.SetBrightness(v)
}

func (p *Player) advance() {
	next := p.idx + 1
	if next >= len(p.prog.Clips) {
		if !p.prog.Loop {
			p.state = Idle
			p.local = 0
			return
		}
		next = 0
	}
	p.idx = next
	p.enter()
}
