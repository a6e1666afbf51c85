package layout

import (
	"sync"

	"github.com/pkg/errors"
)

// Capacity is the largest rows*cols a Mapper (and every frame built on
// it) can address.
const Capacity = 1024

var ErrCapacity = errors.New("layout exceeds capacity")

// Transform describes how the LED chain is wired behind the logical grid.
type Transform struct {
	Rows        int  `yaml:"rows" json:"rows"`
	Cols        int  `yaml:"cols" json:"cols"`
	ReverseRows bool `yaml:"reverse_rows" json:"reverseRows"`
	ReverseCols bool `yaml:"reverse_cols" json:"reverseCols"`
	Rotate      bool `yaml:"rotate" json:"rotate"`
	Interleave  bool `yaml:"interleave" json:"interleave"`
	RowOffset   int  `yaml:"row_offset" json:"rowOffset"`
	ColOffset   int  `yaml:"col_offset" json:"colOffset"`
}

type Point struct{ Row, Col int }

// Mapper translates logical (row, col) points into physical addresses.
// Resize must run on the goroutine that renders; the shape accessors may
// be called from anywhere.
type Mapper struct {
	mu sync.RWMutex
	t  Transform
}

func fits(rows, cols int) bool {
	return rows > 0 && cols > 0 && rows*cols <= Capacity
}

func NewMapper(t Transform) (*Mapper, error) {
	if !fits(t.Rows, t.Cols) {
		return nil, errors.Wrapf(ErrCapacity, "%dx%d", t.Rows, t.Cols)
	}
	return &Mapper{t: t}, nil
}

// Resize changes the logical size. Nothing changes when the new size is
// empty or exceeds Capacity.
func (m *Mapper) Resize(rows, cols int) bool {
	if !fits(rows, cols) {
		return false
	}
	m.mu.Lock()
	m.t.Rows, m.t.Cols = rows, cols
	m.mu.Unlock()
	return true
}

func (m *Mapper) Transform() Transform {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t
}

func (m *Mapper) Rows() int { return m.Transform().Rows }
func (m *Mapper) Cols() int { return m.Transform().Cols }

func (m *Mapper) Count() int {
	t := m.Transform()
	return t.Rows * t.Cols
}

// physical returns the wired grid size; rotation swaps the axes.
func (m *Mapper) physical() (rows, cols int) {
	if m.t.Rotate {
		return m.t.Cols, m.t.Rows
	}
	return m.t.Rows, m.t.Cols
}

func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}

// Address maps a logical point to its index in the LED chain, or -1 when
// the point lies outside the grid.
func (m *Mapper) Address(row, col int) int {
	if row < 0 || col < 0 || row >= m.t.Rows || col >= m.t.Cols {
		return -1
	}
	pr, pc := m.physical()
	r, c := row, col
	if m.t.Rotate {
		r, c = c, r
	}
	// serpentine: even physical columns run backwards
	if m.t.Interleave && c%2 == 0 {
		r = pr - 1 - r
	}
	if m.t.ReverseRows {
		r = pr - 1 - r
	}
	if m.t.ReverseCols {
		c = pc - 1 - c
	}
	r = wrap(r+m.t.RowOffset, pr)
	c = wrap(c+m.t.ColOffset, pc)
	return r + c*pr
}

// Point is the inverse of Address.
func (m *Mapper) Point(addr int) (Point, bool) {
	if addr < 0 || addr >= m.Count() {
		return Point{}, false
	}
	pr, pc := m.physical()
	r, c := addr%pr, addr/pr
	r = wrap(r-m.t.RowOffset, pr)
	c = wrap(c-m.t.ColOffset, pc)
	if m.t.ReverseCols {
		c = pc - 1 - c
	}
	if m.t.ReverseRows {
		r = pr - 1 - r
	}
	if m.t.Interleave && c%2 == 0 {
		r = pr - 1 - r
	}
	if m.t.Rotate {
		r, c = c, r
	}
	return Point{Row: r, Col: c}, true
}
