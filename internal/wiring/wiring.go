package wiring

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/coreman2200/pixelclock/internal/color"
	"github.com/coreman2200/pixelclock/internal/render"
)

type Kind string

const (
	None       Kind = ""
	IndexSweep Kind = "index_sweep" // one physical address at a time
	RowSweep   Kind = "row_sweep"   // one logical row at a time
	ColSweep   Kind = "col_sweep"   // one logical column at a time
	RGBTest    Kind = "rgb_channels"
)

var kinds = map[Kind]bool{IndexSweep: true, RowSweep: true, ColSweep: true, RGBTest: true}

func Kinds() []Kind {
	out := make([]Kind, 0, len(kinds))
	for k := range kinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !kinds[k] {
		return None, errors.Errorf("unknown wiring test %q", s)
	}
	return k, nil
}

// Runner draws one step of a test pattern per call.
type Runner struct {
	kind Kind
	step int
}

func NewRunner(k Kind) *Runner { return &Runner{kind: k} }

func (r *Runner) Kind() Kind { return r.kind }

// Steps is how many frames the test takes on f.
func (r *Runner) Steps(f *render.Frame) int {
	switch r.kind {
	case IndexSweep:
		return f.Len()
	case RowSweep:
		return f.Rows()
	case ColSweep:
		return f.Cols()
	case RGBTest:
		return 3
	}
	return 0
}

// Step fills f with the next pattern; it returns false once the test is
// complete, leaving f cleared.
func (r *Runner) Step(f *render.Frame) bool {
	f.Clear()
	if r.step >= r.Steps(f) {
		return false
	}
	switch r.kind {
	case IndexSweep:
		f.SetAddress(r.step, color.White)
	case RowSweep:
		for c := 0; c < f.Cols(); c++ {
			f.Set(r.step, c, color.New(0, 255, 255))
		}
	case ColSweep:
		for row := 0; row < f.Rows(); row++ {
			f.Set(row, r.step, color.New(255, 0, 255))
		}
	case RGBTest:
		f.Fill([]color.Color{color.Red, color.Green, color.Blue}[r.step])
	}
	r.step++
	return true
}
