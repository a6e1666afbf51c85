package governor

import (
	"fmt"
	"math"
)

// MinThermalFactor is the de-rate applied at the top of the reduce band.
const MinThermalFactor = 0.25

type ThermalLimits struct {
	ReduceMin float64 `yaml:"reduce_min"`
	ReduceMax float64 `yaml:"reduce_max"`
	Max       float64 `yaml:"max"`
}

func DefaultThermalLimits() ThermalLimits {
	return ThermalLimits{ReduceMin: 55, ReduceMax: 70, Max: 75}
}

// Thermal tracks the last good temperature and the over-temperature lock.
// The lock only clears through Reset.
type Thermal struct {
	Limits ThermalLimits

	last     float64
	valid    bool
	locked   bool
	lockTemp float64
}

func NewThermal(l ThermalLimits) *Thermal {
	return &Thermal{Limits: l}
}

// Sample records a reading. Zero, NaN and infinite readings are dropped.
// It reports true when this sample engaged the lock.
func (t *Thermal) Sample(v float64) bool {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	t.last = v
	t.valid = true
	if !t.locked && t.Limits.Max > 0 && v > t.Limits.Max {
		t.locked = true
		t.lockTemp = v
		return true
	}
	return false
}

func (t *Thermal) Last() (float64, bool) { return t.last, t.valid }
func (t *Thermal) Locked() bool          { return t.locked }

func (t *Thermal) Reset() {
	t.locked = false
	t.lockTemp = 0
}

// Factor is 0 while locked, otherwise 1 below ReduceMin falling linearly to
// MinThermalFactor at ReduceMax. An empty band (ReduceMax <= ReduceMin)
// disables the reduction and leaves only the Max lock.
func (t *Thermal) Factor() float64 {
	if t.locked {
		return 0
	}
	if !t.valid {
		return 1
	}
	lo, hi := t.Limits.ReduceMin, t.Limits.ReduceMax
	switch {
	case hi <= lo, t.last <= lo:
		return 1
	case t.last >= hi:
		return MinThermalFactor
	}
	u := (t.last - lo) / (hi - lo)
	return 1 - u*(1-MinThermalFactor)
}

// Summary describes the lock for operators.
func (t *Thermal) Summary() string {
	if !t.locked {
		return ""
	}
	return fmt.Sprintf("over temperature: %.1f°C exceeded %.1f°C, display blanked until reset", t.lockTemp, t.Limits.Max)
}
