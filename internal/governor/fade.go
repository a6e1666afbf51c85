package governor

import (
	"math"
	"time"
)

// Fade is one brightness transition.
type Fade struct {
	From     uint8
	To       uint8
	Start    time.Duration
	Duration time.Duration
}

// clamp01 clamps x in [0,1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// FadeDuration scales fullScale (the time for a 0 to 255 change) by the
// size of the jump. A positive limit caps the result.
func FadeDuration(from, to uint8, fullScale, limit time.Duration) time.Duration {
	if fullScale <= 0 {
		return 0
	}
	delta := int64(to) - int64(from)
	if delta < 0 {
		delta = -delta
	}
	d := time.Duration(int64(fullScale) * delta / 255)
	if limit > 0 && d > limit {
		d = limit
	}
	return d
}

// Value is the brightness at now, rounded half up. It always lies between
// From and To and equals To once the fade has run its course.
func (f Fade) Value(now time.Duration) uint8 {
	if f.Duration <= 0 || now-f.Start >= f.Duration {
		return f.To
	}
	u := clamp01(float64(now-f.Start) / float64(f.Duration))
	v := float64(f.From) + (float64(f.To)-float64(f.From))*u
	return uint8(math.Floor(v + 0.5))
}

func (f Fade) Done(now time.Duration) bool {
	return f.Duration <= 0 || now-f.Start >= f.Duration
}
