package render

import "github.com/coreman2200/pixelclock/internal/color"

// Mix blends two framebuffers (a,b) into dst using alpha (0..1).
// Channels are rounded half up; no gamma assumed.
func Mix(dst, a, b []color.Color, alpha float64) {
	if alpha <= 0 {
		copy(dst, a)
		return
	}
	if alpha >= 1 {
		copy(dst, b)
		return
	}
	n := len(dst)
	for i := 0; i < n; i++ {
		dst[i] = color.Lerp(a[i], b[i], alpha)
	}
}
