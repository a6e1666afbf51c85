package audio

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"github.com/pkg/errors"
)

// Analyzer turns blocks of PCM samples into log spaced amplitude bins.
type Analyzer struct {
	SampleRate int
	Bins       int
	MinHz      float64
	MaxHz      float64
	FloorDB    float64 // level shown as 0, full scale is 0 dB
}

func NewAnalyzer(sampleRate, bins int) *Analyzer {
	return &Analyzer{SampleRate: sampleRate, Bins: bins, MinHz: 40, MaxHz: 16000, FloorDB: -60}
}

// Edges returns Bins+1 band edges in Hz, spaced logarithmically.
func (a *Analyzer) Edges() []float64 {
	hi := math.Min(a.MaxHz, float64(a.SampleRate)/2)
	lo := math.Max(a.MinHz, 1)
	edges := make([]float64, a.Bins+1)
	ratio := math.Pow(hi/lo, 1/float64(a.Bins))
	f := lo
	for i := range edges {
		edges[i] = f
		f *= ratio
	}
	edges[a.Bins] = hi
	return edges
}

// Analyze windows samples (-1..1), runs an FFT and maps the peak of each
// band to 0..255 on a dB scale.
func (a *Analyzer) Analyze(samples []float64) []uint8 {
	n := len(samples)
	out := make([]uint8, a.Bins)
	if n < 2 || a.Bins <= 0 {
		return out
	}
	x := append([]float64(nil), samples...)
	window.Apply(x, window.Hann)
	spectrum := fft.FFTReal(x)

	hz := float64(a.SampleRate) / float64(n)
	// a full scale sine peaks at n/4 after the Hann window
	ref := float64(n) / 4
	edges := a.Edges()
	for b := 0; b < a.Bins; b++ {
		k0 := int(math.Floor(edges[b] / hz))
		k1 := int(math.Ceil(edges[b+1] / hz))
		k0 = max(k0, 1)
		k1 = min(k1, n/2)
		peak := 0.0
		for k := k0; k <= k1; k++ {
			peak = math.Max(peak, cmplx.Abs(spectrum[k]))
		}
		out[b] = a.level(peak / ref)
	}
	return out
}

func (a *Analyzer) level(mag float64) uint8 {
	if mag <= 0 || a.FloorDB >= 0 {
		return 0
	}
	db := 20 * math.Log10(mag)
	u := (db - a.FloorDB) / -a.FloorDB
	if u <= 0 {
		return 0
	}
	if u >= 1 {
		return 255
	}
	return uint8(math.Round(u * 255))
}

// Run reads mono signed 16 bit little endian PCM from r in blocks of
// block samples and publishes each analysis to feed. It returns when r
// fails or ctx is done. A reader that is also an io.Closer is closed once
// ctx ends so a stalled FIFO does not hold Run.
func (a *Analyzer) Run(ctx context.Context, r io.Reader, block int, feed *Feed) error {
	if c, ok := r.(io.Closer); ok {
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			select {
			case <-ctx.Done():
				_ = c.Close()
			case <-stop:
			}
		}()
	}
	raw := make([]int16, block)
	samples := make([]float64, block)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := binary.Read(r, binary.LittleEndian, raw); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil
			}
			return errors.Wrap(err, "read pcm")
		}
		for i, s := range raw {
			samples[i] = float64(s) / 32768
		}
		feed.Publish(a.Analyze(samples))
	}
}
