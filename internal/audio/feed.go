package audio

import (
	"context"
	"net"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// PacketSize is the largest amplitude array taken from one datagram.
const PacketSize = 32

// Feed holds the most recent amplitude array. Readers never block on
// writers for longer than a copy.
type Feed struct {
	mu   sync.Mutex
	bins []uint8
	seq  uint64

	stats Stats
}

type Stats struct {
	Incoming uint64 `json:"incoming"`
	Valid    uint64 `json:"valid"`
	Invalid  uint64 `json:"invalid"`
}

// Publish replaces the current array. Empty arrays are counted and
// dropped.
func (f *Feed) Publish(bins []uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats.Incoming++
	if len(bins) == 0 {
		f.stats.Invalid++
		return
	}
	f.stats.Valid++
	// a fresh slice, so arrays already handed out stay intact
	f.bins = append([]uint8(nil), bins...)
	f.seq++
}

// Latest returns the current array and its sequence number. The slice
// must not be modified.
func (f *Feed) Latest() ([]uint8, uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bins, f.seq
}

func (f *Feed) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

// ServeUDP publishes every datagram read from conn, truncated to
// PacketSize, until ctx is done. conn is closed on return.
func (f *Feed) ServeUDP(ctx context.Context, conn net.PacketConn, log zerolog.Logger) error {
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	log.Info().Str("addr", conn.LocalAddr().String()).Msg("visualizer feed listening")
	buf := make([]byte, 1500)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "visualizer feed")
		}
		if n > PacketSize {
			log.Trace().Int("size", n).Str("from", from.String()).Msg("visualizer packet truncated")
			n = PacketSize
		}
		f.Publish(buf[:n])
	}
}
