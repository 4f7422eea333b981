package graph

import (
	"errors"
	"sync/atomic"
)

// Sampler loops an immutable buffer. Read runs on the real-time side;
// Position may be read from anywhere.
type Sampler struct {
	buf []float64
	pos atomic.Int64
}

// NewSampler loops buf, which must not be modified afterwards.
func NewSampler(buf []float64) (*Sampler, error) {
	if len(buf) == 0 {
		return nil, errors.New("graph: empty sample buffer")
	}
	return &Sampler{buf: buf}, nil
}

// Read fills dst with the next samples, wrapping at the end of the loop.
func (s *Sampler) Read(dst []float64) {
	pos := int(s.pos.Load())
	for off := 0; off < len(dst); {
		n := copy(dst[off:], s.buf[pos:])
		off += n
		pos += n
		if pos == len(s.buf) {
			pos = 0
		}
	}
	s.pos.Store(int64(pos))
}

// Position returns the index of the next sample Read will produce.
func (s *Sampler) Position() int { return int(s.pos.Load()) }

// Len returns the loop length in samples.
func (s *Sampler) Len() int { return len(s.buf) }
