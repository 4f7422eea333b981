package delay

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/interp"
)

// Line is a circular delay line with a single write cursor.
//
// A line built for maxDelay samples holds maxDelay+1 slots so that the
// sample written maxDelay steps ago is still addressable.
type Line[T core.Float] struct {
	buffer   []T
	writePos int
}

// New returns a delay line able to look back maxDelay samples.
func New[T core.Float](maxDelay int) (*Line[T], error) {
	if maxDelay < 0 {
		return nil, fmt.Errorf("delay max delay must be >= 0: %d", maxDelay)
	}
	return &Line[T]{buffer: make([]T, maxDelay+1)}, nil
}

// Len returns the internal buffer size (maxDelay+1).
func (d *Line[T]) Len() int {
	return len(d.buffer)
}

// MaxDelay returns the largest addressable delay in samples.
func (d *Line[T]) MaxDelay() int {
	return len(d.buffer) - 1
}

// Write stores one sample and advances the cursor.
func (d *Line[T]) Write(sample T) {
	d.buffer[d.writePos] = sample
	d.writePos++
	if d.writePos >= len(d.buffer) {
		d.writePos = 0
	}
}

// Read returns the sample written delay steps ago; Read(0) is the most
// recent write. delay is clamped to [0, MaxDelay].
func (d *Line[T]) Read(delay int) T {
	size := len(d.buffer)
	delay = core.ClampInt(delay, 0, size-1)
	readPos := d.writePos - 1 - delay
	if readPos < 0 {
		readPos += size
	}
	return d.buffer[readPos]
}

// ReadInterpolated blends the taps at floor(delay) and floor(delay)+1
// linearly, giving click-free continuously variable delay time.
func (d *Line[T]) ReadInterpolated(delay float64) T {
	maxDelay := float64(len(d.buffer) - 1)
	delay = core.Clamp(delay, 0, maxDelay)

	p := int(delay)
	t := delay - float64(p)
	if t == 0 {
		return d.Read(p)
	}

	x0 := float64(d.Read(p))
	x1 := float64(d.Read(p + 1))
	return T(interp.Linear2(t, x0, x1))
}

// ReadFractional reads with cubic Hermite interpolation.
func (d *Line[T]) ReadFractional(delay float64) T {
	size := len(d.buffer)
	if size < 4 {
		return d.ReadInterpolated(delay)
	}
	if delay < 0 {
		delay = 0
	}
	maxDelay := float64(size - 3)
	if delay > maxDelay {
		delay = maxDelay
	}

	p := int(math.Floor(delay))
	t := delay - float64(p)

	xm1 := float64(d.Read(max(0, p-1)))
	x0 := float64(d.Read(p))
	x1 := float64(d.Read(p + 1))
	x2 := float64(d.Read(p + 2))
	return T(interp.Hermite4(t, xm1, x0, x1, x2))
}

// Reset clears line state.
func (d *Line[T]) Reset() {
	clear(d.buffer)
	d.writePos = 0
}
