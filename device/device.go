package device

import (
	"context"
	"errors"
)

// ErrResumeDenied is returned when the output cannot resume without a new
// user interaction. Callers may retry after one.
var ErrResumeDenied = errors.New("device: resume denied")

// ErrClosed is returned by operations on a closed device.
var ErrClosed = errors.New("device: closed")

// Source renders the next block of mono samples into dst. It is called on
// the device's real-time goroutine and must not block.
type Source interface {
	Render(dst []float64)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(dst []float64)

// Render calls f(dst).
func (f SourceFunc) Render(dst []float64) { f(dst) }

// Device is an output sink. Attach installs the source the device pulls
// from; Resume starts or restarts pulling; Suspend pauses it.
type Device interface {
	SampleRate() float64
	Attach(src Source)
	Resume(ctx context.Context) error
	Suspend() error
	Close() error
}
