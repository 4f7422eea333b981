package monitor

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/window"
)

const (
	// DefaultSize is the analysis window length in samples.
	DefaultSize = 2048

	// FloorDB is the lowest level Spectrum reports.
	FloorDB = -130.0

	eps = 1e-12
)

// Option configures a Tap.
type Option func(*Tap)

// WithSize sets the window length. It must be a power of two in
// [256, 16384].
func WithSize(n int) Option {
	return func(t *Tap) { t.size = n }
}

// WithWindow selects the analysis window used by Spectrum.
func WithWindow(w window.Type) Option {
	return func(t *Tap) { t.winType = w }
}

// Tap keeps the last Size samples that passed through it.
type Tap struct {
	sampleRate float64
	size       int
	winType    window.Type

	mu     sync.Mutex
	ring   []float64
	write  int
	filled int

	peak     atomic.Uint64
	observed atomic.Uint64
	skipped  atomic.Uint64

	// analysis state, guarded by amu
	amu     sync.Mutex
	plan    *algofft.Plan[complex128]
	win     []float64
	winGain float64
	frame   []float64
	in      []complex128
	out     []complex128
	re      []float64
	im      []float64
	mag     []float64
}

// New creates a tap for a signal at sampleRate.
func New(sampleRate float64, opts ...Option) (*Tap, error) {
	if err := core.ValidateSampleRate(sampleRate); err != nil {
		return nil, fmt.Errorf("monitor: %w", err)
	}

	t := &Tap{
		sampleRate: sampleRate,
		size:       DefaultSize,
		winType:    window.TypeHann,
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.size < 256 || t.size > 16384 || t.size&(t.size-1) != 0 {
		return nil, fmt.Errorf("monitor: size %d must be a power of two in [256, 16384]", t.size)
	}

	t.win = window.Generate(t.winType, t.size, window.WithPeriodic())
	if len(t.win) != t.size {
		return nil, fmt.Errorf("monitor: unsupported window %s", t.winType)
	}
	t.winGain = window.CoherentGain(t.win)

	plan, err := algofft.NewPlan64(t.size)
	if err != nil {
		return nil, fmt.Errorf("monitor: fft plan: %w", err)
	}
	t.plan = plan

	bins := t.size/2 + 1
	t.ring = make([]float64, t.size)
	t.frame = make([]float64, t.size)
	t.in = make([]complex128, t.size)
	t.out = make([]complex128, t.size)
	t.re = make([]float64, bins)
	t.im = make([]float64, bins)
	t.mag = make([]float64, bins)

	return t, nil
}

// SampleRate returns the rate the tap was built for.
func (t *Tap) SampleRate() float64 { return t.sampleRate }

// Size returns the window length.
func (t *Tap) Size() int { return t.size }

// BinHz returns the spacing of Spectrum bins.
func (t *Tap) BinHz() float64 { return t.sampleRate / float64(t.size) }

// Observe records block. It is called from the real-time goroutine; if a
// reader holds the window the block is dropped.
func (t *Tap) Observe(block []float64) {
	if len(block) == 0 {
		return
	}

	t.raisePeak(vecmath.MaxAbs(block))

	if !t.mu.TryLock() {
		t.skipped.Add(1)
		return
	}

	src := block
	if len(src) > t.size {
		src = src[len(src)-t.size:]
	}
	n := copy(t.ring[t.write:], src)
	if n < len(src) {
		copy(t.ring, src[n:])
	}
	t.write = (t.write + len(src)) % t.size
	t.filled = min(t.filled+len(src), t.size)

	t.mu.Unlock()

	t.observed.Add(uint64(len(block)))
}

func (t *Tap) raisePeak(v float64) {
	for {
		old := t.peak.Load()
		if v <= math.Float64frombits(old) {
			return
		}
		if t.peak.CompareAndSwap(old, math.Float64bits(v)) {
			return
		}
	}
}

// Snapshot copies the window into dst, oldest sample first, and returns
// it. Positions not yet filled read as zero. dst is grown when its
// capacity is below Size.
func (t *Tap) Snapshot(dst []float64) []float64 {
	if cap(dst) < t.size {
		dst = make([]float64, t.size)
	}
	dst = dst[:t.size]

	t.mu.Lock()
	defer t.mu.Unlock()

	missing := t.size - t.filled
	clear(dst[:missing])

	start := (t.write - t.filled + t.size) % t.size
	out := dst[missing:]
	n := copy(out, t.ring[start:min(start+t.filled, t.size)])
	copy(out[n:], t.ring[:t.filled-n])

	return dst
}

// Peak returns the largest absolute sample observed since the previous
// call.
func (t *Tap) Peak() float64 {
	return math.Float64frombits(t.peak.Swap(0))
}

// Frames returns the number of samples recorded into the window.
func (t *Tap) Frames() uint64 { return t.observed.Load() }

// Skipped returns the number of blocks dropped due to reader contention.
func (t *Tap) Skipped() uint64 { return t.skipped.Load() }

// Spectrum writes the windowed magnitude spectrum of the current window
// in dBFS into dst (Size/2+1 bins, floored at FloorDB) and returns it.
func (t *Tap) Spectrum(dst []float64) ([]float64, error) {
	t.amu.Lock()
	defer t.amu.Unlock()

	t.frame = t.Snapshot(t.frame)
	if err := window.ApplyInPlace(t.frame, t.win); err != nil {
		return nil, err
	}
	for i, v := range t.frame {
		t.in[i] = complex(v, 0)
	}

	if err := t.plan.Forward(t.out, t.in); err != nil {
		return nil, fmt.Errorf("monitor: fft: %w", err)
	}

	bins := len(t.mag)
	for k := range bins {
		t.re[k] = real(t.out[k])
		t.im[k] = imag(t.out[k])
	}
	vecmath.Magnitude(t.mag, t.re, t.im)

	if cap(dst) < bins {
		dst = make([]float64, bins)
	}
	dst = dst[:bins]

	norm := float64(t.size) * math.Max(t.winGain, eps)
	last := bins - 1
	for k, m := range t.mag {
		m /= norm
		if k > 0 && k < last {
			m *= 2
		}
		dst[k] = math.Max(FloorDB, 20*math.Log10(math.Max(eps, m)))
	}

	return dst, nil
}

// Reset clears the window and peak.
func (t *Tap) Reset() {
	t.mu.Lock()
	clear(t.ring)
	t.write = 0
	t.filled = 0
	t.mu.Unlock()

	t.peak.Store(0)
}
