package device

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-rack/dsp/core"
)

// Manual is a device driven by explicit Pull calls.
type Manual struct {
	sampleRate float64

	mu      sync.Mutex
	src     Source
	running bool
	closed  bool
	deny    bool

	frames  atomic.Uint64
	resumes atomic.Uint64
}

// NewManual creates a pull-driven device at sampleRate.
func NewManual(sampleRate float64) (*Manual, error) {
	if err := core.ValidateSampleRate(sampleRate); err != nil {
		return nil, err
	}
	return &Manual{sampleRate: sampleRate}, nil
}

func (m *Manual) SampleRate() float64 { return m.sampleRate }

func (m *Manual) Attach(src Source) {
	m.mu.Lock()
	m.src = src
	m.mu.Unlock()
}

// DenyResume makes subsequent Resume calls fail with ErrResumeDenied
// until cleared.
func (m *Manual) DenyResume(deny bool) {
	m.mu.Lock()
	m.deny = deny
	m.mu.Unlock()
}

func (m *Manual) Resume(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.deny {
		return ErrResumeDenied
	}
	m.running = true
	m.resumes.Add(1)

	return nil
}

func (m *Manual) Suspend() error {
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
	return nil
}

func (m *Manual) Close() error {
	m.mu.Lock()
	m.closed = true
	m.running = false
	m.src = nil
	m.mu.Unlock()
	return nil
}

// Running reports whether the device is resumed.
func (m *Manual) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Pull renders one block into dst. A suspended or detached device yields
// silence.
func (m *Manual) Pull(dst []float64) {
	m.mu.Lock()
	src, running := m.src, m.running
	m.mu.Unlock()

	if !running || src == nil {
		clear(dst)
		return
	}

	src.Render(dst)
	m.frames.Add(uint64(len(dst)))
}

// Frames returns the number of frames rendered while running.
func (m *Manual) Frames() uint64 { return m.frames.Load() }

// Resumes returns the number of successful Resume calls.
func (m *Manual) Resumes() uint64 { return m.resumes.Load() }
