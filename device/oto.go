package device

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/oto/v2"

	"github.com/cwbudde/algo-rack/dsp/core"
)

const (
	defaultOtoChannels  = 2
	defaultOtoBlockSize = 512
	bytesPerSample      = 4
)

// OtoOption configures an Oto device.
type OtoOption func(*otoConfig)

type otoConfig struct {
	channels  int
	blockSize int
}

// WithChannels sets the interleaved output channel count. The mono signal
// is copied to every channel.
func WithChannels(n int) OtoOption {
	return func(c *otoConfig) {
		if n > 0 {
			c.channels = n
		}
	}
}

// WithBlockSize bounds the frames rendered per Source call.
func WithBlockSize(n int) OtoOption {
	return func(c *otoConfig) {
		if n > 0 {
			c.blockSize = n
		}
	}
}

// Oto plays through the system audio output.
type Oto struct {
	sampleRate float64

	ctx    *oto.Context
	ready  chan struct{}
	player oto.Player
	reader *otoReader

	mu     sync.Mutex
	closed bool
}

// NewOto opens the system output at sampleRate.
func NewOto(sampleRate float64, opts ...OtoOption) (*Oto, error) {
	if err := core.ValidateSampleRate(sampleRate); err != nil {
		return nil, err
	}

	cfg := otoConfig{channels: defaultOtoChannels, blockSize: defaultOtoBlockSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, ready, err := oto.NewContext(int(sampleRate), cfg.channels, oto.FormatFloat32LE)
	if err != nil {
		return nil, fmt.Errorf("device: open oto context: %w", err)
	}

	r := &otoReader{channels: cfg.channels, block: make([]float64, cfg.blockSize)}

	return &Oto{
		sampleRate: sampleRate,
		ctx:        ctx,
		ready:      ready,
		player:     ctx.NewPlayer(r),
		reader:     r,
	}, nil
}

func (o *Oto) SampleRate() float64 { return o.sampleRate }

func (o *Oto) Attach(src Source) {
	if src == nil {
		o.reader.src.Store(nil)
		return
	}
	o.reader.src.Store(&sourceRef{src})
}

// Resume waits for the output to become ready and starts playback. A
// context that ends first, or a backend that refuses to resume, yields
// ErrResumeDenied.
func (o *Oto) Resume(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrClosed
	}

	select {
	case <-o.ready:
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrResumeDenied, ctx.Err())
	}

	if err := o.ctx.Resume(); err != nil {
		return fmt.Errorf("%w: %w", ErrResumeDenied, err)
	}
	o.player.Play()

	return nil
}

func (o *Oto) Suspend() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil
	}
	o.player.Pause()

	return o.ctx.Suspend()
}

func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil
	}
	o.closed = true
	o.reader.src.Store(nil)

	return o.player.Close()
}

type sourceRef struct {
	Source
}

// otoReader renders float32 little-endian interleaved frames on the oto
// playback goroutine.
type otoReader struct {
	channels int
	block    []float64
	src      atomic.Pointer[sourceRef]
}

func (r *otoReader) Read(p []byte) (int, error) {
	frameBytes := r.channels * bytesPerSample
	frames := len(p) / frameBytes
	ref := r.src.Load()

	off := 0
	for frames > 0 {
		n := min(frames, len(r.block))
		block := r.block[:n]
		if ref != nil {
			ref.Render(block)
		} else {
			clear(block)
		}

		for _, v := range block {
			bits := math.Float32bits(float32(core.Clamp(v, -1, 1)))
			for range r.channels {
				binary.LittleEndian.PutUint32(p[off:], bits)
				off += bytesPerSample
			}
		}
		frames -= n
	}

	return off, nil
}
