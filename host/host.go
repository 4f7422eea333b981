package host

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/effectchain"
	"github.com/tetratelabs/wazero"
)

// Host owns the loaders units are built with.
type Host struct {
	sampleRate float64
	maxBlock   int
	logger     *slog.Logger
	registry   *effectchain.Registry

	mu     sync.Mutex
	wasm   wazero.Runtime
	closed bool
	seq    atomic.Uint64
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Host) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithMaxBlockSize bounds the block length passed to Unit.Process.
func WithMaxBlockSize(n int) Option {
	return func(h *Host) {
		if n > 0 {
			h.maxBlock = n
		}
	}
}

// WithRegistry replaces the stage registry used by declarative units.
func WithRegistry(r *effectchain.Registry) Option {
	return func(h *Host) {
		if r != nil {
			h.registry = r
		}
	}
}

// New creates a host running units at sampleRate.
func New(ctx context.Context, sampleRate float64, opts ...Option) (*Host, error) {
	if err := core.ValidateSampleRate(sampleRate); err != nil {
		return nil, fmt.Errorf("host: %w", err)
	}

	h := &Host{
		sampleRate: sampleRate,
		maxBlock:   effectchain.DefaultMaxBlockSize,
		logger:     slog.Default(),
		registry:   effectchain.DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(h)
	}

	rt := wazero.NewRuntime(ctx)
	if err := instantiateEnvModule(ctx, rt, sampleRate); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("host: instantiate env module: %w", err)
	}
	h.wasm = rt

	return h, nil
}

// SampleRate returns the engine rate units run at.
func (h *Host) SampleRate() float64 { return h.sampleRate }

// MaxBlockSize returns the largest block units accept.
func (h *Host) MaxBlockSize() int { return h.maxBlock }

// Instantiate validates d and builds a unit for it. Every failure,
// including a panic inside a loader, wraps ErrInstantiation.
func (h *Host) Instantiate(ctx context.Context, d *Descriptor) (u Unit, err error) {
	defer func() {
		if r := recover(); r != nil {
			u = nil
			err = fmt.Errorf("%w: %s: panic: %v", ErrInstantiation, descName(d), r)
		}
	}()

	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInstantiation, err)
	}

	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("%w: %w", ErrInstantiation, ErrClosed)
	}

	switch d.RuntimeOrDefault() {
	case RuntimeWasm:
		u, err = h.newWasmUnit(ctx, d)
	default:
		u, err = h.newHCLUnit(d)
	}
	if err != nil {
		h.logger.Warn("unit instantiation failed",
			slog.String("unit", d.Name),
			slog.String("runtime", string(d.RuntimeOrDefault())),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %s: %w", ErrInstantiation, d.Name, err)
	}

	h.logger.Debug("unit instantiated",
		slog.String("unit", d.Name),
		slog.String("type", string(d.Type)),
		slog.String("runtime", string(d.RuntimeOrDefault())),
		slog.Int("parameters", len(d.Parameters)))

	return u, nil
}

// Close releases loader resources. Units created by the host must be
// closed first.
func (h *Host) Close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	if h.wasm != nil {
		if err := h.wasm.Close(ctx); err != nil {
			return fmt.Errorf("host: close wasm runtime: %w", err)
		}
	}

	return nil
}

func descName(d *Descriptor) string {
	if d == nil {
		return "<nil>"
	}
	return d.Name
}
