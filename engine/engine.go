package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cwbudde/algo-rack/device"
	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/host"
	"github.com/cwbudde/algo-rack/internal/graph"
	"github.com/cwbudde/algo-rack/monitor"
)

// Engine is the graph manager. Construct with New, then call Init once
// before any transport call.
type Engine struct {
	opts    options
	logger  *slog.Logger
	metrics *metrics

	mu          sync.Mutex
	initialized bool
	state       State
	host        *host.Host
	dev         device.Device
	tap         *monitor.Tap
	renderer    *graph.Renderer
	sample      []float64
	edges       graph.Edges
	unit        host.Unit
	source      *graph.Sampler
	notes       *noteTimer
}

// Status is a point-in-time view of the engine.
type Status struct {
	State    State              `json:"state"`
	Unit     string             `json:"unit,omitempty"`
	UnitType host.UnitType      `json:"unit_type,omitempty"`
	Edges    []graph.Edge       `json:"edges"`
	Params   map[string]float64 `json:"params,omitempty"`
	Clock    int64              `json:"clock"`
}

// New creates an uninitialized engine.
func New(opts ...Option) (*Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if err := core.ValidateSampleRate(o.sampleRate); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	m, err := newMetrics(o.meter)
	if err != nil {
		return nil, fmt.Errorf("engine: metrics: %w", err)
	}

	return &Engine{
		opts:    o,
		logger:  o.logger.With(slog.String("component", "engine")),
		metrics: m,
	}, nil
}

// Init decodes the sample, prepares the unit host and tap, and opens the
// output device. It is idempotent; later calls return the same tap.
func (e *Engine) Init(ctx context.Context) (*monitor.Tap, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return e.tap, nil
	}

	sr := e.opts.sampleRate

	sample, err := DecodeSample(e.opts.sample, sr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}

	tap, err := monitor.New(sr, monitor.WithSize(e.opts.tapSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}

	h, err := host.New(ctx, sr,
		host.WithLogger(e.opts.logger),
		host.WithMaxBlockSize(e.opts.blockSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}

	dev, err := e.opts.openDevice(sr, e.opts.blockSize)
	if err != nil {
		_ = h.Close(ctx)
		return nil, fmt.Errorf("%w: open device: %w", ErrInitialization, err)
	}

	renderer := graph.NewRenderer(e.opts.blockSize, tap)
	dev.Attach(renderer)

	e.sample = sample
	e.tap = tap
	e.host = h
	e.dev = dev
	e.renderer = renderer
	e.state = Stopped
	e.initialized = true

	e.logger.Info("engine initialized",
		slog.Float64("sample_rate", sr),
		slog.Int("block_size", e.opts.blockSize),
		slog.Int("sample_frames", len(sample)))

	return tap, nil
}

// ConnectUnit replaces the hosted unit with one built from d. It does not
// start playback; an effect connected while the sample source plays is
// switched in immediately. On failure the graph continues without a unit
// and the error wraps ErrUnitInstantiation.
func (e *Engine) ConnectUnit(ctx context.Context, d *host.Descriptor) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return ErrNotInitialized
	}

	return e.connectLocked(ctx, d)
}

func (e *Engine) connectLocked(ctx context.Context, d *host.Descriptor) error {
	if err := e.releaseUnitLocked(ctx); err != nil {
		return err
	}

	runtime := "unknown"
	if d != nil {
		runtime = string(d.RuntimeOrDefault())
	}

	u, err := e.host.Instantiate(ctx, d)
	e.metrics.unitLoad(runtime, err)
	if err != nil {
		e.logger.Warn("unit not connected", slog.String("error", err.Error()))
		return fmt.Errorf("engine: connect: %w", err)
	}

	e.unit = u
	e.logger.Info("unit connected",
		slog.String("unit", u.Descriptor().Name),
		slog.String("type", string(u.Descriptor().Type)))

	if _, inst := u.(host.Instrument); !inst && e.state == PlayingPassthrough && e.source != nil {
		return e.transitionLocked(ctx, PlayingProcessed)
	}

	return nil
}

// DisconnectUnit destroys the hosted unit. A processed graph falls back to
// passthrough: an effect's sample source keeps its position, a driven
// instrument is replaced by the looping sample source.
func (e *Engine) DisconnectUnit(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return ErrNotInitialized
	}

	return e.releaseUnitLocked(ctx)
}

func (e *Engine) releaseUnitLocked(ctx context.Context) error {
	if e.unit == nil {
		return nil
	}

	old := e.unit
	driving := e.notes != nil
	e.stopNotesLocked()

	if inst, ok := old.(host.Instrument); ok {
		inst.StopAll(e.renderer.Clock())
	}

	e.unit = nil

	next := e.state
	if e.state == PlayingProcessed {
		next = PlayingPassthrough
		if driving || e.source == nil {
			if err := e.newSourceLocked(); err != nil {
				return err
			}
		}
	}

	// The transition publishes a routing without the unit and waits for
	// the renderer to stop using it before the unit is closed.
	err := e.transitionLocked(ctx, next)
	if cerr := old.Close(ctx); cerr != nil {
		e.logger.Warn("unit close failed", slog.String("error", cerr.Error()))
	}

	e.logger.Info("unit disconnected", slog.String("unit", old.Descriptor().Name))

	return err
}

// Play starts playback. When d is non-nil and differs from the hosted
// descriptor it is connected first; a failed connection is returned
// (wrapping ErrUnitInstantiation) but playback still starts without a
// unit. Previous playback is stopped before the device is resumed, so a
// refused resume returns ErrResumeDenied with the engine Stopped.
func (e *Engine) Play(ctx context.Context, d *host.Descriptor) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return ErrNotInitialized
	}

	var loadErr error
	if d != nil && (e.unit == nil || !e.unit.Descriptor().Equal(d)) {
		loadErr = e.connectLocked(ctx, d)
	}

	e.stopNotesLocked()
	if inst, ok := e.unit.(host.Instrument); ok {
		inst.StopAll(e.renderer.Clock())
	}
	e.source = nil

	if err := e.dev.Resume(ctx); err != nil {
		return errors.Join(loadErr, e.resumeFailedLocked(ctx, err))
	}

	if inst, ok := e.unit.(host.Instrument); ok {
		if err := e.transitionLocked(ctx, PlayingProcessed); err != nil {
			return errors.Join(loadErr, err)
		}
		e.notes = startNoteTimer(noteTimerConfig{
			target:   inst,
			ticker:   e.opts.newTicker(noteInterval),
			start:    e.renderer.Clock(),
			interval: int64(noteInterval.Seconds()*e.opts.sampleRate + 0.5),
			rng:      e.opts.rng,
			onNote:   e.noteHook,
		})
		return loadErr
	}

	if err := e.newSourceLocked(); err != nil {
		return errors.Join(loadErr, err)
	}

	next := PlayingPassthrough
	if e.unit != nil {
		next = PlayingProcessed
	}
	if err := e.transitionLocked(ctx, next); err != nil {
		return errors.Join(loadErr, err)
	}

	return loadErr
}

// resumeFailedLocked silences the graph after a failed resume. Errors
// other than a closed device are reported as ErrResumeDenied.
func (e *Engine) resumeFailedLocked(ctx context.Context, err error) error {
	if terr := e.transitionLocked(ctx, Stopped); terr != nil {
		err = errors.Join(err, terr)
	}
	if errors.Is(err, device.ErrClosed) {
		e.logger.Warn("device resume failed", slog.String("error", err.Error()))
		return err
	}

	e.metrics.resumeDenied.Add(ctx, 1)
	e.logger.Warn("device resume denied", slog.String("error", err.Error()))
	if !errors.Is(err, ErrResumeDenied) {
		err = fmt.Errorf("%w: %w", ErrResumeDenied, err)
	}
	return err
}

func (e *Engine) noteHook(freqHz float64, at int64) {
	e.metrics.notes.Add(context.Background(), 1)
	if e.opts.onNote != nil {
		e.opts.onNote(freqHz, at)
	}
}

// Stop cancels the note timer, releases instrument voices, discards the
// sample source and silences the graph.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return ErrNotInitialized
	}

	e.stopNotesLocked()
	if inst, ok := e.unit.(host.Instrument); ok {
		inst.StopAll(e.renderer.Clock())
	}
	e.source = nil

	return e.transitionLocked(ctx, Stopped)
}

// SetParam forwards a parameter update to the hosted unit. Without a unit
// it does nothing; unknown ids are logged and counted, never returned.
func (e *Engine) SetParam(id string, value float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.unit == nil {
		return
	}
	if !e.unit.SetParam(id, value) {
		e.metrics.paramMisses.Add(context.Background(), 1)
		e.logger.Debug("parameter routing miss",
			slog.String("unit", e.unit.Descriptor().Name),
			slog.String("param", id))
	}
}

// State returns the transport state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Edges returns the connections of the current graph.
func (e *Engine) Edges() []graph.Edge {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.edges.List()
}

// Unit returns the hosted unit's descriptor, or nil.
func (e *Engine) Unit() *host.Descriptor {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.unit == nil {
		return nil
	}
	return e.unit.Descriptor()
}

// Tap returns the monitoring tap, or nil before Init.
func (e *Engine) Tap() *monitor.Tap {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tap
}

// Sample returns the decoded loop. The slice must not be modified.
func (e *Engine) Sample() []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sample
}

// SourcePosition returns the loop position of the active sample source.
func (e *Engine) SourcePosition() (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.source == nil {
		return 0, false
	}
	return e.source.Position(), true
}

// Status returns a snapshot of the engine.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := Status{State: e.state, Edges: e.edges.List()}
	if e.renderer != nil {
		st.Clock = e.renderer.Clock()
	}
	if e.unit != nil {
		d := e.unit.Descriptor()
		st.Unit = d.Name
		st.UnitType = d.Type
		st.Params = make(map[string]float64, len(d.Parameters))
		for _, p := range d.Parameters {
			if v, ok := e.unit.Value(p.ID); ok {
				st.Params[p.ID] = v
			}
		}
	}
	return st
}

// Teardown stops playback and closes the unit, host and device. The
// engine may be initialized again afterwards.
func (e *Engine) Teardown(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return nil
	}

	e.stopNotesLocked()
	e.source = nil
	old := e.unit
	e.unit = nil

	var errs []error
	errs = append(errs, e.transitionLocked(ctx, Stopped))
	if old != nil {
		errs = append(errs, old.Close(ctx))
	}
	errs = append(errs, e.dev.Suspend(), e.dev.Close(), e.host.Close(ctx))

	e.initialized = false
	e.logger.Info("engine torn down")

	return errors.Join(errs...)
}

func (e *Engine) stopNotesLocked() {
	e.notes.Stop()
	e.notes = nil
}

func (e *Engine) newSourceLocked() error {
	src, err := graph.NewSampler(e.sample)
	if err != nil {
		return err
	}
	e.source = src
	return nil
}

func (e *Engine) transitionLocked(ctx context.Context, next State) error {
	prev := e.state
	e.state = next

	if err := e.rebuildLocked(ctx); err != nil {
		return fmt.Errorf("engine: rebuild %s: %w", next, err)
	}

	if prev != next {
		e.metrics.transition(prev, next)
		e.logger.Debug("state transition",
			slog.String("from", prev.String()),
			slog.String("to", next.String()))
	}

	return nil
}

// rebuildLocked disconnects every edge, connects exactly those of the
// current state and publishes the compiled routing.
func (e *Engine) rebuildLocked(ctx context.Context) error {
	e.edges.DisconnectAll()
	for _, ed := range e.edgesFor(e.state) {
		if err := e.edges.Connect(ed.From, ed.To); err != nil {
			return err
		}
	}

	rt, err := graph.Compile(e.edges.List(), e.source, e.unit)
	if err != nil {
		return err
	}

	_, err = e.renderer.Publish(context.WithoutCancel(ctx), rt)
	return err
}

func (e *Engine) edgesFor(s State) []graph.Edge {
	switch s {
	case PlayingPassthrough:
		return []graph.Edge{
			{From: graph.NodeSource, To: graph.NodeTap},
			{From: graph.NodeTap, To: graph.NodeSink},
		}
	case PlayingProcessed:
		if e.source == nil {
			return []graph.Edge{
				{From: graph.NodeUnitOut, To: graph.NodeTap},
				{From: graph.NodeTap, To: graph.NodeSink},
			}
		}
		return []graph.Edge{
			{From: graph.NodeSource, To: graph.NodeUnitIn},
			{From: graph.NodeUnitOut, To: graph.NodeTap},
			{From: graph.NodeTap, To: graph.NodeSink},
		}
	default:
		return nil
	}
}
