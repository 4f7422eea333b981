package host

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/synth"
)

const (
	envModuleName = "env"

	exportProcess  = "process"
	exportSetParam = "set_param"
	exportNoteOn   = "note_on"
	exportAllOff   = "all_off"
)

var (
	f32 = api.ValueTypeF32
	i32 = api.ValueTypeI32
)

// wasmUnit runs a compiled WebAssembly module once per sample.
//
// Module contract:
//
//	process(f32) -> f32        required
//	set_param(i32, f32)        optional; index into Descriptor.Parameters
//	note_on(f32)               required for instruments; frequency in Hz
//	all_off()                  optional
//
// Modules may import env.sample_rate() -> f32.
type wasmUnit struct {
	desc   *Descriptor
	logger *slog.Logger
	ctx    context.Context

	compiled wazero.CompiledModule
	mod      api.Module

	process  api.Function
	setParam api.Function
	noteOn   api.Function
	allOff   api.Function

	// real-time side
	stack  []uint64
	events []synth.Event

	// written by SetParam, flushed at block start
	values   []atomic.Uint64
	dirty    []atomic.Bool
	anyDirty atomic.Bool

	notes   *noteQueue
	failure atomic.Pointer[error]

	closeOnce sync.Once
	closeErr  error
}

// wasmInstrument adds note input to a wasm unit that exports note_on.
type wasmInstrument struct {
	*wasmUnit
}

func (h *Host) newWasmUnit(ctx context.Context, d *Descriptor) (Unit, error) {
	bin := d.Module
	if len(bin) == 0 {
		var err error
		bin, err = base64.StdEncoding.DecodeString(strings.TrimSpace(d.Code))
		if err != nil {
			return nil, fmt.Errorf("decode module: %w", err)
		}
	}

	compiled, err := h.wasm.CompileModule(ctx, bin)
	if err != nil {
		return nil, fmt.Errorf("compile module: %w", err)
	}

	name := fmt.Sprintf("unit-%d", h.seq.Add(1))
	mod, err := h.wasm.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, fmt.Errorf("instantiate module: %w", err)
	}

	u := &wasmUnit{
		desc:     cloneDescriptor(d),
		logger:   h.logger.With(slog.String("unit", d.Name), slog.String("module", name)),
		ctx:      context.WithoutCancel(ctx),
		compiled: compiled,
		mod:      mod,
		stack:    make([]uint64, 2),
		values:   make([]atomic.Uint64, len(d.Parameters)),
		dirty:    make([]atomic.Bool, len(d.Parameters)),
	}

	if err := u.bindExports(d.Type); err != nil {
		_ = u.Close(ctx)
		return nil, err
	}

	for i, p := range d.Parameters {
		u.values[i].Store(math.Float64bits(p.Normalize(p.Default)))
	}
	if err := u.flushAll(); err != nil {
		_ = u.Close(ctx)
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if d.Type != TypeInstrument {
		return u, nil
	}

	u.notes = newNoteQueue(noteQueueSize)
	u.events = make([]synth.Event, 0, noteQueueSize)

	return wasmInstrument{u}, nil
}

func (u *wasmUnit) bindExports(typ UnitType) error {
	var err error

	u.process, err = exportedFunc(u.mod, exportProcess, []api.ValueType{f32}, []api.ValueType{f32})
	if err != nil {
		return err
	}
	if u.process == nil {
		return fmt.Errorf("module does not export %q", exportProcess)
	}

	if u.setParam, err = exportedFunc(u.mod, exportSetParam, []api.ValueType{i32, f32}, nil); err != nil {
		return err
	}
	if u.noteOn, err = exportedFunc(u.mod, exportNoteOn, []api.ValueType{f32}, nil); err != nil {
		return err
	}
	if u.allOff, err = exportedFunc(u.mod, exportAllOff, nil, nil); err != nil {
		return err
	}

	if typ == TypeInstrument && u.noteOn == nil {
		return fmt.Errorf("instrument module does not export %q", exportNoteOn)
	}

	return nil
}

// exportedFunc returns the named export, nil when absent, or an error when
// its signature differs from the one given.
func exportedFunc(mod api.Module, name string, params, results []api.ValueType) (api.Function, error) {
	fn := mod.ExportedFunction(name)
	if fn == nil {
		return nil, nil
	}

	def := fn.Definition()
	if !slices.Equal(def.ParamTypes(), params) || !slices.Equal(def.ResultTypes(), results) {
		return nil, fmt.Errorf("export %q has signature %s, want %s",
			name, signature(def.ParamTypes(), def.ResultTypes()), signature(params, results))
	}

	return fn, nil
}

func signature(params, results []api.ValueType) string {
	names := func(ts []api.ValueType) string {
		out := make([]string, len(ts))
		for i, t := range ts {
			out[i] = api.ValueTypeName(t)
		}
		return strings.Join(out, ",")
	}
	return "(" + names(params) + ")->(" + names(results) + ")"
}

func (u *wasmUnit) Descriptor() *Descriptor { return u.desc }

func (u *wasmUnit) Process(dst, src []float64, start int64) {
	if u.failure.Load() != nil {
		clear(dst)
		return
	}

	if u.anyDirty.Swap(false) {
		if err := u.flushDirty(); err != nil {
			u.fail(err)
			clear(dst)
			return
		}
	}

	if u.notes != nil {
		u.events = u.notes.Drain(u.events)
	}

	next := 0
	for i := range dst {
		frame := start + int64(i)
		for next < len(u.events) && u.events[next].At <= frame {
			if err := u.applyEvent(u.events[next]); err != nil {
				u.fail(err)
				clear(dst[i:])
				return
			}
			next++
		}

		in := 0.0
		if i < len(src) {
			in = src[i]
		}

		u.stack[0] = api.EncodeF32(float32(in))
		if err := u.process.CallWithStack(u.ctx, u.stack); err != nil {
			u.fail(err)
			clear(dst[i:])
			return
		}

		out := float64(api.DecodeF32(u.stack[0]))
		if !core.IsFinite(out) {
			out = 0
		}
		dst[i] = out
	}

	if next > 0 {
		u.events = u.events[:copy(u.events, u.events[next:])]
	}
}

func (u *wasmUnit) applyEvent(ev synth.Event) error {
	switch ev.Kind {
	case synth.NoteOn:
		u.stack[0] = api.EncodeF32(float32(ev.FreqHz))
		return u.noteOn.CallWithStack(u.ctx, u.stack)
	case synth.AllOff:
		if u.allOff != nil {
			return u.allOff.CallWithStack(u.ctx, u.stack)
		}
	}
	return nil
}

func (u *wasmUnit) flushDirty() error {
	for i := range u.dirty {
		if u.dirty[i].Swap(false) {
			if err := u.callSetParam(i); err != nil {
				return err
			}
		}
	}
	return nil
}

func (u *wasmUnit) flushAll() error {
	for i := range u.values {
		if err := u.callSetParam(i); err != nil {
			return err
		}
	}
	return nil
}

func (u *wasmUnit) callSetParam(i int) error {
	if u.setParam == nil {
		return nil
	}
	u.stack[0] = api.EncodeI32(int32(i))
	u.stack[1] = api.EncodeF32(float32(math.Float64frombits(u.values[i].Load())))
	return u.setParam.CallWithStack(u.ctx, u.stack)
}

func (u *wasmUnit) fail(err error) {
	u.failure.CompareAndSwap(nil, &err)
}

// Err returns the runtime fault that silenced the unit.
func (u *wasmUnit) Err() error {
	if p := u.failure.Load(); p != nil {
		return *p
	}
	return nil
}

func (u *wasmUnit) SetParam(id string, value float64) bool {
	i := u.desc.ParamIndex(id)
	if i < 0 {
		return false
	}

	v := u.desc.Parameters[i].Normalize(value)
	u.values[i].Store(math.Float64bits(v))
	u.dirty[i].Store(true)
	u.anyDirty.Store(true)

	return true
}

// Value returns the current normalized value of a parameter.
func (u *wasmUnit) Value(id string) (float64, bool) {
	i := u.desc.ParamIndex(id)
	if i < 0 {
		return 0, false
	}
	return math.Float64frombits(u.values[i].Load()), true
}

func (u *wasmUnit) Close(ctx context.Context) error {
	u.closeOnce.Do(func() {
		if err := u.Err(); err != nil {
			u.logger.Warn("unit closed after runtime fault", slog.String("error", err.Error()))
		}
		u.closeErr = errors.Join(u.mod.Close(ctx), u.compiled.Close(ctx))
	})
	return u.closeErr
}

func (i wasmInstrument) Play(freqHz float64, at int64) {
	i.notes.Push(synth.Event{At: at, Kind: synth.NoteOn, FreqHz: freqHz})
}

func (i wasmInstrument) StopAll(at int64) {
	i.notes.Push(synth.Event{At: at, Kind: synth.AllOff})
}

// instantiateEnvModule exports the host functions modules may import.
func instantiateEnvModule(ctx context.Context, rt wazero.Runtime, sampleRate float64) error {
	sampleRateFn := api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
		stack[0] = api.EncodeF32(float32(sampleRate))
	})

	_, err := rt.NewHostModuleBuilder(envModuleName).
		NewFunctionBuilder().
		WithGoModuleFunction(sampleRateFn, nil, []api.ValueType{f32}).
		Export("sample_rate").
		Instantiate(ctx)

	return err
}
