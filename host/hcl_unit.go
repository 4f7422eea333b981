package host

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cwbudde/algo-rack/dsp/effectchain"
	"github.com/cwbudde/algo-rack/dsp/synth"
	"github.com/cwbudde/algo-vecmath"
)

// hclUpdate is a batch of re-evaluated settings handed to the real-time
// side. Nil fields are unchanged.
type hclUpdate struct {
	stages map[string]effectchain.Params
	voice  *voiceParams
	output *float64
}

func (up *hclUpdate) merge(next *hclUpdate) {
	for id, p := range next.stages {
		if up.stages == nil {
			up.stages = make(map[string]effectchain.Params, len(next.stages))
		}
		up.stages[id] = p
	}
	if next.voice != nil {
		up.voice = next.voice
	}
	if next.output != nil {
		up.output = next.output
	}
}

// hclUnit runs a declarative unit: an optional voice pool feeding a chain
// of built-in stages.
type hclUnit struct {
	desc   *Descriptor
	prog   *hclProgram
	logger *slog.Logger

	// control side
	mu     sync.Mutex
	values map[string]float64

	// real-time side
	chain   *effectchain.Chain
	pool    *synth.Pool
	outGain float64
	events  []synth.Event

	pending mailbox[hclUpdate]
	notes   *noteQueue
}

// hclInstrument adds note input to an hcl unit with a voice pool.
type hclInstrument struct {
	*hclUnit
}

func (h *Host) newHCLUnit(d *Descriptor) (Unit, error) {
	prog, err := compileHCL(d, h.registry)
	if err != nil {
		return nil, err
	}

	u := &hclUnit{
		desc:   cloneDescriptor(d),
		prog:   prog,
		logger: h.logger.With(slog.String("unit", d.Name)),
		values: d.Defaults(),
		chain: effectchain.New(effectchain.Context{
			SampleRate:   h.sampleRate,
			MaxBlockSize: h.maxBlock,
		}, h.registry),
	}

	ctx := evalContext(u.values)

	stages := make([]effectchain.Params, 0, len(prog.stages))
	for _, blk := range prog.stages {
		p, err := evalStage(blk, ctx)
		if err != nil {
			return nil, err
		}
		stages = append(stages, p)
	}
	if err := u.chain.Load(stages); err != nil {
		return nil, err
	}

	u.outGain, err = evalOutputGain(prog.output, ctx)
	if err != nil {
		return nil, err
	}

	if d.Type != TypeInstrument {
		return u, nil
	}

	u.pool, err = synth.NewPool(h.sampleRate)
	if err != nil {
		return nil, err
	}
	v, err := evalVoice(prog.voice, ctx)
	if err != nil {
		return nil, err
	}
	u.applyVoice(v)
	u.notes = newNoteQueue(noteQueueSize)
	u.events = make([]synth.Event, 0, noteQueueSize)

	return hclInstrument{u}, nil
}

func (u *hclUnit) Descriptor() *Descriptor { return u.desc }

func (u *hclUnit) Process(dst, src []float64, start int64) {
	if up := u.pending.Take(); up != nil {
		u.apply(up)
	}

	if u.pool != nil {
		u.events = u.notes.Drain(u.events)
		n := u.pool.Render(dst, start, u.events)
		u.events = u.events[:copy(u.events, u.events[n:])]
	} else {
		n := copy(dst, src)
		clear(dst[n:])
	}

	u.chain.Process(dst)

	if u.outGain != 1 {
		vecmath.ScaleBlockInPlace(dst, u.outGain)
	}
}

func (u *hclUnit) apply(up *hclUpdate) {
	for _, p := range up.stages {
		// Evaluation already checked types; runtimes clamp values.
		_ = u.chain.Configure(p)
	}
	if up.voice != nil && u.pool != nil {
		u.applyVoice(*up.voice)
	}
	if up.output != nil {
		u.outGain = *up.output
	}
}

func (u *hclUnit) applyVoice(v voiceParams) {
	u.pool.SetWaveform(v.waveform)
	u.pool.SetAttack(v.attackMs)
	u.pool.SetDecay(v.decayMs)
	u.pool.SetLevel(v.level)
}

// SetParam re-evaluates the blocks that read id and queues the result.
// Blocks whose evaluation fails keep their previous settings.
func (u *hclUnit) SetParam(id string, value float64) bool {
	spec, ok := u.desc.Param(id)
	if !ok {
		return false
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	u.values[id] = spec.Normalize(value)
	ctx := evalContext(u.values)

	up := &hclUpdate{}
	for _, blk := range u.prog.stages {
		if !blk.dependsOn(id) {
			continue
		}
		p, err := evalStage(blk, ctx)
		if err != nil {
			u.logEvalError(blk, id, err)
			continue
		}
		if up.stages == nil {
			up.stages = make(map[string]effectchain.Params)
		}
		up.stages[blk.name] = p
	}

	if u.pool != nil && u.prog.voice.dependsOn(id) {
		if v, err := evalVoice(u.prog.voice, ctx); err != nil {
			u.logEvalError(u.prog.voice, id, err)
		} else {
			up.voice = &v
		}
	}

	if u.prog.output.dependsOn(id) {
		if g, err := evalOutputGain(u.prog.output, ctx); err != nil {
			u.logEvalError(u.prog.output, id, err)
		} else {
			up.output = &g
		}
	}

	if prev := u.pending.Take(); prev != nil {
		prev.merge(up)
		up = prev
	}
	u.pending.Put(up)

	return true
}

func (u *hclUnit) logEvalError(blk *exprBlock, id string, err error) {
	u.logger.Warn("parameter evaluation failed",
		slog.String("block", blk.name),
		slog.String("param", id),
		slog.String("error", err.Error()))
}

// Value returns the current normalized value of a parameter.
func (u *hclUnit) Value(id string) (float64, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()

	v, ok := u.values[id]
	return v, ok
}

func (u *hclUnit) Close(context.Context) error { return nil }

func (i hclInstrument) Play(freqHz float64, at int64) {
	i.notes.Push(synth.Event{At: at, Kind: synth.NoteOn, FreqHz: freqHz})
}

func (i hclInstrument) StopAll(at int64) {
	i.notes.Push(synth.Event{At: at, Kind: synth.AllOff})
}

func cloneDescriptor(d *Descriptor) *Descriptor {
	c := *d
	c.Parameters = append([]ParameterSpec(nil), d.Parameters...)
	c.SignalChain = append([]string(nil), d.SignalChain...)
	c.Module = append([]byte(nil), d.Module...)
	return &c
}
