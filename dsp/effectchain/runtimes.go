package effectchain

import (
	"fmt"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/effects"
	"github.com/cwbudde/algo-rack/dsp/effects/dynamics"
	"github.com/cwbudde/algo-rack/dsp/effects/reverb"
	"github.com/cwbudde/algo-rack/dsp/filter/onepole"
	"github.com/cwbudde/algo-vecmath"
)

const maxStageDelaySeconds = 2.0

// mixer blends a dry copy back under a wet signal.
type mixer struct {
	mix float64
	dry []float64
}

func newMixer(ctx Context) mixer {
	return mixer{mix: 1, dry: make([]float64, ctx.maxBlock())}
}

// capture copies the dry signal before processing. Blocks longer than the
// scratch buffer are mixed on the prefix only.
func (m *mixer) capture(block []float64) {
	if m.mix < 1 {
		copy(m.dry, block)
	}
}

func (m *mixer) blend(block []float64) {
	if m.mix >= 1 {
		return
	}

	n := min(len(block), len(m.dry))
	vecmath.ScaleBlockInPlace(block[:n], m.mix)
	vecmath.ScaleBlockInPlace(m.dry[:n], 1-m.mix)
	vecmath.AddBlockInPlace(block[:n], m.dry[:n])
}

type gainRuntime struct {
	gain float64
}

func (r *gainRuntime) Configure(_ Context, p Params) error {
	r.gain = core.DBToLinear(core.Clamp(p.GetNum("gain_db", 0), -120, 24))
	return nil
}

func (r *gainRuntime) Process(block []float64) {
	if r.gain == 1 {
		return
	}
	vecmath.ScaleBlockInPlace(block, r.gain)
}

type saturatorRuntime struct {
	fx *effects.Saturator
}

func (r *saturatorRuntime) Configure(_ Context, p Params) error {
	r.fx.SetDrive(core.Clamp(p.GetNum("drive", 0), 0, 1))
	return nil
}

func (r *saturatorRuntime) Process(block []float64) {
	r.fx.ProcessInPlace(block)
}

type lowpassRuntime struct {
	fx *onepole.Filter
}

func (r *lowpassRuntime) Configure(ctx Context, p Params) error {
	cutoff := core.Clamp(p.GetNum("cutoff_hz", 8000), 10, ctx.SampleRate*0.49)
	if err := r.fx.SetCutoff(cutoff); err != nil {
		return fmt.Errorf("effectchain: set lowpass cutoff: %w", err)
	}

	return nil
}

func (r *lowpassRuntime) Process(block []float64) {
	r.fx.ProcessInPlace(block)
}

func (r *lowpassRuntime) Reset() { r.fx.Reset() }

type delayRuntime struct {
	fx  *effects.FilteredDelay
	mix mixer
}

func (r *delayRuntime) Configure(ctx Context, p Params) error {
	err := r.fx.SetTime(core.Clamp(p.GetNum("time_ms", 250), 1, maxStageDelaySeconds*1000) / 1000)
	if err != nil {
		return fmt.Errorf("effectchain: set delay time: %w", err)
	}

	err = r.fx.SetFeedback(core.Clamp(p.GetNum("feedback", 0.35), 0, 0.95))
	if err != nil {
		return fmt.Errorf("effectchain: set delay feedback: %w", err)
	}

	err = r.fx.SetCutoff(core.Clamp(p.GetNum("cutoff_hz", 20000), 20, ctx.SampleRate*0.49))
	if err != nil {
		return fmt.Errorf("effectchain: set delay cutoff: %w", err)
	}

	r.mix.mix = core.Clamp(p.GetNum("mix", 0.5), 0, 1)

	return nil
}

func (r *delayRuntime) Process(block []float64) {
	r.mix.capture(block)
	r.fx.ProcessInPlace(block)
	r.mix.blend(block)
}

func (r *delayRuntime) Reset() { r.fx.Reset() }

type reverbRuntime struct {
	fx  *reverb.Network
	mix mixer
}

func (r *reverbRuntime) Configure(_ Context, p Params) error {
	r.fx.SetRoomSize(core.Clamp(p.GetNum("room_size", 0.5), 0, 1))
	r.fx.SetPreDelayMs(core.Clamp(p.GetNum("pre_delay_ms", 0), 0, maxStageDelaySeconds*1000))
	r.mix.mix = core.Clamp(p.GetNum("mix", 0.3), 0, 1)

	return nil
}

func (r *reverbRuntime) Process(block []float64) {
	r.mix.capture(block)
	r.fx.ProcessInPlace(block)
	r.mix.blend(block)
}

func (r *reverbRuntime) Reset() { r.fx.Reset() }

type transientRuntime struct {
	fx *dynamics.TransientShaper
}

func (r *transientRuntime) Configure(_ Context, p Params) error {
	err := r.fx.SetAttackAmount(core.Clamp(p.GetNum("attack", 0), 0, 1))
	if err != nil {
		return fmt.Errorf("effectchain: set transient attack: %w", err)
	}

	err = r.fx.SetSustainAmount(core.Clamp(p.GetNum("sustain", 0), 0, 1))
	if err != nil {
		return fmt.Errorf("effectchain: set transient sustain: %w", err)
	}

	mode := dynamics.ReferenceMatched
	switch ref := p.GetStr("reference", "matched"); ref {
	case "matched":
	case "slow":
		mode = dynamics.ReferenceSlow
	default:
		return fmt.Errorf("effectchain: unknown transient reference %q", ref)
	}

	if mode != r.fx.ReferenceMode() {
		if err := r.fx.SetReferenceMode(mode); err != nil {
			return fmt.Errorf("effectchain: set transient reference: %w", err)
		}
	}

	return nil
}

func (r *transientRuntime) Process(block []float64) {
	r.fx.ProcessInPlace(block)
}

func (r *transientRuntime) Reset() { r.fx.Reset() }
