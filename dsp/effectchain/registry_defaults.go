package effectchain

import (
	"github.com/cwbudde/algo-rack/dsp/effects"
	"github.com/cwbudde/algo-rack/dsp/effects/dynamics"
	"github.com/cwbudde/algo-rack/dsp/effects/reverb"
	"github.com/cwbudde/algo-rack/dsp/filter/onepole"
)

// Built-in effect type names.
const (
	TypeGain      = "gain"
	TypeSaturator = "saturator"
	TypeLowpass   = "lowpass"
	TypeDelay     = "delay"
	TypeReverb    = "reverb"
	TypeTransient = "transient"
)

// DefaultRegistry returns a Registry pre-populated with all built-in effect runtimes.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.MustRegister(TypeGain, func(_ Context) (Runtime, error) {
		return &gainRuntime{gain: 1}, nil
	})
	r.MustRegister(TypeSaturator, func(_ Context) (Runtime, error) {
		return &saturatorRuntime{fx: effects.NewSaturator()}, nil
	})
	r.MustRegister(TypeLowpass, func(ctx Context) (Runtime, error) {
		fx, err := onepole.New(ctx.SampleRate, ctx.SampleRate*0.49)
		if err != nil {
			return nil, err
		}

		return &lowpassRuntime{fx: fx}, nil
	})
	r.MustRegister(TypeDelay, func(ctx Context) (Runtime, error) {
		fx, err := effects.NewFilteredDelay(ctx.SampleRate, maxStageDelaySeconds)
		if err != nil {
			return nil, err
		}

		return &delayRuntime{fx: fx, mix: newMixer(ctx)}, nil
	})
	r.MustRegister(TypeReverb, func(ctx Context) (Runtime, error) {
		fx, err := reverb.NewNetwork(ctx.SampleRate)
		if err != nil {
			return nil, err
		}

		return &reverbRuntime{fx: fx, mix: newMixer(ctx)}, nil
	})
	r.MustRegister(TypeTransient, func(ctx Context) (Runtime, error) {
		fx, err := dynamics.NewTransientShaper(ctx.SampleRate)
		if err != nil {
			return nil, err
		}

		return &transientRuntime{fx: fx}, nil
	})

	return r
}
