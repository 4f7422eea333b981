package reverb

import (
	"fmt"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/delay"
)

const (
	networkNumCombs     = 4
	networkNumAllpasses = 2

	// Comb and allpass offsets in seconds. The comb lengths are mutually
	// incommensurate so their echo patterns do not reinforce.
	networkCombTuning1    = 0.0297
	networkCombTuning2    = 0.0371
	networkCombTuning3    = 0.0411
	networkCombTuning4    = 0.0437
	networkAllpassTuning1 = 0.0050
	networkAllpassTuning2 = 0.0017

	networkMaxDelaySeconds = 2.0

	networkMinFeedback     = 0.5
	networkFeedbackRange   = 0.45
	networkMinDampingHz    = 1500.0
	networkMaxDampingHz    = 8000.0
	networkAllpassFeedback = 0.7

	defaultNetworkRoomSize = 0.5
)

var (
	networkCombTunings    = [networkNumCombs]float64{networkCombTuning1, networkCombTuning2, networkCombTuning3, networkCombTuning4}
	networkAllpassTunings = [networkNumAllpasses]float64{networkAllpassTuning1, networkAllpassTuning2}
)

// Network is a Schroeder/Moorer style reverb: a pre-delay feeding four
// parallel damped combs whose sum is diffused by two series allpasses.
// The output is the wet signal only.
type Network struct {
	sampleRate      float64
	roomSize        float64
	preDelayMs      float64
	preDelaySamples int

	preDelay *delay.Line[float64]
	combs    [networkNumCombs]*Comb
	allpass  [networkNumAllpasses]*Allpass
}

// NewNetwork builds a network for sampleRate. Every line holds up to two
// seconds of history.
func NewNetwork(sampleRate float64) (*Network, error) {
	if err := core.ValidateSampleRate(sampleRate); err != nil {
		return nil, fmt.Errorf("reverb network %w", err)
	}

	maxDelay := int(networkMaxDelaySeconds * sampleRate)
	n := &Network{sampleRate: sampleRate}

	pre, err := delay.New[float64](maxDelay)
	if err != nil {
		return nil, fmt.Errorf("reverb network: %w", err)
	}
	n.preDelay = pre

	for i, tuning := range networkCombTunings {
		c, err := NewComb(sampleRate, maxDelay)
		if err != nil {
			return nil, fmt.Errorf("reverb network: %w", err)
		}
		c.SetDelay(int(tuning * sampleRate))
		n.combs[i] = c
	}

	for i, tuning := range networkAllpassTunings {
		a, err := NewAllpass(maxDelay)
		if err != nil {
			return nil, fmt.Errorf("reverb network: %w", err)
		}
		a.SetDelay(int(tuning * sampleRate))
		n.allpass[i] = a
	}

	n.SetRoomSize(defaultNetworkRoomSize)

	return n, nil
}

// SetRoomSize maps s in [0, 1] to comb feedback 0.5..0.95 and comb damping
// 1500..8000 Hz. The allpass gain stays at 0.7.
func (n *Network) SetRoomSize(s float64) {
	if !core.IsFinite(s) {
		s = defaultNetworkRoomSize
	}
	s = core.Clamp(s, 0, 1)
	n.roomSize = s

	feedback := networkMinFeedback + s*networkFeedbackRange
	damping := core.MapRange(s, 0, 1, networkMinDampingHz, networkMaxDampingHz)
	if damping >= n.sampleRate/2 {
		damping = n.sampleRate * 0.49
	}

	for _, c := range n.combs {
		// Both values are inside the accepted ranges by construction.
		_ = c.SetFeedback(feedback)
		_ = c.SetDamping(damping)
	}
	for _, a := range n.allpass {
		_ = a.SetFeedback(networkAllpassFeedback)
	}
}

// SetPreDelayMs sets the pre-delay, clamped to the line capacity.
func (n *Network) SetPreDelayMs(ms float64) {
	if !core.IsFinite(ms) {
		ms = 0
	}
	samples := int(ms / 1000 * n.sampleRate)
	n.preDelaySamples = core.ClampInt(samples, 0, n.preDelay.MaxDelay())
	n.preDelayMs = float64(n.preDelaySamples) / n.sampleRate * 1000
}

// RoomSize returns the room-size control.
func (n *Network) RoomSize() float64 { return n.roomSize }

// PreDelayMs returns the effective (clamped) pre-delay in milliseconds.
func (n *Network) PreDelayMs() float64 { return n.preDelayMs }

// PreDelaySamples returns the effective pre-delay in samples.
func (n *Network) PreDelaySamples() int { return n.preDelaySamples }

// CombFeedback returns the current comb loop gain.
func (n *Network) CombFeedback() float64 { return n.combs[0].Feedback() }

// CombDamping returns the current comb damping cutoff in Hz.
func (n *Network) CombDamping() float64 { return n.combs[0].Damping() }

// SampleRate returns sample rate in Hz.
func (n *Network) SampleRate() float64 { return n.sampleRate }

// ProcessSample processes one sample and returns the wet signal.
func (n *Network) ProcessSample(input float64) float64 {
	n.preDelay.Write(input)
	x := n.preDelay.Read(n.preDelaySamples)

	var acc float64
	for _, c := range n.combs {
		acc += c.ProcessSample(x)
	}
	for _, a := range n.allpass {
		acc = a.ProcessSample(acc)
	}

	return acc
}

// ProcessInPlace replaces buf with the wet signal.
func (n *Network) ProcessInPlace(buf []float64) {
	for i := range buf {
		buf[i] = n.ProcessSample(buf[i])
	}
}

// Reset clears all delay and filter state.
func (n *Network) Reset() {
	n.preDelay.Reset()
	for _, c := range n.combs {
		c.Reset()
	}
	for _, a := range n.allpass {
		a.Reset()
	}
}
