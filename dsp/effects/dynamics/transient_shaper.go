package dynamics

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/filter/onepole"
)

const (
	defaultTransientShaperAttackControl  = 0.0
	defaultTransientShaperSustainControl = 0.0

	transientFastCutoffHz = 200.0
	transientSlowCutoffHz = 20.0

	// transientThreshold is the fast/reference ratio above which a sample
	// counts as part of an attack.
	transientThreshold = 1.1
	transientMaxBoost  = 3.0
	gainSmoothing      = 0.1
)

// ReferenceMode selects how the reference envelope is derived.
type ReferenceMode int

const (
	// ReferenceMatched derives the reference from the fast follower itself.
	// The attack branch never fires, so the shaper applies the sustain gain
	// throughout.
	ReferenceMatched ReferenceMode = iota
	// ReferenceSlow runs a second follower at 20 Hz so rising edges of the
	// fast envelope select the attack gain.
	ReferenceSlow
)

func (m ReferenceMode) String() string {
	switch m {
	case ReferenceMatched:
		return "matched"
	case ReferenceSlow:
		return "slow"
	default:
		return "unknown"
	}
}

// TransientShaper scales percussive attacks and sustain tails independently.
// Controls in [0, 1] map to gains in [1, 4].
type TransientShaper struct {
	sampleRate     float64
	mode           ReferenceMode
	attackControl  float64
	sustainControl float64
	attackGain     float64
	sustainGain    float64

	fast *onepole.Filter
	slow *onepole.Filter

	lastGain float64
}

// NewTransientShaper creates a transient shaper in ReferenceMatched mode.
func NewTransientShaper(sampleRate float64) (*TransientShaper, error) {
	if err := core.ValidateSampleRate(sampleRate); err != nil {
		return nil, fmt.Errorf("transient shaper %w", err)
	}

	fast, err := onepole.New(sampleRate, math.Min(transientFastCutoffHz, sampleRate/2*0.99))
	if err != nil {
		return nil, fmt.Errorf("transient shaper: %w", err)
	}

	slow, err := onepole.New(sampleRate, math.Min(transientSlowCutoffHz, sampleRate/2*0.99))
	if err != nil {
		return nil, fmt.Errorf("transient shaper: %w", err)
	}

	t := &TransientShaper{
		sampleRate: sampleRate,
		fast:       fast,
		slow:       slow,
		lastGain:   1,
	}
	_ = t.SetAttackAmount(defaultTransientShaperAttackControl)
	_ = t.SetSustainAmount(defaultTransientShaperSustainControl)

	return t, nil
}

// SetReferenceMode selects the reference envelope. State is reset.
func (t *TransientShaper) SetReferenceMode(mode ReferenceMode) error {
	if mode != ReferenceMatched && mode != ReferenceSlow {
		return fmt.Errorf("transient shaper reference mode invalid: %d", mode)
	}

	t.mode = mode
	t.Reset()

	return nil
}

// SetAttackAmount sets the attack control in [0, 1].
func (t *TransientShaper) SetAttackAmount(amount float64) error {
	if amount < 0 || amount > 1 || !core.IsFinite(amount) {
		return fmt.Errorf("transient shaper attack amount must be in [0, 1]: %f", amount)
	}

	t.attackControl = amount
	t.attackGain = 1 + amount*transientMaxBoost

	return nil
}

// SetSustainAmount sets the sustain control in [0, 1].
func (t *TransientShaper) SetSustainAmount(amount float64) error {
	if amount < 0 || amount > 1 || !core.IsFinite(amount) {
		return fmt.Errorf("transient shaper sustain amount must be in [0, 1]: %f", amount)
	}

	t.sustainControl = amount
	t.sustainGain = 1 + amount*transientMaxBoost

	return nil
}

// AttackAmount returns the attack control.
func (t *TransientShaper) AttackAmount() float64 { return t.attackControl }

// SustainAmount returns the sustain control.
func (t *TransientShaper) SustainAmount() float64 { return t.sustainControl }

// AttackGain returns the linear gain applied to attacks.
func (t *TransientShaper) AttackGain() float64 { return t.attackGain }

// SustainGain returns the linear gain applied to sustain.
func (t *TransientShaper) SustainGain() float64 { return t.sustainGain }

// ReferenceMode returns the reference envelope mode.
func (t *TransientShaper) ReferenceMode() ReferenceMode { return t.mode }

// SampleRate returns sample rate in Hz.
func (t *TransientShaper) SampleRate() float64 { return t.sampleRate }

// Reset clears envelope and smoothing state.
func (t *TransientShaper) Reset() {
	t.fast.Reset()
	t.slow.Reset()
	t.lastGain = 1
}

// ProcessSample processes one sample.
func (t *TransientShaper) ProcessSample(input float64) float64 {
	x := math.Abs(input)
	fastEnv := t.fast.ProcessSample(x)

	refEnv := fastEnv
	if t.mode == ReferenceSlow {
		refEnv = t.slow.ProcessSample(x)
	}

	gain := t.sustainGain
	if fastEnv > refEnv*transientThreshold {
		gain = t.attackGain
	}

	t.lastGain += (gain - t.lastGain) * gainSmoothing

	return input * t.lastGain
}

// ProcessInPlace processes samples in place.
func (t *TransientShaper) ProcessInPlace(buf []float64) {
	for i := range buf {
		buf[i] = t.ProcessSample(buf[i])
	}
}
