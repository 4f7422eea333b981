package reverb

import (
	"fmt"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/delay"
)

// Allpass is a Schroeder allpass section:
//
//	y = -x + tap
//	write x + g*tap
//
// where tap is the line output delay samples ago.
type Allpass struct {
	line     *delay.Line[float64]
	delay    int
	feedback float64
}

// NewAllpass creates an allpass able to hold maxDelay samples.
func NewAllpass(maxDelay int) (*Allpass, error) {
	line, err := delay.New[float64](maxDelay)
	if err != nil {
		return nil, fmt.Errorf("allpass: %w", err)
	}

	return &Allpass{line: line, delay: 1, feedback: 0.5}, nil
}

// SetDelay sets the loop delay in samples, clamped to [1, maxDelay].
func (a *Allpass) SetDelay(samples int) {
	a.delay = core.ClampInt(samples, 1, max(1, a.line.MaxDelay()))
}

// SetFeedback sets the diffusion gain. It must lie in (0, 1).
func (a *Allpass) SetFeedback(g float64) error {
	if g <= 0 || g >= 1 || !core.IsFinite(g) {
		return fmt.Errorf("allpass feedback must be in (0, 1): %f", g)
	}

	a.feedback = g

	return nil
}

// Delay returns the loop delay in samples.
func (a *Allpass) Delay() int { return a.delay }

// Feedback returns the diffusion gain.
func (a *Allpass) Feedback() float64 { return a.feedback }

// ProcessSample processes one sample.
func (a *Allpass) ProcessSample(x float64) float64 {
	tap := a.line.Read(a.delay - 1)
	a.line.Write(core.FlushDenormals(x + a.feedback*tap))

	return -x + tap
}

// Reset clears the delay line.
func (a *Allpass) Reset() {
	a.line.Reset()
}
