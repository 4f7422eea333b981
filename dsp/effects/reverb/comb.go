package reverb

import (
	"fmt"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/delay"
	"github.com/cwbudde/algo-rack/dsp/filter/onepole"
)

// Comb is a feedback comb filter whose loop passes through a one-pole
// low-pass. The filtered tap is both the output and the feedback signal.
type Comb struct {
	line     *delay.Line[float64]
	damping  *onepole.Filter
	delay    int
	feedback float64
}

// NewComb creates a comb able to hold maxDelay samples at sampleRate.
func NewComb(sampleRate float64, maxDelay int) (*Comb, error) {
	line, err := delay.New[float64](maxDelay)
	if err != nil {
		return nil, fmt.Errorf("comb: %w", err)
	}

	damping, err := onepole.New(sampleRate, sampleRate*0.49)
	if err != nil {
		return nil, fmt.Errorf("comb: %w", err)
	}

	return &Comb{line: line, damping: damping, delay: 1, feedback: 0.5}, nil
}

// SetDelay sets the loop delay in samples, clamped to [1, maxDelay].
func (c *Comb) SetDelay(samples int) {
	c.delay = core.ClampInt(samples, 1, max(1, c.line.MaxDelay()))
}

// SetFeedback sets loop gain. It must lie in [0, 1).
func (c *Comb) SetFeedback(g float64) error {
	if g < 0 || g >= 1 || !core.IsFinite(g) {
		return fmt.Errorf("comb feedback must be in [0, 1): %f", g)
	}

	c.feedback = g

	return nil
}

// SetDamping sets the loop low-pass cutoff in Hz.
func (c *Comb) SetDamping(hz float64) error {
	if err := c.damping.SetCutoff(hz); err != nil {
		return fmt.Errorf("comb damping: %w", err)
	}

	return nil
}

// Delay returns the loop delay in samples.
func (c *Comb) Delay() int { return c.delay }

// Feedback returns the loop gain.
func (c *Comb) Feedback() float64 { return c.feedback }

// Damping returns the loop low-pass cutoff in Hz.
func (c *Comb) Damping() float64 { return c.damping.CutoffHz() }

// ProcessSample processes one sample.
func (c *Comb) ProcessSample(x float64) float64 {
	out := c.damping.ProcessSample(c.line.Read(c.delay - 1))
	c.line.Write(core.FlushDenormals(x + c.feedback*out))

	return out
}

// Reset clears the delay line and damping filter.
func (c *Comb) Reset() {
	c.line.Reset()
	c.damping.Reset()
}
