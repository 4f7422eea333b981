package effects

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/delay"
	"github.com/cwbudde/algo-rack/dsp/filter/onepole"
)

const (
	defaultFilteredDelayTimeSeconds = 0.25
	defaultFilteredDelayFeedback    = 0.35
	defaultFilteredDelayCutoffHz    = 20000.0
	maxFilteredDelayFeedback        = 0.99
)

// FilteredDelay is a feedback delay with a one-pole low-pass in the loop.
// The output is the filtered echo only; callers blend dry signal themselves.
type FilteredDelay struct {
	sampleRate   float64
	maxSeconds   float64
	delaySeconds float64
	delaySamples float64
	feedback     float64

	line *delay.Line[float64]
	lpf  *onepole.Filter
}

// NewFilteredDelay creates a filtered delay holding up to maxSeconds of
// history. The capacity is fixed for the lifetime of the delay.
func NewFilteredDelay(sampleRate, maxSeconds float64) (*FilteredDelay, error) {
	if err := core.ValidateSampleRate(sampleRate); err != nil {
		return nil, fmt.Errorf("filtered delay %w", err)
	}
	if maxSeconds <= 0 || !core.IsFinite(maxSeconds) {
		return nil, fmt.Errorf("filtered delay max time must be > 0: %f", maxSeconds)
	}

	line, err := delay.New[float64](int(math.Ceil(maxSeconds * sampleRate)))
	if err != nil {
		return nil, fmt.Errorf("filtered delay: %w", err)
	}

	lpf, err := onepole.New(sampleRate, math.Min(defaultFilteredDelayCutoffHz, sampleRate*0.49))
	if err != nil {
		return nil, fmt.Errorf("filtered delay: %w", err)
	}

	d := &FilteredDelay{
		sampleRate: sampleRate,
		maxSeconds: maxSeconds,
		feedback:   defaultFilteredDelayFeedback,
		line:       line,
		lpf:        lpf,
	}
	if err := d.SetTime(math.Min(defaultFilteredDelayTimeSeconds, maxSeconds)); err != nil {
		return nil, err
	}

	return d, nil
}

// SetTime sets the delay time in seconds, in (0, max].
func (d *FilteredDelay) SetTime(seconds float64) error {
	if seconds <= 0 || seconds > d.maxSeconds || !core.IsFinite(seconds) {
		return fmt.Errorf("filtered delay time must be in (0, %f]: %f", d.maxSeconds, seconds)
	}

	d.delaySeconds = seconds
	d.delaySamples = seconds * d.sampleRate

	return nil
}

// SetFeedback sets feedback amount in [0, 0.99].
func (d *FilteredDelay) SetFeedback(feedback float64) error {
	if feedback < 0 || feedback > maxFilteredDelayFeedback || !core.IsFinite(feedback) {
		return fmt.Errorf("filtered delay feedback must be in [0, %f]: %f", maxFilteredDelayFeedback, feedback)
	}

	d.feedback = feedback

	return nil
}

// SetCutoff sets the loop low-pass cutoff in Hz.
func (d *FilteredDelay) SetCutoff(hz float64) error {
	if err := d.lpf.SetCutoff(hz); err != nil {
		return fmt.Errorf("filtered delay: %w", err)
	}

	return nil
}

// Reset clears the delay line and filter memory.
func (d *FilteredDelay) Reset() {
	d.line.Reset()
	d.lpf.Reset()
}

// ProcessSample processes one sample.
func (d *FilteredDelay) ProcessSample(input float64) float64 {
	// The read happens before this sample is written, so a tap of n-1
	// yields an n-sample echo.
	echo := d.lpf.ProcessSample(d.line.ReadInterpolated(d.delaySamples - 1))
	d.line.Write(input + echo*d.feedback)

	return echo
}

// ProcessInPlace processes samples in place.
func (d *FilteredDelay) ProcessInPlace(buf []float64) {
	for i := range buf {
		buf[i] = d.ProcessSample(buf[i])
	}
}

// SampleRate returns sample rate in Hz.
func (d *FilteredDelay) SampleRate() float64 { return d.sampleRate }

// Time returns delay time in seconds.
func (d *FilteredDelay) Time() float64 { return d.delaySeconds }

// MaxTime returns the delay capacity in seconds.
func (d *FilteredDelay) MaxTime() float64 { return d.maxSeconds }

// Feedback returns feedback amount.
func (d *FilteredDelay) Feedback() float64 { return d.feedback }

// Cutoff returns the loop low-pass cutoff in Hz.
func (d *FilteredDelay) Cutoff() float64 { return d.lpf.CutoffHz() }
