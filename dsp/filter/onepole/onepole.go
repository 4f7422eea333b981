package onepole

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-rack/dsp/core"
)

// Filter is a one-pole low-pass filter.
// A zero value passes input through unchanged until SetCutoff is called.
type Filter struct {
	sampleRate float64
	cutoffHz   float64
	alpha      float64
	last       float64
}

// New creates a filter at sampleRate with the given cutoff.
func New(sampleRate, cutoffHz float64) (*Filter, error) {
	if err := core.ValidateSampleRate(sampleRate); err != nil {
		return nil, fmt.Errorf("onepole: %w", err)
	}

	f := &Filter{sampleRate: sampleRate, alpha: 1}
	if err := f.SetCutoff(cutoffHz); err != nil {
		return nil, err
	}

	return f, nil
}

// Alpha returns the coefficient for cutoffHz at sampleRate.
func Alpha(cutoffHz, sampleRate float64) float64 {
	return 1 - math.Exp(-2*math.Pi*cutoffHz/sampleRate)
}

// SetCutoff updates the cutoff. It must lie in (0, fs/2).
func (f *Filter) SetCutoff(cutoffHz float64) error {
	if !core.IsFinite(cutoffHz) || cutoffHz <= 0 || cutoffHz >= f.sampleRate/2 {
		return fmt.Errorf("onepole cutoff must be in (0, %g): %f", f.sampleRate/2, cutoffHz)
	}

	f.cutoffHz = cutoffHz
	f.alpha = Alpha(cutoffHz, f.sampleRate)
	return nil
}

// ProcessSample filters one sample.
func (f *Filter) ProcessSample(x float64) float64 {
	f.last = core.FlushDenormals(f.alpha*x + (1-f.alpha)*f.last)
	return f.last
}

// ProcessInPlace filters buf in place.
func (f *Filter) ProcessInPlace(buf []float64) {
	for i, x := range buf {
		buf[i] = f.ProcessSample(x)
	}
}

// Reset zeroes the filter memory.
func (f *Filter) Reset() {
	f.last = 0
}

// CutoffHz returns the current cutoff in Hz.
func (f *Filter) CutoffHz() float64 { return f.cutoffHz }

// SampleRate returns the configured sample rate.
func (f *Filter) SampleRate() float64 { return f.sampleRate }

// Last returns the most recent output.
func (f *Filter) Last() float64 { return f.last }
