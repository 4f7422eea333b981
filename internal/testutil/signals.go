// Package testutil holds signal generators and tolerance checks shared by
// the DSP and engine tests.
package testutil

import (
	"math"
	"math/rand/v2"
)

// Sine returns n samples of a sine at freqHz starting at phase zero.
func Sine(freqHz, sampleRate, amplitude float64, n int) []float64 {
	out := make([]float64, n)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// Noise returns n samples of uniform white noise in [-amplitude,
// amplitude]. The same seed always yields the same samples.
func Noise(seed uint64, amplitude float64, n int) []float64 {
	out := make([]float64, n)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// Impulse returns n samples with a unit impulse at pos.
func Impulse(n, pos int) []float64 {
	out := make([]float64, n)
	if pos >= 0 && pos < n {
		out[pos] = 1
	}
	return out
}

// DC returns n samples of value.
func DC(value float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}

// ProcessBlocks feeds src through fn in blocks of at most block frames
// and returns the concatenated output. fn receives the block start frame.
func ProcessBlocks(src []float64, block int, fn func(dst, src []float64, start int64)) []float64 {
	out := make([]float64, len(src))
	for off := 0; off < len(src); off += block {
		end := min(off+block, len(src))
		fn(out[off:end], src[off:end], int64(off))
	}
	return out
}
