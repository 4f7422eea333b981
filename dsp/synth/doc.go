// Package synth provides a small polyphonic oscillator voice pool.
//
// A Pool renders decaying one-shot voices with an exponential attack and
// decay envelope. Note events carry an absolute frame stamp and are applied
// at the exact sample they fall on within a rendered block.
package synth
