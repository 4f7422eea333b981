// Package effects provides reusable non-I/O DSP effect kernels.
//
// Subpackages:
//   - github.com/cwbudde/algo-rack/dsp/effects/dynamics
//   - github.com/cwbudde/algo-rack/dsp/effects/reverb
//
// Effects remaining in this package:
//   - Saturator: normalized tanh waveshaper with a 0..1 drive control.
//   - FilteredDelay: feedback delay whose repeats pass through a one-pole
//     low-pass, so each echo is darker than the last.
//
// All effects are designed for real-time processing with zero-allocation
// hot paths and support both single-sample and buffer-based processing.
package effects
