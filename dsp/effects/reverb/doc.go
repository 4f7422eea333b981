// Package reverb provides reusable non-I/O reverb processors.
//
// Included processors:
//   - Allpass: Schroeder allpass diffuser over a delay line.
//   - Comb: feedback comb with one-pole damping in the loop.
//   - Network: pre-delay, four parallel damped combs and two series
//     allpasses (Schroeder/Moorer topology) with a single room-size
//     control.
package reverb
