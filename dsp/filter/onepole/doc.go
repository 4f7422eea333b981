// Package onepole provides a first-order recursive low-pass filter.
//
// The coefficient follows the impulse-invariant mapping
//
//	alpha = 1 - exp(-2*pi*fc/fs)
//
// and the recursion is y[n] = alpha*x[n] + (1-alpha)*y[n-1]. The filter is
// used for comb damping, delay feedback tone control, envelope following
// and gain smoothing.
package onepole
