// Package window provides cosine-sum analysis windows for spectral
// monitoring.
package window
