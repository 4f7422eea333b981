// Package device provides the output sinks the engine renders into.
//
// A Device pulls mono blocks from a Source on its own goroutine, which is
// the real-time timeline. Oto plays through the system audio output;
// Manual is pulled explicitly by the caller; Null pulls on a wall-clock
// ticker and discards the result.
package device
