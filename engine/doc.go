// Package engine implements the audio graph manager: it owns the looping
// sample source, at most one hosted processing unit, the monitoring tap
// and the output device, and moves between Stopped, PlayingPassthrough
// and PlayingProcessed by rebuilding the graph on every transition.
//
// All methods are control-side and serialized by one mutex. Rendering
// happens on the device goroutine through an atomically published
// routing, so a rebuild never blocks the audio path.
package engine
