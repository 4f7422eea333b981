// Package monitor implements the monitoring tap: a non-destructive
// observation point that keeps the most recent signal window for
// visualization.
//
// Observe runs on the real-time goroutine and never blocks: when a reader
// holds the window, the block is skipped and counted. Snapshot, Peak and
// Spectrum are control-side readers.
package monitor
