// Package graph holds the engine's signal graph: edge bookkeeping among
// the fixed node set, compilation of edges into an immutable routing, the
// real-time renderer that executes a routing, and the looping sample
// source.
package graph
