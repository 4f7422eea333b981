package effectchain

// Runtime is the per-stage processing and configuration contract.
//
// Configure may be called from the real-time goroutine between blocks, so
// implementations must not allocate there once constructed.
type Runtime interface {
	Configure(ctx Context, params Params) error
	Process(block []float64)
}

// Resetter is implemented by runtimes holding signal history.
type Resetter interface {
	Reset()
}
