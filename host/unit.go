package host

import "context"

// Unit is an instantiated processing unit.
//
// Process is called on the real-time goroutine only. src is the input
// port, dst the output port; both have the same length. start is the
// engine clock, in frames, of the first sample. Process must not block or
// allocate.
//
// SetParam and Close are called from the control side. SetParam reports
// whether the id names a declared parameter; accepted values take effect
// at the start of a later block. Value returns the last accepted value.
type Unit interface {
	Descriptor() *Descriptor
	Process(dst, src []float64, start int64)
	SetParam(id string, value float64) bool
	Value(id string) (float64, bool)
	Close(ctx context.Context) error
}

// Instrument is a Unit that generates notes. Events are stamped with the
// engine frame they should sound at and are applied sample-accurately.
type Instrument interface {
	Unit
	Play(freqHz float64, at int64)
	StopAll(at int64)
}

// Failing is implemented by units that stop producing sound after a
// runtime fault. Err returns the fault, or nil.
type Failing interface {
	Err() error
}
