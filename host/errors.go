package host

import "errors"

var (
	// ErrInvalidDescriptor marks descriptors that fail structural validation.
	ErrInvalidDescriptor = errors.New("invalid descriptor")
	// ErrInstantiation wraps every failure to build a unit from a descriptor.
	ErrInstantiation = errors.New("unit instantiation failed")
	// ErrClosed is returned when instantiating on a closed host.
	ErrClosed = errors.New("host closed")
)
