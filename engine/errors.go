package engine

import (
	"errors"

	"github.com/cwbudde/algo-rack/device"
	"github.com/cwbudde/algo-rack/host"
)

var (
	// ErrInitialization is returned by Init when the device, decoder or
	// built-in asset is unusable. The engine stays uninitialized.
	ErrInitialization = errors.New("engine initialization failed")
	// ErrNotInitialized is returned by transport calls before Init.
	ErrNotInitialized = errors.New("engine not initialized")
	// ErrUnitInstantiation reports a descriptor that could not be loaded.
	// The graph continues without a unit.
	ErrUnitInstantiation = host.ErrInstantiation
	// ErrResumeDenied is returned when the output cannot resume without a
	// user gesture. Retry after one.
	ErrResumeDenied = device.ErrResumeDenied
)
