package control

import (
	"github.com/cwbudde/algo-rack/engine"
	"github.com/cwbudde/algo-rack/host"
)

// Subject suffixes, appended to the configured prefix.
const (
	SubjectPlay       = "transport.play"
	SubjectStop       = "transport.stop"
	SubjectConnect    = "unit.connect"
	SubjectDisconnect = "unit.disconnect"
	SubjectParam      = "param.set"
	SubjectState      = "state"
)

// PlayRequest starts playback, optionally with a unit.
type PlayRequest struct {
	Descriptor *host.Descriptor `json:"descriptor,omitempty"`
}

// ConnectRequest hosts a new unit.
type ConnectRequest struct {
	Descriptor *host.Descriptor `json:"descriptor"`
}

// ParamRequest updates one parameter of the hosted unit.
type ParamRequest struct {
	ID    string  `json:"id"`
	Value float64 `json:"value"`
}

// Reply answers every request. RetryGesture is set when playback was
// refused until the user interacts with the output device.
type Reply struct {
	OK           bool           `json:"ok"`
	State        string         `json:"state"`
	Error        string         `json:"error,omitempty"`
	RetryGesture bool           `json:"retry_gesture"`
	Status       *engine.Status `json:"status,omitempty"`
}
