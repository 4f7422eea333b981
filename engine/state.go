package engine

import (
	"fmt"
	"slices"
)

// State is the transport state of the graph.
type State int

const (
	Stopped State = iota
	PlayingPassthrough
	PlayingProcessed
)

var stateNames = [...]string{"stopped", "playing_passthrough", "playing_processed"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText encodes the state name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	i := slices.Index(stateNames[:], string(text))
	if i < 0 {
		return fmt.Errorf("engine: unknown state %q", text)
	}
	*s = State(i)
	return nil
}

// Playing reports whether audio is being produced.
func (s State) Playing() bool { return s != Stopped }
