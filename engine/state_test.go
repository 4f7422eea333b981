package engine

import "testing"

func TestStateNames(t *testing.T) {
	tests := []struct {
		s       State
		name    string
		playing bool
	}{
		{Stopped, "stopped", false},
		{PlayingPassthrough, "playing_passthrough", true},
		{PlayingProcessed, "playing_processed", true},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.name {
			t.Errorf("String() = %q, want %q", got, tt.name)
		}
		if got := tt.s.Playing(); got != tt.playing {
			t.Errorf("%s.Playing() = %v", tt.name, got)
		}
		b, err := tt.s.MarshalText()
		if err != nil || string(b) != tt.name {
			t.Errorf("MarshalText() = %q, %v", b, err)
		}
		var back State
		if err := back.UnmarshalText(b); err != nil || back != tt.s {
			t.Errorf("UnmarshalText(%q) = %v, %v", b, back, err)
		}
	}

	var s State
	if err := s.UnmarshalText([]byte("paused")); err == nil {
		t.Error("expected error for unknown state")
	}
}
