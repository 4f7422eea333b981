package host

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-rack/dsp/synth"
)

func TestNoteQueueAllOffCancelsLaterNotes(t *testing.T) {
	t.Parallel()

	q := newNoteQueue(8)
	q.Push(synth.Event{At: 5, Kind: synth.NoteOn, FreqHz: 220})
	q.Push(synth.Event{At: 22050, Kind: synth.NoteOn, FreqHz: 330})
	q.Push(synth.Event{At: 100, Kind: synth.AllOff})
	q.Push(synth.Event{At: 200, Kind: synth.NoteOn, FreqHz: 440})

	got := q.Drain(make([]synth.Event, 0, 8))

	want := []synth.Event{
		{At: 5, Kind: synth.NoteOn, FreqHz: 220},
		{At: 100, Kind: synth.AllOff},
		{At: 200, Kind: synth.NoteOn, FreqHz: 440},
	}
	require.Empty(t, cmp.Diff(want, got))
}

func TestNoteQueueAllOffCancelsPendingEvents(t *testing.T) {
	t.Parallel()

	q := newNoteQueue(8)
	q.Push(synth.Event{At: 900, Kind: synth.NoteOn, FreqHz: 220})
	pending := q.Drain(make([]synth.Event, 0, 8))
	require.Len(t, pending, 1)

	q.Push(synth.Event{At: 64, Kind: synth.AllOff})
	got := q.Drain(pending)

	require.Empty(t, cmp.Diff([]synth.Event{{At: 64, Kind: synth.AllOff}}, got))
}
