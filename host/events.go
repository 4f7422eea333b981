package host

import (
	"cmp"
	"slices"
	"sync/atomic"

	"github.com/cwbudde/algo-rack/dsp/synth"
)

const noteQueueSize = 256

// mailbox hands the latest value from the control side to the real-time
// side without locking. The writer replaces, the reader takes.
type mailbox[T any] struct {
	p atomic.Pointer[T]
}

func (m *mailbox[T]) Put(v *T) { m.p.Store(v) }

func (m *mailbox[T]) Take() *T { return m.p.Swap(nil) }

// noteQueue carries note events to the real-time side. Push never blocks;
// events beyond capacity are dropped and counted.
type noteQueue struct {
	ch      chan synth.Event
	dropped atomic.Uint64
}

func newNoteQueue(size int) *noteQueue {
	return &noteQueue{ch: make(chan synth.Event, size)}
}

func (q *noteQueue) Push(ev synth.Event) bool {
	select {
	case q.ch <- ev:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Drain appends queued events to dst without growing it beyond its
// capacity and returns dst sorted by frame stamp. An AllOff cancels the
// notes pushed before it that are stamped at or after its frame.
func (q *noteQueue) Drain(dst []synth.Event) []synth.Event {
	for len(dst) < cap(dst) {
		select {
		case ev := <-q.ch:
			if ev.Kind == synth.AllOff {
				dst = slices.DeleteFunc(dst, func(p synth.Event) bool { return p.Kind == synth.NoteOn && p.At >= ev.At })
			}
			dst = append(dst, ev)
		default:
			return sortEvents(dst)
		}
	}
	return sortEvents(dst)
}

func (q *noteQueue) Dropped() uint64 { return q.dropped.Load() }

func sortEvents(evs []synth.Event) []synth.Event {
	slices.SortStableFunc(evs, func(a, b synth.Event) int { return cmp.Compare(a.At, b.At) })
	return evs
}
