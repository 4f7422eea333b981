package engine

import (
	"math/rand/v2"
	"time"
)

const (
	firstNoteHz  = 220.0
	noteInterval = 500 * time.Millisecond
)

// notePitches is the set periodic triggers draw from.
var notePitches = [...]float64{220, 261.63, 329.63, 392.00}

// Ticker delivers periodic ticks. It mirrors time.Ticker so tests can
// drive the note timer by hand.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// NewTickerFunc creates a Ticker with the given period.
type NewTickerFunc func(d time.Duration) Ticker

type timeTicker struct{ *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.Ticker.C }

func newTimeTicker(d time.Duration) Ticker { return timeTicker{time.NewTicker(d)} }

// noteTarget receives triggers stamped in engine frames.
type noteTarget interface {
	Play(freqHz float64, at int64)
}

// noteTimer drives an instrument from a control-side goroutine. The k-th
// trigger is stamped k*interval frames after the first, so timing on the
// audio timeline does not inherit ticker jitter.
type noteTimer struct {
	stop chan struct{}
	done chan struct{}
}

type noteTimerConfig struct {
	target   noteTarget
	ticker   Ticker
	start    int64
	interval int64
	rng      *rand.Rand
	onNote   func(freqHz float64, at int64)
}

func startNoteTimer(cfg noteTimerConfig) *noteTimer {
	t := &noteTimer{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	trigger := func(freq float64, at int64) {
		cfg.target.Play(freq, at)
		if cfg.onNote != nil {
			cfg.onNote(freq, at)
		}
	}
	trigger(firstNoteHz, cfg.start)

	go func() {
		defer close(t.done)
		defer cfg.ticker.Stop()

		at := cfg.start
		for {
			select {
			case <-t.stop:
				return
			case <-cfg.ticker.C():
				at += cfg.interval
				trigger(notePitches[cfg.rng.IntN(len(notePitches))], at)
			}
		}
	}()

	return t
}

// Stop cancels the timer and waits for its goroutine to exit. No trigger
// is sent after Stop returns.
func (t *noteTimer) Stop() {
	if t == nil {
		return
	}
	close(t.stop)
	<-t.done
}
