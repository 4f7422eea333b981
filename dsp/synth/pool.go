package synth

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-rack/dsp/core"
)

const (
	// MaxVoices bounds polyphony; the oldest voice is stolen beyond it.
	MaxVoices = 64

	defaultAttackMs = 5.0
	defaultDecayMs  = 400.0
	defaultLevel    = 0.22
	minDecayMs      = 10.0
)

// EventKind identifies a note event.
type EventKind int

const (
	// NoteOn starts a new voice at FreqHz.
	NoteOn EventKind = iota
	// AllOff silences every sounding voice.
	AllOff
)

// Event is a note event stamped with an absolute engine frame.
type Event struct {
	At     int64
	Kind   EventKind
	FreqHz float64
}

// Pool is a fixed-capacity voice pool. It does not allocate while rendering.
type Pool struct {
	sampleRate    float64
	waveform      Waveform
	attackMs      float64
	decayMs       float64
	level         float64
	attackSamples int
	decaySamples  int

	voices []voice
}

// NewPool creates a pool at sampleRate with a sine waveform.
func NewPool(sampleRate float64) (*Pool, error) {
	if err := core.ValidateSampleRate(sampleRate); err != nil {
		return nil, fmt.Errorf("synth: %w", err)
	}

	p := &Pool{
		sampleRate: sampleRate,
		level:      defaultLevel,
		voices:     make([]voice, 0, MaxVoices),
	}
	p.SetAttack(defaultAttackMs)
	p.SetDecay(defaultDecayMs)

	return p, nil
}

// SetWaveform selects the oscillator used by newly triggered voices.
func (p *Pool) SetWaveform(w Waveform) { p.waveform = w }

// SetAttack sets the attack time in milliseconds (at least one sample).
func (p *Pool) SetAttack(ms float64) {
	if !core.IsFinite(ms) || ms < 0 {
		ms = 0
	}
	p.attackMs = ms
	p.attackSamples = max(1, core.MsToSamples(ms, p.sampleRate))
}

// SetDecay sets the total voice length in milliseconds (minimum 10 ms).
func (p *Pool) SetDecay(ms float64) {
	if !core.IsFinite(ms) || ms < minDecayMs {
		ms = minDecayMs
	}
	p.decayMs = ms
	p.decaySamples = max(1, core.MsToSamples(ms, p.sampleRate))
}

// SetLevel sets the envelope peak, clamped to [0, 1].
func (p *Pool) SetLevel(level float64) {
	if !core.IsFinite(level) {
		level = defaultLevel
	}
	p.level = core.Clamp(level, 0, 1)
}

// Waveform returns the oscillator for new voices.
func (p *Pool) Waveform() Waveform { return p.waveform }

// Attack returns the attack time in milliseconds.
func (p *Pool) Attack() float64 { return p.attackMs }

// Decay returns the voice length in milliseconds.
func (p *Pool) Decay() float64 { return p.decayMs }

// Level returns the envelope peak.
func (p *Pool) Level() float64 { return p.level }

// Active returns the number of sounding voices.
func (p *Pool) Active() int { return len(p.voices) }

// NoteOn starts a voice at freqHz immediately.
func (p *Pool) NoteOn(freqHz float64) {
	if freqHz <= 0 || !core.IsFinite(freqHz) {
		return
	}
	if len(p.voices) >= MaxVoices {
		copy(p.voices, p.voices[1:])
		p.voices = p.voices[:MaxVoices-1]
	}
	p.voices = append(p.voices, voice{
		waveform:    p.waveform,
		phaseStep:   2 * math.Pi * freqHz / p.sampleRate,
		decaySample: p.decaySamples,
	})
}

// AllOff silences every voice immediately.
func (p *Pool) AllOff() {
	p.voices = p.voices[:0]
}

// Reset is an alias for AllOff.
func (p *Pool) Reset() { p.AllOff() }

// NextSample renders one sample.
func (p *Pool) NextSample() float64 {
	if len(p.voices) == 0 {
		return 0
	}

	sum := 0.0
	write := 0
	for i := range p.voices {
		v := p.voices[i]
		if v.ageSamples >= v.decaySample {
			continue
		}

		env := envelope(v.ageSamples, p.attackSamples, v.decaySample, p.level)
		sum += env * waveSample(v.waveform, v.phase)

		v.phase += v.phaseStep
		if v.phase > math.Pi {
			v.phase -= 2 * math.Pi
		}
		v.ageSamples++
		p.voices[write] = v
		write++
	}
	p.voices = p.voices[:write]
	return sum
}

// Render fills dst with the block starting at engine frame start. events
// must be sorted by At; each one is applied at the sample it falls on, and
// events stamped before start apply at the first sample. Render returns
// the number of events consumed; events beyond the block are left for the
// next call.
func (p *Pool) Render(dst []float64, start int64, events []Event) int {
	consumed := 0
	for i := range dst {
		frame := start + int64(i)
		for consumed < len(events) && events[consumed].At <= frame {
			p.apply(events[consumed])
			consumed++
		}
		dst[i] = p.NextSample()
	}
	return consumed
}

func (p *Pool) apply(ev Event) {
	switch ev.Kind {
	case NoteOn:
		p.NoteOn(ev.FreqHz)
	case AllOff:
		p.AllOff()
	}
}
