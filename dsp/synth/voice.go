package synth

import (
	"fmt"
	"math"
)

// Waveform defines oscillator shape for synth voices.
type Waveform int

const (
	WaveSine Waveform = iota
	WaveTriangle
	WaveSaw
	WaveSquare
)

func (w Waveform) String() string {
	switch w {
	case WaveSine:
		return "sine"
	case WaveTriangle:
		return "triangle"
	case WaveSaw:
		return "saw"
	case WaveSquare:
		return "square"
	default:
		return "unknown"
	}
}

// ParseWaveform resolves a waveform name. The empty string selects sine.
func ParseWaveform(name string) (Waveform, error) {
	switch name {
	case "", "sine":
		return WaveSine, nil
	case "triangle":
		return WaveTriangle, nil
	case "saw":
		return WaveSaw, nil
	case "square":
		return WaveSquare, nil
	default:
		return WaveSine, fmt.Errorf("synth: unknown waveform %q", name)
	}
}

// voice represents a synthesized voice with phase and envelope state.
type voice struct {
	waveform    Waveform
	phase       float64
	phaseStep   float64
	ageSamples  int
	decaySample int
}

// envelope rises exponentially from near silence to peak over attack
// samples, then falls back over the remaining decay samples.
func envelope(age, attack, decay int, peak float64) float64 {
	const start = 0.0001
	const end = 0.0001

	if peak <= start {
		return 0
	}
	if age < attack {
		t := float64(age) / float64(attack)
		return start * math.Pow(peak/start, t)
	}
	if decay <= attack {
		return end
	}
	t := float64(age-attack) / float64(decay-attack)
	return peak * math.Pow(end/peak, t)
}

func waveSample(w Waveform, phase float64) float64 {
	switch w {
	case WaveTriangle:
		return (2 / math.Pi) * math.Asin(math.Sin(phase))
	case WaveSaw:
		return phase / math.Pi
	case WaveSquare:
		if math.Sin(phase) >= 0 {
			return 1
		}
		return -1
	default:
		return math.Sin(phase)
	}
}
