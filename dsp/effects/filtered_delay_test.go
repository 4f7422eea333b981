package effects

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-rack/dsp/filter/onepole"
)

func TestNewFilteredDelayValidation(t *testing.T) {
	if _, err := NewFilteredDelay(0, 1); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
	if _, err := NewFilteredDelay(44100, 0); err == nil {
		t.Fatal("expected error for zero max time")
	}

	d, err := NewFilteredDelay(44100, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	if d.Time() != 0.1 {
		t.Fatalf("default time should be capped to max: %v", d.Time())
	}
	if err := d.SetTime(0.2); err == nil {
		t.Fatal("expected error for time beyond capacity")
	}
	if err := d.SetFeedback(1.2); err == nil {
		t.Fatal("expected error for feedback > 0.99")
	}
	if err := d.SetCutoff(30000); err == nil {
		t.Fatal("expected error for cutoff above Nyquist")
	}
}

func TestFilteredDelayEchoArrival(t *testing.T) {
	const sampleRate = 1000.0

	d, err := NewFilteredDelay(sampleRate, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.SetTime(0.01); err != nil {
		t.Fatal(err)
	}
	if err := d.SetFeedback(0); err != nil {
		t.Fatal(err)
	}

	buf := make([]float64, 32)
	buf[0] = 1
	d.ProcessInPlace(buf)

	for i := 0; i < 10; i++ {
		if buf[i] != 0 {
			t.Fatalf("sample %d: expected silence before echo, got %v", i, buf[i])
		}
	}

	alpha := onepole.Alpha(d.Cutoff(), sampleRate)
	if math.Abs(buf[10]-alpha) > 1e-12 {
		t.Fatalf("echo sample: got %v want %v", buf[10], alpha)
	}
}

func TestFilteredDelayRepeatsDecay(t *testing.T) {
	const sampleRate = 1000.0

	d, _ := NewFilteredDelay(sampleRate, 1)
	_ = d.SetTime(0.05)
	_ = d.SetFeedback(0.6)
	_ = d.SetCutoff(100)

	buf := make([]float64, 400)
	buf[0] = 1
	d.ProcessInPlace(buf)

	peakIn := func(lo, hi int) float64 {
		var p float64
		for _, v := range buf[lo:hi] {
			p = math.Max(p, math.Abs(v))
		}
		return p
	}

	first := peakIn(50, 100)
	second := peakIn(100, 150)
	third := peakIn(150, 200)
	if !(first > second && second > third) {
		t.Fatalf("repeats should decay: %v %v %v", first, second, third)
	}

	d.Reset()
	if y := d.ProcessSample(0); y != 0 {
		t.Fatalf("after reset got %v", y)
	}
}
