package onepole

import (
	"math"
	"testing"
)

func TestNewValidation(t *testing.T) {
	if _, err := New(0, 1000); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
	for _, fc := range []float64{0, -1, 22050, 30000, math.NaN()} {
		if _, err := New(44100, fc); err == nil {
			t.Fatalf("expected error for cutoff %v", fc)
		}
	}
}

func TestAlpha(t *testing.T) {
	want := 1 - math.Exp(-2*math.Pi*200/44100)
	if got := Alpha(200, 44100); math.Abs(got-want) > 1e-15 {
		t.Fatalf("Alpha = %v, want %v", got, want)
	}
}

func TestStepResponseMonotonic(t *testing.T) {
	f, err := New(44100, 1500)
	if err != nil {
		t.Fatal(err)
	}

	const step = 0.8
	prev := 0.0
	for i := 0; i < 20000; i++ {
		y := f.ProcessSample(step)
		if y < prev {
			t.Fatalf("sample %d: output decreased %v -> %v", i, prev, y)
		}
		if y > step+1e-12 {
			t.Fatalf("sample %d: overshoot %v", i, y)
		}
		prev = y
	}
	if math.Abs(prev-step) > 1e-9 {
		t.Fatalf("did not converge: got %v want %v", prev, step)
	}
}

func TestResetZeroesOutput(t *testing.T) {
	f, err := New(48000, 500)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 100; i++ {
		f.ProcessSample(1)
	}
	f.Reset()

	if f.Last() != 0 {
		t.Fatalf("Last after reset = %v", f.Last())
	}
	if y := f.ProcessSample(0); y != 0 {
		t.Fatalf("first output after reset = %v, want 0", y)
	}
}

func TestProcessInPlaceMatchesSample(t *testing.T) {
	a, _ := New(44100, 2000)
	b, _ := New(44100, 2000)

	buf := []float64{1, -0.5, 0.25, 0, 0.75, -1}
	want := make([]float64, len(buf))
	for i, x := range buf {
		want[i] = a.ProcessSample(x)
	}

	b.ProcessInPlace(buf)
	for i := range buf {
		if buf[i] != want[i] {
			t.Fatalf("index %d: got %v want %v", i, buf[i], want[i])
		}
	}
}
