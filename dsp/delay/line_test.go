package delay

import (
	"math"
	"testing"
)

func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}

// --- construction and validation ---

func TestNewValidation(t *testing.T) {
	if _, err := New[float64](-1); err == nil {
		t.Fatal("expected error for maxDelay=-1")
	}

	d, err := New[float32](0)
	if err != nil {
		t.Fatal(err)
	}
	if d.Len() != 1 {
		t.Fatalf("Len: got %d want 1", d.Len())
	}
}

func TestCapacityIsMaxDelayPlusOne(t *testing.T) {
	d, err := New[float64](16)
	if err != nil {
		t.Fatal(err)
	}

	if d.Len() != 17 {
		t.Fatalf("Len: got %d want 17", d.Len())
	}
	if d.MaxDelay() != 16 {
		t.Fatalf("MaxDelay: got %d want 16", d.MaxDelay())
	}
}

// --- integer Read/Write ---

func TestReadZeroReturnsLastWrite(t *testing.T) {
	d, err := New[float64](7)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 40; i++ {
		v := float64(i)*0.37 - 3
		d.Write(v)
		if got := d.Read(0); got != v {
			t.Fatalf("step %d: Read(0)=%v want %v", i, got, v)
		}
	}
}

func TestReadHistory(t *testing.T) {
	d, err := New[float64](7)
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 20; i++ {
		d.Write(float64(i))
	}

	for k := 0; k <= 7; k++ {
		want := float64(20 - k)
		if got := d.Read(k); got != want {
			t.Fatalf("Read(%d)=%v want %v", k, got, want)
		}
	}
}

func TestReadClampsDelay(t *testing.T) {
	d, err := New[float64](3)
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 4; i++ {
		d.Write(float64(i))
	}

	if got := d.Read(100); got != 1 {
		t.Fatalf("Read(100)=%v want oldest sample 1", got)
	}
	if got := d.Read(-5); got != 4 {
		t.Fatalf("Read(-5)=%v want newest sample 4", got)
	}
}

// --- interpolated reads ---

func TestReadInterpolatedIntegralMatchesRead(t *testing.T) {
	d, err := New[float64](31)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 50; i++ {
		d.Write(math.Sin(float64(i) * 0.3))
	}

	for k := 0; k <= 31; k++ {
		if got, want := d.ReadInterpolated(float64(k)), d.Read(k); got != want {
			t.Fatalf("k=%d: interpolated %v want %v", k, got, want)
		}
	}
}

func TestReadInterpolatedHalfIsMean(t *testing.T) {
	d, err := New[float64](31)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 50; i++ {
		d.Write(math.Cos(float64(i)*0.11) + 0.2)
	}

	for k := 0; k < 31; k++ {
		want := 0.5 * (d.Read(k) + d.Read(k+1))
		got := d.ReadInterpolated(float64(k) + 0.5)
		if !approxEqual(got, want, 1e-12) {
			t.Fatalf("k=%d: got %v want %v", k, got, want)
		}
	}
}

func TestReadFractionalOnRamp(t *testing.T) {
	d, err := New[float64](15)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 16; i++ {
		d.Write(float64(i))
	}

	// Newest sample is 15, so a delay of 2.5 sits halfway between 13 and 12.
	got := d.ReadFractional(2.5)
	if !approxEqual(got, 12.5, 1e-9) {
		t.Fatalf("got %v want 12.5", got)
	}
}

func TestFloat32Line(t *testing.T) {
	d, err := New[float32](4)
	if err != nil {
		t.Fatal(err)
	}

	d.Write(1)
	d.Write(3)
	if got := d.ReadInterpolated(0.5); got != 2 {
		t.Fatalf("got %v want 2", got)
	}
}

func TestReset(t *testing.T) {
	d, err := New[float64](4)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 8; i++ {
		d.Write(1)
	}
	d.Reset()

	for k := 0; k <= 4; k++ {
		if got := d.Read(k); got != 0 {
			t.Fatalf("Read(%d) after reset = %v want 0", k, got)
		}
	}
}
