package device

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"
)

func counter() (Source, *int) {
	calls := 0
	return SourceFunc(func(dst []float64) {
		calls++
		for i := range dst {
			dst[i] = 0.5
		}
	}), &calls
}

func TestManualPullsOnlyWhenRunning(t *testing.T) {
	m, err := NewManual(48000)
	if err != nil {
		t.Fatal(err)
	}

	src, calls := counter()
	m.Attach(src)

	buf := []float64{9, 9}
	m.Pull(buf)
	if buf[0] != 0 || *calls != 0 {
		t.Fatalf("suspended device rendered: %v calls=%d", buf, *calls)
	}

	if err := m.Resume(context.Background()); err != nil {
		t.Fatal(err)
	}
	m.Pull(buf)
	if buf[0] != 0.5 || *calls != 1 || m.Frames() != 2 {
		t.Fatalf("got %v calls=%d frames=%d", buf, *calls, m.Frames())
	}

	if err := m.Suspend(); err != nil {
		t.Fatal(err)
	}
	if m.Running() {
		t.Fatal("still running after Suspend")
	}
}

func TestManualDenyResume(t *testing.T) {
	m, err := NewManual(48000)
	if err != nil {
		t.Fatal(err)
	}

	m.DenyResume(true)
	if err := m.Resume(context.Background()); !errors.Is(err, ErrResumeDenied) {
		t.Fatalf("got %v want ErrResumeDenied", err)
	}

	m.DenyResume(false)
	if err := m.Resume(context.Background()); err != nil {
		t.Fatal(err)
	}
	if m.Resumes() != 1 {
		t.Fatalf("resumes=%d", m.Resumes())
	}

	_ = m.Close()
	if err := m.Resume(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("got %v want ErrClosed", err)
	}
}

func TestNullPullsOnClock(t *testing.T) {
	n, err := NewNull(48000, 48)
	if err != nil {
		t.Fatal(err)
	}
	defer n.Close()

	src, _ := counter()
	n.Attach(src)

	if err := n.Resume(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := n.Resume(context.Background()); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for n.Frames() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if n.Frames() == 0 {
		t.Fatal("null device never pulled")
	}

	if err := n.Suspend(); err != nil {
		t.Fatal(err)
	}
	frames := n.Frames()
	time.Sleep(10 * time.Millisecond)
	if n.Frames() != frames {
		t.Fatal("pulled after Suspend")
	}
}

func TestNewNullRejectsBlockSize(t *testing.T) {
	if _, err := NewNull(48000, 0); err == nil {
		t.Fatal("expected error")
	}
}

func TestOtoReaderInterleaves(t *testing.T) {
	r := &otoReader{channels: 2, block: make([]float64, 3)}
	r.src.Store(&sourceRef{SourceFunc(func(dst []float64) {
		for i := range dst {
			dst[i] = 2
		}
	})})

	p := make([]byte, 5*2*bytesPerSample+3)
	n, err := r.Read(p)
	if err != nil {
		t.Fatal(err)
	}
	if n != 5*2*bytesPerSample {
		t.Fatalf("read %d bytes", n)
	}
	for off := 0; off < n; off += bytesPerSample {
		v := math.Float32frombits(binary.LittleEndian.Uint32(p[off:]))
		if v != 1 {
			t.Fatalf("offset %d: got %v want clamped 1", off, v)
		}
	}
}

func TestOtoReaderSilentWithoutSource(t *testing.T) {
	r := &otoReader{channels: 1, block: make([]float64, 4)}
	p := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	n, _ := r.Read(p)
	if n != 8 {
		t.Fatalf("read %d", n)
	}
	for i, b := range p {
		if b != 0 {
			t.Fatalf("byte %d = %d", i, b)
		}
	}
}
