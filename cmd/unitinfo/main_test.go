package main

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"

	"github.com/cwbudde/algo-rack/host"
)

func TestProbeInstrumentFindsNote(t *testing.T) {
	d, err := host.LoadDescriptorFile("../../units/keys.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	res, err := probe(context.Background(), d, 44100, 8192, 441)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}

	if res.PeakDB < -40 || res.PeakDB > 0.1 {
		t.Fatalf("peak %.2f dBFS out of range", res.PeakDB)
	}
	binHz := 44100.0 / 4096
	if math.Abs(res.PeakHz-441) > 2*binHz {
		t.Fatalf("strongest bin at %.1f Hz, want near 441", res.PeakHz)
	}
}

func TestProbeEffectImpulse(t *testing.T) {
	d, err := host.LoadDescriptorFile("../../units/crunch.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	res, err := probe(context.Background(), d, 48000, 4096, 0)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if res.PeakDB <= -100 {
		t.Fatalf("impulse response is silent: %.2f dBFS", res.PeakDB)
	}
	if res.Failure != nil {
		t.Fatalf("unexpected fault: %v", res.Failure)
	}
}

func TestProbeRejectsEmptyLength(t *testing.T) {
	if _, err := probe(context.Background(), &host.Descriptor{Name: "x", Type: host.TypeInstrument}, 44100, 0, 220); err == nil {
		t.Fatal("expected error")
	}
}

func TestPrintParameters(t *testing.T) {
	d, err := host.LoadDescriptorFile("../../units/crunch.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	var buf bytes.Buffer
	if err := printParameters(&buf, d); err != nil {
		t.Fatalf("print: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"crunch (effect, hcl)", "echo_on", "toggle", "Hz"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTapSizeFor(t *testing.T) {
	tests := map[int]int{100: 256, 4096: 4096, 5000: 4096, 1 << 20: 16384}
	for frames, want := range tests {
		if got := tapSizeFor(frames); got != want {
			t.Errorf("tapSizeFor(%d) = %d, want %d", frames, got, want)
		}
	}
}
