package host

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-rack/dsp/synth"
)

const testSampleRate = 48000.0

func newTestHost(t *testing.T) *Host {
	t.Helper()

	h, err := New(context.Background(), testSampleRate,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMaxBlockSize(256))
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close(context.Background()) })

	return h
}

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

var wasmHeader = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// identityWasm exports process(x) = x.
func identityWasm() []byte {
	return concat(wasmHeader,
		[]byte{0x01, 0x06, 0x01, 0x60, 0x01, 0x7d, 0x01, 0x7d},
		[]byte{0x03, 0x02, 0x01, 0x00},
		[]byte{0x07, 0x0b, 0x01, 0x07, 'p', 'r', 'o', 'c', 'e', 's', 's', 0x00, 0x00},
		[]byte{0x0a, 0x06, 0x01, 0x04, 0x00, 0x20, 0x00, 0x0b},
	)
}

// trapWasm exports a process function that executes unreachable.
func trapWasm() []byte {
	return concat(wasmHeader,
		[]byte{0x01, 0x06, 0x01, 0x60, 0x01, 0x7d, 0x01, 0x7d},
		[]byte{0x03, 0x02, 0x01, 0x00},
		[]byte{0x07, 0x0b, 0x01, 0x07, 'p', 'r', 'o', 'c', 'e', 's', 's', 0x00, 0x00},
		[]byte{0x0a, 0x05, 0x01, 0x03, 0x00, 0x00, 0x0b},
	)
}

// gainWasm exports process(x) = x*g and set_param(i, v) { g = v } with g
// starting at 1.
func gainWasm() []byte {
	return concat(wasmHeader,
		[]byte{0x01, 0x0b, 0x02, 0x60, 0x01, 0x7d, 0x01, 0x7d, 0x60, 0x02, 0x7f, 0x7d, 0x00},
		[]byte{0x03, 0x03, 0x02, 0x00, 0x01},
		[]byte{0x06, 0x09, 0x01, 0x7d, 0x01, 0x43, 0x00, 0x00, 0x80, 0x3f, 0x0b},
		[]byte{0x07, 0x17, 0x02,
			0x07, 'p', 'r', 'o', 'c', 'e', 's', 's', 0x00, 0x00,
			0x09, 's', 'e', 't', '_', 'p', 'a', 'r', 'a', 'm', 0x00, 0x01},
		[]byte{0x0a, 0x10, 0x02,
			0x07, 0x00, 0x20, 0x00, 0x23, 0x00, 0x94, 0x0b,
			0x06, 0x00, 0x20, 0x01, 0x24, 0x00, 0x0b},
	)
}

// sampleRateWasm exports process(x) = env.sample_rate().
func sampleRateWasm() []byte {
	return concat(wasmHeader,
		[]byte{0x01, 0x0a, 0x02, 0x60, 0x01, 0x7d, 0x01, 0x7d, 0x60, 0x00, 0x01, 0x7d},
		[]byte{0x02, 0x13, 0x01,
			0x03, 'e', 'n', 'v',
			0x0b, 's', 'a', 'm', 'p', 'l', 'e', '_', 'r', 'a', 't', 'e',
			0x00, 0x01},
		[]byte{0x03, 0x02, 0x01, 0x00},
		[]byte{0x07, 0x0b, 0x01, 0x07, 'p', 'r', 'o', 'c', 'e', 's', 's', 0x00, 0x01},
		[]byte{0x0a, 0x06, 0x01, 0x04, 0x00, 0x10, 0x00, 0x0b},
	)
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func b64(bin []byte) string {
	return base64.StdEncoding.EncodeToString(bin)
}

type eventSlice = []synth.Event

func synthEvent(at int64) synth.Event {
	return synth.Event{At: at, Kind: synth.NoteOn, FreqHz: 440}
}
