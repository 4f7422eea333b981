package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/cwbudde/algo-rack/device"
	"github.com/cwbudde/algo-rack/host"
	"github.com/cwbudde/algo-rack/internal/graph"
)

type fakeTicker struct {
	c chan time.Time
}

func newFakeTicker() *fakeTicker { return &fakeTicker{c: make(chan time.Time)} }

func (f *fakeTicker) C() <-chan time.Time { return f.c }
func (f *fakeTicker) Stop()               {}

func (f *fakeTicker) tick(t *testing.T) {
	t.Helper()
	select {
	case f.c <- time.Now():
	case <-time.After(time.Second):
		t.Fatal("note timer did not accept tick")
	}
}

type note struct {
	freq float64
	at   int64
}

type rig struct {
	eng    *Engine
	dev    *device.Manual
	ticker *fakeTicker
	notes  chan note
	reader *sdkmetric.ManualReader
}

func newRig(t *testing.T, opts ...Option) *rig {
	t.Helper()

	dev, err := device.NewManual(DefaultSampleRate)
	require.NoError(t, err)

	r := &rig{
		dev:    dev,
		ticker: newFakeTicker(),
		notes:  make(chan note, 16),
		reader: sdkmetric.NewManualReader(),
	}

	base := []Option{
		WithDevice(dev),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(r.reader))),
		WithTicker(func(time.Duration) Ticker { return r.ticker }),
		WithNoteHook(func(freq float64, at int64) { r.notes <- note{freq, at} }),
	}

	r.eng, err = New(append(base, opts...)...)
	require.NoError(t, err)

	t.Cleanup(func() { _ = r.eng.Teardown(context.Background()) })

	return r
}

func (r *rig) init(t *testing.T) *rig {
	t.Helper()
	_, err := r.eng.Init(context.Background())
	require.NoError(t, err)
	return r
}

func (r *rig) pull(n int) []float64 {
	dst := make([]float64, n)
	r.dev.Pull(dst)
	return dst
}

func (r *rig) nextNote(t *testing.T) note {
	t.Helper()
	select {
	case n := <-r.notes:
		return n
	case <-time.After(time.Second):
		t.Fatal("no note triggered")
		return note{}
	}
}

// counter sums every data point of the named int64 counter.
func (r *rig) counter(t *testing.T, name string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, r.reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func trimEffect() *host.Descriptor {
	return &host.Descriptor{
		Name: "trim",
		Type: host.TypeEffect,
		Code: "stage \"trim\" {\n  type    = \"gain\"\n  gain_db = param.trim\n}",
		Parameters: []host.ParameterSpec{
			{ID: "trim", Default: 0, Min: -24, Max: 24, Unit: "dB"},
		},
	}
}

func keysInstrument() *host.Descriptor {
	return &host.Descriptor{
		Name: "keys",
		Type: host.TypeInstrument,
		Code: "voice {\n  waveform = \"sine\"\n  level    = param.level\n}",
		Parameters: []host.ParameterSpec{
			{ID: "level", Default: 0.3, Max: 1},
		},
	}
}

func sinkEdges(edges []graph.Edge) int {
	n := 0
	for _, e := range edges {
		if e.To == graph.NodeSink {
			n++
		}
	}
	return n
}
