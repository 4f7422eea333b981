package engine

import (
	"log/slog"
	"math/rand/v2"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/cwbudde/algo-rack/device"
	"github.com/cwbudde/algo-rack/dsp/effectchain"
	"github.com/cwbudde/algo-rack/monitor"
)

const (
	DefaultSampleRate = 44100.0
	DefaultBlockSize  = 512
)

// Option configures an Engine.
type Option func(*options)

type options struct {
	sampleRate float64
	blockSize  int
	tapSize    int
	sample     []byte
	logger     *slog.Logger
	meter      metric.MeterProvider
	openDevice func(sampleRate float64, blockSize int) (device.Device, error)
	newTicker  NewTickerFunc
	rng        *rand.Rand
	onNote     func(freqHz float64, at int64)
}

func defaultOptions() options {
	return options{
		sampleRate: DefaultSampleRate,
		blockSize:  DefaultBlockSize,
		tapSize:    monitor.DefaultSize,
		sample:     builtinLoop,
		logger:     slog.Default(),
		meter:      otel.GetMeterProvider(),
		openDevice: func(sr float64, block int) (device.Device, error) {
			return device.NewOto(sr, device.WithBlockSize(block))
		},
		newTicker: newTimeTicker,
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// WithSampleRate sets the fixed engine rate.
func WithSampleRate(sr float64) Option {
	return func(o *options) { o.sampleRate = sr }
}

// WithBlockSize bounds the frames processed per unit call.
func WithBlockSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.blockSize = min(n, effectchain.DefaultMaxBlockSize)
		}
	}
}

// WithTapSize sets the monitoring window length.
func WithTapSize(n int) Option {
	return func(o *options) { o.tapSize = n }
}

// WithSample replaces the built-in loop with an encoded WAV asset.
func WithSample(wav []byte) Option {
	return func(o *options) {
		if len(wav) > 0 {
			o.sample = wav
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		if mp != nil {
			o.meter = mp
		}
	}
}

// WithDevice uses d instead of opening the system output.
func WithDevice(d device.Device) Option {
	return func(o *options) {
		o.openDevice = func(float64, int) (device.Device, error) { return d, nil }
	}
}

// WithDeviceFactory sets how Init opens the output.
func WithDeviceFactory(open func(sampleRate float64, blockSize int) (device.Device, error)) Option {
	return func(o *options) {
		if open != nil {
			o.openDevice = open
		}
	}
}

// WithTicker replaces the wall-clock ticker driving instrument notes.
func WithTicker(fn NewTickerFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.newTicker = fn
		}
	}
}

// WithRand sets the pitch source for periodic notes.
func WithRand(r *rand.Rand) Option {
	return func(o *options) {
		if r != nil {
			o.rng = r
		}
	}
}

// WithNoteHook is called after every note trigger, on the timer goroutine.
func WithNoteHook(fn func(freqHz float64, at int64)) Option {
	return func(o *options) { o.onNote = fn }
}
