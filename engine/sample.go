package engine

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/cwbudde/algo-rack/dsp/interp"
)

//go:embed assets/loop.wav
var builtinLoop []byte

// DecodeSample decodes a PCM WAV asset to mono float64 samples at
// sampleRate. Multi-channel audio is averaged; other rates are resampled
// linearly, treating the asset as a loop.
func DecodeSample(data []byte, sampleRate float64) ([]float64, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, errors.New("sample: not a valid wav file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("sample: decode: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, errors.New("sample: missing format")
	}

	mono := downmix(buf)
	if len(mono) == 0 {
		return nil, errors.New("sample: no audio frames")
	}

	return resampleLoop(mono, float64(buf.Format.SampleRate), sampleRate), nil
}

func downmix(buf *audio.IntBuffer) []float64 {
	channels := buf.Format.NumChannels
	frames := len(buf.Data) / channels

	depth := buf.SourceBitDepth
	if depth <= 0 {
		depth = 16
	}
	scale := 1 / float64(int64(1)<<(depth-1))
	offset := 0.0
	if depth == 8 {
		offset = 128
	}

	out := make([]float64, frames)
	for i := range out {
		sum := 0.0
		for c := range channels {
			sum += (float64(buf.Data[i*channels+c]) - offset) * scale
		}
		out[i] = sum / float64(channels)
	}

	return out
}

func resampleLoop(in []float64, from, to float64) []float64 {
	if from == to {
		return in
	}

	n := int(float64(len(in))*to/from + 0.5)
	if n < 1 {
		n = 1
	}

	step := from / to
	out := make([]float64, n)
	for i := range out {
		p := float64(i) * step
		j := int(p)
		x0 := in[j%len(in)]
		x1 := in[(j+1)%len(in)]
		out[i] = interp.Linear2(p-float64(j), x0, x1)
	}

	return out
}
