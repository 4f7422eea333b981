package host

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func wasmDescriptor(bin []byte, params ...ParameterSpec) *Descriptor {
	return &Descriptor{
		Name:       "wasm",
		Type:       TypeEffect,
		Runtime:    RuntimeWasm,
		Code:       b64(bin),
		Parameters: params,
	}
}

func TestWasmIdentityUnit(t *testing.T) {
	t.Parallel()

	h := newTestHost(t)
	u, err := h.Instantiate(context.Background(), wasmDescriptor(identityWasm()))
	require.NoError(t, err)
	defer u.Close(context.Background())

	src := []float64{0.5, -0.25, 0.125, 0}
	dst := make([]float64, len(src))
	u.Process(dst, src, 0)
	require.Equal(t, src, dst)
}

func TestWasmModuleBytesTakePrecedence(t *testing.T) {
	t.Parallel()

	h := newTestHost(t)
	d := wasmDescriptor(nil)
	d.Code = "not base64 at all"
	d.Module = identityWasm()

	u, err := h.Instantiate(context.Background(), d)
	require.NoError(t, err)
	require.NoError(t, u.Close(context.Background()))
}

func TestWasmSetParamAppliesAtBlockStart(t *testing.T) {
	t.Parallel()

	h := newTestHost(t)
	u, err := h.Instantiate(context.Background(),
		wasmDescriptor(gainWasm(), ParameterSpec{ID: "gain", Default: 0.5, Max: 1}))
	require.NoError(t, err)
	defer u.Close(context.Background())

	dst := make([]float64, 4)
	u.Process(dst, ones(4), 0)
	require.Equal(t, []float64{0.5, 0.5, 0.5, 0.5}, dst, "default applied at instantiation")

	require.True(t, u.SetParam("gain", 0.25))
	require.False(t, u.SetParam("other", 1))

	u.Process(dst, ones(4), 4)
	require.Equal(t, []float64{0.25, 0.25, 0.25, 0.25}, dst)

	v, ok := u.Value("gain")
	require.True(t, ok)
	require.Equal(t, 0.25, v)
}

func TestWasmEnvSampleRate(t *testing.T) {
	t.Parallel()

	h := newTestHost(t)
	u, err := h.Instantiate(context.Background(), wasmDescriptor(sampleRateWasm()))
	require.NoError(t, err)
	defer u.Close(context.Background())

	dst := make([]float64, 2)
	u.Process(dst, make([]float64, 2), 0)
	require.Equal(t, testSampleRate, dst[0])
}

func TestWasmTrapSilencesUnit(t *testing.T) {
	t.Parallel()

	h := newTestHost(t)
	u, err := h.Instantiate(context.Background(), wasmDescriptor(trapWasm()))
	require.NoError(t, err)
	defer u.Close(context.Background())

	dst := ones(8)
	u.Process(dst, ones(8), 0)
	for i, v := range dst {
		require.Zerof(t, v, "sample %d", i)
	}

	f, ok := u.(Failing)
	require.True(t, ok)
	require.Error(t, f.Err())

	dst = ones(8)
	u.Process(dst, ones(8), 8)
	require.Equal(t, make([]float64, 8), dst)
}

func TestWasmInstantiationErrors(t *testing.T) {
	t.Parallel()

	h := newTestHost(t)

	tests := []struct {
		name string
		d    *Descriptor
	}{
		{"bad base64", &Descriptor{Name: "x", Type: TypeEffect, Runtime: RuntimeWasm, Code: "%%%"}},
		{"not wasm", wasmDescriptor([]byte("hello"))},
		{"instrument without note_on", func() *Descriptor {
			d := wasmDescriptor(identityWasm())
			d.Type = TypeInstrument
			return d
		}()},
		{"wrong process signature", wasmDescriptor(concat(wasmHeader,
			[]byte{0x01, 0x05, 0x01, 0x60, 0x01, 0x7f, 0x00},
			[]byte{0x03, 0x02, 0x01, 0x00},
			[]byte{0x07, 0x0b, 0x01, 0x07, 'p', 'r', 'o', 'c', 'e', 's', 's', 0x00, 0x00},
			[]byte{0x0a, 0x04, 0x01, 0x02, 0x00, 0x0b},
		))},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.Instantiate(context.Background(), tc.d)
			require.ErrorIs(t, err, ErrInstantiation)
		})
	}
}

func TestExportedFuncMissing(t *testing.T) {
	t.Parallel()

	h := newTestHost(t)
	u, err := h.Instantiate(context.Background(), wasmDescriptor(identityWasm()))
	require.NoError(t, err)
	defer u.Close(context.Background())

	wu := u.(*wasmUnit)
	require.Nil(t, wu.setParam)
	require.Nil(t, wu.noteOn)
	require.Equal(t, "(f32)->(f32)", signature(wu.process.Definition().ParamTypes(), wu.process.Definition().ResultTypes()))
}
