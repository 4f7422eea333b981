package host

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParameterNormalize(t *testing.T) {
	t.Parallel()

	cont := ParameterSpec{ID: "drive", Kind: KindContinuous, Default: 0.5, Min: 0, Max: 1, Step: 0.25}
	toggle := ParameterSpec{ID: "on", Kind: KindToggle, Default: 1, Max: 1}

	tests := []struct {
		name string
		spec ParameterSpec
		in   float64
		want float64
	}{
		{"in range snaps", cont, 0.3, 0.25},
		{"above max", cont, 4, 1},
		{"below min", cont, -2, 0},
		{"nan yields default", cont, math.NaN(), 0.5},
		{"inf yields default", cont, math.Inf(1), 0.5},
		{"toggle high", toggle, 0.5, 1},
		{"toggle low", toggle, 0.49, 0},
		{"toggle nan yields default", toggle, math.NaN(), 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.InDelta(t, tc.want, tc.spec.Normalize(tc.in), 1e-12)
		})
	}
}

func TestDescriptorValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Descriptor {
		return &Descriptor{
			Name: "fx",
			Type: TypeEffect,
			Code: `stage "g" { type = "gain" }`,
			Parameters: []ParameterSpec{
				{ID: "level", Default: 0, Min: -24, Max: 6, Unit: "dB"},
			},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(d *Descriptor)
	}{
		{"unknown type", func(d *Descriptor) { d.Type = "mixer" }},
		{"unknown runtime", func(d *Descriptor) { d.Runtime = "lua" }},
		{"empty effect code", func(d *Descriptor) { d.Code = "  " }},
		{"bad id", func(d *Descriptor) { d.Parameters[0].ID = "1level" }},
		{"bad unit", func(d *Descriptor) { d.Parameters[0].Unit = "V" }},
		{"min above max", func(d *Descriptor) { d.Parameters[0].Min = 10 }},
		{"default outside", func(d *Descriptor) { d.Parameters[0].Default = 12 }},
		{"duplicate id", func(d *Descriptor) { d.Parameters = append(d.Parameters, d.Parameters[0]) }},
		{"wasm without module", func(d *Descriptor) { d.Runtime = RuntimeWasm; d.Code = "" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			d := valid()
			tc.mutate(d)
			err := d.Validate()
			require.Error(t, err)
			require.ErrorIs(t, err, ErrInvalidDescriptor)
		})
	}
}

func TestDescriptorValidateNil(t *testing.T) {
	t.Parallel()

	var d *Descriptor
	require.ErrorIs(t, d.Validate(), ErrInvalidDescriptor)
}

func TestInstrumentMayOmitCode(t *testing.T) {
	t.Parallel()

	d := &Descriptor{Name: "keys", Type: TypeInstrument}
	require.NoError(t, d.Validate())
}

func TestDescriptorDefaults(t *testing.T) {
	t.Parallel()

	d := &Descriptor{
		Parameters: []ParameterSpec{
			{ID: "a", Default: 3, Min: 0, Max: 10, Step: 2},
			{ID: "b", Kind: KindToggle, Default: 0.7, Max: 1},
		},
	}

	want := map[string]float64{"a": 4, "b": 1}
	if diff := cmp.Diff(want, d.Defaults()); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, 1, d.ParamIndex("b"))
	require.Equal(t, -1, d.ParamIndex("c"))
}

func TestDescriptorEqual(t *testing.T) {
	t.Parallel()

	a := &Descriptor{Name: "x", Type: TypeEffect, Code: "c", Parameters: []ParameterSpec{{ID: "p", Max: 1}}}
	b := cloneDescriptor(a)
	require.True(t, a.Equal(b))

	b.Runtime = RuntimeHCL
	require.True(t, a.Equal(b), "empty runtime defaults to hcl")

	b.Parameters[0].Max = 2
	require.False(t, a.Equal(b))
	require.False(t, a.Equal(nil))
}

func TestParseDescriptor(t *testing.T) {
	t.Parallel()

	src := []byte(`
name: crunch
type: effect
code: |
  stage "drive" {
    type  = "saturator"
    drive = param.drive
  }
parameters:
  - id: drive
    name: Drive
    kind: range
    default: 0.2
    min: 0
    max: 1
    step: 0.01
    unit: "%"
`)

	d, err := ParseDescriptor(src, "")
	require.NoError(t, err)

	want := &Descriptor{
		Name: "crunch",
		Type: TypeEffect,
		Code: "stage \"drive\" {\n  type  = \"saturator\"\n  drive = param.drive\n}\n",
		Parameters: []ParameterSpec{
			{ID: "drive", Name: "Drive", Kind: KindContinuous, Default: 0.2, Max: 1, Step: 0.01, Unit: "%"},
		},
	}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Fatalf("descriptor mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDescriptorRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	_, err := ParseDescriptor([]byte("name: x\ntype: effect\ncode: c\ncolour: red\n"), "")
	require.ErrorIs(t, err, ErrInvalidDescriptor)
}

func TestLoadDescriptorFileResolvesModule(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "id.wasm"), identityWasm(), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "id.yaml"),
		[]byte("name: id\ntype: effect\nruntime: wasm\nmodule: id.wasm\n"), 0o600))

	d, err := LoadDescriptorFile(filepath.Join(dir, "id.yaml"))
	require.NoError(t, err)
	require.Equal(t, identityWasm(), d.Module)

	_, err = LoadDescriptorFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrInvalidDescriptor))
}
