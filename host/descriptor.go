package host

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"

	"github.com/cwbudde/algo-rack/dsp/core"
)

// UnitType is the declared role of a unit.
type UnitType string

const (
	TypeEffect     UnitType = "effect"
	TypeInstrument UnitType = "instrument"
	TypeUtility    UnitType = "utility"
)

// RuntimeKind selects the loader for a descriptor.
type RuntimeKind string

const (
	RuntimeHCL  RuntimeKind = "hcl"
	RuntimeWasm RuntimeKind = "wasm"
)

// ParamKind distinguishes continuous controls from on/off switches.
type ParamKind string

const (
	KindContinuous ParamKind = "continuous"
	KindToggle     ParamKind = "toggle"
)

// UnmarshalText accepts "range" as an alias for continuous.
func (k *ParamKind) UnmarshalText(text []byte) error {
	switch s := strings.ToLower(strings.TrimSpace(string(text))); s {
	case "", "continuous", "range":
		*k = KindContinuous
	case "toggle":
		*k = KindToggle
	default:
		return fmt.Errorf("unknown parameter kind %q", s)
	}
	return nil
}

var (
	paramIDPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	validUnits     = []string{"", "%", "ms", "Hz", "dB"}
)

// ParameterSpec describes one externally controllable parameter.
type ParameterSpec struct {
	ID      string    `yaml:"id" json:"id"`
	Name    string    `yaml:"name" json:"name"`
	Kind    ParamKind `yaml:"kind" json:"kind"`
	Default float64   `yaml:"default" json:"default"`
	Min     float64   `yaml:"min" json:"min"`
	Max     float64   `yaml:"max" json:"max"`
	Step    float64   `yaml:"step" json:"step"`
	Unit    string    `yaml:"unit" json:"unit,omitempty"`
	Affects string    `yaml:"affects" json:"affects,omitempty"`
}

// Normalize maps v into the parameter's domain. Toggles collapse to 0 or 1
// at 0.5; continuous values are clamped to [Min, Max] and snapped to Step
// when Step > 0. Non-finite values yield the default.
func (p ParameterSpec) Normalize(v float64) float64 {
	if !core.IsFinite(v) {
		v = p.Default
	}

	if p.Kind == KindToggle {
		if v >= 0.5 {
			return 1
		}
		return 0
	}

	v = core.Clamp(v, p.Min, p.Max)
	if p.Step > 0 {
		v = p.Min + math.Round((v-p.Min)/p.Step)*p.Step
		v = core.Clamp(v, p.Min, p.Max)
	}

	return v
}

func (p ParameterSpec) validate() error {
	var errs []error

	if !paramIDPattern.MatchString(p.ID) {
		errs = append(errs, fmt.Errorf("parameter id %q must be an identifier", p.ID))
	}
	if p.Kind != "" && p.Kind != KindContinuous && p.Kind != KindToggle {
		errs = append(errs, fmt.Errorf("parameter %q: unknown kind %q", p.ID, p.Kind))
	}
	if !slices.Contains(validUnits, p.Unit) {
		errs = append(errs, fmt.Errorf("parameter %q: unknown unit %q", p.ID, p.Unit))
	}
	for _, v := range []float64{p.Default, p.Min, p.Max, p.Step} {
		if !core.IsFinite(v) {
			errs = append(errs, fmt.Errorf("parameter %q: non-finite value", p.ID))
			break
		}
	}
	if p.Kind != KindToggle {
		if p.Min > p.Max {
			errs = append(errs, fmt.Errorf("parameter %q: min %g > max %g", p.ID, p.Min, p.Max))
		} else if p.Default < p.Min || p.Default > p.Max {
			errs = append(errs, fmt.Errorf("parameter %q: default %g outside [%g, %g]", p.ID, p.Default, p.Min, p.Max))
		}
		if p.Step < 0 {
			errs = append(errs, fmt.Errorf("parameter %q: negative step", p.ID))
		}
	}

	return errors.Join(errs...)
}

// Descriptor is the external description of a processing unit.
type Descriptor struct {
	Name        string          `yaml:"name" json:"name"`
	Type        UnitType        `yaml:"type" json:"type"`
	Runtime     RuntimeKind     `yaml:"runtime" json:"runtime,omitempty"`
	Code        string          `yaml:"code" json:"code"`
	Parameters  []ParameterSpec `yaml:"parameters" json:"parameters"`
	SignalChain []string        `yaml:"signal_chain" json:"signal_chain,omitempty"`

	// Module holds raw WebAssembly bytes loaded from a file reference.
	// When empty, wasm descriptors carry the module base64-encoded in Code.
	Module []byte `yaml:"-" json:"-"`
}

// RuntimeOrDefault returns the runtime, defaulting to hcl.
func (d *Descriptor) RuntimeOrDefault() RuntimeKind {
	if d.Runtime == "" {
		return RuntimeHCL
	}
	return d.Runtime
}

// Param returns the parameter with the given id.
func (d *Descriptor) Param(id string) (ParameterSpec, bool) {
	for _, p := range d.Parameters {
		if p.ID == id {
			return p, true
		}
	}
	return ParameterSpec{}, false
}

// ParamIndex returns the position of id in Parameters, or -1.
func (d *Descriptor) ParamIndex(id string) int {
	for i, p := range d.Parameters {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Defaults returns the normalized default value of every parameter.
func (d *Descriptor) Defaults() map[string]float64 {
	out := make(map[string]float64, len(d.Parameters))
	for _, p := range d.Parameters {
		out[p.ID] = p.Normalize(p.Default)
	}
	return out
}

// Validate checks the structural contract. The returned error wraps
// ErrInvalidDescriptor and joins every problem found.
func (d *Descriptor) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil descriptor", ErrInvalidDescriptor)
	}

	var errs []error

	switch d.Type {
	case TypeEffect, TypeInstrument, TypeUtility:
	default:
		errs = append(errs, fmt.Errorf("unknown unit type %q", d.Type))
	}

	switch d.RuntimeOrDefault() {
	case RuntimeHCL:
		if strings.TrimSpace(d.Code) == "" && d.Type != TypeInstrument {
			errs = append(errs, errors.New("empty code"))
		}
	case RuntimeWasm:
		if len(d.Module) == 0 && strings.TrimSpace(d.Code) == "" {
			errs = append(errs, errors.New("wasm descriptor has neither module bytes nor code"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown runtime %q", d.Runtime))
	}

	seen := make(map[string]struct{}, len(d.Parameters))
	for _, p := range d.Parameters {
		if _, dup := seen[p.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate parameter id %q", p.ID))
			continue
		}
		seen[p.ID] = struct{}{}

		if err := p.validate(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidDescriptor, d.Name, err)
	}

	return nil
}

// Equal reports whether two descriptors describe the same unit.
func (d *Descriptor) Equal(o *Descriptor) bool {
	if d == o {
		return true
	}
	if d == nil || o == nil {
		return false
	}

	return d.Name == o.Name &&
		d.Type == o.Type &&
		d.RuntimeOrDefault() == o.RuntimeOrDefault() &&
		d.Code == o.Code &&
		slices.Equal(d.Parameters, o.Parameters) &&
		slices.Equal(d.SignalChain, o.SignalChain) &&
		slices.Equal(d.Module, o.Module)
}
