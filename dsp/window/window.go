package window

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-vecmath"
)

// Type identifies a window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeHamming
	TypeBlackman
	TypeBlackmanHarris
)

var typeNames = map[Type]string{
	TypeRectangular:    "rectangular",
	TypeHann:           "hann",
	TypeHamming:        "hamming",
	TypeBlackman:       "blackman",
	TypeBlackmanHarris: "blackmanharris",
}

// Cosine-sum coefficients a0..a3; odd terms are subtracted.
var coefficients = map[Type][]float64{
	TypeRectangular:    {1},
	TypeHann:           {0.5, 0.5},
	TypeHamming:        {0.54, 0.46},
	TypeBlackman:       {0.42, 0.5, 0.08},
	TypeBlackmanHarris: {0.35875, 0.48829, 0.14128, 0.01168},
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseType resolves a window name such as "hann" or "blackmanharris".
func ParseType(name string) (Type, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for t, n := range typeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("window: unsupported type %q", name)
}

// Option configures window generation.
type Option func(*config)

type config struct {
	periodic bool
}

// WithPeriodic generates the DFT-even form used for spectral analysis.
func WithPeriodic() Option {
	return func(c *config) { c.periodic = true }
}

// Generate returns length coefficients of window t. Unknown types and
// non-positive lengths yield nil.
func Generate(t Type, length int, opts ...Option) []float64 {
	coeffs, ok := coefficients[t]
	if !ok || length <= 0 {
		return nil
	}

	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	out := make([]float64, length)
	if length == 1 {
		out[0] = 1
		return out
	}

	denom := float64(length - 1)
	if cfg.periodic {
		denom = float64(length)
	}

	for n := range out {
		x := 2 * math.Pi * float64(n) / denom
		sign := 1.0
		sum := 0.0
		for k, a := range coeffs {
			sum += sign * a * math.Cos(float64(k)*x)
			sign = -sign
		}
		out[n] = sum
	}

	return out
}

// CoherentGain returns the mean coefficient, the amplitude a windowed
// sinusoid keeps in its peak bin.
func CoherentGain(coeffs []float64) float64 {
	if len(coeffs) == 0 {
		return 0
	}
	return vecmath.Sum(coeffs) / float64(len(coeffs))
}

// ApplyInPlace multiplies samples by coeffs.
func ApplyInPlace(samples, coeffs []float64) error {
	if len(samples) != len(coeffs) {
		return errors.New("window: length mismatch")
	}
	vecmath.MulBlockInPlace(samples, coeffs)
	return nil
}
