package effects

import (
	"math"

	"github.com/cwbudde/algo-rack/dsp/core"
)

const maxSaturatorGain = 5.0

// Saturate applies tanh(x*g)/tanh(g) with g = 1 + 5*drive. drive is
// clamped to [0, 1] and a non-finite drive counts as 0. The curve is odd,
// monotonic and maps [-1, 1] onto [-1, 1]; larger inputs stay bounded by
// 1/tanh(g).
func Saturate(x, drive float64) float64 {
	if !core.IsFinite(drive) {
		drive = 0
	}
	g := 1 + core.Clamp(drive, 0, 1)*maxSaturatorGain
	return math.Tanh(x*g) / math.Tanh(g)
}

// Saturator is an analog-style tanh waveshaper with a stored drive.
type Saturator struct {
	drive float64
	gain  float64
	norm  float64
}

// NewSaturator returns a saturator at zero drive.
func NewSaturator() *Saturator {
	s := &Saturator{}
	s.SetDrive(0)
	return s
}

// SetDrive sets the drive control; values are clamped to [0, 1].
func (s *Saturator) SetDrive(drive float64) {
	if !core.IsFinite(drive) {
		drive = 0
	}
	s.drive = core.Clamp(drive, 0, 1)
	s.gain = 1 + s.drive*maxSaturatorGain
	s.norm = 1 / math.Tanh(s.gain)
}

// Drive returns the drive control.
func (s *Saturator) Drive() float64 { return s.drive }

// ProcessSample processes one sample.
func (s *Saturator) ProcessSample(x float64) float64 {
	return math.Tanh(x*s.gain) * s.norm
}

// ProcessInPlace processes samples in place.
func (s *Saturator) ProcessInPlace(buf []float64) {
	for i, x := range buf {
		buf[i] = s.ProcessSample(x)
	}
}
