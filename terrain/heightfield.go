package terrain

import (
	"math"

	"github.com/milk9111/hillroll/common"
)

// Octave is one sinusoidal perturbation layer.
type Octave struct {
	Amplitude float64 `json:"amplitude" yaml:"amplitude"`
	Frequency float64 `json:"frequency" yaml:"frequency"`
}

// Shape parameterizes the height function. The seed only shifts octave phases, so
// every level built from the same Shape shares its overall silhouette.
type Shape struct {
	HilltopX   float64   `json:"hilltop_x" yaml:"hilltop_x"`
	BaseHeight float64   `json:"base_height" yaml:"base_height"`
	SlopeGrade float64   `json:"slope_grade" yaml:"slope_grade"`
	HillHeight float64   `json:"hill_height" yaml:"hill_height"`
	HillWidth  float64   `json:"hill_width" yaml:"hill_width"`
	Octaves    [4]Octave `json:"octaves" yaml:"octaves"`

	// TroughDepth raises the ground away from z=0 over TroughWidth, leaving a
	// channel along the roll line. Zero width disables it.
	TroughDepth float64 `json:"trough_depth" yaml:"trough_depth"`
	TroughWidth float64 `json:"trough_width" yaml:"trough_width"`
}

// DefaultShape is a long downhill run starting at a rounded summit near x=-60.
func DefaultShape() Shape {
	return Shape{
		HilltopX:   -60,
		BaseHeight: 30,
		SlopeGrade: 0.25,
		HillHeight: 6,
		HillWidth:  12,
		Octaves: [4]Octave{
			{Amplitude: 1.6, Frequency: 0.05},
			{Amplitude: 0.8, Frequency: 0.11},
			{Amplitude: 0.35, Frequency: 0.23},
			{Amplitude: 0.12, Frequency: 0.47},
		},
	}
}

// Height evaluates DefaultShape.
func Height(x, z float64, seed int64) float64 {
	return defaultShape.Height(x, z, seed)
}

var defaultShape = DefaultShape()

// Height returns the terrain elevation above the base plane at (x, z). It is pure and
// never negative; the render mesh and the physics lattice both sample it.
func (s Shape) Height(x, z float64, seed int64) float64 {
	dx := x - s.HilltopX
	y := s.BaseHeight - s.SlopeGrade*math.Abs(dx)
	if s.HillWidth > 0 {
		y += s.HillHeight * math.Exp(-(dx*dx)/(2*s.HillWidth*s.HillWidth))
	}
	if s.TroughWidth > 0 {
		y += s.TroughDepth * (1 - math.Exp(-(z*z)/(2*s.TroughWidth*s.TroughWidth)))
	}
	for k, o := range s.Octaves {
		phase := octavePhase(seed, k)
		y += o.Amplitude * math.Sin(o.Frequency*x+phase) * math.Cos(o.Frequency*z+phase)
	}
	return math.Max(common.FiniteOr(y, 0), 0)
}

// octavePhase hashes (seed, octave) to a phase in [0, 2π). Every bit of the seed
// feeds a splitmix64 finalizer.
func octavePhase(seed int64, k int) float64 {
	z := uint64(seed) + uint64(k+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z ^= z >> 31
	return float64(z>>11) / (1 << 53) * 2 * math.Pi
}
