package physics

import (
	"fmt"

	"gonum.org/v1/gonum/interp"
)

// Spline is a natural cubic spline through a set of calibration points,
// evaluable with its first derivative.
type Spline struct {
	cub interp.NaturalCubic
}

// NewNaturalSpline fits a natural cubic spline to the given points. The xs
// must be strictly increasing.
func NewNaturalSpline(xs, ys []float64) (*Spline, error) {
	s := &Spline{}
	if err := s.cub.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("natural spline fit: %w", err)
	}
	return s, nil
}

// At evaluates the spline at x.
func (s *Spline) At(x float64) float64 {
	return s.cub.Predict(x)
}

// Derivative evaluates the spline's first derivative at x.
func (s *Spline) Derivative(x float64) float64 {
	return s.cub.PredictDerivative(x)
}

// Eval evaluates the spline elementwise over xs.
func (s *Spline) Eval(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = s.cub.Predict(x)
	}
	return out
}
