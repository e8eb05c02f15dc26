package physics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// PolyvalSample evaluates a polynomial with coefficients ordered highest
// degree first, by Horner's rule.
func PolyvalSample(coeffs []float64, x float64) float64 {
	var y float64
	for _, c := range coeffs {
		y = y*x + c
	}
	return y
}

// Polyval evaluates the polynomial elementwise over x.
func Polyval(coeffs, x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = PolyvalSample(coeffs, v)
	}
	return out
}

// Polyfit fits a polynomial of the given degree to (x, y) by linear least
// squares, returning coefficients ordered highest degree first.
func Polyfit(x, y []float64, degree int) ([]float64, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("polyfit: length mismatch %d != %d", len(x), len(y))
	}
	if len(x) <= degree {
		return nil, fmt.Errorf("polyfit: %d points cannot constrain degree %d", len(x), degree)
	}

	// Vandermonde design matrix, lowest order column first.
	a := mat.NewDense(len(x), degree+1, nil)
	for i, v := range x {
		p := 1.0
		for j := 0; j <= degree; j++ {
			a.Set(i, j, p)
			p *= v
		}
	}
	b := mat.NewVecDense(len(y), y)

	var sol mat.VecDense
	if err := sol.SolveVec(a, b); err != nil {
		return nil, fmt.Errorf("polyfit: %w", err)
	}

	coeffs := make([]float64, degree+1)
	for j := 0; j <= degree; j++ {
		coeffs[degree-j] = sol.AtVec(j)
	}
	return coeffs, nil
}
