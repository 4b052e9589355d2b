package gridiron

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Covariance returns the Bessel-corrected sample covariance of a and b.
// a and b must be the same length and hold at least two observations.
func Covariance(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: sequences differ in length (%d != %d)", ErrInvalidInput, len(a), len(b))
	}
	n := len(a)
	if n < 2 {
		return 0, fmt.Errorf("%w: covariance needs at least 2 observations, got %d", ErrDegenerateInput, n)
	}

	meanA := stat.Mean(a, nil)
	meanB := stat.Mean(b, nil)

	var sum float64
	for i := range a {
		sum += (a[i] - meanA) * (b[i] - meanB)
	}
	return sum / float64(n-1), nil
}
