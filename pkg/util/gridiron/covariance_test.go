package gridiron

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func randomSeries(r *rand.Rand, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = r.NormFloat64()*20 + 5
	}
	return s
}

func TestCovarianceWorkedExample(t *testing.T) {
	c, err := Covariance([]float64{1, 2, 3, 4, 5}, []float64{5, 4, 3, 2, 1})
	require.NoError(t, err)
	assert.Equal(t, -2.5, c)
}

func TestCovarianceOfSelfIsSampleVariance(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for n := 2; n < 40; n += 5 {
		a := randomSeries(r, n)
		c, err := Covariance(a, a)
		require.NoError(t, err)
		assert.InDelta(t, stat.Variance(a, nil), c, 1e-9)
	}
}

func TestCovarianceIsSymmetric(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	for i := 0; i < 20; i++ {
		a := randomSeries(r, 12)
		b := randomSeries(r, 12)
		ab, err := Covariance(a, b)
		require.NoError(t, err)
		ba, err := Covariance(b, a)
		require.NoError(t, err)
		assert.Equal(t, ab, ba)
		assert.InDelta(t, stat.Covariance(a, b, nil), ab, 1e-9)
	}
}

func TestCovarianceErrors(t *testing.T) {
	_, err := Covariance([]float64{1}, []float64{2})
	assert.ErrorIs(t, err, ErrDegenerateInput)

	_, err = Covariance(nil, nil)
	assert.ErrorIs(t, err, ErrDegenerateInput)

	_, err = Covariance([]float64{1, 2, 3}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrInvalidInput)

	// a length mismatch is reported before the degenerate case
	_, err = Covariance([]float64{1}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCovarianceConstantSeriesIsZero(t *testing.T) {
	c, err := Covariance([]float64{4, 4, 4}, []float64{1, 9, -3})
	require.NoError(t, err)
	assert.Zero(t, c)
}
