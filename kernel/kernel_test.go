package kernel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

var samples = mat.NewDense(3, 2, []float64{
	1, 0,
	0, 2,
	1, 1,
})

func TestLinearEntries(t *testing.T) {
	k := NewLinear(samples)
	assert.Equal(t, 3, k.Size())
	assert.Equal(t, 1.0, k.Entry(0, 0))
	assert.Equal(t, 0.0, k.Entry(0, 1))
	assert.Equal(t, 2.0, k.Entry(1, 2))
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.Equal(t, k.Entry(i, j), k.Entry(j, i))
		}
	}
}

func TestLinearWeightedSum(t *testing.T) {
	k := NewLinear(samples)
	w := []float64{0.5, -1, 0}
	x := []float64{2, 1}
	// 0.5*dot((1,0),x) - 1*dot((0,2),x)
	assert.InDelta(t, 0.5*2-1*2, k.WeightedSum(w, x), 1e-12)
}

func TestPolynomialEntries(t *testing.T) {
	k := NewPolynomial(samples, 1.0, 2.0)
	// (dot((1,0),(1,1)) + 1)^2 = 4
	assert.InDelta(t, 4.0, k.Entry(0, 2), 1e-12)
	assert.InDelta(t, k.Entry(2, 0), k.Entry(0, 2), 1e-12)
}

func TestGaussianEntries(t *testing.T) {
	k := NewGaussian(samples, 2.0)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 1.0, k.Entry(i, i), 1e-12)
	}
	// ||(1,0)-(0,2)||^2 = 5
	assert.InDelta(t, math.Exp(-5.0/2.0), k.Entry(0, 1), 1e-12)
	assert.InDelta(t, k.Entry(1, 0), k.Entry(0, 1), 1e-12)
}

func TestGaussianWeightedSumMatchesEntries(t *testing.T) {
	k := NewGaussian(samples, 2.0)
	w := []float64{0.3, 0.2, -0.4}
	// Evaluating at a training row must reproduce the Entry-based sum.
	x := []float64{0, 2}
	want := w[0]*k.Entry(0, 1) + w[1]*k.Entry(1, 1) + w[2]*k.Entry(2, 1)
	assert.InDelta(t, want, k.WeightedSum(w, x), 1e-12)
}

func TestPrecomputed(t *testing.T) {
	q := mat.NewSymDense(2, []float64{4, 2, 2, 3})
	k := NewPrecomputed(q)
	assert.Equal(t, 2, k.Size())
	assert.Equal(t, 2.0, k.Entry(0, 1))
	// x is the vector of kernel evaluations against the training set
	assert.InDelta(t, 1.0*4+0.5*2, k.WeightedSum([]float64{1, 0.5}, []float64{4, 2}), 1e-12)
}
