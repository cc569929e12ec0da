package solver

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gramKernel is a minimal precomputed kernel used for white-box tests. Its
// WeightedSum treats x as the vector of kernel evaluations against the
// training set, like a precomputed Gram matrix would.
type gramKernel[F Float] struct {
	q [][]F
}

func (k *gramKernel[F]) Size() int        { return len(k.q) }
func (k *gramKernel[F]) Entry(i, j int) F { return k.q[i][j] }
func (k *gramKernel[F]) WeightedSum(weights []F, x []F) F {
	var sum F
	for i := range weights {
		sum += weights[i] * x[i]
	}
	return sum
}

func identityGram[F Float](n int) *gramKernel[F] {
	q := make([][]F, n)
	for i := range q {
		q[i] = make([]F, n)
		q[i][i] = 1
	}
	return &gramKernel[F]{q: q}
}

func TestSmallQPKnownSolution(t *testing.T) {
	// With K = I and one sample per class the dual reduces to
	// min t^2 - 2t over t in [0, 1], so both alphas saturate at 1,
	// rho is 0 and the objective is -1.
	params := SolverParams[float64]{Eps: 1e-6}
	res, err := FitC[float64](params, identityGram[float64](2), []bool{true, false}, 1.0, 1.0)
	require.NoError(t, err)

	require.Len(t, res.Alpha, 2)
	assert.InDelta(t, 1.0, res.Alpha[0], 1e-9)
	assert.InDelta(t, -1.0, res.Alpha[1], 1e-9)
	assert.InDelta(t, 0.0, res.Rho, 1e-9)
	assert.InDelta(t, -1.0, res.Obj, 1e-9)
	assert.False(t, res.HasR)
}

func TestPermutableKernelSigns(t *testing.T) {
	raw := &gramKernel[float64]{q: [][]float64{{4, 2}, {2, 3}}}
	pk := NewPermutableKernel[float64](raw, []bool{true, false})

	buf := make([]float64, 2)
	assert.Equal(t, []float64{4, -2}, pk.Row(buf, 0, 2))
	assert.Equal(t, []float64{-2, 3}, pk.Row(buf, 1, 2))
	assert.Equal(t, []float64{4, 3}, pk.Diag())

	pk.SwapIndex(0, 1)
	assert.Equal(t, []float64{3, 4}, pk.Diag())
	assert.Equal(t, []float64{3, -2}, pk.Row(buf, 0, 2))
	assert.Equal(t, []float64{-2, 4}, pk.Row(buf, 1, 2))
}

func TestPermutableKernelOneClassIsSignFree(t *testing.T) {
	raw := &gramKernel[float64]{q: [][]float64{{4, 2}, {2, 3}}}
	pk := NewPermutableKernelOneClass[float64](raw)

	buf := make([]float64, 2)
	assert.Equal(t, []float64{4, 2}, pk.Row(buf, 0, 2))
	assert.Equal(t, []float64{4, 3}, pk.Diag())

	pk.SwapIndex(0, 1)
	assert.Equal(t, []float64{2, 4}, pk.Row(buf, 1, 2))
	assert.Equal(t, []float64{3, 4}, pk.Diag())
}

func TestNuInitialAlpha(t *testing.T) {
	targets := []bool{true, true, false, false}

	// nu*n/2 = 1 per class: one saturated entry each.
	alpha := nuInitialAlpha(targets, 0.5)
	assert.Equal(t, []float64{1, 0, 1, 0}, alpha)

	// nu*n/2 = 1.5 per class: one saturated, one fractional entry each.
	alpha = nuInitialAlpha(targets, 0.75)
	assert.Equal(t, []float64{1, 0.5, 1, 0.5}, alpha)
}

func TestOneClassInitialAlpha(t *testing.T) {
	alpha := oneClassInitialAlpha[float64](10, 0.25)
	assert.Equal(t, []float64{1, 1, 0.5, 0, 0, 0, 0, 0, 0, 0}, alpha)

	var sum float64
	for _, a := range alpha {
		sum += a
	}
	assert.InDelta(t, 2.5, sum, 1e-12)

	// nu near 0 leaves almost everything at zero.
	alpha = oneClassInitialAlpha[float64](10, 0.01)
	assert.InDelta(t, 0.1, alpha[0], 1e-12)
	for _, a := range alpha[1:] {
		assert.Zero(t, a)
	}

	// nu near 1 saturates almost every bound.
	alpha = oneClassInitialAlpha[float64](10, 0.95)
	for _, a := range alpha[:9] {
		assert.Equal(t, 1.0, a)
	}
	assert.InDelta(t, 0.5, alpha[9], 1e-9)
}

func TestNuDegenerateSolution(t *testing.T) {
	// With every sample in the positive class there is no opposing margin,
	// so the Nu normalization term cannot come out positive and rescaling
	// must be refused.
	params := SolverParams[float64]{Eps: 1e-3}
	_, err := FitNu(params, identityGram[float64](4), []bool{true, true, true, true}, 0.5)
	require.ErrorIs(t, err, ErrDegenerateSolution)
}

func TestFloat32Instantiation(t *testing.T) {
	params := SolverParams[float32]{Eps: 1e-3}
	res, err := FitC[float32](params, identityGram[float32](4), []bool{true, true, false, false}, 1.0, 1.0)
	require.NoError(t, err)

	var sum float32
	for _, a := range res.Alpha {
		assert.False(t, math.IsNaN(float64(a)))
		assert.LessOrEqual(t, float64(a), 1.0+1e-6)
		assert.GreaterOrEqual(t, float64(a), -1.0-1e-6)
		sum += a
	}
	// equality constraint: the signed alphas cancel
	assert.InDelta(t, 0, float64(sum), 1e-4)
}

func TestIterationCapReturnsBestEffort(t *testing.T) {
	params := SolverParams[float64]{Eps: 1e-12, MaxIter: 1}
	res, err := FitC[float64](params, identityGram[float64](6),
		[]bool{true, true, true, false, false, false}, 1.0, 1.0)
	require.NoError(t, err)

	for _, a := range res.Alpha {
		require.False(t, math.IsNaN(a))
		assert.LessOrEqual(t, math.Abs(a), 1.0+1e-9)
	}
	require.False(t, math.IsNaN(res.Rho))
}
