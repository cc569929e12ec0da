// Package kernel provides raw pairwise-similarity providers over float64
// sample data held in gonum matrices. Every type implements the
// solver.Kernel[float64] contract (Size, Entry, WeightedSum) and is
// read-only after construction, so a single kernel can back training and
// any number of concurrent predictions.
package kernel

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Linear computes the plain inner product K(a, b) = dot(a, b).
// Rows of x are samples.
type Linear struct {
	x *mat.Dense
}

// NewLinear wraps the sample matrix without copying it.
func NewLinear(x *mat.Dense) *Linear {
	return &Linear{x: x}
}

func (k *Linear) Size() int {
	r, _ := k.x.Dims()
	return r
}

func (k *Linear) Entry(i, j int) float64 {
	return floats.Dot(k.x.RawRowView(i), k.x.RawRowView(j))
}

func (k *Linear) WeightedSum(weights, x []float64) float64 {
	var sum float64
	for i, w := range weights {
		if w == 0 {
			continue
		}
		sum += w * floats.Dot(k.x.RawRowView(i), x)
	}
	return sum
}

// Polynomial computes K(a, b) = (dot(a, b) + c0)^degree.
type Polynomial struct {
	x      *mat.Dense
	c0     float64
	degree float64
}

// NewPolynomial wraps the sample matrix with the given offset and degree.
func NewPolynomial(x *mat.Dense, c0, degree float64) *Polynomial {
	return &Polynomial{x: x, c0: c0, degree: degree}
}

func (k *Polynomial) Size() int {
	r, _ := k.x.Dims()
	return r
}

func (k *Polynomial) Entry(i, j int) float64 {
	return math.Pow(floats.Dot(k.x.RawRowView(i), k.x.RawRowView(j))+k.c0, k.degree)
}

func (k *Polynomial) WeightedSum(weights, x []float64) float64 {
	var sum float64
	for i, w := range weights {
		if w == 0 {
			continue
		}
		sum += w * math.Pow(floats.Dot(k.x.RawRowView(i), x)+k.c0, k.degree)
	}
	return sum
}

// Gaussian computes K(a, b) = exp(-||a-b||^2 / eps), with eps acting as a
// squared length scale. Squared row norms are cached at construction so an
// Entry costs one dot product.
type Gaussian struct {
	x   *mat.Dense
	eps float64
	sq  []float64
}

// NewGaussian wraps the sample matrix and precomputes the row norms.
func NewGaussian(x *mat.Dense, eps float64) *Gaussian {
	r, _ := x.Dims()
	sq := make([]float64, r)
	for i := 0; i < r; i++ {
		row := x.RawRowView(i)
		sq[i] = floats.Dot(row, row)
	}
	return &Gaussian{x: x, eps: eps, sq: sq}
}

func (k *Gaussian) Size() int {
	r, _ := k.x.Dims()
	return r
}

func (k *Gaussian) Entry(i, j int) float64 {
	d := k.sq[i] + k.sq[j] - 2*floats.Dot(k.x.RawRowView(i), k.x.RawRowView(j))
	return math.Exp(-d / k.eps)
}

func (k *Gaussian) WeightedSum(weights, x []float64) float64 {
	xsq := floats.Dot(x, x)
	var sum float64
	for i, w := range weights {
		if w == 0 {
			continue
		}
		d := k.sq[i] + xsq - 2*floats.Dot(k.x.RawRowView(i), x)
		sum += w * math.Exp(-d/k.eps)
	}
	return sum
}

// Precomputed serves kernel values from a caller-supplied Gram matrix. It
// keeps no sample data, so WeightedSum interprets its argument as the
// vector of kernel evaluations K(x_i, z) against the training set.
type Precomputed struct {
	q mat.Symmetric
}

// NewPrecomputed wraps a symmetric Gram matrix.
func NewPrecomputed(q mat.Symmetric) *Precomputed {
	return &Precomputed{q: q}
}

func (k *Precomputed) Size() int {
	return k.q.SymmetricDim()
}

func (k *Precomputed) Entry(i, j int) float64 {
	return k.q.At(i, j)
}

func (k *Precomputed) WeightedSum(weights, x []float64) float64 {
	return floats.Dot(weights, x)
}
