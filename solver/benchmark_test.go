package solver

import (
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/svmlab/gosvm/kernel"
)

func benchmarkData(n int) (*mat.Dense, []bool) {
	rng := rand.New(rand.NewSource(99))
	x := mat.NewDense(2*n, 2, nil)
	targets := make([]bool, 2*n)
	for i := 0; i < 2*n; i++ {
		offset := 2.0
		if i < n {
			offset = -2.0
			targets[i] = true
		}
		x.Set(i, 0, offset+rng.NormFloat64())
		x.Set(i, 1, offset+rng.NormFloat64())
	}
	return x, targets
}

func BenchmarkFitC(b *testing.B) {
	x, targets := benchmarkData(100)
	gauss := kernel.NewGaussian(x, 10.0)
	params := SolverParams[float64]{Eps: 1e-3}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := FitC(params, gauss, targets, 1.0, 1.0); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFitCShrinking(b *testing.B) {
	x, targets := benchmarkData(100)
	gauss := kernel.NewGaussian(x, 10.0)
	params := SolverParams[float64]{Eps: 1e-3, Shrinking: true}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := FitC(params, gauss, targets, 1.0, 1.0); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFitNu(b *testing.B) {
	x, targets := benchmarkData(100)
	gauss := kernel.NewGaussian(x, 10.0)
	params := SolverParams[float64]{Eps: 1e-3}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := FitNu(params, gauss, targets, 0.1); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFitOneClass(b *testing.B) {
	x, _ := benchmarkData(100)
	gauss := kernel.NewGaussian(x, 10.0)
	params := SolverParams[float64]{Eps: 1e-3}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := FitOneClass(params, gauss, 0.1); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkPredict(b *testing.B) {
	x, targets := benchmarkData(100)
	gauss := kernel.NewGaussian(x, 10.0)
	res, err := FitC(SolverParams[float64]{Eps: 1e-3}, gauss, targets, 1.0, 1.0)
	if err != nil {
		b.Fatal(err)
	}
	pt := []float64{0.5, -0.5}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		res.Predict(pt)
	}
}
