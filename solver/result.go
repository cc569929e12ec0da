package solver

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
)

// SvmResult is the immutable outcome of a solve run. Alpha carries the
// signed dual coefficients in the caller's sample order, Rho the bias term
// of the decision function, Obj the dual objective value, and R the
// Nu-formulation normalization term (HasR reports whether it is meaningful).
// A result is safe for concurrent use; Predict is pure.
type SvmResult[F Float] struct {
	Alpha []F
	Rho   F
	R     F
	HasR  bool
	Obj   F

	kernel Kernel[F]
}

// WithKernel attaches the raw kernel the model was trained on, enabling
// Predict. The fit builders do this automatically; it is only needed when
// driving SolverState directly or after Load.
func (r *SvmResult[F]) WithKernel(kernel Kernel[F]) *SvmResult[F] {
	r.kernel = kernel
	return r
}

// Predict evaluates the decision function
//
//	f(x) = sum_i Alpha_i * K(x_i, x) - Rho
//
// for an arbitrary sample x. A positive sign means the positive class for
// binary models and "inlier" for one-class models.
func (r *SvmResult[F]) Predict(x []F) F {
	return r.kernel.WeightedSum(r.Alpha, x) - r.Rho
}

// SupportVectors returns the indices of samples with nonzero dual
// coefficient. Only these contribute to the decision function.
func (r *SvmResult[F]) SupportVectors() []int {
	var sv []int
	for i, a := range r.Alpha {
		if a != 0 {
			sv = append(sv, i)
		}
	}
	return sv
}

func (r *SvmResult[F]) String() string {
	return fmt.Sprintf("SVM solution: %d support vectors of %d samples, rho %v, objective %v",
		len(r.SupportVectors()), len(r.Alpha), r.Rho, r.Obj)
}

// svmResultState is the versioned serialization envelope of a trained model.
type svmResultState[F Float] struct {
	Version int
	Alpha   []F
	Rho     F
	R       F
	HasR    bool
	Obj     F
}

const resultStateVersion = 1

// Save writes the model coefficients in gob format. The kernel is not
// serialized: it owns the training data and is reattached on Load.
func (r *SvmResult[F]) Save(w io.Writer) error {
	state := svmResultState[F]{
		Version: resultStateVersion,
		Alpha:   r.Alpha,
		Rho:     r.Rho,
		R:       r.R,
		HasR:    r.HasR,
		Obj:     r.Obj,
	}
	return gob.NewEncoder(w).Encode(state)
}

// Load reads a model saved with Save and reattaches the kernel it was
// trained on. The kernel size must match the stored coefficient count.
func Load[F Float](r io.Reader, kernel Kernel[F]) (*SvmResult[F], error) {
	var state svmResultState[F]
	if err := gob.NewDecoder(r).Decode(&state); err != nil {
		return nil, err
	}
	if state.Version != resultStateVersion {
		return nil, errors.New("solver: unsupported model state version")
	}
	if kernel != nil && kernel.Size() != len(state.Alpha) {
		return nil, fmt.Errorf("solver: kernel size %d does not match %d stored coefficients",
			kernel.Size(), len(state.Alpha))
	}
	return &SvmResult[F]{
		Alpha:  state.Alpha,
		Rho:    state.Rho,
		R:      state.R,
		HasR:   state.HasR,
		Obj:    state.Obj,
		kernel: kernel,
	}, nil
}
