package solver

import (
	"fmt"
	"math"
)

// FitC solves a binary classification problem with per-class penalty
// parameters. The dual has the form
//
//	min_a 1/2*a^T Q a - e^T a   s.t.  y^T a = 0,  0 <= a_i <= C_i
//
// with C_i = cpos for positive targets and cneg for negative ones. Both
// penalties must be positive. The returned alphas are signed by their
// target's label.
func FitC[F Float](params SolverParams[F], kernel Kernel[F], targets []bool, cpos, cneg F) (*SvmResult[F], error) {
	if err := validateProblem(params, kernel, len(targets)); err != nil {
		return nil, err
	}
	if !positiveFinite(cpos) || !positiveFinite(cneg) {
		return nil, fmt.Errorf("%w: penalties must be positive and finite, got cpos=%v cneg=%v",
			ErrInvalidParameter, cpos, cneg)
	}

	n := kernel.Size()
	alpha := make([]F, n)
	p := make([]F, n)
	bounds := make([]F, n)
	for i, t := range targets {
		p[i] = -1
		if t {
			bounds[i] = cpos
		} else {
			bounds[i] = cneg
		}
	}

	state := NewSolverState(alpha, p, targets, NewPermutableKernel(kernel, targets), bounds, params, false)
	res := state.Solve()

	// Alphas are nonnegative inside the solver; restore the label signs.
	for i, t := range targets {
		if !t {
			res.Alpha[i] = -res.Alpha[i]
		}
	}
	return res.WithKernel(kernel), nil
}

// FitNu solves a binary classification problem with the Nu
// parameterization, nu in (0, 1):
//
//	min_a 1/2*a^T Q a   s.t.  y^T a = 0,  0 <= a_i <= 1,  e^T a >= nu*n
//
// After solving, alpha, rho and the objective are divided by the
// normalization term r (r and r^2 respectively) so the model lives on the
// same decision-function scale as the C formulation. A vanishing r reports
// ErrDegenerateSolution.
func FitNu[F Float](params SolverParams[F], kernel Kernel[F], targets []bool, nu F) (*SvmResult[F], error) {
	if err := validateProblem(params, kernel, len(targets)); err != nil {
		return nil, err
	}
	if err := validateNu(nu); err != nil {
		return nil, err
	}

	n := kernel.Size()
	alpha := nuInitialAlpha(targets, nu)
	p := make([]F, n)
	bounds := make([]F, n)
	for i := range bounds {
		bounds[i] = 1
	}

	state := NewSolverState(alpha, p, targets, NewPermutableKernel(kernel, targets), bounds, params, true)
	res := state.Solve()

	if !(res.R > 0) {
		return nil, fmt.Errorf("%w: normalization term r=%v", ErrDegenerateSolution, res.R)
	}
	r := res.R
	for i, t := range targets {
		if !t {
			res.Alpha[i] = -res.Alpha[i]
		}
		res.Alpha[i] /= r
	}
	res.Rho /= r
	res.Obj /= r * r
	return res.WithKernel(kernel), nil
}

// FitOneClass solves the unlabeled novelty-detection problem: every sample
// belongs to one implicit class and nu in (0, 1) bounds the fraction of
// samples treated as outliers. The equality constraint sum(a_i) = nu*n is
// established by the initializer and preserved by every solver step, so no
// post-processing is needed.
func FitOneClass[F Float](params SolverParams[F], kernel Kernel[F], nu F) (*SvmResult[F], error) {
	if err := validateProblem(params, kernel, -1); err != nil {
		return nil, err
	}
	if err := validateNu(nu); err != nil {
		return nil, err
	}

	size := kernel.Size()
	alpha := oneClassInitialAlpha(size, nu)
	p := make([]F, size)
	bounds := make([]F, size)
	targets := make([]bool, size)
	for i := range bounds {
		bounds[i] = 1
		targets[i] = true
	}

	state := NewSolverState(alpha, p, targets, NewPermutableKernelOneClass[F](kernel), bounds, params, false)
	return state.Solve().WithKernel(kernel), nil
}

// nuInitialAlpha greedily distributes a dual mass of nu*n/2 over each class,
// capping every entry at 1; at most one entry per class ends up fractional.
func nuInitialAlpha[F Float](targets []bool, nu F) []F {
	n := len(targets)
	sumPos := nu * F(n) / 2
	sumNeg := sumPos
	alpha := make([]F, n)
	for i, t := range targets {
		if t {
			alpha[i] = min(1, sumPos)
			sumPos -= alpha[i]
		} else {
			alpha[i] = min(1, sumNeg)
			sumNeg -= alpha[i]
		}
	}
	return alpha
}

// oneClassInitialAlpha saturates the first floor(nu*n) entries, puts the
// fractional remainder on the next one and leaves the rest at zero, so that
// sum(alpha_i) = nu*n exactly.
func oneClassInitialAlpha[F Float](size int, nu F) []F {
	frac := int(nu * F(size))
	alpha := make([]F, size)
	for i := range alpha {
		switch {
		case i < frac:
			alpha[i] = 1
		case i == frac:
			alpha[i] = nu*F(size) - F(i)
		}
	}
	return alpha
}

func validateProblem[F Float](params SolverParams[F], kernel Kernel[F], nTargets int) error {
	if !positiveFinite(params.Eps) {
		return fmt.Errorf("%w: eps must be positive and finite, got %v", ErrInvalidParameter, params.Eps)
	}
	n := kernel.Size()
	if n == 0 {
		return fmt.Errorf("%w: empty sample set", ErrInvalidParameter)
	}
	if nTargets >= 0 && nTargets != n {
		return fmt.Errorf("%w: %d targets for %d samples", ErrInvalidParameter, nTargets, n)
	}
	return nil
}

func validateNu[F Float](nu F) error {
	if !(nu > 0) || !(nu < 1) {
		return fmt.Errorf("%w: nu must be in (0, 1), got %v", ErrInvalidParameter, nu)
	}
	return nil
}

func positiveFinite[F Float](v F) bool {
	f := float64(v)
	return f > 0 && !math.IsInf(f, 0)
}
