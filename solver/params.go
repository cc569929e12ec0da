package solver

// Float is the set of floating point types the solver operates on. The whole
// optimizer is parameterized by it so callers can trade precision for memory
// on large kernel matrices.
type Float interface {
	~float32 | ~float64
}

// SolverParams configures the convergence behaviour of a solve run.
type SolverParams[F Float] struct {
	// Eps is the stopping tolerance: iteration ends once the maximal KKT
	// violation over all feasible pairs drops below it. Must be positive.
	Eps F
	// Shrinking enables active-set shrinking, which periodically removes
	// bound-pinned samples from working-set consideration.
	Shrinking bool
	// MaxIter caps the number of SMO iterations. Zero selects the default
	// max(10_000_000, 100*n). Hitting the cap yields a best-effort result,
	// not an error.
	MaxIter int
}

func (p *SolverParams[F]) maxIterations(n int) int {
	if p.MaxIter > 0 {
		return p.MaxIter
	}
	iter := 100 * n
	if iter < 10_000_000 {
		iter = 10_000_000
	}
	return iter
}
