// Package solver implements the Sequential Minimal Optimization (SMO)
// algorithm for the dual quadratic program underlying Support Vector Machine
// training:
//
//	min_a 1/2*a^T Q a + p^T a   s.t.  y^T a = delta,  0 <= a_i <= bound_i
//
// with Q_ij = y_i*y_j*K(x_i, x_j) the effective kernel matrix. One optimizer
// serves three formulations through the FitC, FitNu and FitOneClass builders,
// which differ only in bounds, linear term, initial point and
// post-processing. Working-set selection follows the second-order heuristic
// of Fan et al., JMLR 6 (2005), pp. 1889-1918.
package solver

import "math"

// tau floors the quadratic coefficient of a two-variable subproblem so that
// a non-positive-definite kernel cannot produce a division by zero.
const tau = 1e-12

type alphaStatus int8

const (
	statusLower alphaStatus = iota
	statusUpper
	statusFree
)

// SolverState owns the mutable state of one solve run: the alpha vector, the
// gradient, and the active-set bookkeeping. It is exclusively owned by a
// single Solve invocation and must not be shared. The kernel adapter is a
// type parameter rather than an interface field so its Row calls dispatch
// statically in the inner loop.
type SolverState[F Float, Q QuadMatrix[F]] struct {
	params SolverParams[F]
	q      Q
	qd     []F // diagonal of Q, aliased to q.Diag()

	alpha     []F
	grad      []F
	gradFixed []F // gradient contribution of bound-pinned alphas
	p         []F
	bounds    []F
	signs     []int8
	status    []alphaStatus

	activeSet  []int
	activeSize int
	n          int

	nuMode   bool
	unshrunk bool

	rowI, rowJ []F // scratch buffers for kernel row retrieval
}

// NewSolverState prepares a solve run. It takes ownership of the alpha, p
// and bounds slices; the initial alpha must already satisfy the box and
// equality constraints of the chosen formulation. nuMode switches working-set
// selection, shrinking and rho computation to the Nu-formulation variants,
// which additionally produce the normalization term r.
func NewSolverState[F Float, Q QuadMatrix[F]](alpha, p []F, targets []bool, q Q, bounds []F, params SolverParams[F], nuMode bool) *SolverState[F, Q] {
	n := len(alpha)
	s := &SolverState[F, Q]{
		params:     params,
		q:          q,
		qd:         q.Diag(),
		alpha:      alpha,
		grad:       make([]F, n),
		gradFixed:  make([]F, n),
		p:          p,
		bounds:     bounds,
		signs:      make([]int8, n),
		status:     make([]alphaStatus, n),
		activeSet:  make([]int, n),
		activeSize: n,
		n:          n,
		nuMode:     nuMode,
		rowI:       make([]F, n),
		rowJ:       make([]F, n),
	}
	for i := 0; i < n; i++ {
		if targets[i] {
			s.signs[i] = 1
		} else {
			s.signs[i] = -1
		}
		s.activeSet[i] = i
		s.updateStatus(i)
	}
	return s
}

func (s *SolverState[F, Q]) updateStatus(i int) {
	switch {
	case s.alpha[i] >= s.bounds[i]:
		s.status[i] = statusUpper
	case s.alpha[i] <= 0:
		s.status[i] = statusLower
	default:
		s.status[i] = statusFree
	}
}

func (s *SolverState[F, Q]) isUpper(i int) bool { return s.status[i] == statusUpper }
func (s *SolverState[F, Q]) isLower(i int) bool { return s.status[i] == statusLower }
func (s *SolverState[F, Q]) isFree(i int) bool  { return s.status[i] == statusFree }

// swapIndex moves sample j into active position i (and vice versa). All
// per-sample buffers are indexed by active position, so shrinking is a pure
// permutation and never invalidates the caller's original sample order.
func (s *SolverState[F, Q]) swapIndex(i, j int) {
	s.q.SwapIndex(i, j)
	s.signs[i], s.signs[j] = s.signs[j], s.signs[i]
	s.grad[i], s.grad[j] = s.grad[j], s.grad[i]
	s.gradFixed[i], s.gradFixed[j] = s.gradFixed[j], s.gradFixed[i]
	s.status[i], s.status[j] = s.status[j], s.status[i]
	s.alpha[i], s.alpha[j] = s.alpha[j], s.alpha[i]
	s.p[i], s.p[j] = s.p[j], s.p[i]
	s.bounds[i], s.bounds[j] = s.bounds[j], s.bounds[i]
	s.activeSet[i], s.activeSet[j] = s.activeSet[j], s.activeSet[i]
}

// initGradient makes the gradient consistent with the initial alpha:
// grad_i = p_i + sum_j alpha_j * Q_ij. gradFixed accumulates the rows of
// upper-bounded samples scaled by their bound, so the gradient of shrunk
// samples can later be reconstructed without their kernel rows.
func (s *SolverState[F, Q]) initGradient() {
	for i := 0; i < s.n; i++ {
		s.grad[i] = s.p[i]
		s.gradFixed[i] = 0
	}
	for i := 0; i < s.n; i++ {
		if s.isLower(i) {
			continue
		}
		qi := s.q.Row(s.rowI, i, s.n)
		ai := s.alpha[i]
		for j := 0; j < s.n; j++ {
			s.grad[j] += ai * qi[j]
		}
		if s.isUpper(i) {
			ci := s.bounds[i]
			for j := 0; j < s.n; j++ {
				s.gradFixed[j] += ci * qi[j]
			}
		}
	}
}

// reconstructGradient restores the gradient entries of shrunk samples from
// gradFixed and the free alphas. The cheaper of the two loop orders is
// chosen based on the free-variable count.
func (s *SolverState[F, Q]) reconstructGradient() {
	if s.activeSize == s.n {
		return
	}
	for j := s.activeSize; j < s.n; j++ {
		s.grad[j] = s.gradFixed[j] + s.p[j]
	}
	nrFree := 0
	for j := 0; j < s.activeSize; j++ {
		if s.isFree(j) {
			nrFree++
		}
	}
	if nrFree*s.n > 2*s.activeSize*(s.n-s.activeSize) {
		for i := s.activeSize; i < s.n; i++ {
			qi := s.q.Row(s.rowI, i, s.activeSize)
			for j := 0; j < s.activeSize; j++ {
				if s.isFree(j) {
					s.grad[i] += s.alpha[j] * qi[j]
				}
			}
		}
	} else {
		for i := 0; i < s.activeSize; i++ {
			if !s.isFree(i) {
				continue
			}
			qi := s.q.Row(s.rowI, i, s.n)
			ai := s.alpha[i]
			for j := s.activeSize; j < s.n; j++ {
				s.grad[j] += ai * qi[j]
			}
		}
	}
}

// Solve runs the SMO iteration to convergence (or to the iteration cap) and
// returns the raw result. Alpha entries are reported in the caller's
// original sample order and are nonnegative; formulation-specific sign
// restoration and scaling happen in the fit builders. The returned result
// has no kernel attached, see SvmResult.WithKernel.
func (s *SolverState[F, Q]) Solve() *SvmResult[F] {
	s.initGradient()

	maxIter := s.params.maxIterations(s.n)
	counter := min(s.n, 1000) + 1

	for iter := 0; iter < maxIter; iter++ {
		if counter--; counter == 0 {
			counter = min(s.n, 1000)
			if s.params.Shrinking {
				if s.nuMode {
					s.doShrinkingNu()
				} else {
					s.doShrinking()
				}
			}
		}

		i, j, ok := s.selectPair()
		if !ok {
			// The shrunk problem is optimal. Reconstruct the full
			// gradient and re-check before declaring convergence.
			s.reconstructGradient()
			s.activeSize = s.n
			if i, j, ok = s.selectPair(); !ok {
				break
			}
			counter = 1 // shrink again on the next iteration
		}

		s.step(i, j)
	}

	if s.activeSize < s.n {
		s.reconstructGradient()
		s.activeSize = s.n
	}

	var rho, r F
	if s.nuMode {
		rho, r = s.calculateRhoNu()
	} else {
		rho = s.calculateRho()
	}

	// obj = 1/2 alpha^T Q alpha + p^T alpha, from the final gradient.
	var v F
	for i := 0; i < s.n; i++ {
		v += s.alpha[i] * (s.grad[i] + s.p[i])
	}

	alpha := make([]F, s.n)
	for i := 0; i < s.n; i++ {
		alpha[s.activeSet[i]] = s.alpha[i]
	}

	return &SvmResult[F]{
		Alpha: alpha,
		Rho:   rho,
		R:     r,
		HasR:  s.nuMode,
		Obj:   v / 2,
	}
}

func (s *SolverState[F, Q]) selectPair() (int, int, bool) {
	if s.nuMode {
		return s.selectWorkingSetNu()
	}
	return s.selectWorkingSet()
}

// selectWorkingSet picks the maximal violating pair: i maximizes
// -y_i*grad_i over I_up, j minimizes the second-order estimate of the
// objective decrease over I_low. Strict comparisons break ties towards the
// lowest index, keeping the run deterministic.
func (s *SolverState[F, Q]) selectWorkingSet() (int, int, bool) {
	negInf := F(math.Inf(-1))
	gmax, gmax2 := negInf, negInf
	gmaxIdx, gminIdx := -1, -1
	objDiffMin := F(math.Inf(1))

	for t := 0; t < s.activeSize; t++ {
		if s.signs[t] == 1 {
			if !s.isUpper(t) && -s.grad[t] > gmax {
				gmax = -s.grad[t]
				gmaxIdx = t
			}
		} else {
			if !s.isLower(t) && s.grad[t] > gmax {
				gmax = s.grad[t]
				gmaxIdx = t
			}
		}
	}

	var qi []F
	if gmaxIdx != -1 {
		qi = s.q.Row(s.rowI, gmaxIdx, s.activeSize)
	}

	for j := 0; j < s.activeSize; j++ {
		if s.signs[j] == 1 {
			if s.isLower(j) {
				continue
			}
			gradDiff := gmax + s.grad[j]
			if s.grad[j] > gmax2 {
				gmax2 = s.grad[j]
			}
			if gradDiff > 0 {
				quadCoef := s.qd[gmaxIdx] + s.qd[j] - 2*F(s.signs[gmaxIdx])*qi[j]
				if quadCoef <= 0 {
					quadCoef = tau
				}
				if objDiff := -(gradDiff * gradDiff) / quadCoef; objDiff < objDiffMin {
					gminIdx = j
					objDiffMin = objDiff
				}
			}
		} else {
			if s.isUpper(j) {
				continue
			}
			gradDiff := gmax - s.grad[j]
			if -s.grad[j] > gmax2 {
				gmax2 = -s.grad[j]
			}
			if gradDiff > 0 {
				quadCoef := s.qd[gmaxIdx] + s.qd[j] + 2*F(s.signs[gmaxIdx])*qi[j]
				if quadCoef <= 0 {
					quadCoef = tau
				}
				if objDiff := -(gradDiff * gradDiff) / quadCoef; objDiff < objDiffMin {
					gminIdx = j
					objDiffMin = objDiff
				}
			}
		}
	}

	if gmax+gmax2 < s.params.Eps || gminIdx == -1 {
		return -1, -1, false
	}
	return gmaxIdx, gminIdx, true
}

// selectWorkingSetNu is the Nu-formulation variant: the pair must share a
// label, so violating pairs are tracked per class and the second-order
// scan picks the better of the two.
func (s *SolverState[F, Q]) selectWorkingSetNu() (int, int, bool) {
	negInf := F(math.Inf(-1))
	gmaxp, gmaxp2 := negInf, negInf
	gmaxn, gmaxn2 := negInf, negInf
	gmaxpIdx, gmaxnIdx, gminIdx := -1, -1, -1
	objDiffMin := F(math.Inf(1))

	for t := 0; t < s.activeSize; t++ {
		if s.signs[t] == 1 {
			if !s.isUpper(t) && -s.grad[t] > gmaxp {
				gmaxp = -s.grad[t]
				gmaxpIdx = t
			}
		} else {
			if !s.isLower(t) && s.grad[t] > gmaxn {
				gmaxn = s.grad[t]
				gmaxnIdx = t
			}
		}
	}

	var qip, qin []F
	if gmaxpIdx != -1 {
		qip = s.q.Row(s.rowI, gmaxpIdx, s.activeSize)
	}
	if gmaxnIdx != -1 {
		qin = s.q.Row(s.rowJ, gmaxnIdx, s.activeSize)
	}

	for j := 0; j < s.activeSize; j++ {
		if s.signs[j] == 1 {
			if s.isLower(j) {
				continue
			}
			gradDiff := gmaxp + s.grad[j]
			if s.grad[j] > gmaxp2 {
				gmaxp2 = s.grad[j]
			}
			if gradDiff > 0 {
				quadCoef := s.qd[gmaxpIdx] + s.qd[j] - 2*qip[j]
				if quadCoef <= 0 {
					quadCoef = tau
				}
				if objDiff := -(gradDiff * gradDiff) / quadCoef; objDiff < objDiffMin {
					gminIdx = j
					objDiffMin = objDiff
				}
			}
		} else {
			if s.isUpper(j) {
				continue
			}
			gradDiff := gmaxn - s.grad[j]
			if -s.grad[j] > gmaxn2 {
				gmaxn2 = -s.grad[j]
			}
			if gradDiff > 0 {
				quadCoef := s.qd[gmaxnIdx] + s.qd[j] - 2*qin[j]
				if quadCoef <= 0 {
					quadCoef = tau
				}
				if objDiff := -(gradDiff * gradDiff) / quadCoef; objDiff < objDiffMin {
					gminIdx = j
					objDiffMin = objDiff
				}
			}
		}
	}

	if max(gmaxp+gmaxp2, gmaxn+gmaxn2) < s.params.Eps || gminIdx == -1 {
		return -1, -1, false
	}
	if s.signs[gminIdx] == 1 {
		return gmaxpIdx, gminIdx, true
	}
	return gmaxnIdx, gminIdx, true
}

// step applies the clipped two-variable update to (i, j) and keeps the
// gradient of all active samples consistent, using only the two kernel rows
// just fetched. The equality constraint is preserved by construction.
func (s *SolverState[F, Q]) step(i, j int) {
	qi := s.q.Row(s.rowI, i, s.activeSize)
	qj := s.q.Row(s.rowJ, j, s.activeSize)

	ci := s.bounds[i]
	cj := s.bounds[j]
	oldAi := s.alpha[i]
	oldAj := s.alpha[j]

	if s.signs[i] != s.signs[j] {
		quadCoef := s.qd[i] + s.qd[j] + 2*qi[j]
		if quadCoef <= 0 {
			quadCoef = tau
		}
		delta := (-s.grad[i] - s.grad[j]) / quadCoef
		diff := s.alpha[i] - s.alpha[j]
		s.alpha[i] += delta
		s.alpha[j] += delta

		if diff > 0 {
			if s.alpha[j] < 0 {
				s.alpha[j] = 0
				s.alpha[i] = diff
			}
		} else {
			if s.alpha[i] < 0 {
				s.alpha[i] = 0
				s.alpha[j] = -diff
			}
		}
		if diff > ci-cj {
			if s.alpha[i] > ci {
				s.alpha[i] = ci
				s.alpha[j] = ci - diff
			}
		} else {
			if s.alpha[j] > cj {
				s.alpha[j] = cj
				s.alpha[i] = cj + diff
			}
		}
	} else {
		quadCoef := s.qd[i] + s.qd[j] - 2*qi[j]
		if quadCoef <= 0 {
			quadCoef = tau
		}
		delta := (s.grad[i] - s.grad[j]) / quadCoef
		sum := s.alpha[i] + s.alpha[j]
		s.alpha[i] -= delta
		s.alpha[j] += delta

		if sum > ci {
			if s.alpha[i] > ci {
				s.alpha[i] = ci
				s.alpha[j] = sum - ci
			}
		} else {
			if s.alpha[j] < 0 {
				s.alpha[j] = 0
				s.alpha[i] = sum
			}
		}
		if sum > cj {
			if s.alpha[j] > cj {
				s.alpha[j] = cj
				s.alpha[i] = sum - cj
			}
		} else {
			if s.alpha[i] < 0 {
				s.alpha[i] = 0
				s.alpha[j] = sum
			}
		}
	}

	deltaAi := s.alpha[i] - oldAi
	deltaAj := s.alpha[j] - oldAj
	for k := 0; k < s.activeSize; k++ {
		s.grad[k] += qi[k]*deltaAi + qj[k]*deltaAj
	}

	upperI := s.isUpper(i)
	upperJ := s.isUpper(j)
	s.updateStatus(i)
	s.updateStatus(j)
	if upperI != s.isUpper(i) {
		qi = s.q.Row(s.rowI, i, s.n)
		if upperI {
			for k := 0; k < s.n; k++ {
				s.gradFixed[k] -= ci * qi[k]
			}
		} else {
			for k := 0; k < s.n; k++ {
				s.gradFixed[k] += ci * qi[k]
			}
		}
	}
	if upperJ != s.isUpper(j) {
		qj = s.q.Row(s.rowJ, j, s.n)
		if upperJ {
			for k := 0; k < s.n; k++ {
				s.gradFixed[k] -= cj * qj[k]
			}
		} else {
			for k := 0; k < s.n; k++ {
				s.gradFixed[k] += cj * qj[k]
			}
		}
	}
}

func (s *SolverState[F, Q]) beShrunk(i int, gmax1, gmax2 F) bool {
	switch {
	case s.isUpper(i):
		if s.signs[i] == 1 {
			return -s.grad[i] > gmax1
		}
		return -s.grad[i] > gmax2
	case s.isLower(i):
		if s.signs[i] == 1 {
			return s.grad[i] > gmax2
		}
		return s.grad[i] > gmax1
	default:
		return false
	}
}

// doShrinking compacts samples that are pinned at a bound and far from the
// current maximal violating pair into the inactive suffix. Once the
// violation falls under 10*Eps the full set is restored (unshrinking) so a
// false early termination on the shrunk problem is impossible.
func (s *SolverState[F, Q]) doShrinking() {
	negInf := F(math.Inf(-1))
	gmax1, gmax2 := negInf, negInf

	for i := 0; i < s.activeSize; i++ {
		if s.signs[i] == 1 {
			if !s.isUpper(i) && -s.grad[i] > gmax1 {
				gmax1 = -s.grad[i]
			}
			if !s.isLower(i) && s.grad[i] > gmax2 {
				gmax2 = s.grad[i]
			}
		} else {
			if !s.isUpper(i) && -s.grad[i] > gmax2 {
				gmax2 = -s.grad[i]
			}
			if !s.isLower(i) && s.grad[i] > gmax1 {
				gmax1 = s.grad[i]
			}
		}
	}

	if !s.unshrunk && gmax1+gmax2 <= s.params.Eps*10 {
		s.unshrunk = true
		s.reconstructGradient()
		s.activeSize = s.n
	}

	for i := 0; i < s.activeSize; i++ {
		if !s.beShrunk(i, gmax1, gmax2) {
			continue
		}
		s.activeSize--
		for s.activeSize > i {
			if !s.beShrunk(s.activeSize, gmax1, gmax2) {
				s.swapIndex(i, s.activeSize)
				break
			}
			s.activeSize--
		}
	}
}

func (s *SolverState[F, Q]) beShrunkNu(i int, gmax1, gmax2, gmax3, gmax4 F) bool {
	switch {
	case s.isUpper(i):
		if s.signs[i] == 1 {
			return -s.grad[i] > gmax1
		}
		return -s.grad[i] > gmax4
	case s.isLower(i):
		if s.signs[i] == 1 {
			return s.grad[i] > gmax2
		}
		return s.grad[i] > gmax3
	default:
		return false
	}
}

// doShrinkingNu tracks the violating-pair bounds per class, since Nu-mode
// working sets never mix labels.
func (s *SolverState[F, Q]) doShrinkingNu() {
	negInf := F(math.Inf(-1))
	gmax1, gmax2 := negInf, negInf
	gmax3, gmax4 := negInf, negInf

	for i := 0; i < s.activeSize; i++ {
		if !s.isUpper(i) {
			if s.signs[i] == 1 {
				if -s.grad[i] > gmax1 {
					gmax1 = -s.grad[i]
				}
			} else if -s.grad[i] > gmax4 {
				gmax4 = -s.grad[i]
			}
		}
		if !s.isLower(i) {
			if s.signs[i] == 1 {
				if s.grad[i] > gmax2 {
					gmax2 = s.grad[i]
				}
			} else if s.grad[i] > gmax3 {
				gmax3 = s.grad[i]
			}
		}
	}

	if !s.unshrunk && max(gmax1+gmax2, gmax3+gmax4) <= s.params.Eps*10 {
		s.unshrunk = true
		s.reconstructGradient()
		s.activeSize = s.n
	}

	for i := 0; i < s.activeSize; i++ {
		if !s.beShrunkNu(i, gmax1, gmax2, gmax3, gmax4) {
			continue
		}
		s.activeSize--
		for s.activeSize > i {
			if !s.beShrunkNu(s.activeSize, gmax1, gmax2, gmax3, gmax4) {
				s.swapIndex(i, s.activeSize)
				break
			}
			s.activeSize--
		}
	}
}

// calculateRho averages y_i*grad_i over the free (on-margin) samples; with
// no free sample it falls back to the midpoint of the feasible interval.
func (s *SolverState[F, Q]) calculateRho() F {
	ub := F(math.Inf(1))
	lb := F(math.Inf(-1))
	nrFree := 0
	var sumFree F

	for i := 0; i < s.activeSize; i++ {
		yg := F(s.signs[i]) * s.grad[i]
		switch {
		case s.isLower(i):
			if s.signs[i] > 0 {
				ub = min(ub, yg)
			} else {
				lb = max(lb, yg)
			}
		case s.isUpper(i):
			if s.signs[i] < 0 {
				ub = min(ub, yg)
			} else {
				lb = max(lb, yg)
			}
		default:
			nrFree++
			sumFree += yg
		}
	}

	if nrFree > 0 {
		return sumFree / F(nrFree)
	}
	return (ub + lb) / 2
}

// calculateRhoNu computes the per-class margin positions r1 and r2; the
// bias is their half difference and the normalization term r their half sum.
func (s *SolverState[F, Q]) calculateRhoNu() (rho, r F) {
	inf := F(math.Inf(1))
	ub1, ub2 := inf, inf
	lb1, lb2 := -inf, -inf
	nrFree1, nrFree2 := 0, 0
	var sumFree1, sumFree2 F

	for i := 0; i < s.activeSize; i++ {
		if s.signs[i] == 1 {
			switch {
			case s.isLower(i):
				ub1 = min(ub1, s.grad[i])
			case s.isUpper(i):
				lb1 = max(lb1, s.grad[i])
			default:
				nrFree1++
				sumFree1 += s.grad[i]
			}
		} else {
			switch {
			case s.isLower(i):
				ub2 = min(ub2, s.grad[i])
			case s.isUpper(i):
				lb2 = max(lb2, s.grad[i])
			default:
				nrFree2++
				sumFree2 += s.grad[i]
			}
		}
	}

	var r1, r2 F
	if nrFree1 > 0 {
		r1 = sumFree1 / F(nrFree1)
	} else {
		r1 = (ub1 + lb1) / 2
	}
	if nrFree2 > 0 {
		r2 = sumFree2 / F(nrFree2)
	} else {
		r2 = (ub2 + lb2) / 2
	}

	return (r1 - r2) / 2, (r1 + r2) / 2
}
