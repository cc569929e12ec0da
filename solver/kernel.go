package solver

// Kernel supplies pairwise similarity values for a fixed sample set. It is
// the external collaborator of the solver: the optimizer only ever reads it,
// and implementations must be deterministic (same indices, same value).
type Kernel[F Float] interface {
	// Size returns the number of samples.
	Size() int
	// Entry returns K(x_i, x_j). The matrix is assumed symmetric.
	Entry(i, j int) F
	// WeightedSum evaluates sum_i weights[i] * K(x_i, x) for an arbitrary
	// sample x. It backs the decision function of a trained model.
	WeightedSum(weights []F, x []F) F
}

// QuadMatrix exposes the effective quadratic-form matrix Q of the dual
// problem to the optimizer, under the active-set permutation it maintains.
// Row fills dst with one row against the first n active columns in O(n);
// the full matrix is never materialized.
type QuadMatrix[F Float] interface {
	Size() int
	Row(dst []F, i, n int) []F
	// Diag returns the diagonal of Q. The slice stays aligned with the
	// active-set permutation across SwapIndex calls.
	Diag() []F
	SwapIndex(i, j int)
}

// PermutableKernel adapts a raw Kernel to the signed quadratic form
// Q_ij = y_i * y_j * K(i, j) used by the binary classification dual.
// Shrinking is supported through an index permutation; the raw kernel is
// held by reference and never mutated.
type PermutableKernel[F Float] struct {
	kernel Kernel[F]
	signs  []int8
	perm   []int
	diag   []F
}

// NewPermutableKernel builds the signed adapter from a raw kernel and the
// boolean targets defining the sign vector.
func NewPermutableKernel[F Float](kernel Kernel[F], targets []bool) *PermutableKernel[F] {
	n := kernel.Size()
	pk := &PermutableKernel[F]{
		kernel: kernel,
		signs:  make([]int8, n),
		perm:   make([]int, n),
		diag:   make([]F, n),
	}
	for i := 0; i < n; i++ {
		if targets[i] {
			pk.signs[i] = 1
		} else {
			pk.signs[i] = -1
		}
		pk.perm[i] = i
		// y_i * y_i == 1, so the diagonal is sign-free.
		pk.diag[i] = kernel.Entry(i, i)
	}
	return pk
}

func (pk *PermutableKernel[F]) Size() int { return len(pk.perm) }

func (pk *PermutableKernel[F]) Row(dst []F, i, n int) []F {
	dst = dst[:n]
	oi := pk.perm[i]
	si := pk.signs[i]
	for j := 0; j < n; j++ {
		if pk.signs[j] == si {
			dst[j] = pk.kernel.Entry(oi, pk.perm[j])
		} else {
			dst[j] = -pk.kernel.Entry(oi, pk.perm[j])
		}
	}
	return dst
}

func (pk *PermutableKernel[F]) Diag() []F { return pk.diag }

func (pk *PermutableKernel[F]) SwapIndex(i, j int) {
	pk.perm[i], pk.perm[j] = pk.perm[j], pk.perm[i]
	pk.signs[i], pk.signs[j] = pk.signs[j], pk.signs[i]
	pk.diag[i], pk.diag[j] = pk.diag[j], pk.diag[i]
}

// PermutableKernelOneClass adapts a raw Kernel for the one-class dual, where
// no label semantics apply: Q_ij = K(i, j). Kept as a separate type so the
// optimizer inner loop stays free of a per-entry sign branch.
type PermutableKernelOneClass[F Float] struct {
	kernel Kernel[F]
	perm   []int
	diag   []F
}

// NewPermutableKernelOneClass builds the sign-free adapter.
func NewPermutableKernelOneClass[F Float](kernel Kernel[F]) *PermutableKernelOneClass[F] {
	n := kernel.Size()
	pk := &PermutableKernelOneClass[F]{
		kernel: kernel,
		perm:   make([]int, n),
		diag:   make([]F, n),
	}
	for i := 0; i < n; i++ {
		pk.perm[i] = i
		pk.diag[i] = kernel.Entry(i, i)
	}
	return pk
}

func (pk *PermutableKernelOneClass[F]) Size() int { return len(pk.perm) }

func (pk *PermutableKernelOneClass[F]) Row(dst []F, i, n int) []F {
	dst = dst[:n]
	oi := pk.perm[i]
	for j := 0; j < n; j++ {
		dst[j] = pk.kernel.Entry(oi, pk.perm[j])
	}
	return dst
}

func (pk *PermutableKernelOneClass[F]) Diag() []F { return pk.diag }

func (pk *PermutableKernelOneClass[F]) SwapIndex(i, j int) {
	pk.perm[i], pk.perm[j] = pk.perm[j], pk.perm[i]
	pk.diag[i], pk.diag[j] = pk.diag[j], pk.diag[i]
}
