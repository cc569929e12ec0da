package solver

import "fmt"

// ErrInvalidParameter is returned when a formulation builder rejects its
// arguments before the optimizer is invoked.
var ErrInvalidParameter = fmt.Errorf("solver: %w", errInvalidParameter)
var errInvalidParameter = fmt.Errorf("invalid parameter")

// ErrDegenerateSolution is returned when the Nu formulation converges to a
// vanishing normalization term, so the result cannot be rescaled to the
// canonical decision-function scale.
var ErrDegenerateSolution = fmt.Errorf("solver: %w", errDegenerateSolution)
var errDegenerateSolution = fmt.Errorf("degenerate solution")
