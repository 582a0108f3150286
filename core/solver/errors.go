package solver

import "errors"

var (
	// ErrSolve wraps every solve failure.
	ErrSolve = errors.New("solve failed")
	// ErrInfeasible is reported when the program has no feasible point.
	ErrInfeasible = errors.New("problem is infeasible")
	// ErrUnbounded is reported when the objective has no lower bound.
	ErrUnbounded = errors.New("problem is unbounded")
	// ErrUnknownBackend is reported for a solver name nobody registered.
	ErrUnknownBackend = errors.New("unknown solver backend")
)
