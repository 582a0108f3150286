// Package solver hands a built dispatch model to a named backend and
// attaches the returned solution to the model handle.
package solver

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/psst/core/factory"
	"github.com/kilianp07/psst/core/opt"
	"github.com/kilianp07/psst/core/sced"
)

// Backend solves a linear program. Implementations return primal values
// for every column and, when they can, duals for every row.
type Backend interface {
	Solve(ctx context.Context, p *opt.Problem, opts Options) (*opt.Solution, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, p *opt.Problem, opts Options) (*opt.Solution, error)

// Solve calls f.
func (f BackendFunc) Solve(ctx context.Context, p *opt.Problem, opts Options) (*opt.Solution, error) {
	return f(ctx, p, opts)
}

var backends = factory.NewRegistry[Backend]()

// Register adds a backend factory under name.
func Register(name string, f factory.Factory[Backend]) error {
	return backends.Register(name, f)
}

// Backends lists the registered backend names.
func Backends() []string { return backends.Names() }

// NewBackend builds the backend selected by opts.
func NewBackend(opts Options) (Backend, error) {
	b, err := backends.Create(factory.ModuleConfig{Type: opts.Solver, Conf: opts.Conf})
	if errors.Is(err, factory.ErrUnknownType) {
		return nil, fmt.Errorf("%w: %w: %s", ErrSolve, ErrUnknownBackend, opts.Solver)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: configure %s: %v", ErrSolve, opts.Solver, err)
	}
	return b, nil
}

// Solve runs the backend named in opts on h and returns h with the
// solution attached.
func Solve(ctx context.Context, h *sced.Handle, opts Options) (*sced.Handle, error) {
	if h == nil {
		return nil, fmt.Errorf("%w: no model", ErrSolve)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	b, err := NewBackend(opts)
	if err != nil {
		return nil, err
	}
	return SolveWith(ctx, b, h, opts)
}

// SolveWith is Solve with an explicit backend.
func SolveWith(ctx context.Context, b Backend, h *sced.Handle, opts Options) (*sced.Handle, error) {
	if !opts.IsMixedInteger {
		opts.MIPGap = 0
	}
	sol, err := b.Solve(ctx, h.Problem(), opts)
	if err != nil {
		if errors.Is(err, ErrSolve) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrSolve, opts.Solver, err)
	}
	switch sol.Status {
	case opt.Optimal:
	case opt.Infeasible:
		return nil, fmt.Errorf("%w: %w", ErrSolve, ErrInfeasible)
	case opt.Unbounded:
		return nil, fmt.Errorf("%w: %w", ErrSolve, ErrUnbounded)
	default:
		return nil, fmt.Errorf("%w: %s returned status %s", ErrSolve, opts.Solver, sol.Status)
	}
	if err := h.Attach(sol); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSolve, err)
	}
	return h, nil
}
