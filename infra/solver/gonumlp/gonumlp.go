// Package gonumlp solves dispatch programs in-process with the gonum simplex
// implementation. Row duals come from solving the dual program.
package gonumlp

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/kilianp07/psst/core/factory"
	"github.com/kilianp07/psst/core/opt"
	"github.com/kilianp07/psst/core/solver"
)

// DefaultTolerance is the simplex pivot tolerance.
const DefaultTolerance = 1e-9

// simplex is swapped in tests.
var simplex = lp.Simplex

// Config is read from solver.conf.
type Config struct {
	Tolerance float64 `json:"tolerance"`
}

// Backend is the gonum solver backend.
type Backend struct {
	tol float64
}

// New builds a Backend from raw settings.
func New(conf map[string]any) (solver.Backend, error) {
	var c Config
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	if c.Tolerance < 0 {
		return nil, fmt.Errorf("tolerance must not be negative, got %v", c.Tolerance)
	}
	if c.Tolerance == 0 {
		c.Tolerance = DefaultTolerance
	}
	return &Backend{tol: c.Tolerance}, nil
}

// general is a program in gonum's general form:
// minimize cᵀx subject to G x <= h, A x = b, x free.
type general struct {
	c    []float64
	g    *mat.Dense
	h    []float64
	a    *mat.Dense
	b    []float64
	rows []rowRef
}

// rowRef locates a problem row in the general form. sign is -1 for rows
// negated to turn >= into <=.
type rowRef struct {
	eq   bool
	idx  int
	sign float64
}

func toGeneral(p *opt.Problem) general {
	n := len(p.Vars)
	var nIneq, nEq int
	refs := make([]rowRef, len(p.Rows))
	for i, r := range p.Rows {
		switch r.Sense {
		case opt.EQ:
			refs[i] = rowRef{eq: true, idx: nEq, sign: 1}
			nEq++
		case opt.GE:
			refs[i] = rowRef{idx: nIneq, sign: -1}
			nIneq++
		default:
			refs[i] = rowRef{idx: nIneq, sign: 1}
			nIneq++
		}
	}
	gf := general{c: make([]float64, n), h: make([]float64, nIneq), b: make([]float64, nEq), rows: refs}
	for j, v := range p.Vars {
		gf.c[j] = v.Cost
	}
	if nIneq > 0 {
		gf.g = mat.NewDense(nIneq, n, nil)
	}
	if nEq > 0 {
		gf.a = mat.NewDense(nEq, n, nil)
	}
	for i, r := range p.Rows {
		ref := refs[i]
		m, rhs := gf.g, gf.h
		if ref.eq {
			m, rhs = gf.a, gf.b
		}
		for _, t := range r.Terms {
			m.Set(ref.idx, t.Var, m.At(ref.idx, t.Var)+ref.sign*t.Coeff)
		}
		rhs[ref.idx] = ref.sign * r.RHS
	}
	return gf
}

// solveGeneral converts to standard form, runs the simplex and maps the
// result back to the free variables. lp.Convert orders the standard form
// columns as [x⁺, x⁻, slack].
func (b *Backend) solveGeneral(c []float64, g *mat.Dense, h []float64, a *mat.Dense, rhs []float64) (float64, []float64, error) {
	var gm, am mat.Matrix
	if g != nil {
		gm = g
	}
	if a != nil {
		am = a
	}
	cStd, aStd, bStd := lp.Convert(c, gm, h, am, rhs)
	f, sol, err := simplex(cStd, aStd, bStd, b.tol, nil)
	if err != nil {
		return 0, nil, err
	}
	n := len(c)
	x := make([]float64, n)
	for i := range x {
		x[i] = sol[i] - sol[n+i]
	}
	return f, x, nil
}

func statusOf(err error) (opt.Status, error) {
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return opt.Infeasible, nil
	case errors.Is(err, lp.ErrUnbounded):
		return opt.Unbounded, nil
	default:
		return opt.Failed, err
	}
}

// Solve implements solver.Backend.
func (b *Backend) Solve(ctx context.Context, p *opt.Problem, _ solver.Options) (*opt.Solution, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	gf := toGeneral(p)
	if gf.g == nil || gf.a == nil {
		return nil, errors.New("gonum backend needs at least one equality and one inequality row")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	_, x, err := b.solveGeneral(gf.c, gf.g, gf.h, gf.a, gf.b)
	if err != nil {
		st, ferr := statusOf(err)
		if ferr != nil {
			return nil, fmt.Errorf("primal simplex: %w", ferr)
		}
		return &opt.Solution{Status: st}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dual, err := b.duals(gf)
	if err != nil {
		return nil, fmt.Errorf("dual simplex: %w", err)
	}
	return &opt.Solution{
		Status:    opt.Optimal,
		Objective: p.Value(x),
		Primal:    x,
		Dual:      dual,
	}, nil
}

// duals solves the Lagrangian dual
//
//	minimize hᵀλ + bᵀν  subject to  Gᵀλ + Aᵀν = -c,  λ >= 0
//
// and converts the multipliers into derivatives of the optimal objective
// with respect to each original right-hand side.
func (b *Backend) duals(gf general) ([]float64, error) {
	nIneq, n := gf.g.Dims()
	nEq, _ := gf.a.Dims()
	m := nIneq + nEq

	c := make([]float64, m)
	copy(c, gf.h)
	copy(c[nIneq:], gf.b)

	eq := mat.NewDense(n, m, nil)
	eq.Slice(0, n, 0, nIneq).(*mat.Dense).Copy(gf.g.T())
	eq.Slice(0, n, nIneq, m).(*mat.Dense).Copy(gf.a.T())
	rhs := make([]float64, n)
	for j := range rhs {
		rhs[j] = -gf.c[j]
	}

	ineq := mat.NewDense(nIneq, m, nil)
	for i := 0; i < nIneq; i++ {
		ineq.Set(i, i, -1)
	}

	_, y, err := b.solveGeneral(c, ineq, make([]float64, nIneq), eq, rhs)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(gf.rows))
	for i, ref := range gf.rows {
		if ref.eq {
			out[i] = -y[nIneq+ref.idx]
		} else {
			out[i] = -ref.sign * y[ref.idx]
		}
	}
	return out, nil
}
