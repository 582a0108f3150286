// Package opt holds a solver-neutral linear program: named columns, named
// rows with a sense and right-hand side, and a minimisation objective.
package opt

import (
	"errors"
	"fmt"
	"math"
)

// Sense is the relation of a row to its right-hand side.
type Sense int

const (
	LE Sense = iota
	GE
	EQ
)

func (s Sense) String() string {
	switch s {
	case LE:
		return "<="
	case GE:
		return ">="
	case EQ:
		return "="
	default:
		return fmt.Sprintf("Sense(%d)", int(s))
	}
}

// Var is a free continuous column. Bounds are expressed as rows so every
// backend sees the same row set and dual vector.
type Var struct {
	Name string
	Cost float64
}

// Term is a coefficient on a column.
type Term struct {
	Var   int
	Coeff float64
}

// Row is a linear constraint sum(Terms) Sense RHS.
type Row struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Problem is a minimisation LP. Constant is added to the objective value.
type Problem struct {
	Name     string
	Vars     []Var
	Rows     []Row
	Constant float64
}

// ErrEmptyRow is returned by AddRow for a row without non-zero coefficients.
var ErrEmptyRow = errors.New("row has no non-zero coefficients")

// AddVar appends a column and returns its index.
func (p *Problem) AddVar(name string, cost float64) int {
	p.Vars = append(p.Vars, Var{Name: name, Cost: cost})
	return len(p.Vars) - 1
}

// AddRow appends a constraint and returns its index. Zero coefficients are
// dropped.
func (p *Problem) AddRow(name string, terms []Term, sense Sense, rhs float64) (int, error) {
	kept := make([]Term, 0, len(terms))
	for _, t := range terms {
		if t.Var < 0 || t.Var >= len(p.Vars) {
			return -1, fmt.Errorf("row %s: column %d out of range", name, t.Var)
		}
		if t.Coeff != 0 {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		return -1, fmt.Errorf("row %s: %w", name, ErrEmptyRow)
	}
	if math.IsNaN(rhs) || math.IsInf(rhs, 0) {
		return -1, fmt.Errorf("row %s: invalid right-hand side %v", name, rhs)
	}
	p.Rows = append(p.Rows, Row{Name: name, Terms: kept, Sense: sense, RHS: rhs})
	return len(p.Rows) - 1, nil
}

// Validate checks that every column appears in at least one row.
func (p *Problem) Validate() error {
	if len(p.Vars) == 0 {
		return errors.New("problem has no columns")
	}
	used := make([]bool, len(p.Vars))
	for _, r := range p.Rows {
		for _, t := range r.Terms {
			used[t.Var] = true
		}
	}
	for i, u := range used {
		if !u {
			return fmt.Errorf("column %s appears in no row", p.Vars[i].Name)
		}
	}
	return nil
}

// Status is the outcome reported by a backend.
type Status int

const (
	Optimal Status = iota
	Infeasible
	Unbounded
	Failed
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Infeasible:
		return "infeasible"
	case Unbounded:
		return "unbounded"
	default:
		return "failed"
	}
}

// Solution holds primal column values and row duals. Dual[i] is the
// derivative of the optimal objective with respect to Rows[i].RHS.
type Solution struct {
	Status    Status
	Objective float64
	Primal    []float64
	Dual      []float64
}

// Check verifies the solution dimensions match the problem.
func (s *Solution) Check(p *Problem) error {
	if len(s.Primal) != len(p.Vars) {
		return fmt.Errorf("solution has %d primal values for %d columns", len(s.Primal), len(p.Vars))
	}
	if s.Dual != nil && len(s.Dual) != len(p.Rows) {
		return fmt.Errorf("solution has %d duals for %d rows", len(s.Dual), len(p.Rows))
	}
	return nil
}

// Value evaluates the objective, including Constant, at x.
func (p *Problem) Value(x []float64) float64 {
	v := p.Constant
	for i, c := range p.Vars {
		v += c.Cost * x[i]
	}
	return v
}
