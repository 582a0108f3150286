package sced

import (
	"errors"
	"fmt"

	"github.com/kilianp07/psst/core/model"
	"github.com/kilianp07/psst/core/opt"
)

// ErrMissingResult is returned when a quantity is requested before a
// solution is attached, or for an unknown unit, bus, line or hour.
var ErrMissingResult = errors.New("missing result")

// Handle is a built dispatch model. After Attach it answers result queries.
type Handle struct {
	data     *model.ModelData
	prob     *opt.Problem
	periods  int
	symbolic bool

	gens  []model.Generator
	buses []string
	lines []model.Line

	commit    map[string][]int
	power     map[key]int
	segments  map[key][]int
	slopes    map[string][]float64
	angle     map[key]int
	flow      map[key]int
	balance   map[key]int
	fixedCost map[key]float64
	startup   map[key]float64
	shutdown  map[key]float64

	sol *opt.Solution
}

// Problem returns the linear program to hand to a solver backend.
func (h *Handle) Problem() *opt.Problem { return h.prob }

// Attach stores the solution returned by a backend.
func (h *Handle) Attach(sol *opt.Solution) error {
	if sol == nil {
		return fmt.Errorf("%w: nil solution", ErrMissingResult)
	}
	if err := sol.Check(h.prob); err != nil {
		return fmt.Errorf("%w: %v", ErrMissingResult, err)
	}
	h.sol = sol
	return nil
}

// Solved reports whether a solution has been attached.
func (h *Handle) Solved() bool { return h.sol != nil }

// Generators returns the generator IDs in natural order.
func (h *Handle) Generators() []string {
	ids := make([]string, len(h.gens))
	for i, g := range h.gens {
		ids[i] = g.ID
	}
	return ids
}

// Buses returns the bus IDs in natural order.
func (h *Handle) Buses() []string { return append([]string(nil), h.buses...) }

// Lines returns the line IDs in data order.
func (h *Handle) Lines() []string {
	ids := make([]string, len(h.lines))
	for i, l := range h.lines {
		ids[i] = l.ID
	}
	return ids
}

// TimePeriods returns 1..T.
func (h *Handle) TimePeriods() []int { return h.data.TimePeriods() }

// Commitment returns the fixed on/off status of g in hour t.
func (h *Handle) Commitment(g string, t int) (int, error) {
	s, ok := h.commit[g]
	if !ok || t < 1 || t > len(s) {
		return 0, missing("commitment", g, t)
	}
	return s[t-1], nil
}

func missing(what, id string, t int) error {
	return fmt.Errorf("%w: %s for %s in hour %d", ErrMissingResult, what, id, t)
}

func (h *Handle) primal(what string, idx map[key]int, id string, t int) (float64, error) {
	if h.sol == nil {
		return 0, fmt.Errorf("%w: model not solved", ErrMissingResult)
	}
	i, ok := idx[key{id, t}]
	if !ok {
		return 0, missing(what, id, t)
	}
	return h.sol.Primal[i], nil
}

// PowerGenerated is the dispatched output of g in hour t.
func (h *Handle) PowerGenerated(g string, t int) (float64, error) {
	return h.primal("power generated", h.power, g, t)
}

// ProductionCost is the fixed cost of a committed unit plus the cost of
// its dispatched cost curve segments.
func (h *Handle) ProductionCost(g string, t int) (float64, error) {
	if _, err := h.PowerGenerated(g, t); err != nil {
		return 0, err
	}
	k := key{g, t}
	cost := h.fixedCost[k]
	slopes := h.slopes[g]
	for s, col := range h.segments[k] {
		cost += slopes[s] * h.sol.Primal[col]
	}
	return cost, nil
}

// StartupCost is the start-up cost incurred by g in hour t.
func (h *Handle) StartupCost(g string, t int) (float64, error) {
	if _, err := h.PowerGenerated(g, t); err != nil {
		return 0, err
	}
	return h.startup[key{g, t}], nil
}

// ShutdownCost is the shut-down cost incurred by g in hour t.
func (h *Handle) ShutdownCost(g string, t int) (float64, error) {
	if _, err := h.PowerGenerated(g, t); err != nil {
		return 0, err
	}
	return h.shutdown[key{g, t}], nil
}

// Angle is the voltage angle of bus b in hour t, in radians.
func (h *Handle) Angle(b string, t int) (float64, error) {
	return h.primal("angle", h.angle, b, t)
}

// LinePower is the flow on line l in hour t, positive from BusFrom to BusTo.
func (h *Handle) LinePower(l string, t int) (float64, error) {
	return h.primal("line power", h.flow, l, t)
}

// LMP is the dual of the power balance at bus b in hour t. Buses without
// a balance row price at zero.
func (h *Handle) LMP(b string, t int) (float64, error) {
	if h.sol == nil {
		return 0, fmt.Errorf("%w: model not solved", ErrMissingResult)
	}
	row, ok := h.balance[key{b, t}]
	if !ok {
		return 0, missing("LMP", b, t)
	}
	if row < 0 {
		return 0, nil
	}
	if h.sol.Dual == nil {
		return 0, fmt.Errorf("%w: solver returned no duals", ErrMissingResult)
	}
	return h.sol.Dual[row], nil
}

// Objective is the total system cost including fixed and transition costs.
func (h *Handle) Objective() (float64, error) {
	if h.sol == nil {
		return 0, fmt.Errorf("%w: model not solved", ErrMissingResult)
	}
	return h.prob.Value(h.sol.Primal), nil
}
