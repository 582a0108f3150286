// Package sced maps model data and fixed unit commitments onto a linear
// dispatch program and exposes the solved quantities by unit, bus and hour.
package sced

import (
	"errors"
	"fmt"
	"math"

	"github.com/kilianp07/psst/core/logger"
	"github.com/kilianp07/psst/core/model"
	"github.com/kilianp07/psst/core/opt"
)

// ErrModelBuild is returned when the data lacks a field the dispatch model needs.
var ErrModelBuild = errors.New("model build failed")

// DefaultCostCurvePieces is the number of linear pieces used for the
// quadratic production cost curve.
const DefaultCostCurvePieces = 3

// BuildOptions tunes the formulation.
type BuildOptions struct {
	// CostCurvePieces is the number of segments of the production cost curve.
	CostCurvePieces int
	// SymbolicLabels names columns and rows after the model components.
	// Otherwise generic x<i>/c<i> names are used.
	SymbolicLabels bool
	Log            logger.Logger
}

type key struct {
	id string
	t  int
}

func buildErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrModelBuild, fmt.Sprintf(format, args...))
}

// Build declares the dispatch program for data with the commitments of uc.
func Build(data *model.ModelData, uc *model.UnitCommitment, opts BuildOptions) (*Handle, error) {
	if data == nil {
		return nil, buildErr("no model data")
	}
	if uc == nil {
		return nil, buildErr("no unit commitment")
	}
	if opts.CostCurvePieces <= 0 {
		opts.CostCurvePieces = DefaultCostCurvePieces
	}
	log := logger.OrNop(opts.Log)

	h := &Handle{
		data:      data,
		prob:      &opt.Problem{Name: "SCED"},
		periods:   data.NumTimePeriods,
		commit:    make(map[string][]int),
		power:     make(map[key]int),
		segments:  make(map[key][]int),
		slopes:    make(map[string][]float64),
		angle:     make(map[key]int),
		flow:      make(map[key]int),
		balance:   make(map[key]int),
		fixedCost: make(map[key]float64),
		startup:   make(map[key]float64),
		shutdown:  make(map[key]float64),
		symbolic:  opts.SymbolicLabels,
	}
	if err := h.validate(uc, log); err != nil {
		return nil, err
	}
	if err := h.declare(opts.CostCurvePieces); err != nil {
		return nil, err
	}
	h.checkReserve(log)
	h.genericNames()
	if err := h.prob.Validate(); err != nil {
		return nil, buildErr("%v", err)
	}
	log.Debugw("model built", map[string]any{
		"generators": len(h.gens),
		"buses":      len(h.buses),
		"lines":      len(h.lines),
		"periods":    h.periods,
		"columns":    len(h.prob.Vars),
		"rows":       len(h.prob.Rows),
	})
	return h, nil
}

func (h *Handle) validate(uc *model.UnitCommitment, log logger.Logger) error {
	d := h.data
	if len(d.Buses) == 0 {
		return buildErr("no buses")
	}
	if len(d.Generators) == 0 {
		return buildErr("no thermal generators")
	}
	if d.NumTimePeriods <= 0 {
		return buildErr("no time periods")
	}
	known := make(map[string]bool, len(d.Buses))
	for _, b := range d.Buses {
		if known[b] {
			return buildErr("duplicate bus %s", b)
		}
		known[b] = true
	}
	h.buses = model.SortNatural(d.Buses)

	for _, id := range uc.Missing() {
		log.Warnf("no commitment vector for %s", id)
	}

	byID := make(map[string]model.Generator, len(d.Generators))
	ids := make([]string, 0, len(d.Generators))
	for _, g := range d.Generators {
		if !g.HasLimits {
			return buildErr("generator %s: missing minimum or maximum power output", g.ID)
		}
		if g.MinOutput < 0 || g.MaxOutput < g.MinOutput {
			return buildErr("generator %s: invalid output limits [%v, %v]", g.ID, g.MinOutput, g.MaxOutput)
		}
		if g.Bus == "" {
			return buildErr("generator %s: not attached to any bus", g.ID)
		}
		if !known[g.Bus] {
			return buildErr("generator %s: unknown bus %s", g.ID, g.Bus)
		}
		s, ok := uc.Schedule(g.ID)
		if !ok {
			return buildErr("generator %s: no unit commitment", g.ID)
		}
		if len(s) < d.NumTimePeriods {
			return buildErr("generator %s: unit commitment covers %d of %d periods", g.ID, len(s), d.NumTimePeriods)
		}
		h.commit[g.ID] = s[:d.NumTimePeriods]
		byID[g.ID] = g
		ids = append(ids, g.ID)
	}
	for _, id := range uc.Generators() {
		if _, ok := byID[id]; !ok {
			log.Warnf("unit commitment for unknown generator %s ignored", id)
		}
	}
	for _, id := range model.SortNatural(ids) {
		h.gens = append(h.gens, byID[id])
	}

	lineIDs := make(map[string]bool, len(d.Lines))
	for _, l := range d.Lines {
		if lineIDs[l.ID] {
			return buildErr("duplicate line %s", l.ID)
		}
		lineIDs[l.ID] = true
		if !known[l.From] || !known[l.To] {
			return buildErr("line %s: unknown bus in %s-%s", l.ID, l.From, l.To)
		}
		if l.From == l.To {
			return buildErr("line %s: both ends at bus %s", l.ID, l.From)
		}
		if l.Reactance == 0 || math.IsNaN(l.Reactance) {
			return buildErr("line %s: missing reactance", l.ID)
		}
		if l.ThermalLimit < 0 {
			return buildErr("line %s: negative thermal limit %v", l.ID, l.ThermalLimit)
		}
	}
	h.lines = d.Lines

	for k := range d.Demand {
		if !known[k.Bus] {
			return buildErr("demand at unknown bus %s", k.Bus)
		}
		if k.Period < 1 || k.Period > d.NumTimePeriods {
			return buildErr("demand at %s for period %d outside 1..%d", k.Bus, k.Period, d.NumTimePeriods)
		}
	}
	return nil
}

func (h *Handle) label(kind string, idx ...any) string {
	if !h.symbolic {
		return ""
	}
	s := kind + "("
	for i, v := range idx {
		if i > 0 {
			s += "_"
		}
		s += fmt.Sprint(v)
	}
	return s + ")"
}

// genericNames fills the names left empty when symbolic labels are off.
func (h *Handle) genericNames() {
	for i := range h.prob.Vars {
		if h.prob.Vars[i].Name == "" {
			h.prob.Vars[i].Name = fmt.Sprintf("x%d", i+1)
		}
	}
	for i := range h.prob.Rows {
		if h.prob.Rows[i].Name == "" {
			h.prob.Rows[i].Name = fmt.Sprintf("c%d", i+1)
		}
	}
}

func (h *Handle) addRow(name string, terms []opt.Term, sense opt.Sense, rhs float64) (int, error) {
	i, err := h.prob.AddRow(name, terms, sense, rhs)
	if err != nil {
		return -1, buildErr("%v", err)
	}
	return i, nil
}

func (h *Handle) declare(pieces int) error {
	p := h.prob
	refs := h.referenceBuses()

	for _, g := range h.gens {
		w := (g.MaxOutput - g.MinOutput) / float64(pieces)
		if w <= 0 {
			continue
		}
		slopes := make([]float64, pieces)
		for k := range slopes {
			slopes[k] = g.CostA1 + g.CostA2*(2*g.MinOutput+float64(2*k+1)*w)
		}
		h.slopes[g.ID] = slopes
	}

	for t := 1; t <= h.periods; t++ {
		for _, g := range h.gens {
			k := key{g.ID, t}
			u := float64(h.commit[g.ID][t-1])
			pv := p.AddVar(h.label("PowerGenerated", g.ID, t), 0)
			h.power[k] = pv
			h.fixedCost[k] = u * (g.CostA0 + g.CostA1*g.MinOutput + g.CostA2*g.MinOutput*g.MinOutput)

			def := []opt.Term{{Var: pv, Coeff: 1}}
			w := (g.MaxOutput - g.MinOutput) / float64(pieces)
			for s, slope := range h.slopes[g.ID] {
				sv := p.AddVar(h.label("PowerSegment", g.ID, t, s+1), slope)
				h.segments[k] = append(h.segments[k], sv)
				def = append(def, opt.Term{Var: sv, Coeff: -1})
				if _, err := h.addRow(h.label("SegmentLower", g.ID, t, s+1), []opt.Term{{Var: sv, Coeff: 1}}, opt.GE, 0); err != nil {
					return err
				}
				if _, err := h.addRow(h.label("SegmentUpper", g.ID, t, s+1), []opt.Term{{Var: sv, Coeff: 1}}, opt.LE, u*w); err != nil {
					return err
				}
			}
			if _, err := h.addRow(h.label("PowerDefinition", g.ID, t), def, opt.EQ, u*g.MinOutput); err != nil {
				return err
			}
			if _, err := h.addRow(h.label("EnforceGeneratorOutputLimitsLower", g.ID, t), []opt.Term{{Var: pv, Coeff: 1}}, opt.GE, u*g.MinOutput); err != nil {
				return err
			}
			if _, err := h.addRow(h.label("EnforceGeneratorOutputLimitsUpper", g.ID, t), []opt.Term{{Var: pv, Coeff: 1}}, opt.LE, u*g.MaxOutput); err != nil {
				return err
			}
			if err := h.ramping(g, t); err != nil {
				return err
			}
			h.transitionCosts(g, t)
		}

		for _, b := range h.buses {
			h.angle[key{b, t}] = p.AddVar(h.label("Angle", b, t), 0)
		}
		for _, l := range h.lines {
			fv := p.AddVar(h.label("LinePower", l.ID, t), 0)
			h.flow[key{l.ID, t}] = fv
			terms := []opt.Term{
				{Var: fv, Coeff: 1},
				{Var: h.angle[key{l.From, t}], Coeff: -1 / l.Reactance},
				{Var: h.angle[key{l.To, t}], Coeff: 1 / l.Reactance},
			}
			if _, err := h.addRow(h.label("CalculateLinePower", l.ID, t), terms, opt.EQ, 0); err != nil {
				return err
			}
			if !math.IsInf(l.ThermalLimit, 1) {
				if _, err := h.addRow(h.label("EnforceLinePowerUpper", l.ID, t), []opt.Term{{Var: fv, Coeff: 1}}, opt.LE, l.ThermalLimit); err != nil {
					return err
				}
				if _, err := h.addRow(h.label("EnforceLinePowerLower", l.ID, t), []opt.Term{{Var: fv, Coeff: 1}}, opt.GE, -l.ThermalLimit); err != nil {
					return err
				}
			}
		}
		for _, b := range refs {
			if _, err := h.addRow(h.label("ReferenceAngle", b, t), []opt.Term{{Var: h.angle[key{b, t}], Coeff: 1}}, opt.EQ, 0); err != nil {
				return err
			}
		}
		if err := h.powerBalance(t); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handle) powerBalance(t int) error {
	for _, b := range h.buses {
		var terms []opt.Term
		for _, g := range h.gens {
			if g.Bus == b {
				terms = append(terms, opt.Term{Var: h.power[key{g.ID, t}], Coeff: 1})
			}
		}
		for _, l := range h.lines {
			switch b {
			case l.From:
				terms = append(terms, opt.Term{Var: h.flow[key{l.ID, t}], Coeff: -1})
			case l.To:
				terms = append(terms, opt.Term{Var: h.flow[key{l.ID, t}], Coeff: 1})
			}
		}
		demand := h.data.DemandAt(b, t)
		if len(terms) == 0 {
			if demand != 0 {
				return buildErr("bus %s: demand %v in period %d but no generator or line", b, demand, t)
			}
			h.balance[key{b, t}] = -1
			continue
		}
		row, err := h.addRow(h.label("PowerBalance", b, t), terms, opt.EQ, demand)
		if err != nil {
			return err
		}
		h.balance[key{b, t}] = row
	}
	return nil
}

// ramping bounds the change of output between t-1 and t. Period 1 is
// measured against the initial output.
func (h *Handle) ramping(g model.Generator, t int) error {
	uCur := h.commit[g.ID][t-1]
	uPrev := h.prevStatus(g, t)
	pv := h.power[key{g.ID, t}]

	up := math.Inf(1)
	if uCur == 1 {
		up = g.StartupRamp
		if uPrev == 1 {
			up = g.RampUp
		}
	}
	down := math.Inf(1)
	if uPrev == 1 {
		down = g.ShutdownRamp
		if uCur == 1 {
			down = g.RampDown
		}
	}

	upTerms := []opt.Term{{Var: pv, Coeff: 1}}
	downTerms := []opt.Term{{Var: pv, Coeff: -1}}
	upRHS, downRHS := up, down
	if t == 1 {
		upRHS += g.PowerT0
		downRHS -= g.PowerT0
	} else {
		prev := h.power[key{g.ID, t - 1}]
		upTerms = append(upTerms, opt.Term{Var: prev, Coeff: -1})
		downTerms = append(downTerms, opt.Term{Var: prev, Coeff: 1})
	}
	if !math.IsInf(up, 1) {
		if _, err := h.addRow(h.label("EnforceRampUpLimits", g.ID, t), upTerms, opt.LE, upRHS); err != nil {
			return err
		}
	}
	if !math.IsInf(down, 1) {
		if _, err := h.addRow(h.label("EnforceRampDownLimits", g.ID, t), downTerms, opt.LE, downRHS); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handle) prevStatus(g model.Generator, t int) int {
	if t == 1 {
		if g.UnitOnT0State > 0 {
			return 1
		}
		return 0
	}
	return h.commit[g.ID][t-2]
}

// transitionCosts charges start-up and shut-down costs implied by the fixed
// commitments. A start after more than MinDownTime hours off is a cold start.
func (h *Handle) transitionCosts(g model.Generator, t int) {
	k := key{g.ID, t}
	uCur := h.commit[g.ID][t-1]
	uPrev := h.prevStatus(g, t)
	switch {
	case uCur == 1 && uPrev == 0:
		down := 0
		i := t - 1
		for i >= 1 && h.commit[g.ID][i-1] == 0 {
			down++
			i--
		}
		if i == 0 && g.UnitOnT0State < 0 {
			down += -g.UnitOnT0State
		}
		cost := g.HotStartCost
		if down > g.MinDownTime {
			cost = g.ColdStartCost
		}
		h.startup[k] = cost
		h.prob.Constant += cost
	case uCur == 0 && uPrev == 1:
		h.shutdown[k] = g.ShutdownCost
		h.prob.Constant += g.ShutdownCost
	}
	h.prob.Constant += h.fixedCost[k]
}

// referenceBuses returns the first bus, in natural order, of every connected
// component of the network.
func (h *Handle) referenceBuses() []string {
	parent := make(map[string]string, len(h.buses))
	var find func(string) string
	find = func(b string) string {
		for parent[b] != b {
			parent[b] = parent[parent[b]]
			b = parent[b]
		}
		return b
	}
	for _, b := range h.buses {
		parent[b] = b
	}
	for _, l := range h.lines {
		ra, rb := find(l.From), find(l.To)
		if ra != rb {
			parent[rb] = ra
		}
	}
	seen := make(map[string]bool)
	var refs []string
	for _, b := range h.buses {
		r := find(b)
		if !seen[r] {
			seen[r] = true
			refs = append(refs, b)
		}
	}
	return refs
}

func (h *Handle) checkReserve(log logger.Logger) {
	for t := 1; t <= h.periods; t++ {
		req, ok := h.data.Reserve[t]
		if !ok || req <= 0 {
			continue
		}
		var capacity float64
		for _, g := range h.gens {
			capacity += float64(h.commit[g.ID][t-1]) * g.MaxOutput
		}
		if margin := capacity - h.data.TotalDemand(t); margin < req {
			log.Warnf("period %d: committed reserve %v below requirement %v", t, margin, req)
		}
	}
}
