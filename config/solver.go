package config

import (
	"fmt"

	"github.com/kilianp07/psst/core/sced"
	"github.com/kilianp07/psst/core/solver"
)

// SolverConfig is the solver section. Conf is handed to the backend.
type SolverConfig struct {
	Name                  string         `json:"name"`
	SolverIO              string         `json:"solver_io"`
	KeepIntermediateFiles bool           `json:"keep_intermediate_files"`
	Verbose               bool           `json:"verbose"`
	SymbolicLabels        bool           `json:"symbolic_labels"`
	IsMixedInteger        bool           `json:"is_mixed_integer"`
	MIPGap                float64        `json:"mip_gap"`
	CostCurvePieces       int            `json:"cost_curve_pieces"`
	Conf                  map[string]any `json:"conf"`
}

// DefaultSolver mirrors solver.Defaults, except that intermediate solver
// files are dropped unless asked for.
func DefaultSolver() SolverConfig {
	o := solver.Defaults()
	return SolverConfig{
		Name:                  o.Solver,
		SolverIO:              o.SolverIO,
		KeepIntermediateFiles: false,
		Verbose:               o.Verbose,
		SymbolicLabels:        o.SymbolicLabels,
		IsMixedInteger:        o.IsMixedInteger,
		MIPGap:                o.MIPGap,
		CostCurvePieces:       sced.DefaultCostCurvePieces,
	}
}

// SetDefaults fills empty names and counts.
func (c *SolverConfig) SetDefaults() {
	d := DefaultSolver()
	if c.Name == "" {
		c.Name = d.Name
	}
	if c.SolverIO == "" {
		c.SolverIO = d.SolverIO
	}
	if c.CostCurvePieces == 0 {
		c.CostCurvePieces = d.CostCurvePieces
	}
}

// Validate checks the values every backend relies on.
func (c SolverConfig) Validate() error {
	if c.CostCurvePieces < 1 {
		return fmt.Errorf("cost_curve_pieces must be positive, got %d", c.CostCurvePieces)
	}
	return c.Options().Validate()
}

// Options converts the section into solver options.
func (c SolverConfig) Options() solver.Options {
	return solver.Options{
		Solver:                c.Name,
		SolverIO:              c.SolverIO,
		KeepIntermediateFiles: c.KeepIntermediateFiles,
		Verbose:               c.Verbose,
		SymbolicLabels:        c.SymbolicLabels,
		IsMixedInteger:        c.IsMixedInteger,
		MIPGap:                c.MIPGap,
		Conf:                  c.Conf,
	}
}
