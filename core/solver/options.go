package solver

import (
	"fmt"
	"strings"
)

// Options selects a backend and tunes it.
type Options struct {
	Solver                string         `json:"name"`
	SolverIO              string         `json:"solver_io"`
	KeepIntermediateFiles bool           `json:"keep_intermediate_files"`
	Verbose               bool           `json:"verbose"`
	SymbolicLabels        bool           `json:"symbolic_labels"`
	IsMixedInteger        bool           `json:"is_mixed_integer"`
	MIPGap                float64        `json:"mip_gap"`
	Conf                  map[string]any `json:"conf"`
}

// Defaults returns the options used when nothing is configured.
func Defaults() Options {
	return Options{
		Solver:                "glpk",
		SolverIO:              "lp",
		KeepIntermediateFiles: true,
		Verbose:               true,
		SymbolicLabels:        true,
		IsMixedInteger:        true,
		MIPGap:                0.01,
	}
}

// Validate rejects options no backend can honour.
func (o Options) Validate() error {
	if strings.TrimSpace(o.Solver) == "" {
		return fmt.Errorf("%w: solver name is empty", ErrSolve)
	}
	if o.MIPGap < 0 || o.MIPGap > 1 || o.MIPGap != o.MIPGap {
		return fmt.Errorf("%w: mip_gap %v outside [0, 1]", ErrSolve, o.MIPGap)
	}
	return nil
}
