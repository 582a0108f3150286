// Package plugins registers the built-in solver backends and metrics sinks.
// Import it for its side effects.
package plugins

import (
	"github.com/kilianp07/psst/core/solver"
	"github.com/kilianp07/psst/infra/logger"
	// Registers the prometheus and influx sinks.
	_ "github.com/kilianp07/psst/infra/metrics"
	"github.com/kilianp07/psst/infra/solver/glpk"
	"github.com/kilianp07/psst/infra/solver/gonumlp"
)

// Backend names.
const (
	Gonum = "gonum"
	GLPK  = "glpk"
)

func init() {
	if err := solver.Register(Gonum, gonumlp.New); err != nil {
		panic(err)
	}
	if err := solver.Register(GLPK, func(conf map[string]any) (solver.Backend, error) {
		return glpk.New(conf, logger.New("glpk"))
	}); err != nil {
		panic(err)
	}
}
