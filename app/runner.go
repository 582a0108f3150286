// Package app wires the readers, the model builder, the solver and the
// report writer into the SCED run.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/psst/config"
	coremetrics "github.com/kilianp07/psst/core/metrics"
	"github.com/kilianp07/psst/core/model"
	"github.com/kilianp07/psst/core/opt"
	"github.com/kilianp07/psst/core/reader"
	"github.com/kilianp07/psst/core/report"
	"github.com/kilianp07/psst/core/sced"
	"github.com/kilianp07/psst/core/solver"
	"github.com/kilianp07/psst/infra/logger"
)

// Request describes one SCED run.
type Request struct {
	UnitCommitment  string
	ModelData       string
	Output          string
	Options         solver.Options
	CostCurvePieces int
}

// Runner executes SCED runs and reports their stages to a metrics sink.
type Runner struct {
	sink  coremetrics.RunSink
	log   logger.Logger
	newID func() string
	now   func() time.Time
}

// New creates a Runner from the configuration.
func New(cfg *config.Config) (*Runner, error) {
	if err := logger.Configure(cfg.Logging.Backend, cfg.Logging.Level); err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	sink, err := coremetrics.NewSink(cfg.Metrics.SinkConfigs())
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	return NewWithSink(sink, logger.New("sced")), nil
}

// NewWithSink creates a Runner on an existing sink and logger.
func NewWithSink(sink coremetrics.RunSink, log logger.Logger) *Runner {
	if sink == nil {
		sink = coremetrics.NopSink{}
	}
	return &Runner{
		sink:  sink,
		log:   logger.OrNop(log),
		newID: uuid.NewString,
		now:   time.Now,
	}
}

type withLogger interface {
	With(key string, value any) logger.Logger
}

// stage times f and records the outcome.
func (r *Runner) stage(runID, name string, log logger.Logger, f func() error) error {
	start := r.now()
	err := f()
	if serr := r.sink.RecordStage(coremetrics.StageEvent{
		RunID:    runID,
		Stage:    name,
		Duration: r.now().Sub(start),
		Err:      err,
	}); serr != nil {
		log.Warnf("record %s stage: %v", name, serr)
	}
	if err != nil {
		log.Errorf("%s failed: %v", name, err)
	}
	return err
}

// Run reads the inputs, builds and solves the model and writes the report.
// No output file is created unless every earlier stage succeeded.
func (r *Runner) Run(ctx context.Context, req Request) (err error) {
	runID := r.newID()
	log := r.log
	if wl, ok := log.(withLogger); ok {
		log = wl.With("run_id", runID)
	}
	defer func() {
		if ferr := r.sink.Flush(); ferr != nil {
			log.Warnf("flush metrics: %v", ferr)
		}
	}()

	var (
		uc   *model.UnitCommitment
		data *model.ModelData
	)
	if err := r.stage(runID, coremetrics.StageRead, log, func() error {
		var err error
		if uc, err = reader.ReadUnitCommitment(req.UnitCommitment); err != nil {
			return err
		}
		data, err = reader.ReadModel(req.ModelData)
		return err
	}); err != nil {
		return err
	}
	log.Debugw("inputs read", map[string]any{
		"units":   uc.Len(),
		"buses":   len(data.Buses),
		"periods": data.NumTimePeriods,
	})

	var h *sced.Handle
	if err := r.stage(runID, coremetrics.StageBuild, log, func() error {
		var err error
		h, err = sced.Build(data, uc, sced.BuildOptions{
			CostCurvePieces: req.CostCurvePieces,
			SymbolicLabels:  req.Options.SymbolicLabels,
			Log:             log,
		})
		return err
	}); err != nil {
		return err
	}
	p := h.Problem()
	if serr := r.sink.RecordProblem(coremetrics.ProblemEvent{
		RunID:   runID,
		Columns: len(p.Vars),
		Rows:    len(p.Rows),
		Periods: len(h.TimePeriods()),
	}); serr != nil {
		log.Warnf("record problem: %v", serr)
	}

	if err := r.stage(runID, coremetrics.StageSolve, log, func() error {
		_, err := solver.Solve(ctx, h, req.Options)
		return err
	}); err != nil {
		r.recordSolve(runID, req.Options.Solver, statusOf(err), 0, log)
		return err
	}
	obj, err := h.Objective()
	if err != nil {
		return err
	}
	r.recordSolve(runID, req.Options.Solver, opt.Optimal.String(), obj, log)
	log.Infof("solved with %s, objective %v", req.Options.Solver, obj)

	if err := r.stage(runID, coremetrics.StageSerialize, log, func() error {
		return report.WriteFile(req.Output, h)
	}); err != nil {
		return err
	}
	log.Infof("results written to %s", req.Output)
	return nil
}

func (r *Runner) recordSolve(runID, backend, status string, obj float64, log logger.Logger) {
	if err := r.sink.RecordSolve(coremetrics.SolveEvent{
		RunID:     runID,
		Backend:   backend,
		Status:    status,
		Objective: obj,
	}); err != nil {
		log.Warnf("record solve: %v", err)
	}
}

func statusOf(err error) string {
	switch {
	case errors.Is(err, solver.ErrInfeasible):
		return opt.Infeasible.String()
	case errors.Is(err, solver.ErrUnbounded):
		return opt.Unbounded.String()
	default:
		return opt.Failed.String()
	}
}
