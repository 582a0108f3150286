package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/psst/core/metrics"
)

// PromSink records run events in Prometheus metrics. With a textfile path
// set, Flush writes the gathered metrics in the node exporter textfile
// format.
type PromSink struct {
	stageSeconds *prometheus.GaugeVec
	stageErrors  *prometheus.CounterVec
	problemSize  *prometheus.GaugeVec
	solveStatus  *prometheus.GaugeVec
	objective    prometheus.Gauge

	gatherer prometheus.Gatherer
	textfile string
}

// NewPromSink registers run metrics on a fresh registry.
func NewPromSink(textfile string) (*PromSink, error) {
	reg := prometheus.NewRegistry()
	return NewPromSinkWithRegistry(textfile, reg, reg)
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// NewPromSinkWithRegistry registers metrics on reg and gathers from g when
// flushing. Nil values default to the global Prometheus registry.
func NewPromSinkWithRegistry(textfile string, reg prometheus.Registerer, g prometheus.Gatherer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	s := &PromSink{gatherer: g, textfile: textfile}
	var err error
	if s.stageSeconds, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "psst_stage_duration_seconds",
		Help: "Duration of the last run of each pipeline stage",
	}, []string{"stage"})); err != nil {
		return nil, err
	}
	if s.stageErrors, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "psst_stage_errors_total",
		Help: "Number of failed pipeline stages",
	}, []string{"stage"})); err != nil {
		return nil, err
	}
	if s.problemSize, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "psst_problem_size",
		Help: "Dimensions of the linear program handed to the solver",
	}, []string{"dimension"})); err != nil {
		return nil, err
	}
	if s.solveStatus, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "psst_solve_status",
		Help: "Set to 1 for the status reported by the last solve",
	}, []string{"backend", "status"})); err != nil {
		return nil, err
	}
	if s.objective, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "psst_objective_value",
		Help: "Total system cost of the last solved dispatch",
	})); err != nil {
		return nil, err
	}
	return s, nil
}

// RecordStage sets the stage duration and counts failures.
func (s *PromSink) RecordStage(ev coremetrics.StageEvent) error {
	s.stageSeconds.WithLabelValues(ev.Stage).Set(ev.Duration.Seconds())
	if ev.Err != nil {
		s.stageErrors.WithLabelValues(ev.Stage).Inc()
	}
	return nil
}

// RecordProblem sets the problem dimension gauges.
func (s *PromSink) RecordProblem(ev coremetrics.ProblemEvent) error {
	s.problemSize.WithLabelValues("columns").Set(float64(ev.Columns))
	s.problemSize.WithLabelValues("rows").Set(float64(ev.Rows))
	s.problemSize.WithLabelValues("periods").Set(float64(ev.Periods))
	return nil
}

// RecordSolve marks the solve status and objective.
func (s *PromSink) RecordSolve(ev coremetrics.SolveEvent) error {
	s.solveStatus.Reset()
	s.solveStatus.WithLabelValues(ev.Backend, ev.Status).Set(1)
	s.objective.Set(ev.Objective)
	return nil
}

// Flush writes the textfile when one is configured.
func (s *PromSink) Flush() error {
	if s.textfile == "" {
		return nil
	}
	return prometheus.WriteToTextfile(s.textfile, s.gatherer)
}
