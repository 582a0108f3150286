package metrics

import "time"

// Pipeline stages.
const (
	StageRead      = "read"
	StageBuild     = "build"
	StageSolve     = "solve"
	StageSerialize = "serialize"
)

// StageEvent is emitted when a pipeline stage ends.
type StageEvent struct {
	RunID    string
	Stage    string
	Duration time.Duration
	Err      error
}

// ProblemEvent describes the linear program handed to the solver.
type ProblemEvent struct {
	RunID   string
	Columns int
	Rows    int
	Periods int
}

// SolveEvent is the outcome reported by the solver backend.
type SolveEvent struct {
	RunID     string
	Backend   string
	Status    string
	Objective float64
}

// RunSink records the events of one run.
type RunSink interface {
	RecordStage(ev StageEvent) error
	RecordProblem(ev ProblemEvent) error
	RecordSolve(ev SolveEvent) error
	// Flush publishes what was recorded, for sinks that buffer.
	Flush() error
}

// NopSink implements RunSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordStage(StageEvent) error     { return nil }
func (NopSink) RecordProblem(ProblemEvent) error { return nil }
func (NopSink) RecordSolve(SolveEvent) error     { return nil }
func (NopSink) Flush() error                     { return nil }

// MultiSink fans events out to several sinks.
type MultiSink struct {
	Sinks []RunSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...RunSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) each(f func(RunSink) error) error {
	for _, s := range m.Sinks {
		if err := f(s); err != nil {
			return err
		}
	}
	return nil
}

// RecordStage forwards the event, returning the first error encountered.
func (m *MultiSink) RecordStage(ev StageEvent) error {
	return m.each(func(s RunSink) error { return s.RecordStage(ev) })
}

// RecordProblem forwards the event.
func (m *MultiSink) RecordProblem(ev ProblemEvent) error {
	return m.each(func(s RunSink) error { return s.RecordProblem(ev) })
}

// RecordSolve forwards the event.
func (m *MultiSink) RecordSolve(ev SolveEvent) error {
	return m.each(func(s RunSink) error { return s.RecordSolve(ev) })
}

// Flush flushes every sink.
func (m *MultiSink) Flush() error {
	return m.each(func(s RunSink) error { return s.Flush() })
}
