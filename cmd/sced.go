package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/psst/app"
	// Registers the solver backends and metrics sinks.
	_ "github.com/kilianp07/psst/app/plugins"
	"github.com/kilianp07/psst/config"
)

var scedFlags struct {
	uc          string
	data        string
	output      string
	config      string
	solver      string
	solverIO    string
	mipGap      float64
	keepFiles   bool
	verbose     bool
	metricsFile string
}

var scedCmd = &cobra.Command{
	Use:   "sced",
	Short: "Solve the security constrained economic dispatch for a unit commitment",
	Args:  cobra.NoArgs,
	RunE:  runSCED,
}

func init() {
	f := scedCmd.Flags()
	f.StringVar(&scedFlags.uc, "uc", "", "unit commitment file")
	f.StringVar(&scedFlags.data, "data", "", "reference model data file")
	f.StringVar(&scedFlags.output, "output", "./output.dat", "results file")
	f.StringVar(&scedFlags.config, "config", "", "optional configuration file (yaml or json)")
	f.StringVar(&scedFlags.solver, "solver", "", "solver backend (gonum, glpk)")
	f.StringVar(&scedFlags.solverIO, "solver-io", "", "solver input format")
	f.Float64Var(&scedFlags.mipGap, "mip-gap", 0, "relative MIP gap")
	f.BoolVar(&scedFlags.keepFiles, "keep-files", false, "keep the solver's intermediate files")
	f.BoolVar(&scedFlags.verbose, "verbose", false, "stream solver output to the log")
	f.StringVar(&scedFlags.metricsFile, "metrics-file", "", "write run metrics to this Prometheus textfile")
	rootCmd.AddCommand(scedCmd)
}

// applyFlags copies the flags set on the command line over cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("solver") {
		cfg.Solver.Name = scedFlags.solver
	}
	if f.Changed("solver-io") {
		cfg.Solver.SolverIO = scedFlags.solverIO
	}
	if f.Changed("mip-gap") {
		cfg.Solver.MIPGap = scedFlags.mipGap
	}
	if f.Changed("keep-files") {
		cfg.Solver.KeepIntermediateFiles = scedFlags.keepFiles
	}
	if f.Changed("verbose") {
		cfg.Solver.Verbose = scedFlags.verbose
	}
	if f.Changed("metrics-file") {
		cfg.Metrics.Textfile = scedFlags.metricsFile
	}
}

func runSCED(cmd *cobra.Command, _ []string) error {
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), "Running SCED using PSST"); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(scedFlags.config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlags(cmd, cfg)
	if err := cfg.Solver.Validate(); err != nil {
		return fmt.Errorf("solver: %w", err)
	}
	runner, err := app.New(cfg)
	if err != nil {
		return err
	}
	return runner.Run(ctx, app.Request{
		UnitCommitment:  scedFlags.uc,
		ModelData:       scedFlags.data,
		Output:          scedFlags.output,
		Options:         cfg.Solver.Options(),
		CostCurvePieces: cfg.Solver.CostCurvePieces,
	})
}
