package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	runConfig  string
	runVerbose bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Show the configuration a model run would use",
	Args:  cobra.NoArgs,
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runConfig, "config", "./config.json", "configuration file")
	runCmd.Flags().BoolVar(&runVerbose, "verbose", false, "verbose output")
	rootCmd.AddCommand(runCmd)
}

// runRun only announces the configuration; the file is not read.
func runRun(cmd *cobra.Command, _ []string) error {
	path, err := filepath.Abs(runConfig)
	if err != nil {
		path = runConfig
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Running model based on configuration in %s\n", path)
	return err
}
