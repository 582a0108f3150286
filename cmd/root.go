// Package cmd implements the psst command line.
package cmd

import (
	"github.com/spf13/cobra"
)

// Version is reported by --version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:          "psst",
	Short:        "Power system simulation toolbox",
	Version:      Version,
	SilenceUsage: true,
}

func init() {
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }
