// Package cli provides the command-line interface of the scoring pipeline.
package cli

import (
	"os"
)

// Run executes the root command.
func Run() {
	rootCmd := NewRootCmd()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
