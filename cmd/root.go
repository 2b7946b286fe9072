// Package cmd implements the cellarist command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cellarist",
	Short: "Cellarist is a conversational wine cellar assistant",
	Long: `Cellarist answers questions about your wine cellar in plain language.

It drives a language model over your inventory: what is in stock, where
each bottle lives, how you rated past bottles, and what your friends can
and cannot drink. Run "cellarist serve" to expose the HTTP API, or
"cellarist ask" for a one-off question from the terminal.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
