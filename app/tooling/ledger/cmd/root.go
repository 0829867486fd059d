// Package cmd contains the ledger tooling commands.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var payload string

func init() {
	rootCmd.PersistentFlags().StringVarP(&payload, "payload", "d", "X", "Block payload.")
}

var rootCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Proof of work ledger tooling",
}

// Execute runs the command selected on the command line.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
