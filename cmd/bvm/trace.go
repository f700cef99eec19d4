package main

import (
	"github.com/spf13/cobra"
)

var traceCmd = &cobra.Command{
	Use:   "trace FILE [ARGS...]",
	Short: "Run a program logging every statement and instruction",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		traceStatements = true
		traceInstructions = true
		return execute(cmd.Context(), args[0], args[1:], nil)
	},
}
