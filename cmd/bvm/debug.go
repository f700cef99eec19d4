package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bytebasic-dev/bytebasic/debug"
	"github.com/spf13/cobra"
)

var (
	breakAt   []string
	breakWhen []string
	noStop    bool
)

var debugCmd = &cobra.Command{
	Use:   "debug FILE [ARGS...]",
	Short: "Run a program under the interactive debugger",
	Long: `Run a program under the interactive debugger. The debugger stops at the
first statement unless --go is given. Type HELP at the prompt for commands.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d := debug.New(debug.NewConsole(os.Stdin, os.Stderr), cfg.Debug.Prompt)
		for _, loc := range breakAt {
			program, line, err := parseBreak(loc)
			if err != nil {
				return err
			}
			if _, err := d.BreakAt(program, line); err != nil {
				return err
			}
		}
		for _, cond := range breakWhen {
			if _, err := d.BreakWhen("", cond); err != nil {
				return err
			}
		}
		if !noStop {
			d.Break()
		}
		return execute(cmd.Context(), args[0], args[1:], d)
	},
}

func init() {
	debugCmd.Flags().StringArrayVar(&breakAt, "break", nil, "Stop at PROGRAM:LINE (repeatable)")
	debugCmd.Flags().StringArrayVar(&breakWhen, "when", nil, "Stop wherever the expression is true (repeatable)")
	debugCmd.Flags().BoolVar(&noStop, "go", false, "Run until the first breakpoint")
}

func parseBreak(loc string) (string, int, error) {
	program, line, ok := strings.Cut(loc, ":")
	if !ok {
		return "", 0, fmt.Errorf("breakpoint %q: expected PROGRAM:LINE", loc)
	}
	n, err := strconv.Atoi(line)
	if err != nil {
		return "", 0, fmt.Errorf("breakpoint %q: %w", loc, err)
	}
	return program, n, nil
}
