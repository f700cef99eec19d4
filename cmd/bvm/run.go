package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/bytebasic-dev/bytebasic/debug"
	"github.com/bytebasic-dev/bytebasic/interp"
	"github.com/bytebasic-dev/bytebasic/symtab"
	"github.com/gookit/color"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	traceStatements   bool
	traceInstructions bool
	strongTyping      bool
	profileFlag       bool
)

var runCmd = &cobra.Command{
	Use:   "run FILE [ARGS...]",
	Short: "Run a program",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return execute(cmd.Context(), args[0], args[1:], nil)
	},
}

func init() {
	runCmd.Flags().BoolVar(&traceStatements, "trace", false, "Log every statement")
	runCmd.Flags().BoolVar(&traceInstructions, "trace-instructions", false, "Log every instruction")
	for _, c := range []*cobra.Command{runCmd, traceCmd, debugCmd} {
		c.Flags().BoolVar(&strongTyping, "strong", false, "Coerce stores to the type a variable already holds")
		c.Flags().BoolVar(&profileFlag, "profile", false, "Print instruction execution counts when the program ends")
	}
}

// execute runs the main program in path.
func execute(ctx context.Context, path string, args []string, d *debug.Debugger) error {
	if strongTyping {
		cfg.Runtime.StrongTyping = true
	}
	cfg.Trace.Statements = cfg.Trace.Statements || traceStatements
	cfg.Trace.Instructions = cfg.Trace.Instructions || traceInstructions

	rt, prog, err := newRuntime(cfg, path)
	if err != nil {
		return err
	}
	s := rt.NewSession(interp.NewConsole(os.Stdin, os.Stdout))
	m := s.NewMachine()

	// An interrupt is an ordinary abort, so ON ERROR INTERRUPT handlers see
	// it. Under the debugger it stops at the next statement instead.
	interrupt := s.Abort
	if d != nil {
		m.Debugger = d
		interrupt = d.Break
	}
	defer onInterrupt(interrupt)()

	table := symtab.NewTable(prog.Name, s.Global)
	if err := table.InsertLocal(interp.ArgsName, argValues(args)); err != nil {
		return err
	}
	f, runErr := m.Run(ctx, prog, table)
	err = multierror.Append(runErr, rt.Wait(), s.CloseAll()).ErrorOrNil()

	if profileFlag {
		fmt.Fprintln(os.Stderr, color.Bold.Sprint("Profile:"))
		if perr := prog.WriteProfile(os.Stderr); perr != nil {
			log.Error().Err(perr).Msg("Couldn't write profile")
		}
	}
	log.Debug().
		Uint64("instructions", rt.Instructions()).
		Uint64("statements", rt.Statements()).
		Msg("run finished")

	if err != nil {
		fmt.Fprintln(os.Stderr, color.Red.Sprintf("%s: %s", prog.Name, err))
		return errors.New("program failed")
	}
	switch {
	case f.Halt == interp.HaltedBreak:
		fmt.Fprintln(os.Stderr, color.Yellow.Sprintf("%s %s at line %d", prog.Name, f.Halt, f.Line))
	case f.Halt == interp.HaltedTransfer:
		fmt.Fprintln(os.Stderr, color.Yellow.Sprintf("%s: no label %s", prog.Name, f.Transfer))
	case f.Return != nil:
		fmt.Fprintln(os.Stderr, color.Cyan.Sprint(interp.FormatValue(f.Return)))
	}
	return nil
}

// onInterrupt calls fn for every SIGINT until the returned stop is called.
func onInterrupt(fn func()) (stop func()) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-sigs:
				fn()
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(sigs)
		close(done)
	}
}
