// Package debug implements the interactive debugger that machines consult
// at statement boundaries.
package debug

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/bytebasic-dev/bytebasic/compile"
	"github.com/bytebasic-dev/bytebasic/interp"
	"github.com/bytebasic-dev/bytebasic/status"
	"github.com/bytebasic-dev/bytebasic/symtab"
	"github.com/bytebasic-dev/bytebasic/vm"
	"github.com/gookit/color"
	"github.com/rs/zerolog/log"
)

// Breakpoint stops a run at a program line, or wherever Condition holds.
// A conditional breakpoint with a Program only fires inside that program.
type Breakpoint struct {
	ID        int
	Program   string
	Line      int
	Condition string

	cond *vm.Bytecode
}

func (bp *Breakpoint) String() string {
	switch {
	case bp.cond != nil && bp.Program != "":
		return fmt.Sprintf("#%d %s WHEN %s", bp.ID, bp.Program, bp.Condition)
	case bp.cond != nil:
		return fmt.Sprintf("#%d WHEN %s", bp.ID, bp.Condition)
	default:
		return fmt.Sprintf("#%d AT %s %d", bp.ID, bp.Program, bp.Line)
	}
}

// Debugger implements interp.Debugger. A Debugger drives one machine; only
// Break may be called from another goroutine.
type Debugger struct {
	Console  Console
	Prompt   string
	Compiler interp.StatementCompiler

	pending     atomic.Bool
	steps       int
	returnDepth int
	breaks      []*Breakpoint
	nextID      int
}

var _ interp.Debugger = (*Debugger)(nil)

func New(console Console, prompt string) *Debugger {
	return &Debugger{
		Console:  console,
		Prompt:   prompt,
		Compiler: compile.Compiler{},
	}
}

// Break requests a stop at the next statement.
func (d *Debugger) Break() {
	d.pending.Store(true)
}

// Step stops the run after n more statements.
func (d *Debugger) Step(n int) {
	d.steps = n
}

// BreakAt adds a line breakpoint.
func (d *Debugger) BreakAt(program string, line int) (*Breakpoint, error) {
	if program == "" || line <= 0 {
		return nil, status.New(status.BadBreak, fmt.Sprintf("%s %d", program, line))
	}
	return d.add(&Breakpoint{Program: strings.ToUpper(program), Line: line}), nil
}

// BreakWhen adds a conditional breakpoint. The condition is compiled once
// and evaluated against the live symbol table at every statement.
func (d *Debugger) BreakWhen(program, condition string) (*Breakpoint, error) {
	code, err := compile.Expression("BREAK", condition)
	if err != nil {
		return nil, status.Wrap(status.BadBreak, err, condition)
	}
	return d.add(&Breakpoint{
		Program:   strings.ToUpper(program),
		Condition: condition,
		cond:      code,
	}), nil
}

func (d *Debugger) add(bp *Breakpoint) *Breakpoint {
	d.nextID++
	bp.ID = d.nextID
	d.breaks = append(d.breaks, bp)
	return bp
}

// Clear removes the breakpoint with the given id.
func (d *Debugger) Clear(id int) error {
	for i, bp := range d.breaks {
		if bp.ID == id {
			d.breaks = append(d.breaks[:i], d.breaks[i+1:]...)
			return nil
		}
	}
	return status.New(status.BadBreak, fmt.Sprintf("#%d", id))
}

func (d *Debugger) ClearAll() {
	d.breaks = nil
}

func (d *Debugger) Breakpoints() []*Breakpoint {
	return append([]*Breakpoint(nil), d.breaks...)
}

// Returned fires a pending STEP RETURN once the stream it was armed in, or
// any caller of it, finishes.
func (d *Debugger) Returned(m *interp.Machine, f *interp.Frame) {
	if d.returnDepth > 0 && f.Depth() <= d.returnDepth {
		d.returnDepth = 0
		d.pending.Store(true)
	}
}

// Statement decides whether to stop before the statement at f's PC. When it
// stops, it runs the command loop until a command resumes the program.
func (d *Debugger) Statement(ctx context.Context, m *interp.Machine, f *interp.Frame) (interp.StepResult, error) {
	reason := d.stopReason(ctx, m, f)
	if reason == "" {
		return interp.ContinueStep, nil
	}
	log.Debug().Str("program", f.Code.Name).Int("line", f.Line).Str("reason", reason).Msg("Debugger: stop")
	d.printf("%s at %s\n", reason, color.Cyan.Sprintf("%s:%d", f.Code.Name, f.Line))
	return d.interact(ctx, m, f)
}

func (d *Debugger) stopReason(ctx context.Context, m *interp.Machine, f *interp.Frame) string {
	if d.pending.CompareAndSwap(true, false) {
		return "break"
	}
	if d.steps > 0 {
		d.steps--
		if d.steps == 0 {
			return "step"
		}
	}
	for _, bp := range d.breaks {
		if d.hit(ctx, m, f, bp) {
			return fmt.Sprintf("breakpoint #%d", bp.ID)
		}
	}
	return ""
}

func (d *Debugger) hit(ctx context.Context, m *interp.Machine, f *interp.Frame, bp *Breakpoint) bool {
	if bp.Program != "" && !strings.EqualFold(bp.Program, f.Code.Name) {
		return false
	}
	if bp.cond == nil {
		return bp.Line == f.Line
	}
	v, err := evaluate(ctx, m, bp.cond, f.Symbols)
	if err != nil {
		// Conditions often name variables that are not bound yet.
		log.Debug().Err(err).Int("breakpoint", bp.ID).Msg("Debugger: condition failed")
		return false
	}
	return v.AsBool()
}

// evaluate runs an expression stream on a machine of the same session with
// no debugger attached.
func evaluate(ctx context.Context, m *interp.Machine, code *vm.Bytecode, table *symtab.Table) (vm.Value, error) {
	em := m.Session.NewMachine()
	f, err := em.Run(ctx, code.Fork(), table)
	if err != nil {
		return nil, err
	}
	if f.Return == nil {
		return nil, status.New(status.BadOperand, code.Name)
	}
	return f.Return, nil
}

func (d *Debugger) printf(format string, args ...any) {
	if d.Console == nil {
		return
	}
	fmt.Fprintf(d.Console, format, args...)
}
