package debug

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/bytebasic-dev/bytebasic/compile"
	"github.com/bytebasic-dev/bytebasic/interp"
	"github.com/bytebasic-dev/bytebasic/status"
	"github.com/bytebasic-dev/bytebasic/symtab"
	"github.com/gookit/color"
)

const helpText = `STEP [n]              run n statements, then stop
STEP RETURN           stop after the current program returns
CONTINUE | RESUME     run until the next breakpoint
BREAK [AT] [pgm] line stop at a line
BREAK [pgm] WHEN expr stop wherever expr is true
BREAK                 list breakpoints
CLEAR [id | ALL]      remove breakpoints
SHOW SYMBOLS | STACK | CODE | BREAKS | expr
WHERE                 show the current location
QUIT                  stop the program
Anything else runs as a statement against the program's variables.
`

var commandWords = map[string]bool{
	"STEP": true, "CONTINUE": true, "RESUME": true, "BREAK": true, "CLEAR": true,
	"SHOW": true, "WHERE": true, "QUIT": true, "HELP": true,
}

// isCommand tells debugger commands from statements: "step = 2" assigns a
// variable, "step 2" steps.
func isCommand(fields []string) bool {
	if len(fields) == 0 || !commandWords[strings.ToUpper(fields[0])] {
		return false
	}
	return len(fields) == 1 || !strings.ContainsAny(fields[1][:1], "=+-*/%([.")
}

// interact reads commands until one resumes or stops the program.
func (d *Debugger) interact(ctx context.Context, m *interp.Machine, f *interp.Frame) (interp.StepResult, error) {
	if d.Console == nil {
		return interp.ContinueStep, nil
	}
	for {
		if err := ctx.Err(); err != nil {
			return interp.ContinueStep, err
		}
		d.printf("%s", color.Green.Sprint(d.Prompt))
		line, err := d.Console.ReadLine()
		if errors.Is(err, io.EOF) {
			return interp.BreakStep, nil
		}
		if err != nil {
			return interp.ContinueStep, status.Wrap(status.IOError, err)
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if !isCommand(fields) {
			d.execute(ctx, m, f, line)
			continue
		}
		res, done, err := d.command(ctx, m, f, strings.ToUpper(fields[0]), fields[1:], line)
		if err != nil {
			d.printf("%s\n", color.Red.Sprint(err))
			continue
		}
		if done {
			return res, nil
		}
	}
}

// command runs one debugger command. done reports whether the command hands
// control back to the run loop.
func (d *Debugger) command(ctx context.Context, m *interp.Machine, f *interp.Frame, word string, args []string, line string) (interp.StepResult, bool, error) {
	switch word {
	case "STEP":
		if len(args) == 1 && strings.EqualFold(args[0], "RETURN") {
			d.returnDepth = f.Depth()
			return interp.ContinueStep, true, nil
		}
		n := 1
		if len(args) > 0 {
			v, err := strconv.Atoi(args[0])
			if err != nil || v <= 0 {
				return interp.ContinueStep, false, status.New(status.BadOperand, args[0])
			}
			n = v
		}
		d.Step(n)
		return interp.ContinueStep, true, nil
	case "CONTINUE", "RESUME":
		d.steps = 0
		return interp.ContinueStep, true, nil
	case "QUIT":
		return interp.BreakStep, true, nil
	case "BREAK":
		return interp.ContinueStep, false, d.breakCommand(f, args, line)
	case "CLEAR":
		if len(args) == 0 || strings.EqualFold(args[0], "ALL") {
			d.ClearAll()
			return interp.ContinueStep, false, nil
		}
		id, err := strconv.Atoi(strings.TrimPrefix(args[0], "#"))
		if err != nil {
			return interp.ContinueStep, false, status.New(status.BadBreak, args[0])
		}
		return interp.ContinueStep, false, d.Clear(id)
	case "SHOW":
		return interp.ContinueStep, false, d.show(ctx, m, f, args, line)
	case "WHERE":
		d.printf("%s line %d, pc %d, depth %d\n", f.Code.Name, f.Line, f.Code.PC, f.Depth())
	case "HELP":
		d.printf("%s", helpText)
	}
	return interp.ContinueStep, false, nil
}

func (d *Debugger) breakCommand(f *interp.Frame, args []string, line string) error {
	if len(args) == 0 {
		for _, bp := range d.breaks {
			d.printf("%s\n", bp)
		}
		return nil
	}
	if strings.EqualFold(args[0], "AT") {
		args = args[1:]
	}
	program := f.Code.Name
	// WHEN takes the rest of the raw line, spacing included.
	for i, a := range args {
		if !strings.EqualFold(a, "WHEN") || i > 1 {
			continue
		}
		if i == 1 {
			program = args[0]
		} else {
			program = ""
		}
		at := strings.Index(strings.ToUpper(line), "WHEN")
		bp, err := d.BreakWhen(program, strings.TrimSpace(line[at+len("WHEN"):]))
		if err != nil {
			return err
		}
		d.printf("breakpoint %s\n", bp)
		return nil
	}
	var lineArg string
	switch len(args) {
	case 1:
		lineArg = args[0]
	case 2:
		program, lineArg = args[0], args[1]
	default:
		return status.New(status.BadBreak, strings.Join(args, " "))
	}
	n, err := strconv.Atoi(lineArg)
	if err != nil {
		return status.New(status.BadBreak, lineArg)
	}
	bp, err := d.BreakAt(program, n)
	if err != nil {
		return err
	}
	d.printf("breakpoint %s\n", bp)
	return nil
}

func (d *Debugger) show(ctx context.Context, m *interp.Machine, f *interp.Frame, args []string, line string) error {
	if len(args) == 0 {
		return status.New(status.BadOperand, "SHOW")
	}
	switch strings.ToUpper(args[0]) {
	case "SYMBOLS":
		d.showSymbols(f.Symbols)
		return nil
	case "STACK":
		d.printf("%s\n", interp.FormatStack(f.Stack))
		return nil
	case "BREAKS":
		return d.breakCommand(f, nil, "")
	case "CODE":
		d.showCode(f)
		return nil
	}
	at := strings.Index(strings.ToUpper(line), "SHOW")
	code, err := compile.Expression("SHOW", strings.TrimSpace(line[at+len("SHOW"):]))
	if err != nil {
		return err
	}
	v, err := evaluate(ctx, m, code, f.Symbols)
	if err != nil {
		return err
	}
	d.printf("%s\n", interp.FormatValue(v))
	return nil
}

// showSymbols lists every table from the frame's own out to the root.
// Connector values are skipped since reading them has side effects.
func (d *Debugger) showSymbols(t *symtab.Table) {
	for ; t != nil; t = t.Parent() {
		d.printf("%s\n", color.Bold.Sprint(t.Name))
		for _, name := range t.Names() {
			if symtab.IsConnector(name) {
				continue
			}
			v, ok := t.FindReference(name)
			if !ok {
				continue
			}
			d.printf("  %-20s %s\n", name, interp.FormatValue(v))
		}
	}
}

// showCode lists a window of instructions around the PC.
func (d *Debugger) showCode(f *interp.Frame) {
	code := f.Code
	from := max(code.PC-3, 0)
	to := min(code.PC+5, code.Len())
	for addr := from; addr < to; addr++ {
		marker := "  "
		if addr == code.PC {
			marker = "=>"
		}
		d.printf("%s %04d: %s\n", marker, addr, code.Instructions[addr])
	}
}

// execute compiles line as a statement and runs it against the frame's
// symbol table on a debugger-free machine.
func (d *Debugger) execute(ctx context.Context, m *interp.Machine, f *interp.Frame, line string) {
	c := d.Compiler
	if c == nil {
		c = m.Runtime.Compiler
	}
	if c == nil {
		d.printf("%s\n", color.Red.Sprint(status.New(status.Syntax, line)))
		return
	}
	code, err := c.CompileStatement(line)
	if err == nil {
		_, err = m.Session.NewMachine().Run(ctx, code, f.Symbols)
	}
	if err != nil {
		d.printf("%s\n", color.Red.Sprint(err))
	}
}
