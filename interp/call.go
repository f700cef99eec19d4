package interp

import (
	"context"
	"strings"

	"github.com/bytebasic-dev/bytebasic/status"
	"github.com/bytebasic-dev/bytebasic/symtab"
	"github.com/bytebasic-dev/bytebasic/vm"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ArgsName holds the argument list inside a called program.
const ArgsName = "$ARGS"

func callOperands(f *Frame, in *vm.Instruction) (string, []vm.Value, error) {
	name, err := stringOperand(in)
	if err != nil {
		return "", nil, err
	}
	args, err := f.PopN(int(in.Int))
	if err != nil {
		return "", nil, err
	}
	return name, args, nil
}

// bindArgs binds args to params in a fresh table. Missing arguments take
// their parameter default.
func bindArgs(table *symtab.Table, params []Param, args []vm.Value) error {
	if err := table.InsertLocal(ArgsName, vm.ArrayValue(args)); err != nil {
		return err
	}
	if len(params) > 0 && len(args) > len(params) {
		return status.New(status.ArgCount)
	}
	for i, p := range params {
		var v vm.Value
		switch {
		case i < len(args):
			v = args[i]
		case p.Default != nil:
			v = p.Default.Clone()
		default:
			return status.New(status.ArgCount)
		}
		if err := table.InsertLocal(p.Name, v); err != nil {
			return err
		}
	}
	return nil
}

// runProgram runs code in a new table under the session globals.
func (m *Machine) runProgram(ctx context.Context, code *vm.Bytecode, params []Param, args []vm.Value) (*Frame, error) {
	table := symtab.NewTable(code.Name, m.Session.Global)
	if err := bindArgs(table, params, args); err != nil {
		return nil, err
	}
	log.Trace().Str("program", code.Name).Int("args", len(args)).Msg("call")
	f, err := m.Run(ctx, code, table)
	if err != nil {
		return f, err
	}
	if f.Halt == HaltedTransfer {
		return f, status.New(status.UnknownLabel, f.Transfer)
	}
	return f, nil
}

func opCallProgram(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	name, args, err := callOperands(f, in)
	if err != nil {
		return ContinueStep, err
	}
	code, err := m.Runtime.Program(name)
	if err != nil {
		return ContinueStep, err
	}
	callee, err := m.runProgram(ctx, code, nil, args)
	if err != nil {
		return ContinueStep, err
	}
	if callee.Halt == HaltedBreak {
		return BreakStep, nil
	}
	if callee.Return != nil {
		return ContinueStep, f.Push(callee.Return)
	}
	return ContinueStep, nil
}

func opCallFunction(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	name, args, err := callOperands(f, in)
	if err != nil {
		return ContinueStep, err
	}
	r, err := m.Runtime.Function(name, args)
	if err != nil {
		return ContinueStep, err
	}
	var result vm.Value
	if r.Builtin != nil {
		result, err = r.Builtin(ctx, m, args)
		if err != nil {
			return ContinueStep, err
		}
	} else {
		callee, err := m.runProgram(ctx, r.Procedure.Fork(), r.Params, args)
		if err != nil {
			return ContinueStep, err
		}
		if callee.Halt == HaltedBreak {
			return BreakStep, nil
		}
		result = callee.Return
	}
	if result == nil {
		return ContinueStep, status.New(status.BadOperand, "FUNCTION "+strings.ToUpper(name))
	}
	return ContinueStep, f.Push(result)
}

// opThread runs a program on a new Machine. The thread's table hangs off
// the current table and its id is pushed.
func opThread(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	name, args, err := callOperands(f, in)
	if err != nil {
		return ContinueStep, err
	}
	code, err := m.Runtime.Program(name)
	if err != nil {
		return ContinueStep, err
	}
	t := m.Session.NewMachine()
	table := symtab.NewTable(code.Name, f.Symbols)
	if err := bindArgs(table, nil, args); err != nil {
		return ContinueStep, err
	}
	_ = table.InsertLocal("SYS$THREAD", vm.StrValue(t.ID.String()))
	m.Runtime.spawn(ctx, t.ID, code.Name, func(ctx context.Context) error {
		_, err := t.Run(ctx, code, table)
		return err
	})
	log.Debug().Str("thread", t.ID.String()).Str("program", code.Name).Msg("thread started")
	return ContinueStep, f.Push(vm.StrValue(t.ID.String()))
}

// ThreadID parses a value pushed by _THREAD.
func ThreadID(v vm.Value) (uuid.UUID, error) {
	return uuid.Parse(v.String())
}
