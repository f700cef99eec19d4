package interp

import (
	"context"
	"errors"

	"github.com/bytebasic-dev/bytebasic/status"
	"github.com/bytebasic-dev/bytebasic/symtab"
	"github.com/bytebasic-dev/bytebasic/vm"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Machine is one thread of execution. It owns the error handler stack and
// drives one stream at a time; nested calls run on the same Machine.
type Machine struct {
	ID        uuid.UUID
	Session   *Session
	Runtime   *Runtime
	OnStack   *OnStack
	Debugger  Debugger
	Tokenizer vm.Tokenizer

	depth int
}

// Run executes code from its first instruction against symbols.
func (m *Machine) Run(ctx context.Context, code *vm.Bytecode, symbols *symtab.Table) (*Frame, error) {
	code.PC = 0
	f := NewFrame(code, symbols)
	return f, m.Execute(ctx, f)
}

// Execute runs f from f.Code.PC until the stream halts.
func (m *Machine) Execute(ctx context.Context, f *Frame) error {
	code := f.Code
	if limit := m.Runtime.Config.Runtime.MaxDepth; limit > 0 && m.depth >= limit {
		return status.New(status.Overflow)
	}
	m.depth++
	defer func() { m.depth-- }()

	f.maxStack = m.Runtime.Config.Runtime.MaxStack
	f.depth = m.depth
	f.TraceStatements = m.Session.TraceStatements && !code.Protected
	f.TraceInstructions = m.Session.TraceInstructions && !code.Protected
	f.Halt = Running
	code.Running = true
	code.LastError = nil
	defer func() { code.Running = false }()

	if code.HasErrorHandler {
		m.OnStack.Push(code.Name, code)
		defer m.OnStack.Pop()
	}
	if m.Debugger != nil && code.Linked {
		defer m.Debugger.Returned(m, f)
	}

	log.Trace().Str("program", code.Name).Int("pc", code.PC).Int("depth", m.depth).Msg("Execute: start")
	for code.PC < code.Len() {
		res, err := m.Step(ctx, f)
		if err == nil {
			switch res {
			case ContinueStep, StatementStep:
				continue
			case ReturnStep, EndStep:
				f.Halt = HaltedNormal
			case BreakStep:
				f.Halt = HaltedBreak
			case TransferStep:
				f.Halt = HaltedTransfer
			}
			log.Trace().Str("program", code.Name).Str("result", res.String()).Msg("Execute: halt")
			return nil
		}

		st := status.From(err)
		if st.Line == 0 {
			st.Line = f.Line
		}
		code.LastError = st
		if code.Linked && recoverable(ctx, st) && m.recover(f, st) {
			continue
		}
		f.Halt = HaltedError
		log.Trace().Str("program", code.Name).Err(st).Msg("Execute: failed")
		return st
	}
	f.Halt = HaltedNormal
	return nil
}

// recoverable reports whether a failure may be routed to ON ERROR handlers.
// A cancelled context and a missing opcode handler always reach the caller.
func recoverable(ctx context.Context, st *status.Status) bool {
	if ctx.Err() != nil {
		return false
	}
	return st.Code != status.Unimplemented
}

// recover transfers control to the handler for st, if one is installed.
func (m *Machine) recover(f *Frame, st *status.Status) bool {
	code := f.Code
	h, ok := m.OnStack.Find(code, st.Code)
	if !ok {
		return false
	}
	addr, ok := code.Resolve(h.Label)
	if !ok {
		log.Debug().Str("label", h.Label).Str("code", st.Code.String()).Msg("OnStack: handler label missing")
		return false
	}
	f.Drain()
	rec := vm.RecordValue{
		"CODE":    vm.StrValue(st.Code),
		"MESSAGE": vm.StrValue(st.Message()),
		"LINE":    vm.IntValue(int64(st.Line)),
		"PROGRAM": vm.StrValue(code.Name),
	}
	if err := f.Symbols.Insert("SYS$STATUS", rec); err != nil {
		// The handler still runs; it sees whatever SYS$STATUS held before.
		log.Debug().Err(err).Str("code", st.Code.String()).Msg("OnStack: SYS$STATUS not updated")
	}
	if h.Kind == Gosub {
		f.pushGosub(addr, code.NextStatement(code.PC))
	}
	log.Debug().
		Str("code", st.Code.String()).
		Str("label", h.Label).
		Str("kind", h.Kind.String()).
		Int("address", addr).
		Msg("OnStack: handling error")
	code.PC = addr
	return true
}

// checkAbort consumes a pending abort request.
func (m *Machine) checkAbort(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return status.Wrap(status.Interrupt, err)
	}
	if m.Runtime.abort.CompareAndSwap(true, false) || m.Session.abort.CompareAndSwap(true, false) {
		return status.New(status.Interrupt)
	}
	return nil
}

// Step executes the instruction at the frame's program counter.
func (m *Machine) Step(ctx context.Context, f *Frame) (StepResult, error) {
	if err := m.checkAbort(ctx); err != nil {
		return ContinueStep, err
	}
	code := f.Code
	pc := code.PC
	inst, err := code.At(pc)
	if err != nil {
		if errors.Is(err, vm.ErrEndOfCode) {
			return EndStep, nil
		}
		return ContinueStep, status.Wrap(status.Fault, err, err.Error())
	}
	code.PC++
	inst.Count()
	m.Runtime.instructions.Add(1)

	log.Trace().
		Str("opcode", inst.Op.String()).
		Int("pc", pc).
		Int("stack_depth", len(f.Stack)).
		Msg("Step: executing instruction")
	if f.TraceInstructions {
		m.Session.Logger.Info().
			Str("program", code.Name).
			Int("pc", pc).
			Str("instruction", inst.String()).
			Str("stack", FormatStack(f.Stack)).
			Msg("TRACE")
	}

	var h Handler
	if inst.Op.Valid() {
		h = dispatch[inst.Op]
	}
	if h == nil {
		return ContinueStep, status.New(status.Unimplemented, inst.Op.String())
	}
	return h(ctx, m, f, inst)
}

// Call runs a registered program with arguments, as _CALLP does.
func (m *Machine) Call(ctx context.Context, name string, args ...vm.Value) (vm.Value, error) {
	code, err := m.Runtime.Program(name)
	if err != nil {
		return nil, err
	}
	f, err := m.runProgram(ctx, code, nil, args)
	if err != nil {
		return nil, err
	}
	return f.Return, nil
}
