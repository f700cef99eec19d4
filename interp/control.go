package interp

import (
	"context"
	"sort"
	"strings"

	"github.com/bytebasic-dev/bytebasic/status"
	"github.com/bytebasic-dev/bytebasic/vm"
	"github.com/rs/zerolog/log"
)

func opStatement(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	if in.HasInt {
		f.Line = int(in.Int)
	}
	m.Runtime.statements.Add(1)
	if f.TraceStatements {
		m.Session.Logger.Info().
			Str("program", f.Code.Name).
			Int("line", f.Line).
			Msg("STMT")
	}
	if m.Debugger != nil && !f.Code.Protected {
		res, err := m.Debugger.Statement(ctx, m, f)
		if err != nil || res == BreakStep {
			return res, err
		}
	}
	return StatementStep, nil
}

func opEnd(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	if f.Code.PopReturn && len(f.Stack) > 0 {
		v, _ := f.Pop()
		f.Return = v
	}
	return EndStep, nil
}

const (
	traceStatements   = 1
	traceInstructions = 2
)

func opTrace(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	if f.Code.Protected {
		return ContinueStep, nil
	}
	on := in.HasDouble && in.Double != 0
	if in.Int&traceStatements != 0 {
		f.TraceStatements = on
	}
	if in.Int&traceInstructions != 0 {
		f.TraceInstructions = on
	}
	return ContinueStep, nil
}

func opDebug(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	if m.Debugger == nil {
		return ContinueStep, status.New(status.NoDebugger)
	}
	m.Debugger.Break()
	return ContinueStep, nil
}

// jump validates and takes a branch. The stream length is a valid target
// and ends the run.
func jump(f *Frame, in *vm.Instruction) error {
	target, ok := in.Target()
	if !ok || target < 0 || target > f.Code.Len() {
		return status.New(status.BadOperand, in.Op.String())
	}
	f.Code.PC = target
	return nil
}

func opBranch(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	if in.Op != vm.BR {
		a, err := f.Pop()
		if err != nil {
			return ContinueStep, err
		}
		if a.AsBool() != (in.Op == vm.BRNZ) {
			return ContinueStep, nil
		}
	}
	return ContinueStep, jump(f, in)
}

func opJsb(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	ret := f.Code.PC
	if err := jump(f, in); err != nil {
		return ContinueStep, err
	}
	f.pushGosub(f.Code.PC, ret)
	return ContinueStep, nil
}

func opRet(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	scb, err := f.popGosub()
	if err != nil {
		return ContinueStep, err
	}
	f.Code.PC = scb.Return
	return ContinueStep, nil
}

func opReturn(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	if in.HasInt && in.Int == 1 {
		v, err := f.Pop()
		if err != nil {
			return ContinueStep, err
		}
		f.Return = v
	}
	return ReturnStep, nil
}

// opGoto covers GOTO and GOSUB with a label operand or a label popped from
// the stack. Linked streams use the label map. Unlinked streams search
// their own labels and otherwise halt with a control transfer so the
// caller can continue at that label.
func opGoto(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	var label string
	if in.Op == vm.GOTOIND || in.Op == vm.GOSUBIND {
		v, err := f.Pop()
		if err != nil {
			return ContinueStep, err
		}
		label = v.String()
	} else {
		s, err := stringOperand(in)
		if err != nil {
			return ContinueStep, err
		}
		label = s
	}
	gosub := in.Op == vm.GOSUB || in.Op == vm.GOSUBIND

	var addr int
	var ok bool
	if f.Code.Linked {
		addr, ok = f.Code.Resolve(label)
		if !ok {
			return ContinueStep, status.New(status.UnknownLabel, label)
		}
	} else if addr, ok = f.Code.FindLabel(label); !ok {
		f.Transfer = label
		f.TransferG = gosub
		log.Trace().Str("label", label).Bool("gosub", gosub).Msg("  GOTO: control transfer")
		return TransferStep, nil
	}
	if gosub {
		f.pushGosub(addr, f.Code.PC)
	}
	f.Code.PC = addr
	return ContinueStep, nil
}

func forVariable(in *vm.Instruction) (string, error) {
	return stringOperand(in)
}

// pastEnd reports whether v has run beyond end for a loop stepping by incr.
func pastEnd(v, end, incr vm.Value) (bool, error) {
	c, ok := vm.Compare(v, end)
	if !ok {
		return false, status.New(status.TypeMismatch)
	}
	d, ok := vm.Compare(incr, vm.IntValue(0))
	if !ok {
		return false, status.New(status.TypeMismatch)
	}
	if d < 0 {
		return c < 0, nil
	}
	return c > 0, nil
}

func opFor(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	name, err := forVariable(in)
	if err != nil {
		return ContinueStep, err
	}
	vals, err := f.PopN(3)
	if err != nil {
		return ContinueStep, err
	}
	start, end, incr := vals[0], vals[1], vals[2]
	if err := f.Symbols.Insert(name, start); err != nil {
		return ContinueStep, err
	}
	done, err := pastEnd(start, end, incr)
	if err != nil {
		return ContinueStep, err
	}
	if done {
		return ContinueStep, jump(f, in)
	}
	if err := f.Push(end); err != nil {
		return ContinueStep, err
	}
	return ContinueStep, f.Push(incr)
}

func opNext(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	name, err := forVariable(in)
	if err != nil {
		return ContinueStep, err
	}
	if len(f.Stack) < 2 {
		return ContinueStep, status.New(status.NoFor)
	}
	incr, _ := f.Peek(0)
	end, _ := f.Peek(1)
	cur, err := f.Symbols.Reference(name)
	if err != nil {
		return ContinueStep, err
	}
	next, err := binaryOp(vm.ADD, cur, incr)
	if err != nil {
		return ContinueStep, err
	}
	if err := f.Symbols.Insert(name, next); err != nil {
		return ContinueStep, err
	}
	done, err := pastEnd(next, end, incr)
	if err != nil {
		return ContinueStep, err
	}
	if done {
		_, err := f.PopN(2)
		return ContinueStep, err
	}
	return ContinueStep, jump(f, in)
}

// elements returns what FOREACH walks: array elements, or the sorted field
// names of a record.
func elements(v vm.Value) (vm.ArrayValue, error) {
	switch c := v.(type) {
	case vm.ArrayValue:
		return c, nil
	case vm.RecordValue:
		keys := make([]string, 0, len(c))
		for k := range c {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(vm.ArrayValue, len(keys))
		for i, k := range keys {
			out[i] = vm.StrValue(k)
		}
		return out, nil
	}
	return nil, status.New(status.TypeMismatch)
}

func opForEach(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	name, err := forVariable(in)
	if err != nil {
		return ContinueStep, err
	}
	v, err := f.Pop()
	if err != nil {
		return ContinueStep, err
	}
	elems, err := elements(v)
	if err != nil {
		return ContinueStep, err
	}
	if len(elems) == 0 {
		return ContinueStep, jump(f, in)
	}
	if err := f.Symbols.Insert(name, elems[0]); err != nil {
		return ContinueStep, err
	}
	if err := f.Push(elems); err != nil {
		return ContinueStep, err
	}
	return ContinueStep, f.Push(vm.IntValue(1))
}

func opNextEach(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	name, err := forVariable(in)
	if err != nil {
		return ContinueStep, err
	}
	if len(f.Stack) < 2 {
		return ContinueStep, status.New(status.NoFor)
	}
	nv, _ := f.Peek(0)
	av, _ := f.Peek(1)
	n, ok := nv.(vm.IntValue)
	elems, aok := av.(vm.ArrayValue)
	if !ok || !aok || n < 0 {
		return ContinueStep, status.New(status.NoFor)
	}
	if n >= vm.IntValue(len(elems)) {
		_, err := f.PopN(2)
		return ContinueStep, err
	}
	if err := f.Symbols.Insert(name, elems[n]); err != nil {
		return ContinueStep, err
	}
	f.Stack[len(f.Stack)-1] = n + 1
	return ContinueStep, jump(f, in)
}

func opDo(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	a, err := f.Pop()
	if err != nil {
		return ContinueStep, err
	}
	if a.AsBool() {
		return ContinueStep, nil
	}
	return ContinueStep, jump(f, in)
}

func opLoop(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	if in.Op == vm.LOOP {
		return ContinueStep, jump(f, in)
	}
	a, err := f.Pop()
	if err != nil {
		return ContinueStep, err
	}
	if a.AsBool() == (in.Op == vm.LOOPW) {
		return ContinueStep, jump(f, in)
	}
	return ContinueStep, nil
}

// opError installs or clears an ON ERROR handler in the current stream's
// handler frame.
func opError(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	c, err := f.Pop()
	if err != nil {
		return ContinueStep, err
	}
	code := status.Code(strings.ToUpper(c.String()))
	frame, ok := m.OnStack.Top(f.Code)
	if !ok {
		return ContinueStep, status.New(status.Fault, "no handler frame for "+f.Code.Name)
	}
	if !in.HasStr || in.Str == "" {
		frame.Clear(code)
		return ContinueStep, nil
	}
	kind := Goto
	if in.HasInt && in.Int == 1 {
		kind = Gosub
	}
	frame.Set(code, OnHandler{Label: in.Str, Kind: kind})
	log.Debug().Str("code", code.String()).Str("label", in.Str).Str("kind", kind.String()).Msg("OnStack: handler installed")
	return ContinueStep, nil
}

// opSignal raises a code. With int operand 1 a parameter is popped first.
func opSignal(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	var params []any
	if in.HasInt && in.Int == 1 {
		p, err := f.Pop()
		if err != nil {
			return ContinueStep, err
		}
		params = append(params, p.String())
	}
	c, err := f.Pop()
	if err != nil {
		return ContinueStep, err
	}
	return ContinueStep, status.New(status.Code(strings.ToUpper(c.String())), params...)
}
