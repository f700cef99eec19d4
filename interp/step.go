package interp

import (
	"context"
	"strings"

	"github.com/bytebasic-dev/bytebasic/status"
	"github.com/bytebasic-dev/bytebasic/vm"
	"github.com/rs/zerolog/log"
)

// Handler executes one instruction. Handlers report failures through the
// error and structural exits through the StepResult.
type Handler func(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error)

var dispatch [vm.OpcodeMax]Handler

func init() {
	dispatch = [vm.OpcodeMax]Handler{
		vm.NOOP: opNoop,

		vm.INTEGER: opInteger,
		vm.DOUBLE:  opDouble,
		vm.STRING:  opString,
		vm.BOOL:    opBool,

		vm.LOAD:    opLoad,
		vm.LOADREF: opLoadRef,
		vm.STORE:   opStore,
		vm.STORL:   opStoreLocal,
		vm.CONST:   opConst,
		vm.CLEAR:   opClear,
		vm.COMMON:  opCommon,

		vm.DUP:  opDup,
		vm.DROP: opDrop,
		vm.SWAP: opSwap,

		vm.ADD:    opBinary,
		vm.SUB:    opBinary,
		vm.MULT:   opBinary,
		vm.DIV:    opBinary,
		vm.IDIV:   opBinary,
		vm.MOD:    opBinary,
		vm.EXP:    opBinary,
		vm.CONCAT: opBinary,
		vm.NEGATE: opNegate,

		vm.EQ: opCompare,
		vm.NE: opCompare,
		vm.LT: opCompare,
		vm.LE: opCompare,
		vm.GT: opCompare,
		vm.GE: opCompare,

		vm.AND: opLogic,
		vm.OR:  opLogic,
		vm.NOT: opNot,

		vm.ARRAY:  opArray,
		vm.RECORD: opRecord,
		vm.INDEX:  opIndex,
		vm.LENGTH: opLength,

		vm.STMT:  opStatement,
		vm.LABEL: opNoop,
		vm.END:   opEnd,
		vm.TRACE: opTrace,
		vm.DEBUG: opDebug,

		vm.BR:       opBranch,
		vm.BRZ:      opBranch,
		vm.BRNZ:     opBranch,
		vm.JSB:      opJsb,
		vm.RET:      opRet,
		vm.RETURN:   opReturn,
		vm.GOTO:     opGoto,
		vm.GOTOIND:  opGoto,
		vm.GOSUB:    opGoto,
		vm.GOSUBIND: opGoto,

		vm.FOR:      opFor,
		vm.NEXT:     opNext,
		vm.FOREACH:  opForEach,
		vm.NEXTEACH: opNextEach,
		vm.DO:       opDo,
		vm.LOOP:     opLoop,
		vm.LOOPW:    opLoop,
		vm.LOOPU:    opLoop,

		vm.ERROR:  opError,
		vm.SIGNAL: opSignal,

		vm.CALLP:  opCallProgram,
		vm.CALLF:  opCallFunction,
		vm.THREAD: opThread,

		vm.OPEN:    opOpen,
		vm.CLOSE:   opClose,
		vm.PRINT:   opPrint,
		vm.PRINTNL: opPrint,
		vm.INPUT:   opInput,
		vm.LINPUT:  opInput,
		vm.SEEK:    opSeek,
		vm.EOF:     opEOF,
	}
}

func stringOperand(in *vm.Instruction) (string, error) {
	if !in.HasStr || in.Str == "" {
		return "", status.New(status.BadOperand, in.Op.String())
	}
	return in.Str, nil
}

func intOperand(in *vm.Instruction) (int64, error) {
	if !in.HasInt {
		return 0, status.New(status.BadOperand, in.Op.String())
	}
	return in.Int, nil
}

func opNoop(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	return ContinueStep, nil
}

func opInteger(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	i, err := intOperand(in)
	if err != nil {
		return ContinueStep, err
	}
	return ContinueStep, f.Push(vm.IntValue(i))
}

func opDouble(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	if !in.HasDouble {
		return ContinueStep, status.New(status.BadOperand, in.Op.String())
	}
	return ContinueStep, f.Push(vm.FloatValue(in.Double))
}

func opString(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	if !in.HasStr {
		return ContinueStep, status.New(status.BadOperand, in.Op.String())
	}
	return ContinueStep, f.Push(vm.StrValue(in.Str))
}

func opBool(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	return ContinueStep, f.Push(vm.BoolValue(in.Int != 0))
}

func opLoad(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	name, err := stringOperand(in)
	if err != nil {
		return ContinueStep, err
	}
	v, err := f.Symbols.Value(name)
	if err != nil {
		return ContinueStep, err
	}
	log.Trace().Str("variable", name).Interface("value", v).Msg("  LOAD")
	return ContinueStep, f.Push(v)
}

func opLoadRef(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	name, err := stringOperand(in)
	if err != nil {
		return ContinueStep, err
	}
	v, err := f.Symbols.Reference(name)
	if err != nil {
		return ContinueStep, err
	}
	return ContinueStep, f.Push(v)
}

func opStore(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	return store(f, in, func(name string, v vm.Value) error { return f.Symbols.Insert(name, v) })
}

func opStoreLocal(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	return store(f, in, func(name string, v vm.Value) error { return f.Symbols.InsertLocal(name, v) })
}

func opConst(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	return store(f, in, func(name string, v vm.Value) error { return f.Symbols.InsertReadOnly(name, v) })
}

func store(f *Frame, in *vm.Instruction, bind func(string, vm.Value) error) (StepResult, error) {
	name, err := stringOperand(in)
	if err != nil {
		return ContinueStep, err
	}
	v, err := f.Pop()
	if err != nil {
		return ContinueStep, err
	}
	log.Trace().Str("variable", name).Interface("value", v).Str("op", in.Op.String()).Msg("  STORE")
	return ContinueStep, bind(name, v)
}

func opClear(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	if !in.HasStr {
		f.Symbols.Clear()
		return ContinueStep, nil
	}
	return ContinueStep, f.Symbols.Delete(in.Str)
}

func opCommon(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	name, err := stringOperand(in)
	if err != nil {
		return ContinueStep, err
	}
	f.Symbols.MarkCommon(name)
	return ContinueStep, nil
}

func opDup(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	a, err := f.Peek(0)
	if err != nil {
		return ContinueStep, err
	}
	return ContinueStep, f.Push(a.Clone())
}

func opDrop(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	_, err := f.Pop()
	return ContinueStep, err
}

func opSwap(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	if len(f.Stack) < 2 {
		return ContinueStep, status.New(status.Underflow)
	}
	n := len(f.Stack)
	f.Stack[n-1], f.Stack[n-2] = f.Stack[n-2], f.Stack[n-1]
	return ContinueStep, nil
}

func opArray(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	n, err := intOperand(in)
	if err != nil {
		return ContinueStep, err
	}
	vals, err := f.PopN(int(n))
	if err != nil {
		return ContinueStep, err
	}
	return ContinueStep, f.Push(vm.ArrayValue(vals))
}

func opRecord(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	n, err := intOperand(in)
	if err != nil {
		return ContinueStep, err
	}
	vals, err := f.PopN(int(2 * n))
	if err != nil {
		return ContinueStep, err
	}
	rec := make(vm.RecordValue, n)
	for i := 0; i < len(vals); i += 2 {
		key, ok := vals[i].(vm.StrValue)
		if !ok {
			return ContinueStep, status.New(status.TypeMismatch)
		}
		rec[strings.ToUpper(string(key))] = vals[i+1]
	}
	return ContinueStep, f.Push(rec)
}

func opIndex(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	idx, err := f.Pop()
	if err != nil {
		return ContinueStep, err
	}
	a, err := f.Pop()
	if err != nil {
		return ContinueStep, err
	}
	v, err := index(a, idx)
	if err != nil {
		return ContinueStep, err
	}
	return ContinueStep, f.Push(v)
}

// index selects element idx of a: 1-based for arrays and strings, a field
// name for records.
func index(a, idx vm.Value) (vm.Value, error) {
	switch c := a.(type) {
	case vm.ArrayValue:
		i, err := indexInt(idx)
		if err != nil {
			return nil, err
		}
		if i < 1 || i > len(c) {
			return nil, status.New(status.BadIndex, idx)
		}
		return c[i-1], nil
	case vm.StrValue:
		i, err := indexInt(idx)
		if err != nil {
			return nil, err
		}
		r := []rune(string(c))
		if i < 1 || i > len(r) {
			return nil, status.New(status.BadIndex, idx)
		}
		return vm.StrValue(r[i-1 : i]), nil
	case vm.RecordValue:
		key, ok := idx.(vm.StrValue)
		if !ok {
			return nil, status.New(status.TypeMismatch)
		}
		v, ok := c[strings.ToUpper(string(key))]
		if !ok {
			return nil, status.New(status.BadIndex, key)
		}
		return v, nil
	}
	return nil, status.New(status.TypeMismatch)
}

func indexInt(v vm.Value) (int, error) {
	c, err := vm.Coerce(v, vm.KindInteger)
	if err != nil {
		return 0, status.Wrap(status.TypeMismatch, err)
	}
	return int(c.(vm.IntValue)), nil
}

func opLength(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	a, err := f.Pop()
	if err != nil {
		return ContinueStep, err
	}
	var n int
	switch c := a.(type) {
	case vm.ArrayValue:
		n = len(c)
	case vm.RecordValue:
		n = len(c)
	case vm.StrValue:
		n = len([]rune(string(c)))
	default:
		return ContinueStep, status.New(status.TypeMismatch)
	}
	return ContinueStep, f.Push(vm.IntValue(n))
}
