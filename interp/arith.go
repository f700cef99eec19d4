package interp

import (
	"context"
	"math"

	"github.com/bytebasic-dev/bytebasic/status"
	"github.com/bytebasic-dev/bytebasic/vm"
	"github.com/rs/zerolog/log"
)

func opBinary(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	b, err := f.Pop()
	if err != nil {
		return ContinueStep, err
	}
	a, err := f.Pop()
	if err != nil {
		return ContinueStep, err
	}
	v, err := binaryOp(in.Op, a, b)
	if err != nil {
		log.Trace().Str("op", in.Op.String()).Interface("a", a).Interface("b", b).Err(err).Msg("  NUMERIC_OP: error")
		return ContinueStep, err
	}
	log.Trace().Str("op", in.Op.String()).Interface("a", a).Interface("b", b).Interface("result", v).Msg("  NUMERIC_OP")
	return ContinueStep, f.Push(v)
}

func binaryOp(op vm.Opcode, a, b vm.Value) (vm.Value, error) {
	if op == vm.CONCAT {
		return vm.StrValue(a.String() + b.String()), nil
	}
	if op == vm.ADD {
		if _, ok := a.(vm.StrValue); ok {
			return vm.StrValue(a.String() + b.String()), nil
		}
		if _, ok := b.(vm.StrValue); ok {
			return vm.StrValue(a.String() + b.String()), nil
		}
		if x, ok := a.(vm.ArrayValue); ok {
			out := append(x.Clone().(vm.ArrayValue), b.Clone())
			return out, nil
		}
	}
	x, xok := a.(vm.IntValue)
	y, yok := b.(vm.IntValue)
	if xok && yok {
		return intOp(op, int64(x), int64(y))
	}
	fa, err := vm.Coerce(a, vm.KindDouble)
	if err != nil {
		return nil, status.Wrap(status.TypeMismatch, err)
	}
	fb, err := vm.Coerce(b, vm.KindDouble)
	if err != nil {
		return nil, status.Wrap(status.TypeMismatch, err)
	}
	return floatOp(op, float64(fa.(vm.FloatValue)), float64(fb.(vm.FloatValue)))
}

// intOp does integer arithmetic. Results that do not fit in 64 bits are
// math errors rather than wrapping.
func intOp(op vm.Opcode, x, y int64) (vm.Value, error) {
	var r int64
	ok := true
	switch op {
	case vm.ADD:
		r = x + y
		ok = (x >= 0) != (y >= 0) || (r >= 0) == (x >= 0)
	case vm.SUB:
		r = x - y
		ok = (x >= 0) == (y >= 0) || (r >= 0) == (x >= 0)
	case vm.MULT:
		r, ok = mulInt(x, y)
	case vm.DIV:
		if y == 0 {
			return nil, status.New(status.DivZero)
		}
		if x == math.MinInt64 && y == -1 {
			return vm.FloatValue(-float64(x)), nil
		}
		if x%y != 0 {
			return vm.FloatValue(float64(x) / float64(y)), nil
		}
		r = x / y
	case vm.IDIV:
		if y == 0 {
			return nil, status.New(status.DivZero)
		}
		r = x / y
		ok = x != math.MinInt64 || y != -1
	case vm.MOD:
		if y == 0 {
			return nil, status.New(status.DivZero)
		}
		r = x % y
	case vm.EXP:
		if y < 0 {
			return floatOp(op, float64(x), float64(y))
		}
		r, ok = powInt(x, y)
	default:
		return nil, status.New(status.Unimplemented, op.String())
	}
	if !ok {
		return nil, status.New(status.Math, op.String())
	}
	return vm.IntValue(r), nil
}

func mulInt(x, y int64) (int64, bool) {
	if x == 0 || y == 0 {
		return 0, true
	}
	r := x * y
	if r/y != x || (x == -1 && y == math.MinInt64) || (y == -1 && x == math.MinInt64) {
		return 0, false
	}
	return r, true
}

// powInt squares and multiplies. A square that overflows always means the
// result overflows, since some later bit still multiplies it in.
func powInt(x, y int64) (int64, bool) {
	r := int64(1)
	ok := true
	for y > 0 {
		if y&1 == 1 {
			if r, ok = mulInt(r, x); !ok {
				return 0, false
			}
		}
		y >>= 1
		if y > 0 {
			if x, ok = mulInt(x, x); !ok {
				return 0, false
			}
		}
	}
	return r, true
}

func floatOp(op vm.Opcode, x, y float64) (vm.Value, error) {
	var r float64
	switch op {
	case vm.ADD:
		r = x + y
	case vm.SUB:
		r = x - y
	case vm.MULT:
		r = x * y
	case vm.DIV:
		if y == 0 {
			return nil, status.New(status.DivZero)
		}
		r = x / y
	case vm.IDIV:
		if y == 0 {
			return nil, status.New(status.DivZero)
		}
		return vm.IntValue(int64(x / y)), nil
	case vm.MOD:
		if y == 0 {
			return nil, status.New(status.DivZero)
		}
		r = math.Mod(x, y)
	case vm.EXP:
		r = math.Pow(x, y)
	default:
		return nil, status.New(status.Unimplemented, op.String())
	}
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return nil, status.New(status.Math)
	}
	return vm.FloatValue(r), nil
}

func opNegate(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	a, err := f.Pop()
	if err != nil {
		return ContinueStep, err
	}
	switch x := a.(type) {
	case vm.IntValue:
		if x == math.MinInt64 {
			return ContinueStep, status.New(status.Math, in.Op.String())
		}
		return ContinueStep, f.Push(-x)
	case vm.FloatValue:
		return ContinueStep, f.Push(-x)
	case vm.BoolValue:
		return ContinueStep, f.Push(!x)
	}
	return ContinueStep, status.New(status.TypeMismatch)
}

func opCompare(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	b, err := f.Pop()
	if err != nil {
		return ContinueStep, err
	}
	a, err := f.Pop()
	if err != nil {
		return ContinueStep, err
	}
	c, ok := vm.Compare(a, b)
	var result bool
	switch in.Op {
	case vm.EQ:
		// Values of unrelated kinds are simply unequal.
		result = ok && c == 0
	case vm.NE:
		result = !ok || c != 0
	default:
		if !ok {
			return ContinueStep, status.New(status.TypeMismatch)
		}
		switch in.Op {
		case vm.LT:
			result = c < 0
		case vm.LE:
			result = c <= 0
		case vm.GT:
			result = c > 0
		case vm.GE:
			result = c >= 0
		}
	}
	log.Trace().Str("op", in.Op.String()).Interface("a", a).Interface("b", b).Bool("result", result).Msg("  COMPARE")
	return ContinueStep, f.Push(vm.BoolValue(result))
}

// opLogic is bitwise on two integers and boolean otherwise.
func opLogic(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	b, err := f.Pop()
	if err != nil {
		return ContinueStep, err
	}
	a, err := f.Pop()
	if err != nil {
		return ContinueStep, err
	}
	x, xok := a.(vm.IntValue)
	y, yok := b.(vm.IntValue)
	if xok && yok {
		if in.Op == vm.AND {
			return ContinueStep, f.Push(x & y)
		}
		return ContinueStep, f.Push(x | y)
	}
	if in.Op == vm.AND {
		return ContinueStep, f.Push(vm.BoolValue(a.AsBool() && b.AsBool()))
	}
	return ContinueStep, f.Push(vm.BoolValue(a.AsBool() || b.AsBool()))
}

func opNot(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	a, err := f.Pop()
	if err != nil {
		return ContinueStep, err
	}
	return ContinueStep, f.Push(vm.BoolValue(!a.AsBool()))
}
