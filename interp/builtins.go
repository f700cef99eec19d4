package interp

import (
	"context"
	"math"
	"strings"

	"github.com/bytebasic-dev/bytebasic/status"
	"github.com/bytebasic-dev/bytebasic/vm"
)

// BuiltinTable resolves functions from a fixed map of names.
type BuiltinTable map[string]Callable

func (b BuiltinTable) ResolveFunction(name string, args []vm.Value) (Resolved, bool) {
	fn, ok := b[strings.ToUpper(name)]
	if !ok {
		return Resolved{}, false
	}
	return Resolved{Name: strings.ToUpper(name), Builtin: fn}, true
}

// Builtins returns the default function table.
func Builtins() BuiltinTable {
	return BuiltinTable{
		"ABS":       builtinAbs,
		"APPEND":    builtinAppend,
		"INT":       builtinInt,
		"LEFT":      builtinLeft,
		"LENGTH":    builtinLen,
		"LOWERCASE": builtinLower,
		"NUMBER":    builtinNumber,
		"RANGE":     builtinRange,
		"STRING":    builtinString,
		"TYPE":      builtinType,
		"UPPERCASE": builtinUpper,
	}
}

func argCount(args []vm.Value, n int) error {
	if len(args) != n {
		return status.New(status.ArgCount)
	}
	return nil
}

// builtinRange returns [start, start+step, ...] up to and including stop.
// With one argument it counts from 1.
func builtinRange(ctx context.Context, m *Machine, args []vm.Value) (vm.Value, error) {
	start, stop, step := int64(1), int64(0), int64(1)
	ints := make([]int64, len(args))
	for i, a := range args {
		n, err := indexInt(a)
		if err != nil {
			return nil, err
		}
		ints[i] = int64(n)
	}
	switch len(ints) {
	case 1:
		stop = ints[0]
	case 2:
		start, stop = ints[0], ints[1]
	case 3:
		start, stop, step = ints[0], ints[1], ints[2]
		if step == 0 {
			return nil, status.New(status.BadOperand, "RANGE")
		}
	default:
		return nil, status.New(status.ArgCount)
	}
	var out vm.ArrayValue
	for i := start; (step > 0 && i <= stop) || (step < 0 && i >= stop); i += step {
		out = append(out, vm.IntValue(i))
	}
	if out == nil {
		out = vm.ArrayValue{}
	}
	return out, nil
}

// builtinLen returns the length of arrays, strings, or records
func builtinLen(ctx context.Context, m *Machine, args []vm.Value) (vm.Value, error) {
	if err := argCount(args, 1); err != nil {
		return nil, err
	}
	switch val := args[0].(type) {
	case vm.ArrayValue:
		return vm.IntValue(len(val)), nil
	case vm.StrValue:
		return vm.IntValue(len([]rune(string(val)))), nil
	case vm.RecordValue:
		return vm.IntValue(len(val)), nil
	}
	return nil, status.New(status.TypeMismatch)
}

// builtinAppend returns a new array with the remaining arguments added.
func builtinAppend(ctx context.Context, m *Machine, args []vm.Value) (vm.Value, error) {
	if len(args) < 1 {
		return nil, status.New(status.ArgCount)
	}
	arr, ok := args[0].(vm.ArrayValue)
	if !ok {
		return nil, status.New(status.TypeMismatch)
	}
	out := arr.Clone().(vm.ArrayValue)
	return append(out, args[1:]...), nil
}

func builtinAbs(ctx context.Context, m *Machine, args []vm.Value) (vm.Value, error) {
	if err := argCount(args, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case vm.IntValue:
		if v < 0 {
			return -v, nil
		}
		return v, nil
	case vm.FloatValue:
		return vm.FloatValue(math.Abs(float64(v))), nil
	}
	return nil, status.New(status.TypeMismatch)
}

func builtinInt(ctx context.Context, m *Machine, args []vm.Value) (vm.Value, error) {
	if err := argCount(args, 1); err != nil {
		return nil, err
	}
	a := args[0]
	if s, ok := a.(vm.StrValue); ok {
		a = vm.ParseValue(string(s))
	}
	v, err := vm.Coerce(a, vm.KindInteger)
	if err != nil {
		return nil, status.Wrap(status.TypeMismatch, err)
	}
	return v, nil
}

func builtinNumber(ctx context.Context, m *Machine, args []vm.Value) (vm.Value, error) {
	if err := argCount(args, 1); err != nil {
		return nil, err
	}
	v := vm.ParseValue(args[0].String())
	switch v.Kind() {
	case vm.KindInteger, vm.KindDouble:
		return v, nil
	}
	return nil, status.New(status.InvalidCvt, args[0].String(), vm.KindDouble.String())
}

func builtinString(ctx context.Context, m *Machine, args []vm.Value) (vm.Value, error) {
	if err := argCount(args, 1); err != nil {
		return nil, err
	}
	return vm.StrValue(args[0].String()), nil
}

func builtinUpper(ctx context.Context, m *Machine, args []vm.Value) (vm.Value, error) {
	if err := argCount(args, 1); err != nil {
		return nil, err
	}
	return vm.StrValue(strings.ToUpper(args[0].String())), nil
}

func builtinLower(ctx context.Context, m *Machine, args []vm.Value) (vm.Value, error) {
	if err := argCount(args, 1); err != nil {
		return nil, err
	}
	return vm.StrValue(strings.ToLower(args[0].String())), nil
}

func builtinLeft(ctx context.Context, m *Machine, args []vm.Value) (vm.Value, error) {
	if err := argCount(args, 2); err != nil {
		return nil, err
	}
	n, err := indexInt(args[1])
	if err != nil {
		return nil, err
	}
	r := []rune(args[0].String())
	n = max(0, min(n, len(r)))
	return vm.StrValue(r[:n]), nil
}

// builtinType returns the kind name of its argument.
func builtinType(ctx context.Context, m *Machine, args []vm.Value) (vm.Value, error) {
	if err := argCount(args, 1); err != nil {
		return nil, err
	}
	return vm.StrValue(args[0].Kind().String()), nil
}
