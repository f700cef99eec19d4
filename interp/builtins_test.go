package interp

import (
	"context"
	"testing"

	"github.com/bytebasic-dev/bytebasic/status"
	"github.com/bytebasic-dev/bytebasic/vm"
	"github.com/stretchr/testify/require"
)

func callBuiltin(t *testing.T, name string, args ...vm.Value) (vm.Value, error) {
	t.Helper()
	r, ok := Builtins().ResolveFunction(name, args)
	require.True(t, ok, name)
	return r.Builtin(context.Background(), nil, args)
}

func TestBuiltins(t *testing.T) {
	cases := []struct {
		name string
		args []vm.Value
		want vm.Value
	}{
		{"range", ints(3), vm.ArrayValue(ints(1, 2, 3))},
		{"range", ints(2, 4), vm.ArrayValue(ints(2, 3, 4))},
		{"range", ints(5, 1, -2), vm.ArrayValue(ints(5, 3, 1))},
		{"range", ints(0), vm.ArrayValue{}},
		{"length", []vm.Value{vm.StrValue("héllo")}, vm.IntValue(5)},
		{"length", []vm.Value{vm.ArrayValue(ints(1, 2))}, vm.IntValue(2)},
		{"append", []vm.Value{vm.ArrayValue(ints(1)), vm.IntValue(2)}, vm.ArrayValue(ints(1, 2))},
		{"abs", ints(-4), vm.IntValue(4)},
		{"abs", []vm.Value{vm.FloatValue(-1.5)}, vm.FloatValue(1.5)},
		{"int", []vm.Value{vm.FloatValue(3.9)}, vm.IntValue(3)},
		{"int", []vm.Value{vm.StrValue("12")}, vm.IntValue(12)},
		{"number", []vm.Value{vm.StrValue("2.5")}, vm.FloatValue(2.5)},
		{"string", ints(7), vm.StrValue("7")},
		{"uppercase", []vm.Value{vm.StrValue("abc")}, vm.StrValue("ABC")},
		{"lowercase", []vm.Value{vm.StrValue("ABC")}, vm.StrValue("abc")},
		{"left", []vm.Value{vm.StrValue("abcdef"), vm.IntValue(3)}, vm.StrValue("abc")},
		{"left", []vm.Value{vm.StrValue("ab"), vm.IntValue(9)}, vm.StrValue("ab")},
		{"type", []vm.Value{vm.BoolTrue}, vm.StrValue(vm.KindBoolean.String())},
	}
	for _, tc := range cases {
		got, err := callBuiltin(t, tc.name, tc.args...)
		require.NoError(t, err, tc.name)
		require.Equal(t, tc.want, got, tc.name)
	}
}

func TestBuiltinErrors(t *testing.T) {
	_, err := callBuiltin(t, "LENGTH")
	require.Equal(t, status.ArgCount, status.CodeOf(err))
	_, err = callBuiltin(t, "LENGTH", vm.IntValue(1))
	require.Equal(t, status.TypeMismatch, status.CodeOf(err))
	_, err = callBuiltin(t, "RANGE", ints(1, 2, 0)...)
	require.Equal(t, status.BadOperand, status.CodeOf(err))
	_, err = callBuiltin(t, "NUMBER", vm.StrValue("abc"))
	require.Equal(t, status.InvalidCvt, status.CodeOf(err))
	_, err = callBuiltin(t, "APPEND", vm.IntValue(1))
	require.Equal(t, status.TypeMismatch, status.CodeOf(err))

	_, ok := Builtins().ResolveFunction("NOPE", nil)
	require.False(t, ok)
}

func TestAppendLeavesArgumentAlone(t *testing.T) {
	orig := vm.ArrayValue(ints(1))
	_, err := callBuiltin(t, "APPEND", orig, vm.IntValue(2))
	require.NoError(t, err)
	require.Len(t, orig, 1)
}
