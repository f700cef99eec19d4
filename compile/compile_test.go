package compile

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/bytebasic-dev/bytebasic/interp"
	"github.com/bytebasic-dev/bytebasic/status"
	"github.com/bytebasic-dev/bytebasic/symtab"
	"github.com/bytebasic-dev/bytebasic/vm"
	"github.com/stretchr/testify/require"
)

func newSession(out io.Writer) (*interp.Runtime, *interp.Session) {
	rt := interp.NewRuntime(nil)
	return rt, rt.NewSession(interp.NewConsole(nil, out))
}

func TestStatementsRunAgainstTable(t *testing.T) {
	var out bytes.Buffer
	_, s := newSession(&out)
	table := symtab.NewTable("T", s.Global)
	m := s.NewMachine()

	for _, line := range []string{
		"x = 2",
		"x += 3",
		"y = [x, x * 2, 'z']",
		"if x > 4: print('big', y[2])",
	} {
		code, err := Compiler{}.CompileStatement(line)
		require.NoError(t, err, line)
		require.False(t, code.Linked)
		_, err = m.Run(context.Background(), code, table)
		require.NoError(t, err, line)
	}
	x, err := table.Value("X")
	require.NoError(t, err)
	require.Equal(t, vm.IntValue(5), x)
	require.Equal(t, "big 10\n", out.String())
}

func TestExpression(t *testing.T) {
	_, s := newSession(nil)
	table := symtab.NewTable("T", s.Global)
	require.NoError(t, table.Insert("N", vm.IntValue(4)))
	m := s.NewMachine()

	cases := map[string]vm.Value{
		"n * 2 + 1":            vm.IntValue(9),
		"n > 3 and n < 10":     vm.BoolTrue,
		"n == 4 or undefined":  vm.BoolTrue,
		"0 and undefined":      vm.IntValue(0),
		"'yes' if n else 'no'": vm.StrValue("yes"),
		"not n":                vm.BoolFalse,
		"-n":                   vm.IntValue(-4),
		"{'a': n}.a":           vm.IntValue(4),
		"len([1, 2, 3])":       vm.IntValue(3),
		"uppercase('x')":       vm.StrValue("X"),
		"7 // 2 + 7 % 2":       vm.IntValue(4),
		"(1.5)":                vm.FloatValue(1.5),
		"True != False":        vm.BoolTrue,
		"range(3)[3]":          vm.IntValue(3),
	}
	for src, want := range cases {
		code, err := Expression("COND", src)
		require.NoError(t, err, src)
		require.True(t, code.PopReturn)
		f, err := m.Run(context.Background(), code, table)
		require.NoError(t, err, src)
		require.Equal(t, want, f.Return, src)
	}
}

func TestCompileErrors(t *testing.T) {
	for _, src := range []string{
		"x = ",
		"def f(): pass",
		"a[1] = 2",
		"[x for x in y]",
		"lambda: 1",
		"break",
		"f(x=1)",
	} {
		_, err := Compiler{}.CompileStatement(src)
		require.Error(t, err, src)
		require.Equal(t, status.Syntax, status.CodeOf(err), src)
	}
	_, err := Expression("E", "x = 1")
	require.Equal(t, status.Syntax, status.CodeOf(err))
}

const source = `
def scale(v, by=10):
    return v * by

total = 0
for i in [1, 2, 3]:
    total += scale(i)
n = 0
while n < 3:
    n += 1
print(total, n)
`

func TestFile(t *testing.T) {
	var out bytes.Buffer
	rt, s := newSession(&out)
	progs, err := File("main", strings.NewReader(source))
	require.NoError(t, err)
	require.Len(t, progs, 2)
	require.Equal(t, "MAIN", progs[0].Name)
	require.Equal(t, "SCALE", progs[1].Name)
	for _, p := range progs {
		require.True(t, p.Linked)
		require.NoError(t, rt.Register(p))
	}

	m := s.NewMachine()
	main, err := rt.Program("MAIN")
	require.NoError(t, err)
	f, err := m.Run(context.Background(), main, symtab.NewTable("MAIN", s.Global))
	require.NoError(t, err)
	require.Equal(t, "60 3\n", out.String())
	require.Equal(t, 11, f.Code.LineAt(f.Code.Len()-1))

	v, err := m.Call(context.Background(), "SCALE", vm.IntValue(2), vm.IntValue(3))
	require.NoError(t, err)
	require.Equal(t, vm.IntValue(6), v)
	_, err = m.Call(context.Background(), "SCALE")
	require.Equal(t, status.ArgCount, status.CodeOf(err))
	_, err = m.Call(context.Background(), "SCALE", vm.IntValue(1), vm.IntValue(2), vm.IntValue(3))
	require.Equal(t, status.ArgCount, status.CodeOf(err))
}

func TestStatementLines(t *testing.T) {
	progs, err := File("lines", strings.NewReader("a = 1\n\nb = 2\n"))
	require.NoError(t, err)
	var lines []int64
	for _, in := range progs[0].Instructions {
		if in.Op == vm.STMT {
			lines = append(lines, in.Int)
		}
	}
	require.Equal(t, []int64{1, 3}, lines)
}
