package interp

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/bytebasic-dev/bytebasic/config"
	"github.com/bytebasic-dev/bytebasic/symtab"
	"github.com/bytebasic-dev/bytebasic/vm"
	"github.com/stretchr/testify/require"
)

type harness struct {
	rt  *Runtime
	s   *Session
	m   *Machine
	out *bytes.Buffer
}

func newHarness(t *testing.T, cfg *config.Config, input string) *harness {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	rt := NewRuntime(cfg)
	out := &bytes.Buffer{}
	s := rt.NewSession(NewConsole(strings.NewReader(input), out))
	return &harness{rt: rt, s: s, m: s.NewMachine(), out: out}
}

// linked builds a full program from ins.
func linked(t *testing.T, name string, ins ...*vm.Instruction) *vm.Bytecode {
	t.Helper()
	b := vm.NewBytecode(name)
	b.Emit(ins...)
	require.NoError(t, b.Link())
	return b
}

func unlinked(name string, ins ...*vm.Instruction) *vm.Bytecode {
	b := vm.NewBytecode(name)
	b.Emit(ins...)
	return b
}

func (h *harness) run(code *vm.Bytecode) (*Frame, error) {
	return h.m.Run(context.Background(), code, symtab.NewTable(code.Name, h.s.Global))
}

func (h *harness) mustRun(t *testing.T, code *vm.Bytecode) *Frame {
	t.Helper()
	f, err := h.run(code)
	require.NoError(t, err)
	return f
}

func ints(vals ...int64) []vm.Value {
	out := make([]vm.Value, len(vals))
	for i, v := range vals {
		out[i] = vm.IntValue(v)
	}
	return out
}
