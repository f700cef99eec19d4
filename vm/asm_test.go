package vm

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleProgram() *Bytecode {
	b := NewBytecode("SAMPLE")
	b.Emit(
		NewInt(STMT, 10),
		NewStr(LABEL, "LOOP"),
		NewStr(LOAD, "X"),
		NewInt(INTEGER, -3),
		NewDouble(DOUBLE, 2.5),
		NewStr(STRING, "say \"hi\", world"),
		NewInt(BRZ, 1),
		NewIntStr(CALLP, 2, "PRINTER"),
		NewStr(STORE, "X"),
		NewOp(END),
	)
	if err := b.Link(); err != nil {
		panic(err)
	}
	return b
}

func TestAssembleRoundTrip(t *testing.T) {
	b := sampleProgram()
	b.Protected = true
	var buf bytes.Buffer
	require.NoError(t, b.Disassemble(&buf))

	out, err := Assemble(&buf, nil)
	require.NoError(t, err)
	require.Equal(t, "SAMPLE", out.Name)
	require.True(t, out.Linked)
	require.True(t, out.Protected)
	require.False(t, out.PopReturn)
	require.Equal(t, b.Labels, out.Labels)
	require.Equal(t, b.Len(), out.Len())
	for i := range b.Instructions {
		require.Equal(t, b.Instructions[i].String(), out.Instructions[i].String(), "instruction %d", i)
		require.Equal(t, b.Instructions[i].Branch, out.Instructions[i].Branch)
	}
}

func TestDisassembleFormat(t *testing.T) {
	b := NewBytecode("T")
	b.Emit(
		NewStr(STRING, "A"),
		NewInt(BR, 3),
		NewStr(LOAD, "A"),
		NewOp(END),
		NewOp(NOOP),
	)
	var buf bytes.Buffer
	require.NoError(t, b.Disassemble(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Equal(t, []string{
		`.NAME "T"`,
		`.FLAGS 0`,
		`.STRING "A", 0`,
		fmt.Sprintf(".CODE %d, 0, 0, 1 0, %d, 1 3, 0, 0, %d, 0, 0, 1 0, %d, 0, 0, 0",
			STRING, int(BR)+BranchFlag, LOAD, END),
		fmt.Sprintf(".CODE %d, 0, 0, 0", NOOP),
	}, lines)
}

func TestAssembleReportsEveryError(t *testing.T) {
	src := fmt.Sprintf(`; comment
.STRING "A", 0
.CODE 999, 0, 0, 0
.MAP "L"
.CODE %d, 0, 0, 1 7
.BOGUS
`, STRING)
	_, err := Assemble(strings.NewReader(src), nil)
	require.Error(t, err)
	msg := err.Error()
	require.Contains(t, msg, "line 3")
	require.Contains(t, msg, "line 4")
	require.Contains(t, msg, "line 5")
	require.Contains(t, msg, "line 6")
	require.NotContains(t, msg, "line 2")
}

func TestAssembleInfersLinked(t *testing.T) {
	src := fmt.Sprintf(`.STRING "L", 0
.MAP "L", 0
.CODE %d, 0, 0, 1 0
`, LABEL)
	b, err := Assemble(strings.NewReader(src), nil)
	require.NoError(t, err)
	require.True(t, b.Linked)
	addr, ok := b.Resolve("L")
	require.True(t, ok)
	require.Equal(t, 0, addr)
}
