package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMnemonics(t *testing.T) {
	b, err := ParseMnemonics("IMM", `STRING "a;b"; _LOAD x; br 0; double 1.5; callp 2, "SUB"`, nil)
	require.NoError(t, err)
	require.Equal(t, 5, b.Len())
	require.Equal(t, "a;b", b.Instructions[0].Str)
	require.Equal(t, LOAD, b.Instructions[1].Op)
	require.Equal(t, "x", b.Instructions[1].Str)
	target, ok := b.Instructions[2].Target()
	require.True(t, ok)
	require.Zero(t, target)
	require.Equal(t, 1.5, b.Instructions[3].Double)
	require.Equal(t, int64(2), b.Instructions[4].Int)
	require.Equal(t, "SUB", b.Instructions[4].Str)
	require.False(t, b.Linked)
}

func TestParseMnemonicsErrors(t *testing.T) {
	_, err := ParseMnemonics("X", "FROB 1", nil)
	require.ErrorContains(t, err, "unknown opcode")
	_, err = ParseMnemonics("X", "INTEGER 1 2", nil)
	require.ErrorContains(t, err, "more than one integer")
	_, err = ParseMnemonics("X", "42", nil)
	require.Error(t, err)
}
