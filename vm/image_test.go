package vm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestImageRoundTrip(t *testing.T) {
	b := sampleProgram()
	b.PopReturn = true
	b.Instructions[2].Count()

	var buf bytes.Buffer
	require.NoError(t, b.Serialize(&buf))

	var out Bytecode
	require.NoError(t, out.Deserialize(&buf))
	require.Equal(t, b.Name, out.Name)
	require.True(t, out.Linked)
	require.True(t, out.PopReturn)
	require.Equal(t, b.Labels, out.Labels)
	require.Equal(t, b.Len(), out.Len())
	for i, in := range b.Instructions {
		got := out.Instructions[i]
		require.Equal(t, in.Op, got.Op)
		require.Equal(t, in.Branch, got.Branch)
		require.Equal(t, in.Int, got.Int)
		require.Equal(t, in.Double, got.Double)
		require.Equal(t, in.Str, got.Str)
		require.Zero(t, got.Executions())
	}
}

func TestListing(t *testing.T) {
	b := NewBytecode("L")
	b.Emit(NewStr(LABEL, "TOP"), NewInt(BR, 0))
	require.NoError(t, b.Link())
	var buf bytes.Buffer
	require.NoError(t, b.List(&buf))
	require.Equal(t, "TOP:\n  0000: _LABEL \"TOP\"\n  0001: _BR @0\n", buf.String())
}

func TestProfileOrder(t *testing.T) {
	b := NewBytecode("P")
	b.Emit(NewOp(NOOP), NewOp(DUP), NewOp(DROP))
	b.Instructions[1].Count()
	b.Instructions[1].Count()
	b.Instructions[2].Count()
	prof := b.Profile()
	require.Len(t, prof, 2)
	require.Equal(t, 1, prof[0].Address)
	require.Equal(t, uint64(2), prof[0].Count)
	require.Equal(t, 2, prof[1].Address)
}
