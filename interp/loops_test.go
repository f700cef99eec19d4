package interp

import (
	"testing"

	"github.com/bytebasic-dev/bytebasic/status"
	"github.com/bytebasic-dev/bytebasic/vm"
	"github.com/stretchr/testify/require"
)

// forSumProgram adds 1 through 5 into SUM.
func forSumProgram(t *testing.T) *vm.Bytecode {
	return linked(t, "FORSUM",
		vm.NewInt(vm.INTEGER, 0),      // 0
		vm.NewStr(vm.STORE, "SUM"),    // 1
		vm.NewInt(vm.INTEGER, 1),      // 2
		vm.NewInt(vm.INTEGER, 5),      // 3
		vm.NewInt(vm.INTEGER, 1),      // 4
		vm.NewIntStr(vm.FOR, 11, "I"), // 5
		vm.NewStr(vm.LOAD, "SUM"),     // 6
		vm.NewStr(vm.LOAD, "I"),       // 7
		vm.NewOp(vm.ADD),              // 8
		vm.NewStr(vm.STORE, "SUM"),    // 9
		vm.NewIntStr(vm.NEXT, 6, "I"), // 10
		vm.NewOp(vm.END),              // 11
	)
}

func TestForNext(t *testing.T) {
	h := newHarness(t, nil, "")
	f := h.mustRun(t, forSumProgram(t))
	sum, err := f.Symbols.Value("SUM")
	require.NoError(t, err)
	require.Equal(t, vm.IntValue(15), sum)
	i, err := f.Symbols.Value("i")
	require.NoError(t, err)
	require.Equal(t, vm.IntValue(6), i)
	require.Empty(t, f.Stack)
}

func TestForSkipsBodyWhenPastEnd(t *testing.T) {
	h := newHarness(t, nil, "")
	f := h.mustRun(t, linked(t, "DOWN",
		vm.NewInt(vm.INTEGER, 5),
		vm.NewInt(vm.INTEGER, 1),
		vm.NewInt(vm.INTEGER, 1),
		vm.NewIntStr(vm.FOR, 6, "I"),
		vm.NewStr(vm.STRING, "body"),
		vm.NewIntStr(vm.NEXT, 4, "I"),
		vm.NewOp(vm.END),
	))
	require.Empty(t, f.Stack)
	i, _ := f.Symbols.Value("I")
	require.Equal(t, vm.IntValue(5), i)
}

func TestForCountsDown(t *testing.T) {
	h := newHarness(t, nil, "")
	f := h.mustRun(t, linked(t, "DOWN",
		vm.NewInt(vm.INTEGER, 3),
		vm.NewInt(vm.INTEGER, 1),
		vm.NewInt(vm.INTEGER, -1),
		vm.NewIntStr(vm.FOR, 8, "I"),
		vm.NewStr(vm.LOAD, "I"),
		vm.NewOp(vm.PRINT),
		vm.NewIntStr(vm.NEXT, 4, "I"),
		vm.NewOp(vm.NOOP),
		vm.NewOp(vm.END),
	))
	require.Empty(t, f.Stack)
	require.Equal(t, "321", h.out.String())
}

func TestNextWithoutFor(t *testing.T) {
	h := newHarness(t, nil, "")
	_, err := h.run(unlinked("n", vm.NewIntStr(vm.NEXT, 0, "I")))
	require.Equal(t, status.NoFor, status.CodeOf(err))
}

func TestForEachArray(t *testing.T) {
	h := newHarness(t, nil, "")
	f := h.mustRun(t, linked(t, "EACH",
		vm.NewInt(vm.INTEGER, 0),          // 0
		vm.NewStr(vm.STORE, "SUM"),        // 1
		vm.NewInt(vm.INTEGER, 10),         // 2
		vm.NewInt(vm.INTEGER, 20),         // 3
		vm.NewInt(vm.INTEGER, 30),         // 4
		vm.NewInt(vm.ARRAY, 3),            // 5
		vm.NewIntStr(vm.FOREACH, 12, "X"), // 6
		vm.NewStr(vm.LOAD, "SUM"),         // 7
		vm.NewStr(vm.LOAD, "X"),           // 8
		vm.NewOp(vm.ADD),                  // 9
		vm.NewStr(vm.STORE, "SUM"),        // 10
		vm.NewIntStr(vm.NEXTEACH, 7, "X"), // 11
		vm.NewOp(vm.END),                  // 12
	))
	sum, _ := f.Symbols.Value("SUM")
	require.Equal(t, vm.IntValue(60), sum)
	require.Empty(t, f.Stack)
}

func TestNextEachRejectsNegativeIndex(t *testing.T) {
	h := newHarness(t, nil, "")
	_, err := h.run(unlinked("bad",
		vm.NewInt(vm.INTEGER, 10),
		vm.NewInt(vm.INTEGER, 20),
		vm.NewInt(vm.ARRAY, 2),
		vm.NewInt(vm.INTEGER, -1),
		vm.NewIntStr(vm.NEXTEACH, 0, "X"),
	))
	require.Equal(t, status.NoFor, status.CodeOf(err))
}

func TestForEachRecordKeys(t *testing.T) {
	h := newHarness(t, nil, "")
	f := h.mustRun(t, linked(t, "KEYS",
		vm.NewStr(vm.STRING, "b"),
		vm.NewInt(vm.INTEGER, 2),
		vm.NewStr(vm.STRING, "a"),
		vm.NewInt(vm.INTEGER, 1),
		vm.NewInt(vm.RECORD, 2),
		vm.NewIntStr(vm.FOREACH, 9, "K"),
		vm.NewStr(vm.LOAD, "K"),
		vm.NewOp(vm.PRINT),
		vm.NewIntStr(vm.NEXTEACH, 6, "K"),
		vm.NewOp(vm.END),
	))
	require.Empty(t, f.Stack)
	require.Equal(t, "AB", h.out.String())
}

func TestForEachEmpty(t *testing.T) {
	h := newHarness(t, nil, "")
	f := h.mustRun(t, linked(t, "EMPTY",
		vm.NewInt(vm.ARRAY, 0),
		vm.NewIntStr(vm.FOREACH, 3, "X"),
		vm.NewStr(vm.STRING, "body"),
		vm.NewOp(vm.END),
	))
	require.Empty(t, f.Stack)
}

func TestWhileLoop(t *testing.T) {
	h := newHarness(t, nil, "")
	f := h.mustRun(t, linked(t, "WHILE",
		vm.NewInt(vm.INTEGER, 0), // 0
		vm.NewStr(vm.STORE, "N"), // 1
		vm.NewStr(vm.LOAD, "N"),  // 2
		vm.NewInt(vm.INTEGER, 3), // 3
		vm.NewOp(vm.LT),          // 4
		vm.NewInt(vm.DO, 12),     // 5
		vm.NewStr(vm.LOAD, "N"),  // 6
		vm.NewInt(vm.INTEGER, 1), // 7
		vm.NewOp(vm.ADD),         // 8
		vm.NewStr(vm.STORE, "N"), // 9
		vm.NewOp(vm.NOOP),        // 10
		vm.NewInt(vm.LOOP, 2),    // 11
		vm.NewOp(vm.END),         // 12
	))
	n, _ := f.Symbols.Value("N")
	require.Equal(t, vm.IntValue(3), n)
}

func TestLoopUntil(t *testing.T) {
	h := newHarness(t, nil, "")
	f := h.mustRun(t, linked(t, "UNTIL",
		vm.NewInt(vm.INTEGER, 0),  // 0
		vm.NewStr(vm.STORE, "N"),  // 1
		vm.NewStr(vm.LOAD, "N"),   // 2
		vm.NewInt(vm.INTEGER, 2),  // 3
		vm.NewOp(vm.ADD),          // 4
		vm.NewStr(vm.STORE, "N"),  // 5
		vm.NewStr(vm.LOAD, "N"),   // 6
		vm.NewInt(vm.INTEGER, 10), // 7
		vm.NewOp(vm.GE),           // 8
		vm.NewInt(vm.LOOPU, 2),    // 9
	))
	n, _ := f.Symbols.Value("N")
	require.Equal(t, vm.IntValue(10), n)
}
