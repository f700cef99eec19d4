package symtab

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/bytebasic-dev/bytebasic/status"
	"github.com/bytebasic-dev/bytebasic/vm"
	"github.com/stretchr/testify/require"
)

func chain() (*Root, *Table, *Table) {
	root := NewRoot()
	global := NewGlobal("GLOBAL", root)
	local := NewTable("LOCAL", global)
	return root, global, local
}

func TestStrongTyping(t *testing.T) {
	tests := []struct {
		name   string
		strong bool
		want   vm.Value
		code   status.Code
	}{
		{name: "strong", strong: true, want: vm.IntValue(5), code: status.TypeMismatch},
		{name: "weak", strong: false, want: vm.StrValue("hello")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := NewTable("T", nil)
			tbl.StrongTyping = tt.strong
			require.NoError(t, tbl.Insert("X", vm.IntValue(5)))
			err := tbl.Insert("X", vm.StrValue("hello"))
			if tt.code != "" {
				require.Equal(t, tt.code, status.CodeOf(err))
			} else {
				require.NoError(t, err)
			}
			v, err := tbl.Value("X")
			require.NoError(t, err)
			require.Equal(t, tt.want, v)
		})
	}
}

func TestStrongTypingCoerces(t *testing.T) {
	tbl := NewTable("T", nil)
	tbl.StrongTyping = true
	require.NoError(t, tbl.Insert("N", vm.IntValue(1)))
	require.NoError(t, tbl.Insert("N", vm.FloatValue(2.7)))
	v, err := tbl.Value("N")
	require.NoError(t, err)
	require.Equal(t, vm.IntValue(2), v)
}

func TestReadOnlyPrefix(t *testing.T) {
	tbl := NewTable("T", nil)
	require.NoError(t, tbl.Insert("$X", vm.IntValue(1)))
	err := tbl.Insert("$X", vm.IntValue(2))
	require.Equal(t, status.ReadOnly, status.CodeOf(err))
	v, err := tbl.Value("$x")
	require.NoError(t, err)
	require.Equal(t, vm.IntValue(1), v)

	require.Equal(t, status.ReadOnly, status.CodeOf(tbl.Delete("$X")))
	require.NoError(t, tbl.DeleteAlways("$X"))
	_, ok := tbl.FindReference("$X")
	require.False(t, ok)
}

func TestReadOnlyAncestorBlocksShadow(t *testing.T) {
	_, global, local := chain()
	require.NoError(t, global.InsertReadOnly("PI", vm.FloatValue(3.14)))
	require.Equal(t, status.ReadOnly, status.CodeOf(local.Insert("PI", vm.IntValue(3))))
	// Argument binding bypasses the chain.
	require.NoError(t, local.InsertLocal("PI", vm.IntValue(3)))
	v, err := local.Value("PI")
	require.NoError(t, err)
	require.Equal(t, vm.IntValue(3), v)
}

func TestUnknownVariable(t *testing.T) {
	_, _, local := chain()
	_, err := local.Reference("NOPE")
	require.Equal(t, status.UnknownVariable, status.CodeOf(err))
	require.ErrorContains(t, err, "NOPE")
	_, ok := local.FindReference("NOPE")
	require.False(t, ok)
}

func TestScopeChain(t *testing.T) {
	_, global, local := chain()
	require.NoError(t, global.Insert("A", vm.IntValue(1)))
	v, err := local.Value("a")
	require.NoError(t, err)
	require.Equal(t, vm.IntValue(1), v)

	// Writes shadow rather than update the parent.
	require.NoError(t, local.Insert("A", vm.IntValue(2)))
	v, _ = global.Value("A")
	require.Equal(t, vm.IntValue(1), v)
	require.Same(t, local, local.FindTableContaining("A"))
	require.NoError(t, local.Delete("A"))
	require.Same(t, global, local.FindTableContaining("A"))
}

func TestGlobalPrefixRedirect(t *testing.T) {
	_, global, local := chain()
	inner := NewTable("INNER", local)
	require.NoError(t, inner.Insert("SYS$MODE", vm.StrValue("X")))
	require.Equal(t, []string{"SYS$MODE"}, global.Names())
	require.Empty(t, inner.Names())
	require.Same(t, global, inner.FindTableContaining("sys$mode"))
}

func TestValueIsCopy(t *testing.T) {
	tbl := NewTable("T", nil)
	require.NoError(t, tbl.Insert("A", vm.ArrayValue{vm.IntValue(1)}))
	cp, err := tbl.Value("A")
	require.NoError(t, err)
	cp.(vm.ArrayValue)[0] = vm.IntValue(9)
	live, err := tbl.Reference("A")
	require.NoError(t, err)
	require.Equal(t, vm.IntValue(1), live.(vm.ArrayValue)[0])
	live.(vm.ArrayValue)[0] = vm.IntValue(7)
	again, _ := tbl.Reference("A")
	require.Equal(t, vm.IntValue(7), again.(vm.ArrayValue)[0])
}

func TestConnectorFreshness(t *testing.T) {
	root, _, local := chain()
	var counter atomic.Int64
	require.NoError(t, root.Connect("SYS$$INSTRUCTIONS", func() vm.Value {
		return vm.IntValue(counter.Load())
	}))

	first, err := local.Value("SYS$$INSTRUCTIONS")
	require.NoError(t, err)
	counter.Add(10)
	second, err := local.Value("SYS$$INSTRUCTIONS")
	require.NoError(t, err)
	c, ok := vm.Compare(second, first)
	require.True(t, ok)
	require.Equal(t, 1, c)

	require.Equal(t, status.Connector, status.CodeOf(local.Delete("SYS$$INSTRUCTIONS")))
	require.Equal(t, status.Connector, status.CodeOf(local.DeleteAlways("SYS$$INSTRUCTIONS")))
	require.Equal(t, status.Connector, status.CodeOf(local.Insert("SYS$$INSTRUCTIONS", vm.IntValue(0))))
	require.Equal(t, status.BadOperand, status.CodeOf(root.Connect("PLAIN", nil)))
	require.Equal(t, []string{"SYS$$INSTRUCTIONS"}, root.Connectors())
}

func TestRootSyncInsertConcurrent(t *testing.T) {
	root := NewRoot()
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session := NewGlobal(fmt.Sprintf("S%d", i), root)
			for j := range 50 {
				require.NoError(t, root.SyncInsert(fmt.Sprintf("V%d_%d", i, j), vm.IntValue(int64(j))))
				_, ok := session.FindReference(fmt.Sprintf("V%d_%d", i, j))
				require.True(t, ok)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 16*50, root.Table().Len())
}

func TestSharedParentConcurrent(t *testing.T) {
	_, global, parent := chain()
	require.NoError(t, parent.Insert("X", vm.IntValue(7)))
	var stop atomic.Bool
	var wg sync.WaitGroup
	for i := range 4 {
		child := NewTable(fmt.Sprintf("T%d", i), parent)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !stop.Load() {
				v, ok := child.FindReference("X")
				require.True(t, ok)
				require.Equal(t, vm.IntValue(7), v)
				_ = child.Names()
				_ = global.IsCommon("X")
			}
		}()
	}
	for j := range 500 {
		require.NoError(t, parent.Insert("Y", vm.IntValue(int64(j))))
		require.NoError(t, global.Insert("SYS$COUNT", vm.IntValue(int64(j))))
		parent.MarkCommon("X")
		parent.Clear()
	}
	stop.Store(true)
	wg.Wait()
	require.Equal(t, []string{"X"}, parent.Names())
}

func TestCommonSurvivesClear(t *testing.T) {
	tbl := NewTable("T", nil)
	require.NoError(t, tbl.Insert("KEEP", vm.IntValue(1)))
	require.NoError(t, tbl.Insert("DROP", vm.IntValue(2)))
	require.NoError(t, tbl.InsertReadOnly("CONST", vm.IntValue(3)))
	tbl.MarkCommon("keep")
	tbl.Clear()
	require.Equal(t, []string{"CONST", "KEEP"}, tbl.Names())
	require.Equal(t, []string{"KEEP"}, tbl.Commons())
}
