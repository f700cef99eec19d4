package cas

import (
	"fmt"
	"testing"

	"github.com/bytebasic-dev/bytebasic/vm"
	"github.com/stretchr/testify/require"
)

func program(name string, n int64) *vm.Bytecode {
	b := vm.NewBytecode(name)
	b.Emit(vm.NewInt(vm.INTEGER, n), vm.NewOp(vm.END))
	return b
}

func TestLRUCache_BasicOperation(t *testing.T) {
	underlying := NewMemoryCAS()
	cache := NewLRUCache(underlying, 3)

	var hashes []Hash
	for i := range 4 {
		h, err := cache.Put(program(fmt.Sprintf("P%d", i), int64(i)))
		require.NoError(t, err)
		hashes = append(hashes, h)
	}

	for i, h := range hashes {
		b, err := Retrieve(cache, h)
		require.NoError(t, err)
		require.Equal(t, int64(i), b.Instructions[0].Int)
	}
	stats := cache.Stats()
	require.Equal(t, 3, stats.Size)
	require.Equal(t, uint64(4), stats.Tries)
	require.Zero(t, stats.Hits)

	// P0 was evicted; P3 is still cached.
	_, err := Retrieve(cache, hashes[3])
	require.NoError(t, err)
	_, err = Retrieve(cache, hashes[0])
	require.NoError(t, err)
	stats = cache.Stats()
	require.Equal(t, uint64(6), stats.Tries)
	require.Equal(t, uint64(1), stats.Hits)
	require.LessOrEqual(t, stats.Size, stats.MaxSize)
}

func TestLRUCache_Has(t *testing.T) {
	underlying := NewMemoryCAS()
	cache := NewLRUCache(underlying, 10)

	hash, err := cache.Put(program("X", 42))
	require.NoError(t, err)
	require.True(t, cache.Has(hash))
	require.False(t, cache.Has(Hash(99999)))

	_, err = Retrieve(cache, Hash(99999))
	require.Error(t, err)
}
