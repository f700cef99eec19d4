package cas

import (
	"bytes"
	"sync"

	"github.com/dgryski/go-farm"
)

type MemoryCAS struct {
	mu   sync.RWMutex
	data map[Hash][]byte
}

func NewMemoryCAS() *MemoryCAS {
	return &MemoryCAS{
		data: make(map[Hash][]byte),
	}
}

func (m *MemoryCAS) getValue(h Hash) (bool, []byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[h]
	if !ok {
		return false, nil, nil
	}
	return true, v, nil
}

func (m *MemoryCAS) Has(hash Hash) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[hash]
	return ok
}

func (m *MemoryCAS) Put(item Hashable) (Hash, error) {
	var buf bytes.Buffer
	err := item.Serialize(&buf)
	if err != nil {
		return 0, err
	}
	data := buf.Bytes()
	h := Hash(farm.Hash64(data))
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[h] = data
	return h, nil
}

// Len reports the number of distinct images held.
func (m *MemoryCAS) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
