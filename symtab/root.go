package symtab

import (
	"sort"
	"strings"
	"sync"

	"github.com/bytebasic-dev/bytebasic/status"
	"github.com/bytebasic-dev/bytebasic/vm"
)

// Connector computes the current value of a connector variable.
type Connector func() vm.Value

// Root wraps the process-wide table shared by every thread. All mutation
// goes through SyncInsert, which holds the write lock.
type Root struct {
	mu         sync.RWMutex
	table      *Table
	connectors map[string]Connector
}

func NewRoot() *Root {
	r := &Root{connectors: make(map[string]Connector)}
	r.table = NewTable("ROOT", nil)
	r.table.mu = &r.mu
	r.table.IsRoot = true
	r.table.root = r
	return r
}

// Table returns the root table for use as a parent link.
func (r *Root) Table() *Table {
	return r.table
}

// SyncInsert binds name in the root table under the root lock.
func (r *Root) SyncInsert(name string, v vm.Value) error {
	name = Normalize(name)
	if strings.HasPrefix(name, ConnectorPrefix) {
		return status.New(status.Connector, name)
	}
	return r.syncStore(name, v, false)
}

func (r *Root) syncStore(name string, v vm.Value, readOnly bool) error {
	return r.table.store(name, v, readOnly)
}

// Connect registers a connector. The name must carry ConnectorPrefix.
func (r *Root) Connect(name string, fn Connector) error {
	name = Normalize(name)
	if !strings.HasPrefix(name, ConnectorPrefix) {
		return status.New(status.BadOperand, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors[name] = fn
	return nil
}

// Connectors lists the registered connector names.
func (r *Root) Connectors() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.connectors))
	for n := range r.connectors {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// connect recomputes a connector and records the fresh value in the root
// table before returning it.
func (r *Root) connect(name string) (vm.Value, bool) {
	r.mu.RLock()
	fn, ok := r.connectors[name]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	v := fn()
	r.mu.Lock()
	r.table.entries[name] = &Entry{Value: v, ReadOnly: true}
	r.mu.Unlock()
	return v, true
}
