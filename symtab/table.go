// Package symtab implements scoped variable storage. Tables form a parent
// chain ending at a process-wide root. Names are case-insensitive.
package symtab

import (
	"sort"
	"strings"
	"sync"

	"github.com/bytebasic-dev/bytebasic/status"
	"github.com/bytebasic-dev/bytebasic/vm"
)

const (
	// GlobalPrefix names always live in the nearest global table.
	GlobalPrefix = "SYS$"
	// ConnectorPrefix names are recomputed from runtime counters on read.
	ConnectorPrefix = "SYS$$"
	// ReadOnlyPrefix names can be bound once and never changed.
	ReadOnlyPrefix = "$"
)

type Entry struct {
	Value    vm.Value
	ReadOnly bool
}

// Table is safe for concurrent use. Threads share the chain they were
// spawned from, so every table carries a lock; the root table's lock is the
// Root's own.
type Table struct {
	Name string

	IsGlobal        bool
	IsRoot          bool
	StrongTyping    bool
	DefaultReadOnly bool

	mu      *sync.RWMutex
	entries map[string]*Entry
	parent  *Table
	root    *Root
	common  map[string]bool
}

// NewTable creates a table whose lookups fall back to parent. Strong typing
// is inherited.
func NewTable(name string, parent *Table) *Table {
	t := &Table{
		Name:    name,
		mu:      new(sync.RWMutex),
		entries: make(map[string]*Entry),
		parent:  parent,
		common:  make(map[string]bool),
	}
	if parent != nil {
		t.root = parent.root
		t.StrongTyping = parent.StrongTyping
	}
	return t
}

// NewGlobal creates a session global table under the process root.
func NewGlobal(name string, root *Root) *Table {
	t := NewTable(name, root.Table())
	t.IsGlobal = true
	return t
}

func Normalize(name string) string {
	return strings.ToUpper(name)
}

func IsConnector(name string) bool {
	return strings.HasPrefix(Normalize(name), ConnectorPrefix)
}

func (t *Table) Parent() *Table {
	return t.parent
}

// Global returns the table that receives GlobalPrefix names: the nearest
// global table in the chain, else the root, else t itself.
func (t *Table) Global() *Table {
	for s := t; s != nil; s = s.parent {
		if s.IsGlobal {
			return s
		}
	}
	if t.root != nil {
		return t.root.table
	}
	return t
}

// Root returns the synchronized root this chain ends at, if any.
func (t *Table) Root() *Root {
	return t.root
}

// lookup returns a snapshot of the local entry for name.
func (t *Table) lookup(name string) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[name]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Insert binds name to v. The write lands in t unless name carries the
// global prefix, in which case it lands in the global table. A read-only
// binding anywhere in the chain blocks the write.
func (t *Table) Insert(name string, v vm.Value) error {
	name = Normalize(name)
	if strings.HasPrefix(name, ConnectorPrefix) {
		return status.New(status.Connector, name)
	}
	target := t
	if strings.HasPrefix(name, GlobalPrefix) {
		target = t.Global()
	}
	for s := target; s != nil; s = s.parent {
		if e, ok := s.lookup(name); ok && e.ReadOnly {
			return status.New(status.ReadOnly, name)
		}
	}
	return target.store(name, v, false)
}

// InsertLocal binds name in t without consulting the parent chain or the
// global redirect. Call frames bind their arguments this way.
func (t *Table) InsertLocal(name string, v vm.Value) error {
	return t.store(Normalize(name), v, false)
}

// InsertReadOnly binds a constant in t.
func (t *Table) InsertReadOnly(name string, v vm.Value) error {
	return t.store(Normalize(name), v, true)
}

func (t *Table) store(name string, v vm.Value, readOnly bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.storeUnlocked(name, v, readOnly)
}

func (t *Table) storeUnlocked(name string, v vm.Value, readOnly bool) error {
	if e, ok := t.entries[name]; ok {
		if e.ReadOnly {
			return status.New(status.ReadOnly, name)
		}
		if t.StrongTyping && e.Value != nil && v.Kind() != e.Value.Kind() {
			cv, err := vm.Coerce(v, e.Value.Kind())
			if err != nil {
				return status.Wrap(status.TypeMismatch, err)
			}
			v = cv
		}
		e.Value = v
		e.ReadOnly = e.ReadOnly || readOnly
		return nil
	}
	t.entries[name] = &Entry{
		Value:    v,
		ReadOnly: readOnly || t.DefaultReadOnly || strings.HasPrefix(name, ReadOnlyPrefix),
	}
	return nil
}

// FindReference returns the live value bound to name anywhere in the chain.
// Arrays and records returned this way share storage with the table.
func (t *Table) FindReference(name string) (vm.Value, bool) {
	name = Normalize(name)
	if strings.HasPrefix(name, ConnectorPrefix) {
		if t.root == nil {
			return nil, false
		}
		return t.root.connect(name)
	}
	for s := t; s != nil; s = s.parent {
		if e, ok := s.lookup(name); ok {
			return e.Value, true
		}
	}
	return nil, false
}

// Reference is FindReference for callers that treat a missing name as an
// error.
func (t *Table) Reference(name string) (vm.Value, error) {
	v, ok := t.FindReference(name)
	if !ok {
		return nil, status.New(status.UnknownVariable, Normalize(name))
	}
	return v, nil
}

// Value returns a copy of the value bound to name.
func (t *Table) Value(name string) (vm.Value, error) {
	v, err := t.Reference(name)
	if err != nil {
		return nil, err
	}
	return v.Clone(), nil
}

// Delete removes a local binding. Read-only and connector names are refused.
func (t *Table) Delete(name string) error {
	return t.remove(Normalize(name), false)
}

// DeleteAlways removes a local binding even when it is read-only.
func (t *Table) DeleteAlways(name string) error {
	return t.remove(Normalize(name), true)
}

func (t *Table) remove(name string, force bool) error {
	if strings.HasPrefix(name, ConnectorPrefix) {
		return status.New(status.Connector, name)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[name]
	if !ok {
		return status.New(status.UnknownVariable, name)
	}
	if e.ReadOnly && !force {
		return status.New(status.ReadOnly, name)
	}
	delete(t.entries, name)
	delete(t.common, name)
	return nil
}

// MarkCommon flags name to be carried into a chained program.
func (t *Table) MarkCommon(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.common[Normalize(name)] = true
}

func (t *Table) IsCommon(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.common[Normalize(name)]
}

// Commons returns the COMMON names in sorted order.
func (t *Table) Commons() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.common))
	for n := range t.common {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// FindTableContaining returns the first table in the chain that binds name.
func (t *Table) FindTableContaining(name string) *Table {
	name = Normalize(name)
	for s := t; s != nil; s = s.parent {
		if _, ok := s.lookup(name); ok {
			return s
		}
	}
	return nil
}

// Names lists the names bound directly in t.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.entries))
	for n := range t.entries {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Len reports the number of local bindings.
func (t *Table) Len() int {
	return len(t.Names())
}

// Clear drops every binding that is neither read-only nor COMMON.
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for n, e := range t.entries {
		if !e.ReadOnly && !t.common[n] {
			delete(t.entries, n)
		}
	}
}
