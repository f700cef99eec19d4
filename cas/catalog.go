package cas

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bytebasic-dev/bytebasic/vm"
)

// ErrUnknownProgram is returned by Load for names never registered.
var ErrUnknownProgram = fmt.Errorf("unknown program")

// Catalog names program images held in a CAS.
type Catalog struct {
	store CAS
	mu    sync.RWMutex
	names map[string]Hash
}

func NewCatalog(store CAS) *Catalog {
	return &Catalog{
		store: store,
		names: make(map[string]Hash),
	}
}

// Register stores b's image and binds its name to the image hash.
func (c *Catalog) Register(b *vm.Bytecode) (Hash, error) {
	h, err := c.store.Put(b)
	if err != nil {
		return 0, fmt.Errorf("storing %s: %w", b.Name, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[strings.ToUpper(b.Name)] = h
	return h, nil
}

// Load decodes a fresh copy of the named program.
func (c *Catalog) Load(name string) (*vm.Bytecode, error) {
	c.mu.RLock()
	h, ok := c.names[strings.ToUpper(name)]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProgram, name)
	}
	return Retrieve(c.store, h)
}

func (c *Catalog) Lookup(name string) (Hash, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.names[strings.ToUpper(name)]
	return h, ok
}

// Names lists the registered program names.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.names))
	for n := range c.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
