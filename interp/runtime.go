package interp

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bytebasic-dev/bytebasic/cas"
	"github.com/bytebasic-dev/bytebasic/config"
	"github.com/bytebasic-dev/bytebasic/status"
	"github.com/bytebasic-dev/bytebasic/symtab"
	"github.com/bytebasic-dev/bytebasic/vm"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
)

// Connector variable names maintained by every Runtime.
const (
	ConnInstructions = "SYS$$INSTRUCTIONS"
	ConnStatements   = "SYS$$STATEMENTS"
	ConnFCacheHits   = "SYS$$FCACHE_HITS"
	ConnFCacheTries  = "SYS$$FCACHE_TRIES"
	ConnImageHits    = "SYS$$IMAGE_HITS"
	ConnImageTries   = "SYS$$IMAGE_TRIES"
	ConnThreads      = "SYS$$THREADS"
)

// Runtime is the process-wide context shared by every session and thread:
// the root symbol table, the program catalog, the function cache and the
// process abort flag.
type Runtime struct {
	Config    *config.Config
	Root      *symtab.Root
	Programs  *cas.Catalog
	Functions FunctionResolver
	Files     FileOpener
	Compiler  StatementCompiler

	images *cas.LRUCache

	abort        atomic.Bool
	instructions atomic.Uint64
	statements   atomic.Uint64

	fmu    sync.Mutex
	fcache map[string]Resolved
	fhits  atomic.Uint64
	ftries atomic.Uint64

	threads    sync.WaitGroup
	active     atomic.Int64
	tmu        sync.Mutex
	threadErrs *multierror.Error
}

func NewRuntime(cfg *config.Config) *Runtime {
	if cfg == nil {
		cfg = config.Default()
	}
	images := cas.NewLRUCache(cas.NewMemoryCAS(), cfg.Cache.Size)
	rt := &Runtime{
		Config:    cfg,
		Root:      symtab.NewRoot(),
		Programs:  cas.NewCatalog(images),
		Functions: Builtins(),
		Files:     OSFiles{},
		images:    images,
		fcache:    make(map[string]Resolved),
	}
	counter := func(fn func() uint64) symtab.Connector {
		return func() vm.Value { return vm.IntValue(int64(fn())) }
	}
	connectors := map[string]symtab.Connector{
		ConnInstructions: counter(rt.instructions.Load),
		ConnStatements:   counter(rt.statements.Load),
		ConnFCacheHits:   counter(rt.fhits.Load),
		ConnFCacheTries:  counter(rt.ftries.Load),
		ConnImageHits:    counter(func() uint64 { return rt.images.Stats().Hits }),
		ConnImageTries:   counter(func() uint64 { return rt.images.Stats().Tries }),
		ConnThreads:      func() vm.Value { return vm.IntValue(rt.active.Load()) },
	}
	for name, fn := range connectors {
		if err := rt.Root.Connect(name, fn); err != nil {
			panic(err)
		}
	}
	root := rt.Root.Table()
	_ = root.InsertReadOnly("$TRUE", vm.BoolTrue)
	_ = root.InsertReadOnly("$FALSE", vm.BoolFalse)
	return rt
}

// Abort raises the process-wide interrupt flag. Every running machine
// observes it before its next instruction.
func (rt *Runtime) Abort() {
	rt.abort.Store(true)
}

func (rt *Runtime) Instructions() uint64 {
	return rt.instructions.Load()
}

func (rt *Runtime) Statements() uint64 {
	return rt.statements.Load()
}

// Register adds b to the program catalog.
func (rt *Runtime) Register(b *vm.Bytecode) error {
	h, err := rt.Programs.Register(b)
	if err != nil {
		return err
	}
	log.Debug().Str("program", b.Name).Str("hash", h.String()).Msg("registered program")
	return nil
}

// Program loads a fresh copy of a registered program.
func (rt *Runtime) Program(name string) (*vm.Bytecode, error) {
	b, err := rt.Programs.Load(name)
	if errors.Is(err, cas.ErrUnknownProgram) {
		return nil, status.New(status.UnknownProgram, strings.ToUpper(name))
	}
	if err != nil {
		return nil, status.Wrap(status.IOError, err)
	}
	return b, nil
}

// Function resolves name through the function cache, the resolver and
// finally the program catalog.
func (rt *Runtime) Function(name string, args []vm.Value) (Resolved, error) {
	key := strings.ToUpper(name)
	rt.ftries.Add(1)
	rt.fmu.Lock()
	r, ok := rt.fcache[key]
	rt.fmu.Unlock()
	if ok {
		rt.fhits.Add(1)
		return r, nil
	}
	if rt.Functions != nil {
		r, ok = rt.Functions.ResolveFunction(key, args)
	}
	if !ok {
		b, err := rt.Program(key)
		if err != nil {
			return Resolved{}, status.New(status.UnknownFunction, key)
		}
		r = Resolved{Name: key, Procedure: b}
	}
	rt.fmu.Lock()
	rt.fcache[key] = r
	rt.fmu.Unlock()
	return r, nil
}

// FlushFunctions empties the function cache.
func (rt *Runtime) FlushFunctions() {
	rt.fmu.Lock()
	defer rt.fmu.Unlock()
	rt.fcache = make(map[string]Resolved)
}

// spawn runs fn on a new goroutine tracked by Wait.
func (rt *Runtime) spawn(ctx context.Context, id uuid.UUID, name string, fn func(context.Context) error) {
	rt.threads.Add(1)
	rt.active.Add(1)
	go func() {
		defer rt.threads.Done()
		defer rt.active.Add(-1)
		if err := fn(ctx); err != nil {
			log.Error().Err(err).Str("thread", id.String()).Str("program", name).Msg("thread failed")
			rt.tmu.Lock()
			rt.threadErrs = multierror.Append(rt.threadErrs, err)
			rt.tmu.Unlock()
		}
	}()
}

// Wait blocks until every thread started by _THREAD has finished and
// returns their combined failures.
func (rt *Runtime) Wait() error {
	rt.threads.Wait()
	rt.tmu.Lock()
	defer rt.tmu.Unlock()
	err := rt.threadErrs.ErrorOrNil()
	rt.threadErrs = nil
	return err
}
