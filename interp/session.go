package interp

import (
	"sync"
	"sync/atomic"

	"github.com/bytebasic-dev/bytebasic/status"
	"github.com/bytebasic-dev/bytebasic/symtab"
	"github.com/bytebasic-dev/bytebasic/vm"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ConsoleID is the file handle id of the session console.
const ConsoleID = 0

// Session is one user of the runtime: a global symbol table, a table of
// open files and an abort flag of its own.
type Session struct {
	ID      uuid.UUID
	Runtime *Runtime
	Global  *symtab.Table
	Logger  zerolog.Logger

	TraceStatements   bool
	TraceInstructions bool

	abort atomic.Bool

	mu       sync.Mutex
	files    map[int]FileHandle
	nextFile int
}

func (rt *Runtime) NewSession(console FileHandle) *Session {
	id := uuid.New()
	s := &Session{
		ID:                id,
		Runtime:           rt,
		Global:            symtab.NewGlobal("GLOBAL", rt.Root),
		Logger:            log.With().Str("session", id.String()).Logger(),
		TraceStatements:   rt.Config.Trace.Statements,
		TraceInstructions: rt.Config.Trace.Instructions,
		files:             make(map[int]FileHandle),
		nextFile:          ConsoleID + 1,
	}
	if console == nil {
		console = NewConsole(nil, nil)
	}
	s.files[ConsoleID] = console
	s.Global.StrongTyping = rt.Config.Runtime.StrongTyping
	_ = s.Global.InsertReadOnly("SYS$SESSION", vm.StrValue(id.String()))
	return s
}

// Abort interrupts machines of this session only.
func (s *Session) Abort() {
	s.abort.Store(true)
}

// OpenFile opens name through the runtime's FileOpener and returns the new
// handle id.
func (s *Session) OpenFile(name string, mode FileMode) (int, error) {
	if s.Runtime.Files == nil {
		return 0, status.New(status.NoSuchFile, name)
	}
	h, err := s.Runtime.Files.Open(name, mode)
	if err != nil {
		return 0, ioStatus(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextFile
	s.nextFile++
	s.files[id] = h
	return id, nil
}

func (s *Session) File(id int) (FileHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.files[id]
	if !ok {
		return nil, status.New(status.NotOpen, id)
	}
	return h, nil
}

// CloseFile closes a handle. The console stays open.
func (s *Session) CloseFile(id int) error {
	if id == ConsoleID {
		return nil
	}
	s.mu.Lock()
	h, ok := s.files[id]
	delete(s.files, id)
	s.mu.Unlock()
	if !ok {
		return status.New(status.NotOpen, id)
	}
	return ioStatus(h.Close())
}

// CloseAll closes every handle except the console and returns every
// close failure.
func (s *Session) CloseAll() error {
	s.mu.Lock()
	ids := make([]int, 0, len(s.files))
	for id := range s.files {
		if id != ConsoleID {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()
	var result *multierror.Error
	for _, id := range ids {
		if err := s.CloseFile(id); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// NewMachine creates a thread of execution for this session.
func (s *Session) NewMachine() *Machine {
	return &Machine{
		ID:        uuid.New(),
		Session:   s,
		Runtime:   s.Runtime,
		OnStack:   &OnStack{},
		Tokenizer: vm.LineTokenizer{},
	}
}
