package interp

import (
	"context"
	"strings"

	"github.com/bytebasic-dev/bytebasic/status"
	"github.com/bytebasic-dev/bytebasic/vm"
)

// FileHandle is an open file, console or other stream. Handles are owned
// by a Session and referred to by integer ids inside running code.
type FileHandle interface {
	ReadLine() (string, error)
	Write(s string) error
	SeekTo(pos int64) error
	EOF() bool
	Close() error
}

type FileMode int

const (
	ModeInput FileMode = iota
	ModeOutput
	ModeAppend
)

func (m FileMode) String() string {
	switch m {
	case ModeInput:
		return "INPUT"
	case ModeOutput:
		return "OUTPUT"
	case ModeAppend:
		return "APPEND"
	}
	return "UNKNOWN"
}

// ParseFileMode accepts the mode keywords used by OPEN.
func ParseFileMode(s string) (FileMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INPUT", "IN", "READ":
		return ModeInput, nil
	case "OUTPUT", "OUT", "WRITE":
		return ModeOutput, nil
	case "APPEND":
		return ModeAppend, nil
	}
	return 0, status.New(status.BadFileMode, s)
}

type FileOpener interface {
	Open(name string, mode FileMode) (FileHandle, error)
}

// Callable is a built-in function.
type Callable func(ctx context.Context, m *Machine, args []vm.Value) (vm.Value, error)

type Param struct {
	Name    string
	Default vm.Value
}

// Resolved is what a FunctionResolver hands back: either a built-in or a
// user procedure run in a fresh symbol table with Params bound.
type Resolved struct {
	Name      string
	Builtin   Callable
	Procedure *vm.Bytecode
	Params    []Param
}

type FunctionResolver interface {
	ResolveFunction(name string, args []vm.Value) (Resolved, bool)
}

// StatementCompiler turns one line of source into an unlinked stream.
type StatementCompiler interface {
	CompileStatement(line string) (*vm.Bytecode, error)
}

// Debugger is consulted at statement boundaries.
type Debugger interface {
	// Statement decides whether to stop before the statement at f's PC
	// runs. Returning BreakStep ends the run.
	Statement(ctx context.Context, m *Machine, f *Frame) (StepResult, error)
	// Returned is called when a run of a linked stream finishes.
	Returned(m *Machine, f *Frame)
	// Break requests a stop at the next statement.
	Break()
}
