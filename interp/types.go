package interp

import (
	"github.com/bytebasic-dev/bytebasic/symtab"
	"github.com/bytebasic-dev/bytebasic/vm"
)

type StepResult int

const (
	ContinueStep  StepResult = iota
	ReturnStep               // RETURN from the stream
	EndStep                  // _END reached
	BreakStep                // the debugger asked to stop
	TransferStep             // unlinked GOTO/GOSUB to a label outside this stream
	StatementStep            // a statement boundary was crossed
)

func (r StepResult) String() string {
	switch r {
	case ContinueStep:
		return "Continue"
	case ReturnStep:
		return "Return"
	case EndStep:
		return "End"
	case BreakStep:
		return "Break"
	case TransferStep:
		return "Transfer"
	case StatementStep:
		return "Statement"
	default:
		return "Unknown"
	}
}

// Halt records how a run stopped.
type Halt int

const (
	Idle Halt = iota
	Running
	HaltedNormal
	HaltedError
	HaltedTransfer
	HaltedBreak
)

func (h Halt) String() string {
	switch h {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case HaltedNormal:
		return "halted"
	case HaltedError:
		return "halted on error"
	case HaltedTransfer:
		return "halted on control transfer"
	case HaltedBreak:
		return "halted by debugger"
	default:
		return "unknown"
	}
}

type ScopeKind int

const (
	ScopeGosub ScopeKind = iota
)

// ScopeControlBlock records one in-stream GOSUB.
type ScopeControlBlock struct {
	Target  int
	Return  int
	Kind    ScopeKind
	Program string
}

// Frame is the state of one run of one stream: its execution stack, its
// symbol table and its GOSUB stack.
type Frame struct {
	Code    *vm.Bytecode
	Symbols *symtab.Table
	Stack   []vm.Value
	Gosubs  []ScopeControlBlock

	Line              int
	TraceStatements   bool
	TraceInstructions bool

	Halt      Halt
	Return    vm.Value // set by RETURN 1, or _END with PopReturn
	Transfer  string   // label to continue at when Halt is HaltedTransfer
	TransferG bool     // the transfer is a GOSUB

	maxStack int
	depth    int
}
