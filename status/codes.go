package status

// Code is the symbolic name of a runtime condition. Handlers registered with
// ON ERROR match on these names.
type Code string

const (
	// Wildcard matches any code on the handler stack.
	Wildcard Code = "*"

	// Stack discipline
	Underflow Code = "UNDERFLOW"
	Overflow  Code = "OVERFLOW"

	// Unknown symbol, label or opcode
	UnknownVariable Code = "UNKVAR"
	UnknownLabel    Code = "UNKLABEL"
	UnknownProgram  Code = "UNKPGM"
	UnknownFunction Code = "UNKFUNC"
	Unimplemented   Code = "UNIMPBYTECODE"

	// Typing and coercion
	TypeMismatch Code = "TYPEMISMATCH"
	InvalidCvt   Code = "INVCVT"
	ReadOnly     Code = "READONLY"
	Connector    Code = "CONNECTOR"
	ArgCount     Code = "ARGERR"
	BadIndex     Code = "ARRAYBOUNDS"

	// Collaborator I/O
	IOError     Code = "IOERROR"
	NotOpen     Code = "FNOPEN"
	EndOfFile   Code = "EOF"
	NoSuchFile  Code = "FNF"
	BadFileMode Code = "FMODE"

	// Arithmetic
	DivZero Code = "DIVZERO"
	Math    Code = "MATH"

	// Control
	Interrupt  Code = "INTERRUPT"
	NoGosub    Code = "NOGOSUB"
	NoFor      Code = "NOFOR"
	NoLabelMap Code = "NOLINK"
	Fault      Code = "FAULT"
	UserSignal Code = "SIGNAL"
	BadOperand Code = "BADOPERAND"
	NoDebugger Code = "NODEBUG"
	BadBreak   Code = "BADBREAK"
	Syntax     Code = "SYNTAX"
)

var descriptions = map[Code]string{
	Wildcard:        "any error",
	Underflow:       "execution stack underflow",
	Overflow:        "execution stack overflow",
	UnknownVariable: "unknown variable %s",
	UnknownLabel:    "unknown label %s",
	UnknownProgram:  "unknown program %s",
	UnknownFunction: "unknown function %s",
	Unimplemented:   "unimplemented instruction %s",
	TypeMismatch:    "type mismatch",
	InvalidCvt:      "cannot convert %s to %s",
	ReadOnly:        "attempt to write read-only variable %s",
	Connector:       "connector variable %s cannot be changed",
	ArgCount:        "incorrect argument count",
	BadIndex:        "index %s out of range",
	IOError:         "I/O error",
	NotOpen:         "file %s is not open",
	EndOfFile:       "end of file",
	NoSuchFile:      "file %s not found",
	BadFileMode:     "invalid file mode %s",
	DivZero:         "division by zero",
	Math:            "math error",
	Interrupt:       "interrupted",
	NoGosub:         "RETURN without GOSUB",
	NoFor:           "NEXT without FOR",
	NoLabelMap:      "program is not linked",
	Fault:           "internal fault: %s",
	UserSignal:      "user signal %s",
	BadOperand:      "invalid operand for %s",
	NoDebugger:      "no debugger attached",
	BadBreak:        "invalid breakpoint %s",
	Syntax:          "syntax error: %s",
}

// Description returns the message template for a code. Unregistered codes
// are user signals, so they describe themselves.
func (c Code) Description() string {
	if d, ok := descriptions[c]; ok {
		return d
	}
	return string(c)
}

func (c Code) String() string {
	return string(c)
}
