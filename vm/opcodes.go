package vm

import "fmt"

type Opcode uint16

// BranchFlag is added to an opcode number in the text format when the
// instruction's integer operand is a relocatable bytecode address.
const BranchFlag = 1000

const (
	NOOP Opcode = iota
	// PRE-STACK ... TOS | OP | POST-STACK

	// Constants
	INTEGER // | push int operand | A
	DOUBLE  // | push double operand | A
	STRING  // | push string operand | A
	BOOL    // | push int operand != 0 | A

	// Storage. String operand names the variable.
	LOAD    // | copy of variable | A
	LOADREF // | live variable value | A
	STORE   // A | variable = A |
	STORL   // A | bind A in the current table only |
	CONST   // A | bind A read-only in the current table |
	CLEAR   // | delete variable |
	COMMON  // | mark variable COMMON |

	// Stack
	DUP  // A | | A A
	DROP // A | |
	SWAP // A B | | B A

	// Arithmetic
	ADD    // A B | C = A + B | C
	SUB    // A B | C = A - B | C
	MULT   // A B | C = A * B | C
	DIV    // A B | C = A / B | C
	IDIV   // A B | C = int(A / B) | C
	MOD    // A B | C = A MOD B | C
	EXP    // A B | C = A ^ B | C
	NEGATE // A | B = -A | B
	CONCAT // A B | C = string(A) + string(B) | C

	// Comparison
	EQ // A B | C = A = B | C
	NE // A B | C = A <> B | C
	LT // A B | C = A < B | C
	LE // A B | C = A <= B | C
	GT // A B | C = A > B | C
	GE // A B | C = A >= B | C

	// Logic
	AND // A B | C = A AND B | C
	OR  // A B | C = A OR B | C
	NOT // A | B = NOT A | B

	// Aggregates
	ARRAY  // A B C | int operand 3 | [A B C]
	RECORD // K1 V1 K2 V2 | int operand 2 | {K1: V1, K2: V2}
	INDEX  // A I | C = A[I] (1-based for arrays, field name for records) | C
	LENGTH // A | B = len(A) | B

	// Statements
	STMT  // | statement boundary, int operand is the source line |
	LABEL // | string operand is a label name |
	END   // | halt; with PopReturn the TOS moves to the return slot |
	TRACE // | int operand: bit 1 statements, bit 2 instructions; double operand != 0 turns on |
	DEBUG // | stop in the attached debugger at the next statement |

	// Control. Addresses are int operands of branch-flagged instructions.
	BR       // | jump to operand |
	BRZ      // A | jump to operand if A is false |
	BRNZ     // A | jump to operand if A is true |
	JSB      // | GOSUB to operand, pushing a scope control block |
	RET      // | return from GOSUB |
	RETURN   // [A] | return from the program; int operand 1 returns TOS |
	GOTO     // | jump to label in string operand |
	GOTOIND  // A | jump to label A |
	GOSUB    // | GOSUB to label in string operand |
	GOSUBIND // A | GOSUB to label A |

	// Loops
	FOR      // S E I | variable = S; exit to operand when already past E | E I
	NEXT     // E I | variable += I; back to operand unless past E | E I or nothing
	FOREACH  // A | variable = A[1]; exit to operand when empty | A 1
	NEXTEACH // A N | variable = A[N+1]; back to operand while elements remain | A N+1 or nothing
	DO       // A | exit to operand when A is false |
	LOOP     // | jump back to operand |
	LOOPW    // A | jump back to operand while A is true |
	LOOPU    // A | jump back to operand until A is true |

	// Error handling
	ERROR  // C | ON ERROR C, string operand label, int operand 1 means GOSUB; no label clears |
	SIGNAL // C | raise error code C |

	// Calls
	CALLP  // A1..An | int operand n, call program in string operand | [R]
	CALLF  // A1..An | int operand n, call function in string operand | R
	THREAD // A1..An | int operand n, run program in string operand on a new thread | ID

	// I/O. The int operand is the file handle id; 0 is the console.
	OPEN    // NAME MODE | open, store handle id in variable from string operand |
	CLOSE   // | close handle in int operand, or popped id when operand absent |
	PRINT   // A | write A |
	PRINTNL // | write newline |
	INPUT   // | read a value into variable in string operand |
	LINPUT  // | read a whole line into variable in string operand |
	SEEK    // A | position handle at A |
	EOF     // | push end-of-file flag for handle | A

	OpcodeMax
)

type Info struct {
	Name   string
	Branch bool // integer operand is a bytecode address
}

var opInfo = [OpcodeMax]Info{
	NOOP:     {Name: "_NOOP"},
	INTEGER:  {Name: "_INTEGER"},
	DOUBLE:   {Name: "_DOUBLE"},
	STRING:   {Name: "_STRING"},
	BOOL:     {Name: "_BOOL"},
	LOAD:     {Name: "_LOAD"},
	LOADREF:  {Name: "_LOADREF"},
	STORE:    {Name: "_STORE"},
	STORL:    {Name: "_STORL"},
	CONST:    {Name: "_CONST"},
	CLEAR:    {Name: "_CLEAR"},
	COMMON:   {Name: "_COMMON"},
	DUP:      {Name: "_DUP"},
	DROP:     {Name: "_DROP"},
	SWAP:     {Name: "_SWAP"},
	ADD:      {Name: "_ADD"},
	SUB:      {Name: "_SUB"},
	MULT:     {Name: "_MULT"},
	DIV:      {Name: "_DIV"},
	IDIV:     {Name: "_IDIV"},
	MOD:      {Name: "_MOD"},
	EXP:      {Name: "_EXP"},
	NEGATE:   {Name: "_NEGATE"},
	CONCAT:   {Name: "_CONCAT"},
	EQ:       {Name: "_EQ"},
	NE:       {Name: "_NE"},
	LT:       {Name: "_LT"},
	LE:       {Name: "_LE"},
	GT:       {Name: "_GT"},
	GE:       {Name: "_GE"},
	AND:      {Name: "_AND"},
	OR:       {Name: "_OR"},
	NOT:      {Name: "_NOT"},
	ARRAY:    {Name: "_ARRAY"},
	RECORD:   {Name: "_RECORD"},
	INDEX:    {Name: "_INDEX"},
	LENGTH:   {Name: "_LENGTH"},
	STMT:     {Name: "_STMT"},
	LABEL:    {Name: "_LABEL"},
	END:      {Name: "_END"},
	TRACE:    {Name: "_TRACE"},
	DEBUG:    {Name: "_DEBUG"},
	BR:       {Name: "_BR", Branch: true},
	BRZ:      {Name: "_BRZ", Branch: true},
	BRNZ:     {Name: "_BRNZ", Branch: true},
	JSB:      {Name: "_JSB", Branch: true},
	RET:      {Name: "_RET"},
	RETURN:   {Name: "_RETURN"},
	GOTO:     {Name: "_GOTO"},
	GOTOIND:  {Name: "_GOTOIND"},
	GOSUB:    {Name: "_GOSUB"},
	GOSUBIND: {Name: "_GOSUBIND"},
	FOR:      {Name: "_FOR", Branch: true},
	NEXT:     {Name: "_NEXT", Branch: true},
	FOREACH:  {Name: "_FOREACH", Branch: true},
	NEXTEACH: {Name: "_NEXTEACH", Branch: true},
	DO:       {Name: "_DO", Branch: true},
	LOOP:     {Name: "_LOOP", Branch: true},
	LOOPW:    {Name: "_LOOPW", Branch: true},
	LOOPU:    {Name: "_LOOPU", Branch: true},
	ERROR:    {Name: "_ERROR"},
	SIGNAL:   {Name: "_SIGNAL"},
	CALLP:    {Name: "_CALLP"},
	CALLF:    {Name: "_CALLF"},
	THREAD:   {Name: "_THREAD"},
	OPEN:     {Name: "_OPEN"},
	CLOSE:    {Name: "_CLOSE"},
	PRINT:    {Name: "_PRINT"},
	PRINTNL:  {Name: "_PRINTNL"},
	INPUT:    {Name: "_INPUT"},
	LINPUT:   {Name: "_LINPUT"},
	SEEK:     {Name: "_SEEK"},
	EOF:      {Name: "_EOF"},
}

var opByName = func() map[string]Opcode {
	m := make(map[string]Opcode, OpcodeMax)
	for i, info := range opInfo {
		m[info.Name] = Opcode(i)
	}
	return m
}()

func (o Opcode) String() string {
	if o < OpcodeMax {
		return opInfo[o].Name
	}
	return fmt.Sprintf("_OP%d", int(o))
}

// Valid reports whether o is a defined opcode.
func (o Opcode) Valid() bool {
	return o < OpcodeMax
}

// IsBranch reports whether o's integer operand is a bytecode address.
func (o Opcode) IsBranch() bool {
	return o < OpcodeMax && opInfo[o].Branch
}

// Lookup finds an opcode by its disassembly name, with or without the
// leading underscore.
func Lookup(name string) (Opcode, bool) {
	if o, ok := opByName[name]; ok {
		return o, true
	}
	o, ok := opByName["_"+name]
	return o, ok
}

// HasErrorHandler reports opcodes that install ON ERROR handlers.
func (o Opcode) HasErrorHandler() bool {
	return o == ERROR
}
