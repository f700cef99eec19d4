package vm

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
)

// Instruction is one opcode plus up to three optional operands. Branch marks
// the integer operand as a bytecode address that must follow edits to the
// stream. ExecCount is the only field that changes while a stream runs.
type Instruction struct {
	Op        Opcode
	Branch    bool
	HasInt    bool
	Int       int64
	HasDouble bool
	Double    float64
	HasStr    bool
	Str       string
	ExecCount uint64 `msgpack:"-"`
}

// NewOp builds an instruction with no operands.
func NewOp(op Opcode) *Instruction {
	return &Instruction{Op: op, Branch: op.IsBranch()}
}

func NewInt(op Opcode, i int64) *Instruction {
	in := NewOp(op)
	in.SetInt(i)
	return in
}

func NewDouble(op Opcode, d float64) *Instruction {
	in := NewOp(op)
	in.HasDouble, in.Double = true, d
	return in
}

func NewStr(op Opcode, s string) *Instruction {
	in := NewOp(op)
	in.HasStr, in.Str = true, s
	return in
}

func NewIntStr(op Opcode, i int64, s string) *Instruction {
	in := NewStr(op, s)
	in.SetInt(i)
	return in
}

func (in *Instruction) SetInt(i int64) {
	in.HasInt, in.Int = true, i
}

// Target returns the branch address and whether the instruction has one.
func (in *Instruction) Target() (int, bool) {
	if !in.Branch || !in.HasInt {
		return 0, false
	}
	return int(in.Int), true
}

// Count records one dispatch of the instruction.
func (in *Instruction) Count() {
	atomic.AddUint64(&in.ExecCount, 1)
}

func (in *Instruction) Executions() uint64 {
	return atomic.LoadUint64(&in.ExecCount)
}

func (in *Instruction) Clone() *Instruction {
	out := *in
	out.ExecCount = 0
	return &out
}

func (in *Instruction) String() string {
	var b strings.Builder
	b.WriteString(in.Op.String())
	var args []string
	if in.HasInt {
		if in.Branch {
			args = append(args, fmt.Sprintf("@%d", in.Int))
		} else {
			args = append(args, strconv.FormatInt(in.Int, 10))
		}
	}
	if in.HasDouble {
		args = append(args, strconv.FormatFloat(in.Double, 'g', -1, 64))
	}
	if in.HasStr {
		args = append(args, strconv.Quote(in.Str))
	}
	if len(args) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(args, ", "))
	}
	return b.String()
}
