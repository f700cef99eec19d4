package vm

import (
	"errors"
	"fmt"
)

var (
	ErrEndOfCode    = errors.New("End of code block")
	ErrBadAddress   = errors.New("address out of range")
	ErrNotBranch    = errors.New("instruction has no address operand")
	ErrDuplicateLbl = errors.New("duplicate label")
)

// Linkage binds a label name to a bytecode address.
type Linkage struct {
	Label   string
	Address int
}

// Bytecode is an editable instruction stream. It owns its label map and the
// execution state of the one thread currently running it.
type Bytecode struct {
	Name         string
	Instructions []*Instruction
	Labels       map[string]Linkage

	Linked          bool // a full program rather than one statement
	Protected       bool // compiled-only; tracing is always off
	PopReturn       bool // _END moves TOS into the return slot
	HasErrorHandler bool

	PC        int
	Running   bool
	LastError error
}

func NewBytecode(name string) *Bytecode {
	return &Bytecode{
		Name:   name,
		Labels: make(map[string]Linkage),
	}
}

func (b *Bytecode) Len() int {
	return len(b.Instructions)
}

// At fetches the instruction at addr.
func (b *Bytecode) At(addr int) (*Instruction, error) {
	if addr < 0 {
		return nil, ErrBadAddress
	}
	if addr >= len(b.Instructions) {
		return nil, ErrEndOfCode
	}
	return b.Instructions[addr], nil
}

// Append adds in at the end and returns its address.
func (b *Bytecode) Append(in *Instruction) int {
	b.Instructions = append(b.Instructions, in)
	if in.Op.HasErrorHandler() {
		b.HasErrorHandler = true
	}
	return len(b.Instructions) - 1
}

// Emit appends a sequence of instructions and returns the address of the first.
func (b *Bytecode) Emit(ins ...*Instruction) int {
	start := len(b.Instructions)
	for _, in := range ins {
		b.Append(in)
	}
	return start
}

// Insert places in at addr. Every address operand and label at or after addr
// moves up by one so it still names the same instruction. The operand of in
// itself is taken as already expressed in post-insert addresses.
func (b *Bytecode) Insert(addr int, in *Instruction) error {
	if addr < 0 || addr > len(b.Instructions) {
		return fmt.Errorf("insert at %d: %w", addr, ErrBadAddress)
	}
	b.relocate(addr, 1, func(target int) bool { return target >= addr })
	b.Instructions = append(b.Instructions, nil)
	copy(b.Instructions[addr+1:], b.Instructions[addr:])
	b.Instructions[addr] = in
	if in.Op.HasErrorHandler() {
		b.HasErrorHandler = true
	}
	return nil
}

// Remove deletes the instruction at addr. Address operands and labels past
// addr move down by one; those naming addr itself now name its successor.
func (b *Bytecode) Remove(addr int) error {
	if addr < 0 || addr >= len(b.Instructions) {
		return fmt.Errorf("remove at %d: %w", addr, ErrBadAddress)
	}
	b.Instructions = append(b.Instructions[:addr], b.Instructions[addr+1:]...)
	b.relocate(addr, -1, func(target int) bool { return target > addr })
	b.HasErrorHandler = false
	for _, in := range b.Instructions {
		if in.Op.HasErrorHandler() {
			b.HasErrorHandler = true
			break
		}
	}
	return nil
}

func (b *Bytecode) relocate(addr, delta int, moves func(int) bool) {
	for _, in := range b.Instructions {
		if target, ok := in.Target(); ok && moves(target) {
			in.Int = int64(target + delta)
		}
	}
	for name, l := range b.Labels {
		if moves(l.Address) {
			l.Address += delta
			b.Labels[name] = l
		}
	}
}

// Concat appends other so that execution falls through from b into it. A
// trailing _END in b is removed first and a trailing _END in other becomes a
// no-op. Instructions are copied; other is not modified.
func (b *Bytecode) Concat(other *Bytecode) error {
	if n := len(b.Instructions); n > 0 && b.Instructions[n-1].Op == END {
		if err := b.Remove(n - 1); err != nil {
			return err
		}
	}
	base := len(b.Instructions)
	for name, l := range other.Labels {
		if _, ok := b.Labels[name]; ok {
			return fmt.Errorf("concat %s: %w: %s", other.Name, ErrDuplicateLbl, name)
		}
		if b.Labels == nil {
			b.Labels = make(map[string]Linkage)
		}
		b.Labels[name] = Linkage{Label: name, Address: l.Address + base}
	}
	for i, in := range other.Instructions {
		c := in.Clone()
		if target, ok := c.Target(); ok {
			c.Int = int64(target + base)
		}
		if i == len(other.Instructions)-1 && c.Op == END {
			c = NewOp(NOOP)
		}
		b.Append(c)
	}
	return nil
}

// Mark returns the address of the next instruction to be generated.
func (b *Bytecode) Mark() int {
	return len(b.Instructions)
}

// Patch writes the next address into the integer operand at addr. Forward
// branches are emitted with a placeholder and patched once the target is known.
func (b *Bytecode) Patch(addr int) error {
	in, err := b.At(addr)
	if err != nil {
		return fmt.Errorf("patch %d: %w", addr, err)
	}
	if !in.Branch {
		return fmt.Errorf("patch %d (%s): %w", addr, in.Op, ErrNotBranch)
	}
	in.SetInt(int64(len(b.Instructions)))
	return nil
}

// Link builds the label map from _LABEL instructions and marks the stream
// as a full program.
func (b *Bytecode) Link() error {
	labels := make(map[string]Linkage)
	for addr, in := range b.Instructions {
		if in.Op != LABEL || !in.HasStr {
			continue
		}
		if _, ok := labels[in.Str]; ok {
			return fmt.Errorf("link %s: %w: %s", b.Name, ErrDuplicateLbl, in.Str)
		}
		labels[in.Str] = Linkage{Label: in.Str, Address: addr}
	}
	b.Labels = labels
	b.Linked = true
	return nil
}

// Resolve looks a label up in the label map.
func (b *Bytecode) Resolve(label string) (int, bool) {
	l, ok := b.Labels[label]
	if !ok {
		return 0, false
	}
	return l.Address, true
}

// FindLabel searches statement boundaries for a _LABEL instruction. Unlinked
// streams resolve labels this way.
func (b *Bytecode) FindLabel(label string) (int, bool) {
	for addr, in := range b.Instructions {
		if in.Op == LABEL && in.HasStr && in.Str == label {
			return addr, true
		}
	}
	return 0, false
}

// NextStatement returns the address of the first _STMT at or after addr, or
// the stream length when there is none.
func (b *Bytecode) NextStatement(addr int) int {
	for i := addr; i < len(b.Instructions); i++ {
		if b.Instructions[i].Op == STMT {
			return i
		}
	}
	return len(b.Instructions)
}

// LineAt reports the source line of the statement containing addr.
func (b *Bytecode) LineAt(addr int) int {
	if addr >= len(b.Instructions) {
		addr = len(b.Instructions) - 1
	}
	for i := addr; i >= 0; i-- {
		if in := b.Instructions[i]; in.Op == STMT && in.HasInt {
			return int(in.Int)
		}
	}
	return 0
}

// Fork returns a stream that shares b's instructions and labels but has its
// own execution state, so another thread can run it.
func (b *Bytecode) Fork() *Bytecode {
	return &Bytecode{
		Name:            b.Name,
		Instructions:    b.Instructions,
		Labels:          b.Labels,
		Linked:          b.Linked,
		Protected:       b.Protected,
		PopReturn:       b.PopReturn,
		HasErrorHandler: b.HasErrorHandler,
	}
}

// Reset clears execution state and counters.
func (b *Bytecode) Reset() {
	b.PC = 0
	b.Running = false
	b.LastError = nil
	for _, in := range b.Instructions {
		in.ExecCount = 0
	}
}
