package interp

import (
	"strings"

	"github.com/bytebasic-dev/bytebasic/status"
	"github.com/bytebasic-dev/bytebasic/symtab"
	"github.com/bytebasic-dev/bytebasic/vm"
)

// NewFrame prepares a run of code against symbols.
func NewFrame(code *vm.Bytecode, symbols *symtab.Table) *Frame {
	return &Frame{
		Code:    code,
		Symbols: symbols,
	}
}

// Depth is the call depth the frame ran at; the outermost run is 1.
func (f *Frame) Depth() int {
	return f.depth
}

func (f *Frame) Pop() (vm.Value, error) {
	if len(f.Stack) == 0 {
		return nil, status.New(status.Underflow)
	}
	v := f.Stack[len(f.Stack)-1]
	f.Stack = f.Stack[:len(f.Stack)-1]
	return v, nil
}

// PopN pops n values and returns them in push order.
func (f *Frame) PopN(n int) ([]vm.Value, error) {
	if n < 0 || len(f.Stack) < n {
		return nil, status.New(status.Underflow)
	}
	out := make([]vm.Value, n)
	copy(out, f.Stack[len(f.Stack)-n:])
	f.Stack = f.Stack[:len(f.Stack)-n]
	return out, nil
}

// Peek returns the value n places below the top without removing it.
func (f *Frame) Peek(n int) (vm.Value, error) {
	if n < 0 || len(f.Stack) <= n {
		return nil, status.New(status.Underflow)
	}
	return f.Stack[len(f.Stack)-1-n], nil
}

func (f *Frame) Push(v vm.Value) error {
	if f.maxStack > 0 && len(f.Stack) >= f.maxStack {
		return status.New(status.Overflow)
	}
	f.Stack = append(f.Stack, v)
	return nil
}

// Drain discards all pending values.
func (f *Frame) Drain() {
	f.Stack = f.Stack[:0]
}

func (f *Frame) pushGosub(target, ret int) {
	f.Gosubs = append(f.Gosubs, ScopeControlBlock{
		Target:  target,
		Return:  ret,
		Kind:    ScopeGosub,
		Program: f.Code.Name,
	})
}

func (f *Frame) popGosub() (ScopeControlBlock, error) {
	if len(f.Gosubs) == 0 {
		return ScopeControlBlock{}, status.New(status.NoGosub)
	}
	scb := f.Gosubs[len(f.Gosubs)-1]
	f.Gosubs = f.Gosubs[:len(f.Gosubs)-1]
	return scb, nil
}

// FormatStack renders the execution stack bottom first.
func FormatStack(stack []vm.Value) string {
	if len(stack) == 0 {
		return "[]"
	}
	parts := make([]string, len(stack))
	for i, v := range stack {
		parts[i] = FormatValue(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// FormatValue formats a vm.Value for display. Strings are quoted.
func FormatValue(v vm.Value) string {
	if v == nil {
		return "<nil>"
	}
	if s, ok := v.(vm.StrValue); ok {
		return `"` + string(s) + `"`
	}
	return v.String()
}
