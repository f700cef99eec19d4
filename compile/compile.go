// Package compile turns a small Python-like surface syntax, parsed with the
// Starlark parser, into bytecode streams. It backs the debugger's statement
// entry, conditional breakpoints and the CLI's source loader.
package compile

import (
	"fmt"
	"io"
	"strings"

	"github.com/bytebasic-dev/bytebasic/interp"
	"github.com/bytebasic-dev/bytebasic/status"
	"github.com/bytebasic-dev/bytebasic/vm"
	"github.com/google/uuid"
	"go.starlark.net/syntax"
)

// op is one emitted instruction. Branches name their target by label until
// the stream is finished; mark ops only record a label position.
type op struct {
	in     *vm.Instruction
	target string
	mark   string
}

type compileContext struct {
	name     string
	ops      []op
	line     int
	topLevel bool
	defs     []*compileContext
}

func newCompileContext(name string) *compileContext {
	return &compileContext{name: name}
}

func (cc *compileContext) emit(in *vm.Instruction) {
	cc.ops = append(cc.ops, op{in: in})
}

// emitBranch emits a branch-flagged instruction aimed at label.
func (cc *compileContext) emitBranch(in *vm.Instruction, label string) {
	cc.ops = append(cc.ops, op{in: in, target: label})
}

func (cc *compileContext) newLabel() string {
	return uuid.NewString()
}

func (cc *compileContext) emitLabel(s string) {
	cc.ops = append(cc.ops, op{mark: s})
}

// setLine emits a statement boundary for the node's source line.
func (cc *compileContext) setLine(n syntax.Node) {
	start, _ := n.Span()
	cc.line = int(start.Line)
	cc.emit(vm.NewIntStr(vm.STMT, int64(cc.line), ""))
}

// intoBytecode drops label marks and resolves branch targets to addresses.
func (cc *compileContext) intoBytecode() (*vm.Bytecode, error) {
	b := vm.NewBytecode(cc.name)
	offsets := make(map[string]int)
	n := 0
	for _, o := range cc.ops {
		if o.mark != "" {
			offsets[o.mark] = n
			continue
		}
		n++
	}
	for _, o := range cc.ops {
		if o.in == nil {
			continue
		}
		if o.target != "" {
			addr, ok := offsets[o.target]
			if !ok {
				return nil, fmt.Errorf("compile %s: dangling branch label %s", cc.name, o.target)
			}
			o.in.SetInt(int64(addr))
		}
		b.Append(o.in)
	}
	return b, nil
}

func parse(name, src string) (*syntax.File, error) {
	opts := syntax.FileOptions{
		While:           true,
		TopLevelControl: true,
		GlobalReassign:  true,
	}
	f, err := opts.Parse(name, src, 0)
	if err != nil {
		return nil, status.Wrap(status.Syntax, err, src)
	}
	return f, nil
}

func syntaxError(src string, err error) error {
	return status.Wrap(status.Syntax, err, src)
}

// Compiler implements interp.StatementCompiler.
type Compiler struct{}

var _ interp.StatementCompiler = Compiler{}

// CompileStatement compiles one line of input into an unlinked stream that
// runs against the caller's symbol table. Function definitions are only
// allowed in files.
func (Compiler) CompileStatement(line string) (*vm.Bytecode, error) {
	f, err := parse("<statement>", line)
	if err != nil {
		return nil, err
	}
	cc := newCompileContext("STATEMENT")
	if err := cc.buildFromStatements(f.Stmts); err != nil {
		return nil, syntaxError(line, err)
	}
	b, err := cc.intoBytecode()
	if err != nil {
		return nil, syntaxError(line, err)
	}
	return b, nil
}

// Expression compiles a single expression. The stream ends with _END and
// PopReturn set, so a run leaves the value in the frame's return slot.
func Expression(name, src string) (*vm.Bytecode, error) {
	f, err := parse(name, src)
	if err != nil {
		return nil, err
	}
	if len(f.Stmts) != 1 {
		return nil, status.New(status.Syntax, src)
	}
	es, ok := f.Stmts[0].(*syntax.ExprStmt)
	if !ok {
		return nil, status.New(status.Syntax, src)
	}
	cc := newCompileContext(name)
	if err := cc.expr(es.X); err != nil {
		return nil, syntaxError(src, err)
	}
	cc.emit(vm.NewOp(vm.END))
	b, err := cc.intoBytecode()
	if err != nil {
		return nil, syntaxError(src, err)
	}
	b.PopReturn = true
	b.Protected = true
	return b, nil
}

// File compiles a source file into linked programs. The first program is
// the file's top level, named name; each def becomes a program of its own
// named after the function in upper case.
func File(name string, r io.Reader) ([]*vm.Bytecode, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f, err := parse(name, string(data))
	if err != nil {
		return nil, err
	}
	cc := newCompileContext(strings.ToUpper(name))
	cc.topLevel = true
	if err := cc.buildFromStatements(f.Stmts); err != nil {
		return nil, status.Wrap(status.Syntax, err, fmt.Sprintf("%s:%d", name, cc.line))
	}
	var out []*vm.Bytecode
	for _, c := range append([]*compileContext{cc}, cc.defs...) {
		b, err := c.intoBytecode()
		if err != nil {
			return nil, err
		}
		if err := b.Link(); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (cc *compileContext) buildFromStatements(stmts []syntax.Stmt) error {
	for _, s := range stmts {
		if err := cc.statement(s); err != nil {
			return err
		}
	}
	return nil
}
