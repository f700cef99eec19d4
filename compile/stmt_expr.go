package compile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bytebasic-dev/bytebasic/interp"
	"github.com/bytebasic-dev/bytebasic/status"
	"github.com/bytebasic-dev/bytebasic/vm"
	"go.starlark.net/syntax"
)

func (cc *compileContext) statement(s syntax.Stmt) error {
	cc.setLine(s)

	switch v := s.(type) {
	case *syntax.AssignStmt:
		return cc.assign(v.Op, v.LHS, v.RHS)
	case *syntax.BranchStmt:
		if v.Token == syntax.PASS {
			return nil
		}
		return fmt.Errorf("%s is unsupported", v.Token)
	case *syntax.DefStmt:
		if !cc.topLevel {
			return errors.New("def is only allowed at the top level of a file")
		}
		sub := newCompileContext(strings.ToUpper(v.Name.Name))
		if err := sub.prologue(v.Params); err != nil {
			return err
		}
		if err := sub.buildFromStatements(v.Body); err != nil {
			return err
		}
		sub.emit(vm.NewOp(vm.END))
		cc.defs = append(cc.defs, sub)
	case *syntax.ExprStmt:
		if call, ok := v.X.(*syntax.CallExpr); ok {
			if id, ok := call.Fn.(*syntax.Ident); ok && id.Name == "print" {
				return cc.print(call.Args)
			}
		}
		if _, ok := v.X.(*syntax.Literal); ok {
			// Opt: don't compile literals only to pop them.
			return nil
		}
		if err := cc.expr(v.X); err != nil {
			return err
		}
		cc.emit(vm.NewOp(vm.DROP))
	case *syntax.ForStmt:
		ident, ok := v.Vars.(*syntax.Ident)
		if !ok {
			return errors.New("for loops take a single variable")
		}
		if err := cc.expr(v.X); err != nil {
			return err
		}
		bodyLabel := cc.newLabel()
		endLabel := cc.newLabel()
		cc.emitBranch(vm.NewStr(vm.FOREACH, ident.Name), endLabel)
		cc.emitLabel(bodyLabel)
		if err := cc.buildFromStatements(v.Body); err != nil {
			return err
		}
		cc.emitBranch(vm.NewStr(vm.NEXTEACH, ident.Name), bodyLabel)
		cc.emitLabel(endLabel)
	case *syntax.WhileStmt:
		startLabel := cc.newLabel()
		endLabel := cc.newLabel()
		cc.emitLabel(startLabel)
		if err := cc.expr(v.Cond); err != nil {
			return err
		}
		cc.emitBranch(vm.NewOp(vm.DO), endLabel)
		if err := cc.buildFromStatements(v.Body); err != nil {
			return err
		}
		cc.emitBranch(vm.NewOp(vm.LOOP), startLabel)
		cc.emitLabel(endLabel)
	case *syntax.IfStmt:
		if err := cc.expr(v.Cond); err != nil {
			return err
		}
		label := cc.newLabel()
		cc.emitBranch(vm.NewOp(vm.BRZ), label)
		if err := cc.buildFromStatements(v.True); err != nil {
			return err
		}
		if len(v.False) == 0 {
			cc.emitLabel(label)
			return nil
		}
		endLabel := cc.newLabel()
		cc.emitBranch(vm.NewOp(vm.BR), endLabel)
		cc.emitLabel(label)
		if err := cc.buildFromStatements(v.False); err != nil {
			return err
		}
		cc.emitLabel(endLabel)
	case *syntax.LoadStmt:
		return errors.New("load is unsupported")
	case *syntax.ReturnStmt:
		if v.Result == nil {
			cc.emit(vm.NewOp(vm.RETURN))
			return nil
		}
		if err := cc.expr(v.Result); err != nil {
			return err
		}
		cc.emit(vm.NewInt(vm.RETURN, 1))
	default:
		return fmt.Errorf("unhandled statement type %T", s)
	}
	return nil
}

// print writes its arguments to the console separated by spaces.
func (cc *compileContext) print(args []syntax.Expr) error {
	for i, a := range args {
		if i > 0 {
			cc.emit(vm.NewStr(vm.STRING, " "))
			cc.emit(vm.NewOp(vm.PRINT))
		}
		if err := cc.expr(a); err != nil {
			return err
		}
		cc.emit(vm.NewOp(vm.PRINT))
	}
	cc.emit(vm.NewOp(vm.PRINTNL))
	return nil
}

// prologue binds parameters from the argument list. A missing argument
// takes its default or raises ARGERR, as does a surplus one.
func (cc *compileContext) prologue(params []syntax.Expr) error {
	for i, p := range params {
		name, def, err := param(p)
		if err != nil {
			return err
		}
		n := int64(i + 1)
		missing := cc.newLabel()
		done := cc.newLabel()
		cc.emit(vm.NewStr(vm.LOAD, interp.ArgsName))
		cc.emit(vm.NewOp(vm.LENGTH))
		cc.emit(vm.NewInt(vm.INTEGER, n))
		cc.emit(vm.NewOp(vm.GE))
		cc.emitBranch(vm.NewOp(vm.BRZ), missing)
		cc.emit(vm.NewStr(vm.LOAD, interp.ArgsName))
		cc.emit(vm.NewInt(vm.INTEGER, n))
		cc.emit(vm.NewOp(vm.INDEX))
		cc.emit(vm.NewStr(vm.STORL, name))
		cc.emitBranch(vm.NewOp(vm.BR), done)
		cc.emitLabel(missing)
		if def == nil {
			cc.signal(status.ArgCount)
		} else {
			if err := cc.expr(def); err != nil {
				return err
			}
			cc.emit(vm.NewStr(vm.STORL, name))
		}
		cc.emitLabel(done)
	}
	ok := cc.newLabel()
	cc.emit(vm.NewStr(vm.LOAD, interp.ArgsName))
	cc.emit(vm.NewOp(vm.LENGTH))
	cc.emit(vm.NewInt(vm.INTEGER, int64(len(params))))
	cc.emit(vm.NewOp(vm.GT))
	cc.emitBranch(vm.NewOp(vm.BRZ), ok)
	cc.signal(status.ArgCount)
	cc.emitLabel(ok)
	return nil
}

func (cc *compileContext) signal(code status.Code) {
	cc.emit(vm.NewStr(vm.STRING, string(code)))
	cc.emit(vm.NewOp(vm.SIGNAL))
}

func param(e syntax.Expr) (string, syntax.Expr, error) {
	switch v := e.(type) {
	case *syntax.Ident:
		return v.Name, nil, nil
	case *syntax.BinaryExpr:
		if v.Op != syntax.EQ {
			return "", nil, errors.New("only assignments are allowed within a function parameter")
		}
		id, ok := v.X.(*syntax.Ident)
		if !ok {
			return "", nil, errors.New("parameter name must be an identifier")
		}
		return id.Name, v.Y, nil
	}
	return "", nil, fmt.Errorf("unhandled function param expr type %T", e)
}

func (cc *compileContext) expr(e syntax.Expr) error {
	switch v := e.(type) {
	case *syntax.BinaryExpr:
		if v.Op == syntax.AND || v.Op == syntax.OR {
			return cc.shortCircuitBinOp(v)
		}
		if err := cc.expr(v.X); err != nil {
			return err
		}
		if err := cc.expr(v.Y); err != nil {
			return err
		}
		return cc.binOp(v.Op)
	case *syntax.CallExpr:
		return cc.call(v)
	case *syntax.Comprehension:
		return errors.New("comprehensions are unsupported")
	case *syntax.CondExpr:
		if err := cc.expr(v.Cond); err != nil {
			return err
		}
		label := cc.newLabel()
		endLabel := cc.newLabel()
		cc.emitBranch(vm.NewOp(vm.BRZ), label)
		if err := cc.expr(v.True); err != nil {
			return err
		}
		cc.emitBranch(vm.NewOp(vm.BR), endLabel)
		cc.emitLabel(label)
		if err := cc.expr(v.False); err != nil {
			return err
		}
		cc.emitLabel(endLabel)
	case *syntax.DictExpr:
		for _, item := range v.List {
			entry, ok := item.(*syntax.DictEntry)
			if !ok {
				return fmt.Errorf("unexpected dict item %T", item)
			}
			if err := cc.expr(entry.Key); err != nil {
				return err
			}
			if err := cc.expr(entry.Value); err != nil {
				return err
			}
		}
		cc.emit(vm.NewInt(vm.RECORD, int64(len(v.List))))
	case *syntax.DotExpr:
		if err := cc.expr(v.X); err != nil {
			return err
		}
		cc.emit(vm.NewStr(vm.STRING, v.Name.Name))
		cc.emit(vm.NewOp(vm.INDEX))
	case *syntax.Ident:
		switch v.Name {
		case "True":
			cc.emit(vm.NewInt(vm.BOOL, 1))
		case "False":
			cc.emit(vm.NewInt(vm.BOOL, 0))
		case "None":
			return errors.New("None is unsupported")
		default:
			cc.emit(vm.NewStr(vm.LOAD, v.Name))
		}
	case *syntax.IndexExpr:
		if err := cc.expr(v.X); err != nil {
			return err
		}
		if err := cc.expr(v.Y); err != nil {
			return err
		}
		cc.emit(vm.NewOp(vm.INDEX))
	case *syntax.LambdaExpr:
		return errors.New("lambda expressions are unsupported")
	case *syntax.ListExpr:
		return cc.list(v.List)
	case *syntax.TupleExpr:
		return cc.list(v.List)
	case *syntax.Literal:
		return cc.literal(v)
	case *syntax.ParenExpr:
		return cc.expr(unparen(v))
	case *syntax.SliceExpr:
		return errors.New("slices are unsupported")
	case *syntax.UnaryExpr:
		return cc.unary(v)
	default:
		return fmt.Errorf("unhandled expr type %T", e)
	}
	return nil
}

func (cc *compileContext) list(items []syntax.Expr) error {
	for _, x := range items {
		if err := cc.expr(x); err != nil {
			return err
		}
	}
	cc.emit(vm.NewInt(vm.ARRAY, int64(len(items))))
	return nil
}

func (cc *compileContext) literal(l *syntax.Literal) error {
	switch t := l.Value.(type) {
	case int64:
		cc.emit(vm.NewInt(vm.INTEGER, t))
	case float64:
		cc.emit(vm.NewDouble(vm.DOUBLE, t))
	case string:
		cc.emit(vm.NewStr(vm.STRING, t))
	default:
		return fmt.Errorf("unsupported literal %s", l.Raw)
	}
	return nil
}

// call compiles a function call. len is the _LENGTH opcode; everything
// else goes through _CALLF.
func (cc *compileContext) call(c *syntax.CallExpr) error {
	fn, ok := c.Fn.(*syntax.Ident)
	if !ok {
		return errors.New("only named functions can be called")
	}
	for _, a := range c.Args {
		if b, ok := a.(*syntax.BinaryExpr); ok && b.Op == syntax.EQ {
			return errors.New("keyword arguments are unsupported")
		}
		if u, ok := a.(*syntax.UnaryExpr); ok && (u.Op == syntax.STAR || u.Op == syntax.STARSTAR) {
			return errors.New("splats are unsupported")
		}
	}
	if fn.Name == "len" && len(c.Args) == 1 {
		if err := cc.expr(c.Args[0]); err != nil {
			return err
		}
		cc.emit(vm.NewOp(vm.LENGTH))
		return nil
	}
	for _, a := range c.Args {
		if err := cc.expr(a); err != nil {
			return err
		}
	}
	cc.emit(vm.NewIntStr(vm.CALLF, int64(len(c.Args)), strings.ToUpper(fn.Name)))
	return nil
}

// shortCircuitBinOp leaves the deciding operand on the stack, as Python
// does: the left value when it settles the result, the right otherwise.
func (cc *compileContext) shortCircuitBinOp(e *syntax.BinaryExpr) error {
	if err := cc.expr(e.X); err != nil {
		return err
	}
	endLabel := cc.newLabel()
	cc.emit(vm.NewOp(vm.DUP))
	if e.Op == syntax.AND {
		cc.emitBranch(vm.NewOp(vm.BRZ), endLabel)
	} else {
		cc.emitBranch(vm.NewOp(vm.BRNZ), endLabel)
	}
	cc.emit(vm.NewOp(vm.DROP))
	if err := cc.expr(e.Y); err != nil {
		return err
	}
	cc.emitLabel(endLabel)
	return nil
}

var binOps = map[syntax.Token]vm.Opcode{
	syntax.PLUS:       vm.ADD,
	syntax.MINUS:      vm.SUB,
	syntax.STAR:       vm.MULT,
	syntax.SLASH:      vm.DIV,
	syntax.SLASHSLASH: vm.IDIV,
	syntax.PERCENT:    vm.MOD,
	syntax.AMP:        vm.AND,
	syntax.PIPE:       vm.OR,
	syntax.LT:         vm.LT,
	syntax.GT:         vm.GT,
	syntax.LE:         vm.LE,
	syntax.GE:         vm.GE,
	syntax.EQL:        vm.EQ,
	syntax.NEQ:        vm.NE,
}

func (cc *compileContext) binOp(op syntax.Token) error {
	code, ok := binOps[op]
	if !ok {
		return fmt.Errorf("unhandled binary operation %s", op)
	}
	cc.emit(vm.NewOp(code))
	return nil
}

func (cc *compileContext) unary(e *syntax.UnaryExpr) error {
	if err := cc.expr(e.X); err != nil {
		return err
	}
	switch e.Op {
	case syntax.NOT:
		cc.emit(vm.NewOp(vm.NOT))
	case syntax.MINUS:
		cc.emit(vm.NewOp(vm.NEGATE))
	case syntax.PLUS:
	default:
		return fmt.Errorf("unhandled unary operation %s", e.Op)
	}
	return nil
}

// augmented maps x op= y onto the binary opcode.
var augmented = map[syntax.Token]vm.Opcode{
	syntax.PLUS_EQ:       vm.ADD,
	syntax.MINUS_EQ:      vm.SUB,
	syntax.STAR_EQ:       vm.MULT,
	syntax.SLASH_EQ:      vm.DIV,
	syntax.SLASHSLASH_EQ: vm.IDIV,
	syntax.PERCENT_EQ:    vm.MOD,
}

func (cc *compileContext) assign(op syntax.Token, lhs syntax.Expr, rhs syntax.Expr) error {
	id, ok := lhs.(*syntax.Ident)
	if !ok {
		return fmt.Errorf("assign: unhandled LHS expr type %T", lhs)
	}
	if id.Name == "True" || id.Name == "False" {
		return fmt.Errorf("reassigning `%s` is not allowed", id.Name)
	}
	if op != syntax.EQ {
		code, ok := augmented[op]
		if !ok {
			return fmt.Errorf("%s assignments are unsupported", op)
		}
		cc.emit(vm.NewStr(vm.LOAD, id.Name))
		if err := cc.expr(rhs); err != nil {
			return err
		}
		cc.emit(vm.NewOp(code))
	} else if err := cc.expr(rhs); err != nil {
		return err
	}
	cc.emit(vm.NewStr(vm.STORE, id.Name))
	return nil
}

func unparen(e syntax.Expr) syntax.Expr {
	if p, ok := e.(*syntax.ParenExpr); ok {
		return unparen(p.X)
	}
	return e
}
