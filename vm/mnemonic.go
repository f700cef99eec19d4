package vm

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseMnemonics builds an unlinked stream from instructions written by
// name, separated by semicolons:
//
//	STRING "X = "; LOAD X; PRINT; PRINTNL
//
// An integer becomes the int operand, a float the double operand and a
// string or identifier the string operand. Branch opcodes take their
// address from the int operand.
func ParseMnemonics(name, src string, tok Tokenizer) (*Bytecode, error) {
	if tok == nil {
		tok = LineTokenizer{}
	}
	b := NewBytecode(name)
	for i, part := range splitStatements(src) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		toks, err := tok.Tokenize(part)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i+1, err)
		}
		in, err := mnemonic(toks)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i+1, err)
		}
		b.Append(in)
	}
	return b, nil
}

// splitStatements splits on semicolons outside quoted strings.
func splitStatements(src string) []string {
	var out []string
	quoted := false
	start := 0
	for i := 0; i < len(src); i++ {
		switch src[i] {
		case '\\':
			if quoted {
				i++
			}
		case '"':
			quoted = !quoted
		case ';':
			if !quoted {
				out = append(out, src[start:i])
				start = i + 1
			}
		}
	}
	return append(out, src[start:])
}

func mnemonic(toks []Token) (*Instruction, error) {
	if len(toks) == 0 || toks[0].Kind != TokIdent {
		return nil, fmt.Errorf("expected an opcode name")
	}
	op, ok := Lookup(strings.ToUpper(toks[0].Text))
	if !ok {
		return nil, fmt.Errorf("unknown opcode %s", toks[0].Text)
	}
	in := NewOp(op)
	for _, t := range toks[1:] {
		switch t.Kind {
		case TokPunct:
			if t.Text != "," {
				return nil, fmt.Errorf("unexpected %q", t.Text)
			}
		case TokInt:
			if in.HasInt {
				return nil, fmt.Errorf("%s: more than one integer operand", op)
			}
			v, err := strconv.ParseInt(t.Text, 10, 64)
			if err != nil {
				return nil, err
			}
			in.SetInt(v)
		case TokFloat:
			if in.HasDouble {
				return nil, fmt.Errorf("%s: more than one double operand", op)
			}
			v, err := strconv.ParseFloat(t.Text, 64)
			if err != nil {
				return nil, err
			}
			in.HasDouble, in.Double = true, v
		default:
			if in.HasStr {
				return nil, fmt.Errorf("%s: more than one string operand", op)
			}
			in.HasStr, in.Str = true, t.Text
		}
	}
	return in, nil
}
