package vm

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Text assembly directives. A stream is written as its string pool, its
// label map and then packed instructions:
//
//	.STRING "text", id
//	.MAP "LABEL", address
//	.CODE opcode, intFlag [intVal], dblFlag [dblVal], strFlag [strId] [, opcode, ...]
//
// Branch-flagged instructions carry opcode+BranchFlag. .NAME and .FLAGS
// record the stream name and its linked/protected/popReturn bits.
const (
	dirName   = ".NAME"
	dirFlags  = ".FLAGS"
	dirString = ".STRING"
	dirMap    = ".MAP"
	dirCode   = ".CODE"

	flagLinked    = 1
	flagProtected = 2
	flagPopReturn = 4

	instructionsPerLine = 4
)

// Disassemble writes b in the text assembly format.
func (b *Bytecode) Disassemble(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s %s\n", dirName, strconv.Quote(b.Name))
	flags := 0
	if b.Linked {
		flags |= flagLinked
	}
	if b.Protected {
		flags |= flagProtected
	}
	if b.PopReturn {
		flags |= flagPopReturn
	}
	fmt.Fprintf(bw, "%s %d\n", dirFlags, flags)

	pool := make(map[string]int)
	for _, in := range b.Instructions {
		if !in.HasStr {
			continue
		}
		if _, ok := pool[in.Str]; ok {
			continue
		}
		id := len(pool)
		pool[in.Str] = id
		fmt.Fprintf(bw, "%s %s, %d\n", dirString, strconv.Quote(in.Str), id)
	}

	labels := make([]Linkage, 0, len(b.Labels))
	for _, l := range b.Labels {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].Address != labels[j].Address {
			return labels[i].Address < labels[j].Address
		}
		return labels[i].Label < labels[j].Label
	})
	for _, l := range labels {
		fmt.Fprintf(bw, "%s %s, %d\n", dirMap, strconv.Quote(l.Label), l.Address)
	}

	for start := 0; start < len(b.Instructions); start += instructionsPerLine {
		end := min(start+instructionsPerLine, len(b.Instructions))
		parts := make([]string, 0, end-start)
		for _, in := range b.Instructions[start:end] {
			parts = append(parts, encodeInstruction(in, pool))
		}
		fmt.Fprintf(bw, "%s %s\n", dirCode, strings.Join(parts, ", "))
	}
	return bw.Flush()
}

func encodeInstruction(in *Instruction, pool map[string]int) string {
	op := int(in.Op)
	if in.Branch {
		op += BranchFlag
	}
	fields := []string{strconv.Itoa(op)}
	if in.HasInt {
		fields = append(fields, "1 "+strconv.FormatInt(in.Int, 10))
	} else {
		fields = append(fields, "0")
	}
	if in.HasDouble {
		fields = append(fields, "1 "+strconv.FormatFloat(in.Double, 'g', -1, 64))
	} else {
		fields = append(fields, "0")
	}
	if in.HasStr {
		fields = append(fields, "1 "+strconv.Itoa(pool[in.Str]))
	} else {
		fields = append(fields, "0")
	}
	return strings.Join(fields, ", ")
}

// Assemble reads the text assembly format. Every malformed line is
// reported, not just the first.
func Assemble(r io.Reader, tok Tokenizer) (*Bytecode, error) {
	if tok == nil {
		tok = LineTokenizer{}
	}
	a := &assembler{
		b:    NewBytecode(""),
		tok:  tok,
		pool: make(map[int64]string),
	}
	var errs *multierror.Error
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if err := a.line(sc.Text()); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("line %d: %w", lineNo, err))
		}
	}
	if err := sc.Err(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	if !a.sawFlags && len(a.b.Labels) > 0 {
		a.b.Linked = true
	}
	return a.b, nil
}

type assembler struct {
	b        *Bytecode
	tok      Tokenizer
	pool     map[int64]string
	sawFlags bool
}

func (a *assembler) line(text string) error {
	text = strings.TrimSpace(text)
	if text == "" || strings.HasPrefix(text, ";") || strings.HasPrefix(text, "//") {
		return nil
	}
	directive, rest, _ := strings.Cut(text, " ")
	toks, err := a.tok.Tokenize(rest)
	if err != nil {
		return err
	}
	switch strings.ToUpper(directive) {
	case dirName:
		if len(toks) != 1 || toks[0].Kind != TokString {
			return fmt.Errorf("%s expects a quoted name", dirName)
		}
		a.b.Name = toks[0].Text
	case dirFlags:
		n, err := expectInts(toks, 1)
		if err != nil {
			return err
		}
		a.sawFlags = true
		a.b.Linked = n[0]&flagLinked != 0
		a.b.Protected = n[0]&flagProtected != 0
		a.b.PopReturn = n[0]&flagPopReturn != 0
	case dirString:
		s, id, err := stringAndInt(toks)
		if err != nil {
			return fmt.Errorf("%s: %w", dirString, err)
		}
		a.pool[id] = s
	case dirMap:
		s, addr, err := stringAndInt(toks)
		if err != nil {
			return fmt.Errorf("%s: %w", dirMap, err)
		}
		a.b.Labels[s] = Linkage{Label: s, Address: int(addr)}
	case dirCode:
		return a.code(toks)
	default:
		return fmt.Errorf("unknown directive %q", directive)
	}
	return nil
}

// code decodes packed instructions. Fields are comma separated; each
// instruction is an opcode followed by three flag fields.
func (a *assembler) code(toks []Token) error {
	var fields [][]Token
	var cur []Token
	for _, t := range toks {
		if t.Kind == TokPunct && t.Text == "," {
			fields = append(fields, cur)
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	fields = append(fields, cur)
	if len(fields)%4 != 0 {
		return fmt.Errorf("%s: %d fields is not a whole number of instructions", dirCode, len(fields))
	}
	for i := 0; i < len(fields); i += 4 {
		in, err := a.instruction(fields[i : i+4])
		if err != nil {
			return fmt.Errorf("%s instruction %d: %w", dirCode, i/4+1, err)
		}
		a.b.Append(in)
	}
	return nil
}

func (a *assembler) instruction(f [][]Token) (*Instruction, error) {
	op, err := expectInts(f[0], 1)
	if err != nil {
		return nil, fmt.Errorf("opcode: %w", err)
	}
	in := &Instruction{}
	code := op[0]
	if code >= BranchFlag {
		in.Branch = true
		code -= BranchFlag
	}
	in.Op = Opcode(code)
	if code < 0 || !in.Op.Valid() {
		return nil, fmt.Errorf("unknown opcode %d", op[0])
	}

	present, t, err := flagged(f[1])
	if err != nil {
		return nil, fmt.Errorf("integer operand: %w", err)
	}
	if present {
		if t.Kind != TokInt {
			return nil, fmt.Errorf("integer operand %q", t.Text)
		}
		v, _ := strconv.ParseInt(t.Text, 10, 64)
		in.SetInt(v)
	}

	present, t, err = flagged(f[2])
	if err != nil {
		return nil, fmt.Errorf("double operand: %w", err)
	}
	if present {
		if t.Kind != TokInt && t.Kind != TokFloat {
			return nil, fmt.Errorf("double operand %q", t.Text)
		}
		v, err := strconv.ParseFloat(t.Text, 64)
		if err != nil {
			return nil, err
		}
		in.HasDouble, in.Double = true, v
	}

	present, t, err = flagged(f[3])
	if err != nil {
		return nil, fmt.Errorf("string operand: %w", err)
	}
	if present {
		id, err := strconv.ParseInt(t.Text, 10, 64)
		if err != nil || t.Kind != TokInt {
			return nil, fmt.Errorf("string id %q", t.Text)
		}
		s, ok := a.pool[id]
		if !ok {
			return nil, fmt.Errorf("undefined string id %d", id)
		}
		in.HasStr, in.Str = true, s
	}
	return in, nil
}

// flagged decodes "0" or "1 value".
func flagged(f []Token) (bool, Token, error) {
	if len(f) == 0 || f[0].Kind != TokInt {
		return false, Token{}, fmt.Errorf("missing presence flag")
	}
	switch f[0].Text {
	case "0":
		if len(f) != 1 {
			return false, Token{}, fmt.Errorf("value after absent flag")
		}
		return false, Token{}, nil
	case "1":
		if len(f) != 2 {
			return false, Token{}, fmt.Errorf("expected one value after flag")
		}
		return true, f[1], nil
	}
	return false, Token{}, fmt.Errorf("bad presence flag %q", f[0].Text)
}

func expectInts(toks []Token, n int) ([]int, error) {
	if len(toks) != n {
		return nil, fmt.Errorf("expected %d integer(s), got %d tokens", n, len(toks))
	}
	out := make([]int, n)
	for i, t := range toks {
		if t.Kind != TokInt {
			return nil, fmt.Errorf("expected integer, got %q", t.Text)
		}
		v, err := strconv.ParseInt(t.Text, 10, 64)
		if err != nil {
			return nil, err
		}
		out[i] = int(v)
	}
	return out, nil
}

func stringAndInt(toks []Token) (string, int64, error) {
	if len(toks) != 3 || toks[0].Kind != TokString || toks[1].Text != "," || toks[2].Kind != TokInt {
		return "", 0, fmt.Errorf("expected \"text\", number")
	}
	n, err := strconv.ParseInt(toks[2].Text, 10, 64)
	if err != nil {
		return "", 0, err
	}
	return toks[0].Text, n, nil
}
