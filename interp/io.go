package interp

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/bytebasic-dev/bytebasic/status"
	"github.com/bytebasic-dev/bytebasic/vm"
)

// ioStatus maps collaborator errors onto status codes, keeping the
// original error as the cause.
func ioStatus(err error) error {
	if err == nil {
		return nil
	}
	var st *status.Status
	if errors.As(err, &st) {
		return st
	}
	if errors.Is(err, io.EOF) {
		return status.Wrap(status.EndOfFile, err)
	}
	return status.Wrap(status.IOError, err)
}

func handle(m *Machine, in *vm.Instruction) (FileHandle, error) {
	id := ConsoleID
	if in.HasInt {
		id = int(in.Int)
	}
	return m.Session.File(id)
}

func opOpen(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	name, err := stringOperand(in)
	if err != nil {
		return ContinueStep, err
	}
	vals, err := f.PopN(2)
	if err != nil {
		return ContinueStep, err
	}
	mode, err := ParseFileMode(vals[1].String())
	if err != nil {
		return ContinueStep, err
	}
	id, err := m.Session.OpenFile(vals[0].String(), mode)
	if err != nil {
		return ContinueStep, err
	}
	return ContinueStep, f.Symbols.Insert(name, vm.IntValue(id))
}

func opClose(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	var id int
	if in.HasInt {
		id = int(in.Int)
	} else {
		v, err := f.Pop()
		if err != nil {
			return ContinueStep, err
		}
		n, err := indexInt(v)
		if err != nil {
			return ContinueStep, err
		}
		id = n
	}
	return ContinueStep, m.Session.CloseFile(id)
}

func opPrint(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	h, err := handle(m, in)
	if err != nil {
		return ContinueStep, err
	}
	text := "\n"
	if in.Op == vm.PRINT {
		v, err := f.Pop()
		if err != nil {
			return ContinueStep, err
		}
		text = v.String()
	}
	return ContinueStep, ioStatus(h.Write(text))
}

// opInput reads a line into a variable. INPUT stores the line's single
// literal token as a typed value; LINPUT stores the raw text.
func opInput(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	name, err := stringOperand(in)
	if err != nil {
		return ContinueStep, err
	}
	h, err := handle(m, in)
	if err != nil {
		return ContinueStep, err
	}
	line, err := h.ReadLine()
	if err != nil {
		return ContinueStep, ioStatus(err)
	}
	var v vm.Value = vm.StrValue(line)
	if in.Op == vm.INPUT {
		v, err = inputValue(m.Tokenizer, line)
		if err != nil {
			return ContinueStep, err
		}
	}
	return ContinueStep, f.Symbols.Insert(name, v)
}

func inputValue(tok vm.Tokenizer, line string) (vm.Value, error) {
	if tok == nil {
		tok = vm.LineTokenizer{}
	}
	toks, err := tok.Tokenize(line)
	if err != nil {
		return nil, status.Wrap(status.Syntax, err, line)
	}
	if len(toks) == 1 && toks[0].Kind != vm.TokPunct {
		switch toks[0].Kind {
		case vm.TokIdent:
			switch strings.ToUpper(toks[0].Text) {
			case "TRUE":
				return vm.BoolTrue, nil
			case "FALSE":
				return vm.BoolFalse, nil
			}
		}
		return toks[0].Value(), nil
	}
	return vm.StrValue(strings.TrimSpace(line)), nil
}

func opSeek(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	h, err := handle(m, in)
	if err != nil {
		return ContinueStep, err
	}
	v, err := f.Pop()
	if err != nil {
		return ContinueStep, err
	}
	pos, err := indexInt(v)
	if err != nil {
		return ContinueStep, err
	}
	return ContinueStep, ioStatus(h.SeekTo(int64(pos)))
}

func opEOF(ctx context.Context, m *Machine, f *Frame, in *vm.Instruction) (StepResult, error) {
	h, err := handle(m, in)
	if err != nil {
		return ContinueStep, err
	}
	return ContinueStep, f.Push(vm.BoolValue(h.EOF()))
}
