package vm

import (
	"fmt"
	"strconv"
	"strings"
	"text/scanner"
	"unicode"
)

type TokenKind int

const (
	TokInt TokenKind = iota
	TokFloat
	TokString
	TokIdent
	TokPunct
)

type Token struct {
	Kind TokenKind
	Text string // string tokens are unquoted
}

// Value converts a literal token into a Value. Identifiers and punctuation
// become strings.
func (t Token) Value() Value {
	switch t.Kind {
	case TokInt:
		if i, err := strconv.ParseInt(t.Text, 10, 64); err == nil {
			return IntValue(i)
		}
	case TokFloat:
		if f, err := strconv.ParseFloat(t.Text, 64); err == nil {
			return FloatValue(f)
		}
	}
	return StrValue(t.Text)
}

// Tokenizer splits a raw line into typed tokens. It is consumed by INPUT
// handling and by the text assembler.
type Tokenizer interface {
	Tokenize(line string) ([]Token, error)
}

// LineTokenizer is the default Tokenizer. A minus sign directly before a
// number folds into the number.
type LineTokenizer struct{}

func (LineTokenizer) Tokenize(line string) ([]Token, error) {
	var s scanner.Scanner
	s.Init(strings.NewReader(line))
	s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats | scanner.ScanStrings
	s.IsIdentRune = func(ch rune, i int) bool {
		return ch == '_' || ch == '$' || unicode.IsLetter(ch) || (unicode.IsDigit(ch) && i > 0)
	}
	var scanErr error
	s.Error = func(s *scanner.Scanner, msg string) {
		if scanErr == nil {
			scanErr = fmt.Errorf("column %d: %s", s.Position.Column, msg)
		}
	}
	var out []Token
	negate := false
	for tok := s.Scan(); tok != scanner.EOF; tok = s.Scan() {
		text := s.TokenText()
		var t Token
		switch tok {
		case scanner.Int:
			t = Token{Kind: TokInt, Text: text}
		case scanner.Float:
			t = Token{Kind: TokFloat, Text: text}
		case scanner.String:
			u, err := strconv.Unquote(text)
			if err != nil {
				return nil, fmt.Errorf("bad string %s: %w", text, err)
			}
			t = Token{Kind: TokString, Text: u}
		case scanner.Ident:
			t = Token{Kind: TokIdent, Text: text}
		default:
			if tok == '-' && !negate {
				negate = true
				continue
			}
			t = Token{Kind: TokPunct, Text: text}
		}
		if negate {
			if t.Kind == TokInt || t.Kind == TokFloat {
				t.Text = "-" + t.Text
			} else {
				out = append(out, Token{Kind: TokPunct, Text: "-"})
			}
			negate = false
		}
		out = append(out, t)
	}
	if negate {
		out = append(out, Token{Kind: TokPunct, Text: "-"})
	}
	if scanErr != nil {
		return nil, scanErr
	}
	return out, nil
}
