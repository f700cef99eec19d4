package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLineTokenizer(t *testing.T) {
	toks, err := LineTokenizer{}.Tokenize(`X$ = -12, 3.5 "a b" - Y`)
	require.NoError(t, err)
	require.Equal(t, []Token{
		{Kind: TokIdent, Text: "X$"},
		{Kind: TokPunct, Text: "="},
		{Kind: TokInt, Text: "-12"},
		{Kind: TokPunct, Text: ","},
		{Kind: TokFloat, Text: "3.5"},
		{Kind: TokString, Text: "a b"},
		{Kind: TokPunct, Text: "-"},
		{Kind: TokIdent, Text: "Y"},
	}, toks)
	require.Equal(t, IntValue(-12), toks[2].Value())
	require.Equal(t, StrValue("Y"), toks[7].Value())
}

func TestLineTokenizerUnterminatedString(t *testing.T) {
	_, err := LineTokenizer{}.Tokenize(`"open`)
	require.Error(t, err)
}
