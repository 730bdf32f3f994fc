package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rainco77/evochora-sub013/internal/diag"
	"github.com/rainco77/evochora-sub013/internal/lexer"
	"github.com/rainco77/evochora-sub013/internal/token"
)

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestTokenizeInstructionLine(t *testing.T) {
	var d diag.Engine
	l := lexer.New("main.s", "SETI %DR0, DATA:42\n", &d)
	toks := l.Tokenize()
	require.False(t, d.HasErrors())
	require.Equal(t, []token.Kind{
		token.Opcode, token.Register, token.Comma, token.Identifier,
		token.Colon, token.Number, token.Newline, token.EOF,
	}, kinds(toks))
}

func TestTokenizeDirectiveAndLabel(t *testing.T) {
	var d diag.Engine
	l := lexer.New("main.s", ".PROC FOO\nSTART: JMPI START\n", &d)
	toks := l.Tokenize()
	require.False(t, d.HasErrors())
	require.Equal(t, token.Directive, toks[0].Kind)
	require.Equal(t, ".PROC", toks[0].Text)
	require.Equal(t, token.Identifier, toks[1].Kind)
}

func TestTokenizeHexAndNegativeNumbers(t *testing.T) {
	var d diag.Engine
	l := lexer.New("main.s", "0x1F -7\n", &d)
	toks := l.Tokenize()
	require.False(t, d.HasErrors())
	require.EqualValues(t, 31, toks[0].Value)
	require.EqualValues(t, -7, toks[1].Value)
}

func TestUnterminatedStringIsDiagnosed(t *testing.T) {
	var d diag.Engine
	l := lexer.New("main.s", "\"hello\n", &d)
	l.Tokenize()
	require.True(t, d.HasErrors())
}

func TestIllegalCharacterIsDiagnosedAndSkipped(t *testing.T) {
	var d diag.Engine
	l := lexer.New("main.s", "NOP ; NOP\n", &d)
	toks := l.Tokenize()
	require.True(t, d.HasErrors())
	require.Equal(t, []token.Kind{token.Opcode, token.Opcode, token.Newline, token.EOF}, kinds(toks))
}
