package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rainco77/evochora-sub013/internal/ast"
	"github.com/rainco77/evochora-sub013/internal/diag"
	"github.com/rainco77/evochora-sub013/internal/lexer"
	"github.com/rainco77/evochora-sub013/internal/parser"
)

func parse(t *testing.T, src string) (*ast.File, *diag.Engine) {
	t.Helper()
	var d diag.Engine
	toks := lexer.New("main.s", src, &d).Tokenize()
	f := parser.New("main.s", toks, &d).Parse()
	return f, &d
}

func TestParseSimpleInstruction(t *testing.T) {
	f, d := parse(t, "SETI %DR0, DATA:42\n")
	require.False(t, d.HasErrors())
	require.Len(t, f.Items, 1)
	inst, ok := f.Items[0].(*ast.Instruction)
	require.True(t, ok)
	require.Equal(t, "SETI", inst.Mnemonic)
	require.Len(t, inst.Operands, 2)
	require.IsType(t, &ast.Register{}, inst.Operands[0])
	require.IsType(t, &ast.TypedLiteral{}, inst.Operands[1])
}

func TestParseLabelAndJump(t *testing.T) {
	f, d := parse(t, "START: JMPI START\n")
	require.False(t, d.HasErrors())
	require.Len(t, f.Items, 2)
	require.IsType(t, &ast.Label{}, f.Items[0])
	inst := f.Items[1].(*ast.Instruction)
	require.Equal(t, "JMPI", inst.Mnemonic)
}

func TestParseProcedureWithParams(t *testing.T) {
	src := ".PROC INC EXPORT WITH REF X\nADDR %DR0, 1\nRET\n.ENDP\n"
	f, d := parse(t, src)
	require.False(t, d.HasErrors())
	require.Len(t, f.Items, 1)
	proc := f.Items[0].(*ast.Procedure)
	require.Equal(t, "INC", proc.Name)
	require.Len(t, proc.Params, 1)
	require.Equal(t, ast.ParamRef, proc.Params[0].Kind)
	require.Len(t, proc.Body, 2)
}

func TestParseCallWithRefAndVal(t *testing.T) {
	f, d := parse(t, "CALL LIB.INC REF %DR1 VAL 5\n")
	require.False(t, d.HasErrors())
	inst := f.Items[0].(*ast.Instruction)
	require.Equal(t, "CALL", inst.Mnemonic)
	require.Equal(t, "LIB.INC", inst.Target.Name)
	require.Len(t, inst.RefArgs, 1)
	require.Len(t, inst.ValArgs, 1)
}

func TestParsePlaceWithWildcardAndRange(t *testing.T) {
	f, d := parse(t, ".PLACE ENERGY:10 AT *, 0..3\n")
	require.False(t, d.HasErrors())
	pl := f.Items[0].(*ast.Place)
	require.Equal(t, "ENERGY", pl.TypeName)
	require.Len(t, pl.Components, 2)
	require.True(t, pl.Components[0].Wildcard)
	require.EqualValues(t, 0, pl.Components[1].Lo)
	require.EqualValues(t, 3, pl.Components[1].Hi)
}

func TestUnknownDirectiveRecovers(t *testing.T) {
	f, d := parse(t, ".BOGUS foo\nNOP\n")
	require.True(t, d.HasErrors())
	require.Len(t, f.Items, 1)
	require.IsType(t, &ast.Instruction{}, f.Items[0])
}
