package semantics_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rainco77/evochora-sub013/internal/ast"
	"github.com/rainco77/evochora-sub013/internal/diag"
	"github.com/rainco77/evochora-sub013/internal/lexer"
	"github.com/rainco77/evochora-sub013/internal/parser"
	"github.com/rainco77/evochora-sub013/internal/semantics"
)

func analyzeSingle(t *testing.T, src string) *diag.Engine {
	t.Helper()
	return analyzeMulti(t, map[string]string{"main.s": src})
}

func analyzeMulti(t *testing.T, srcs map[string]string) *diag.Engine {
	t.Helper()
	var d diag.Engine
	a := semantics.New(&d)
	asts := map[string]*ast.File{}
	for file, src := range srcs {
		toks := lexer.New(file, src, &d).Tokenize()
		f := parser.New(file, toks, &d).Parse()
		f.Name = file
		asts[file] = f
		a.CollectFile(f)
	}
	for _, f := range asts {
		a.AnalyzeFile(f)
	}
	return &d
}

func TestAnalyzeValidProgram(t *testing.T) {
	d := analyzeSingle(t, "START: SETI %DR0, DATA:1\nADDR %DR0, 1\nJMPI START\n")
	require.False(t, d.HasErrors())
}

func TestAnalyzeReportsArityMismatch(t *testing.T) {
	d := analyzeSingle(t, "SETI %DR0\n")
	require.True(t, d.HasErrors())
}

func TestAnalyzeReportsUnresolvedLabel(t *testing.T) {
	d := analyzeSingle(t, "JMPI NOWHERE\n")
	require.True(t, d.HasErrors())
}

func TestAnalyzeReportsOutOfRangeLocationRegister(t *testing.T) {
	d := analyzeSingle(t, "SEEK %LR9, 1|0\n")
	require.True(t, d.HasErrors())
}

func TestAnalyzeProcedureBodyResolvesLabelsInScope(t *testing.T) {
	src := ".PROC INC EXPORT WITH REF X\nLOOP: ADDR %DR0, 1\nIFR %DR0, %DR0\nJMPI LOOP\nRET\n.ENDP\n"
	d := analyzeSingle(t, src)
	require.False(t, d.HasErrors())
}

func TestAnalyzeCrossFileCallRequiresExport(t *testing.T) {
	lib := ".PROC HIDDEN WITH VAL X\nRET\n.ENDP\n"
	main := ".REQUIRE \"lib.s\" AS LIB\nCALL LIB.HIDDEN VAL 1\n"
	d := analyzeMulti(t, map[string]string{"lib.s": lib, "main.s": main})
	require.True(t, d.HasErrors())
}

func TestAnalyzeCrossFileCallSucceedsWhenExported(t *testing.T) {
	lib := ".PROC VISIBLE EXPORT WITH VAL X\nRET\n.ENDP\n"
	main := ".REQUIRE \"lib.s\" AS LIB\nCALL LIB.VISIBLE VAL 1\n"
	d := analyzeMulti(t, map[string]string{"lib.s": lib, "main.s": main})
	require.False(t, d.HasErrors())
}
