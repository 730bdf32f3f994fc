package symtab_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rainco77/evochora-sub013/internal/symtab"
)

func TestDefineAndResolve(t *testing.T) {
	tbl := symtab.NewTable()
	ok := tbl.Define(symtab.Root, symtab.Symbol{Name: "START", Kind: symtab.Label, File: "main.s"})
	require.True(t, ok)

	dup := tbl.Define(symtab.Root, symtab.Symbol{Name: "start", Kind: symtab.Label, File: "main.s"})
	require.False(t, dup, "duplicate in same scope+file must fail")

	sym, ok := tbl.Resolve(symtab.Root, "main.s", "Start")
	require.True(t, ok)
	require.Equal(t, symtab.Label, sym.Kind)
}

func TestResolveWalksToParent(t *testing.T) {
	tbl := symtab.NewTable()
	tbl.Define(symtab.Root, symtab.Symbol{Name: "OUTER", Kind: symtab.Constant, File: "main.s"})
	child := tbl.NewScope(symtab.Root)

	sym, ok := tbl.Resolve(child, "main.s", "OUTER")
	require.True(t, ok)
	require.Equal(t, symtab.Constant, sym.Kind)
}

func TestCrossFileAliasRequiresExport(t *testing.T) {
	tbl := symtab.NewTable()
	tbl.Define(symtab.Root, symtab.Symbol{Name: "INC", Kind: symtab.Procedure, File: "lib.s", Exported: false})
	tbl.DefineAlias(symtab.Root, "main.s", "LIB", "lib.s")

	_, ok := tbl.ResolveCrossFile("main.s", "LIB", "INC")
	require.False(t, ok, "non-exported procedures must not be visible cross-file")
}

func TestCrossFileAliasResolvesWhenExported(t *testing.T) {
	tbl := symtab.NewTable()
	tbl.Define(symtab.Root, symtab.Symbol{Name: "INC", Kind: symtab.Procedure, File: "lib.s", Exported: true})
	tbl.DefineAlias(symtab.Root, "main.s", "LIB", "lib.s")

	sym, ok := tbl.ResolveCrossFile("main.s", "LIB", "INC")
	require.True(t, ok)
	require.True(t, sym.Exported)
}

func TestResolveBySuffixFallback(t *testing.T) {
	tbl := symtab.NewTable()
	tbl.Define(symtab.Root, symtab.Symbol{Name: "INC", Kind: symtab.Procedure, File: "/abs/project/lib.s", Exported: true})
	tbl.DefineAlias(symtab.Root, "main.s", "LIB", "project/lib.s")

	sym, ok := tbl.ResolveBySuffix("main.s", "LIB", "INC")
	require.True(t, ok)
	require.Equal(t, "/abs/project/lib.s", sym.File)
}
