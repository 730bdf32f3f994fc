package preprocess_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rainco77/evochora-sub013/internal/diag"
	"github.com/rainco77/evochora-sub013/internal/preprocess"
	"github.com/rainco77/evochora-sub013/internal/token"
)

type memLoader map[string]string

func (m memLoader) ReadFile(path string) (string, error) {
	src, ok := m[path]
	if !ok {
		return "", errNotFound(path)
	}
	return src, nil
}

type errNotFound string

func (e errNotFound) Error() string { return "file not found: " + string(e) }

func TestExpandInclude(t *testing.T) {
	files := memLoader{
		"main.s": ".INCLUDE \"lib.s\"\nNOP\n",
		"lib.s":  "NOP\n",
	}
	var d diag.Engine
	p := preprocess.New(files, &d)
	toks := p.Expand("main.s")
	require.False(t, d.HasErrors())

	require.Equal(t, token.Directive, toks[0].Kind)
	require.Equal(t, ".PUSH_CTX", toks[0].Text)
	require.Equal(t, token.String, toks[1].Kind)
	require.Equal(t, "lib.s", toks[1].Text)
}

func TestIncludeCycleFails(t *testing.T) {
	files := memLoader{
		"a.s": ".INCLUDE \"b.s\"\n",
		"b.s": ".INCLUDE \"a.s\"\n",
	}
	var d diag.Engine
	p := preprocess.New(files, &d)
	p.Expand("a.s")
	require.True(t, d.HasErrors())
}

func TestIncludeFileNotFound(t *testing.T) {
	files := memLoader{"main.s": ".INCLUDE \"missing.s\"\n"}
	var d diag.Engine
	p := preprocess.New(files, &d)
	p.Expand("main.s")
	require.True(t, d.HasErrors())
}
