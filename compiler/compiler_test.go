package compiler_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rainco77/evochora-sub013/compiler"
	"github.com/rainco77/evochora-sub013/internal/diag"
)

// mapLoader is an in-memory compiler.Loader test double, keyed by file name.
type mapLoader map[string]string

func (m mapLoader) ReadFile(path string) (string, error) {
	src, ok := m[path]
	if !ok {
		return "", fmt.Errorf("file not found: %s", path)
	}
	return src, nil
}

func TestCompileSingleFileProducesArtifactWithMachineCode(t *testing.T) {
	loader := mapLoader{
		"main.s": "START: SETI %DR0, 5\nJMPI START\n",
	}
	res, err := compiler.Compile("main.s", loader, compiler.Options{Dims: 2})
	require.NoError(t, err)
	require.NotEmpty(t, res.Artifact.MachineCodeLayout)
	require.Contains(t, res.Artifact.LabelAddressToName, 0)
	require.Equal(t, "main.s#START", res.Artifact.LabelAddressToName[0])
}

func TestCompileDiscoversRequiredFilesTransitively(t *testing.T) {
	loader := mapLoader{
		"main.s": ".REQUIRE \"lib.s\" AS LIB\nCALL LIB.HELPER\n",
		"lib.s":  ".PROC HELPER EXPORT\nRET\n.ENDP\n",
	}
	res, err := compiler.Compile("main.s", loader, compiler.Options{Dims: 1})
	require.NoError(t, err)
	require.Contains(t, res.Artifact.Sources, "main.s")
	require.Contains(t, res.Artifact.Sources, "lib.s")
	require.Contains(t, res.Artifact.ProcNameToParamNames, "lib.s#HELPER")
}

func TestCompileReturnsCompilationFailedOnSemanticError(t *testing.T) {
	loader := mapLoader{
		"main.s": "JMPI UNDEFINED_LABEL\n",
	}
	_, err := compiler.Compile("main.s", loader, compiler.Options{Dims: 1})
	require.Error(t, err)

	var failure *diag.CompilationFailed
	require.ErrorAs(t, err, &failure)
	require.Equal(t, "semantic analysis", failure.Phase)
	require.NotEmpty(t, failure.Diagnostics)
}
