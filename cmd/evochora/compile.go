package main

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/rainco77/evochora-sub013/compiler"
)

var (
	compileDims   int
	compileOutput string
)

var compileCmd = &cobra.Command{
	Use:   "compile <entry.s>",
	Short: "Compile one entry file (and everything it .REQUIREs) into a ProgramArtifact",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompile,
}

func init() {
	compileCmd.Flags().IntVar(&compileDims, "dims", 2, "world dimensionality every .ORG/.PLACE/vector must agree with")
	compileCmd.Flags().StringVarP(&compileOutput, "out", "o", "", "output path for the compiled artifact JSON (default: <entry>.json)")
}

func runCompile(cmd *cobra.Command, args []string) error {
	entryPath := args[0]
	loader := newFileLoader(entryPath)
	entryName := filepath.Base(entryPath)

	res, err := compiler.Compile(entryName, loader, compiler.Options{Dims: compileDims})
	if err != nil {
		return err
	}

	out := compileOutput
	if out == "" {
		out = entryPath + ".json"
	}
	data, err := res.Artifact.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "marshalling artifact")
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", out)
	}
	cmd.Printf("compiled %s -> %s (program %s)\n", entryPath, out, res.Artifact.ProgramID)
	return nil
}
