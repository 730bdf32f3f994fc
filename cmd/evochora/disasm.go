package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/rainco77/evochora-sub013/artifact"
	"github.com/rainco77/evochora-sub013/compiler"
)

var disasmCmd = &cobra.Command{
	Use:   "disasm <artifact.json>",
	Short: "Disassemble a compiled ProgramArtifact to readable mnemonic text",
	Args:  cobra.ExactArgs(1),
	RunE:  runDisasm,
}

func runDisasm(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return errors.Wrapf(err, "reading %s", args[0])
	}
	art := artifact.New("")
	if err := art.UnmarshalJSON(data); err != nil {
		return errors.Wrap(err, "decoding artifact")
	}
	cmd.Print(compiler.Disassemble(art))
	return nil
}
