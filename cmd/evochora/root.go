// Command evochora is the CLI surface exercising the core compiler and
// simulation kernel: compile sources to a ProgramArtifact, disassemble one
// back to readable text, and run a simulation for a fixed number of ticks.
//
// The teacher's cmd/retro/main.go (github.com/db47h/ngaro) is a single
// flag-based entry point with no subcommands, since a Forth VM has exactly
// one thing to do (run an image). This module's compiler and simulator are
// two genuinely separate operations with different inputs, so the CLI is
// restructured around github.com/spf13/cobra subcommands, grounded in
// Consensys-go-corset's pkg/cmd (root.go's persistent-flag + subcommand
// registration pattern).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "evochora",
	Short: "Compile and run Evochora artificial-life programs",
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")
	rootCmd.AddCommand(compileCmd, disasmCmd, runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
