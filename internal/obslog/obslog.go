// Package obslog configures the module's one structured logger and supplies
// the field-naming convention every component that logs (the simulation
// kernel, the CLI) shares, so a log line from sim.Kernel and one from
// cmd/evochora read as part of the same stream.
//
// The teacher has no structured logging at all (github.com/db47h/ngaro's
// vm.Option only ever wires up plain io.Writer streams for VM input/output,
// vm/vm.go). This package is adopted wholesale from Consensys-go-corset's
// manner instead (pkg/cmd/corset/debug.go's `log.SetLevel(log.DebugLevel)`
// under a `-v`/`--debug` flag): a package-level *logrus.Logger configured
// once at startup, passed down as a *logrus.Entry everywhere else the way
// vm.Instance and sim.Kernel already accept one via their own WithLogger
// options.
package obslog

import (
	"github.com/sirupsen/logrus"
)

// New builds the module's root logger. verbose raises the level to Debug;
// otherwise the logger stays at Info, matching Consensys-go-corset's
// `-v`/`--debug`-gated `log.SetLevel` convention.
func New(verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}

// ForTick returns an Entry pre-populated with the tick field, the base
// context every per-tick log line in sim.Kernel carries.
func ForTick(log *logrus.Entry, tick uint64) *logrus.Entry {
	return log.WithField("tick", tick)
}

// ForOrganism extends entry with the organism_id and program_id fields
// every organism-scoped log line carries (spec.md §6,
// InstructionExecutionData's debug-indexer audience).
func ForOrganism(entry *logrus.Entry, organismID uint64, programID string) *logrus.Entry {
	return entry.WithField("organism_id", organismID).WithField("program_id", programID)
}
