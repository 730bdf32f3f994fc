package isa

import (
	"github.com/rainco77/evochora-sub013/artifact"
	"github.com/rainco77/evochora-sub013/env"
	"github.com/rainco77/evochora-sub013/organism"
)

// Context is passed to a planned Instruction's Execute closure (spec.md
// §4.9/§4.10): the organism being stepped, the shared Environment, and a
// debug flag mirroring the organism's logging-enabled state.
type Context struct {
	Organism *organism.Organism
	Env      *env.Environment
	Debug    bool
}

// Instruction is the concrete, planner-produced value the VM executes. It
// carries the coordinates it will write to (if any), for the simulation
// kernel's conflict resolution, and an Execute closure capturing its decoded
// operands.
type Instruction struct {
	OpcodeID             OpcodeID
	Mnemonic             string
	Length               int // cells occupied, including the opcode cell
	RawArgs              []int32
	EnvironmentModifying bool
	ControlFlow          bool
	Targets              []env.Coord // only set when EnvironmentModifying

	Execute func(ctx *Context, art *artifact.ProgramArtifact) error

	// Conflict-resolution bookkeeping, filled in by the simulation kernel.
	ExecutedInTick bool
	ConflictStatus ConflictStatus
}

// ConflictStatus records how a planned instruction fared in conflict
// resolution (spec.md §4.11).
type ConflictStatus int

const (
	NotApplicable ConflictStatus = iota
	WonExecution
	LostLowerIDWon
	LostOtherReason
)

func (s ConflictStatus) String() string {
	switch s {
	case NotApplicable:
		return "NOT_APPLICABLE"
	case WonExecution:
		return "WON_EXECUTION"
	case LostLowerIDWon:
		return "LOST_LOWER_ID_WON"
	case LostOtherReason:
		return "LOST_OTHER_REASON"
	default:
		return "UNKNOWN"
	}
}

// Planner reads an opcode's argument cells starting at the organism's IP and
// builds a concrete Instruction. It performs no environment mutation.
type Planner func(o *organism.Organism, e *env.Environment) (*Instruction, error)

// CostFunc computes the energy cost of executing a planned instruction.
type CostFunc func(o *organism.Organism, e *env.Environment, rawArgs []int32) int64
