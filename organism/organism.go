// Package organism models the per-agent state the VM steps each tick:
// registers, stacks, instruction pointer and direction vector, and energy.
//
// This plays the role the teacher's vm.Instance (github.com/db47h/ngaro/vm/vm.go)
// plays for a single-program VM, but multiplied: the simulation hosts many
// concurrent Organisms sharing one Environment, so state that the teacher
// keeps as unexported Instance fields with package-level constants
// (portCount, dataSize, addressSize) is carried per-organism here, sized by
// the same kind of named constants.
package organism

import (
	"github.com/rainco77/evochora-sub013/env"
)

// Register file sizes. Named constants in the teacher's manner
// (vm.go: portCount, dataSize, addressSize).
const (
	NumDataRegisters        = 8
	NumProcRegisters        = 8
	NumFormalParamRegisters = 8
	NumLocationRegisters    = 4

	MaxDataStackDepth     = 64
	MaxCallStackDepth     = 32
	MaxLocationStackDepth = 32

	MaxOrganismEnergy = 1 << 20
)

// InstructionExecutionData captures one executed instruction for the host's
// debug indexer (spec.md §6, "Produced interfaces"). Only the most recent
// execution is retained; long-lived history is the host's job.
type InstructionExecutionData struct {
	OpcodeID           int
	RawArgs            []int
	EnergyCost         int
	RegisterValuesBefore []int32
}

// CallFrame is a single entry on the call stack: the return position and
// the direction vector that RET restores.
type CallFrame struct {
	ReturnIP env.Coord
	ReturnDV env.Coord
}

// Organism is one autonomous agent living in an Environment.
type Organism struct {
	ID        uint64
	ProgramID string

	IP env.Coord // instruction pointer
	DV env.Coord // direction vector, a unit vector (single axis +-1)

	DataRegisters        [NumDataRegisters]int32
	ProcRegisters        [NumProcRegisters]int32
	FormalParamRegisters [NumFormalParamRegisters]int32
	LocationRegisters    [NumLocationRegisters]env.Coord

	DataPointers []int32

	DataStack     []int32
	CallStack     []CallFrame
	LocationStack []env.Coord

	ER int64 // energy, 0 <= ER <= MaxOrganismEnergy

	ParentID  uint64
	BirthTick uint64

	Dead      bool
	DeathReason string

	InstructionFailed bool
	FailureReason     string
	SkipIPAdvance     bool

	LoggingEnabled bool

	LastInstructionExecution *InstructionExecutionData

	// PendingForkTarget/PendingForkDV record a FORK instruction's intent
	// (spec.md §4.9/§4.11): the simulation kernel, which owns the organism
	// id counter and the new-organism queue, consumes these right after the
	// FORK executes, queues the new organism for the end of the tick, and
	// clears both fields.
	PendingForkTarget env.Coord
	PendingForkDV     env.Coord
}

// New creates an Organism at the given placement with a fresh register file.
// dv must be a unit vector matching the Environment's dimensionality.
func New(id uint64, programID string, ip, dv env.Coord, er int64, parentID uint64, birthTick uint64) *Organism {
	o := &Organism{
		ID:        id,
		ProgramID: programID,
		IP:        ip.Clone(),
		DV:        dv.Clone(),
		ER:        er,
		ParentID:  parentID,
		BirthTick: birthTick,
	}
	if o.ER > MaxOrganismEnergy {
		o.ER = MaxOrganismEnergy
	}
	for i := range o.LocationRegisters {
		o.LocationRegisters[i] = make(env.Coord, len(ip))
	}
	return o
}

// IsDead reports whether the organism has transitioned to dead. Dead
// organisms are never re-planned (spec.md §3 invariant).
func (o *Organism) IsDead() bool {
	return o.Dead
}

// Kill marks the organism dead with the given reason, unless it is already
// dead (the first kill reason wins).
func (o *Organism) Kill(reason string) {
	if o.Dead {
		return
	}
	o.Dead = true
	o.DeathReason = reason
}

// ResetTickState clears the per-tick flags the VM's plan phase consults
// before planning the next instruction (spec.md §4.10, "the organism's
// tickState is reset").
func (o *Organism) ResetTickState() {
	o.InstructionFailed = false
	o.FailureReason = ""
	o.SkipIPAdvance = false
}

// PushData pushes v onto the data stack. Reports false (and sets
// InstructionFailed) if the stack is at MaxDataStackDepth.
func (o *Organism) PushData(v int32) bool {
	if len(o.DataStack) >= MaxDataStackDepth {
		o.InstructionFailed = true
		o.FailureReason = "data stack overflow"
		return false
	}
	o.DataStack = append(o.DataStack, v)
	return true
}

// PopData pops the top of the data stack. Reports false (and sets
// InstructionFailed) if the stack is empty.
func (o *Organism) PopData() (int32, bool) {
	if len(o.DataStack) == 0 {
		o.InstructionFailed = true
		o.FailureReason = "data stack underflow"
		return 0, false
	}
	v := o.DataStack[len(o.DataStack)-1]
	o.DataStack = o.DataStack[:len(o.DataStack)-1]
	return v, true
}

// PushCall pushes a call frame. Reports false (and sets InstructionFailed) if
// the call stack is at MaxCallStackDepth.
func (o *Organism) PushCall(f CallFrame) bool {
	if len(o.CallStack) >= MaxCallStackDepth {
		o.InstructionFailed = true
		o.FailureReason = "call stack overflow"
		return false
	}
	o.CallStack = append(o.CallStack, f)
	return true
}

// PopCall pops the top call frame. Reports false (and sets
// InstructionFailed) if the call stack is empty.
func (o *Organism) PopCall() (CallFrame, bool) {
	if len(o.CallStack) == 0 {
		o.InstructionFailed = true
		o.FailureReason = "call stack underflow"
		return CallFrame{}, false
	}
	f := o.CallStack[len(o.CallStack)-1]
	o.CallStack = o.CallStack[:len(o.CallStack)-1]
	return f, true
}

// RegisterClass identifies which register file a Register operand addresses.
type RegisterClass int

const (
	ClassData RegisterClass = iota
	ClassProc
	ClassFormalParam
	ClassLocation
)

// GetDataLike returns the signed value of a data/proc/formal-param register
// by class and index. It panics on an out-of-range index; callers validate
// bounds during semantic analysis (spec.md §4.4, RegAnalysisHandler).
func (o *Organism) GetDataLike(class RegisterClass, idx int) int32 {
	switch class {
	case ClassData:
		return o.DataRegisters[idx]
	case ClassProc:
		return o.ProcRegisters[idx]
	case ClassFormalParam:
		return o.FormalParamRegisters[idx]
	default:
		panic("organism: GetDataLike called with a location register class")
	}
}

// SetDataLike stores v into a data/proc/formal-param register by class and index.
func (o *Organism) SetDataLike(class RegisterClass, idx int, v int32) {
	switch class {
	case ClassData:
		o.DataRegisters[idx] = v
	case ClassProc:
		o.ProcRegisters[idx] = v
	case ClassFormalParam:
		o.FormalParamRegisters[idx] = v
	default:
		panic("organism: SetDataLike called with a location register class")
	}
}
