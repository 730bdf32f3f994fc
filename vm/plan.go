package vm

import (
	"github.com/rainco77/evochora-sub013/env"
	"github.com/rainco77/evochora-sub013/isa"
	"github.com/rainco77/evochora-sub013/molecule"
	"github.com/rainco77/evochora-sub013/organism"
)

// Plan is the VM's plan phase (spec.md §4.10): it resets the organism's
// per-tick state, reads the opcode cell at its IP, and asks the isa
// registry's Planner to decode the instruction's operands into a concrete
// Instruction. Plan performs no environment mutation; the kernel collects
// every living organism's planned Instruction before any Execute runs, so
// that conflicting writes can be resolved first.
//
// This corresponds to the opcode dispatch at the top of the teacher's
// vm.Instance.Run loop (github.com/db47h/ngaro/vm/run.go), split out of
// execution because a single-program Forth VM has no concurrent planning
// step to perform.
func (i *Instance) Plan(o *organism.Organism, e *env.Environment) *isa.Instruction {
	o.ResetTickState()

	cell := e.GetMolecule(o.IP)
	if StrictTyping && !cell.IsEmpty() && cell.Type() != molecule.CODE {
		o.InstructionFailed = true
		o.FailureReason = "instruction pointer is not on a CODE cell"
		return i.failedNOP(o)
	}

	id := isa.OpcodeID(cell.Value())
	planner, ok := isa.PlannerByID(id)
	if !ok {
		o.InstructionFailed = true
		o.FailureReason = "unknown opcode"
		return i.failedNOP(o)
	}

	inst, err := planner(o, e)
	if err != nil {
		o.InstructionFailed = true
		o.FailureReason = err.Error()
		return i.failedNOP(o)
	}
	return inst
}

// failedNOP returns a single-cell no-op Instruction, used whenever planning
// itself cannot proceed (bad opcode, wrong cell type). The organism is
// already marked InstructionFailed; execution still charges the NOP cost
// plus the error penalty (spec.md §4.10).
func (i *Instance) failedNOP(o *organism.Organism) *isa.Instruction {
	nopPlanner, _ := isa.PlannerByID(isa.OpNOP)
	inst, _ := nopPlanner(o, nil)
	if inst == nil {
		inst = &isa.Instruction{OpcodeID: isa.OpNOP, Mnemonic: "NOP", Length: 1}
	}
	return inst
}
