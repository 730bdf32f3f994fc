package vm

import (
	"github.com/rainco77/evochora-sub013/artifact"
	"github.com/rainco77/evochora-sub013/env"
	"github.com/rainco77/evochora-sub013/isa"
	"github.com/rainco77/evochora-sub013/organism"
)

// Execute is the VM's execute phase (spec.md §4.10): it charges the planned
// Instruction's energy cost, runs its Execute closure, applies the
// error-penalty cost if the instruction failed, checks for energy death,
// and advances the IP unless the instruction already repositioned it
// (RET, JMPI, CALL, a conditional's skip).
//
// Conflict resolution (spec.md §4.11) has already run by the time Execute
// is called: a losing EnvironmentModifying instruction must not be passed
// here at all (the kernel skips it: no cost is charged and the IP does not
// move).
//
// This plays the role of the single step performed inside the teacher's
// vm.Instance.Run loop body (github.com/db47h/ngaro/vm/run.go), minus the
// instruction decode (moved to Plan) and plus the cost/energy bookkeeping
// the teacher's VM, having no energy model, never needed.
func (i *Instance) Execute(o *organism.Organism, e *env.Environment, inst *isa.Instruction, art *artifact.ProgramArtifact) {
	if o.IsDead() {
		return
	}

	before := captureRegisters(o)

	cost := isa.Cost(inst.OpcodeID, o, e, inst.RawArgs)
	o.ER -= cost

	ctx := &isa.Context{Organism: o, Env: e, Debug: o.LoggingEnabled}
	if inst.Execute != nil {
		if err := inst.Execute(ctx, art); err != nil {
			o.InstructionFailed = true
			o.FailureReason = err.Error()
			if i.log != nil {
				i.log.WithError(err).WithField("organism", o.ID).WithField("opcode", inst.Mnemonic).
					Debug("instruction execution returned an error")
			}
		}
	}

	if o.InstructionFailed {
		o.ER -= isa.ErrorPenaltyCost
	}

	if o.ER <= 0 {
		o.ER = 0
		o.Kill("energy depleted")
	}

	if !o.SkipIPAdvance && !o.IsDead() {
		np := o.IP
		for n := 0; n < inst.Length; n++ {
			np = e.GetNextPosition(np, o.DV)
		}
		o.IP = np
	}

	if o.LoggingEnabled {
		o.LastInstructionExecution = &organism.InstructionExecutionData{
			OpcodeID:             int(inst.OpcodeID),
			RawArgs:              int32sToInts(inst.RawArgs),
			EnergyCost:           int(cost),
			RegisterValuesBefore: before,
		}
	}
}

func captureRegisters(o *organism.Organism) []int32 {
	out := make([]int32, 0, organism.NumDataRegisters)
	out = append(out, o.DataRegisters[:]...)
	return out
}

func int32sToInts(a []int32) []int {
	out := make([]int, len(a))
	for idx, v := range a {
		out[idx] = int(v)
	}
	return out
}
