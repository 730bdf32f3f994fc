package isa

import (
	"github.com/rainco77/evochora-sub013/env"
	"github.com/rainco77/evochora-sub013/organism"
)

// baseCost assigns each opcode a flat energy cost. Memory-modifying and
// organism-spawning instructions cost substantially more than pure-register
// ones, mirroring how these artificial-life kernels price environment
// mutation and reproduction above bookkeeping.
var baseCost = map[OpcodeID]int64{
	OpNOP:  1,
	OpRET:  2,
	OpSETI: 2,
	OpSETR: 2,
	OpADDR: 2,
	OpADD:  2,
	OpSUBR: 2,
	OpSUB:  2,
	OpMULR: 3,
	OpMUL:  3,
	OpDIVR: 3,
	OpDIV:  3,
	OpPUSH: 1,
	OpPOP:  1,
	OpPUSI: 1,
	OpPUSV: 1,
	OpCALL: 3,
	OpJMPI: 2,
	OpIFR:  1,
	OpINR:  1,
	OpIFPR: 2,
	OpINPR: 2,
	OpIFPI: 1,
	OpINPI: 1,
	OpIFPS: 1,
	OpINPS: 1,
	OpSEEK: 1,
	OpPEEK: 2,
	OpPOKE: 4,
	OpFORK: 50,
	OpTURN: 1,
	OpNRG:  1,
}

// Cost returns the energy cost of executing the given planned instruction.
// This is the registry's CostFunc (spec.md §4.9): cost(organism, env, rawArgs).
func Cost(id OpcodeID, o *organism.Organism, e *env.Environment, rawArgs []int32) int64 {
	if c, ok := baseCost[id]; ok {
		return c
	}
	return 1
}

// ErrorPenaltyCost is deducted in addition to the instruction's own cost
// whenever an instruction sets InstructionFailed (spec.md §4.10).
const ErrorPenaltyCost int64 = 5
