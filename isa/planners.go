package isa

import (
	"github.com/rainco77/evochora-sub013/artifact"
	"github.com/rainco77/evochora-sub013/env"
	"github.com/rainco77/evochora-sub013/molecule"
	"github.com/rainco77/evochora-sub013/organism"
)

// cellWidth returns how many cells one operand of the given type occupies,
// given the world's dimensionality.
func cellWidth(t ArgType, dims int) int {
	switch t {
	case ArgVector, ArgLabel:
		return dims
	default:
		return 1
	}
}

func instructionLength(sig Signature, dims int) int {
	n := 1
	for _, t := range sig.ArgTypes {
		n += cellWidth(t, dims)
	}
	return n
}

// planners maps each opcode to its Planner. Registered in init() so the
// registry is fully built before any simulation starts (spec.md §4.9,
// "process-wide, initialised once at startup").
var planners [opcodeCount]Planner

// PlannerByID returns the planner for opcode id.
func PlannerByID(id OpcodeID) (Planner, bool) {
	if id < 0 || int(id) >= len(planners) || planners[id] == nil {
		return nil, false
	}
	return planners[id], true
}

func getLike(o *organism.Organism, r decodedRegister) int32 {
	if r.Class == organism.ClassLocation {
		return 0
	}
	return o.GetDataLike(r.Class, r.Index)
}

func setLike(o *organism.Organism, r decodedRegister, v int32) {
	o.SetDataLike(r.Class, r.Index, v)
}

// peekInstructionLength looks at the opcode sitting at coord and returns the
// length it will occupy, used by conditional instructions to compute how far
// to skip when their predicate is false.
func peekInstructionLength(e *env.Environment, coord env.Coord, dims int) int {
	m := e.GetMolecule(coord)
	id := OpcodeID(m.Value())
	sig, ok := SignatureByID(id)
	if !ok {
		return 1
	}
	return instructionLength(sig, dims)
}

func init() {
	dimsOf := func(e *env.Environment) int { return e.Dimensions() }

	planners[OpNOP] = func(o *organism.Organism, e *env.Environment) (*Instruction, error) {
		return &Instruction{OpcodeID: OpNOP, Mnemonic: "NOP", Length: 1,
			Execute: func(ctx *Context, art *artifact.ProgramArtifact) error { return nil },
		}, nil
	}

	planners[OpRET] = func(o *organism.Organism, e *env.Environment) (*Instruction, error) {
		return &Instruction{OpcodeID: OpRET, Mnemonic: "RET", Length: 1, ControlFlow: true,
			Execute: func(ctx *Context, art *artifact.ProgramArtifact) error {
				f, ok := ctx.Organism.PopCall()
				if !ok {
					return nil
				}
				ctx.Organism.IP = f.ReturnIP
				ctx.Organism.DV = f.ReturnDV
				ctx.Organism.SkipIPAdvance = true
				return nil
			},
		}, nil
	}

	planners[OpSETI] = func(o *organism.Organism, e *env.Environment) (*Instruction, error) {
		c := newCursor(o, e)
		dst := c.readRegister()
		lit := c.readLiteral()
		sig, _ := SignatureByID(OpSETI)
		return &Instruction{OpcodeID: OpSETI, Mnemonic: "SETI", Length: instructionLength(sig, dimsOf(e)),
			RawArgs: []int32{int32(dst.Index), int32(lit.Value())},
			Execute: func(ctx *Context, art *artifact.ProgramArtifact) error {
				setLike(ctx.Organism, dst, int32(lit.Value()))
				return nil
			},
		}, nil
	}

	planners[OpSETR] = binaryRegRegPlanner(OpSETR, "SETR", func(o *organism.Organism, dst, src decodedRegister) { setLike(o, dst, getLike(o, src)) })

	planners[OpADDR] = binaryRegImmPlanner(OpADDR, "ADDR", func(o *organism.Organism, dst decodedRegister, imm int32) { setLike(o, dst, getLike(o, dst)+imm) })
	planners[OpADD] = binaryRegRegPlanner(OpADD, "ADD", func(o *organism.Organism, dst, src decodedRegister) { setLike(o, dst, getLike(o, dst)+getLike(o, src)) })
	planners[OpSUBR] = binaryRegImmPlanner(OpSUBR, "SUBR", func(o *organism.Organism, dst decodedRegister, imm int32) { setLike(o, dst, getLike(o, dst)-imm) })
	planners[OpSUB] = binaryRegRegPlanner(OpSUB, "SUB", func(o *organism.Organism, dst, src decodedRegister) { setLike(o, dst, getLike(o, dst)-getLike(o, src)) })
	planners[OpMULR] = binaryRegImmPlanner(OpMULR, "MULR", func(o *organism.Organism, dst decodedRegister, imm int32) { setLike(o, dst, getLike(o, dst)*imm) })
	planners[OpMUL] = binaryRegRegPlanner(OpMUL, "MUL", func(o *organism.Organism, dst, src decodedRegister) { setLike(o, dst, getLike(o, dst)*getLike(o, src)) })

	planners[OpDIVR] = func(o *organism.Organism, e *env.Environment) (*Instruction, error) {
		c := newCursor(o, e)
		dst := c.readRegister()
		imm := c.readImmediate()
		sig, _ := SignatureByID(OpDIVR)
		return &Instruction{OpcodeID: OpDIVR, Mnemonic: "DIVR", Length: instructionLength(sig, dimsOf(e)),
			Execute: func(ctx *Context, art *artifact.ProgramArtifact) error {
				if imm == 0 {
					ctx.Organism.InstructionFailed = true
					ctx.Organism.FailureReason = "division by zero"
					return nil
				}
				setLike(ctx.Organism, dst, getLike(ctx.Organism, dst)/imm)
				return nil
			},
		}, nil
	}
	planners[OpDIV] = func(o *organism.Organism, e *env.Environment) (*Instruction, error) {
		c := newCursor(o, e)
		dst := c.readRegister()
		src := c.readRegister()
		sig, _ := SignatureByID(OpDIV)
		return &Instruction{OpcodeID: OpDIV, Mnemonic: "DIV", Length: instructionLength(sig, dimsOf(e)),
			Execute: func(ctx *Context, art *artifact.ProgramArtifact) error {
				divisor := getLike(ctx.Organism, src)
				if divisor == 0 {
					ctx.Organism.InstructionFailed = true
					ctx.Organism.FailureReason = "division by zero"
					return nil
				}
				setLike(ctx.Organism, dst, getLike(ctx.Organism, dst)/divisor)
				return nil
			},
		}, nil
	}

	planners[OpPUSH] = func(o *organism.Organism, e *env.Environment) (*Instruction, error) {
		c := newCursor(o, e)
		r := c.readRegister()
		sig, _ := SignatureByID(OpPUSH)
		return &Instruction{OpcodeID: OpPUSH, Mnemonic: "PUSH", Length: instructionLength(sig, dimsOf(e)),
			Execute: func(ctx *Context, art *artifact.ProgramArtifact) error {
				ctx.Organism.PushData(getLike(ctx.Organism, r))
				return nil
			},
		}, nil
	}
	planners[OpPOP] = func(o *organism.Organism, e *env.Environment) (*Instruction, error) {
		c := newCursor(o, e)
		r := c.readRegister()
		sig, _ := SignatureByID(OpPOP)
		return &Instruction{OpcodeID: OpPOP, Mnemonic: "POP", Length: instructionLength(sig, dimsOf(e)),
			Execute: func(ctx *Context, art *artifact.ProgramArtifact) error {
				v, ok := ctx.Organism.PopData()
				if ok {
					setLike(ctx.Organism, r, v)
				}
				return nil
			},
		}, nil
	}
	planners[OpPUSI] = func(o *organism.Organism, e *env.Environment) (*Instruction, error) {
		c := newCursor(o, e)
		imm := c.readImmediate()
		sig, _ := SignatureByID(OpPUSI)
		return &Instruction{OpcodeID: OpPUSI, Mnemonic: "PUSI", Length: instructionLength(sig, dimsOf(e)),
			Execute: func(ctx *Context, art *artifact.ProgramArtifact) error {
				ctx.Organism.PushData(imm)
				return nil
			},
		}, nil
	}
	planners[OpPUSV] = func(o *organism.Organism, e *env.Environment) (*Instruction, error) {
		c := newCursor(o, e)
		rel := c.readLabel(dimsOf(e))
		sig, _ := SignatureByID(OpPUSV)
		return &Instruction{OpcodeID: OpPUSV, Mnemonic: "PUSV", Length: instructionLength(sig, dimsOf(e)),
			Execute: func(ctx *Context, art *artifact.ProgramArtifact) error {
				target := ctx.Organism.IP.Add(rel)
				addr, _ := ctx.Env.Linearize(target)
				ctx.Organism.PushData(int32(addr))
				return nil
			},
		}, nil
	}

	planners[OpCALL] = func(o *organism.Organism, e *env.Environment) (*Instruction, error) {
		c := newCursor(o, e)
		rel := c.readLabel(dimsOf(e))
		sig, _ := SignatureByID(OpCALL)
		length := instructionLength(sig, dimsOf(e))
		return &Instruction{OpcodeID: OpCALL, Mnemonic: "CALL", Length: length, ControlFlow: true,
			Execute: func(ctx *Context, art *artifact.ProgramArtifact) error {
				returnIP := ctx.Organism.IP
				for i := 0; i < length; i++ {
					returnIP = ctx.Env.GetNextPosition(returnIP, ctx.Organism.DV)
				}
				if !ctx.Organism.PushCall(organism.CallFrame{ReturnIP: returnIP, ReturnDV: ctx.Organism.DV}) {
					return nil
				}
				ctx.Organism.IP = ctx.Organism.IP.Add(rel)
				ctx.Organism.SkipIPAdvance = true
				return nil
			},
		}, nil
	}

	planners[OpJMPI] = func(o *organism.Organism, e *env.Environment) (*Instruction, error) {
		c := newCursor(o, e)
		rel := c.readLabel(dimsOf(e))
		sig, _ := SignatureByID(OpJMPI)
		return &Instruction{OpcodeID: OpJMPI, Mnemonic: "JMPI", Length: instructionLength(sig, dimsOf(e)), ControlFlow: true,
			Execute: func(ctx *Context, art *artifact.ProgramArtifact) error {
				ctx.Organism.IP = ctx.Organism.IP.Add(rel)
				ctx.Organism.SkipIPAdvance = true
				return nil
			},
		}, nil
	}

	planners[OpIFR] = conditionalPlanner(OpIFR, "IFR", func(o *organism.Organism, a, b decodedRegister) bool { return getLike(o, a) == getLike(o, b) })
	planners[OpINR] = conditionalPlanner(OpINR, "INR", func(o *organism.Organism, a, b decodedRegister) bool { return getLike(o, a) != getLike(o, b) })
	planners[OpIFPI] = conditionalImmPlanner(OpIFPI, "IFPI", func(o *organism.Organism, a decodedRegister, imm int32) bool { return getLike(o, a) == imm })
	planners[OpINPI] = conditionalImmPlanner(OpINPI, "INPI", func(o *organism.Organism, a decodedRegister, imm int32) bool { return getLike(o, a) != imm })
	planners[OpIFPS] = conditionalUnaryPlanner(OpIFPS, "IFPS", func(o *organism.Organism, a decodedRegister) bool { return getLike(o, a) >= 0 })
	planners[OpINPS] = conditionalUnaryPlanner(OpINPS, "INPS", func(o *organism.Organism, a decodedRegister) bool { return getLike(o, a) < 0 })

	planners[OpIFPR] = func(o *organism.Organism, e *env.Environment) (*Instruction, error) {
		c := newCursor(o, e)
		a := c.readRegister()
		b := c.readRegister()
		sig, _ := SignatureByID(OpIFPR)
		ownLen := instructionLength(sig, dimsOf(e))
		return &Instruction{OpcodeID: OpIFPR, Mnemonic: "IFPR", Length: ownLen, ControlFlow: true,
			Execute: func(ctx *Context, art *artifact.ProgramArtifact) error {
				ma := ctx.Env.GetMolecule(ctx.Organism.LocationRegisters[a.Index])
				mb := ctx.Env.GetMolecule(ctx.Organism.LocationRegisters[b.Index])
				applySkip(ctx, ownLen, ma == mb, dimsOf(ctx.Env))
				return nil
			},
		}, nil
	}
	planners[OpINPR] = func(o *organism.Organism, e *env.Environment) (*Instruction, error) {
		c := newCursor(o, e)
		a := c.readRegister()
		b := c.readRegister()
		sig, _ := SignatureByID(OpINPR)
		ownLen := instructionLength(sig, dimsOf(e))
		return &Instruction{OpcodeID: OpINPR, Mnemonic: "INPR", Length: ownLen, ControlFlow: true,
			Execute: func(ctx *Context, art *artifact.ProgramArtifact) error {
				ma := ctx.Env.GetMolecule(ctx.Organism.LocationRegisters[a.Index])
				mb := ctx.Env.GetMolecule(ctx.Organism.LocationRegisters[b.Index])
				applySkip(ctx, ownLen, ma != mb, dimsOf(ctx.Env))
				return nil
			},
		}, nil
	}

	planners[OpSEEK] = func(o *organism.Organism, e *env.Environment) (*Instruction, error) {
		c := newCursor(o, e)
		lr := c.readRegister()
		vec := c.readVector(dimsOf(e))
		sig, _ := SignatureByID(OpSEEK)
		return &Instruction{OpcodeID: OpSEEK, Mnemonic: "SEEK", Length: instructionLength(sig, dimsOf(e)),
			Execute: func(ctx *Context, art *artifact.ProgramArtifact) error {
				ctx.Organism.LocationRegisters[lr.Index] = ctx.Organism.IP.Add(vec)
				return nil
			},
		}, nil
	}
	planners[OpPEEK] = func(o *organism.Organism, e *env.Environment) (*Instruction, error) {
		c := newCursor(o, e)
		lr := c.readRegister()
		dst := c.readRegister()
		sig, _ := SignatureByID(OpPEEK)
		return &Instruction{OpcodeID: OpPEEK, Mnemonic: "PEEK", Length: instructionLength(sig, dimsOf(e)),
			Execute: func(ctx *Context, art *artifact.ProgramArtifact) error {
				m := ctx.Env.GetMolecule(ctx.Organism.LocationRegisters[lr.Index])
				setLike(ctx.Organism, dst, int32(m.Value()))
				return nil
			},
		}, nil
	}
	planners[OpPOKE] = func(o *organism.Organism, e *env.Environment) (*Instruction, error) {
		c := newCursor(o, e)
		lr := c.readRegister()
		src := c.readRegister()
		sig, _ := SignatureByID(OpPOKE)
		target := o.LocationRegisters[lr.Index].Clone()
		return &Instruction{OpcodeID: OpPOKE, Mnemonic: "POKE", Length: instructionLength(sig, dimsOf(e)),
			EnvironmentModifying: true, Targets: []env.Coord{target},
			Execute: func(ctx *Context, art *artifact.ProgramArtifact) error {
				v := getLike(ctx.Organism, src)
				ctx.Env.SetMolecule(molecule.New(molecule.DATA, int(v)), target)
				ctx.Env.SetOwnerID(target, ctx.Organism.ID)
				return nil
			},
		}, nil
	}
	planners[OpFORK] = func(o *organism.Organism, e *env.Environment) (*Instruction, error) {
		c := newCursor(o, e)
		lr := c.readRegister()
		sig, _ := SignatureByID(OpFORK)
		target := o.LocationRegisters[lr.Index].Clone()
		return &Instruction{OpcodeID: OpFORK, Mnemonic: "FORK", Length: instructionLength(sig, dimsOf(e)),
			EnvironmentModifying: true, Targets: []env.Coord{target},
			Execute: func(ctx *Context, art *artifact.ProgramArtifact) error {
				// Spawning is deferred to the simulation kernel, which owns
				// the organism id counter and the new-organism queue
				// (spec.md §4.11); the instruction only records intent in
				// Organism.PendingForkTarget/PendingForkDV, which the kernel
				// consumes right after this instruction executes.
				ctx.Organism.PendingForkTarget = target.Clone()
				ctx.Organism.PendingForkDV = ctx.Organism.DV.Clone()
				return nil
			},
		}, nil
	}

	planners[OpTURN] = func(o *organism.Organism, e *env.Environment) (*Instruction, error) {
		c := newCursor(o, e)
		imm := c.readImmediate()
		sig, _ := SignatureByID(OpTURN)
		return &Instruction{OpcodeID: OpTURN, Mnemonic: "TURN", Length: instructionLength(sig, dimsOf(e)),
			Execute: func(ctx *Context, art *artifact.ProgramArtifact) error {
				ctx.Organism.DV = turnedVector(ctx.Organism.DV, int(imm))
				return nil
			},
		}, nil
	}
	planners[OpNRG] = func(o *organism.Organism, e *env.Environment) (*Instruction, error) {
		c := newCursor(o, e)
		dst := c.readRegister()
		sig, _ := SignatureByID(OpNRG)
		return &Instruction{OpcodeID: OpNRG, Mnemonic: "NRG", Length: instructionLength(sig, dimsOf(e)),
			Execute: func(ctx *Context, art *artifact.ProgramArtifact) error {
				setLike(ctx.Organism, dst, int32(ctx.Organism.ER))
				return nil
			},
		}, nil
	}
}

func binaryRegRegPlanner(id OpcodeID, name string, apply func(o *organism.Organism, dst, src decodedRegister)) Planner {
	return func(o *organism.Organism, e *env.Environment) (*Instruction, error) {
		c := newCursor(o, e)
		dst := c.readRegister()
		src := c.readRegister()
		sig, _ := SignatureByID(id)
		return &Instruction{OpcodeID: id, Mnemonic: name, Length: instructionLength(sig, e.Dimensions()),
			Execute: func(ctx *Context, art *artifact.ProgramArtifact) error {
				apply(ctx.Organism, dst, src)
				return nil
			},
		}, nil
	}
}

func binaryRegImmPlanner(id OpcodeID, name string, apply func(o *organism.Organism, dst decodedRegister, imm int32)) Planner {
	return func(o *organism.Organism, e *env.Environment) (*Instruction, error) {
		c := newCursor(o, e)
		dst := c.readRegister()
		imm := c.readImmediate()
		sig, _ := SignatureByID(id)
		return &Instruction{OpcodeID: id, Mnemonic: name, Length: instructionLength(sig, e.Dimensions()),
			Execute: func(ctx *Context, art *artifact.ProgramArtifact) error {
				apply(ctx.Organism, dst, imm)
				return nil
			},
		}, nil
	}
}

// applySkip implements the conditional-instruction skip-next-on-false
// semantics (spec.md §4.10, "conditional ... may cause the next instruction
// to be skipped"): on a true predicate, normal IP advance lands on the next
// instruction; on false, the IP is advanced past both this instruction and
// the one that follows.
func applySkip(ctx *Context, ownLen int, predicateTrue bool, dims int) {
	if predicateTrue {
		return
	}
	nextPos := ctx.Organism.IP
	for i := 0; i < ownLen; i++ {
		nextPos = ctx.Env.GetNextPosition(nextPos, ctx.Organism.DV)
	}
	nextLen := peekInstructionLength(ctx.Env, nextPos, dims)
	total := ownLen + nextLen
	np := ctx.Organism.IP
	for i := 0; i < total; i++ {
		np = ctx.Env.GetNextPosition(np, ctx.Organism.DV)
	}
	ctx.Organism.IP = np
	ctx.Organism.SkipIPAdvance = true
}

func conditionalPlanner(id OpcodeID, name string, pred func(o *organism.Organism, a, b decodedRegister) bool) Planner {
	return func(o *organism.Organism, e *env.Environment) (*Instruction, error) {
		c := newCursor(o, e)
		a := c.readRegister()
		b := c.readRegister()
		sig, _ := SignatureByID(id)
		ownLen := instructionLength(sig, e.Dimensions())
		return &Instruction{OpcodeID: id, Mnemonic: name, Length: ownLen, ControlFlow: true,
			Execute: func(ctx *Context, art *artifact.ProgramArtifact) error {
				applySkip(ctx, ownLen, pred(ctx.Organism, a, b), ctx.Env.Dimensions())
				return nil
			},
		}, nil
	}
}

func conditionalImmPlanner(id OpcodeID, name string, pred func(o *organism.Organism, a decodedRegister, imm int32) bool) Planner {
	return func(o *organism.Organism, e *env.Environment) (*Instruction, error) {
		c := newCursor(o, e)
		a := c.readRegister()
		imm := c.readImmediate()
		sig, _ := SignatureByID(id)
		ownLen := instructionLength(sig, e.Dimensions())
		return &Instruction{OpcodeID: id, Mnemonic: name, Length: ownLen, ControlFlow: true,
			Execute: func(ctx *Context, art *artifact.ProgramArtifact) error {
				applySkip(ctx, ownLen, pred(ctx.Organism, a, imm), ctx.Env.Dimensions())
				return nil
			},
		}, nil
	}
}

func conditionalUnaryPlanner(id OpcodeID, name string, pred func(o *organism.Organism, a decodedRegister) bool) Planner {
	return func(o *organism.Organism, e *env.Environment) (*Instruction, error) {
		c := newCursor(o, e)
		a := c.readRegister()
		sig, _ := SignatureByID(id)
		ownLen := instructionLength(sig, e.Dimensions())
		return &Instruction{OpcodeID: id, Mnemonic: name, Length: ownLen, ControlFlow: true,
			Execute: func(ctx *Context, art *artifact.ProgramArtifact) error {
				applySkip(ctx, ownLen, pred(ctx.Organism, a), ctx.Env.Dimensions())
				return nil
			},
		}, nil
	}
}

// turnedVector rotates a unit direction vector to a different axis/sign,
// selected by imm: imm in [0, 2*dims) picks axis imm/2 with sign +1 if
// imm is even, -1 if odd. Out-of-range imm leaves dv unchanged.
func turnedVector(dv env.Coord, imm int) env.Coord {
	dims := len(dv)
	if imm < 0 || imm >= 2*dims {
		return dv
	}
	out := make(env.Coord, dims)
	axis := imm / 2
	sign := 1
	if imm%2 == 1 {
		sign = -1
	}
	out[axis] = sign
	return out
}
