// Package isa is the process-wide, initialize-once instruction set registry
// (spec.md §4.9): opcode signatures for the semantic analyzer, planners that
// turn environment cells into concrete Instruction values for the VM, and the
// energy cost model.
//
// The teacher keeps its whole opcode set as one untyped const block plus a
// giant switch in vm/core.go (github.com/db47h/ngaro/vm). This module needs
// per-opcode argument-type signatures (for the semantic analyzer) and
// per-opcode planners/costs the teacher's single-program VM has no
// counterpart for, so the registry is its own package rather than a const
// block, following the shape of the teacher's asm package duplicating the
// vm package's opcode table for its own purposes (name <-> id lookups owned
// by the layer that needs them).
package isa

// ArgType classifies one operand position of an instruction signature.
type ArgType int

const (
	ArgRegister ArgType = iota
	ArgLocationRegister
	ArgImmediate
	ArgLiteral // a typed literal, e.g. DATA:42
	ArgVector
	ArgLabel
)

func (a ArgType) String() string {
	switch a {
	case ArgRegister:
		return "REGISTER"
	case ArgLocationRegister:
		return "LOCATION_REGISTER"
	case ArgImmediate:
		return "IMMEDIATE"
	case ArgLiteral:
		return "LITERAL"
	case ArgVector:
		return "VECTOR"
	case ArgLabel:
		return "LABEL"
	default:
		return "UNKNOWN"
	}
}

// OpcodeID identifies an instruction in the registry.
type OpcodeID int

// Instruction categories, recorded on each Signature. The semantic analyzer
// and the VM do not consult them.
const (
	CategoryPureRegister = iota
	CategoryStack
	CategoryMemoryModifying
	CategoryControlFlow
	CategoryConditional
)

// Signature describes one opcode's mnemonic and operand shape.
type Signature struct {
	Opcode   OpcodeID
	Name     string
	ArgTypes []ArgType
	Category int
}

// Opcode ids. CALL's source-level REF/VAL operand lists have no fixed arity
// (spec.md §4.3/§4.5) and are parsed/analyzed specially; by the time the
// emission rule pipeline is done (spec.md §4.6), a CALL instruction has been
// reduced to a single label operand (the procedure entry point), which is
// what its Signature below and its runtime planner expect.
const (
	OpNOP OpcodeID = iota
	OpRET
	OpSETI
	OpSETR
	OpADDR
	OpADD
	OpSUBR
	OpSUB
	OpMULR
	OpMUL
	OpDIVR
	OpDIV
	OpPUSH
	OpPOP
	OpPUSI
	OpPUSV
	OpCALL
	OpJMPI
	OpIFR
	OpINR
	OpIFPR
	OpINPR
	OpIFPI
	OpINPI
	OpIFPS
	OpINPS
	OpSEEK
	OpPEEK
	OpPOKE
	OpFORK
	OpTURN
	OpNRG
	opcodeCount
)

var signatures = [opcodeCount]Signature{
	OpNOP:  {OpNOP, "NOP", nil, CategoryPureRegister},
	OpRET:  {OpRET, "RET", nil, CategoryControlFlow},
	OpSETI: {OpSETI, "SETI", []ArgType{ArgRegister, ArgLiteral}, CategoryPureRegister},
	OpSETR: {OpSETR, "SETR", []ArgType{ArgRegister, ArgRegister}, CategoryPureRegister},
	OpADDR: {OpADDR, "ADDR", []ArgType{ArgRegister, ArgImmediate}, CategoryPureRegister},
	OpADD:  {OpADD, "ADD", []ArgType{ArgRegister, ArgRegister}, CategoryPureRegister},
	OpSUBR: {OpSUBR, "SUBR", []ArgType{ArgRegister, ArgImmediate}, CategoryPureRegister},
	OpSUB:  {OpSUB, "SUB", []ArgType{ArgRegister, ArgRegister}, CategoryPureRegister},
	OpMULR: {OpMULR, "MULR", []ArgType{ArgRegister, ArgImmediate}, CategoryPureRegister},
	OpMUL:  {OpMUL, "MUL", []ArgType{ArgRegister, ArgRegister}, CategoryPureRegister},
	OpDIVR: {OpDIVR, "DIVR", []ArgType{ArgRegister, ArgImmediate}, CategoryPureRegister},
	OpDIV:  {OpDIV, "DIV", []ArgType{ArgRegister, ArgRegister}, CategoryPureRegister},
	OpPUSH: {OpPUSH, "PUSH", []ArgType{ArgRegister}, CategoryStack},
	OpPOP:  {OpPOP, "POP", []ArgType{ArgRegister}, CategoryStack},
	OpPUSI: {OpPUSI, "PUSI", []ArgType{ArgImmediate}, CategoryStack},
	OpPUSV: {OpPUSV, "PUSV", []ArgType{ArgLabel}, CategoryStack},
	OpCALL: {OpCALL, "CALL", []ArgType{ArgLabel}, CategoryControlFlow},
	OpJMPI: {OpJMPI, "JMPI", []ArgType{ArgLabel}, CategoryControlFlow},
	OpIFR:  {OpIFR, "IFR", []ArgType{ArgRegister, ArgRegister}, CategoryConditional},
	OpINR:  {OpINR, "INR", []ArgType{ArgRegister, ArgRegister}, CategoryConditional},
	OpIFPR: {OpIFPR, "IFPR", []ArgType{ArgLocationRegister, ArgLocationRegister}, CategoryConditional},
	OpINPR: {OpINPR, "INPR", []ArgType{ArgLocationRegister, ArgLocationRegister}, CategoryConditional},
	OpIFPI: {OpIFPI, "IFPI", []ArgType{ArgRegister, ArgImmediate}, CategoryConditional},
	OpINPI: {OpINPI, "INPI", []ArgType{ArgRegister, ArgImmediate}, CategoryConditional},
	OpIFPS: {OpIFPS, "IFPS", []ArgType{ArgRegister}, CategoryConditional},
	OpINPS: {OpINPS, "INPS", []ArgType{ArgRegister}, CategoryConditional},
	OpSEEK: {OpSEEK, "SEEK", []ArgType{ArgLocationRegister, ArgVector}, CategoryPureRegister},
	OpPEEK: {OpPEEK, "PEEK", []ArgType{ArgLocationRegister, ArgRegister}, CategoryPureRegister},
	OpPOKE: {OpPOKE, "POKE", []ArgType{ArgLocationRegister, ArgRegister}, CategoryMemoryModifying},
	OpFORK: {OpFORK, "FORK", []ArgType{ArgLocationRegister}, CategoryMemoryModifying},
	OpTURN: {OpTURN, "TURN", []ArgType{ArgImmediate}, CategoryPureRegister},
	OpNRG:  {OpNRG, "NRG", []ArgType{ArgRegister}, CategoryPureRegister},
}

var nameToOpcode map[string]OpcodeID

func init() {
	nameToOpcode = make(map[string]OpcodeID, opcodeCount)
	for id, sig := range signatures {
		if sig.Name == "" {
			continue
		}
		nameToOpcode[sig.Name] = OpcodeID(id)
	}
}

// Lookup resolves a canonical (upper-cased) mnemonic to its opcode id.
func Lookup(name string) (OpcodeID, bool) {
	id, ok := nameToOpcode[name]
	return id, ok
}

// SignatureByID returns the signature for opcode id.
func SignatureByID(id OpcodeID) (Signature, bool) {
	if id < 0 || int(id) >= len(signatures) {
		return Signature{}, false
	}
	return signatures[id], true
}

// Mnemonics returns every recognized opcode name, in no particular order.
func Mnemonics() []string {
	out := make([]string, 0, len(nameToOpcode))
	for n := range nameToOpcode {
		out = append(out, n)
	}
	return out
}
