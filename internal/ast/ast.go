// Package ast defines the syntax tree the parser (internal/parser) builds
// and the IR generator (internal/irgen) consumes (spec.md §4.3).
//
// The teacher's asm package has no AST at all: asm/parser.go emits machine
// words directly while scanning, a one-pass design that fits a language
// with no procedures, scoping, or multi-file linking. This module's
// richer surface (procedures with REF/VAL parameters, lexical scopes,
// cross-file aliasing, placement directives) needs a tree an analyzer can
// walk twice (spec.md §4.4) before anything is emitted, so parsing and
// code generation are split the way Consensys-go-corset splits its
// lexer/parser from its constraint IR.
package ast

import "github.com/rainco77/evochora-sub013/internal/diag"

// Node is implemented by every AST node. Position returns where the node
// began in source, for diagnostics.
type Node interface {
	Position() diag.Pos
	node()
}

type base struct {
	Pos diag.Pos
}

func (b base) Position() diag.Pos { return b.Pos }
func (base) node()                {}

// File is the root of one compiled source file's tree.
type File struct {
	base
	Name  string
	Items []Node
}

// Define is a `.DEFINE NAME value` constant binding.
type Define struct {
	base
	Name  string
	Value Node // NumberLiteral, VectorLiteral, or TypedLiteral
}

// Label is a `NAME:` definition at the current placement cursor.
type Label struct {
	base
	Name string
}

// LabelRef is a bare label name used as an operand (a jump/call target).
type LabelRef struct {
	base
	Name string
}

// Register is a register operand, e.g. %DR0, %LR2.
type Register struct {
	base
	Text string // original register token text, e.g. "DR0"
}

// Reg is a `.REG name %DR0` or `.PREG name %LR0` register-alias
// definition, binding a source-level name to a concrete register operand
// (resolved during semantic analysis into a symtab.Alias symbol).
type Reg struct {
	base
	Name   string
	Target Register
}

// NumberLiteral is a bare decimal or hex integer literal.
type NumberLiteral struct {
	base
	Value int64
}

// TypedLiteral is a `TYPE:value` literal, e.g. DATA:42, ENERGY:-3.
type TypedLiteral struct {
	base
	TypeName string
	Value    int64
}

// VectorLiteral is a `|` separated list of component expressions, e.g.
// 1|0|-1.
type VectorLiteral struct {
	base
	Components []Node
}

// Instruction is one opcode with its source-level operand list. Operand
// count/shape is validated against isa.SignatureByID during semantic
// analysis, except for CALL, whose REF/VAL argument list is parsed
// specially (spec.md §4.3) into RefArgs/ValArgs instead of Operands.
type Instruction struct {
	base
	Mnemonic string
	Operands []Node
	RefArgs  []Node // CALL only: REF-passed argument expressions
	ValArgs  []Node // CALL only: VAL-passed argument expressions
	Target   *LabelRef
}

// ParamKind distinguishes a procedure's REF (pass-by-reference, restored to
// the caller's register after the call) and VAL (pass-by-value, consumed by
// the callee) formal parameters. Both kinds are marshalled through
// synthesized FPRs.
type ParamKind int

const (
	ParamRef ParamKind = iota
	ParamVal
)

// Param is one formal parameter of a Procedure.
type Param struct {
	Name string
	Kind ParamKind
}

// Procedure is a `.PROC NAME(REF a, VAL b) ... .ENDPROC` block.
type Procedure struct {
	base
	Name     string
	Exported bool
	Params   []Param
	Body     []Node
}

// Scope is a `.SCOPE NAME ... .ENDSCOPE` lexical grouping.
type Scope struct {
	base
	Name string
	Body []Node
}

// Require is a `.REQUIRE "path" AS alias` cross-file import.
type Require struct {
	base
	Path  string
	Alias string
}

// Import is an `.INCLUDE "path"` textual inclusion, resolved by the
// preprocessor before parsing; retained in the tree only for
// source-map fidelity of the resulting synthetic push/pop context nodes.
type Import struct {
	base
	Path string
}

// PlaceComponent is one axis of a `.PLACE` target: a fixed scalar, a
// `lo..hi` range, or a `*` wildcard. The layout engine places a wildcard at
// the cursor's current value on that axis; it does not sweep the axis's
// full extent in the Environment.
type PlaceComponent struct {
	Wildcard bool
	Lo, Hi   int64 // Lo == Hi for a scalar component
}

// Place is a `.PLACE TYPE:value AT c0,c1,...` initial-world-object
// directive. The Cartesian product of its Components is enumerated by the
// layout engine (spec.md §4.7).
type Place struct {
	base
	TypeName   string
	Value      int64
	Components []PlaceComponent
}

// Org is an `.ORG c0,c1,...` directive: resets the layout cursor's base
// coordinate for subsequent placement.
type Org struct {
	base
	Coords []int64
}

// Dir is a `.DIR dx,dy,...` directive: sets the layout cursor's placement
// direction (a unit vector) for subsequent instructions.
type Dir struct {
	base
	Components []int64
}

// PushCtx and PopCtx bracket an `.INCLUDE`d file's tokens, synthesized by
// the preprocessor (spec.md §4.2) so the parser can track which file/line
// a token came from without re-lexing.
type PushCtx struct {
	base
	File string
}

type PopCtx struct {
	base
}
