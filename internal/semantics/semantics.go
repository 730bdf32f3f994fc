// Package semantics implements the two-pass semantic analyzer (spec.md
// §4.4): pass 1 collects every label and procedure name into the scope
// tree; pass 2 walks the tree again, dispatching by node kind to a
// handler registry that validates operand arity/kind against the
// instruction registry and resolves constants and register aliases.
//
// The teacher's asm package has no separate semantic phase: asm/parser.go
// validates as it emits, in the same pass that writes machine words. This
// module's two-pass requirement (forward label references, cross-file
// procedure calls) needs labels known before any operand is validated
// against them, the same "collect first, then resolve" discipline
// Consensys-go-corset applies across its constraint-definition passes.
package semantics

import (
	"strings"

	"github.com/rainco77/evochora-sub013/internal/ast"
	"github.com/rainco77/evochora-sub013/internal/diag"
	"github.com/rainco77/evochora-sub013/internal/symtab"
	"github.com/rainco77/evochora-sub013/isa"
)

// ProcedureMeta is stored in a symtab.Symbol's Meta field for kind
// Procedure: the procedure's parameter list, for cross-file CALL argument
// checking and for irgen's %FPR synthesis.
type ProcedureMeta struct {
	Params []ast.Param
}

// ConstantMeta is stored in a symtab.Symbol's Meta field for kind
// Constant: its resolved scalar value (for plain numeric DEFINEs) plus the
// original value AST node, so irgen (internal/irgen) can rebuild the exact
// ir.Operand shape (Immediate, TypedImmediate, or Vector) a DEFINE was
// bound to, instead of losing vector/typed constants down to a bare int64.
type ConstantMeta struct {
	Value     int64
	ValueNode ast.Node
}

// Analyzer runs both passes over a set of parsed files sharing one scope
// tree, one file at a time (files are parsed independently but resolved
// against a shared Table so cross-file REQUIRE/CALL can be checked).
type Analyzer struct {
	Table *symtab.Table
	diag  *diag.Engine

	// scopeOf records, for each Procedure/Scope AST node visited in pass
	// 1, the child ScopeId created for its body -- so pass 2 can re-enter
	// the exact same scope without re-deriving it.
	scopeOf map[ast.Node]symtab.ScopeId
}

// New creates an Analyzer reporting to d.
func New(d *diag.Engine) *Analyzer {
	return &Analyzer{Table: symtab.NewTable(), diag: d, scopeOf: map[ast.Node]symtab.ScopeId{}}
}

// CollectFile runs pass 1 (label/procedure/alias collection) over one
// file's AST.
func (a *Analyzer) CollectFile(f *ast.File) {
	a.collectItems(f.Name, symtab.Root, f.Items)
}

func (a *Analyzer) collectItems(file string, scope symtab.ScopeId, items []ast.Node) {
	for _, n := range items {
		switch node := n.(type) {
		case *ast.Label:
			if !a.Table.Define(scope, symtab.Symbol{Name: node.Name, Kind: symtab.Label, File: file}) {
				a.diag.Errorf(node.Position(), "symbol already defined: %s", node.Name)
			}
		case *ast.Procedure:
			if !a.Table.Define(scope, symtab.Symbol{
				Name: node.Name, Kind: symtab.Procedure, File: file, Exported: node.Exported,
				Meta: ProcedureMeta{Params: node.Params},
			}) {
				a.diag.Errorf(node.Position(), "symbol already defined: %s", node.Name)
			}
			procScope := a.Table.NewScope(scope)
			a.scopeOf[node] = procScope
			for _, param := range node.Params {
				a.Table.Define(procScope, symtab.Symbol{Name: param.Name, Kind: symtab.Variable, File: file})
			}
			a.collectItems(file, procScope, node.Body)
		case *ast.Scope:
			childScope := a.Table.NewScope(scope)
			a.scopeOf[node] = childScope
			a.collectItems(file, childScope, node.Body)
		case *ast.Require:
			a.Table.DefineAlias(symtab.Root, file, node.Alias, node.Path)
		case *ast.Reg:
			if !a.Table.Define(scope, symtab.Symbol{Name: node.Name, Kind: symtab.Alias, File: file, Meta: node.Target}) {
				a.diag.Errorf(node.Position(), "symbol already defined: %s", node.Name)
			}
		}
	}
}

// AnalyzeFile runs pass 2 over one file's AST, given that CollectFile has
// already run for every file in the compilation unit.
func (a *Analyzer) AnalyzeFile(f *ast.File) {
	a.analyzeItems(f.Name, symtab.Root, f.Items)
}

func (a *Analyzer) analyzeItems(file string, scope symtab.ScopeId, items []ast.Node) {
	for _, n := range items {
		switch node := n.(type) {
		case *ast.Instruction:
			a.analyzeInstruction(file, scope, node)
		case *ast.Define:
			a.analyzeDefine(file, scope, node)
		case *ast.Reg:
			a.analyzeReg(node)
		case *ast.Procedure:
			if childScope, ok := a.scopeOf[node]; ok {
				a.analyzeItems(file, childScope, node.Body)
			}
		case *ast.Scope:
			if childScope, ok := a.scopeOf[node]; ok {
				a.analyzeItems(file, childScope, node.Body)
			}
		case *ast.Place:
			a.analyzePlace(node)
		case *ast.Label, *ast.Require, *ast.Import, *ast.Org, *ast.Dir, *ast.PushCtx, *ast.PopCtx:
			// no-ops in pass 2: labels are resolved via pass 1, the rest
			// carry no operands to validate.
		default:
			a.diag.Errorf(n.Position(), "unhandled node in semantic analysis")
		}
	}
}

// analyzeInstruction validates an instruction's operand count and kinds
// against its isa.Signature (spec.md §4.4, InstructionAnalysisHandler).
// CALL is validated structurally instead (a target plus REF/VAL lists),
// since its signature only describes its post-marshalling shape
// (see isa/signature.go).
func (a *Analyzer) analyzeInstruction(file string, scope symtab.ScopeId, inst *ast.Instruction) {
	if strings.EqualFold(inst.Mnemonic, "CALL") {
		a.analyzeCall(file, scope, inst)
		return
	}

	id, ok := isa.Lookup(inst.Mnemonic)
	if !ok {
		a.diag.Errorf(inst.Position(), "unknown opcode %s", inst.Mnemonic)
		return
	}
	sig, _ := isa.SignatureByID(id)
	if len(inst.Operands) != len(sig.ArgTypes) {
		a.diag.Errorf(inst.Position(), "%s: arity mismatch: expected %d operands, got %d",
			inst.Mnemonic, len(sig.ArgTypes), len(inst.Operands))
		return
	}
	for i, want := range sig.ArgTypes {
		if !operandKindMatches(want, inst.Operands[i]) {
			a.diag.Errorf(inst.Operands[i].Position(), "%s: operand %d: expected %s", inst.Mnemonic, i+1, want)
		}
	}
	for _, op := range inst.Operands {
		if reg, ok := op.(*ast.Register); ok {
			a.analyzeRegisterOperand(reg)
		}
		if ref, ok := op.(*ast.LabelRef); ok {
			a.resolveLabelRef(file, scope, ref)
		}
	}
}

func (a *Analyzer) analyzeCall(file string, scope symtab.ScopeId, inst *ast.Instruction) {
	if inst.Target == nil {
		a.diag.Errorf(inst.Position(), "CALL requires a target label or procedure")
		return
	}
	name := inst.Target.Name
	if strings.Contains(name, ".") {
		parts := strings.SplitN(name, ".", 2)
		if _, ok := a.Table.ResolveCrossFile(file, parts[0], parts[1]); !ok {
			if _, ok := a.Table.ResolveBySuffix(file, parts[0], parts[1]); !ok {
				a.diag.Errorf(inst.Target.Position(), "cross-file access to non-exported or unknown procedure %s", name)
			}
		}
	} else if _, ok := a.Table.Resolve(scope, file, name); !ok {
		a.diag.Errorf(inst.Target.Position(), "unresolved symbol %s", name)
	}
	for _, op := range inst.RefArgs {
		if reg, ok := op.(*ast.Register); ok {
			a.analyzeRegisterOperand(reg)
		}
	}
}

func operandKindMatches(want isa.ArgType, op ast.Node) bool {
	switch op.(type) {
	case *ast.Register:
		return want == isa.ArgRegister || want == isa.ArgLocationRegister
	case *ast.NumberLiteral:
		return want == isa.ArgImmediate
	case *ast.TypedLiteral:
		return want == isa.ArgLiteral
	case *ast.VectorLiteral:
		return want == isa.ArgVector
	case *ast.LabelRef:
		return want == isa.ArgLabel || want == isa.ArgImmediate
	default:
		return false
	}
}

// analyzeRegisterOperand validates register class/bound (spec.md §4.4,
// RegAnalysisHandler), e.g. %LR index < NUM_LOCATION_REGISTERS.
func (a *Analyzer) analyzeRegisterOperand(reg *ast.Register) {
	class, idx, ok := ParseRegisterText(reg.Text)
	if !ok {
		a.diag.Errorf(reg.Position(), "malformed register %s", reg.Text)
		return
	}
	limit := registerClassLimit(class)
	if idx < 0 || idx >= limit {
		a.diag.Errorf(reg.Position(), "register index %d out of range for %s (max %d)", idx, class, limit-1)
	}
}

func (a *Analyzer) analyzeDefine(file string, scope symtab.ScopeId, def *ast.Define) {
	meta := ConstantMeta{ValueNode: def.Value}
	if lit, ok := def.Value.(*ast.NumberLiteral); ok {
		meta.Value = lit.Value
	}
	a.Table.Define(scope, symtab.Symbol{Name: def.Name, Kind: symtab.Constant, File: file, Meta: meta})
}

// ScopeOf returns the ScopeId pass 1 (CollectFile) assigned to a Procedure
// or Scope node's body, so irgen (internal/irgen) can re-enter the exact
// same scope instead of re-deriving a diverging one.
func (a *Analyzer) ScopeOf(n ast.Node) (symtab.ScopeId, bool) {
	s, ok := a.scopeOf[n]
	return s, ok
}

func (a *Analyzer) analyzeReg(reg *ast.Reg) {
	a.analyzeRegisterOperand(&reg.Target)
}

func (a *Analyzer) analyzePlace(pl *ast.Place) {
	if !isValidTypeName(pl.TypeName) {
		a.diag.Errorf(pl.Position(), ".PLACE: unknown molecule type %s", pl.TypeName)
	}
}

func (a *Analyzer) resolveLabelRef(file string, scope symtab.ScopeId, ref *ast.LabelRef) {
	if strings.Contains(ref.Name, ".") {
		return // cross-file label refs aren't part of this spec's CALL-only cross-file model
	}
	if _, ok := a.Table.Resolve(scope, file, ref.Name); !ok {
		// Labels are all in the table by now, since pass 1 runs to
		// completion before pass 2 starts; a .DEFINE constant is only
		// entered when pass 2 reaches its .DEFINE, so a use ahead of it
		// lands here too.
		a.diag.Errorf(ref.Position(), "unresolved symbol %s", ref.Name)
	}
}

func isValidTypeName(s string) bool {
	switch strings.ToUpper(s) {
	case "CODE", "DATA", "ENERGY", "STRUCTURE":
		return true
	default:
		return false
	}
}

func registerClassLimit(class string) int {
	switch class {
	case "DR":
		return 8
	case "PR":
		return 8
	case "FPR":
		return 8
	case "LR":
		return 4
	default:
		return 0
	}
}

// ParseRegisterText splits a register token's text (e.g. "%DR0") into its
// class prefix and numeric index.
func ParseRegisterText(text string) (class string, idx int, ok bool) {
	t := strings.TrimPrefix(text, "%")
	for _, prefix := range []string{"FPR", "DR", "PR", "LR"} {
		if strings.HasPrefix(t, prefix) {
			n := t[len(prefix):]
			v := 0
			for _, c := range n {
				if c < '0' || c > '9' {
					return "", 0, false
				}
				v = v*10 + int(c-'0')
			}
			if n == "" {
				return "", 0, false
			}
			return prefix, v, true
		}
	}
	return "", 0, false
}
