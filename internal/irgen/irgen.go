// Package irgen translates an analyzed AST into the flat IR the emission
// rule pipeline (internal/emit) rewrites and the layout engine
// (internal/layout) places (spec.md §3, §4.5).
//
// The teacher's asm package has no separate generation step: asm/parser.go
// writes vm.Cell words directly into an image as it scans. This module's
// IR Generator exists because the emission rules (§4.6) need a flat,
// rewritable sequence to insert marshalling instructions into before
// anything is placed in the world, the same "build an intermediate list,
// then rewrite it" shape Consensys-go-corset uses between its own
// constraint IR and its lowering passes.
package irgen

import (
	"fmt"
	"strings"

	"github.com/rainco77/evochora-sub013/internal/ast"
	"github.com/rainco77/evochora-sub013/internal/ir"
	"github.com/rainco77/evochora-sub013/internal/semantics"
	"github.com/rainco77/evochora-sub013/internal/symtab"
)

// ScopeResolver is the subset of *semantics.Analyzer the generator needs:
// the scope tree pass 1/2 built and resolved against, plus the Procedure/
// Scope → child-ScopeId map pass 1 recorded, so generation walks the exact
// same scopes analysis validated against.
type ScopeResolver interface {
	ScopeOf(n ast.Node) (symtab.ScopeId, bool)
}

// Generator walks one file's AST and emits IR, given the shared symbol
// table every file's analysis pass already populated.
type Generator struct {
	Table   *symtab.Table
	Scopes  ScopeResolver
	labelSeq int

	// paramStack holds, for each procedure currently being generated (innermost
	// last), the uppercased-name → FPR-index map for its formal parameters
	// (spec.md §4.5: "formal parameters resolve to synthetic registers
	// %FPR0…%FPRk-1 in declaration order").
	paramStack []map[string]int
}

// New creates a Generator sharing table and scopes with the analyzer that
// produced them.
func New(table *symtab.Table, scopes ScopeResolver) *Generator {
	return &Generator{Table: table, Scopes: scopes}
}

// Generate walks f's top-level items and returns the IR sequence for this
// file alone; the compiler driver (compiler package) concatenates every
// file's sequence before handing the whole program to internal/emit.
func (g *Generator) Generate(f *ast.File) []ir.Item {
	return g.genItems(f.Name, symtab.Root, f.Items)
}

func (g *Generator) genItems(file string, scope symtab.ScopeId, items []ast.Node) []ir.Item {
	var out []ir.Item
	for _, n := range items {
		out = append(out, g.genItem(file, scope, n)...)
	}
	return out
}

func (g *Generator) genItem(file string, scope symtab.ScopeId, n ast.Node) []ir.Item {
	src := srcOf(file, n)
	switch node := n.(type) {
	case *ast.Define, *ast.Require, *ast.Import, *ast.Reg:
		// Constants, cross-file aliases and register aliases are compile-time
		// bookkeeping already captured in the symbol table; they emit no IR.
		return nil
	case *ast.Label:
		return []ir.Item{ir.Label{Name: qualifiedLabel(file, node.Name), Src: src}}
	case *ast.Org:
		return []ir.Item{ir.Directive{Namespace: "core", Name: ir.DirOrg, Args: []ir.Operand{ir.Vector{Components: toInt32s(node.Coords)}}, Src: src}}
	case *ast.Dir:
		return []ir.Item{ir.Directive{Namespace: "core", Name: ir.DirDir, Args: []ir.Operand{ir.Vector{Components: toInt32s(node.Components)}}, Src: src}}
	case *ast.PushCtx:
		return []ir.Item{ir.Directive{Namespace: "core", Name: ir.DirPushCtx, Src: src}}
	case *ast.PopCtx:
		return []ir.Item{ir.Directive{Namespace: "core", Name: ir.DirPopCtx, Src: src}}
	case *ast.Place:
		return []ir.Item{ir.Directive{Namespace: "core", Name: ir.DirPlace, Meta: ir.PlaceArgs{
			TypeName: strings.ToUpper(node.TypeName), Value: int32(node.Value), Components: placeComponents(node.Components),
		}, Src: src}}
	case *ast.Scope:
		child, ok := g.Scopes.ScopeOf(node)
		if !ok {
			child = scope
		}
		return g.genItems(file, child, node.Body)
	case *ast.Procedure:
		return g.genProcedure(file, scope, node)
	case *ast.Instruction:
		return []ir.Item{g.genInstruction(file, scope, node)}
	default:
		return nil
	}
}

// genProcedure emits the implicit entry label (bound to the procedure's
// first emitted opcode -- its marshalled prologue's first POP, once
// internal/emit's procedure-marshalling rule runs), the core:proc_enter/
// core:proc_exit brackets irgen's IR consumers use to find the body, and
// the body itself with its formal parameters resolved to synthetic FPRs.
func (g *Generator) genProcedure(file string, scope symtab.ScopeId, node *ast.Procedure) []ir.Item {
	src := srcOf(file, node)
	child, ok := g.Scopes.ScopeOf(node)
	if !ok {
		child = scope
	}

	params := make([]ir.Register, len(node.Params))
	paramIdx := map[string]int{}
	refCount := 0
	// REF params occupy FPR0..FPR(m-1), VAL params FPR(m)..FPR(m+n-1), each
	// group keeping its own declaration order (spec.md §4.5/§4.6, Testable
	// Property §8 #2/#3).
	for _, p := range node.Params {
		if p.Kind == ast.ParamRef {
			refCount++
		}
	}
	refNext, valNext := 0, refCount
	for _, p := range node.Params {
		var idx int
		if p.Kind == ast.ParamRef {
			idx = refNext
			refNext++
		} else {
			idx = valNext
			valNext++
		}
		paramIdx[strings.ToUpper(p.Name)] = idx
		params[idx] = ir.Register{Name: fmt.Sprintf("FPR%d", idx)}
	}

	g.paramStack = append(g.paramStack, paramIdx)
	body := g.genItems(file, child, node.Body)
	g.paramStack = g.paramStack[:len(g.paramStack)-1]

	out := make([]ir.Item, 0, len(body)+3)
	out = append(out, ir.Label{Name: qualifiedLabel(file, node.Name), Src: src})
	out = append(out, ir.Directive{Namespace: "core", Name: ir.DirProcEnter, Meta: ir.ProcEnterArgs{Params: params, RefCount: refCount}, Src: src})
	out = append(out, body...)
	out = append(out, ir.Directive{Namespace: "core", Name: ir.DirProcExit, Src: src})
	return out
}

func (g *Generator) genInstruction(file string, scope symtab.ScopeId, inst *ast.Instruction) ir.Item {
	src := srcOf(file, inst)
	if strings.EqualFold(inst.Mnemonic, "CALL") {
		return g.genCall(file, scope, inst, src)
	}
	operands := make([]ir.Operand, len(inst.Operands))
	for i, op := range inst.Operands {
		operands[i] = g.resolveOperand(file, scope, op)
	}
	return ir.Instruction{Opcode: strings.ToUpper(inst.Mnemonic), Operands: operands, Src: src}
}

func (g *Generator) genCall(file string, scope symtab.ScopeId, inst *ast.Instruction, src ir.Source) ir.Item {
	target := g.resolveCallTarget(file, scope, inst.Target.Name)
	refs := make([]ir.Operand, len(inst.RefArgs))
	for i, a := range inst.RefArgs {
		refs[i] = g.resolveOperand(file, scope, a)
	}
	vals := make([]ir.Operand, len(inst.ValArgs))
	for i, a := range inst.ValArgs {
		vals[i] = g.resolveOperand(file, scope, a)
	}
	return ir.Instruction{
		Opcode: "CALL", Operands: []ir.Operand{target}, RefOperands: refs, ValOperands: vals,
		Meta: ir.CallSiteMeta{RefCount: len(refs), ValCount: len(vals)},
		Src:  src,
	}
}

// resolveCallTarget resolves a CALL's source-level target -- a bare name
// (same-file label or procedure) or a dotted `ALIAS.NAME` cross-file
// procedure reference (spec.md §3) -- to a qualified label naming its
// defining file, so same-named labels/procedures in different files never
// collide once every file's IR is concatenated into one program.
func (g *Generator) resolveCallTarget(file string, scope symtab.ScopeId, name string) ir.Operand {
	if strings.Contains(name, ".") {
		parts := strings.SplitN(name, ".", 2)
		if sym, ok := g.Table.ResolveCrossFile(file, parts[0], parts[1]); ok {
			return ir.LabelRef{Name: qualifiedLabel(sym.File, parts[1])}
		}
		if sym, ok := g.Table.ResolveBySuffix(file, parts[0], parts[1]); ok {
			return ir.LabelRef{Name: qualifiedLabel(sym.File, parts[1])}
		}
		return ir.LabelRef{Name: qualifiedLabel(file, name)}
	}
	if sym, ok := g.Table.Resolve(scope, file, name); ok {
		return ir.LabelRef{Name: qualifiedLabel(sym.File, name)}
	}
	return ir.LabelRef{Name: qualifiedLabel(file, name)}
}

// resolveOperand turns one AST operand expression into an IR operand,
// inlining constants and register aliases and resolving formal-parameter
// references to their synthetic FPR (spec.md §4.5).
func (g *Generator) resolveOperand(file string, scope symtab.ScopeId, n ast.Node) ir.Operand {
	switch node := n.(type) {
	case *ast.Register:
		return ir.Register{Name: canonicalRegisterName(node.Text)}
	case *ast.NumberLiteral:
		return ir.Immediate{Value: int32(node.Value)}
	case *ast.TypedLiteral:
		return ir.TypedImmediate{TypeName: strings.ToUpper(node.TypeName), Value: int32(node.Value)}
	case *ast.VectorLiteral:
		return ir.Vector{Components: toInt32Nodes(node.Components)}
	case *ast.LabelRef:
		return g.resolveName(file, scope, node.Name)
	default:
		return ir.Immediate{}
	}
}

// resolveName resolves a bare identifier used as an operand: a procedure's
// own formal parameter (if currently generating its body), a register
// alias (.REG), a constant (.DEFINE), or else a same-file label reference
// (spec.md §3, §9: cross-file label refs are CALL-only).
func (g *Generator) resolveName(file string, scope symtab.ScopeId, name string) ir.Operand {
	if len(g.paramStack) > 0 {
		if idx, ok := g.paramStack[len(g.paramStack)-1][strings.ToUpper(name)]; ok {
			return ir.Register{Name: fmt.Sprintf("FPR%d", idx)}
		}
	}
	if sym, ok := g.Table.Resolve(scope, file, name); ok {
		switch sym.Kind {
		case symtab.Alias:
			reg := sym.Meta.(ast.Register)
			return ir.Register{Name: canonicalRegisterName(reg.Text)}
		case symtab.Constant:
			return constantOperand(sym.Meta.(semantics.ConstantMeta))
		}
	}
	return ir.LabelRef{Name: qualifiedLabel(file, name)}
}

func constantOperand(meta semantics.ConstantMeta) ir.Operand {
	switch node := meta.ValueNode.(type) {
	case *ast.TypedLiteral:
		return ir.TypedImmediate{TypeName: strings.ToUpper(node.TypeName), Value: int32(node.Value)}
	case *ast.VectorLiteral:
		return ir.Vector{Components: toInt32Nodes(node.Components)}
	default:
		return ir.Immediate{Value: int32(meta.Value)}
	}
}

func canonicalRegisterName(text string) string {
	return strings.ToUpper(strings.TrimPrefix(text, "%"))
}

// qualifiedLabel namespaces a label/procedure name by its defining file, so
// the whole-program linker (internal/link) never conflates same-named
// labels declared in different source files once every file's IR has been
// concatenated into a single program (an implementation choice this
// module's multi-file linking needs that spec.md leaves implicit).
func qualifiedLabel(file, name string) string {
	return file + "#" + strings.ToUpper(name)
}

func placeComponents(cs []ast.PlaceComponent) []ir.PlaceComponent {
	out := make([]ir.PlaceComponent, len(cs))
	for i, c := range cs {
		out[i] = ir.PlaceComponent{Wildcard: c.Wildcard, Lo: c.Lo, Hi: c.Hi}
	}
	return out
}

func toInt32s(vs []int64) []int32 {
	out := make([]int32, len(vs))
	for i, v := range vs {
		out[i] = int32(v)
	}
	return out
}

func toInt32Nodes(ns []ast.Node) []int32 {
	out := make([]int32, len(ns))
	for i, n := range ns {
		if lit, ok := n.(*ast.NumberLiteral); ok {
			out[i] = int32(lit.Value)
		}
	}
	return out
}

func srcOf(file string, n ast.Node) ir.Source {
	pos := n.Position()
	return ir.Source{File: file, Line: pos.Line, Column: pos.Column}
}
