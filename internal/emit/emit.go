// Package emit implements the fixed, ordered emission-rule pipeline that
// rewrites IR between generation (internal/irgen) and layout
// (internal/layout): spec.md §4.6. Two rewrites run in order -- caller
// marshalling (with its conditional-CALL guard variant), then procedure
// marshalling -- each a pure function of its input list. Caller marshalling
// is idempotent: a second pass adds no PUSH/POP around an already-marshalled
// CALL (spec.md §8, "Round-trip / idempotence"). Procedure marshalling is
// not: a second pass over already-rewritten IR adds another prologue and
// epilogue to every procedure, since core:proc_enter/core:proc_exit remain
// in its output.
//
// The teacher has no marshalling step of its own (Ngaro subroutines pass
// arguments on the data stack by hand, with no compiler-synthesized
// prologue/epilogue); this rewrite is grounded in the shape of
// Consensys-go-corset's own lowering passes -- a pipeline of pure
// list-to-list transforms applied in a fixed order -- generalized here to
// the specific REF/VAL calling convention spec.md §4.6 describes.
package emit

import (
	"fmt"
	"strings"

	"github.com/rainco77/evochora-sub013/internal/ir"
)

// negation maps each predicate opcode that may precede a marshalled CALL to
// the opcode it is negated into around it (spec.md §4.6 rule 2).
var negation = map[string]string{
	"IFR":  "INR",
	"IFPR": "INPR",
	"IFPI": "INPI",
	"IFPS": "INPS",
}

// Rewrite runs the full emission pipeline over a whole program's
// concatenated IR (every compiled file's internal/irgen output, in file
// order) and returns the rewritten sequence internal/layout consumes.
func Rewrite(items []ir.Item) []ir.Item {
	return marshalProcedures(marshalCalls(items))
}

// marshalCalls implements emission rules 1 and 2 (spec.md §4.6): every CALL
// carrying REF/VAL operands is expanded into its push/CALL/pop sequence,
// and a conditional predicate immediately preceding such a CALL is negated
// and wrapped in a guard jump around the whole expansion.
func marshalCalls(items []ir.Item) []ir.Item {
	out := make([]ir.Item, 0, len(items))
	seq := 0
	for i := 0; i < len(items); i++ {
		inst, ok := items[i].(ir.Instruction)
		if !ok || !strings.EqualFold(inst.Opcode, "CALL") || (len(inst.RefOperands) == 0 && len(inst.ValOperands) == 0) {
			out = append(out, items[i])
			continue
		}

		marshalled := marshalCall(inst)
		guard, hasGuard := detachGuard(&out)
		if !hasGuard {
			out = append(out, marshalled...)
			continue
		}
		seq++
		label := fmt.Sprintf("_safe_call_%d", seq)
		out = append(out, negateConditional(guard))
		out = append(out, ir.Instruction{Opcode: "JMPI", Operands: []ir.Operand{ir.LabelRef{Name: label}}, Src: guard.SourceInfo()})
		out = append(out, marshalled...)
		out = append(out, ir.Label{Name: label, Src: inst.Src})
	}
	return out
}

// marshalCall expands one CALL-with-operands instruction into its
// marshalled sequence (spec.md §4.6 rule 1, Testable Property §8 #2): VAL
// operands pushed in reverse declaration order, then REF operands pushed in
// reverse declaration order, the reduced CALL itself, then REF operands
// popped back in forward declaration order.
func marshalCall(inst ir.Instruction) []ir.Item {
	var out []ir.Item
	for i := len(inst.ValOperands) - 1; i >= 0; i-- {
		out = append(out, pushOperand(inst.ValOperands[i], inst.Src))
	}
	for i := len(inst.RefOperands) - 1; i >= 0; i-- {
		out = append(out, pushOperand(inst.RefOperands[i], inst.Src))
	}
	out = append(out, ir.Instruction{
		Opcode: "CALL", Operands: inst.Operands,
		Meta: ir.CallSiteMeta{RefCount: len(inst.RefOperands), ValCount: len(inst.ValOperands)},
		Src:  inst.Src,
	})
	for _, ref := range inst.RefOperands {
		out = append(out, popOperand(ref, inst.Src))
	}
	return out
}

// pushOperand emits the PUSH/PUSI/PUSV variant matching op's kind (spec.md
// §4.6 rule 1).
func pushOperand(op ir.Operand, src ir.Source) ir.Item {
	switch v := op.(type) {
	case ir.Register:
		return ir.Instruction{Opcode: "PUSH", Operands: []ir.Operand{v}, Src: src}
	case ir.LabelRef:
		return ir.Instruction{Opcode: "PUSV", Operands: []ir.Operand{v}, Src: src}
	default:
		return ir.Instruction{Opcode: "PUSI", Operands: []ir.Operand{op}, Src: src}
	}
}

// popOperand restores a REF actual after the call returns. Only registers
// are ever REF-passed (spec.md §4.4 validates CALL REF args as registers),
// so POP always targets a register.
func popOperand(op ir.Operand, src ir.Source) ir.Item {
	return ir.Instruction{Opcode: "POP", Operands: []ir.Operand{op}, Src: src}
}

// detachGuard pops the trailing conditional predicate instruction off out,
// if one sits there, for rule 2's guard transform.
func detachGuard(out *[]ir.Item) (ir.Instruction, bool) {
	if len(*out) == 0 {
		return ir.Instruction{}, false
	}
	last, ok := (*out)[len(*out)-1].(ir.Instruction)
	if !ok {
		return ir.Instruction{}, false
	}
	if _, guardable := negation[strings.ToUpper(last.Opcode)]; !guardable {
		return ir.Instruction{}, false
	}
	*out = (*out)[:len(*out)-1]
	return last, true
}

// negateConditional returns inst with its opcode replaced by its negation
// (IFR→INR, etc.), same operands and source (spec.md §4.6 rule 2).
func negateConditional(inst ir.Instruction) ir.Item {
	inst.Opcode = negation[strings.ToUpper(inst.Opcode)]
	return inst
}

// procFrame tracks one open core:proc_enter/core:proc_exit pair while
// marshalProcedures walks the item list: its formal parameters, and the
// index of every RET instruction seen at this nesting level so far (an
// early-return procedure may RET more than once before its proc_exit).
type procFrame struct {
	meta ir.ProcEnterArgs
	rets []int
}

// marshalProcedures implements emission rule 3 (spec.md §4.6, Testable
// Property §8 #3): every core:proc_enter gets a prologue popping each
// formal parameter, in declaration order, into its synthetic FPR; every
// RET within that procedure's body -- not just a final one -- gets an
// epilogue pushing REF parameters back, in reverse declaration order,
// immediately before it, so an early-return path restores REF actuals the
// same as the procedure's normal exit.
func marshalProcedures(items []ir.Item) []ir.Item {
	out := make([]ir.Item, 0, len(items))
	var stack []*procFrame
	for _, item := range items {
		if inst, ok := item.(ir.Instruction); ok && strings.EqualFold(inst.Opcode, "RET") && len(stack) > 0 {
			out = append(out, item)
			top := stack[len(stack)-1]
			top.rets = append(top.rets, len(out)-1)
			continue
		}
		dir, ok := item.(ir.Directive)
		if !ok || dir.Namespace != "core" {
			out = append(out, item)
			continue
		}
		switch dir.Name {
		case ir.DirProcEnter:
			meta := dir.Meta.(ir.ProcEnterArgs)
			stack = append(stack, &procFrame{meta: meta})
			out = append(out, item)
			for _, p := range meta.Params {
				out = append(out, ir.Instruction{Opcode: "POP", Operands: []ir.Operand{p}, Src: dir.Src})
			}
		case ir.DirProcExit:
			if len(stack) == 0 {
				out = append(out, item)
				continue
			}
			frame := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			epilogue := epilogueFor(frame.meta, dir.Src)
			if len(frame.rets) == 0 {
				// Malformed procedure with no explicit RET: append the
				// epilogue right before proc_exit instead of dropping it.
				out = append(out, epilogue...)
			}
			// Splice from the highest index down so inserting one
			// epilogue never invalidates an index recorded for an
			// earlier RET in the same procedure.
			for i := len(frame.rets) - 1; i >= 0; i-- {
				at := frame.rets[i]
				tail := append(append([]ir.Item{}, epilogue...), out[at:]...)
				out = append(out[:at], tail...)
			}
			out = append(out, item)
		default:
			out = append(out, item)
		}
	}
	return out
}

// epilogueFor builds the REF-restoring PUSH sequence for one procedure exit:
// FPR(m-1)…FPR0, the reverse of the prologue's pop order, so the caller's
// own restore loop (which pops a1 first) sees a1 on top of the stack
// (spec.md §8 Testable Property #3).
func epilogueFor(meta ir.ProcEnterArgs, src ir.Source) []ir.Item {
	out := make([]ir.Item, 0, meta.RefCount)
	for i := meta.RefCount - 1; i >= 0; i-- {
		out = append(out, ir.Instruction{Opcode: "PUSH", Operands: []ir.Operand{meta.Params[i]}, Src: src})
	}
	return out
}

