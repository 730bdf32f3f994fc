package emit_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rainco77/evochora-sub013/internal/emit"
	"github.com/rainco77/evochora-sub013/internal/ir"
)

func instr(opcode string, ops ...ir.Operand) ir.Instruction {
	return ir.Instruction{Opcode: opcode, Operands: ops}
}

func opcodes(items []ir.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if inst, ok := it.(ir.Instruction); ok {
			out = append(out, inst.Opcode)
		} else {
			out = append(out, "")
		}
	}
	return out
}

func TestMarshalCallPushesValThenRefReverseOrder(t *testing.T) {
	call := ir.Instruction{
		Opcode:      "CALL",
		Operands:    []ir.Operand{ir.LabelRef{Name: "proc"}},
		ValOperands: []ir.Operand{ir.Immediate{Value: 1}, ir.Immediate{Value: 2}},
		RefOperands: []ir.Operand{ir.Register{Name: "DR0"}, ir.Register{Name: "DR1"}},
	}
	out := emit.Rewrite([]ir.Item{call})

	require.Equal(t, []string{"PUSI", "PUSI", "PUSH", "PUSH", "CALL", "POP", "POP"}, opcodes(out))

	// VAL operands pushed in reverse declaration order: 2 then 1.
	require.Equal(t, ir.Immediate{Value: 2}, out[0].(ir.Instruction).Operands[0])
	require.Equal(t, ir.Immediate{Value: 1}, out[1].(ir.Instruction).Operands[0])
	// REF operands pushed in reverse declaration order: DR1 then DR0.
	require.Equal(t, ir.Register{Name: "DR1"}, out[2].(ir.Instruction).Operands[0])
	require.Equal(t, ir.Register{Name: "DR0"}, out[3].(ir.Instruction).Operands[0])
	// REF operands popped back in forward declaration order: DR0 then DR1.
	require.Equal(t, ir.Register{Name: "DR0"}, out[5].(ir.Instruction).Operands[0])
	require.Equal(t, ir.Register{Name: "DR1"}, out[6].(ir.Instruction).Operands[0])

	call2 := out[4].(ir.Instruction)
	require.Equal(t, ir.CallSiteMeta{RefCount: 2, ValCount: 2}, call2.Meta)
}

func TestMarshalCallSkipsCallsWithoutOperands(t *testing.T) {
	call := ir.Instruction{Opcode: "CALL", Operands: []ir.Operand{ir.LabelRef{Name: "proc"}}}
	out := emit.Rewrite([]ir.Item{call})
	require.Equal(t, []ir.Item{call}, out)
}

func TestMarshalCallNegatesPrecedingGuardAndInsertsSafeLabel(t *testing.T) {
	items := []ir.Item{
		instr("IFR", ir.Register{Name: "DR0"}),
		ir.Instruction{
			Opcode:      "CALL",
			Operands:    []ir.Operand{ir.LabelRef{Name: "proc"}},
			RefOperands: []ir.Operand{ir.Register{Name: "DR0"}},
		},
	}
	out := emit.Rewrite(items)

	require.Equal(t, "INR", out[0].(ir.Instruction).Opcode)
	jmp, ok := out[1].(ir.Instruction)
	require.True(t, ok)
	require.Equal(t, "JMPI", jmp.Opcode)
	label, ok := jmp.Operands[0].(ir.LabelRef)
	require.True(t, ok)
	require.Equal(t, "_safe_call_1", label.Name)

	last, ok := out[len(out)-1].(ir.Label)
	require.True(t, ok)
	require.Equal(t, "_safe_call_1", last.Name)
}

func procEnter(refParams []string, valParams []string) ir.Directive {
	params := make([]ir.Register, 0, len(refParams)+len(valParams))
	for _, n := range refParams {
		params = append(params, ir.Register{Name: n})
	}
	for _, n := range valParams {
		params = append(params, ir.Register{Name: n})
	}
	return ir.Directive{
		Namespace: "core",
		Name:      ir.DirProcEnter,
		Meta:      ir.ProcEnterArgs{Params: params, RefCount: len(refParams)},
	}
}

func procExit() ir.Directive {
	return ir.Directive{Namespace: "core", Name: ir.DirProcExit}
}

func TestMarshalProceduresSingleRetGetsEpilogueBeforeIt(t *testing.T) {
	items := []ir.Item{
		procEnter([]string{"%FPR0"}, nil),
		instr("ADD", ir.Register{Name: "%FPR0"}),
		instr("RET"),
		procExit(),
	}
	out := emit.Rewrite(items)

	require.Equal(t,
		[]string{"", "POP", "ADD", "PUSH", "RET", ""},
		opcodes(out))
}

// TestMarshalProceduresEarlyReturnGetsItsOwnEpilogue guards against the
// epilogue only ever being spliced before the final RET in a procedure: an
// early-return path must restore its REF actuals too, not just the normal
// exit path.
func TestMarshalProceduresEarlyReturnGetsItsOwnEpilogue(t *testing.T) {
	items := []ir.Item{
		procEnter([]string{"%FPR0"}, nil),
		instr("IFR", ir.Register{Name: "%FPR0"}),
		instr("RET"), // early return
		instr("ADD", ir.Register{Name: "%FPR0"}),
		instr("RET"), // normal exit
		procExit(),
	}
	out := emit.Rewrite(items)

	require.Equal(t,
		[]string{"", "POP", "IFR", "PUSH", "RET", "ADD", "PUSH", "RET", ""},
		opcodes(out))

	// Both PUSH epilogues restore the same FPR0.
	require.Equal(t, ir.Register{Name: "%FPR0"}, out[3].(ir.Instruction).Operands[0])
	require.Equal(t, ir.Register{Name: "%FPR0"}, out[6].(ir.Instruction).Operands[0])
}

func TestMarshalProceduresNestedProcsDoNotShareRetEpilogues(t *testing.T) {
	items := []ir.Item{
		procEnter([]string{"%FPR0"}, nil),
		procEnter([]string{"%FPR1"}, nil),
		instr("RET"), // inner's own RET
		procExit(),   // closes inner
		instr("RET"), // outer's own RET
		procExit(),   // closes outer
	}
	out := emit.Rewrite(items)

	require.Equal(t,
		[]string{"", "POP", "", "POP", "PUSH", "RET", "", "PUSH", "RET", ""},
		opcodes(out))
	require.Equal(t, ir.Register{Name: "%FPR1"}, out[4].(ir.Instruction).Operands[0])
	require.Equal(t, ir.Register{Name: "%FPR0"}, out[7].(ir.Instruction).Operands[0])
}

func TestMarshalProceduresNoRefParamsHasNoEpilogue(t *testing.T) {
	items := []ir.Item{
		procEnter(nil, []string{"%FPR0"}),
		instr("RET"),
		procExit(),
	}
	out := emit.Rewrite(items)
	require.Equal(t, []string{"", "POP", "RET", ""}, opcodes(out))
}

func TestMarshalProceduresMalformedNoRetStillGetsEpilogue(t *testing.T) {
	items := []ir.Item{
		procEnter([]string{"%FPR0"}, nil),
		instr("ADD", ir.Register{Name: "%FPR0"}),
		procExit(),
	}
	out := emit.Rewrite(items)
	require.Equal(t, []string{"", "POP", "ADD", "PUSH", ""}, opcodes(out))
}

// TestMarshalCallRewriteIsIdempotent covers caller marshalling's own
// idempotence (spec.md §8 "Round-trip / idempotence"): a marshalled CALL's
// final reduced form carries no RefOperands/ValOperands, so a second pass
// no longer matches marshalCalls' rewrite condition.
func TestMarshalCallRewriteIsIdempotent(t *testing.T) {
	items := []ir.Item{
		ir.Instruction{
			Opcode:      "CALL",
			Operands:    []ir.Operand{ir.LabelRef{Name: "proc"}},
			RefOperands: []ir.Operand{ir.Register{Name: "DR0"}},
		},
	}
	once := emit.Rewrite(items)
	twice := emit.Rewrite(once)
	require.Equal(t, once, twice)
}
