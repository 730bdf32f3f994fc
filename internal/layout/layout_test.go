package layout_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rainco77/evochora-sub013/env"
	"github.com/rainco77/evochora-sub013/internal/ir"
	"github.com/rainco77/evochora-sub013/internal/layout"
	"github.com/rainco77/evochora-sub013/molecule"
)

func reg(name string) ir.Register { return ir.Register{Name: name} }

func TestPlaceSimpleInstructionAdvancesCursorByOperandCount(t *testing.T) {
	items := []ir.Item{
		ir.Instruction{Opcode: "SETI", Operands: []ir.Operand{reg("DR0"), ir.Immediate{Value: 7}}},
		ir.Instruction{Opcode: "NOP"},
	}
	res, err := layout.New(2).Place(items)
	require.NoError(t, err)

	setiCell, ok := res.Cells[env.Coord{0, 0}.Key()]
	require.True(t, ok)
	require.Equal(t, molecule.CODE, setiCell.Type())

	opCell, ok := res.Cells[env.Coord{1, 0}.Key()]
	require.True(t, ok)
	require.Equal(t, molecule.DATA, opCell.Type())

	immCell, ok := res.Cells[env.Coord{2, 0}.Key()]
	require.True(t, ok)
	require.Equal(t, 7, immCell.Value())

	// NOP (one cell) was placed right after SETI's three cells, which took
	// linear addresses 0..2.
	nopCell, ok := res.Cells[env.Coord{3, 0}.Key()]
	require.True(t, ok)
	require.Equal(t, molecule.CODE, nopCell.Type())
	require.Equal(t, 3, res.Addresses[env.Coord{3, 0}.Key()])
}

func TestPlaceLabelBindsToFollowingInstructionAddress(t *testing.T) {
	items := []ir.Item{
		ir.Label{Name: "main.s#START"},
		ir.Instruction{Opcode: "NOP"},
	}
	res, err := layout.New(1).Place(items)
	require.NoError(t, err)

	require.Equal(t, env.Coord{0}, res.Labels["main.s#START"])
	require.Equal(t, 0, res.LabelAddresses["main.s#START"])
}

func TestPlaceOrgAndDirMoveTheCursor(t *testing.T) {
	items := []ir.Item{
		ir.Directive{Namespace: "core", Name: ir.DirOrg, Args: []ir.Operand{ir.Vector{Components: []int32{5, 5}}}},
		ir.Directive{Namespace: "core", Name: ir.DirDir, Args: []ir.Operand{ir.Vector{Components: []int32{0, 1}}}},
		ir.Instruction{Opcode: "NOP"},
		ir.Instruction{Opcode: "NOP"},
	}
	res, err := layout.New(2).Place(items)
	require.NoError(t, err)

	_, ok := res.Cells[env.Coord{5, 5}.Key()]
	require.True(t, ok)
	_, ok = res.Cells[env.Coord{5, 6}.Key()]
	require.True(t, ok, "second NOP should advance along the new .DIR, not the default axis")
}

func TestPlacePushPopCtxRestoresPositionAndDirection(t *testing.T) {
	items := []ir.Item{
		ir.Instruction{Opcode: "NOP"}, // addr 0 at (0,0)
		ir.Directive{Namespace: "core", Name: ir.DirPushCtx},
		ir.Directive{Namespace: "core", Name: ir.DirOrg, Args: []ir.Operand{ir.Vector{Components: []int32{9, 9}}}},
		ir.Instruction{Opcode: "NOP"}, // addr at (9,9), discarded on pop
		ir.Directive{Namespace: "core", Name: ir.DirPopCtx},
		ir.Instruction{Opcode: "NOP"}, // should land back at (1,0)
	}
	res, err := layout.New(2).Place(items)
	require.NoError(t, err)

	_, ok := res.Cells[env.Coord{1, 0}.Key()]
	require.True(t, ok, "pop_ctx should restore the cursor saved before push_ctx")
}

func TestPlacePopCtxWithoutPushIsAnError(t *testing.T) {
	items := []ir.Item{
		ir.Directive{Namespace: "core", Name: ir.DirPopCtx},
	}
	_, err := layout.New(1).Place(items)
	require.Error(t, err)
}

func TestPlaceVectorAndLabelRefOperandsOccupyOneCellPerDimension(t *testing.T) {
	items := []ir.Item{
		ir.Instruction{Opcode: "SEEK", Operands: []ir.Operand{reg("LR0"), ir.Vector{Components: []int32{1, 2, 3}}}},
		ir.Instruction{Opcode: "NOP"},
	}
	res, err := layout.New(3).Place(items)
	require.NoError(t, err)

	// opcode cell + LR operand cell + 3 vector cells = 5 cells before NOP.
	_, ok := res.Cells[env.Coord{5, 0, 0}.Key()]
	require.True(t, ok)

	pendingItems := []ir.Item{
		ir.Instruction{Opcode: "PUSV", Operands: []ir.Operand{ir.LabelRef{Name: "main.s#TARGET"}}},
	}
	res2, err := layout.New(2).Place(pendingItems)
	require.NoError(t, err)
	require.Len(t, res2.PendingRefs, 1)
	require.Equal(t, "main.s#TARGET", res2.PendingRefs[0].Target)
	require.Len(t, res2.PendingRefs[0].Cells, 2)
}

func TestPlaceCallSiteMetaRecordsRefValCounts(t *testing.T) {
	items := []ir.Item{
		ir.Instruction{
			Opcode:   "CALL",
			Operands: []ir.Operand{ir.LabelRef{Name: "main.s#PROC"}},
			Meta:     ir.CallSiteMeta{RefCount: 2, ValCount: 1},
		},
	}
	res, err := layout.New(1).Place(items)
	require.NoError(t, err)
	require.Equal(t, []int{2, 1}, res.CallSites[0])
}

func TestPlaceUnknownOpcodeIsAnError(t *testing.T) {
	items := []ir.Item{ir.Instruction{Opcode: "NOTANOPCODE"}}
	_, err := layout.New(1).Place(items)
	require.Error(t, err)
}

func TestPlaceDirectiveFixedRangeEnumeratesEveryCoordinate(t *testing.T) {
	items := []ir.Item{
		ir.Directive{
			Namespace: "core",
			Name:      ir.DirPlace,
			Meta: ir.PlaceArgs{
				TypeName: "ENERGY",
				Value:    100,
				Components: []ir.PlaceComponent{
					{Lo: 0, Hi: 1},
					{Wildcard: true},
				},
			},
		},
	}
	res, err := layout.New(2).Place(items)
	require.NoError(t, err)
	require.Len(t, res.Placements, 2)
	for _, p := range res.Placements {
		require.Equal(t, molecule.ENERGY, p.Type)
		require.Equal(t, int32(100), p.Value)
		require.Equal(t, 0, p.Coord[1], "wildcard component pins to the cursor, which is still the origin")
	}
}
