// Package layout implements the Layout Engine (spec.md §4.7/§4.8): it walks
// the flat, rewritten IR (internal/emit's output) with a moving cursor --
// position plus direction, mutated by core:org/core:dir and saved/restored
// by core:push_ctx/core:pop_ctx -- writing one molecule per opcode and
// operand cell and recording every placed coordinate's linear address,
// source location and label binding for the linker (internal/link) to
// finish.
//
// The teacher's asm/parser.go places machine words at a simple incrementing
// program counter (github.com/db47h/ngaro/asm), one dimension, one
// direction, no saved contexts. This module's cursor generalizes that same
// "current position, write, advance" discipline to N dimensions, variable
// direction and nested placement contexts, since spec.md's position
// independence requirement needs labels resolved as relative vectors
// between two cursor positions rather than absolute linear addresses.
package layout

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/rainco77/evochora-sub013/artifact"
	"github.com/rainco77/evochora-sub013/env"
	"github.com/rainco77/evochora-sub013/internal/ir"
	"github.com/rainco77/evochora-sub013/isa"
	"github.com/rainco77/evochora-sub013/molecule"
	"github.com/rainco77/evochora-sub013/organism"
)

// PendingLabelRef is one label/vector-shaped operand still waiting for its
// target's coordinate to be known. Cells are the consecutive coordinates
// reserved for its relative-vector encoding; Site is the instruction's own
// placement coordinate, so the linker computes Target - Site (spec.md
// §4.8).
type PendingLabelRef struct {
	Site   env.Coord
	Cells  []env.Coord
	Target string
}

// Placement is one core:place directive's resolved effect: a single
// (Type, Value) molecule to write at Coord in the initial world (spec.md
// §4.5).
type Placement struct {
	Coord env.Coord
	Type  molecule.Type
	Value int32
}

// Result is everything the layout pass recorded, handed to internal/link to
// finish resolving into a *artifact.ProgramArtifact.
type Result struct {
	Dims int

	// Cells holds every placed code molecule, keyed by coordinate (the raw
	// value -- PendingLabelRef cells are present here too, zero-valued,
	// until the linker fills them in).
	Cells map[string]molecule.Molecule

	Labels map[string]env.Coord

	PendingRefs []PendingLabelRef

	Placements []Placement

	// Addresses assigns a linear address, in placement order, to every
	// coordinate the pass wrote a code molecule to.
	Addresses  map[string]int
	AddrToCoord map[int]env.Coord

	// LabelAddresses maps a label name to the linear address of the cell it
	// was bound to (its first following opcode or, if none followed before
	// the file ended, absent).
	LabelAddresses map[string]int

	SourceMap map[int]artifact.SourceInfo

	// CallSites maps a CALL instruction's linear address to its original
	// [refCount, valCount] (spec.md §3, §6).
	CallSites map[int][]int

	nextAddr int
}

func newResult(dims int) *Result {
	return &Result{
		Dims:           dims,
		Cells:          map[string]molecule.Molecule{},
		Labels:         map[string]env.Coord{},
		Addresses:      map[string]int{},
		AddrToCoord:    map[int]env.Coord{},
		LabelAddresses: map[string]int{},
		SourceMap:      map[int]artifact.SourceInfo{},
		CallSites:      map[int][]int{},
	}
}

// placerContext is one saved (position, direction) pair, for core:push_ctx/
// core:pop_ctx (spec.md §4.5).
type placerContext struct {
	pos env.Coord
	dir env.Coord
}

// Placer walks IR and builds a Result. Dims fixes the world's
// dimensionality (every vector/label operand and every .ORG/.DIR/.PLACE
// coordinate must match it).
type Placer struct {
	dims int
}

// New creates a Placer for a world of the given dimensionality.
func New(dims int) *Placer {
	return &Placer{dims: dims}
}

// Place walks items in order and returns the accumulated Result, or an
// error if an item's shape doesn't match the world's dimensionality.
func (p *Placer) Place(items []ir.Item) (*Result, error) {
	res := newResult(p.dims)

	pos := make(env.Coord, p.dims)
	dir := make(env.Coord, p.dims)
	if p.dims > 0 {
		dir[0] = 1
	}
	var stack []placerContext
	var pendingLabels []string

	for _, item := range items {
		switch node := item.(type) {
		case ir.Label:
			pendingLabels = append(pendingLabels, node.Name)
			res.Labels[node.Name] = pos.Clone()

		case ir.Directive:
			switch node.Name {
			case ir.DirOrg:
				v, err := vectorArg(node.Args, p.dims)
				if err != nil {
					return nil, errors.Wrap(err, "core:org")
				}
				pos = v

			case ir.DirDir:
				v, err := vectorArg(node.Args, p.dims)
				if err != nil {
					return nil, errors.Wrap(err, "core:dir")
				}
				dir = v

			case ir.DirPushCtx:
				stack = append(stack, placerContext{pos: pos.Clone(), dir: dir.Clone()})

			case ir.DirPopCtx:
				if len(stack) == 0 {
					return nil, errors.New("core:pop_ctx with no matching core:push_ctx")
				}
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				pos, dir = top.pos, top.dir

			case ir.DirPlace:
				placements, err := p.resolvePlace(node.Meta.(ir.PlaceArgs), pos)
				if err != nil {
					return nil, errors.Wrap(err, "core:place")
				}
				res.Placements = append(res.Placements, placements...)

			case ir.DirProcEnter, ir.DirProcExit:
				// pure bookkeeping markers, no cells of their own.
			}

		case ir.Instruction:
			addr, err := p.placeInstruction(res, node, pos, dir)
			if err != nil {
				return nil, err
			}
			for _, name := range pendingLabels {
				res.LabelAddresses[name] = addr
			}
			pendingLabels = nil
			for range make([]struct{}, instructionLength(node, p.dims)) {
				pos = pos.Add(dir)
			}
		}
	}
	return res, nil
}

// placeInstruction writes one instruction's opcode cell and operand cells
// starting at pos, advancing a local cursor by dir one cell at a time, and
// returns the linear address assigned to the opcode cell.
func (p *Placer) placeInstruction(res *Result, inst ir.Instruction, pos, dir env.Coord) (int, error) {
	id, ok := isa.Lookup(inst.Opcode)
	if !ok {
		return 0, errors.Errorf("layout: unknown opcode %s", inst.Opcode)
	}

	addr := res.place(pos, molecule.New(molecule.CODE, int(id)))
	res.SourceMap[addr] = artifact.SourceInfo{File: inst.Src.File, Line: inst.Src.Line, Column: inst.Src.Column}

	if meta, ok := inst.Meta.(ir.CallSiteMeta); ok {
		res.CallSites[addr] = []int{meta.RefCount, meta.ValCount}
	}

	// Operand cell types and widths follow the IR operand's own shape
	// (Register/Immediate/TypedImmediate/Vector/LabelRef), not the opcode's
	// Signature -- the signature only matters to the semantic analyzer,
	// which has already validated operand kinds by this point.
	cur := pos.Clone()
	for i, op := range inst.Operands {
		cur = cur.Add(dir)
		next, err := p.placeOperand(res, op, cur, dir, pos)
		if err != nil {
			return 0, errors.Wrapf(err, "%s operand %d", inst.Opcode, i+1)
		}
		cur = next
	}
	return addr, nil
}

// placeOperand writes one operand's cell(s) at (or starting at) cell,
// advancing by dir for each additional cell a vector/label operand needs,
// and returns the coordinate of the last cell it wrote (so the caller's
// running cursor lands correctly for the following operand).
func (p *Placer) placeOperand(res *Result, op ir.Operand, cell, dir, site env.Coord) (env.Coord, error) {
	switch v := op.(type) {
	case ir.Register:
		class, idx, err := registerClassIndex(v.Name)
		if err != nil {
			return cell, err
		}
		res.place(cell, molecule.New(molecule.DATA, isa.EncodeRegister(organism.RegisterClass(class), idx)))
		return cell, nil

	case ir.Immediate:
		res.place(cell, molecule.New(molecule.DATA, int(v.Value)))
		return cell, nil

	case ir.TypedImmediate:
		t, ok := molecule.ParseType(v.TypeName)
		if !ok {
			return cell, errors.Errorf("unknown molecule type %s", v.TypeName)
		}
		res.place(cell, molecule.New(t, int(v.Value)))
		return cell, nil

	case ir.Vector:
		c := cell.Clone()
		for i, comp := range v.Components {
			if i > 0 {
				c = c.Add(dir)
			}
			res.place(c, molecule.New(molecule.DATA, int(comp)))
		}
		return c, nil

	case ir.LabelRef:
		cells := make([]env.Coord, p.dims)
		c := cell.Clone()
		for i := 0; i < p.dims; i++ {
			if i > 0 {
				c = c.Add(dir)
			}
			cells[i] = c.Clone()
			res.place(c, molecule.New(molecule.DATA, 0))
		}
		res.PendingRefs = append(res.PendingRefs, PendingLabelRef{Site: site, Cells: cells, Target: v.Name})
		return c, nil

	default:
		return cell, fmt.Errorf("layout: unsupported operand %T", op)
	}
}

// resolvePlace enumerates every coordinate a core:place directive covers,
// relative to cur (the cursor position at the time .PLACE appeared): a
// fixed component contributes cur's value on that axis plus every offset in
// the [lo, hi] range spec.md's .PLACE syntax gives it; a wildcard component
// contributes only the cursor's own
// value on that axis, since the layout pass (and the artifact it produces)
// never sees the world's concrete extent to sweep a whole axis (an
// implementation choice documented in DESIGN.md).
func (p *Placer) resolvePlace(args ir.PlaceArgs, cur env.Coord) ([]Placement, error) {
	if len(args.Components) != p.dims {
		return nil, errors.Errorf("expected %d components, got %d", p.dims, len(args.Components))
	}
	t, ok := molecule.ParseType(args.TypeName)
	if !ok {
		return nil, errors.Errorf("unknown molecule type %s", args.TypeName)
	}

	ranges := make([][]int64, p.dims)
	for i, c := range args.Components {
		if c.Wildcard {
			ranges[i] = []int64{int64(cur[i])}
			continue
		}
		lo, hi := c.Lo, c.Hi
		if hi < lo {
			lo, hi = hi, lo
		}
		for v := lo; v <= hi; v++ {
			ranges[i] = append(ranges[i], int64(cur[i])+v)
		}
	}

	var out []Placement
	var walk func(axis int, coord env.Coord)
	walk = func(axis int, coord env.Coord) {
		if axis == p.dims {
			out = append(out, Placement{Coord: coord.Clone(), Type: t, Value: args.Value})
			return
		}
		for _, v := range ranges[axis] {
			coord[axis] = int(v)
			walk(axis+1, coord)
		}
	}
	walk(0, make(env.Coord, p.dims))
	return out, nil
}

// place records m at coordinate c, assigns it the next sequential linear
// address, and returns that address.
func (res *Result) place(c env.Coord, m molecule.Molecule) int {
	addr := res.nextAddr
	res.nextAddr++
	res.Cells[c.Key()] = m
	res.Addresses[c.Key()] = addr
	res.AddrToCoord[addr] = c.Clone()
	return addr
}

// vectorArg reads a single Vector operand out of a directive's Args list
// (core:org/core:dir each carry exactly one).
func vectorArg(args []ir.Operand, dims int) (env.Coord, error) {
	if len(args) != 1 {
		return nil, errors.New("expected exactly one vector argument")
	}
	v, ok := args[0].(ir.Vector)
	if !ok {
		return nil, errors.New("expected a vector argument")
	}
	if len(v.Components) != dims {
		return nil, errors.Errorf("expected %d components, got %d", dims, len(v.Components))
	}
	out := make(env.Coord, dims)
	for i, c := range v.Components {
		out[i] = int(c)
	}
	return out, nil
}

// instructionLength returns how many cells (opcode plus operands) inst
// occupies, mirroring isa's own (unexported) layout-time length
// computation (isa/planners.go, cellWidth/instructionLength) so the two
// stay in lock-step: vector- and label-shaped operands occupy one cell per
// world dimension, everything else occupies one cell.
func instructionLength(inst ir.Instruction, dims int) int {
	n := 1
	for _, op := range inst.Operands {
		switch op.(type) {
		case ir.Vector, ir.LabelRef:
			n += dims
		default:
			n++
		}
	}
	return n
}

// registerClassIndex maps a canonical register name (e.g. "DR0", "FPR3",
// "LR1") to its organism.RegisterClass/index pair, duplicating
// internal/semantics.ParseRegisterText's class table rather than importing
// semantics from layout (layout has no other reason to depend on the
// semantic analyzer).
func registerClassIndex(name string) (class int, idx int, err error) {
	prefixes := map[string]int{"DR": 0, "PR": 1, "FPR": 2, "LR": 3}
	for prefix, c := range prefixes {
		if len(name) > len(prefix) && name[:len(prefix)] == prefix {
			n := 0
			for _, ch := range name[len(prefix):] {
				if ch < '0' || ch > '9' {
					return 0, 0, errors.Errorf("malformed register %s", name)
				}
				n = n*10 + int(ch-'0')
			}
			return c, n, nil
		}
	}
	return 0, 0, errors.Errorf("malformed register %s", name)
}
