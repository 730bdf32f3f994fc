package isa

import (
	"github.com/rainco77/evochora-sub013/env"
	"github.com/rainco77/evochora-sub013/molecule"
	"github.com/rainco77/evochora-sub013/organism"
)

// regClassStride packs a register class and index into a single molecule
// value: value = class*regClassStride + index. The layout engine uses the
// same encoding when emitting register operands (internal/layout).
const regClassStride = 1024

// EncodeRegister packs a register class/index pair into a molecule value.
func EncodeRegister(class organism.RegisterClass, idx int) int {
	return int(class)*regClassStride + idx
}

// DecodeRegister unpacks a register molecule value into class and index.
func DecodeRegister(v int) (organism.RegisterClass, int) {
	return organism.RegisterClass(v / regClassStride), v % regClassStride
}

// cursor walks the environment starting at an organism's IP, stepping by its
// DV, one operand cell at a time -- the same directional convention the
// layout engine used to place the instruction's arguments (spec.md §4.7).
type cursor struct {
	env *env.Environment
	pos env.Coord
	dv  env.Coord
}

func newCursor(o *organism.Organism, e *env.Environment) *cursor {
	return &cursor{env: e, pos: o.IP.Clone(), dv: o.DV}
}

func (c *cursor) next() env.Coord {
	c.pos = c.env.GetNextPosition(c.pos, c.dv)
	return c.pos
}

// decodedRegister is one register-operand cell decoded into its class and
// index, as readRegister returns it. The register's value is not read here;
// getLike reads it at execute time (zero for a location register, whose
// value lives in organism.LocationRegisters instead).
type decodedRegister struct {
	Class organism.RegisterClass
	Index int
}

func (c *cursor) readRegister() decodedRegister {
	coord := c.next()
	m := c.env.GetMolecule(coord)
	class, idx := DecodeRegister(m.Value())
	return decodedRegister{Class: class, Index: idx}
}

func (c *cursor) readImmediate() int32 {
	coord := c.next()
	return int32(c.env.GetMolecule(coord).Value())
}

func (c *cursor) readLiteral() molecule.Molecule {
	coord := c.next()
	return c.env.GetMolecule(coord)
}

// readVector reads `dims` consecutive DATA cells as a relative coordinate.
func (c *cursor) readVector(dims int) env.Coord {
	v := make(env.Coord, dims)
	for i := 0; i < dims; i++ {
		coord := c.next()
		v[i] = c.env.GetMolecule(coord).Value()
	}
	return v
}

// readLabel reads a label operand: a relative-vector offset from the
// instruction site to the target, laid out by the linker exactly like a
// Vector operand (spec.md §4.8).
func (c *cursor) readLabel(dims int) env.Coord {
	return c.readVector(dims)
}
