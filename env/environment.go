// Package env implements the N-dimensional dense grid of molecules that
// organisms live in, with per-cell ownership tracking for conflict
// resolution. Addressing is toroidal (wrapped, floored modulo) or bounded
// depending on construction.
//
// This generalizes the teacher's flat vm.Image ([]Cell, github.com/db47h/ngaro/vm/image.go)
// from a single linear address space to an arbitrary-rank dense array, and adds
// the owner-id side table the spec's conflict resolution needs — a concept
// the teacher's single-program VM has no counterpart for.
package env

import (
	"github.com/pkg/errors"
	"github.com/rainco77/evochora-sub013/molecule"
)

// Environment is a dense N-dimensional grid of Molecules plus a parallel
// owner-id map used by the simulation kernel's conflict resolution.
type Environment struct {
	shape    []int
	toroidal bool
	strides  []int
	cells    []molecule.Molecule
	owners   []uint64
}

// New creates an Environment with the given per-axis extents. toroidal
// selects wrap-around addressing; otherwise out-of-range coordinates are
// invalid.
func New(shape []int, toroidal bool) (*Environment, error) {
	if len(shape) == 0 {
		return nil, errors.New("environment: shape must have at least one dimension")
	}
	size := 1
	for i, d := range shape {
		if d <= 0 {
			return nil, errors.Errorf("environment: axis %d has non-positive extent %d", i, d)
		}
		size *= d
	}
	strides := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= shape[i]
	}
	return &Environment{
		shape:    append([]int(nil), shape...),
		toroidal: toroidal,
		strides:  strides,
		cells:    make([]molecule.Molecule, size),
		owners:   make([]uint64, size),
	}, nil
}

// Shape returns the per-axis extents.
func (e *Environment) Shape() []int {
	out := make([]int, len(e.shape))
	copy(out, e.shape)
	return out
}

// Toroidal reports whether this Environment wraps coordinates.
func (e *Environment) Toroidal() bool {
	return e.toroidal
}

// Dimensions returns the world's rank (number of axes).
func (e *Environment) Dimensions() int {
	return len(e.shape)
}

// normalize applies toroidal wrapping (if enabled) and validates bounds.
// Returns the normalized coordinate, its linear index and whether the
// coordinate is valid.
func (e *Environment) normalize(c Coord) (Coord, int, bool) {
	if len(c) != len(e.shape) {
		return nil, 0, false
	}
	nc := make(Coord, len(c))
	idx := 0
	for i, v := range c {
		if e.toroidal {
			v = floorMod(v, e.shape[i])
		} else if v < 0 || v >= e.shape[i] {
			return nil, 0, false
		}
		nc[i] = v
		idx += v * e.strides[i]
	}
	return nc, idx, true
}

// Linearize converts a valid (post-normalization) coordinate to its linear
// address in [0, product(shape)).
func (e *Environment) Linearize(c Coord) (int, bool) {
	_, idx, ok := e.normalize(c)
	return idx, ok
}

// Delinearize is the inverse of Linearize.
func (e *Environment) Delinearize(addr int) Coord {
	out := make(Coord, len(e.shape))
	for i, s := range e.strides {
		out[i] = (addr / s) % e.shape[i]
	}
	return out
}

// GetMolecule returns the molecule at c. If c is out of bounds in a
// non-toroidal Environment, it returns the empty molecule.
func (e *Environment) GetMolecule(c Coord) molecule.Molecule {
	_, idx, ok := e.normalize(c)
	if !ok {
		return molecule.Empty
	}
	return e.cells[idx]
}

// SetMolecule stores m at c. It is a no-op if c is out of bounds in a
// non-toroidal Environment.
func (e *Environment) SetMolecule(m molecule.Molecule, c Coord) {
	_, idx, ok := e.normalize(c)
	if !ok {
		return
	}
	e.cells[idx] = m
}

// GetOwnerID returns the owner id recorded at c, or 0 (unowned) if out of
// bounds.
func (e *Environment) GetOwnerID(c Coord) uint64 {
	_, idx, ok := e.normalize(c)
	if !ok {
		return 0
	}
	return e.owners[idx]
}

// SetOwnerID records id as the owner of cell c.
func (e *Environment) SetOwnerID(c Coord, id uint64) {
	_, idx, ok := e.normalize(c)
	if !ok {
		return
	}
	e.owners[idx] = id
}

// IsAreaUnowned reports whether every cell within Chebyshev distance radius of
// c has owner id 0.
func (e *Environment) IsAreaUnowned(c Coord, radius int) bool {
	var visit func(dims []int, cur Coord) bool
	visit = func(dims []int, cur Coord) bool {
		if len(cur) == len(c) {
			if e.GetOwnerID(cur) != 0 {
				return false
			}
			return true
		}
		axis := len(cur)
		for d := -radius; d <= radius; d++ {
			next := append(append(Coord{}, cur...), c[axis]+d)
			if !visit(dims, next) {
				return false
			}
		}
		return true
	}
	return visit(nil, Coord{})
}

// GetNextPosition returns the coordinate reached by moving one step from c in
// direction dir (a unit vector, single nonzero axis of magnitude 1, per the
// Organism.dv invariant). The result is c+dir as is; it is not wrapped or
// bounds-checked.
func (e *Environment) GetNextPosition(c Coord, dir Coord) Coord {
	return c.Add(dir)
}
