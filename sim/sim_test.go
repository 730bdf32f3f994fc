package sim_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rainco77/evochora-sub013/artifact"
	"github.com/rainco77/evochora-sub013/env"
	"github.com/rainco77/evochora-sub013/isa"
	"github.com/rainco77/evochora-sub013/molecule"
	"github.com/rainco77/evochora-sub013/organism"
	"github.com/rainco77/evochora-sub013/sim"
)

func placePoke(e *env.Environment, at int) {
	e.SetMolecule(molecule.New(molecule.CODE, int(isa.OpPOKE)), env.Coord{at})
	e.SetMolecule(molecule.New(molecule.DATA, isa.EncodeRegister(organism.ClassLocation, 0)), env.Coord{at + 1})
	e.SetMolecule(molecule.New(molecule.DATA, isa.EncodeRegister(organism.ClassData, 0)), env.Coord{at + 2})
}

func TestStepLowestIDWinsContestedPoke(t *testing.T) {
	e, err := env.New([]int{32}, true)
	require.NoError(t, err)

	placePoke(e, 0)
	placePoke(e, 10)

	store := sim.MapProgramArtifactStore{"prog": artifact.New("prog")}
	k := sim.New(e, store)

	o1 := k.Spawn("prog", env.Coord{0}, env.Coord{1}, 1000, 0)
	o1.DataRegisters[0] = 111
	o1.LocationRegisters[0] = env.Coord{20}

	o2 := k.Spawn("prog", env.Coord{10}, env.Coord{1}, 1000, 0)
	o2.DataRegisters[0] = 222
	o2.LocationRegisters[0] = env.Coord{20}

	require.NoError(t, k.Step(context.Background()))

	m := e.GetMolecule(env.Coord{20})
	require.Equal(t, molecule.DATA, m.Type())
	require.Equal(t, 111, m.Value())
	require.EqualValues(t, o1.ID, e.GetOwnerID(env.Coord{20}))
	require.EqualValues(t, 1, k.Tick())
}

func TestStepSoleOrganismExecutesUnresolvableTarget(t *testing.T) {
	e, err := env.New([]int{16}, false)
	require.NoError(t, err)
	placePoke(e, 0)

	store := sim.MapProgramArtifactStore{"prog": artifact.New("prog")}
	k := sim.New(e, store)

	o := k.Spawn("prog", env.Coord{0}, env.Coord{1}, 1000, 0)
	o.DataRegisters[0] = 7
	o.LocationRegisters[0] = env.Coord{99} // out of bounds, non-toroidal

	require.NoError(t, k.Step(context.Background()))
	require.False(t, o.InstructionFailed)
}

func TestStepForkQueuesOrganismForNextTick(t *testing.T) {
	e, err := env.New([]int{16}, true)
	require.NoError(t, err)

	e.SetMolecule(molecule.New(molecule.CODE, int(isa.OpFORK)), env.Coord{0})
	e.SetMolecule(molecule.New(molecule.DATA, isa.EncodeRegister(organism.ClassLocation, 0)), env.Coord{1})

	store := sim.MapProgramArtifactStore{"prog": artifact.New("prog")}
	k := sim.New(e, store)

	parent := k.Spawn("prog", env.Coord{0}, env.Coord{1}, 1000, 0)
	parent.LocationRegisters[0] = env.Coord{8}

	require.NoError(t, k.Step(context.Background()))
	require.Len(t, k.Organisms(), 2, "the FORK-spawned organism is appended when the tick that queued it ends, so it is on the roster before the next tick starts")

	require.NoError(t, k.Step(context.Background()))
	require.Len(t, k.Organisms(), 2)

	// In the second tick both organisms sit on empty cells and run a NOP:
	// the child moves one cell on from its spawn point and each pays one NOP.
	child := k.Organisms()[1]
	require.Equal(t, env.Coord{9}, child.IP)
	require.EqualValues(t, parent.ID, child.ParentID)
	require.Equal(t, parent.ER+child.ER, int64(1000)-isa.Cost(isa.OpFORK, parent, e, nil)-2*isa.Cost(isa.OpNOP, parent, e, nil))
}
