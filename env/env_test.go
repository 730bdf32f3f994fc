package env_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rainco77/evochora-sub013/env"
	"github.com/rainco77/evochora-sub013/molecule"
)

func TestCoordKeyParseKeyRoundTrip(t *testing.T) {
	c := env.Coord{3, -2, 0}
	parsed := env.ParseKey(c.Key())
	require.True(t, c.Equal(parsed))
}

func TestCoordAddScaleEqual(t *testing.T) {
	a := env.Coord{1, 2}
	b := env.Coord{3, 4}
	require.True(t, a.Add(b).Equal(env.Coord{4, 6}))
	require.True(t, a.Scale(-1).Equal(env.Coord{-1, -2}))
	require.False(t, a.Equal(b))
}

func TestNewRejectsEmptyOrNonPositiveShape(t *testing.T) {
	_, err := env.New(nil, false)
	require.Error(t, err)

	_, err = env.New([]int{4, 0}, false)
	require.Error(t, err)
}

func TestToroidalEnvironmentWrapsCoordinates(t *testing.T) {
	e, err := env.New([]int{4, 4}, true)
	require.NoError(t, err)

	m := molecule.New(molecule.DATA, 9)
	e.SetMolecule(m, env.Coord{0, 0})

	// one full wrap on each axis should land on the same cell.
	require.Equal(t, m, e.GetMolecule(env.Coord{4, 4}))
	require.Equal(t, m, e.GetMolecule(env.Coord{-4, -4}))
}

func TestBoundedEnvironmentRejectsOutOfRange(t *testing.T) {
	e, err := env.New([]int{4, 4}, false)
	require.NoError(t, err)

	m := molecule.New(molecule.DATA, 9)
	e.SetMolecule(m, env.Coord{10, 10}) // silently dropped, out of bounds
	require.Equal(t, molecule.Empty, e.GetMolecule(env.Coord{10, 10}))

	_, ok := e.Linearize(env.Coord{-1, 0})
	require.False(t, ok)
}

func TestLinearizeDelinearizeRoundTrip(t *testing.T) {
	e, err := env.New([]int{3, 5}, false)
	require.NoError(t, err)

	c := env.Coord{2, 3}
	addr, ok := e.Linearize(c)
	require.True(t, ok)
	require.True(t, c.Equal(e.Delinearize(addr)))
}

func TestOwnerIDDefaultsToZeroAndIsSettable(t *testing.T) {
	e, err := env.New([]int{2, 2}, false)
	require.NoError(t, err)

	require.Equal(t, uint64(0), e.GetOwnerID(env.Coord{0, 0}))
	e.SetOwnerID(env.Coord{0, 0}, 7)
	require.Equal(t, uint64(7), e.GetOwnerID(env.Coord{0, 0}))
}

func TestIsAreaUnownedDetectsAnyOwnedNeighbor(t *testing.T) {
	e, err := env.New([]int{5, 5}, true)
	require.NoError(t, err)

	require.True(t, e.IsAreaUnowned(env.Coord{2, 2}, 1))

	e.SetOwnerID(env.Coord{3, 2}, 1)
	require.False(t, e.IsAreaUnowned(env.Coord{2, 2}, 1))
}

func TestGetNextPositionAddsDirection(t *testing.T) {
	e, err := env.New([]int{10, 10}, true)
	require.NoError(t, err)
	next := e.GetNextPosition(env.Coord{5, 5}, env.Coord{0, 1})
	require.True(t, next.Equal(env.Coord{5, 6}))
}
