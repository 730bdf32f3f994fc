package organism_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rainco77/evochora-sub013/env"
	"github.com/rainco77/evochora-sub013/organism"
)

func TestNewClonesIPAndDVAndSizesLocationRegisters(t *testing.T) {
	ip := env.Coord{1, 2}
	dv := env.Coord{0, 1}
	o := organism.New(1, "prog", ip, dv, 100, 0, 5)

	ip[0] = 99 // mutating the caller's slice must not affect the organism
	require.True(t, o.IP.Equal(env.Coord{1, 2}))
	require.True(t, o.DV.Equal(env.Coord{0, 1}))

	for _, lr := range o.LocationRegisters {
		require.Len(t, lr, 2)
	}
}

func TestKillOnlyRecordsFirstReason(t *testing.T) {
	o := organism.New(1, "prog", env.Coord{0}, env.Coord{1}, 0, 0, 0)
	o.Kill("starved")
	o.Kill("collided")
	require.True(t, o.IsDead())
	require.Equal(t, "starved", o.DeathReason)
}

func TestResetTickStateClearsPerTickFlags(t *testing.T) {
	o := organism.New(1, "prog", env.Coord{0}, env.Coord{1}, 0, 0, 0)
	o.InstructionFailed = true
	o.FailureReason = "data stack underflow"
	o.SkipIPAdvance = true

	o.ResetTickState()

	require.False(t, o.InstructionFailed)
	require.Equal(t, "", o.FailureReason)
	require.False(t, o.SkipIPAdvance)
}

func TestPushPopDataStackRespectsDepthLimit(t *testing.T) {
	o := organism.New(1, "prog", env.Coord{0}, env.Coord{1}, 0, 0, 0)
	for i := 0; i < organism.MaxDataStackDepth; i++ {
		require.True(t, o.PushData(int32(i)))
	}
	require.False(t, o.PushData(99))
	require.True(t, o.InstructionFailed)

	o.ResetTickState()
	v, ok := o.PopData()
	require.True(t, ok)
	require.Equal(t, int32(organism.MaxDataStackDepth-1), v)
}

func TestPopDataUnderflowSetsFailure(t *testing.T) {
	o := organism.New(1, "prog", env.Coord{0}, env.Coord{1}, 0, 0, 0)
	_, ok := o.PopData()
	require.False(t, ok)
	require.True(t, o.InstructionFailed)
	require.Equal(t, "data stack underflow", o.FailureReason)
}

func TestPushPopCallStackRespectsDepthLimit(t *testing.T) {
	o := organism.New(1, "prog", env.Coord{0}, env.Coord{1}, 0, 0, 0)
	for i := 0; i < organism.MaxCallStackDepth; i++ {
		require.True(t, o.PushCall(organism.CallFrame{ReturnIP: env.Coord{i}}))
	}
	require.False(t, o.PushCall(organism.CallFrame{}))

	o.ResetTickState()
	f, ok := o.PopCall()
	require.True(t, ok)
	require.True(t, f.ReturnIP.Equal(env.Coord{organism.MaxCallStackDepth - 1}))
}

func TestGetSetDataLikeByClass(t *testing.T) {
	o := organism.New(1, "prog", env.Coord{0}, env.Coord{1}, 0, 0, 0)
	o.SetDataLike(organism.ClassData, 2, 42)
	require.Equal(t, int32(42), o.GetDataLike(organism.ClassData, 2))

	o.SetDataLike(organism.ClassFormalParam, 0, -7)
	require.Equal(t, int32(-7), o.GetDataLike(organism.ClassFormalParam, 0))
}

func TestGetDataLikePanicsOnLocationClass(t *testing.T) {
	o := organism.New(1, "prog", env.Coord{0}, env.Coord{1}, 0, 0, 0)
	require.Panics(t, func() { o.GetDataLike(organism.ClassLocation, 0) })
}
