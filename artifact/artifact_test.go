package artifact_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rainco77/evochora-sub013/artifact"
	"github.com/rainco77/evochora-sub013/env"
)

func TestNewReturnsEmptyReadyMaps(t *testing.T) {
	art := artifact.New("prog-1")
	require.Equal(t, "prog-1", art.ProgramID)
	require.NotNil(t, art.Sources)
	require.NotNil(t, art.MachineCodeLayout)
	require.Empty(t, art.MachineCodeLayout)
}

func TestCoordAtAddressAndAddressAtCoord(t *testing.T) {
	art := artifact.New("prog-1")
	c := env.Coord{2, 3}
	art.LinearAddressToCoord[5] = c
	art.RelativeCoordToLinearAddress[c.Key()] = 5

	got, ok := art.CoordAtAddress(5)
	require.True(t, ok)
	require.True(t, c.Equal(got))

	addr, ok := art.AddressAtCoord(c)
	require.True(t, ok)
	require.Equal(t, 5, addr)

	_, ok = art.CoordAtAddress(999)
	require.False(t, ok)
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	art := artifact.New("prog-1")
	art.MachineCodeLayout["0"] = 42
	art.Sources["main.s"] = []string{"NOP"}
	art.RegisterAliasMap["COUNTER"] = 7

	data, err := json.Marshal(art)
	require.NoError(t, err)

	var got artifact.ProgramArtifact
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, art.ProgramID, got.ProgramID)
	require.Equal(t, art.MachineCodeLayout, got.MachineCodeLayout)
	require.Equal(t, art.Sources, got.Sources)
	require.Equal(t, art.RegisterAliasMap, got.RegisterAliasMap)
}

func TestUnmarshalRejectsMissingProgramID(t *testing.T) {
	var got artifact.ProgramArtifact
	err := json.Unmarshal([]byte(`{"sources":{}}`), &got)
	require.Error(t, err)
}
