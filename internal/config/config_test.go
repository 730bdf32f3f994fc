package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rainco77/evochora-sub013/internal/config"
)

func TestLoadAppliesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sim.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[world]
shape = [16, 16]
toroidal = false

[energy]
initial_energy = 500
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, []int{16, 16}, cfg.World.Shape)
	require.False(t, cfg.World.Toroidal)
	require.EqualValues(t, 500, cfg.Energy.InitialEnergy)
	// Untouched by the file, so the default survives.
	require.EqualValues(t, 5, cfg.Energy.ErrorPenaltyCost)
	require.Equal(t, 64, cfg.Limits.MaxDataStackDepth)
}

func TestLoadRejectsMissingWorldShape(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sim.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[world]
shape = []
`), 0o644))

	_, err := config.Load(path)
	require.Error(t, err)
}

func TestDefaultSimulationConfig(t *testing.T) {
	cfg := config.DefaultSimulationConfig()
	require.True(t, cfg.World.Toroidal)
	require.EqualValues(t, 1<<20, cfg.Energy.MaxOrganismEnergy)
}
