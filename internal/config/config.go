// Package config loads the simulation's TOML configuration file into a
// SimulationConfig, falling back to in-code defaults for anything the file
// omits.
//
// The teacher has no configuration file of its own: every runtime knob
// (github.com/db47h/ngaro/vm/vm.go's portCount, dataSize, addressSize) is a
// package-level const or a vm.Option passed by the caller. This module
// keeps that same "options with sane defaults" shape (DefaultSimulationConfig
// plays the role of the teacher's constant block) but adds a TOML loader on
// top of it, grounded in the manifests of lookbusy1344-arm_emulator and
// vovakirdan-surge (both of which configure a CPU/VM-like tool with
// github.com/BurntSushi/toml), since this module's world shape and energy
// model need to vary per simulation run rather than being fixed at compile
// time.
package config

import (
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// SimulationConfig is the simulation kernel's full runtime configuration.
type SimulationConfig struct {
	World  WorldConfig  `toml:"world"`
	Energy EnergyConfig `toml:"energy"`
	Limits LimitsConfig `toml:"limits"`
}

// WorldConfig describes the environment's shape and addressing mode.
type WorldConfig struct {
	Shape    []int `toml:"shape"`
	Toroidal bool  `toml:"toroidal"`
}

// EnergyConfig describes organism energy bounds and failure penalties.
type EnergyConfig struct {
	InitialEnergy     int64 `toml:"initial_energy"`
	MaxOrganismEnergy int64 `toml:"max_organism_energy"`
	ErrorPenaltyCost  int64 `toml:"error_penalty_cost"`
}

// LimitsConfig describes per-organism stack depth limits.
type LimitsConfig struct {
	MaxDataStackDepth     int `toml:"max_data_stack_depth"`
	MaxCallStackDepth     int `toml:"max_call_stack_depth"`
	MaxLocationStackDepth int `toml:"max_location_stack_depth"`
}

// DefaultSimulationConfig mirrors the named constants organism/organism.go
// carries (NumDataRegisters-style sizing constants, MaxOrganismEnergy), used
// whenever a TOML file is absent or leaves a field unset.
func DefaultSimulationConfig() SimulationConfig {
	return SimulationConfig{
		World: WorldConfig{
			Shape:    []int{100, 100},
			Toroidal: true,
		},
		Energy: EnergyConfig{
			InitialEnergy:     1000,
			MaxOrganismEnergy: 1 << 20,
			ErrorPenaltyCost:  5,
		},
		Limits: LimitsConfig{
			MaxDataStackDepth:     64,
			MaxCallStackDepth:     32,
			MaxLocationStackDepth: 32,
		},
	}
}

// Load reads and decodes a SimulationConfig from path, applying
// DefaultSimulationConfig's values for any table or field the file omits.
func Load(path string) (SimulationConfig, error) {
	cfg := DefaultSimulationConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return SimulationConfig{}, errors.Wrapf(err, "config: decoding %s", path)
	}
	if len(cfg.World.Shape) == 0 {
		return SimulationConfig{}, errors.Errorf("config: %s: world.shape must have at least one axis", path)
	}
	return cfg, nil
}
