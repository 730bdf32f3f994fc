package main

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/rainco77/evochora-sub013/artifact"
	"github.com/rainco77/evochora-sub013/env"
	"github.com/rainco77/evochora-sub013/internal/config"
	"github.com/rainco77/evochora-sub013/internal/obslog"
	"github.com/rainco77/evochora-sub013/molecule"
	"github.com/rainco77/evochora-sub013/sim"
	"github.com/rainco77/evochora-sub013/vm"
)

var (
	runConfigPath string
	runTicks      uint64
	runAt         string
	runDV         string
	runEnergy     int64
)

var runCmd = &cobra.Command{
	Use:   "run <artifact.json>",
	Short: "Run a single-organism simulation for a fixed number of ticks",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "SimulationConfig TOML path (default: built-in defaults)")
	runCmd.Flags().Uint64Var(&runTicks, "ticks", 100, "number of ticks to run")
	runCmd.Flags().StringVar(&runAt, "at", "", "initial organism placement, e.g. \"0,0\" (default: world origin)")
	runCmd.Flags().StringVar(&runDV, "dv", "", "initial direction vector, e.g. \"1,0\" (default: +1 on the first axis)")
	runCmd.Flags().Int64Var(&runEnergy, "energy", 0, "initial organism energy (default: config's energy.initial_energy)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultSimulationConfig()
	if runConfigPath != "" {
		loaded, err := config.Load(runConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return errors.Wrapf(err, "reading %s", args[0])
	}
	art := artifact.New("")
	if err := art.UnmarshalJSON(data); err != nil {
		return errors.Wrap(err, "decoding artifact")
	}

	e, err := env.New(cfg.World.Shape, cfg.World.Toroidal)
	if err != nil {
		return err
	}

	dims := len(cfg.World.Shape)
	at, err := parseCoord(runAt, dims, dims)
	if err != nil {
		return err
	}
	dv, err := parseCoord(runDV, dims, 0)
	if err != nil {
		return err
	}

	// MachineCodeLayout and InitialWorldObjects are position-independent,
	// keyed relative to the program's own origin; placing them into the
	// world shifts every key by the organism's chosen spawn point.
	for key, v := range art.MachineCodeLayout {
		e.SetMolecule(molecule.Molecule(v), env.ParseKey(key).Add(at))
	}
	for key, v := range art.InitialWorldObjects {
		e.SetMolecule(molecule.Molecule(v), env.ParseKey(key).Add(at))
	}

	energy := runEnergy
	if energy == 0 {
		energy = cfg.Energy.InitialEnergy
	}

	log := obslog.New(verbose)
	store := sim.MapProgramArtifactStore{art.ProgramID: art}
	k := sim.New(e, store, sim.WithLogger(log.WithField("component", "sim")))
	o := k.Spawn(art.ProgramID, at, dv, energy, 0)
	o.LoggingEnabled = verbose

	ctx := context.Background()
	for tick := uint64(0); tick < runTicks; tick++ {
		if err := k.Step(ctx); err != nil {
			return err
		}
	}

	for _, o := range k.Organisms() {
		if err := vm.DumpOrganism(o, cmd.OutOrStdout()); err != nil {
			return err
		}
	}
	return nil
}

// parseCoord parses a comma-separated coordinate string into a dims-length
// env.Coord. An empty s yields a coordinate that is all zero except index
// fillIndex, set to 1 when fillIndex < dims -- the world origin for --at
// (fillIndex == dims), a unit vector along the first axis for --dv
// (fillIndex == 0).
func parseCoord(s string, dims, fillIndex int) (env.Coord, error) {
	c := make(env.Coord, dims)
	if s == "" {
		if fillIndex < dims {
			c[fillIndex] = 1
		}
		return c, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != dims {
		return nil, errors.Errorf("expected %d comma-separated components, got %d", dims, len(parts))
	}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, errors.Wrapf(err, "component %d", i)
		}
		c[i] = n
	}
	return c, nil
}
