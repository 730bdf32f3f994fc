// Package sim implements the Simulation Kernel (spec.md §4.11): the tick
// loop that plans every living organism, resolves conflicting
// environment-modifying writes, executes the winners, and folds in
// organisms queued by FORK during the tick just finished.
//
// The teacher has no counterpart package: github.com/db47h/ngaro/vm runs one
// program to completion on its caller's goroutine. This module's kernel
// plays the same "drive the VM" role the teacher's cmd/retro/main.go does
// around vm.Instance.Run, but for many concurrently-planned organisms
// sharing one Environment instead of one program owning the whole machine.
package sim

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rainco77/evochora-sub013/artifact"
	"github.com/rainco77/evochora-sub013/env"
	"github.com/rainco77/evochora-sub013/internal/obslog"
	"github.com/rainco77/evochora-sub013/isa"
	"github.com/rainco77/evochora-sub013/organism"
	"github.com/rainco77/evochora-sub013/vm"
)

// RandomProvider is the random source an EnergyDistributor implementation
// receives (spec.md §6, "Consumed interfaces"). The core never implements
// or seeds one itself; it is a host-provided collaborator passed through.
type RandomProvider interface {
	NextDouble() float64
	NextInt(bound int) int
}

// EnergyDistributor is called by the host, not by the kernel's own Step, to
// inject energy into the environment between or during ticks (spec.md §6).
// Kernel only carries the option and exposes DistributeEnergy for a host to
// invoke on its own schedule.
type EnergyDistributor interface {
	Distribute(e *env.Environment, currentTick uint64, rng RandomProvider)
}

// ProgramArtifactStore resolves an organism's program id to its compiled
// artifact (spec.md §6). Host-provided in production; a simulation cannot
// execute an organism whose program is absent from the store.
type ProgramArtifactStore interface {
	ProgramArtifact(programID string) (*artifact.ProgramArtifact, bool)
}

// NoopEnergyDistributor is a deterministic do-nothing EnergyDistributor, for
// kernel tests that don't exercise energy injection.
type NoopEnergyDistributor struct{}

// Distribute implements EnergyDistributor by doing nothing.
func (NoopEnergyDistributor) Distribute(*env.Environment, uint64, RandomProvider) {}

// MapProgramArtifactStore is a deterministic, in-memory ProgramArtifactStore
// test double, and a usable default for single-program simulations.
type MapProgramArtifactStore map[string]*artifact.ProgramArtifact

// ProgramArtifact implements ProgramArtifactStore.
func (m MapProgramArtifactStore) ProgramArtifact(programID string) (*artifact.ProgramArtifact, bool) {
	a, ok := m[programID]
	return a, ok
}

// Kernel holds the environment, the ordered organism roster, the tick
// counter, and the end-of-tick spawn queue (spec.md §4.11).
type Kernel struct {
	env *env.Environment
	vm  *vm.Instance
	log *logrus.Entry

	store ProgramArtifactStore

	distributor EnergyDistributor
	rng         RandomProvider

	organisms []*organism.Organism
	queue     []*organism.Organism
	nextID    uint64
	tick      uint64
	paused    bool
}

// Option configures a Kernel, in the teacher's functional-options style
// (github.com/db47h/ngaro/vm/vm.go).
type Option func(*Kernel)

// WithLogger attaches a structured logger for tick-level diagnostics.
func WithLogger(log *logrus.Entry) Option {
	return func(k *Kernel) { k.log = log }
}

// WithEnergyDistributor attaches the host's EnergyDistributor. Defaults to
// NoopEnergyDistributor.
func WithEnergyDistributor(d EnergyDistributor) Option {
	return func(k *Kernel) { k.distributor = d }
}

// WithRandomProvider attaches the random source passed to the
// EnergyDistributor.
func WithRandomProvider(r RandomProvider) Option {
	return func(k *Kernel) { k.rng = r }
}

// New creates a Kernel over e, resolving organism programs through store.
func New(e *env.Environment, store ProgramArtifactStore, opts ...Option) *Kernel {
	k := &Kernel{
		env:         e,
		vm:          vm.New(),
		log:         logrus.NewEntry(logrus.StandardLogger()),
		store:       store,
		distributor: NoopEnergyDistributor{},
		nextID:      1,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Tick returns the current tick counter.
func (k *Kernel) Tick() uint64 { return k.tick }

// Organisms returns the live roster, in id order. Callers must not mutate
// the returned slice.
func (k *Kernel) Organisms() []*organism.Organism { return k.organisms }

// Environment returns the Kernel's Environment.
func (k *Kernel) Environment() *env.Environment { return k.env }

// Pause sets the cooperative paused flag (spec.md §5): a tick either runs to
// completion or is not started.
func (k *Kernel) Pause() { k.paused = true }

// Resume clears the paused flag.
func (k *Kernel) Resume() { k.paused = false }

// Paused reports the cooperative paused flag.
func (k *Kernel) Paused() bool { return k.paused }

// Spawn places a new organism directly onto the roster (for initial seeding,
// outside of any tick's FORK handling) and assigns it the next id.
func (k *Kernel) Spawn(programID string, ip, dv env.Coord, er int64, parentID uint64) *organism.Organism {
	o := organism.New(k.nextID, programID, ip, dv, er, parentID, k.tick)
	k.nextID++
	k.organisms = append(k.organisms, o)
	return o
}

// DistributeEnergy invokes the configured EnergyDistributor. The kernel's
// own Step never calls this (spec.md §6: "called by the host, not by the
// core"); a host drives it on whatever schedule it wants.
func (k *Kernel) DistributeEnergy() {
	k.distributor.Distribute(k.env, k.tick, k.rng)
}

// Step runs exactly one tick (spec.md §4.11): plan every living organism,
// resolve conflicts, execute the winners, fold in FORK-queued organisms,
// advance the tick counter. A paused Kernel's Step is a no-op.
func (k *Kernel) Step(ctx context.Context) error {
	if k.paused {
		return nil
	}

	planned := k.planPhase(ctx)
	k.resolveConflicts(planned)
	k.executePhase(planned)

	k.organisms = append(k.organisms, k.queue...)
	k.queue = nil
	k.tick++
	return nil
}

// planPhase asks the VM to plan every non-dead organism's next instruction
// (spec.md §4.10). Planning performs no environment mutation and organisms
// are independent of each other during this phase, so it fans out across
// an errgroup the way a parallelised plan phase would (spec.md §5); with no
// cross-organism side effects this is equivalent to planning sequentially
// in id order, which is how the teacher's single-program Run loop would see
// it.
func (k *Kernel) planPhase(ctx context.Context) []*isa.Instruction {
	planned := make([]*isa.Instruction, len(k.organisms))

	g, _ := errgroup.WithContext(ctx)
	for i, o := range k.organisms {
		i, o := i, o
		if o.IsDead() {
			continue
		}
		g.Go(func() error {
			planned[i] = k.vm.Plan(o, k.env)
			return nil
		})
	}
	// Plan never returns an error of its own (a failed plan yields a NOP
	// instruction instead) and the goroutines do not check ctx, so g.Wait
	// returns nil and the warning below is never logged.
	if err := g.Wait(); err != nil {
		k.log.WithError(err).Warn("plan phase cancelled")
	}
	return planned
}

// resolveConflicts implements spec.md §4.11 step 2: every EnvironmentModifying
// instruction's target coordinates are canonicalised (toroidal
// normalisation, via Environment.Linearize) and grouped; within a group the
// lowest organism id wins, and an instruction must win at every coordinate
// it claims to win overall.
func (k *Kernel) resolveConflicts(planned []*isa.Instruction) {
	groups := map[int][]int{} // linear coord -> instruction indices claiming it

	for i, inst := range planned {
		if inst == nil {
			continue
		}
		if !inst.EnvironmentModifying {
			inst.ConflictStatus = isa.NotApplicable
			inst.ExecutedInTick = true
			continue
		}

		coords := make([]int, 0, len(inst.Targets))
		resolvable := len(inst.Targets) > 0
		for _, t := range inst.Targets {
			idx, ok := k.env.Linearize(t)
			if !ok {
				resolvable = false
				break
			}
			coords = append(coords, idx)
		}
		if !resolvable {
			if len(k.organisms) == 1 {
				inst.ConflictStatus = isa.WonExecution
			} else {
				inst.ConflictStatus = isa.LostOtherReason
			}
			continue
		}
		for _, c := range coords {
			groups[c] = append(groups[c], i)
		}
	}

	wonSomewhere := map[int]bool{}
	lostSomewhere := map[int]bool{}
	for _, claimants := range groups {
		winner := claimants[0]
		for _, i := range claimants[1:] {
			if k.organisms[i].ID < k.organisms[winner].ID {
				winner = i
			}
		}
		for _, i := range claimants {
			if i == winner {
				wonSomewhere[i] = true
			} else {
				lostSomewhere[i] = true
			}
		}
	}

	for i, inst := range planned {
		if inst == nil || !inst.EnvironmentModifying {
			continue
		}
		if inst.ConflictStatus == isa.WonExecution || inst.ConflictStatus == isa.LostOtherReason {
			continue // already settled: unresolvable-target or sole-organism case
		}
		switch {
		case wonSomewhere[i] && lostSomewhere[i]:
			// Unanimity required (spec.md §4.11 step 2): an instruction
			// targeting several coordinates only executes if it wins at
			// every one of them. A partial win is not a lower-id loss at
			// every contested coordinate, so it gets its own reason.
			inst.ConflictStatus = isa.LostOtherReason
		case wonSomewhere[i]:
			inst.ConflictStatus = isa.WonExecution
		default:
			inst.ConflictStatus = isa.LostLowerIDWon
		}
	}
}

// executePhase runs VM.Execute for every instruction that won conflict
// resolution (or was never contested), in organism id order (spec.md §5).
// A losing instruction is never passed to Execute at all, matching
// vm.Instance.Execute's own documented contract.
func (k *Kernel) executePhase(planned []*isa.Instruction) {
	for i, o := range k.organisms {
		inst := planned[i]
		if inst == nil || o.IsDead() {
			continue
		}
		if inst.EnvironmentModifying && inst.ConflictStatus != isa.WonExecution {
			continue
		}

		art, ok := k.store.ProgramArtifact(o.ProgramID)
		if !ok {
			obslog.ForOrganism(obslog.ForTick(k.log, k.tick), o.ID, o.ProgramID).
				Warn("unknown program id, organism not executed this tick")
			continue
		}

		k.vm.Execute(o, k.env, inst, art)
		inst.ExecutedInTick = true

		if o.LoggingEnabled {
			obslog.ForOrganism(obslog.ForTick(k.log, k.tick), o.ID, o.ProgramID).
				WithField("opcode", inst.Mnemonic).Debug("executed instruction")
		}

		if len(o.PendingForkTarget) > 0 {
			k.enqueueFork(o)
		}
	}
}

// enqueueFork consumes o's pending FORK intent (isa/planners.go's OpFORK
// Execute closure) into a new organism appended to the end-of-tick queue
// (spec.md §4.11 step 4), splitting the parent's remaining energy in half:
// spec.md is silent on a FORK's energy transfer, so this module picks the
// same even split a reproducing-organism artificial-life model conventionally
// uses, recorded as an open question in DESIGN.md.
func (k *Kernel) enqueueFork(o *organism.Organism) {
	childEnergy := o.ER / 2
	o.ER -= childEnergy

	child := organism.New(k.nextID, o.ProgramID, o.PendingForkTarget, o.PendingForkDV, childEnergy, o.ID, k.tick)
	k.nextID++
	k.queue = append(k.queue, child)

	o.PendingForkTarget = nil
	o.PendingForkDV = nil
}

