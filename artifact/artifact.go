// Package artifact defines ProgramArtifact, the immutable data contract
// between the compiler and the simulator (spec.md §3). It is produced by
// the linker (internal/link) and consumed read-only by the simulation
// kernel (sim) and VM (vm).
//
// The teacher's equivalent contract is a bare []vm.Cell image
// (github.com/db47h/ngaro/vm/image.go): a linear address space with no
// source map, no label table, and no cross-file metadata, because its
// source language has no modules. This module's richer surface exists to
// carry exactly what the pipeline (§2) and the "Produced interfaces" (§6)
// require.
package artifact

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/rainco77/evochora-sub013/env"
)

// SourceInfo locates a linear address in the original multi-file source.
type SourceInfo struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// ProgramArtifact is the immutable output of compilation. Once constructed
// by the linker it is never mutated; concurrent simulations may share one
// instance safely (spec.md §5).
type ProgramArtifact struct {
	ProgramID string `json:"programId"`

	// Sources maps each compiled file name to its original source lines,
	// for debug presentation by the (out-of-scope) host indexer.
	Sources map[string][]string `json:"sources"`

	// MachineCodeLayout and InitialWorldObjects are keyed by a coordinate's
	// canonical string encoding (env.Coord.Key), since Go map keys must be
	// comparable and a world may have any number of dimensions.
	MachineCodeLayout   map[string]int32 `json:"machineCodeLayout"`
	InitialWorldObjects map[string]int32 `json:"initialWorldObjects"`

	SourceMap        map[int]SourceInfo `json:"sourceMap"`
	CallSiteBindings map[int][]int      `json:"callSiteBindings"`

	RelativeCoordToLinearAddress map[string]int     `json:"relativeCoordToLinearAddress"`
	LinearAddressToCoord         map[int]env.Coord   `json:"linearAddressToCoord"`
	LabelAddressToName           map[int]string      `json:"labelAddressToName"`

	// RegisterAliasMap maps a source-level alias name to an encoded
	// register value (isa.EncodeRegister's scheme: class*1024+index). Kept
	// as a plain int here to avoid artifact depending on isa.
	RegisterAliasMap map[string]int `json:"registerAliasMap"`

	ProcNameToParamNames map[string][]string `json:"procNameToParamNames"`
}

// New returns an empty, ready-to-populate ProgramArtifact.
func New(programID string) *ProgramArtifact {
	return &ProgramArtifact{
		ProgramID:                    programID,
		Sources:                      map[string][]string{},
		MachineCodeLayout:            map[string]int32{},
		InitialWorldObjects:          map[string]int32{},
		SourceMap:                    map[int]SourceInfo{},
		CallSiteBindings:             map[int][]int{},
		RelativeCoordToLinearAddress: map[string]int{},
		LinearAddressToCoord:         map[int]env.Coord{},
		LabelAddressToName:           map[int]string{},
		RegisterAliasMap:             map[string]int{},
		ProcNameToParamNames:         map[string][]string{},
	}
}

// CoordAtAddress returns the coordinate for a linear address, if known.
func (p *ProgramArtifact) CoordAtAddress(addr int) (env.Coord, bool) {
	c, ok := p.LinearAddressToCoord[addr]
	return c, ok
}

// AddressAtCoord returns the linear address recorded for a coordinate, if
// the coordinate holds compiled code.
func (p *ProgramArtifact) AddressAtCoord(c env.Coord) (int, bool) {
	addr, ok := p.RelativeCoordToLinearAddress[c.Key()]
	return addr, ok
}

// programArtifactJSON mirrors ProgramArtifact field-for-field; giving
// MarshalJSON/UnmarshalJSON their own named type avoids infinitely
// recursing into themselves through json.Marshal/Unmarshal.
type programArtifactJSON ProgramArtifact

// MarshalJSON satisfies json.Marshaler. The host's out-of-scope indexer is
// the consumer spec.md §6 names for this encoding; within this module,
// cmd/evochora's compile subcommand writes it and its disasm and run
// subcommands read it back.
func (p *ProgramArtifact) MarshalJSON() ([]byte, error) {
	return json.Marshal((*programArtifactJSON)(p))
}

// UnmarshalJSON satisfies json.Unmarshaler, rejecting a payload with no
// ProgramID the way Load rejects a truncated image
// (github.com/db47h/ngaro/vm/image.go) -- a cheap sanity check before the
// simulator is handed a ProgramArtifact to run.
func (p *ProgramArtifact) UnmarshalJSON(data []byte) error {
	var aux programArtifactJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.ProgramID == "" {
		return errors.New("artifact: missing programId")
	}
	*p = ProgramArtifact(aux)
	return nil
}
