// Package link implements the final compiler phase (spec.md §4.8): it
// resolves every internal/layout.PendingLabelRef into the concrete
// relative-vector molecules the runtime cursor convention expects
// (isa/decode.go's readLabel), then assembles a *artifact.ProgramArtifact
// from the layout Result plus the whole program's symbol table.
//
// The teacher's asm package links nothing separately: asm/parser.go backpatches
// forward jump targets into the same []vm.Cell it is already writing
// (github.com/db47h/ngaro/asm). This module keeps that same "patch holes
// after the fact" idea but as its own phase, since label targets here are
// relative vectors spanning however many cells the world has dimensions,
// not a single backpatched word.
package link

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/rainco77/evochora-sub013/artifact"
	"github.com/rainco77/evochora-sub013/internal/ast"
	"github.com/rainco77/evochora-sub013/internal/layout"
	"github.com/rainco77/evochora-sub013/internal/semantics"
	"github.com/rainco77/evochora-sub013/internal/symtab"
	"github.com/rainco77/evochora-sub013/isa"
	"github.com/rainco77/evochora-sub013/molecule"
	"github.com/rainco77/evochora-sub013/organism"
)

// Build resolves res's pending label references and assembles the final
// artifact. sources maps each compiled file name to its original lines
// (spec.md §3, ProgramArtifact.Sources); table is the whole program's shared
// symbol table, used to populate RegisterAliasMap and
// ProcNameToParamNames.
func Build(programID string, res *layout.Result, table *symtab.Table, sources map[string][]string) (*artifact.ProgramArtifact, error) {
	if err := resolveLabelRefs(res); err != nil {
		return nil, err
	}

	art := artifact.New(programID)
	for file, lines := range sources {
		art.Sources[file] = lines
	}

	for key, m := range res.Cells {
		art.MachineCodeLayout[key] = int32(m)
	}
	for _, pl := range res.Placements {
		coord := pl.Coord
		art.InitialWorldObjects[coord.Key()] = int32(molecule.New(pl.Type, int(pl.Value)))
	}
	for key, addr := range res.Addresses {
		art.RelativeCoordToLinearAddress[key] = addr
	}
	for addr, coord := range res.AddrToCoord {
		art.LinearAddressToCoord[addr] = coord
	}
	for name, addr := range res.LabelAddresses {
		art.LabelAddressToName[addr] = name
	}
	for addr, src := range res.SourceMap {
		art.SourceMap[addr] = src
	}
	for addr, counts := range res.CallSites {
		art.CallSiteBindings[addr] = counts
	}

	populateAliases(art, table)
	populateProcParams(art, table)

	return art, nil
}

// resolveLabelRefs fills in every PendingLabelRef's reserved cells with the
// relative-vector components from its instruction site to its target's
// bound coordinate (spec.md §4.8: "label operands encode as N-cell relative
// vectors from instruction site to target").
func resolveLabelRefs(res *layout.Result) error {
	for _, ref := range res.PendingRefs {
		target, ok := res.Labels[ref.Target]
		if !ok {
			return errors.Errorf("unresolved label at link time: %s", ref.Target)
		}
		rel := target.Add(ref.Site.Scale(-1))
		for i, cell := range ref.Cells {
			res.Cells[cell.Key()] = molecule.New(molecule.DATA, rel[i])
		}
	}
	return nil
}

// populateAliases fills ProgramArtifact.RegisterAliasMap from every .REG
// alias symbol defined anywhere in the program (spec.md §6, "Produced
// interfaces").
func populateAliases(art *artifact.ProgramArtifact, table *symtab.Table) {
	for _, sym := range table.AllSymbols(symtab.Alias) {
		reg, ok := sym.Meta.(ast.Register)
		if !ok {
			continue
		}
		if encoded, ok := registerEncoding(reg.Text); ok {
			art.RegisterAliasMap[sym.Name] = encoded
		}
	}
}

// populateProcParams fills ProgramArtifact.ProcNameToParamNames from every
// procedure symbol defined anywhere in the program (spec.md §6).
func populateProcParams(art *artifact.ProgramArtifact, table *symtab.Table) {
	for _, sym := range table.AllSymbols(symtab.Procedure) {
		meta, ok := sym.Meta.(semantics.ProcedureMeta)
		if !ok {
			continue
		}
		names := make([]string, len(meta.Params))
		for i, p := range meta.Params {
			names[i] = p.Name
		}
		art.ProcNameToParamNames[sym.File+"#"+strings.ToUpper(sym.Name)] = names
	}
}

// registerEncoding resolves a register token's text (e.g. "%DR0") to
// isa.EncodeRegister's packed int, the same scheme internal/layout uses when
// placing register operands.
func registerEncoding(text string) (int, bool) {
	class, idx, ok := semantics.ParseRegisterText(text)
	if !ok {
		return 0, false
	}
	var rc organism.RegisterClass
	switch class {
	case "DR":
		rc = organism.ClassData
	case "PR":
		rc = organism.ClassProc
	case "FPR":
		rc = organism.ClassFormalParam
	case "LR":
		rc = organism.ClassLocation
	default:
		return 0, false
	}
	return isa.EncodeRegister(rc, idx), true
}
