// Package compiler wires the whole pipeline (spec.md §2): lexer,
// preprocessor, parser, two-pass semantic analyzer, IR generator, emission
// rewriter, layout engine and linker, turning a set of source files reachable
// from one entry file into a single *artifact.ProgramArtifact.
//
// The teacher has no driver package of its own: cmd/retro/main.go calls
// asm.NewAssembler directly for the one file the user named. This module's
// multi-file `.REQUIRE` graph needs a discovery step before anything can be
// analyzed (every required file must be parsed before cross-file symbols can
// resolve), so Compile owns that discovery the way a build tool's dependency
// walk would, rather than pushing it onto the caller.
package compiler

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/rainco77/evochora-sub013/artifact"
	"github.com/rainco77/evochora-sub013/internal/ast"
	"github.com/rainco77/evochora-sub013/internal/diag"
	"github.com/rainco77/evochora-sub013/internal/emit"
	"github.com/rainco77/evochora-sub013/internal/ir"
	"github.com/rainco77/evochora-sub013/internal/irgen"
	"github.com/rainco77/evochora-sub013/internal/layout"
	"github.com/rainco77/evochora-sub013/internal/link"
	"github.com/rainco77/evochora-sub013/internal/parser"
	"github.com/rainco77/evochora-sub013/internal/preprocess"
	"github.com/rainco77/evochora-sub013/internal/semantics"
)

// Loader resolves a source path to its text; compiler.Compile and
// internal/preprocess share this interface so a caller's single filesystem
// (or in-memory test fixture) implementation backs both.
type Loader = preprocess.Loader

// Options configures one compilation run.
type Options struct {
	// Dims is the world's dimensionality. Every .ORG/.DIR/.PLACE/vector
	// operand in the source must agree with it.
	Dims int
}

// Result is the artifact Compile produces plus the semantic analyzer that
// validated it (with its per-file scope tree), kept around for tooling
// (e.g. a future language server) that wants to resolve symbols without
// recompiling. The diagnostics engine is not part of it.
type Result struct {
	Artifact *artifact.ProgramArtifact
	Table    *semantics.Analyzer
}

// Compile compiles entry and everything it transitively .REQUIREs into one
// ProgramArtifact. Diagnostics from every phase are reported through a
// single diag.Engine; the first phase boundary with errors aborts and
// returns its *diag.CompilationFailed.
func Compile(entry string, loader Loader, opts Options) (*Result, error) {
	d := &diag.Engine{}

	units, order, err := discover(entry, loader, d)
	if err != nil {
		return nil, err
	}
	if failure := d.Fail("parse"); failure != nil {
		return nil, failure
	}

	analyzer := semantics.New(d)
	for _, name := range order {
		analyzer.CollectFile(units[name])
	}
	for _, name := range order {
		analyzer.AnalyzeFile(units[name])
	}
	if failure := d.Fail("semantic analysis"); failure != nil {
		return nil, failure
	}

	gen := irgen.New(analyzer.Table, analyzer)
	var program []ir.Item
	for _, name := range order {
		program = append(program, gen.Generate(units[name])...)
	}

	program = emit.Rewrite(program)

	placer := layout.New(opts.Dims)
	placed, err := placer.Place(program)
	if err != nil {
		return nil, errors.Wrap(err, "layout")
	}

	sources := map[string][]string{}
	for name := range units {
		text, err := loader.ReadFile(name)
		if err != nil {
			continue
		}
		sources[name] = strings.Split(text, "\n")
	}

	art, err := link.Build(uuid.New().String(), placed, analyzer.Table, sources)
	if err != nil {
		return nil, errors.Wrap(err, "link")
	}

	return &Result{Artifact: art, Table: analyzer}, nil
}

// discover parses entry and every file it (transitively) .REQUIREs,
// returning each unit's AST keyed by canonical path plus a deterministic
// compilation order (entry first, then every required file in the order
// first discovered, so generated IR and diagnostics are reproducible across
// runs).
func discover(entry string, loader Loader, d *diag.Engine) (map[string]*ast.File, []string, error) {
	units := map[string]*ast.File{}
	var order []string
	queue := []string{entry}
	queued := map[string]bool{entry: true}

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		pp := preprocess.New(loader, d)
		toks := pp.Expand(name)
		f := parser.New(name, toks, d).Parse()
		units[name] = f
		order = append(order, name)

		for _, req := range collectRequires(f.Items) {
			if !queued[req] {
				queued[req] = true
				queue = append(queue, req)
			}
		}
	}

	return units, order, nil
}

// collectRequires walks a file's tree (into procedure and scope bodies) for
// every .REQUIRE/.IMPORT path it names.
func collectRequires(items []ast.Node) []string {
	var out []string
	for _, n := range items {
		switch node := n.(type) {
		case *ast.Require:
			out = append(out, node.Path)
		case *ast.Procedure:
			out = append(out, collectRequires(node.Body)...)
		case *ast.Scope:
			out = append(out, collectRequires(node.Body)...)
		}
	}
	return out
}
