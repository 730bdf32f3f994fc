// Package symtab implements the scope tree the semantic analyzer builds in
// its first pass and resolves against in its second (spec.md §3, §4.4).
//
// Scopes are stored in a flat arena addressed by ScopeId rather than as a
// tree of pointer-linked nodes with parent back-pointers, per the design
// note in spec.md §9 ("Cyclic symbol graphs ... use indices into a scope
// arena"). The teacher has no symbol table at all (asm/parser.go resolves
// labels in a single flat map, since Ngaro source has no nested scopes or
// cross-file modules); this package is grounded on the pack's
// `nihei9-vartan` manifest's general table-driven-grammar style more than
// on any single teacher file, since this concern is genuinely new.
package symtab

import "strings"

// ScopeId indexes a Scope in a Table's arena. The zero value is the root.
type ScopeId int

const Root ScopeId = 0

// Kind classifies a Symbol.
type Kind int

const (
	Label Kind = iota
	Procedure
	Variable
	Alias
	Constant
)

// Symbol is one named entity defined in some scope, for some source file.
type Symbol struct {
	Name     string
	Kind     Kind
	File     string
	Exported bool
	Meta     interface{} // kind-specific payload (e.g. Procedure's param list)
}

// scope holds its parent link and its symbols, keyed by uppercased name
// then by defining file (distinct files may define the same label name
// independently, per spec.md §3: "duplicate ... within the same (scope,
// file) fails").
type scope struct {
	parent  ScopeId
	hasRoot bool // false only for the Root scope itself
	symbols map[string]map[string]Symbol
	// aliases maps a requesting file's canonical path to its REQUIRE alias table.
	aliases map[string]map[string]string
}

// Table is the scope tree (flat arena) built by the semantic analyzer's
// first pass and consulted by its second.
type Table struct {
	scopes []scope
}

// NewTable creates a Table with just the root scope.
func NewTable() *Table {
	t := &Table{}
	t.scopes = append(t.scopes, scope{
		symbols: map[string]map[string]Symbol{},
		aliases: map[string]map[string]string{},
	})
	return t
}

// NewScope creates a child scope of parent and returns its id.
func (t *Table) NewScope(parent ScopeId) ScopeId {
	t.scopes = append(t.scopes, scope{
		parent:  parent,
		hasRoot: true,
		symbols: map[string]map[string]Symbol{},
		aliases: map[string]map[string]string{},
	})
	return ScopeId(len(t.scopes) - 1)
}

// Parent returns the parent of scope id, and false if id is the root.
func (t *Table) Parent(id ScopeId) (ScopeId, bool) {
	s := &t.scopes[id]
	return s.parent, s.hasRoot
}

// Define records sym in scope id, keyed by its (uppercased name, file).
// Returns false if a symbol with the same name already exists in this
// scope for this file (a duplicate-definition error, per spec.md §3).
func (t *Table) Define(id ScopeId, sym Symbol) bool {
	key := strings.ToUpper(sym.Name)
	s := &t.scopes[id]
	byFile, ok := s.symbols[key]
	if !ok {
		byFile = map[string]Symbol{}
		s.symbols[key] = byFile
	}
	if _, exists := byFile[sym.File]; exists {
		return false
	}
	byFile[sym.File] = sym
	return true
}

// Resolve walks from scope id up to the root looking for name defined by
// file. The first scope holding a matching entry wins (spec.md §3).
func (t *Table) Resolve(id ScopeId, file, name string) (Symbol, bool) {
	key := strings.ToUpper(name)
	cur := id
	for {
		s := &t.scopes[cur]
		if byFile, ok := s.symbols[key]; ok {
			if sym, ok := byFile[file]; ok {
				return sym, true
			}
		}
		parent, hasParent := s.parent, s.hasRoot
		if !hasParent {
			return Symbol{}, false
		}
		cur = parent
	}
}

// DefineAlias records that, within requestingFile, the short name alias
// refers to targetFile (a `.REQUIRE "targetFile" AS alias`).
func (t *Table) DefineAlias(id ScopeId, requestingFile, alias, targetFile string) {
	s := &t.scopes[id]
	key := canonicalizePath(requestingFile)
	m, ok := s.aliases[key]
	if !ok {
		m = map[string]string{}
		s.aliases[key] = m
	}
	m[strings.ToUpper(alias)] = targetFile
}

// ResolveAlias looks up alias in requestingFile's alias map, searching from
// scope id up to the root (alias declarations are recorded in whichever
// scope the .REQUIRE appeared in, normally the root).
func (t *Table) ResolveAlias(id ScopeId, requestingFile, alias string) (string, bool) {
	key := canonicalizePath(requestingFile)
	aliasKey := strings.ToUpper(alias)
	cur := id
	for {
		s := &t.scopes[cur]
		if m, ok := s.aliases[key]; ok {
			if target, ok := m[aliasKey]; ok {
				return target, true
			}
		}
		parent, hasParent := s.parent, s.hasRoot
		if !hasParent {
			return "", false
		}
		cur = parent
	}
}

// ResolveCrossFile resolves a dotted `ALIAS.NAME` reference: ALIAS is
// looked up in requestingFile's alias map to find a target file, then NAME
// is searched for across the whole tree restricted to that file. Non-exported
// procedures are not visible this way (spec.md §3).
func (t *Table) ResolveCrossFile(requestingFile, alias, name string) (Symbol, bool) {
	target, ok := t.ResolveAlias(Root, requestingFile, alias)
	if !ok {
		return Symbol{}, false
	}
	key := strings.ToUpper(name)
	for i := range t.scopes {
		byFile, ok := t.scopes[i].symbols[key]
		if !ok {
			continue
		}
		sym, ok := byFile[target]
		if !ok {
			continue
		}
		if sym.Kind == Procedure && !sym.Exported {
			return Symbol{}, false
		}
		return sym, true
	}
	return Symbol{}, false
}

// canonicalizePath normalizes a file path to forward slashes, the
// convention spec.md §9 requires for cross-file alias keys.
func canonicalizePath(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// AllSymbols returns every symbol defined anywhere in the table, of the
// given kind, in no particular order. Used by the linker (internal/link) to
// build the artifact's whole-program RegisterAliasMap and
// ProcNameToParamNames without needing its own scope-tree walk.
func (t *Table) AllSymbols(kind Kind) []Symbol {
	var out []Symbol
	for i := range t.scopes {
		for _, byFile := range t.scopes[i].symbols {
			for _, sym := range byFile {
				if sym.Kind == kind {
					out = append(out, sym)
				}
			}
		}
	}
	return out
}

// ResolveBySuffix is the fallback cross-file lookup spec.md §9 calls out:
// "compare by suffix as a fallback only when exact match fails". Used when
// ResolveCrossFile's exact file-path match misses, e.g. because one side
// used an absolute path and the other a path relative to a different root.
func (t *Table) ResolveBySuffix(requestingFile, alias, name string) (Symbol, bool) {
	target, ok := t.ResolveAlias(Root, requestingFile, alias)
	if !ok {
		return Symbol{}, false
	}
	key := strings.ToUpper(name)
	targetCanon := canonicalizePath(target)
	for i := range t.scopes {
		byFile, ok := t.scopes[i].symbols[key]
		if !ok {
			continue
		}
		for file, sym := range byFile {
			if strings.HasSuffix(canonicalizePath(file), targetCanon) || strings.HasSuffix(targetCanon, canonicalizePath(file)) {
				if sym.Kind == Procedure && !sym.Exported {
					continue
				}
				return sym, true
			}
		}
	}
	return Symbol{}, false
}
