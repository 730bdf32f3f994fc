// Package diag provides the accumulating diagnostics sink shared by every
// compiler phase (lexer, preprocessor, parser, semantic analyzer).
//
// It replaces exceptions-as-control-flow: a phase keeps going after a
// recoverable error and reports everything it found in one pass. This
// generalizes the teacher's asm.ErrAsm (github.com/db47h/ngaro/asm), which
// accumulates up to a fixed number of parse errors for a single file, into a
// tree-wide, multi-severity sink used across every phase of this module.
package diag

import (
	"fmt"
	"sort"
	"strings"
)

// Severity classifies a diagnostic.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	default:
		return "error"
	}
}

// Pos locates a diagnostic in source text. Line and Column are 1-based.
type Pos struct {
	File   string
	Line   int
	Column int
}

func (p Pos) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Diagnostic is a single recorded issue.
type Diagnostic struct {
	Severity Severity
	Message  string
	Pos      Pos
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Severity, d.Message)
}

// Engine accumulates diagnostics across a compilation run. The zero value is
// ready to use.
type Engine struct {
	items []Diagnostic
}

// Errorf records an error-severity diagnostic at pos.
func (e *Engine) Errorf(pos Pos, format string, args ...interface{}) {
	e.add(Error, pos, format, args...)
}

// Warnf records a warning-severity diagnostic at pos.
func (e *Engine) Warnf(pos Pos, format string, args ...interface{}) {
	e.add(Warning, pos, format, args...)
}

// Infof records an info-severity diagnostic at pos.
func (e *Engine) Infof(pos Pos, format string, args ...interface{}) {
	e.add(Info, pos, format, args...)
}

func (e *Engine) add(sev Severity, pos Pos, format string, args ...interface{}) {
	e.items = append(e.items, Diagnostic{
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
		Pos:      pos,
	})
}

// HasErrors reports whether any error-severity diagnostic was recorded.
func (e *Engine) HasErrors() bool {
	for _, d := range e.items {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// All returns every recorded diagnostic, sorted by file then line then
// column, which is stable regardless of the order phases ran in.
func (e *Engine) All() []Diagnostic {
	out := make([]Diagnostic, len(e.items))
	copy(out, e.items)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Pos, out[j].Pos
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	return out
}

// Reset clears all recorded diagnostics. Used between independent
// compilations sharing an Engine (e.g. in tests).
func (e *Engine) Reset() {
	e.items = nil
}

// CompilationFailed is returned by the compiler driver when a phase boundary
// finds errors in the Engine. It carries the diagnostics summary so the
// caller (host CLI or test) can report all issues in one shot.
type CompilationFailed struct {
	Phase       string
	Diagnostics []Diagnostic
}

func (e *CompilationFailed) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "compilation failed in phase %q:\n", e.Phase)
	for _, d := range e.Diagnostics {
		b.WriteString("  ")
		b.WriteString(d.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Fail returns a *CompilationFailed for the given phase if the engine has
// errors, nil otherwise. Callers raise this at each phase boundary.
func (e *Engine) Fail(phase string) error {
	if !e.HasErrors() {
		return nil
	}
	return &CompilationFailed{Phase: phase, Diagnostics: e.All()}
}
