// Package vm implements the two-phase plan/execute step the simulation
// kernel drives once per organism per tick (spec.md §4.10).
//
// The teacher's vm.Instance (github.com/db47h/ngaro/vm/vm.go) owns a single
// program counter and steps it synchronously to completion in Run. This
// module's VM is stateless and reentrant instead: the kernel plans every
// living organism's next Instruction before executing any of them, so that
// conflicting environment writes can be resolved (spec.md §4.11) before a
// single cell changes. Instance here therefore holds no per-organism state
// at all, only the shared configuration the teacher's New(...) options used
// to populate onto Instance directly (its logger).
package vm

import (
	"github.com/sirupsen/logrus"
)

// StrictTyping mirrors the teacher's fixed addressing-mode table: if true,
// an organism whose IP sits on a non-CODE, non-empty molecule fails its
// instruction instead of attempting to decode garbage as an opcode
// (spec.md §4.10, "STRICT_TYPING").
const StrictTyping = true

// Instance runs the plan/execute step for organisms against a shared
// Environment. It carries no mutable state of its own and is safe for
// concurrent use by multiple goroutines planning different organisms,
// mirroring the teacher's *vm.Instance being one-VM-per-goroutine by
// convention rather than by lock.
type Instance struct {
	log *logrus.Entry
}

// Option configures an Instance, in the teacher's functional-options style
// (github.com/db47h/ngaro/vm/vm.go: Option, WithInput, WithOutput, ...).
type Option func(*Instance)

// WithLogger attaches a structured logger the Instance reports execution
// failures to. Grounded on the teacher's UI/Memory/Input/Output options in
// the same file.
func WithLogger(log *logrus.Entry) Option {
	return func(i *Instance) { i.log = log }
}

// New builds a VM Instance. Mirrors the teacher's vm.New(opts ...Option).
func New(opts ...Option) *Instance {
	i := &Instance{log: logrus.NewEntry(logrus.StandardLogger())}
	for _, opt := range opts {
		opt(i)
	}
	return i
}
