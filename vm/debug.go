package vm

import (
	"fmt"
	"io"

	"github.com/rainco77/evochora-sub013/organism"
)

// errWriter tracks the first error from a run of writes so the caller only
// has to check it once at the end instead of after every Fprintf.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) Write(p []byte) (int, error) {
	if ew.err != nil {
		return 0, ew.err
	}
	n, err := ew.w.Write(p)
	if err != nil {
		ew.err = err
	}
	return n, ew.err
}

// DumpOrganism writes a human-readable snapshot of an organism's registers,
// stacks and energy to w, for interactive debugging sessions.
//
// Grounded on the teacher's lang/retro.DumpVM (github.com/db47h/ngaro/lang/retro/dump.go),
// which renders a vm.Instance's data stack, address stack and memory image
// as whitespace-separated integers prefixed by a control byte. This module
// has no single linear memory image to dump and instead renders the
// Organism's richer, per-class register file and named stacks.
func DumpOrganism(o *organism.Organism, w io.Writer) error {
	ew := &errWriter{w: w}
	fmt.Fprintf(ew, "organism %d (parent %d, born tick %d)\n", o.ID, o.ParentID, o.BirthTick)
	fmt.Fprintf(ew, "  ip=%v dv=%v er=%d dead=%v\n", o.IP, o.DV, o.ER, o.Dead)
	fmt.Fprintf(ew, "  dr=%v pr=%v fpr=%v\n", o.DataRegisters, o.ProcRegisters, o.FormalParamRegisters)
	fmt.Fprintf(ew, "  lr=%v\n", o.LocationRegisters)
	fmt.Fprintf(ew, "  data stack=%v call stack depth=%d location stack=%v\n",
		o.DataStack, len(o.CallStack), o.LocationStack)
	if o.InstructionFailed {
		fmt.Fprintf(ew, "  last instruction failed: %s\n", o.FailureReason)
	}
	return ew.err
}
