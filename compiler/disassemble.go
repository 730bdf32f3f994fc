package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rainco77/evochora-sub013/artifact"
	"github.com/rainco77/evochora-sub013/isa"
	"github.com/rainco77/evochora-sub013/molecule"
)

// Disassemble renders art's compiled code in linear-address order, one
// instruction per line, mirroring the teacher's asm.Disassemble
// (github.com/db47h/ngaro/asm/asm.go) -- opcode mnemonic followed by its
// decoded operands -- generalized from a single flat word stream to this
// module's register/immediate/vector/label operand shapes.
func Disassemble(art *artifact.ProgramArtifact) string {
	dims := worldDims(art)
	if dims == 0 {
		return ""
	}

	var addrs []int
	for addr := range art.LinearAddressToCoord {
		addrs = append(addrs, addr)
	}
	sort.Ints(addrs)

	var b strings.Builder
	for i := 0; i < len(addrs); {
		addr := addrs[i]
		coord := art.LinearAddressToCoord[addr]
		m := molecule.Molecule(art.MachineCodeLayout[coord.Key()])
		if m.Type() != molecule.CODE {
			i++
			continue
		}
		id := isa.OpcodeID(m.Value())
		sig, ok := isa.SignatureByID(id)
		if !ok {
			fmt.Fprintf(&b, "%d: <bad opcode %d>\n", addr, m.Value())
			i++
			continue
		}
		if name, ok := art.LabelAddressToName[addr]; ok {
			fmt.Fprintf(&b, "%s:\n", name)
		}

		operandAddrs := addr + 1
		var parts []string
		for _, t := range sig.ArgTypes {
			switch t {
			case isa.ArgVector, isa.ArgLabel:
				comps := make([]string, dims)
				for d := 0; d < dims; d++ {
					comps[d] = operandText(art, operandAddrs+d)
				}
				parts = append(parts, "["+strings.Join(comps, "|")+"]")
				operandAddrs += dims
			default:
				parts = append(parts, operandText(art, operandAddrs))
				operandAddrs++
			}
		}

		if src, ok := art.SourceMap[addr]; ok {
			fmt.Fprintf(&b, "%d: %s %s  ; %s:%d\n", addr, sig.Name, strings.Join(parts, ", "), src.File, src.Line)
		} else {
			fmt.Fprintf(&b, "%d: %s %s\n", addr, sig.Name, strings.Join(parts, ", "))
		}
		i += 1 + instructionOperandCells(sig, dims)
	}
	return b.String()
}

func operandText(art *artifact.ProgramArtifact, addr int) string {
	coord, ok := art.LinearAddressToCoord[addr]
	if !ok {
		return "?"
	}
	m := molecule.Molecule(art.MachineCodeLayout[coord.Key()])
	if m.Type() == molecule.DATA {
		if class, idx, ok := decodeRegisterIfValid(m.Value()); ok {
			return fmt.Sprintf("%s%d", class, idx)
		}
		return fmt.Sprintf("%d", m.Value())
	}
	return fmt.Sprintf("%s:%d", m.Type(), m.Value())
}

// decodeRegisterIfValid reinterprets v as a register encoding only when it
// falls within the registry's known class range; a plain small immediate
// would otherwise decode as class 0 index v, indistinguishable from a real
// register -- disassembly favors readability over exactness here, the same
// judgment call the teacher's own best-effort Disassemble makes for `call N`
// vs a named word.
func decodeRegisterIfValid(v int) (string, int, bool) {
	class, idx := isa.DecodeRegister(v)
	names := map[int]string{0: "DR", 1: "PR", 2: "FPR", 3: "LR"}
	name, ok := names[int(class)]
	if !ok || idx < 0 || idx > 7 {
		return "", 0, false
	}
	return name, idx, true
}

func instructionOperandCells(sig isa.Signature, dims int) int {
	n := 0
	for _, t := range sig.ArgTypes {
		switch t {
		case isa.ArgVector, isa.ArgLabel:
			n += dims
		default:
			n++
		}
	}
	return n
}

func worldDims(art *artifact.ProgramArtifact) int {
	for _, c := range art.LinearAddressToCoord {
		return len(c)
	}
	return 0
}
