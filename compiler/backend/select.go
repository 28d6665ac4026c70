package backend

import (
	"encoding/binary"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/slowlang/contractc/compiler/hash"
	"github.com/slowlang/contractc/compiler/target"
)

type selection struct {
	threshold int
	version   target.Version
	forceJT   bool
}

// Signature is the external name of a function with n word arguments.
func Signature(name string, n int) string {
	var b strings.Builder

	b.WriteString(name)
	b.WriteByte('(')

	for i := 0; i < n; i++ {
		if i != 0 {
			b.WriteByte(',')
		}

		b.WriteString("uint256")
	}

	b.WriteByte(')')

	return b.String()
}

func Selector(sig string) uint32 {
	h := hash.Keccak256([]byte(sig))

	return binary.BigEndian.Uint32(h[:4])
}

// jumpTables reports whether the target has the jumptable instruction.
func jumpTables(v target.Version) bool {
	return v != target.Paris
}

// selectCode lays out functions after a dispatcher that routes
// calls by selector.
func (s selection) selectCode(p *Program) (code []Instr, selectors map[string]string, err error) {
	selectors = make(map[string]string, len(p.Funcs))

	var table []Case
	seen := map[uint32]string{}

	for _, f := range p.Funcs {
		sig := Signature(f.Name, f.Args)
		sel := Selector(sig)

		if prev, ok := seen[sel]; ok {
			return nil, nil, errors.New("selector collision: %v and %v", prev, sig)
		}

		seen[sel] = sig

		var sb [4]byte
		binary.BigEndian.PutUint32(sb[:], sel)
		selectors[sig] = hex.EncodeToString(sb[:])

		table = append(table, Case{Selector: sel, Label: f.Name})
	}

	sort.Slice(table, func(i, j int) bool { return table[i].Selector < table[j].Selector })

	useJT := jumpTables(s.version) && (s.forceJT && len(table) > 1 || len(table) >= s.threshold)

	if useJT {
		code = append(code, Instr{Op: OpSelector}, Instr{Op: OpJumpTable, Table: table})
	} else {
		for _, c := range table {
			code = append(code,
				Instr{Op: OpSelector},
				Instr{Op: OpPush, Imm: uint64(c.Selector)},
				Instr{Op: OpEq},
				Instr{Op: OpJumpNZ, Label: c.Label},
			)
		}
	}

	code = append(code, Instr{Op: OpRevert})

	for _, f := range p.Funcs {
		code = append(code, Instr{Op: OpLabel, Label: f.Name})

		for _, x := range f.Body {
			if x.Label != "" {
				x.Label = f.Name + "." + x.Label
			}

			code = append(code, x)
		}
	}

	return code, selectors, nil
}

func appendAssembly(b []byte, path string, code []Instr) []byte {
	if path != "" {
		b = hfmt.Appendf(b, "; %s\n", path)
	}

	for _, x := range code {
		if x.Op == OpLabel {
			b = append(b, x.Label...)
			b = append(b, ":\n"...)

			continue
		}

		b = append(b, '\t')
		b = x.AppendText(b)
		b = append(b, '\n')
	}

	return b
}
