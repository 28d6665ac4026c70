package backend

import "github.com/slowlang/contractc/compiler/set"

// optimize folds constant arithmetic and drops unreachable code.
func optimize(p *Program) {
	for _, f := range p.Funcs {
		for changed := true; changed; {
			var c1, c2, c3 bool

			f.Body, c1 = fold(f.Body)
			f.Body, c2 = unusedLabels(f.Body)
			f.Body, c3 = unreachable(f.Body)

			changed = c1 || c2 || c3
		}
	}
}

func fold(body []Instr) (_ []Instr, changed bool) {
	out := body[:0:0]

	for _, x := range body {
		n := len(out)

		switch {
		case x.Op == OpPop && n > 0 && out[n-1].Op == OpPush:
			out = out[:n-1]
			changed = true

			continue
		case n >= 2 && out[n-2].Op == OpPush && out[n-1].Op == OpPush:
			if v, ok := eval(x.Op, out[n-2].Imm, out[n-1].Imm); ok {
				out = append(out[:n-2], Instr{Op: OpPush, Imm: v})
				changed = true

				continue
			}
		}

		out = append(out, x)
	}

	return out, changed
}

func eval(op Op, a, b uint64) (uint64, bool) {
	switch op {
	case OpAdd:
		return a + b, true
	case OpSub:
		return a - b, true
	case OpMul:
		return a * b, true
	case OpDiv:
		if b == 0 {
			return 0, true
		}

		return a / b, true
	case OpMod:
		if b == 0 {
			return 0, true
		}

		return a % b, true
	case OpEq:
		return b2u(a == b), true
	case OpLt:
		return b2u(a < b), true
	case OpGt:
		return b2u(a > b), true
	}

	return 0, false
}

// unusedLabels removes labels no jump refers to,
// so code after a terminator up to such a label becomes unreachable.
func unusedLabels(body []Instr) (_ []Instr, changed bool) {
	pos := map[string]int{}

	for i, x := range body {
		if x.Op == OpLabel {
			pos[x.Label] = i
		}
	}

	var used set.Bitmap

	use := func(l string) {
		if i, ok := pos[l]; ok {
			used.Set(i)
		}
	}

	for _, x := range body {
		switch x.Op {
		case OpJump, OpJumpZ, OpJumpNZ:
			use(x.Label)
		case OpJumpTable:
			for _, c := range x.Table {
				use(c.Label)
			}
		}
	}

	if used.Size() == len(pos) {
		return body, false
	}

	out := body[:0:0]

	for i, x := range body {
		if x.Op == OpLabel && !used.IsSet(i) {
			continue
		}

		out = append(out, x)
	}

	return out, true
}

func unreachable(body []Instr) (_ []Instr, changed bool) {
	out := body[:0:0]
	dead := false

	for _, x := range body {
		if x.Op == OpLabel {
			dead = false
		}

		if dead {
			changed = true
			continue
		}

		out = append(out, x)

		if x.terminates() {
			dead = true
		}
	}

	return out, changed
}

func b2u(v bool) uint64 {
	if v {
		return 1
	}

	return 0
}
