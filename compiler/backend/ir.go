package backend

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"
)

type (
	Op string

	Instr struct {
		Op    Op
		Imm   uint64
		Label string
		Table []Case
	}

	Case struct {
		Selector uint32
		Label    string
	}

	Func struct {
		Name string
		Args int
		Body []Instr
	}

	// Program is the IR of a contract: its externally callable functions.
	Program struct {
		Funcs []*Func
	}

	operand int

	opInfo struct {
		code    byte
		operand operand
		asmOnly bool
	}
)

const (
	noOperand operand = iota
	immOperand
	slotOperand
	labelOperand
	tableOperand
)

const (
	OpStop        Op = "stop"
	OpPush        Op = "push"
	OpPop         Op = "pop"
	OpArg         Op = "arg"
	OpLoad        Op = "load"
	OpStore       Op = "store"
	OpAdd         Op = "add"
	OpSub         Op = "sub"
	OpMul         Op = "mul"
	OpDiv         Op = "div"
	OpMod         Op = "mod"
	OpEq          Op = "eq"
	OpLt          Op = "lt"
	OpGt          Op = "gt"
	OpSLoad       Op = "sload"
	OpSStore      Op = "sstore"
	OpCaller      Op = "caller"
	OpOrigin      Op = "origin"
	OpEcRecover   Op = "ecrecover"
	OpExtCodeSize Op = "extcodesize"
	OpSelector    Op = "selector"
	OpJump        Op = "jump"
	OpJumpZ       Op = "jumpz"
	OpJumpNZ      Op = "jumpnz"
	OpJumpTable   Op = "jumptable"
	OpRet         Op = "ret"
	OpRevert      Op = "revert"
	OpLabel       Op = "label"
)

var ops = map[Op]opInfo{
	OpStop:        {code: 0x00, asmOnly: true},
	OpPush:        {code: 0x01, operand: immOperand},
	OpPop:         {code: 0x02},
	OpArg:         {code: 0x03, operand: slotOperand},
	OpLoad:        {code: 0x04, operand: slotOperand},
	OpStore:       {code: 0x05, operand: slotOperand},
	OpAdd:         {code: 0x10},
	OpSub:         {code: 0x11},
	OpMul:         {code: 0x12},
	OpDiv:         {code: 0x13},
	OpMod:         {code: 0x14},
	OpEq:          {code: 0x15},
	OpLt:          {code: 0x16},
	OpGt:          {code: 0x17},
	OpSLoad:       {code: 0x20},
	OpSStore:      {code: 0x21},
	OpCaller:      {code: 0x22},
	OpOrigin:      {code: 0x23},
	OpEcRecover:   {code: 0x24},
	OpExtCodeSize: {code: 0x25},
	OpSelector:    {code: 0x26, asmOnly: true},
	OpJump:        {code: 0x30, operand: labelOperand},
	OpJumpZ:       {code: 0x31, operand: labelOperand},
	OpJumpNZ:      {code: 0x32, operand: labelOperand, asmOnly: true},
	OpJumpTable:   {code: 0x33, operand: tableOperand, asmOnly: true},
	OpRet:         {code: 0x34},
	OpRevert:      {code: 0x35},
	OpLabel:       {operand: labelOperand},
}

func (x Instr) terminates() bool {
	switch x.Op {
	case OpRet, OpRevert, OpJump, OpStop:
		return true
	}

	return false
}

func (x Instr) AppendText(b []byte) []byte {
	switch ops[x.Op].operand {
	case immOperand, slotOperand:
		return hfmt.Appendf(b, "%s %d", x.Op, x.Imm)
	case labelOperand:
		return hfmt.Appendf(b, "%s %s", x.Op, x.Label)
	case tableOperand:
		b = append(b, x.Op...)

		for _, c := range x.Table {
			b = hfmt.Appendf(b, " 0x%08x:%s", c.Selector, c.Label)
		}

		return b
	default:
		return append(b, x.Op...)
	}
}

func (p *Program) AppendText(b []byte) []byte {
	for i, f := range p.Funcs {
		if i != 0 {
			b = append(b, '\n')
		}

		b = hfmt.Appendf(b, "func %s %d\n", f.Name, f.Args)

		for _, x := range f.Body {
			b = append(b, '\t')
			b = x.AppendText(b)
			b = append(b, '\n')
		}

		b = append(b, "end\n"...)
	}

	return b
}

// ParseIR parses the textual IR.
func ParseIR(text string) (p *Program, err error) {
	p = &Program{}

	var f *Func

	s := bufio.NewScanner(strings.NewReader(text))
	line := 0

	for s.Scan() {
		line++

		fields := strings.Fields(stripComment(s.Text()))
		if len(fields) == 0 {
			continue
		}

		switch {
		case fields[0] == "func":
			if f != nil {
				return nil, errors.New("line %d: func %v is not closed", line, f.Name)
			}

			if len(fields) != 3 {
				return nil, errors.New("line %d: expected: func NAME NARGS", line)
			}

			args, err := strconv.Atoi(fields[2])
			if err != nil || args < 0 {
				return nil, errors.New("line %d: bad argument count %q", line, fields[2])
			}

			f = &Func{Name: fields[1], Args: args}
		case fields[0] == "end":
			if f == nil {
				return nil, errors.New("line %d: end outside of func", line)
			}

			p.Funcs = append(p.Funcs, f)
			f = nil
		case f == nil:
			return nil, errors.New("line %d: instruction outside of func", line)
		default:
			x, err := parseInstr(fields)
			if err != nil {
				return nil, errors.Wrap(err, "line %d", line)
			}

			if ops[x.Op].asmOnly {
				return nil, errors.New("line %d: %v is not an IR instruction", line, x.Op)
			}

			f.Body = append(f.Body, x)
		}
	}

	if err = s.Err(); err != nil {
		return nil, errors.Wrap(err, "scan")
	}

	if f != nil {
		return nil, errors.New("func %v is not closed", f.Name)
	}

	if len(p.Funcs) == 0 {
		return nil, errors.New("no functions")
	}

	return p, nil
}

func parseInstr(fields []string) (x Instr, err error) {
	x.Op = Op(fields[0])

	info, ok := ops[x.Op]
	if !ok {
		return x, errors.New("unknown instruction %q", fields[0])
	}

	args := fields[1:]

	switch info.operand {
	case noOperand:
		if len(args) != 0 {
			return x, errors.New("%v takes no operands", x.Op)
		}
	case immOperand, slotOperand:
		if len(args) != 1 {
			return x, errors.New("%v takes one operand", x.Op)
		}

		x.Imm, err = strconv.ParseUint(args[0], 0, 64)
		if err != nil {
			return x, errors.Wrap(err, "%v operand", x.Op)
		}
	case labelOperand:
		if len(args) != 1 {
			return x, errors.New("%v takes one label", x.Op)
		}

		x.Label = args[0]
	case tableOperand:
		for _, a := range args {
			sel, lab, ok := strings.Cut(a, ":")
			if !ok {
				return x, errors.New("%v: expected SELECTOR:LABEL, got %q", x.Op, a)
			}

			v, err := strconv.ParseUint(sel, 0, 32)
			if err != nil {
				return x, errors.Wrap(err, "%v selector", x.Op)
			}

			x.Table = append(x.Table, Case{Selector: uint32(v), Label: lab})
		}
	}

	return x, nil
}

func stripComment(l string) string {
	if i := strings.IndexByte(l, ';'); i >= 0 {
		return l[:i]
	}

	return l
}
