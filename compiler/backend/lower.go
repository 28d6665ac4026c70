package backend

import (
	"fmt"

	"tlog.app/go/errors"

	"github.com/slowlang/contractc/compiler/warning"
)

type (
	builtin struct {
		op      Op
		args    int
		results int
		warn    warning.Type
	}

	lowering struct {
		memoize bool

		suppressed []warning.Type
		warned     map[warning.Type]bool
		warns      []string
	}

	funLowering struct {
		*lowering

		f      *Func
		params map[string]int
		slots  int
		labels int

		memo map[Op]int
	}

	scope map[string]int
)

var builtins = map[string]builtin{
	"sload":       {op: OpSLoad, args: 1, results: 1},
	"sstore":      {op: OpSStore, args: 2},
	"caller":      {op: OpCaller, results: 1},
	"origin":      {op: OpOrigin, results: 1, warn: warning.TxOrigin},
	"ecrecover":   {op: OpEcRecover, args: 4, results: 1, warn: warning.EcRecover},
	"extcodesize": {op: OpExtCodeSize, args: 1, results: 1, warn: warning.ExtCodeSize},
	"revert":      {op: OpRevert},
}

// lower translates parsed functions into IR.
// Warnings are collected for builtins not listed in suppressed.
func lower(fns []*fnDecl, memoize bool, suppressed []warning.Type) (p *Program, warns []string, err error) {
	l := &lowering{
		memoize:    memoize,
		suppressed: suppressed,
		warned:     make(map[warning.Type]bool),
	}

	p = &Program{}
	seen := map[string]bool{}

	for _, fn := range fns {
		if seen[fn.Name] {
			return nil, nil, errors.New("line %d: function %v redeclared", fn.Line, fn.Name)
		}

		seen[fn.Name] = true

		f, err := l.fn(fn)
		if err != nil {
			return nil, nil, errors.Wrap(err, "fn %v", fn.Name)
		}

		p.Funcs = append(p.Funcs, f)
	}

	return p, l.warns, nil
}

func (l *lowering) fn(fn *fnDecl) (*Func, error) {
	fl := &funLowering{
		lowering: l,
		f:        &Func{Name: fn.Name, Args: len(fn.Params)},
		params:   make(map[string]int, len(fn.Params)),
	}

	for i, p := range fn.Params {
		if _, ok := fl.params[p]; ok {
			return nil, errors.New("line %d: parameter %v repeated", fn.Line, p)
		}

		fl.params[p] = i
	}

	if l.memoize {
		fl.prologue(fn.Body)
	}

	err := fl.block(fn.Body, scope{})
	if err != nil {
		return nil, err
	}

	if n := len(fl.f.Body); n == 0 || !fl.f.Body[n-1].terminates() {
		fl.emit(Instr{Op: OpPush}, Instr{Op: OpRet})
	}

	return fl.f, nil
}

// prologue evaluates system requests used more than once at function entry
// and keeps them in locals.
func (fl *funLowering) prologue(body []stmt) {
	uses := map[Op]int{}

	walkCalls(body, func(c call) {
		if c.Name == "caller" || c.Name == "origin" {
			uses[builtins[c.Name].op]++
		}
	})

	fl.memo = map[Op]int{}

	for _, op := range []Op{OpCaller, OpOrigin} {
		if uses[op] < 2 {
			continue
		}

		s := fl.slots
		fl.slots++

		fl.memo[op] = s
		fl.emit(Instr{Op: op}, Instr{Op: OpStore, Imm: uint64(s)})
	}
}

func (fl *funLowering) block(body []stmt, sc scope) (err error) {
	for _, s := range body {
		err = fl.stmt(s, sc)
		if err != nil {
			return err
		}
	}

	return nil
}

func (fl *funLowering) stmt(s stmt, sc scope) (err error) {
	switch s := s.(type) {
	case letStmt:
		if _, ok := sc[s.Name]; ok {
			return errors.New("line %d: %v redeclared", s.Line, s.Name)
		}

		if err = fl.value(s.X, sc); err != nil {
			return err
		}

		sc[s.Name] = fl.slots
		fl.slots++

		fl.emit(Instr{Op: OpStore, Imm: uint64(sc[s.Name])})
	case assignStmt:
		slot, ok := sc[s.Name]
		if !ok {
			if _, ok := fl.params[s.Name]; ok {
				return errors.New("line %d: cannot assign to parameter %v", s.Line, s.Name)
			}

			return errors.New("line %d: undefined: %v", s.Line, s.Name)
		}

		if err = fl.value(s.X, sc); err != nil {
			return err
		}

		fl.emit(Instr{Op: OpStore, Imm: uint64(slot)})
	case returnStmt:
		if err = fl.value(s.X, sc); err != nil {
			return err
		}

		fl.emit(Instr{Op: OpRet})
	case ifStmt:
		if err = fl.value(s.Cond, sc); err != nil {
			return err
		}

		end := fl.label()
		fl.emit(Instr{Op: OpJumpZ, Label: end})

		inner := make(scope, len(sc))
		for k, v := range sc {
			inner[k] = v
		}

		if err = fl.block(s.Body, inner); err != nil {
			return err
		}

		fl.emit(Instr{Op: OpLabel, Label: end})
	case exprStmt:
		n, err := fl.expr(s.X, sc)
		if err != nil {
			return err
		}

		if n != 0 {
			fl.emit(Instr{Op: OpPop})
		}
	default:
		panic(fmt.Sprintf("unsupported statement: %T", s))
	}

	return nil
}

func (fl *funLowering) value(x expr, sc scope) error {
	n, err := fl.expr(x, sc)
	if err != nil {
		return err
	}

	if n != 1 {
		return errors.New("%v used as value", describeExpr(x))
	}

	return nil
}

func (fl *funLowering) expr(x expr, sc scope) (results int, err error) {
	switch x := x.(type) {
	case numLit:
		fl.emit(Instr{Op: OpPush, Imm: x.V})
	case ident:
		if s, ok := sc[x.Name]; ok {
			fl.emit(Instr{Op: OpLoad, Imm: uint64(s)})
		} else if a, ok := fl.params[x.Name]; ok {
			fl.emit(Instr{Op: OpArg, Imm: uint64(a)})
		} else {
			return 0, errors.New("line %d: undefined: %v", x.Line, x.Name)
		}
	case binaryExpr:
		if err = fl.value(x.L, sc); err != nil {
			return 0, err
		}

		if err = fl.value(x.R, sc); err != nil {
			return 0, err
		}

		fl.emit(Instr{Op: x.Op})
	case call:
		b, ok := builtins[x.Name]
		if !ok {
			return 0, errors.New("line %d: unknown function %v", x.Line, x.Name)
		}

		if len(x.Args) != b.args {
			return 0, errors.New("line %d: %v takes %d arguments, got %d", x.Line, x.Name, b.args, len(x.Args))
		}

		for _, a := range x.Args {
			if err = fl.value(a, sc); err != nil {
				return 0, err
			}
		}

		if b.warn != "" && !fl.warned[b.warn] && !warning.Suppressed(fl.suppressed, b.warn) {
			fl.warned[b.warn] = true
			fl.warns = append(fl.warns, fmt.Sprintf("line %d: %s", x.Line, b.warn.Message()))
		}

		if s, ok := fl.memo[b.op]; ok {
			fl.emit(Instr{Op: OpLoad, Imm: uint64(s)})
		} else {
			fl.emit(Instr{Op: b.op})
		}

		return b.results, nil
	default:
		panic(fmt.Sprintf("unsupported expression: %T", x))
	}

	return 1, nil
}

func (fl *funLowering) emit(l ...Instr) {
	fl.f.Body = append(fl.f.Body, l...)
}

func (fl *funLowering) label() string {
	fl.labels++

	return fmt.Sprintf("L%d", fl.labels)
}

func walkCalls(body []stmt, fn func(call)) {
	var walk func(x expr)

	walk = func(x expr) {
		switch x := x.(type) {
		case binaryExpr:
			walk(x.L)
			walk(x.R)
		case call:
			fn(x)

			for _, a := range x.Args {
				walk(a)
			}
		}
	}

	for _, s := range body {
		switch s := s.(type) {
		case letStmt:
			walk(s.X)
		case assignStmt:
			walk(s.X)
		case returnStmt:
			walk(s.X)
		case exprStmt:
			walk(s.X)
		case ifStmt:
			walk(s.Cond)
			walkCalls(s.Body, fn)
		}
	}
}

func describeExpr(x expr) string {
	if c, ok := x.(call); ok {
		return fmt.Sprintf("line %d: %v()", c.Line, c.Name)
	}

	return fmt.Sprintf("%T", x)
}
