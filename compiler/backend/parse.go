package backend

import (
	"context"
	"strconv"

	"tlog.app/go/errors"

	"github.com/slowlang/contractc/compiler/parse"
)

type (
	fnDecl struct {
		Name   string
		Params []string
		Body   []stmt
		Line   int
	}

	stmt interface{}

	letStmt struct {
		Name string
		X    expr
		Line int
	}

	assignStmt struct {
		Name string
		X    expr
		Line int
	}

	returnStmt struct {
		X expr
	}

	ifStmt struct {
		Cond expr
		Body []stmt
	}

	exprStmt struct {
		X expr
	}

	expr interface{}

	numLit struct {
		V uint64
	}

	ident struct {
		Name string
		Line int
	}

	binaryExpr struct {
		Op   Op
		L, R expr
	}

	call struct {
		Name string
		Args []expr
		Line int
	}

	fnParser     struct{}
	blockParser  struct{}
	letParser    struct{}
	returnParser struct{}
	ifParser     struct{}
	simpleParser struct{}
	primary      struct{}
	callOrIdent  struct{}
	parens       struct{}

	// exprLevel parses binary operators of binaryLevels[level] and tighter.
	exprLevel int

	binaryOp struct {
		text string
		op   Op
	}
)

var blank = parse.LineComments{Spaces: parse.SpaceAll, Prefix: "//"}

var binaryLevels = [][]binaryOp{
	{{"==", OpEq}, {"<", OpLt}, {">", OpGt}},
	{{"+", OpAdd}, {"-", OpSub}},
	{{"*", OpMul}, {"/", OpDiv}, {"%", OpMod}},
}

func sp(p parse.Parser) parse.Spacer { return parse.Spaced(p, blank) }

func parseSource(ctx context.Context, src string) (fns []*fnDecl, err error) {
	x, err := parse.Parse(ctx, parse.Many{Of: sp(fnParser{})}, blank, []byte(src))
	if err != nil {
		return nil, err
	}

	for _, f := range x.([]parse.Node) {
		fns = append(fns, f.(*fnDecl))
	}

	if len(fns) == 0 {
		return nil, errors.New("no functions")
	}

	return fns, nil
}

func (fnParser) Parse(ctx context.Context, b []byte, st int) (x parse.Node, i int, err error) {
	r := parse.AllOf{
		parse.Keyword("fn"),
		sp(parse.Ident{}),
		sp(parse.Context{
			Pre:  parse.Const("("),
			Of:   parse.List{Of: sp(parse.Ident{}), Sep: sp(parse.Const(","))},
			Post: sp(parse.Const(")")),
		}),
		sp(blockParser{}),
	}

	x, i, err = r.Parse(ctx, b, st)
	if err != nil {
		return nil, i, err
	}

	xs := x.([]parse.Node)

	f := &fnDecl{
		Name: xs[1].(parse.Token).Text,
		Body: xs[3].([]stmt),
		Line: parse.Line(b, st),
	}

	for _, p := range xs[2].([]parse.Node) {
		f.Params = append(f.Params, p.(parse.Token).Text)
	}

	return f, i, nil
}

func (blockParser) Parse(ctx context.Context, b []byte, st int) (x parse.Node, i int, err error) {
	r := parse.Context{
		Pre:  parse.Const("{"),
		Of:   parse.Many{Of: sp(parse.AnyOf{letParser{}, returnParser{}, ifParser{}, simpleParser{}})},
		Post: sp(parse.Const("}")),
	}

	x, i, err = r.Parse(ctx, b, st)
	if err != nil {
		return nil, i, err
	}

	var l []stmt

	for _, s := range x.([]parse.Node) {
		l = append(l, s)
	}

	return l, i, nil
}

func (blockParser) String() string { return `"{"` }

func (letParser) Parse(ctx context.Context, b []byte, st int) (x parse.Node, i int, err error) {
	r := parse.AllOf{
		parse.Keyword("let"),
		sp(parse.Ident{}),
		sp(parse.Const("=")),
		sp(exprLevel(0)),
	}

	x, i, err = r.Parse(ctx, b, st)
	if err != nil {
		return nil, i, err
	}

	xs := x.([]parse.Node)

	return letStmt{Name: xs[1].(parse.Token).Text, X: xs[3], Line: parse.Line(b, st)}, i, nil
}

func (letParser) String() string { return `"let"` }

func (returnParser) Parse(ctx context.Context, b []byte, st int) (x parse.Node, i int, err error) {
	x, i, err = parse.AllOf{parse.Keyword("return"), sp(exprLevel(0))}.Parse(ctx, b, st)
	if err != nil {
		return nil, i, err
	}

	return returnStmt{X: x.([]parse.Node)[1]}, i, nil
}

func (returnParser) String() string { return `"return"` }

func (ifParser) Parse(ctx context.Context, b []byte, st int) (x parse.Node, i int, err error) {
	x, i, err = parse.AllOf{parse.Keyword("if"), sp(exprLevel(0)), sp(blockParser{})}.Parse(ctx, b, st)
	if err != nil {
		return nil, i, err
	}

	xs := x.([]parse.Node)

	return ifStmt{Cond: xs[1], Body: xs[2].([]stmt)}, i, nil
}

func (ifParser) String() string { return `"if"` }

// simpleParser is an expression statement or an assignment.
func (simpleParser) Parse(ctx context.Context, b []byte, st int) (x parse.Node, i int, err error) {
	x, i, err = exprLevel(0).Parse(ctx, b, st)
	if err != nil {
		return nil, i, err
	}

	id, ok := x.(ident)
	if !ok {
		return exprStmt{X: x}, i, nil
	}

	_, j, err := sp(parse.Const("=")).Parse(ctx, b, i)
	if err != nil {
		return exprStmt{X: x}, i, nil
	}

	v, j, err := sp(exprLevel(0)).Parse(ctx, b, j)
	if err != nil {
		return nil, j, err
	}

	return assignStmt{Name: id.Name, X: v, Line: id.Line}, j, nil
}

func (simpleParser) String() string { return "statement" }

func (l exprLevel) Parse(ctx context.Context, b []byte, st int) (x parse.Node, i int, err error) {
	if int(l) == len(binaryLevels) {
		return primary{}.Parse(ctx, b, st)
	}

	ops := make(parse.AnyOf, len(binaryLevels[l]))
	for j, o := range binaryLevels[l] {
		ops[j] = o
	}

	return parse.LeftToRight{Op: sp(ops), Arg: sp(l + 1)}.Parse(ctx, b, st)
}

func (l exprLevel) String() string { return "expression" }

func (o binaryOp) Parse(ctx context.Context, b []byte, st int) (x parse.Node, i int, err error) {
	_, i, err = parse.Const(o.text).Parse(ctx, b, st)
	if err != nil {
		return nil, i, err
	}

	return o, i, nil
}

func (o binaryOp) BinOp(l, r parse.Node) (parse.Node, error) {
	return binaryExpr{Op: o.op, L: l, R: r}, nil
}

func (o binaryOp) String() string { return strconv.Quote(o.text) }

func (primary) Parse(ctx context.Context, b []byte, st int) (x parse.Node, i int, err error) {
	x, i, err = parse.AnyOf{parse.Int{}, callOrIdent{}, parens{}}.Parse(ctx, b, st)
	if err != nil {
		return nil, i, err
	}

	if n, ok := x.(parse.Number); ok {
		return numLit{V: n.Value}, i, nil
	}

	return x, i, nil
}

func (callOrIdent) Parse(ctx context.Context, b []byte, st int) (x parse.Node, i int, err error) {
	x, i, err = parse.Ident{}.Parse(ctx, b, st)
	if err != nil {
		return nil, i, err
	}

	name := x.(parse.Token).Text
	line := parse.Line(b, st)

	args := parse.Context{
		Pre:  parse.Const("("),
		Of:   parse.List{Of: sp(exprLevel(0)), Sep: sp(parse.Const(","))},
		Post: sp(parse.Const(")")),
	}

	y, j, err := sp(args).Parse(ctx, b, i)
	if err != nil && j == i {
		return ident{Name: name, Line: line}, i, nil
	}

	if err != nil {
		return nil, j, err
	}

	c := call{Name: name, Line: line}

	for _, a := range y.([]parse.Node) {
		c.Args = append(c.Args, a)
	}

	return c, j, nil
}

func (callOrIdent) String() string { return "identifier" }

func (parens) Parse(ctx context.Context, b []byte, st int) (x parse.Node, i int, err error) {
	return parse.Context{
		Pre:  parse.Const("("),
		Of:   sp(exprLevel(0)),
		Post: sp(parse.Const(")")),
	}.Parse(ctx, b, st)
}

func (parens) String() string { return `"("` }
