package parse

import (
	"context"
	"fmt"
	"strings"

	"tlog.app/go/errors"
)

type (
	None struct{}

	Optional struct {
		Parser
	}

	Context struct {
		Pre  Parser
		Of   Parser
		Post Parser
	}

	AllOf []Parser

	// AnyOf returns the first alternative that succeeds.
	// An alternative failing after it consumed input is final.
	AnyOf []Parser

	// Many applies Of until it stops making progress.
	Many struct {
		Of Parser
	}

	// List is zero or more Of separated by Sep.
	List struct {
		Of  Parser
		Sep Parser
	}
)

func (None) Parse(ctx context.Context, b []byte, st int) (_ Node, i int, err error) {
	return None{}, st, nil
}

func (p Optional) Parse(ctx context.Context, b []byte, st int) (x Node, i int, err error) {
	x, i, err = p.Parser.Parse(ctx, b, st)
	if i == st {
		return None{}, st, nil
	}

	return
}

func (p Context) Parse(ctx context.Context, b []byte, st int) (x Node, i int, err error) {
	i = st

	if p.Pre != nil {
		_, i, err = p.Pre.Parse(ctx, b, i)
		if err != nil {
			return nil, i, err
		}
	}

	x, i, err = p.Of.Parse(ctx, b, i)
	if err != nil {
		return nil, i, err
	}

	if p.Post != nil {
		_, i, err = p.Post.Parse(ctx, b, i)
		if err != nil {
			return nil, i, err
		}
	}

	return x, i, nil
}

func (p AllOf) Parse(ctx context.Context, b []byte, st int) (x Node, i int, err error) {
	i = st

	res := make([]Node, len(p))

	for j, r := range p {
		x, i, err = r.Parse(ctx, b, i)
		if err != nil {
			return nil, i, err
		}

		res[j] = x
	}

	return res, i, nil
}

func (p AnyOf) Parse(ctx context.Context, b []byte, st int) (_ Node, i int, err error) {
	for _, r := range p {
		x, j, err := r.Parse(ctx, b, st)
		if err == nil {
			return x, j, nil
		}

		if j != st {
			return nil, j, err
		}
	}

	return nil, st, errors.New("expected %v", joinHuman(p...))
}

func (p Many) Parse(ctx context.Context, b []byte, st int) (_ Node, i int, err error) {
	var res []Node

	i = st

	for {
		x, j, err := p.Of.Parse(ctx, b, i)
		if err != nil && j != i {
			return nil, j, err
		}

		if err != nil || j == i {
			return res, i, nil
		}

		res = append(res, x)
		i = j
	}
}

func (p List) Parse(ctx context.Context, b []byte, st int) (_ Node, i int, err error) {
	x, i, err := p.Of.Parse(ctx, b, st)
	if err != nil {
		if i == st {
			return []Node(nil), st, nil
		}

		return nil, i, err
	}

	res := []Node{x}

	for {
		_, j, err := p.Sep.Parse(ctx, b, i)
		if err != nil {
			if j == i {
				return res, i, nil
			}

			return nil, j, err
		}

		x, j, err = p.Of.Parse(ctx, b, j)
		if err != nil {
			return nil, j, err
		}

		res = append(res, x)
		i = j
	}
}

func joinHuman(l ...Parser) string {
	switch len(l) {
	case 0:
		return "<none>"
	case 1:
		return name(l[0])
	}

	var b strings.Builder

	for i, r := range l {
		if i+1 == len(l) {
			b.WriteString(" or ")
		} else if i != 0 {
			b.WriteString(", ")
		}

		b.WriteString(name(r))
	}

	return b.String()
}

func name(p Parser) string {
	if s, ok := p.(fmt.Stringer); ok {
		return s.String()
	}

	return fmt.Sprintf("%T", p)
}
