package parse

import (
	"context"

	"tlog.app/go/errors"
)

type (
	// LeftToRight parses Arg (Op Arg)* folding to the left.
	// Nodes returned by Op must implement BinOper.
	LeftToRight struct {
		Op  Parser
		Arg Parser
	}

	BinOper interface {
		BinOp(l, r Node) (Node, error)
	}
)

func (p LeftToRight) Parse(ctx context.Context, b []byte, st int) (x Node, i int, err error) {
	x, i, err = p.Arg.Parse(ctx, b, st)
	if err != nil {
		return nil, i, err
	}

	for i < len(b) {
		var op Node
		opst := i
		op, i, err = p.Op.Parse(ctx, b, i)
		if i == opst {
			err = nil
			break
		}
		if err != nil {
			return nil, i, err
		}

		c, ok := op.(BinOper)
		if !ok {
			return nil, i, errors.New("BinOper expected, got %T", op)
		}

		var r Node
		r, i, err = p.Arg.Parse(ctx, b, i)
		if err != nil {
			return nil, i, err
		}

		x, err = c.BinOp(x, r)
		if err != nil {
			return nil, i, errors.Wrap(err, "%T", c)
		}
	}

	return
}
