package parse

import (
	"context"
	"strconv"

	"tlog.app/go/errors"
)

type (
	// Int is an unsigned integer literal with an optional 0x, 0o or 0b base prefix.
	Int struct{}

	Number struct {
		Pos, End int

		Value uint64
	}
)

func (p Int) Parse(ctx context.Context, b []byte, st int) (x Node, i int, err error) {
	if st == len(b) || b[st] < '0' || b[st] > '9' {
		return nil, st, errors.New("Int expected")
	}

	i = st

	// base prefixes and stray letters are consumed here and rejected by ParseUint
	for i < len(b) && isIdentByte(b[i]) {
		i++
	}

	v, err := strconv.ParseUint(string(b[st:i]), 0, 64)
	if err != nil {
		return nil, i, errors.New("bad number %q", b[st:i])
	}

	return Number{
		Pos:   st,
		End:   i,
		Value: v,
	}, i, nil
}

func (Int) String() string { return "number" }
