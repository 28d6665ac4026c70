package parse

import (
	"bytes"
	"context"
	"fmt"
	"unicode/utf8"

	"tlog.app/go/errors"
)

type (
	Node interface{}

	// Parser consumes b starting at st.
	// On failure i tells how far it got: i == st means nothing was consumed
	// and the caller may try something else.
	Parser interface {
		Parse(ctx context.Context, b []byte, st int) (x Node, i int, err error)
	}

	Skipper interface {
		Skip(b []byte, st int) int
	}

	Error struct {
		Pos  int
		Line int
		Err  error
	}
)

// Parse applies p to the whole text. Only blanks may follow what p consumed.
func Parse(ctx context.Context, p Parser, blank Skipper, text []byte) (Node, error) {
	x, i, err := p.Parse(ctx, text, 0)
	if err == nil {
		i = blank.Skip(text, i)
		if i == len(text) {
			return x, nil
		}

		err = errors.New("expected end of input")
	}

	return nil, newError(text, blank.Skip(text, i), err)
}

func newError(b []byte, pos int, err error) *Error {
	if pos >= len(b) {
		err = errors.Wrap(err, "unexpected end of file")
	} else {
		r, _ := utf8.DecodeRune(b[pos:])
		err = errors.Wrap(err, "unexpected %q", r)
	}

	return &Error{
		Pos:  pos,
		Line: Line(b, pos),
		Err:  err,
	}
}

// Line is the 1-based line number of the byte offset pos.
func Line(b []byte, pos int) int {
	if pos > len(b) {
		pos = len(b)
	}

	return bytes.Count(b[:pos], []byte{'\n'}) + 1
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
