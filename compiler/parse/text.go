package parse

import (
	"bytes"
	"context"
	"strconv"
	"unicode/utf8"

	"tlog.app/go/errors"
)

type (
	Const []byte

	// Keyword is a Const which can't be followed by an identifier character.
	Keyword string

	Ident struct{}

	Token struct {
		Pos, End int

		Text string
	}
)

func (p Const) Parse(ctx context.Context, b []byte, st int) (x Node, i int, err error) {
	if bytes.HasPrefix(b[st:], p) {
		return token(b, st, st+len(p)), st + len(p), nil
	}

	return nil, st, errors.New("%q expected", []byte(p))
}

func (p Const) String() string { return strconv.Quote(string(p)) }

func (p Keyword) Parse(ctx context.Context, b []byte, st int) (x Node, i int, err error) {
	end := st + len(p)

	if bytes.HasPrefix(b[st:], []byte(p)) && (end == len(b) || !isIdentByte(b[end])) {
		return token(b, st, end), end, nil
	}

	return nil, st, errors.New("%q expected", string(p))
}

func (p Keyword) String() string { return strconv.Quote(string(p)) }

func (p Ident) Parse(ctx context.Context, b []byte, st int) (x Node, i int, err error) {
	if st == len(b) || !isIdentStart(b[st]) {
		return nil, st, errors.New("Ident expected")
	}

	i = st + 1

loop:
	for i < len(b) {
		c := b[i]

		switch {
		case isIdentByte(c):
			i++
		case c >= utf8.RuneSelf:
			r, w := utf8.DecodeRune(b[i:])
			if r == utf8.RuneError {
				return nil, i, errors.New("bad rune")
			}

			i += w
		default:
			break loop
		}
	}

	return token(b, st, i), i, nil
}

func (Ident) String() string { return "identifier" }

func token(b []byte, st, end int) Token {
	return Token{
		Pos:  st,
		End:  end,
		Text: string(b[st:end]),
	}
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isIdentByte(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}
