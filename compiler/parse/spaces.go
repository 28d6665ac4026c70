package parse

import (
	"bytes"
	"context"
)

type (
	Spaces uint64

	// LineComments skips Spaces and comments running from Prefix to the end of line.
	LineComments struct {
		Spaces Spaces
		Prefix string
	}

	Spacer struct {
		Blank Skipper
		Of    Parser
	}
)

var (
	Space    = NewSpaces(' ')
	SpaceTab = NewSpaces(' ', '\t')
	SpaceAll = NewSpaces(' ', '\t', '\r', '\n')
)

func NewSpaces(skip ...byte) (ss Spaces) {
	for _, q := range skip {
		if q >= 64 {
			panic("too high char code")
		}

		ss |= 1 << q
	}

	return
}

func (s Spaces) Skip(b []byte, st int) (i int) {
	i = st

	for i < len(b) && b[i] < 64 && s&(1<<b[i]) != 0 {
		i++
	}

	return
}

func (s LineComments) Skip(b []byte, st int) (i int) {
	i = s.Spaces.Skip(b, st)

	for s.Prefix != "" && bytes.HasPrefix(b[i:], []byte(s.Prefix)) {
		for i < len(b) && b[i] != '\n' {
			i++
		}

		i = s.Spaces.Skip(b, i)
	}

	return
}

func Spaced(p Parser, blank Skipper) Spacer {
	return Spacer{
		Blank: blank,
		Of:    p,
	}
}

func (p Spacer) Parse(ctx context.Context, b []byte, st int) (x Node, i int, err error) {
	vst := p.Blank.Skip(b, st)

	x, i, err = p.Of.Parse(ctx, b, vst)
	if err != nil && i == vst {
		i = st
	}

	return
}

func (p Spacer) String() string { return name(p.Of) }
