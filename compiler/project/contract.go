package project

import (
	"context"

	"tlog.app/go/errors"

	"github.com/slowlang/contractc/compiler/backend"
	"github.com/slowlang/contractc/compiler/build"
	"github.com/slowlang/contractc/compiler/hash"
)

type (
	// Contract is a self-contained compilation unit.
	// Exactly one of the representations is set.
	Contract struct {
		Source   *Source   `json:"source,omitempty"`
		IR       *IR       `json:"ir,omitempty"`
		Assembly *Assembly `json:"assembly,omitempty"`
	}

	Source struct {
		// Version of the language the source was checked against.
		Version string `json:"version"`
		Text    string `json:"text"`
	}

	IR struct {
		Text string `json:"text"`
	}

	Assembly struct {
		Text string `json:"text"`
	}

	Mode int
)

const (
	ModeSource Mode = iota
	ModeIR
	ModeAssembly
)

const LanguageVersion = "0.1.0"

func NewSource(text string) Contract {
	return Contract{Source: &Source{Version: LanguageVersion, Text: text}}
}

func NewIR(text string) Contract {
	return Contract{IR: &IR{Text: text}}
}

func NewAssembly(text string) Contract {
	return Contract{Assembly: &Assembly{Text: text}}
}

func (c Contract) Mode() (Mode, error) {
	n := 0
	m := ModeSource

	if c.Source != nil {
		n++
	}

	if c.IR != nil {
		n++
		m = ModeIR
	}

	if c.Assembly != nil {
		n++
		m = ModeAssembly
	}

	if n != 1 {
		return 0, errors.New("contract must have exactly one representation, got %d", n)
	}

	return m, nil
}

// SourceHash is the hash of the contract text, whatever the representation.
func (c Contract) SourceHash() hash.Hash {
	switch {
	case c.Source != nil:
		return hash.Keccak256([]byte(c.Source.Text))
	case c.IR != nil:
		return hash.Keccak256([]byte(c.IR.Text))
	case c.Assembly != nil:
		return hash.Keccak256([]byte(c.Assembly.Text))
	}

	return hash.Hash{}
}

func (c Contract) Compile(ctx context.Context, b *backend.Backend, opts backend.Options) (*build.Contract, error) {
	m, err := c.Mode()
	if err != nil {
		return nil, err
	}

	switch m {
	case ModeSource:
		return b.CompileSource(ctx, c.Source.Text, opts)
	case ModeIR:
		return b.CompileIR(ctx, c.IR.Text, opts)
	default:
		return b.CompileAssembly(ctx, c.Assembly.Text, opts)
	}
}

func (m Mode) String() string {
	switch m {
	case ModeSource:
		return "source"
	case ModeIR:
		return "ir"
	case ModeAssembly:
		return "assembly"
	default:
		return "unknown"
	}
}
