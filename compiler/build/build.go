package build

import (
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
	"tlog.app/go/errors"

	"github.com/slowlang/contractc/compiler/hash"
)

type (
	// Contract is the artifact of compiling one contract.
	Contract struct {
		Path string `json:"path"`

		Bytecode []byte    `json:"bytecode"`
		Assembly string    `json:"assembly"`
		Hash     hash.Hash `json:"hash"`

		MetadataHash *hash.Hash `json:"metadata_hash,omitempty"`

		// Selectors maps function signatures to their 4-byte selectors in hex.
		Selectors map[string]string `json:"selectors,omitempty"`

		Warnings []string `json:"warnings,omitempty"`
	}

	Build struct {
		Contracts map[string]*Contract
	}
)

const (
	BinaryExtension   = ".zbin"
	AssemblyExtension = ".zasm"
)

func New() *Build {
	return &Build{Contracts: make(map[string]*Contract)}
}

func (b *Build) Add(c *Contract) {
	b.Contracts[c.Path] = c
}

func (b *Build) Paths() []string {
	l := make([]string, 0, len(b.Contracts))

	for p := range b.Contracts {
		l = append(l, p)
	}

	sort.Strings(l)

	return l
}

func (b *Build) Warnings() (l []string) {
	for _, p := range b.Paths() {
		for _, w := range b.Contracts[p].Warnings {
			l = append(l, fmt.Sprintf("Warning: %v: %v", p, w))
		}
	}

	return l
}

func (b *Build) WriteToTerminal(w io.Writer) error {
	for _, p := range b.Paths() {
		c := b.Contracts[p]

		_, err := fmt.Fprintf(w, "Contract `%s` bytecode: 0x%x\n", p, c.Bytecode)
		if err != nil {
			return errors.Wrap(err, "write")
		}
	}

	return nil
}

// WriteToDirectory writes the bytecode and assembly of every contract
// into dir. Existing files are only replaced when overwrite is set.
func (b *Build) WriteToDirectory(fs afero.Fs, dir string, overwrite bool) error {
	// files are named by base name, which must be unique
	names := make(map[string]string, len(b.Contracts))

	for _, p := range b.Paths() {
		name := filepath.Base(p)

		if q, ok := names[name]; ok {
			return errors.New("contracts %v and %v would both be written as %v", q, p, name)
		}

		names[name] = p
	}

	err := fs.MkdirAll(dir, 0o755)
	if err != nil {
		return errors.Wrap(err, "create output dir")
	}

	for _, p := range b.Paths() {
		c := b.Contracts[p]
		base := filepath.Join(dir, filepath.Base(p))

		err = writeFile(fs, base+BinaryExtension, []byte(hex.EncodeToString(c.Bytecode)), overwrite)
		if err != nil {
			return errors.Wrap(err, "contract %v", p)
		}

		err = writeFile(fs, base+AssemblyExtension, []byte(c.Assembly), overwrite)
		if err != nil {
			return errors.Wrap(err, "contract %v", p)
		}
	}

	return nil
}

func writeFile(fs afero.Fs, name string, data []byte, overwrite bool) error {
	exists, err := afero.Exists(fs, name)
	if err != nil {
		return errors.Wrap(err, "stat %v", name)
	}

	if exists && !overwrite {
		return errors.New("Refusing to overwrite an existing file %q (use --overwrite to force)", name)
	}

	err = afero.WriteFile(fs, name, data, 0o644)
	if err != nil {
		return errors.Wrap(err, "write %v", name)
	}

	return nil
}
