package project

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

type Project struct {
	Mode      Mode
	Contracts map[string]Contract
}

// Load reads inputs and wraps each one into a contract of the given mode.
// IR and assembly modes take exactly one input.
func Load(ctx context.Context, fs afero.Fs, mode Mode, paths []string) (p *Project, err error) {
	tr := tlog.SpanFromContext(ctx)

	if len(paths) == 0 {
		return nil, errors.New("no input files")
	}

	if mode != ModeSource && len(paths) != 1 {
		return nil, errors.New("only one input file is allowed in %v mode", mode)
	}

	p = &Project{
		Mode:      mode,
		Contracts: make(map[string]Contract, len(paths)),
	}

	for _, path := range paths {
		path = filepath.ToSlash(filepath.Clean(path))

		if _, ok := p.Contracts[path]; ok {
			return nil, errors.New("duplicate input file %v", path)
		}

		text, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, errors.Wrap(err, "read %v", path)
		}

		tr.Printw("read file", "size", len(text), "name", path)

		var c Contract

		switch mode {
		case ModeSource:
			c = NewSource(string(text))
		case ModeIR:
			c = NewIR(string(text))
		case ModeAssembly:
			c = NewAssembly(string(text))
		default:
			return nil, errors.New("unsupported mode %v", mode)
		}

		p.Contracts[path] = c
	}

	return p, nil
}

func (p *Project) Paths() []string {
	l := make([]string, 0, len(p.Contracts))

	for path := range p.Contracts {
		l = append(l, path)
	}

	sort.Strings(l)

	return l
}
