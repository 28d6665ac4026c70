package backend

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/contractc/compiler/build"
	"github.com/slowlang/contractc/compiler/debug"
	"github.com/slowlang/contractc/compiler/hash"
	"github.com/slowlang/contractc/compiler/optimizer"
	"github.com/slowlang/contractc/compiler/target"
	"github.com/slowlang/contractc/compiler/warning"
)

type (
	Backend struct {
		// Fs receives debug dumps.
		Fs afero.Fs

		MaxBytecodeSize int
	}

	Options struct {
		Path string

		SourceHash    *hash.Hash
		TargetVersion *target.Version

		Optimizer  optimizer.Settings
		Suppressed []warning.Type

		Debug *debug.Config
	}

	sizeError struct {
		Size, Limit int
	}
)

const MaxBytecodeSize = 24576

func New(fs afero.Fs) *Backend {
	return &Backend{
		Fs:              fs,
		MaxBytecodeSize: MaxBytecodeSize,
	}
}

func (b *Backend) CompileSource(ctx context.Context, src string, opts Options) (c *build.Contract, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "backend: compile source", "path", opts.Path, "opt", opts.Optimizer)
	defer tr.Finish("err", &err)

	fns, err := parseSource(ctx, src)
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}

	p, warns, err := lower(fns, !opts.Optimizer.DisableSystemRequestMemoization, opts.Suppressed)
	if err != nil {
		return nil, errors.Wrap(err, "lower")
	}

	c, err = b.compileProgram(ctx, p, opts)
	if err != nil {
		return nil, err
	}

	c.Warnings = warns

	return c, nil
}

func (b *Backend) CompileIR(ctx context.Context, text string, opts Options) (c *build.Contract, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "backend: compile ir", "path", opts.Path)
	defer tr.Finish("err", &err)

	p, err := ParseIR(text)
	if err != nil {
		return nil, errors.Wrap(err, "parse ir")
	}

	return b.compileProgram(ctx, p, opts)
}

func (b *Backend) CompileAssembly(ctx context.Context, text string, opts Options) (c *build.Contract, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "backend: compile assembly", "path", opts.Path)
	defer tr.Finish("err", &err)

	code, err := ParseAssembly(text)
	if err != nil {
		return nil, errors.Wrap(err, "parse assembly")
	}

	return b.finish(ctx, code, nil, opts)
}

func (b *Backend) compileProgram(ctx context.Context, p *Program, opts Options) (c *build.Contract, err error) {
	tr := tlog.SpanFromContext(ctx)

	err = opts.Debug.Dump(b.Fs, opts.Path, "ir", p.AppendText(nil))
	if err != nil {
		return nil, err
	}

	level := opts.Optimizer.Level

	for {
		c, err = b.compileLevel(ctx, p, level, opts)

		var large sizeError
		if !errors.As(err, &large) || !opts.Optimizer.FallbackToSize || level == optimizer.SizeAtAllCost {
			return c, err
		}

		tr.Printw("bytecode too large, falling back to -Oz", "size", large.Size, "limit", large.Limit, "from", loc.Caller(0))

		level = optimizer.SizeAtAllCost
	}
}

func (b *Backend) compileLevel(ctx context.Context, p *Program, level optimizer.Level, opts Options) (*build.Contract, error) {
	work := &Program{Funcs: make([]*Func, len(p.Funcs))}

	for i, f := range p.Funcs {
		g := *f
		g.Body = append([]Instr(nil), f.Body...)
		work.Funcs[i] = &g
	}

	if optimizer.Optimizes(level) {
		optimize(work)
	}

	version := target.Default
	if opts.TargetVersion != nil {
		version = *opts.TargetVersion
	}

	s := selection{
		threshold: opts.Optimizer.JumpTableThreshold(),
		version:   version,
		forceJT:   level == optimizer.SizeAtAllCost,
	}

	code, selectors, err := s.selectCode(work)
	if err != nil {
		return nil, errors.Wrap(err, "select")
	}

	return b.finish(ctx, code, selectors, opts)
}

func (b *Backend) finish(ctx context.Context, code []Instr, selectors map[string]string, opts Options) (c *build.Contract, err error) {
	tr := tlog.SpanFromContext(ctx)

	text := appendAssembly(nil, opts.Path, code)

	err = opts.Debug.Dump(b.Fs, opts.Path, "asm", text)
	if err != nil {
		return nil, err
	}

	mode := CurrentEncodingMode()

	bytecode, err := Assemble(code, mode)
	if err != nil {
		return nil, errors.Wrap(err, "assemble")
	}

	if b.MaxBytecodeSize != 0 && len(bytecode) > b.MaxBytecodeSize {
		return nil, sizeError{Size: len(bytecode), Limit: b.MaxBytecodeSize}
	}

	c = &build.Contract{
		Path:      opts.Path,
		Assembly:  string(text),
		Selectors: selectors,
	}

	if opts.SourceHash != nil {
		version := target.Default
		if opts.TargetVersion != nil {
			version = *opts.TargetVersion
		}

		mh := hash.Keccak256(opts.SourceHash[:], []byte(opts.Optimizer.String()), []byte(version))
		c.MetadataHash = &mh

		bytecode = append(bytecode, mh[:]...)
	}

	c.Bytecode = bytecode
	c.Hash = hash.Keccak256(bytecode)

	tr.Printw("assembled", "size", len(bytecode), "encoding", mode)

	return c, nil
}

func (e sizeError) Error() string {
	return fmt.Sprintf("bytecode size %d exceeds the limit of %d bytes", e.Size, e.Limit)
}
