package compiler

import (
	"context"
	"runtime"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/contractc/compiler/build"
	"github.com/slowlang/contractc/compiler/debug"
	"github.com/slowlang/contractc/compiler/optimizer"
	"github.com/slowlang/contractc/compiler/process"
	"github.com/slowlang/contractc/compiler/project"
	"github.com/slowlang/contractc/compiler/target"
	"github.com/slowlang/contractc/compiler/warning"
)

type (
	Options struct {
		MetadataHash       MetadataHash
		EnableTestEncoding bool
		TargetVersion      *target.Version

		Optimizer  optimizer.Settings
		Suppressed []warning.Type

		Debug *debug.Config

		// Jobs limits the number of workers running at once.
		// Zero means runtime.NumCPU.
		Jobs int
	}

	CallFunc func(ctx context.Context, req process.Request) (process.Response, error)

	// Compiler compiles every contract of a project in its own worker process.
	Compiler struct {
		Options

		Call CallFunc
	}

	MetadataHash string
)

const (
	MetadataHashKeccak256 MetadataHash = "keccak256"
	MetadataHashNone      MetadataHash = "none"
)

func ParseMetadataHash(s string) (MetadataHash, error) {
	switch m := MetadataHash(s); m {
	case MetadataHashKeccak256, MetadataHashNone:
		return m, nil
	}

	return "", errors.New("invalid metadata hash mode %q, expected keccak256 or none", s)
}

func New(opts Options) *Compiler {
	return &Compiler{
		Options: opts,
		Call:    process.Call[process.Request, process.Response],
	}
}

// Compile compiles contracts in parallel.
// Failures of all units are collected and returned together.
func (c *Compiler) Compile(ctx context.Context, p *project.Project) (b *build.Build, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile project", "mode", p.Mode, "contracts", len(p.Contracts))
	defer tr.Finish("err", &err)

	jobs := c.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	paths := p.Paths()
	res := make([]*build.Contract, len(paths))
	errs := make([]error, len(paths))

	var g errgroup.Group
	g.SetLimit(jobs)

	for i, path := range paths {
		i, path := i, path

		g.Go(func() error {
			res[i], errs[i] = c.compileUnit(ctx, path, p.Contracts[path])

			return nil
		})
	}

	_ = g.Wait()

	var merr *multierror.Error

	b = build.New()

	for i, path := range paths {
		if errs[i] != nil {
			merr = multierror.Append(merr, errors.Wrap(errs[i], "%v", path))
			continue
		}

		b.Add(res[i])
	}

	if err = merr.ErrorOrNil(); err != nil {
		return nil, err
	}

	return b, nil
}

func (c *Compiler) compileUnit(ctx context.Context, path string, contract project.Contract) (_ *build.Contract, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile unit", "path", path)
	defer tr.Finish("err", &err)

	resp, err := c.Call(ctx, c.Request(path, contract))
	if err != nil {
		return nil, err
	}

	if resp.Build == nil {
		return nil, errors.New("worker returned no build")
	}

	for _, w := range resp.Build.Warnings {
		tr.Printw("warning", "msg", w)
	}

	return resp.Build, nil
}

// Request builds the self-contained worker request for one contract.
func (c *Compiler) Request(path string, contract project.Contract) process.Request {
	req := process.Request{
		FullPath:           path,
		Contract:           contract,
		EnableTestEncoding: c.EnableTestEncoding,
		TargetVersion:      c.TargetVersion,
		OptimizerSettings:  c.Optimizer,
		SuppressedWarnings: c.Suppressed,
		DebugConfig:        c.Debug,
	}

	if contract.Source != nil && c.MetadataHash != MetadataHashNone {
		h := contract.SourceHash()
		req.SourceCodeHash = &h
	}

	return req
}
