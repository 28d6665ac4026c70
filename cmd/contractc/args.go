package main

import (
	"strconv"
	"strings"

	"tlog.app/go/errors"

	"github.com/slowlang/contractc/compiler"
	"github.com/slowlang/contractc/compiler/debug"
	"github.com/slowlang/contractc/compiler/optimizer"
	"github.com/slowlang/contractc/compiler/project"
	"github.com/slowlang/contractc/compiler/target"
	"github.com/slowlang/contractc/compiler/warning"
)

// Arguments are command line flags as given.
// Empty strings mean the flag was not set.
type Arguments struct {
	Version          bool
	RecursiveProcess bool

	Inputs []string

	OutputDir string
	Overwrite bool

	Optimization     string
	FallbackOz       bool
	DisableMemoize   bool
	JumpTableDensity string
	TargetVersion    string
	MetadataHash     string
	SuppressWarnings string
	DebugOutputDir   string
	EnableTestEncode bool
	IR, Assembly     bool
	Jobs             int
	Verbose          bool
}

// Validate checks flag combinations before any worker is spawned.
func (a *Arguments) Validate() error {
	if a.RecursiveProcess {
		if a.others("recursive-process") {
			return errors.New("--recursive-process is for internal use only and excludes other flags and inputs")
		}

		return nil
	}

	if a.Version {
		if a.others("version") {
			return errors.New("--version excludes other flags and inputs")
		}

		return nil
	}

	if a.IR && a.Assembly {
		return errors.New("only one of --ir and --asm can be used")
	}

	if a.IR || a.Assembly {
		mode := "--ir"
		if a.Assembly {
			mode = "--asm"
		}

		for _, f := range []struct {
			name string
			set  bool
		}{
			{"-O", a.Optimization != ""},
			{"--fallback-Oz", a.FallbackOz},
			{"--disable-system-request-memoization", a.DisableMemoize},
			{"--jump-table-density-threshold", a.JumpTableDensity != ""},
			{"--suppress-warnings", a.SuppressWarnings != ""},
			{"--metadata-hash", a.MetadataHash != ""},
			{"--target-version", a.TargetVersion != ""},
		} {
			if f.set {
				return errors.New("%v must not be passed in %v mode", f.name, mode)
			}
		}

		if len(a.Inputs) != 1 {
			return errors.New("exactly one input file is required in %v mode", mode)
		}
	}

	if len(a.Inputs) == 0 {
		return errors.New("no input files")
	}

	if a.Overwrite && a.OutputDir == "" {
		return errors.New("--overwrite requires --output-dir")
	}

	if a.Jobs < 0 {
		return errors.New("--jobs must not be negative")
	}

	_, err := a.Options()

	return err
}

func (a *Arguments) others(self string) bool {
	set := map[string]bool{
		"version":           a.Version,
		"recursive-process": a.RecursiveProcess,
		"inputs":            len(a.Inputs) != 0,
		"output-dir":        a.OutputDir != "",
		"overwrite":         a.Overwrite,
		"optimization":      a.Optimization != "",
		"fallback-Oz":       a.FallbackOz,
		"memoization":       a.DisableMemoize,
		"jump-table":        a.JumpTableDensity != "",
		"target-version":    a.TargetVersion != "",
		"metadata-hash":     a.MetadataHash != "",
		"suppress-warnings": a.SuppressWarnings != "",
		"debug-output-dir":  a.DebugOutputDir != "",
		"test-encoding":     a.EnableTestEncode,
		"ir":                a.IR,
		"asm":               a.Assembly,
		"jobs":              a.Jobs != 0,
		"verbose":           a.Verbose,
	}

	for name, ok := range set {
		if ok && name != self {
			return true
		}
	}

	return false
}

func (a *Arguments) Mode() project.Mode {
	switch {
	case a.IR:
		return project.ModeIR
	case a.Assembly:
		return project.ModeAssembly
	default:
		return project.ModeSource
	}
}

// Options converts parsed flags into driver options.
func (a *Arguments) Options() (opts compiler.Options, err error) {
	opts = compiler.Options{
		MetadataHash:       compiler.MetadataHashKeccak256,
		EnableTestEncoding: a.EnableTestEncode,
		Jobs:               a.Jobs,
		Optimizer:          optimizer.Cycles(),
	}

	if a.Optimization != "" {
		opts.Optimizer.Level, err = optimizer.ParseLevel(a.Optimization)
		if err != nil {
			return opts, err
		}
	}

	opts.Optimizer.FallbackToSize = a.FallbackOz
	opts.Optimizer.DisableSystemRequestMemoization = a.DisableMemoize

	if a.JumpTableDensity != "" {
		v, err := strconv.ParseUint(a.JumpTableDensity, 10, 32)
		if err != nil {
			return opts, errors.Wrap(err, "jump table density threshold")
		}

		jt := uint32(v)
		opts.Optimizer.JumpTableDensityThreshold = &jt
	}

	if a.TargetVersion != "" {
		v, err := target.Parse(a.TargetVersion)
		if err != nil {
			return opts, err
		}

		opts.TargetVersion = &v
	}

	if a.MetadataHash != "" {
		opts.MetadataHash, err = compiler.ParseMetadataHash(a.MetadataHash)
		if err != nil {
			return opts, err
		}
	}

	if a.SuppressWarnings != "" {
		opts.Suppressed, err = warning.ParseList(a.SuppressWarnings)
		if err != nil {
			return opts, err
		}
	}

	if a.DebugOutputDir != "" {
		opts.Debug, err = debug.New(a.DebugOutputDir)
		if err != nil {
			return opts, err
		}
	}

	return opts, nil
}

// expandOptimizationFlag rewrites the attached form -O<level> into -O=<level>.
// Arguments after "--" are left as is.
func expandOptimizationFlag(args []string) []string {
	res := make([]string, len(args))

	for i, a := range args {
		if a == "--" {
			copy(res[i:], args[i:])
			break
		}

		if len(a) > 2 && strings.HasPrefix(a, "-O") && a[2] != '=' {
			a = "-O=" + a[2:]
		}

		res[i] = a
	}

	return res
}
