package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/contractc/compiler"
	"github.com/slowlang/contractc/compiler/process"
	"github.com/slowlang/contractc/compiler/project"
)

const Version = "0.1.0"

func main() {
	app := &cli.Command{
		Name:        "contractc",
		Description: "contractc compiles contracts, each in its own worker process",
		Action:      compileAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("version", false, "print the compiler version"),
			cli.NewFlag("output-dir,o", "", "write build artifacts to the directory instead of stdout"),
			cli.NewFlag("overwrite", false, "overwrite existing files in the output directory"),
			cli.NewFlag("optimization,O", "", "optimization level: 0, 1, 2, 3, s, z (default 3)"),
			cli.NewFlag("fallback-Oz", false, "retry with -Oz if the bytecode is too large"),
			cli.NewFlag("disable-system-request-memoization", false, "do not cache caller() and origin() results"),
			cli.NewFlag("jump-table-density-threshold", "", "use a jump table dispatcher from this many functions"),
			cli.NewFlag("target-version", "", "target virtual machine version"),
			cli.NewFlag("ir", false, "inputs are IR text"),
			cli.NewFlag("asm", false, "inputs are assembly text"),
			cli.NewFlag("metadata-hash", "", "metadata hash mode: keccak256 or none"),
			cli.NewFlag("debug-output-dir", "", "dump intermediate representations into the directory"),
			cli.NewFlag("suppress-warnings", "", "comma separated warnings to suppress"),
			cli.NewFlag("enable-test-encoding", false, "use the test bytecode encoding"),
			cli.NewFlag("jobs,j", 0, "number of parallel workers (default number of CPUs)"),
			cli.NewFlag("verbose,v", false, "log to stderr"),
			cli.NewFlag(process.WorkerFlag[2:], false, "run as a worker process (internal)"),
		},
	}

	cli.RunAndExit(app, expandOptimizationFlag(os.Args), os.Environ())
}

func arguments(c *cli.Command) *Arguments {
	return &Arguments{
		Version:          c.Bool("version"),
		RecursiveProcess: c.Bool(process.WorkerFlag[2:]),
		Inputs:           c.Args,

		OutputDir: c.String("output-dir"),
		Overwrite: c.Bool("overwrite"),

		Optimization:     c.String("optimization"),
		FallbackOz:       c.Bool("fallback-Oz"),
		DisableMemoize:   c.Bool("disable-system-request-memoization"),
		JumpTableDensity: c.String("jump-table-density-threshold"),
		TargetVersion:    c.String("target-version"),
		MetadataHash:     c.String("metadata-hash"),
		SuppressWarnings: c.String("suppress-warnings"),
		DebugOutputDir:   c.String("debug-output-dir"),
		EnableTestEncode: c.Bool("enable-test-encoding"),
		IR:               c.Bool("ir"),
		Assembly:         c.Bool("asm"),
		Jobs:             c.Int("jobs"),
		Verbose:          c.Bool("verbose"),
	}
}

func compileAct(c *cli.Command) (err error) {
	a := arguments(c)

	if a.RecursiveProcess {
		os.Exit(worker(a))
	}

	if a.Verbose {
		tlog.DefaultLogger = tlog.New(tlog.NewConsoleWriter(os.Stderr, tlog.LstdFlags))
	} else {
		tlog.DefaultLogger = tlog.New(io.Discard)
	}

	err = a.Validate()
	if err != nil {
		return err
	}

	if a.Version {
		fmt.Printf("contractc version %v\n", Version)
		return nil
	}

	opts, err := a.Options()
	if err != nil {
		return err
	}

	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	fs := afero.NewOsFs()

	p, err := project.Load(ctx, fs, a.Mode(), a.Inputs)
	if err != nil {
		return errors.Wrap(err, "load project")
	}

	b, err := compiler.New(opts).Compile(ctx, p)
	if err != nil {
		return err
	}

	for _, w := range b.Warnings() {
		fmt.Fprintln(os.Stderr, w)
	}

	if a.OutputDir != "" {
		return b.WriteToDirectory(fs, a.OutputDir, a.Overwrite)
	}

	return b.WriteToTerminal(os.Stdout)
}

// worker serves a single request on stdio.
// The error text is already on stderr when it fails.
func worker(a *Arguments) int {
	tlog.DefaultLogger = tlog.New(io.Discard)

	if err := a.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v", err)
		return 1
	}

	err := process.Run(context.Background(), os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		return 1
	}

	return 0
}
