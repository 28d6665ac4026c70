package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/contractc/compiler"
	"github.com/slowlang/contractc/compiler/optimizer"
	"github.com/slowlang/contractc/compiler/project"
	"github.com/slowlang/contractc/compiler/target"
	"github.com/slowlang/contractc/compiler/warning"
)

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name string
		args Arguments
		err  string
	}{
		{name: "source", args: Arguments{Inputs: []string{"a.ct", "b.ct"}, Optimization: "z"}},
		{name: "ir", args: Arguments{IR: true, Inputs: []string{"a.ir"}}},
		{name: "asm_out", args: Arguments{Assembly: true, Inputs: []string{"a.zasm"}, OutputDir: "out", Overwrite: true}},
		{name: "version", args: Arguments{Version: true}},
		{name: "worker", args: Arguments{RecursiveProcess: true}},

		{name: "version_and_input", args: Arguments{Version: true, Inputs: []string{"a.ct"}}, err: "--version excludes"},
		{name: "worker_and_flag", args: Arguments{RecursiveProcess: true, Verbose: true}, err: "internal use only"},
		{name: "ir_and_asm", args: Arguments{IR: true, Assembly: true, Inputs: []string{"a"}}, err: "only one of --ir and --asm"},
		{name: "ir_opt", args: Arguments{IR: true, Optimization: "1", Inputs: []string{"a"}}, err: "-O must not be passed in --ir mode"},
		{name: "asm_fallback", args: Arguments{Assembly: true, FallbackOz: true, Inputs: []string{"a"}}, err: "--fallback-Oz must not be passed in --asm mode"},
		{name: "asm_memo", args: Arguments{Assembly: true, DisableMemoize: true, Inputs: []string{"a"}}, err: "--disable-system-request-memoization"},
		{name: "ir_jt", args: Arguments{IR: true, JumpTableDensity: "2", Inputs: []string{"a"}}, err: "--jump-table-density-threshold"},
		{name: "ir_warnings", args: Arguments{IR: true, SuppressWarnings: "txorigin", Inputs: []string{"a"}}, err: "--suppress-warnings"},
		{name: "ir_metadata", args: Arguments{IR: true, MetadataHash: "none", Inputs: []string{"a"}}, err: "--metadata-hash"},
		{name: "asm_target", args: Arguments{Assembly: true, TargetVersion: "paris", Inputs: []string{"a"}}, err: "--target-version"},
		{name: "ir_two_inputs", args: Arguments{IR: true, Inputs: []string{"a", "b"}}, err: "exactly one input file"},
		{name: "no_inputs", args: Arguments{}, err: "no input files"},
		{name: "overwrite_alone", args: Arguments{Inputs: []string{"a"}, Overwrite: true}, err: "--overwrite requires"},
		{name: "bad_level", args: Arguments{Inputs: []string{"a"}, Optimization: "4"}, err: "unexpected optimization option"},
		{name: "bad_hash", args: Arguments{Inputs: []string{"a"}, MetadataHash: "md5"}, err: "invalid metadata hash"},
		{name: "bad_warning", args: Arguments{Inputs: []string{"a"}, SuppressWarnings: "txorigin,shadowing"}, err: "shadowing"},
		{name: "bad_target", args: Arguments{Inputs: []string{"a"}, TargetVersion: "london"}, err: "london"},
		{name: "bad_jt", args: Arguments{Inputs: []string{"a"}, JumpTableDensity: "-1"}, err: "jump table density"},
		{name: "negative_jobs", args: Arguments{Inputs: []string{"a"}, Jobs: -1}, err: "--jobs"},
	} {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			err := tc.args.Validate()
			if tc.err == "" {
				assert.NoError(t, err)
				return
			}

			assert.ErrorContains(t, err, tc.err)
		})
	}
}

func TestOptions(t *testing.T) {
	a := Arguments{
		Inputs:           []string{"a.ct"},
		Optimization:     "s",
		FallbackOz:       true,
		JumpTableDensity: "7",
		TargetVersion:    "paris",
		MetadataHash:     "none",
		SuppressWarnings: "txorigin,ecrecover",
		DebugOutputDir:   "dbg",
		Jobs:             3,
	}

	opts, err := a.Options()
	require.NoError(t, err)

	assert.Equal(t, optimizer.Size, opts.Optimizer.Level)
	assert.True(t, opts.Optimizer.FallbackToSize)
	require.NotNil(t, opts.Optimizer.JumpTableDensityThreshold)
	assert.Equal(t, uint32(7), *opts.Optimizer.JumpTableDensityThreshold)
	require.NotNil(t, opts.TargetVersion)
	assert.Equal(t, target.Paris, *opts.TargetVersion)
	assert.Equal(t, compiler.MetadataHashNone, opts.MetadataHash)
	assert.Equal(t, []warning.Type{warning.TxOrigin, warning.EcRecover}, opts.Suppressed)
	require.NotNil(t, opts.Debug)
	assert.True(t, filepath.IsAbs(opts.Debug.OutputDirectory))
	assert.Equal(t, 3, opts.Jobs)
	assert.Equal(t, project.ModeSource, a.Mode())
}

func TestOptionsDefaults(t *testing.T) {
	a := Arguments{Assembly: true, Inputs: []string{"a.zasm"}}

	opts, err := a.Options()
	require.NoError(t, err)

	assert.Equal(t, optimizer.Cycles(), opts.Optimizer)
	assert.Equal(t, compiler.MetadataHashKeccak256, opts.MetadataHash)
	assert.Nil(t, opts.TargetVersion)
	assert.Nil(t, opts.Debug)
	assert.Equal(t, project.ModeAssembly, a.Mode())
}

func TestExpandOptimizationFlag(t *testing.T) {
	args := []string{"contractc", "-O1", "-Oz", "-O", "2", "-O=s", "--fallback-Oz", "-o", "out", "a.ct", "--", "-O3"}

	assert.Equal(t,
		[]string{"contractc", "-O=1", "-O=z", "-O", "2", "-O=s", "--fallback-Oz", "-o", "out", "a.ct", "--", "-O3"},
		expandOptimizationFlag(args))

	assert.Equal(t, "-O1", args[1])
}
