package process

import (
	"github.com/slowlang/contractc/compiler/backend"
	"github.com/slowlang/contractc/compiler/build"
	"github.com/slowlang/contractc/compiler/debug"
	"github.com/slowlang/contractc/compiler/hash"
	"github.com/slowlang/contractc/compiler/optimizer"
	"github.com/slowlang/contractc/compiler/project"
	"github.com/slowlang/contractc/compiler/target"
	"github.com/slowlang/contractc/compiler/warning"
)

type (
	// Request is everything a worker needs to compile one contract.
	// The worker reads nothing else: no files, no environment.
	Request struct {
		// FullPath is used for diagnostics and metadata only.
		FullPath string           `json:"full_path"`
		Contract project.Contract `json:"contract"`

		SourceCodeHash *hash.Hash `json:"source_code_hash,omitempty"`

		EnableTestEncoding bool            `json:"enable_test_encoding"`
		TargetVersion      *target.Version `json:"target_version,omitempty"`

		OptimizerSettings  optimizer.Settings `json:"optimizer_settings"`
		SuppressedWarnings []warning.Type     `json:"suppressed_warnings"`

		DebugConfig *debug.Config `json:"debug_config,omitempty"`
	}

	// Response is written only on success.
	Response struct {
		Build *build.Contract `json:"build"`
	}
)

func (r *Request) BackendOptions() backend.Options {
	return backend.Options{
		Path:          r.FullPath,
		SourceHash:    r.SourceCodeHash,
		TargetVersion: r.TargetVersion,
		Optimizer:     r.OptimizerSettings,
		Suppressed:    r.SuppressedWarnings,
		Debug:         r.DebugConfig,
	}
}
