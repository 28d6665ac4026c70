package process

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
	"tlog.app/go/errors"

	"github.com/slowlang/contractc/compiler/backend"
	"github.com/slowlang/contractc/compiler/debug"
	"github.com/slowlang/contractc/compiler/hash"
	"github.com/slowlang/contractc/compiler/optimizer"
	"github.com/slowlang/contractc/compiler/project"
	"github.com/slowlang/contractc/compiler/target"
	"github.com/slowlang/contractc/compiler/warning"
)

func genRequest(t *rapid.T) Request {
	r := Request{
		FullPath:           rapid.String().Draw(t, "full_path"),
		EnableTestEncoding: rapid.Bool().Draw(t, "test_encoding"),
	}

	text := rapid.String().Draw(t, "text")

	switch rapid.IntRange(0, 2).Draw(t, "mode") {
	case 0:
		r.Contract = project.Contract{Source: &project.Source{Version: rapid.String().Draw(t, "version"), Text: text}}
	case 1:
		r.Contract = project.NewIR(text)
	default:
		r.Contract = project.NewAssembly(text)
	}

	if rapid.Bool().Draw(t, "has_hash") {
		var h hash.Hash
		copy(h[:], rapid.SliceOfN(rapid.Byte(), hash.Size, hash.Size).Draw(t, "hash"))
		r.SourceCodeHash = &h
	}

	if rapid.Bool().Draw(t, "has_target") {
		v := rapid.SampledFrom(target.Versions).Draw(t, "target")
		r.TargetVersion = &v
	}

	levels := []optimizer.Level{optimizer.None, optimizer.Less, optimizer.Default, optimizer.Aggressive, optimizer.Size, optimizer.SizeAtAllCost}

	r.OptimizerSettings = optimizer.Settings{
		Level:                           rapid.SampledFrom(levels).Draw(t, "level"),
		FallbackToSize:                  rapid.Bool().Draw(t, "fallback"),
		DisableSystemRequestMemoization: rapid.Bool().Draw(t, "no_memo"),
	}

	if rapid.Bool().Draw(t, "has_jt") {
		jt := rapid.Uint32().Draw(t, "jt")
		r.OptimizerSettings.JumpTableDensityThreshold = &jt
	}

	if rapid.Bool().Draw(t, "has_warnings") {
		r.SuppressedWarnings = rapid.SliceOf(rapid.SampledFrom(warning.All)).Draw(t, "warnings")
	}

	if rapid.Bool().Draw(t, "has_debug") {
		r.DebugConfig = &debug.Config{OutputDirectory: rapid.String().Draw(t, "debug_dir")}
	}

	return r
}

func TestRequestRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := genRequest(t)

		data, err := json.Marshal(r)
		require.NoError(t, err)

		var back Request
		require.NoError(t, json.Unmarshal(data, &back))
		require.Equal(t, r, back)
	})
}

func TestRequestForwardCompatible(t *testing.T) {
	var r Request

	err := json.Unmarshal([]byte(`{"full_path":"a.ct","contract":{"ir":{"text":"x"}},"from_the_future":42,"optimizer_settings":{"level":"1","new_knob":true}}`), &r)
	require.NoError(t, err)
	assert.Equal(t, "a.ct", r.FullPath)
	assert.Equal(t, optimizer.Less, r.OptimizerSettings.Level)
}

func runWorker(t *testing.T, req any) (stdout, stderr string, err error) {
	t.Helper()

	var in []byte

	switch req := req.(type) {
	case string:
		in = []byte(req)
	default:
		in, err = json.Marshal(req)
		require.NoError(t, err)
	}

	var out, diag bytes.Buffer

	err = RunBackend(context.Background(), backend.New(afero.NewMemMapFs()), bytes.NewReader(in), &out, &diag)

	return out.String(), diag.String(), err
}

func TestRunSuccess(t *testing.T) {
	req := Request{
		FullPath:          "counter.ct",
		Contract:          project.NewSource("fn get() { return sload(0) }"),
		OptimizerSettings: optimizer.Cycles(),
	}

	want, err := req.Contract.Compile(context.Background(), backend.New(afero.NewMemMapFs()), req.BackendOptions())
	require.NoError(t, err)

	stdout, stderr, err := runWorker(t, req)
	require.NoError(t, err)
	assert.Empty(t, stderr)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, want, resp.Build)
}

func TestRunBackendFailure(t *testing.T) {
	req := Request{
		FullPath: "broken.ct",
		Contract: project.NewSource("fn f() { return nope }"),
	}

	stdout, stderr, err := runWorker(t, req)
	require.Error(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "undefined: nope")
	assert.Equal(t, err.Error(), stderr)
}

func TestRunBadInput(t *testing.T) {
	stdout, stderr, err := runWorker(t, "{not json")
	require.Error(t, err)
	assert.Empty(t, stdout)
	assert.True(t, strings.HasPrefix(stderr, "decode request"), "stderr: %q", stderr)

	stdout, stderr, err = runWorker(t, `{"contract":{}}`)
	require.Error(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "exactly one representation")
}

func TestRunTestEncoding(t *testing.T) {
	t.Cleanup(func() { backend.SetEncodingMode(backend.EncodingProduction) })

	req := Request{
		FullPath:           "one.zasm",
		Contract:           project.NewAssembly("\tpush 1\n\tret\n"),
		EnableTestEncoding: true,
	}

	stdout, _, err := runWorker(t, req)
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Len(t, resp.Build.Bytecode, 2+8+2)
	assert.Equal(t, backend.EncodingTesting, backend.CurrentEncodingMode())
}

// shortWriter accepts n bytes and fails after that.
type shortWriter struct {
	bytes.Buffer
	n int
}

func (w *shortWriter) Write(p []byte) (int, error) {
	if len(p) > w.n {
		p = p[:w.n]
	}

	n, _ := w.Buffer.Write(p)
	w.n -= n

	if w.n == 0 {
		return n, errors.New("broken pipe")
	}

	return n, nil
}

func TestRunResponseWriteFailure(t *testing.T) {
	in, err := json.Marshal(Request{
		FullPath: "one.zasm",
		Contract: project.NewAssembly("\tpush 1\n\tret\n"),
	})
	require.NoError(t, err)

	out := &shortWriter{n: 5}
	var diag bytes.Buffer

	err = RunBackend(context.Background(), backend.New(afero.NewMemMapFs()), bytes.NewReader(in), out, &diag)
	assert.ErrorContains(t, err, "write response")
	assert.Equal(t, 5, out.Len())
	assert.Empty(t, diag.String())
}
