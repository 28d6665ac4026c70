package process

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/errors"

	"github.com/slowlang/contractc/compiler/optimizer"
	"github.com/slowlang/contractc/compiler/project"
)

func strptr(s string) *string { return &s }

func TestCallSuccess(t *testing.T) {
	ctx := context.Background()

	resp, err := Call[standIn, echoResponse](ctx, standIn{Echo: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Echo)
	assert.NotEqual(t, os.Getpid(), resp.PID)
}

func TestCallExitStatusPrecedence(t *testing.T) {
	ctx := context.Background()

	_, err := Call[standIn, echoResponse](ctx, standIn{
		Stdout: strptr(`{"echo":"valid","pid":1}`),
		Stderr: "backend exploded",
		Exit:   1,
	})
	require.Error(t, err)

	var ce *CallError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, KindExit, ce.Kind)
	assert.Equal(t, "backend exploded", string(ce.Stderr))
	assert.Contains(t, err.Error(), "backend exploded")
	assert.Contains(t, err.Error(), "exit status 1")
}

func TestCallProtocolError(t *testing.T) {
	ctx := context.Background()

	_, err := Call[standIn, echoResponse](ctx, standIn{Stdout: strptr("garbage")})
	require.Error(t, err)

	var ce *CallError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, KindProtocol, ce.Kind)
	assert.Nil(t, ce.ExitErr)
	assert.Contains(t, err.Error(), "stdout parsing")
	assert.Contains(t, err.Error(), "(stderr: )")
}

func TestCallExitWithoutResponse(t *testing.T) {
	ctx := context.Background()

	for _, out := range []string{"", "{\"echo\":"} {
		_, err := Call[standIn, echoResponse](ctx, standIn{Stdout: strptr(out), Stderr: "panic: nil map", Exit: 2})
		require.Error(t, err, "stdout: %q", out)

		var ce *CallError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, KindExit, ce.Kind, "stdout: %q", out)
		assert.NotNil(t, ce.ExitErr)
		assert.ErrorContains(t, ce.Err, "stdout parsing")
		assert.Equal(t, "panic: nil map", string(ce.Stderr))
		assert.Contains(t, err.Error(), "exit error: stdout parsing")
		assert.Contains(t, err.Error(), "; exit status 2")
		assert.Contains(t, err.Error(), "(stderr: panic: nil map)")
	}
}

func TestCallTransportError(t *testing.T) {
	t.Setenv(standInEnv, "exit-early")

	ctx := context.Background()

	// larger than any pipe buffer, so the write can't complete without a reader
	big := standIn{Echo: strings.Repeat("x", 8<<20)}

	_, err := Call[standIn, echoResponse](ctx, big)
	require.Error(t, err)

	var ce *CallError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, KindTransport, ce.Kind)
	assert.Equal(t, "early exit", string(ce.Stderr))
	assert.Contains(t, err.Error(), "write request")
}

func TestCallRealWorker(t *testing.T) {
	t.Setenv(standInEnv, "worker")

	ctx := context.Background()

	resp, err := Call[Request, Response](ctx, Request{
		FullPath:          "one.zasm",
		Contract:          project.NewAssembly("\tpush 1\n\tret\n"),
		OptimizerSettings: optimizer.Cycles(),
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Build)
	assert.Equal(t, "one.zasm", resp.Build.Path)
	assert.Len(t, resp.Build.Bytecode, 10)

	_, err = Call[Request, Response](ctx, Request{
		FullPath: "bad.zasm",
		Contract: project.NewAssembly("\tbogus\n"),
	})
	require.Error(t, err)

	var ce *CallError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, KindExit, ce.Kind)
	assert.Contains(t, string(ce.Stderr), `unknown instruction "bogus"`)
	assert.Contains(t, err.Error(), `unknown instruction "bogus"`)
}

func TestExecutableOverride(t *testing.T) {
	ctx := context.Background()

	var exe Executable

	self, err := os.Executable()
	require.NoError(t, err)

	p, err := exe.Path()
	require.NoError(t, err)
	assert.Equal(t, self, p)

	assert.Error(t, exe.Set(""))

	missing := "/nonexistent/contractc"
	require.NoError(t, exe.Set(missing))

	err = exe.Set(self)
	assert.True(t, errors.Is(err, ErrExecutableSet))

	p, err = exe.Path()
	require.NoError(t, err)
	assert.Equal(t, missing, p)

	_, err = CallExecutable[standIn, echoResponse](ctx, &exe, standIn{Echo: "x"})
	require.Error(t, err)

	var ce *CallError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, KindSpawn, ce.Kind)
	assert.Equal(t, missing, ce.Executable)
	assert.Contains(t, err.Error(), missing)

	var other Executable
	require.NoError(t, other.Set(self))

	resp, err := CallExecutable[standIn, echoResponse](ctx, &other, standIn{Echo: "redirected"})
	require.NoError(t, err)
	assert.Equal(t, "redirected", resp.Echo)
}

func TestCallConcurrentIsolation(t *testing.T) {
	ctx := context.Background()

	const n = 8

	var wg sync.WaitGroup

	resps := make([]echoResponse, n)
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			resps[i], errs[i] = Call[standIn, echoResponse](ctx, standIn{Echo: fmt.Sprintf("unit-%d", i)})
		}(i)
	}

	wg.Wait()

	pids := map[int]bool{}

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, fmt.Sprintf("unit-%d", i), resps[i].Echo)

		pids[resps[i].PID] = true
	}

	assert.Len(t, pids, n)
}

func TestCallErrorText(t *testing.T) {
	e := &CallError{Kind: KindResolve, Err: errors.New("no /proc")}
	assert.Equal(t, "resolve error: no /proc", e.Error())

	e = &CallError{Kind: KindExit, Executable: "/bin/cc", ExitErr: errors.New("exit status 1"), Stderr: []byte("bad")}
	assert.Equal(t, `"/bin/cc" subprocess exit error: exit status 1 (stderr: bad)`, e.Error())
}
