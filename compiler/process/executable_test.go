package process

import (
	"context"
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/errors"
)

// globalExeEnv makes TestSetExecutableGlobal run its body.
// DefaultExecutable can be set only once per process,
// so the body runs in a fresh copy of the test binary.
const globalExeEnv = "CONTRACTC_TEST_GLOBAL_EXECUTABLE"

func TestSetExecutableGlobal(t *testing.T) {
	if os.Getenv(globalExeEnv) == "" {
		cmd := exec.Command(os.Args[0], "-test.run=^TestSetExecutableGlobal$", "-test.v")
		cmd.Env = append(os.Environ(), globalExeEnv+"=1")

		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "output:\n%s", out)
		assert.Contains(t, string(out), "--- PASS: TestSetExecutableGlobal")

		return
	}

	ctx := context.Background()

	missing := "/nonexistent/contractc-worker"

	require.NoError(t, SetExecutable(missing))

	err := SetExecutable(os.Args[0])
	assert.True(t, errors.Is(err, ErrExecutableSet))

	p, err := DefaultExecutable.Path()
	require.NoError(t, err)
	assert.Equal(t, missing, p)

	_, err = Call[standIn, echoResponse](ctx, standIn{Echo: "x"})
	require.Error(t, err)

	var ce *CallError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, KindSpawn, ce.Kind)
	assert.Equal(t, missing, ce.Executable)

	_, err = Call[Request, Response](ctx, Request{FullPath: "a.zasm"})
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, missing, ce.Executable)
}
