package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

type (
	// CallError is a failed worker call.
	// Stderr holds everything the worker wrote to its stderr.
	CallError struct {
		Kind       Kind
		Executable string

		Err     error
		ExitErr error

		Stderr []byte
	}

	Kind int
)

const (
	KindResolve Kind = iota
	KindSpawn
	KindTransport
	KindProtocol
	KindExit
)

// WorkerFlag is the only argument a worker is launched with.
const WorkerFlag = "--recursive-process"

// Call compiles req in a child process of the default executable.
func Call[Req, Resp any](ctx context.Context, req Req) (Resp, error) {
	return CallExecutable[Req, Resp](ctx, &DefaultExecutable, req)
}

// CallExecutable runs exe in worker mode, writes req to its stdin
// and reads the response from its stdout.
//
// It blocks until the child exits. There is no timeout and no
// cancellation: ctx carries the trace span only.
func CallExecutable[Req, Resp any](ctx context.Context, exe *Executable, req Req) (resp Resp, err error) {
	path, err := exe.Path()
	if err != nil {
		return resp, &CallError{Kind: KindResolve, Err: err}
	}

	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "process: call", "executable", path)
	defer tr.Finish("err", &err)

	var stdout, stderr bytes.Buffer

	cmd := exec.Command(path, WorkerFlag)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return resp, &CallError{Kind: KindSpawn, Executable: path, Err: err}
	}

	err = cmd.Start()
	if err != nil {
		return resp, &CallError{Kind: KindSpawn, Executable: path, Err: err}
	}

	tr.Printw("spawned", "pid", cmd.Process.Pid)

	err = json.NewEncoder(stdin).Encode(req)
	if cerr := stdin.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		// reap the child so its diagnostics are not lost
		werr := cmd.Wait()

		return resp, &CallError{Kind: KindTransport, Executable: path, Err: errors.Wrap(err, "write request"), ExitErr: werr, Stderr: stderr.Bytes()}
	}

	werr := cmd.Wait()

	var exitErr *exec.ExitError
	if werr != nil && !errors.As(werr, &exitErr) {
		return resp, &CallError{Kind: KindTransport, Executable: path, Err: errors.Wrap(werr, "read output"), Stderr: stderr.Bytes()}
	}

	tr.Printw("exited", "status", cmd.ProcessState.ExitCode(), "stdout", stdout.Len(), "stderr", stderr.Len())

	var out Resp

	err = json.Unmarshal(stdout.Bytes(), &out)
	if err != nil {
		err = errors.Wrap(err, "stdout parsing")
	}

	// non-zero exit status takes precedence over whatever is on stdout
	if werr != nil {
		return resp, &CallError{Kind: KindExit, Executable: path, Err: err, ExitErr: werr, Stderr: stderr.Bytes()}
	}

	if err != nil {
		return resp, &CallError{Kind: KindProtocol, Executable: path, Err: err, Stderr: stderr.Bytes()}
	}

	return out, nil
}

func (e *CallError) Error() string {
	var b []byte

	if e.Executable != "" {
		b = fmt.Appendf(b, "%q subprocess ", e.Executable)
	}

	b = fmt.Appendf(b, "%v error", e.Kind)

	if e.Err != nil {
		b = fmt.Appendf(b, ": %v", e.Err)
	}

	if e.ExitErr != nil {
		if e.Err != nil {
			b = append(b, ';')
		} else {
			b = append(b, ':')
		}

		b = fmt.Appendf(b, " %v", e.ExitErr)
	}

	if e.Kind >= KindTransport {
		b = fmt.Appendf(b, " (stderr: %s)", e.Stderr)
	}

	return string(b)
}

func (e *CallError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}

	return e.ExitErr
}

func (k Kind) String() string {
	switch k {
	case KindResolve:
		return "resolve"
	case KindSpawn:
		return "spawn"
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	case KindExit:
		return "exit"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}
