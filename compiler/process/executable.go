package process

import (
	"os"
	"sync/atomic"

	"tlog.app/go/errors"
)

// Executable is a write-once override of the binary launched for workers.
// The zero value resolves to the running binary.
type Executable struct {
	path atomic.Pointer[string]
}

var (
	ErrExecutableSet = errors.New("executable is already set")

	DefaultExecutable Executable
)

// SetExecutable overrides the worker binary for the whole process.
// It must be called before the first Call and only once.
func SetExecutable(path string) error {
	return DefaultExecutable.Set(path)
}

func (e *Executable) Set(path string) error {
	if path == "" {
		return errors.New("empty executable path")
	}

	if !e.path.CompareAndSwap(nil, &path) {
		return errors.Wrap(ErrExecutableSet, "%v", *e.path.Load())
	}

	return nil
}

func (e *Executable) Path() (string, error) {
	if p := e.path.Load(); p != nil {
		return *p, nil
	}

	p, err := os.Executable()
	if err != nil {
		return "", errors.Wrap(err, "current executable")
	}

	return p, nil
}
