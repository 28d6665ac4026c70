package process

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/afero"
	"tlog.app/go/errors"

	"github.com/slowlang/contractc/compiler/backend"
)

// Run is the worker side of Call: it reads one Request from stdin,
// compiles it and writes a Response to stdout.
// On any failure the error text goes to stderr instead
// and the error is returned, so the process exits non-zero.
func Run(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) error {
	return RunBackend(ctx, backend.New(afero.NewOsFs()), stdin, stdout, stderr)
}

func RunBackend(ctx context.Context, b *backend.Backend, stdin io.Reader, stdout, stderr io.Writer) (err error) {
	// set once stdout was written to, so the two streams are never both used
	var stdoutUsed bool

	defer func() {
		if err != nil && !stdoutUsed {
			_, _ = io.WriteString(stderr, err.Error())
		}
	}()

	data, err := io.ReadAll(stdin)
	if err != nil {
		return errors.Wrap(err, "read stdin")
	}

	var req Request

	err = json.Unmarshal(data, &req)
	if err != nil {
		return errors.Wrap(err, "decode request")
	}

	if req.EnableTestEncoding {
		backend.SetEncodingMode(backend.EncodingTesting)
	}

	c, err := req.Contract.Compile(ctx, b, req.BackendOptions())
	if err != nil {
		return err
	}

	data, err = json.Marshal(Response{Build: c})
	if err != nil {
		return errors.Wrap(err, "encode response")
	}

	stdoutUsed = true

	_, err = stdout.Write(append(data, '\n'))
	if err != nil {
		return errors.Wrap(err, "write response")
	}

	return nil
}
