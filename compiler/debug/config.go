package debug

import (
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"tlog.app/go/errors"
)

// Config enables dumping of intermediate representations.
type Config struct {
	OutputDirectory string `json:"output_directory"`
}

func New(dir string) (*Config, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrap(err, "debug output dir")
	}

	return &Config{OutputDirectory: abs}, nil
}

// Dump writes data into the output directory under a name derived from
// the contract path and the stage extension.
func (c *Config) Dump(fs afero.Fs, contract, ext string, data []byte) error {
	if c == nil {
		return nil
	}

	err := fs.MkdirAll(c.OutputDirectory, 0o755)
	if err != nil {
		return errors.Wrap(err, "create debug dir")
	}

	name := filepath.Join(c.OutputDirectory, FileName(contract)+"."+ext)

	err = afero.WriteFile(fs, name, data, 0o644)
	if err != nil {
		return errors.Wrap(err, "dump %v", ext)
	}

	return nil
}

func FileName(contract string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_")

	return r.Replace(strings.TrimLeft(contract, "/"))
}
