package target

import (
	"tlog.app/go/errors"
)

// Version tags the target VM revision the bytecode is generated for.
type Version string

const (
	Paris    Version = "paris"
	Shanghai Version = "shanghai"
	Cancun   Version = "cancun"
)

var Versions = []Version{Paris, Shanghai, Cancun}

const Default = Cancun

func Parse(s string) (Version, error) {
	for _, v := range Versions {
		if string(v) == s {
			return v, nil
		}
	}

	return "", errors.New("unknown target version %q", s)
}

func (v Version) MarshalText() ([]byte, error) {
	return []byte(v), nil
}

func (v *Version) UnmarshalText(text []byte) (err error) {
	*v, err = Parse(string(text))
	return err
}
