package optimizer

import (
	"fmt"

	"tlog.app/go/errors"
)

type (
	// Level is one of the -O levels: '0', '1', '2', '3', 's', 'z'.
	Level byte

	Settings struct {
		Level Level `json:"level"`

		FallbackToSize                  bool `json:"fallback_to_optimizing_for_size"`
		DisableSystemRequestMemoization bool `json:"disable_system_request_memoization"`

		JumpTableDensityThreshold *uint32 `json:"jump_table_density_threshold,omitempty"`
	}
)

const (
	None          Level = '0'
	Less          Level = '1'
	Default       Level = '2'
	Aggressive    Level = '3'
	Size          Level = 's'
	SizeAtAllCost Level = 'z'
)

const DefaultJumpTableDensityThreshold = 4

func ParseLevel(s string) (Level, error) {
	if len(s) == 1 {
		switch l := Level(s[0]); l {
		case None, Less, Default, Aggressive, Size, SizeAtAllCost:
			return l, nil
		}
	}

	return 0, errors.New("unexpected optimization option %q, expected one of: 0, 1, 2, 3, s, z", s)
}

// New returns the settings for the given level with everything else at defaults.
func New(l Level) Settings {
	return Settings{Level: l}
}

func Cycles() Settings { return New(Aggressive) }

func Optimizes(l Level) bool { return l != None && l != 0 }

func (s Settings) JumpTableThreshold() int {
	if s.JumpTableDensityThreshold == nil {
		return DefaultJumpTableDensityThreshold
	}

	return int(*s.JumpTableDensityThreshold)
}

// String is stable and is part of the metadata hash preimage.
func (s Settings) String() string {
	b := fmt.Appendf(nil, "O%s", s.Level)

	if s.FallbackToSize {
		b = append(b, " fallback-Oz"...)
	}

	if s.DisableSystemRequestMemoization {
		b = append(b, " no-memo"...)
	}

	b = fmt.Appendf(b, " jt%d", s.JumpTableThreshold())

	return string(b)
}

func (l Level) String() string {
	if l == 0 {
		return "?"
	}

	return string(rune(l))
}

func (l Level) MarshalText() ([]byte, error) {
	if l == 0 {
		return []byte{}, nil
	}

	return []byte{byte(l)}, nil
}

func (l *Level) UnmarshalText(text []byte) (err error) {
	if len(text) == 0 {
		*l = 0
		return nil
	}

	*l, err = ParseLevel(string(text))
	return err
}
