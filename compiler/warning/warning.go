package warning

import (
	"strings"

	"tlog.app/go/errors"
)

// Type is a kind of warning the compiler emits and the user can suppress.
type Type string

const (
	EcRecover   Type = "ecrecover"
	ExtCodeSize Type = "extcodesize"
	TxOrigin    Type = "txorigin"
)

var All = []Type{EcRecover, ExtCodeSize, TxOrigin}

func Parse(s string) (Type, error) {
	for _, t := range All {
		if string(t) == s {
			return t, nil
		}
	}

	return "", errors.New("invalid suppressed warning %q, expected one of: ecrecover, extcodesize, txorigin", s)
}

// ParseList parses a comma separated list.
func ParseList(s string) (l []Type, err error) {
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		t, err := Parse(p)
		if err != nil {
			return nil, err
		}

		l = append(l, t)
	}

	return l, nil
}

func Suppressed(l []Type, t Type) bool {
	for _, x := range l {
		if x == t {
			return true
		}
	}

	return false
}

func (t Type) Message() string {
	switch t {
	case EcRecover:
		return "ecrecover: signatures are malleable, validate the returned address and check s in the lower half order"
	case ExtCodeSize:
		return "extcodesize: an account under construction reports zero code size, do not use it to detect contracts"
	case TxOrigin:
		return "txorigin: origin() is the transaction sender, not the immediate caller; using it for authorization is unsafe"
	default:
		return string(t)
	}
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t), nil
}

func (t *Type) UnmarshalText(text []byte) (err error) {
	*t, err = Parse(string(text))
	return err
}
