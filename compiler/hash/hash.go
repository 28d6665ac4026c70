package hash

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
	"tlog.app/go/errors"
)

const Size = 32

type Hash [Size]byte

func Keccak256(data ...[]byte) (h Hash) {
	k := sha3.NewLegacyKeccak256()

	for _, d := range data {
		_, _ = k.Write(d)
	}

	k.Sum(h[:0])

	return h
}

func Parse(s string) (h Hash, err error) {
	err = h.UnmarshalText([]byte(s))

	return h, err
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) MarshalText() ([]byte, error) {
	return hex.AppendEncode(nil, h[:]), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	if len(text) != 2*Size {
		return errors.New("hash: expected %d hex digits, got %d", 2*Size, len(text))
	}

	_, err := hex.Decode(h[:], text)
	if err != nil {
		return errors.Wrap(err, "hash")
	}

	return nil
}
