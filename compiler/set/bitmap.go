package set

import "math/bits"

// Bitmap is a growable set of small non-negative ints.
// Zero value is an empty set.
type Bitmap struct {
	b []uint64
}

func (s *Bitmap) Set(i int) {
	i, j := ij(i)

	for i >= len(s.b) {
		s.b = append(s.b, 0)
	}

	s.b[i] |= 1 << j
}

func (s *Bitmap) IsSet(i int) bool {
	i, j := ij(i)

	if i >= len(s.b) {
		return false
	}

	return s.b[i]&(1<<j) != 0
}

func (s *Bitmap) Size() (r int) {
	if s == nil {
		return 0
	}

	for _, c := range s.b {
		r += bits.OnesCount64(c)
	}

	return r
}

func ij(pos int) (i, j int) {
	return pos / 64, pos % 64
}
