// Package ascon implements the Ascon permutation and the Ascon-Mac v1.2
// message authentication code.
package ascon

import (
	"encoding/binary"
	"math/bits"
)

// state holds the 320 bit Ascon state as five 64 bit words.
type state [5]uint64

// round constants for the 12 round permutation
var roundConstants = [12]uint64{
	0xf0, 0xe1, 0xd2, 0xc3, 0xb4, 0xa5,
	0x96, 0x87, 0x78, 0x69, 0x5a, 0x4b,
}

func (s *state) round(c uint64) {
	x0, x1, x2, x3, x4 := s[0], s[1], s[2]^c, s[3], s[4]

	// substitution layer
	x0 ^= x4
	x4 ^= x3
	x2 ^= x1
	t0 := ^x0 & x1
	t1 := ^x1 & x2
	t2 := ^x2 & x3
	t3 := ^x3 & x4
	t4 := ^x4 & x0
	x0 ^= t1
	x1 ^= t2
	x2 ^= t3
	x3 ^= t4
	x4 ^= t0
	x1 ^= x0
	x0 ^= x4
	x3 ^= x2
	x2 = ^x2

	// linear diffusion layer
	s[0] = x0 ^ bits.RotateLeft64(x0, -19) ^ bits.RotateLeft64(x0, -28)
	s[1] = x1 ^ bits.RotateLeft64(x1, -61) ^ bits.RotateLeft64(x1, -39)
	s[2] = x2 ^ bits.RotateLeft64(x2, -1) ^ bits.RotateLeft64(x2, -6)
	s[3] = x3 ^ bits.RotateLeft64(x3, -10) ^ bits.RotateLeft64(x3, -17)
	s[4] = x4 ^ bits.RotateLeft64(x4, -7) ^ bits.RotateLeft64(x4, -41)
}

// p12 applies the full 12 round permutation.
func (s *state) p12() {
	for _, c := range roundConstants {
		s.round(c)
	}
}

// loadBytes loads up to 8 bytes big-endian into the most significant bytes
// of a word.
func loadBytes(b []byte) uint64 {
	var x uint64
	for i, v := range b {
		x |= uint64(v) << (56 - 8*uint(i))
	}
	return x
}

// pad returns the padding word for a partial block of n bytes.
func pad(n int) uint64 {
	return 0x80 << (56 - 8*uint(n))
}

func storeWord(dst []byte, x uint64) {
	binary.BigEndian.PutUint64(dst, x)
}
