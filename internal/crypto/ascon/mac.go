package ascon

import "fmt"

const (
	// KeySize is the Ascon-Mac key size in bytes.
	KeySize = 16

	// TagSize is the Ascon-Mac tag size in bytes.
	TagSize = 16

	// rate of the absorbing phase in bytes
	macInRate = 32
)

// macIV encodes the key size (128), output rate (128), 0x80 | rounds (12)
// and tag length (128) of Ascon-Mac.
const macIV uint64 = 0x80808c0000000080

// Sum returns the Ascon-Mac tag of msg under the given key.
func Sum(key, msg []byte) ([TagSize]byte, error) {
	var tag [TagSize]byte
	if len(key) != KeySize {
		return tag, fmt.Errorf("ascon: invalid key size %d, %d bytes expected", len(key), KeySize)
	}

	s := state{
		macIV,
		loadBytes(key[0:8]),
		loadBytes(key[8:16]),
		0,
		0,
	}
	s.p12()

	// absorb full blocks
	for len(msg) >= macInRate {
		s[0] ^= loadBytes(msg[0:8])
		s[1] ^= loadBytes(msg[8:16])
		s[2] ^= loadBytes(msg[16:24])
		s[3] ^= loadBytes(msg[24:32])
		s.p12()
		msg = msg[macInRate:]
	}

	// absorb the final (padded) block
	i := 0
	for ; len(msg) >= 8; i++ {
		s[i] ^= loadBytes(msg[0:8])
		msg = msg[8:]
	}
	s[i] ^= loadBytes(msg)
	s[i] ^= pad(len(msg))

	// domain separation
	s[4] ^= 1

	s.p12()
	storeWord(tag[0:8], s[0])
	storeWord(tag[8:16], s[1])
	return tag, nil
}
