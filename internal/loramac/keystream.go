package loramac

import (
	"encoding/binary"

	"github.com/brocaar/lorawan"
)

const blockSize = 16

// ApplyKeystream encrypts or decrypts the given FRMPayload (encryption and
// decryption are the same operation). The payload is expected in its
// in-memory byte order, a new slice is returned.
//
// For each block index i (starting at 1) the block
// A_i = 0x01 | 0x00 * 4 | Dir | DevAddr (LE) | FCnt (LE) | 0x00 * 3 | i
// is encrypted into S_i. The keystream S_1 | S_2 | ... is consumed from the
// end, as the payload is stored byte reversed.
func ApplyKeystream(c BlockCipher, key lorawan.AES128Key, dir Direction, h FHDR, payload []byte) ([]byte, error) {
	n := len(payload)
	if n > MaxFRMPayloadSize {
		return nil, errorf(ErrUnsupportedFeature, "frmpayload of %d bytes exceeds max of %d bytes", n, MaxFRMPayloadSize)
	}
	if n == 0 {
		return payload, nil
	}

	var a [blockSize]byte
	a[0] = 0x01
	a[5] = byte(dir)
	devAddr, err := h.DevAddr.MarshalBinary()
	if err != nil {
		return nil, err
	}
	copy(a[6:10], devAddr)
	binary.LittleEndian.PutUint16(a[10:12], h.FCnt)

	blocks := (n + blockSize - 1) / blockSize
	ks := make([]byte, blocks*blockSize)
	for i := 0; i < blocks; i++ {
		a[15] = byte(i + 1)
		if err := c.EncryptBlock(key, ks[i*blockSize:(i+1)*blockSize], a[:]); err != nil {
			return nil, primitiveError(err, "encrypt keystream block error")
		}
	}

	out := make([]byte, n)
	for i := range payload {
		out[i] = payload[i] ^ ks[n-1-i]
	}
	return out, nil
}

// EncryptFRMPayload encrypts the FRMPayload in place with the given
// AppSKey.
func (p *PHYPayload) EncryptFRMPayload(c BlockCipher, appSKey lorawan.AES128Key) error {
	if err := p.validate(); err != nil {
		return err
	}

	b, err := ApplyKeystream(c, appSKey, p.Direction(), p.MACPayload.FHDR, p.MACPayload.FRMPayload)
	if err != nil {
		return err
	}
	p.MACPayload.FRMPayload = b
	return nil
}

// DecryptFRMPayload decrypts the FRMPayload in place with the given
// AppSKey.
func (p *PHYPayload) DecryptFRMPayload(c BlockCipher, appSKey lorawan.AES128Key) error {
	return p.EncryptFRMPayload(c, appSKey)
}
