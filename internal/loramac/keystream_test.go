package loramac

import (
	"encoding/hex"
	"math/rand"
	"testing"

	"github.com/brocaar/lorawan"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type failingBlockCipher struct{}

func (failingBlockCipher) EncryptBlock(lorawan.AES128Key, []byte, []byte) error {
	return errors.New("hardware failure")
}

func mustKey(t *testing.T, s string) lorawan.AES128Key {
	var key lorawan.AES128Key
	require.NoError(t, key.UnmarshalText([]byte(s)))
	return key
}

func TestApplyKeystream(t *testing.T) {
	key := mustKey(t, "2b7e151628aed2a6abf7158809cf4f3c")
	fhdr := FHDR{
		DevAddr: lorawan.DevAddr{0x01, 0x02, 0x03, 0x04},
		FCnt:    1,
	}

	t.Run("known vector", func(t *testing.T) {
		assert := require.New(t)

		out, err := ApplyKeystream(AES128{}, key, Uplink, fhdr, []byte{0xde, 0xad, 0xbe, 0xef})
		assert.NoError(err)
		assert.Equal("24011fea", hex.EncodeToString(out))
	})

	t.Run("involution", func(t *testing.T) {
		assert := require.New(t)
		r := rand.New(rand.NewSource(1))

		for size := 0; size <= MaxFRMPayloadSize; size++ {
			payload := make([]byte, size)
			r.Read(payload)

			for _, dir := range []Direction{Uplink, Downlink} {
				ct, err := ApplyKeystream(AES128{}, key, dir, fhdr, payload)
				assert.NoError(err)
				pt, err := ApplyKeystream(AES128{}, key, dir, fhdr, ct)
				assert.NoError(err)
				assert.Equal(payload, pt)
			}
		}
	})

	t.Run("wire compatible with regular lorawan encryption", func(t *testing.T) {
		assert := require.New(t)
		r := rand.New(rand.NewSource(2))

		for _, size := range []int{1, 5, 16, 17, 33, 64, 200} {
			payload := make([]byte, size)
			r.Read(payload)

			for _, dir := range []Direction{Uplink, Downlink} {
				ct, err := ApplyKeystream(AES128{}, key, dir, fhdr, payload)
				assert.NoError(err)

				expected, err := lorawan.EncryptFRMPayload(key, dir == Uplink, fhdr.DevAddr, uint32(fhdr.FCnt), reverse(payload))
				assert.NoError(err)
				assert.Equal(expected, reverse(ct))
			}
		}
	})

	t.Run("direction changes the keystream", func(t *testing.T) {
		assert := require.New(t)

		payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
		up, err := ApplyKeystream(AES128{}, key, Uplink, fhdr, payload)
		assert.NoError(err)
		down, err := ApplyKeystream(AES128{}, key, Downlink, fhdr, payload)
		assert.NoError(err)
		assert.NotEqual(up, down)
	})

	t.Run("payload exceeds max size", func(t *testing.T) {
		assert := require.New(t)

		_, err := ApplyKeystream(AES128{}, key, Uplink, fhdr, make([]byte, MaxFRMPayloadSize+1))
		assert.Equal(ErrUnsupportedFeature, errors.Cause(err))
	})

	t.Run("cipher failure", func(t *testing.T) {
		assert := require.New(t)

		_, err := ApplyKeystream(failingBlockCipher{}, key, Uplink, fhdr, []byte{1})
		assert.Equal(ErrCipherPrimitive, errors.Cause(err))
	})
}

func TestPHYPayloadEncryptFRMPayload(t *testing.T) {
	assert := require.New(t)
	key := mustKey(t, "2b7e151628aed2a6abf7158809cf4f3c")

	p := testPHYPayload()
	assert.NoError(p.EncryptFRMPayload(AES128{}, key))
	assert.Equal([]byte{0x24, 0x01, 0x1f, 0xea}, p.MACPayload.FRMPayload)

	assert.NoError(p.DecryptFRMPayload(AES128{}, key))
	assert.Equal([]byte{0xde, 0xad, 0xbe, 0xef}, p.MACPayload.FRMPayload)
}
