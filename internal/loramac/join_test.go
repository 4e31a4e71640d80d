package loramac

import (
	"crypto/aes"
	"testing"

	"github.com/brocaar/lorawan"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"
)

func TestDeriveSessionKeys(t *testing.T) {
	tests := []struct {
		name     string
		appKey   lorawan.AES128Key
		appNonce AppNonce
		netID    lorawan.NetID
		devNonce DevNonce
		expected SessionKeys
	}{
		{
			name:     "zero root key",
			appNonce: AppNonce{0x00, 0x00, 0x01},
			devNonce: DevNonce{0x00, 0x01},
			expected: SessionKeys{
				NwkSKey: mustKey(t, "c408dad3c10ba4119c1fbb88167011ff"),
				AppSKey: mustKey(t, "3686639f4066a5a8681e1f4eafe5bbbe"),
			},
		},
	}

	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			assert := require.New(t)

			keys, err := DeriveSessionKeys(AES128{}, tst.appKey, tst.appNonce, tst.netID, tst.devNonce)
			assert.NoError(err)
			assert.Equal(tst.expected, keys)
		})
	}
}

func TestDeriveSessionKeysProperties(t *testing.T) {
	assert := require.New(t)

	appKey := mustKey(t, "2b7e151628aed2a6abf7158809cf4f3c")
	appNonce := AppNonce{0x01, 0x02, 0x03}
	netID := lorawan.NetID{0x04, 0x05, 0x06}
	devNonce := DevNonce{0x07, 0x08}

	keys1, err := DeriveSessionKeys(AES128{}, appKey, appNonce, netID, devNonce)
	assert.NoError(err)
	keys2, err := DeriveSessionKeys(AES128{}, appKey, appNonce, netID, devNonce)
	assert.NoError(err)
	assert.Equal(keys1, keys2)
	assert.NotEqual(keys1.NwkSKey, keys1.AppSKey)

	keys3, err := DeriveSessionKeys(AES128{}, appKey, appNonce, netID, DevNonce{0x08, 0x07})
	assert.NoError(err)
	assert.NotEqual(keys1.NwkSKey, keys3.NwkSKey)
	assert.NotEqual(keys1.AppSKey, keys3.AppSKey)

	_, err = DeriveSessionKeys(failingBlockCipher{}, appKey, appNonce, netID, devNonce)
	assert.Equal(ErrCipherPrimitive, errors.Cause(err))
}

func TestValidateJoinRequest(t *testing.T) {
	Convey("Given a set of join-request identifiers and an AppKey", t, func() {
		appEUI := lorawan.EUI64{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
		devEUI := lorawan.EUI64{0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18}
		devNonce := DevNonce{0x01, 0x02}
		appKey := mustKey(t, "000102030405060708090a0b0c0d0e0f")

		peer, err := PackJoinRequest(AsconMAC{}, appEUI, devEUI, devNonce, appKey)
		So(err, ShouldBeNil)

		Convey("When the peer frame was packed with the same inputs", func() {
			err := ValidateJoinRequest(AsconMAC{}, appEUI, devEUI, devNonce, appKey, peer)

			Convey("Then the join-request is valid", func() {
				So(err, ShouldBeNil)
			})
		})

		Convey("When the peer frame survives a round-trip over the wire", func() {
			b, err := peer.MarshalBinary()
			So(err, ShouldBeNil)

			var received JoinRequestFrame
			So(received.UnmarshalBinary(b), ShouldBeNil)

			Convey("Then the join-request is valid", func() {
				So(ValidateJoinRequest(AsconMAC{}, appEUI, devEUI, devNonce, appKey, received), ShouldBeNil)
			})
		})

		Convey("When any byte of the peer MIC is corrupted", func() {
			for i := range peer.MIC {
				corrupted := peer
				corrupted.MIC[i] ^= 0x80

				Convey("Then ErrInvalidMIC is returned for byte "+string(rune('0'+i)), func() {
					err := ValidateJoinRequest(AsconMAC{}, appEUI, devEUI, devNonce, appKey, corrupted)
					So(errors.Cause(err), ShouldEqual, ErrInvalidMIC)
				})
			}
		})

		Convey("When a different DevNonce is used", func() {
			err := ValidateJoinRequest(AsconMAC{}, appEUI, devEUI, DevNonce{0x02, 0x01}, appKey, peer)

			Convey("Then ErrInvalidMIC is returned", func() {
				So(errors.Cause(err), ShouldEqual, ErrInvalidMIC)
			})
		})

		Convey("When the authenticator fails", func() {
			err := ValidateJoinRequest(failingAuthenticator{}, appEUI, devEUI, devNonce, appKey, peer)

			Convey("Then a cipher primitive error is returned", func() {
				So(errors.Cause(err), ShouldEqual, ErrCipherPrimitive)
			})
		})
	})
}

func TestProcessJoinAccept(t *testing.T) {
	assert := require.New(t)

	appKey := mustKey(t, "000102030405060708090a0b0c0d0e0f")
	f := JoinAcceptFrame{
		MHDR:       MHDRJoinAccept,
		AppNonce:   AppNonce{0x00, 0x00, 0x01},
		NetID:      lorawan.NetID{0x00, 0x00, 0x13},
		DevAddr:    lorawan.DevAddr{0x26, 0x01, 0x1b, 0xda},
		DLSettings: 0x00,
		RXDelay:    0x01,
	}
	devNonce := DevNonce{0x00, 0x01}

	res, err := ProcessJoinAccept(AsconMAC{}, AES128{}, f, devNonce, appKey)
	assert.NoError(err)

	keys, err := DeriveSessionKeys(AES128{}, appKey, f.AppNonce, f.NetID, devNonce)
	assert.NoError(err)
	assert.Equal(keys, res.SessionKeys)

	ok, err := res.Frame.ValidateMIC(AsconMAC{}, appKey)
	assert.NoError(err)
	assert.True(ok)

	block, err := aes.NewCipher(appKey[:])
	assert.NoError(err)
	body := make([]byte, JoinAcceptBodySize)
	block.Decrypt(body, res.VerificationBlock[:])

	var decoded JoinAcceptFrame
	decoded.MHDR = MHDRJoinAccept
	assert.NoError(decoded.UnmarshalBinary(body))
	assert.Equal(res.Frame, decoded)

	_, err = ProcessJoinAccept(failingAuthenticator{}, AES128{}, f, devNonce, appKey)
	assert.Equal(ErrCipherPrimitive, errors.Cause(err))
}
