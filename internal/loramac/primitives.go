package loramac

import (
	"crypto/aes"

	"github.com/brocaar/lorawan"
	"github.com/jacobsa/crypto/cmac"
	"github.com/pkg/errors"

	"github.com/brocaar/loramac-ascon/internal/crypto/ascon"
)

// BlockCipher encrypts a single 16 byte block under the given key.
type BlockCipher interface {
	EncryptBlock(key lorawan.AES128Key, dst, src []byte) error
}

// Authenticator returns the 16 byte authentication tag of msg under the
// given key.
type Authenticator interface {
	Authenticate(key lorawan.AES128Key, msg []byte) ([16]byte, error)
}

// AES128 implements BlockCipher using AES-128.
type AES128 struct{}

// EncryptBlock implements BlockCipher.
func (AES128) EncryptBlock(key lorawan.AES128Key, dst, src []byte) error {
	if len(src) != aes.BlockSize || len(dst) < aes.BlockSize {
		return errors.New("block of 16 bytes expected")
	}

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return errors.Wrap(err, "new cipher error")
	}
	block.Encrypt(dst, src)
	return nil
}

// AsconMAC implements Authenticator using Ascon-Mac.
type AsconMAC struct{}

// Authenticate implements Authenticator.
func (AsconMAC) Authenticate(key lorawan.AES128Key, msg []byte) ([16]byte, error) {
	return ascon.Sum(key[:], msg)
}

// CMAC implements Authenticator using AES-CMAC, the MIC algorithm of
// regular LoRaWAN.
type CMAC struct{}

// Authenticate implements Authenticator.
func (CMAC) Authenticate(key lorawan.AES128Key, msg []byte) ([16]byte, error) {
	var tag [16]byte

	hash, err := cmac.New(key[:])
	if err != nil {
		return tag, errors.Wrap(err, "new cmac error")
	}
	if _, err := hash.Write(msg); err != nil {
		return tag, errors.Wrap(err, "write cmac error")
	}

	hb := hash.Sum([]byte{})
	if len(hb) != len(tag) {
		return tag, errors.New("the hash returned an unexpected number of bytes")
	}
	copy(tag[:], hb)
	return tag, nil
}

// MIC algorithm names.
const (
	AlgorithmAsconMAC = "ascon-mac"
	AlgorithmAESCMAC  = "aes-cmac"
)

// AuthenticatorByName returns the Authenticator for the given algorithm
// name.
func AuthenticatorByName(name string) (Authenticator, error) {
	switch name {
	case AlgorithmAsconMAC, "":
		return AsconMAC{}, nil
	case AlgorithmAESCMAC:
		return CMAC{}, nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedFeature, "unknown mic algorithm: %s", name)
	}
}
