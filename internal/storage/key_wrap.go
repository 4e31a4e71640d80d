package storage

import (
	"crypto/aes"
	"sync"

	keywrap "github.com/NickBall/go-aes-key-wrap"
	"github.com/brocaar/lorawan"
	"github.com/pkg/errors"
)

var (
	kekMu sync.RWMutex
	kek   []byte
)

// SetKEK sets the key encryption key used to wrap the session keys before
// they are written to Redis. A nil kek disables key wrapping.
func SetKEK(k []byte) error {
	switch len(k) {
	case 0, 16, 24, 32:
	default:
		return ErrInvalidKEK
	}

	kekMu.Lock()
	defer kekMu.Unlock()
	kek = k
	return nil
}

func getKEK() []byte {
	kekMu.RLock()
	defer kekMu.RUnlock()
	return kek
}

// wrapKey wraps the key with the KEK (RFC 3394). When no KEK is set, the
// key is returned as-is.
func wrapKey(key lorawan.AES128Key) ([]byte, bool, error) {
	k := getKEK()
	if len(k) == 0 {
		return key[:], false, nil
	}

	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, false, errors.Wrap(err, "new cipher error")
	}

	b, err := keywrap.Wrap(block, key[:])
	if err != nil {
		return nil, false, errors.Wrap(err, "wrap key error")
	}
	return b, true, nil
}

// unwrapKey returns the decrypted key.
func unwrapKey(b []byte, wrapped bool) (lorawan.AES128Key, error) {
	var key lorawan.AES128Key

	if !wrapped {
		if len(b) != len(key) {
			return key, errors.Errorf("%d bytes of key expected, got %d", len(key), len(b))
		}
		copy(key[:], b)
		return key, nil
	}

	k := getKEK()
	if len(k) == 0 {
		return key, errors.New("key is wrapped but no kek is configured")
	}

	block, err := aes.NewCipher(k)
	if err != nil {
		return key, errors.Wrap(err, "new cipher error")
	}

	out, err := keywrap.Unwrap(block, b)
	if err != nil {
		return key, errors.Wrap(err, "unwrap key error")
	}
	if len(out) != len(key) {
		return key, errors.Errorf("%d bytes of unwrapped key expected, got %d", len(key), len(out))
	}

	copy(key[:], out)
	return key, nil
}
