package cmd

import (
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/brocaar/lorawan"
	"github.com/pkg/errors"

	"github.com/brocaar/loramac-ascon/internal/loramac"
)

// decodeHex decodes the given hex string. When size > 0, the decoded value
// must be exactly size bytes.
func decodeHex(name, s string, size int) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.Wrapf(loramac.ErrInvalidInput, "decode %s: %s", name, err)
	}
	if size > 0 && len(b) != size {
		return nil, errors.Wrapf(loramac.ErrInvalidInput, "%s must be %d bytes, got %d", name, size, len(b))
	}
	return b, nil
}

// decodeHexInto decodes the given hex string into dst, which must match the
// decoded length exactly.
func decodeHexInto(name, s string, dst []byte) error {
	b, err := decodeHex(name, s, len(dst))
	if err != nil {
		return err
	}
	copy(dst, b)
	return nil
}

func decodeBase64(name, s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.Wrapf(loramac.ErrInvalidInput, "decode %s: %s", name, err)
	}
	return b, nil
}

func decodeKey(name, s string) (lorawan.AES128Key, error) {
	var key lorawan.AES128Key
	err := decodeHexInto(name, s, key[:])
	return key, err
}

func decodeMType(s string) (lorawan.MType, error) {
	switch s {
	case "unconfirmed-data-up", "up":
		return lorawan.UnconfirmedDataUp, nil
	case "unconfirmed-data-down", "down":
		return lorawan.UnconfirmedDataDown, nil
	default:
		return 0, errors.Wrapf(loramac.ErrUnsupportedFeature, "unsupported m-type: %s", s)
	}
}

// exitCode returns the process exit code for the given error.
func exitCode(err error) int {
	switch errors.Cause(err) {
	case nil:
		return 0
	case loramac.ErrInvalidMIC:
		return 2
	case loramac.ErrInvalidInput:
		return 3
	case loramac.ErrUnsupportedFeature:
		return 4
	case loramac.ErrCipherPrimitive:
		return 5
	default:
		return 1
	}
}
