package loramac

import "github.com/pkg/errors"

// errors
var (
	// ErrInvalidInput is returned for key, identifier or frame material of
	// the wrong size. It is detected before any cryptographic work.
	ErrInvalidInput = errors.New("loramac: invalid input")

	// ErrUnsupportedFeature is returned for frames using FOpts, an
	// unsupported MType or a FRMPayload above MaxFRMPayloadSize.
	ErrUnsupportedFeature = errors.New("loramac: unsupported feature")

	// ErrInvalidMIC is returned when the calculated MIC does not match the
	// MIC supplied by the peer. Note that this is not a decode error.
	ErrInvalidMIC = errors.New("loramac: invalid mic")

	// ErrCipherPrimitive is returned when the block-cipher or authentication
	// primitive fails.
	ErrCipherPrimitive = errors.New("loramac: cipher primitive error")
)

func errorf(cause error, format string, args ...interface{}) error {
	return errors.Wrapf(cause, format, args...)
}

func malformedFrame(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidInput, "malformed frame: "+format, args...)
}

func primitiveError(err error, description string) error {
	return errors.Wrapf(ErrCipherPrimitive, "%s: %s", description, err)
}
