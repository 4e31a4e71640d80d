package loramac

import (
	"crypto/subtle"
	"encoding/binary"

	"github.com/brocaar/lorawan"
)

// micTrailerSize is the size of the zero trailer appended to the data-frame
// MIC message, as expected by the Ascon-Mac framing of the devices.
const micTrailerSize = 16

// MICValue returns the MIC as the little-endian 32 bit integer it encodes.
func MICValue(mic lorawan.MIC) uint32 {
	return binary.LittleEndian.Uint32(mic[:])
}

// micMessage returns the authenticated message of a data frame:
// B0 | MHDR | FHDR | FPort | FRMPayload (wire order) | 0x00 * 16.
func (p PHYPayload) micMessage() ([]byte, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	n := len(p.MACPayload.FRMPayload)
	devAddr, err := p.MACPayload.FHDR.DevAddr.MarshalBinary()
	if err != nil {
		return nil, err
	}

	b0 := make([]byte, blockSize)
	b0[0] = 0x49
	copy(b0[6:10], devAddr)
	binary.LittleEndian.PutUint16(b0[10:12], p.MACPayload.FHDR.FCnt)
	b0[15] = byte(n + offsetFRMPayload)

	msg := make([]byte, 0, blockSize+offsetFRMPayload+n+micTrailerSize)
	msg = append(msg, b0...)
	msg = append(msg, p.MHDRByte())
	msg = append(msg, devAddr...)
	msg = append(msg, p.MACPayload.FHDR.FCtrl)
	msg = append(msg, byte(p.MACPayload.FHDR.FCnt), byte(p.MACPayload.FHDR.FCnt>>8))
	msg = append(msg, p.MACPayload.FPort)
	msg = append(msg, reverse(p.MACPayload.FRMPayload)...)
	msg = append(msg, make([]byte, micTrailerSize)...)
	return msg, nil
}

// CalculateMIC calculates and returns the MIC of the data frame using the
// NwkSKey. Note that the MIC covers the FRMPayload as it is carried on the
// wire, thus it must be calculated after encryption.
func (p PHYPayload) CalculateMIC(a Authenticator, nwkSKey lorawan.AES128Key) (lorawan.MIC, error) {
	var mic lorawan.MIC

	msg, err := p.micMessage()
	if err != nil {
		return mic, err
	}

	tag, err := a.Authenticate(nwkSKey, msg)
	if err != nil {
		return mic, primitiveError(err, "authenticate error")
	}
	copy(mic[:], tag[0:4])
	return mic, nil
}

// SetMIC calculates and sets the MIC field.
func (p *PHYPayload) SetMIC(a Authenticator, nwkSKey lorawan.AES128Key) error {
	mic, err := p.CalculateMIC(a, nwkSKey)
	if err != nil {
		return err
	}
	p.MIC = mic
	return nil
}

// ValidateMIC returns if the MIC is valid. A mismatch is not an error.
func (p PHYPayload) ValidateMIC(a Authenticator, nwkSKey lorawan.AES128Key) (bool, error) {
	mic, err := p.CalculateMIC(a, nwkSKey)
	if err != nil {
		return false, err
	}
	return micEqual(mic, p.MIC), nil
}

// CalculateMIC calculates and returns the MIC of the join-request using
// the AppKey.
func (f JoinRequestFrame) CalculateMIC(a Authenticator, appKey lorawan.AES128Key) (lorawan.MIC, error) {
	var mic lorawan.MIC

	tag, err := a.Authenticate(appKey, f.body())
	if err != nil {
		return mic, primitiveError(err, "authenticate error")
	}
	copy(mic[:], tag[0:4])
	return mic, nil
}

// SetMIC calculates and sets the MIC field.
func (f *JoinRequestFrame) SetMIC(a Authenticator, appKey lorawan.AES128Key) error {
	mic, err := f.CalculateMIC(a, appKey)
	if err != nil {
		return err
	}
	f.MIC = mic
	return nil
}

// ValidateMIC returns if the MIC is valid. The MIC is compared byte by byte.
func (f JoinRequestFrame) ValidateMIC(a Authenticator, appKey lorawan.AES128Key) (bool, error) {
	mic, err := f.CalculateMIC(a, appKey)
	if err != nil {
		return false, err
	}
	return micEqual(mic, f.MIC), nil
}

// CalculateMIC calculates and returns the MIC of the join-accept using the
// AppKey. It covers MHDR | AppNonce | NetID | DevAddr | DLSettings | RXDelay.
func (f JoinAcceptFrame) CalculateMIC(a Authenticator, appKey lorawan.AES128Key) (lorawan.MIC, error) {
	var mic lorawan.MIC

	body, err := f.MarshalBinary()
	if err != nil {
		return mic, err
	}

	msg := make([]byte, 0, JoinAcceptBodySize-len(mic)+1)
	msg = append(msg, mhdrByte(f.MHDR))
	msg = append(msg, body[:JoinAcceptBodySize-len(mic)]...)

	tag, err := a.Authenticate(appKey, msg)
	if err != nil {
		return mic, primitiveError(err, "authenticate error")
	}
	copy(mic[:], tag[0:4])
	return mic, nil
}

// SetMIC calculates and sets the MIC field.
func (f *JoinAcceptFrame) SetMIC(a Authenticator, appKey lorawan.AES128Key) error {
	mic, err := f.CalculateMIC(a, appKey)
	if err != nil {
		return err
	}
	f.MIC = mic
	return nil
}

// ValidateMIC returns if the MIC is valid.
func (f JoinAcceptFrame) ValidateMIC(a Authenticator, appKey lorawan.AES128Key) (bool, error) {
	mic, err := f.CalculateMIC(a, appKey)
	if err != nil {
		return false, err
	}
	return micEqual(mic, f.MIC), nil
}

func micEqual(a, b lorawan.MIC) bool {
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}
