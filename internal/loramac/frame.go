// Package loramac implements the cryptographic envelope of LoRaWAN data and
// join frames using Ascon-Mac for the message integrity code and an AES
// keystream for the FRMPayload.
//
// FRMPayload bytes are kept in memory in the reverse order of the wire
// representation. The codec reverses them when reading and writing frames
// and the keystream consumes its blocks in the matching order, so that the
// bytes on the wire are the regular LoRaWAN counter-mode ciphertext.
package loramac

import (
	"github.com/brocaar/lorawan"
)

// Frame layout constants.
const (
	// MinDataFrameSize is the size of a data frame without FRMPayload:
	// MHDR (1) + FHDR (7) + FPort (1) + MIC (4).
	MinDataFrameSize = 13

	// MaxFRMPayloadSize is the largest FRMPayload which can be handled. The
	// MIC block carries the length of MHDR + FHDR + FPort + FRMPayload in a
	// single byte.
	MaxFRMPayloadSize = 255 - 9

	// JoinRequestFrameSize is the size of a join-request frame.
	JoinRequestFrameSize = 23

	// JoinAcceptBodySize is the size of the join-accept body (including MIC)
	// which is covered by the verification block.
	JoinAcceptBodySize = 16
)

// Byte offsets of the data frame fields.
const (
	offsetMHDR       = 0
	offsetDevAddr    = 1
	offsetFCtrl      = 5
	offsetFCnt       = 6
	offsetFPort      = 8
	offsetFRMPayload = 9
)

const fOptsLenMask = 0x0f

// MHDR values of the supported frame types.
var (
	MHDRUnconfirmedDataUp   = lorawan.MHDR{MType: lorawan.UnconfirmedDataUp, Major: lorawan.LoRaWANR1}
	MHDRUnconfirmedDataDown = lorawan.MHDR{MType: lorawan.UnconfirmedDataDown, Major: lorawan.LoRaWANR1}
	MHDRJoinRequest         = lorawan.MHDR{MType: lorawan.JoinRequest, Major: lorawan.LoRaWANR1}
	MHDRJoinAccept          = lorawan.MHDR{MType: lorawan.JoinAccept, Major: lorawan.LoRaWANR1}
)

// Direction defines the frame direction.
type Direction uint8

// Frame directions, as used in the keystream blocks.
const (
	Uplink Direction = iota
	Downlink
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	if d == Downlink {
		return "downlink"
	}
	return "uplink"
}

// mhdrByte returns the MHDR in its one byte wire form.
func mhdrByte(h lorawan.MHDR) byte {
	return byte(h.Major) ^ (byte(h.MType) << 5)
}

// mhdrFromByte decodes the one byte MHDR.
func mhdrFromByte(b byte) lorawan.MHDR {
	return lorawan.MHDR{
		Major: lorawan.Major(b & 0x03),
		MType: lorawan.MType((b & 0xe0) >> 5),
	}
}

// DirectionFromMHDR returns the direction encoded by bit 5 of the MHDR.
func DirectionFromMHDR(h lorawan.MHDR) Direction {
	if mhdrByte(h)&0x20 != 0 {
		return Downlink
	}
	return Uplink
}

// FHDR represents the frame header.
type FHDR struct {
	DevAddr lorawan.DevAddr
	FCtrl   byte
	FCnt    uint16
	FOpts   []byte // must be empty, FOpts are not supported
}

// FOptsLen returns the FOpts length encoded in the FCtrl low nibble.
func (h FHDR) FOptsLen() int {
	return int(h.FCtrl & fOptsLenMask)
}

// MACPayload represents the MAC payload.
type MACPayload struct {
	FHDR       FHDR
	FPort      uint8
	FRMPayload []byte // in-memory byte order (reversed wire order)
}

// PHYPayload represents a data frame.
type PHYPayload struct {
	MHDR       lorawan.MHDR
	MACPayload MACPayload
	MIC        lorawan.MIC
}

// Direction returns the frame direction.
func (p PHYPayload) Direction() Direction {
	return DirectionFromMHDR(p.MHDR)
}

// MHDRByte returns the MHDR in its one byte wire form.
func (p PHYPayload) MHDRByte() byte {
	return mhdrByte(p.MHDR)
}

// validate returns an error when the frame can't be handled by this
// implementation.
func (p PHYPayload) validate() error {
	switch p.MHDR.MType {
	case lorawan.UnconfirmedDataUp, lorawan.UnconfirmedDataDown:
	default:
		return errorf(ErrUnsupportedFeature, "mtype %s is not supported", p.MHDR.MType)
	}

	if p.MACPayload.FHDR.FOptsLen() != 0 || len(p.MACPayload.FHDR.FOpts) != 0 {
		return errorf(ErrUnsupportedFeature, "fopts are not supported (fopts_len: %d)", p.MACPayload.FHDR.FOptsLen())
	}

	if len(p.MACPayload.FRMPayload) > MaxFRMPayloadSize {
		return errorf(ErrUnsupportedFeature, "frmpayload of %d bytes exceeds max of %d bytes", len(p.MACPayload.FRMPayload), MaxFRMPayloadSize)
	}

	return nil
}

// DevNonce represents the device nonce, in the little-endian order in which
// it is supplied.
type DevNonce [2]byte

// AppNonce represents the application nonce, in the little-endian order in
// which it is supplied.
type AppNonce [3]byte

// JoinRequestFrame represents a join-request frame. AppEUI, DevEUI and
// DevNonce hold the little-endian order in which they are supplied, on the
// wire each field is byte reversed.
type JoinRequestFrame struct {
	MHDR     lorawan.MHDR
	AppEUI   lorawan.EUI64
	DevEUI   lorawan.EUI64
	DevNonce DevNonce
	MIC      lorawan.MIC
}

// JoinAcceptFrame represents a join-accept frame. AppNonce and NetID hold
// the little-endian order in which they are supplied.
type JoinAcceptFrame struct {
	MHDR       lorawan.MHDR
	AppNonce   AppNonce
	NetID      lorawan.NetID
	DevAddr    lorawan.DevAddr
	DLSettings byte
	RXDelay    byte
	MIC        lorawan.MIC
}

// MHDRByte returns the MHDR in its one byte wire form.
func (f JoinAcceptFrame) MHDRByte() byte {
	return mhdrByte(f.MHDR)
}

// SessionKeys holds the session keys of a device.
type SessionKeys struct {
	NwkSKey lorawan.AES128Key
	AppSKey lorawan.AES128Key
}

// reverse returns a reversed copy of b.
func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
