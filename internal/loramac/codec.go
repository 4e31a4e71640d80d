package loramac

import (
	"encoding/binary"
)

// MarshalBinary encodes the data frame into its wire representation.
//
// Layout: MHDR (1) | DevAddr (4, LE) | FCtrl (1) | FCnt (2, LE) | FPort (1) |
// FRMPayload (N, reversed) | MIC (4).
func (p PHYPayload) MarshalBinary() ([]byte, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	n := len(p.MACPayload.FRMPayload)
	out := make([]byte, MinDataFrameSize+n)

	out[offsetMHDR] = p.MHDRByte()
	devAddr, err := p.MACPayload.FHDR.DevAddr.MarshalBinary()
	if err != nil {
		return nil, err
	}
	copy(out[offsetDevAddr:offsetFCtrl], devAddr)
	out[offsetFCtrl] = p.MACPayload.FHDR.FCtrl
	binary.LittleEndian.PutUint16(out[offsetFCnt:offsetFPort], p.MACPayload.FHDR.FCnt)
	out[offsetFPort] = p.MACPayload.FPort
	copy(out[offsetFRMPayload:offsetFRMPayload+n], reverse(p.MACPayload.FRMPayload))
	copy(out[offsetFRMPayload+n:], p.MIC[:])

	return out, nil
}

// UnmarshalBinary decodes the data frame from its wire representation.
// The FRMPayload length is inferred from the total frame length.
func (p *PHYPayload) UnmarshalBinary(data []byte) error {
	if len(data) < MinDataFrameSize {
		return malformedFrame("at least %d bytes expected, got %d", MinDataFrameSize, len(data))
	}

	fCtrl := data[offsetFCtrl]
	if fCtrl&fOptsLenMask != 0 {
		return errorf(ErrUnsupportedFeature, "fopts are not supported (fopts_len: %d)", fCtrl&fOptsLenMask)
	}

	n := len(data) - MinDataFrameSize
	if n > MaxFRMPayloadSize {
		return errorf(ErrUnsupportedFeature, "frmpayload of %d bytes exceeds max of %d bytes", n, MaxFRMPayloadSize)
	}

	var out PHYPayload
	out.MHDR = mhdrFromByte(data[offsetMHDR])
	if err := out.MACPayload.FHDR.DevAddr.UnmarshalBinary(data[offsetDevAddr:offsetFCtrl]); err != nil {
		return malformedFrame("%s", err)
	}
	out.MACPayload.FHDR.FCtrl = fCtrl
	out.MACPayload.FHDR.FCnt = binary.LittleEndian.Uint16(data[offsetFCnt:offsetFPort])
	out.MACPayload.FPort = data[offsetFPort]
	if n > 0 {
		out.MACPayload.FRMPayload = reverse(data[offsetFRMPayload : offsetFRMPayload+n])
	}
	copy(out.MIC[:], data[offsetFRMPayload+n:])

	if err := out.validate(); err != nil {
		return err
	}

	*p = out
	return nil
}

// Decode decodes a data frame.
func Decode(data []byte) (PHYPayload, error) {
	var p PHYPayload
	if err := p.UnmarshalBinary(data); err != nil {
		return PHYPayload{}, err
	}
	return p, nil
}

// Encode encodes a data frame.
func Encode(p PHYPayload) ([]byte, error) {
	return p.MarshalBinary()
}

// MarshalBinary encodes the join-request frame. Each multi-byte field is
// written in reversed (big-endian) byte order.
func (f JoinRequestFrame) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, JoinRequestFrameSize)
	out = append(out, f.body()...)
	out = append(out, f.MIC[:]...)
	return out, nil
}

// UnmarshalBinary decodes the join-request frame.
func (f *JoinRequestFrame) UnmarshalBinary(data []byte) error {
	if len(data) != JoinRequestFrameSize {
		return malformedFrame("%d bytes of join-request expected, got %d", JoinRequestFrameSize, len(data))
	}

	var out JoinRequestFrame
	out.MHDR = mhdrFromByte(data[0])
	if out.MHDR.MType != MHDRJoinRequest.MType {
		return errorf(ErrUnsupportedFeature, "join-request mtype expected, got %s", out.MHDR.MType)
	}
	if err := out.AppEUI.UnmarshalBinary(data[1:9]); err != nil {
		return malformedFrame("%s", err)
	}
	if err := out.DevEUI.UnmarshalBinary(data[9:17]); err != nil {
		return malformedFrame("%s", err)
	}
	out.DevNonce[1] = data[17]
	out.DevNonce[0] = data[18]
	copy(out.MIC[:], data[19:23])

	*f = out
	return nil
}

// body returns the MIC covered part of the join-request:
// MHDR | AppEUI | DevEUI | DevNonce, each field reversed.
func (f JoinRequestFrame) body() []byte {
	out := make([]byte, 0, JoinRequestFrameSize-4)
	out = append(out, mhdrByte(f.MHDR))

	// EUI64.MarshalBinary reverses the byte order
	b, _ := f.AppEUI.MarshalBinary()
	out = append(out, b...)
	b, _ = f.DevEUI.MarshalBinary()
	out = append(out, b...)
	out = append(out, f.DevNonce[1], f.DevNonce[0])
	return out
}

// MarshalBinary encodes the join-accept frame body:
// AppNonce (3) | NetID (3) | DevAddr (4, LE) | DLSettings | RXDelay | MIC (4).
// The MHDR is not part of the body.
func (f JoinAcceptFrame) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, JoinAcceptBodySize)
	out = append(out, reverse(f.AppNonce[:])...)
	out = append(out, reverse(f.NetID[:])...)
	devAddr, err := f.DevAddr.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out = append(out, devAddr...)
	out = append(out, f.DLSettings, f.RXDelay)
	out = append(out, f.MIC[:]...)
	return out, nil
}

// UnmarshalBinary decodes the join-accept frame body (see MarshalBinary).
func (f *JoinAcceptFrame) UnmarshalBinary(data []byte) error {
	if len(data) != JoinAcceptBodySize {
		return malformedFrame("%d bytes of join-accept expected, got %d", JoinAcceptBodySize, len(data))
	}

	out := JoinAcceptFrame{MHDR: f.MHDR}
	copy(out.AppNonce[:], reverse(data[0:3]))
	copy(out.NetID[:], reverse(data[3:6]))
	if err := out.DevAddr.UnmarshalBinary(data[6:10]); err != nil {
		return malformedFrame("%s", err)
	}
	out.DLSettings = data[10]
	out.RXDelay = data[11]
	copy(out.MIC[:], data[12:16])

	*f = out
	return nil
}
