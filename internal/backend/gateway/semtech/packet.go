// Package semtech implements the Semtech UDP packet-forwarder gateway
// backend.
package semtech

import (
	"encoding/binary"
	"fmt"

	"github.com/brocaar/lorawan"
	"github.com/pkg/errors"
)

// PacketType defines the packet type.
type PacketType byte

// Available packet types.
const (
	PushData PacketType = iota
	PushAck
	PullData
	PullResp
	PullAck
	TXAck
)

// String implements fmt.Stringer.
func (t PacketType) String() string {
	switch t {
	case PushData:
		return "PushData"
	case PushAck:
		return "PushAck"
	case PullData:
		return "PullData"
	case PullResp:
		return "PullResp"
	case PullAck:
		return "PullAck"
	case TXAck:
		return "TXAck"
	default:
		return fmt.Sprintf("Unknown(%d)", byte(t))
	}
}

// ProtocolVersion2 defines the supported protocol version.
const ProtocolVersion2 uint8 = 0x02

// Packet represents a packet-forwarder packet.
//
// Layout: version (1) | token (2, BE) | type (1) | gateway id (8, only for
// PushData and PullData) | JSON payload (PushData, PullResp and TXAck).
type Packet struct {
	ProtocolVersion uint8
	Token           uint16
	Type            PacketType
	GatewayID       lorawan.EUI64
	Payload         []byte
}

// hasGatewayID returns if the packet type carries the gateway id.
func (p Packet) hasGatewayID() bool {
	return p.Type == PushData || p.Type == PullData
}

// MarshalBinary encodes the packet.
func (p Packet) MarshalBinary() ([]byte, error) {
	out := make([]byte, 4, 12+len(p.Payload))
	out[0] = p.ProtocolVersion
	binary.BigEndian.PutUint16(out[1:3], p.Token)
	out[3] = byte(p.Type)

	switch p.Type {
	case PushAck, PullAck:
		return out, nil
	case PushData, PullData:
		out = append(out, p.GatewayID[:]...)
		if p.Type == PullData {
			return out, nil
		}
	case PullResp, TXAck:
	default:
		return nil, fmt.Errorf("unknown packet type: %s", p.Type)
	}

	out = append(out, p.Payload...)
	return out, nil
}

// UnmarshalBinary decodes the packet.
func (p *Packet) UnmarshalBinary(data []byte) error {
	if len(data) < 4 {
		return fmt.Errorf("at least 4 bytes of data expected, got %d", len(data))
	}

	out := Packet{
		ProtocolVersion: data[0],
		Token:           binary.BigEndian.Uint16(data[1:3]),
		Type:            PacketType(data[3]),
	}

	if out.Type > TXAck {
		return fmt.Errorf("unknown packet type: %s", out.Type)
	}

	payloadOffset := 4
	if out.hasGatewayID() {
		if len(data) < 12 {
			return fmt.Errorf("at least 12 bytes of data expected for %s, got %d", out.Type, len(data))
		}
		// the gateway id is sent MSB first
		copy(out.GatewayID[:], data[4:12])
		payloadOffset = 12
	}

	if len(data) > payloadOffset {
		out.Payload = make([]byte, len(data)-payloadOffset)
		copy(out.Payload, data[payloadOffset:])
	}

	*p = out
	return nil
}

// Ack returns the acknowledgement for the given PushData or PullData
// packet, or an error for the other packet types.
func (p Packet) Ack() (Packet, error) {
	var ackType PacketType

	switch p.Type {
	case PushData:
		ackType = PushAck
	case PullData:
		ackType = PullAck
	default:
		return Packet{}, errors.Errorf("%s can not be acknowledged", p.Type)
	}

	return Packet{
		ProtocolVersion: p.ProtocolVersion,
		Token:           p.Token,
		Type:            ackType,
	}, nil
}

// RXPK contains a received RF packet.
type RXPK struct {
	Time string  `json:"time,omitempty"`
	Tmst uint32  `json:"tmst"`
	Freq float64 `json:"freq"`
	Chan uint8   `json:"chan"`
	RFCh uint8   `json:"rfch"`
	Stat int8    `json:"stat"`
	Modu string  `json:"modu"`
	DatR string  `json:"datr"`
	CodR string  `json:"codr"`
	RSSI int     `json:"rssi"`
	LSNR float64 `json:"lsnr"`
	Size uint16  `json:"size"`
	Data string  `json:"data"`
}

// PushDataPayload contains the PushData JSON payload.
type PushDataPayload struct {
	RXPK []RXPK `json:"rxpk,omitempty"`
}
