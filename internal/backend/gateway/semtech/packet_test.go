package semtech

import (
	"testing"

	"github.com/brocaar/lorawan"
	"github.com/stretchr/testify/require"
)

func TestPacket(t *testing.T) {
	gatewayID := lorawan.EUI64{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}

	tests := []struct {
		name     string
		packet   Packet
		bytes    []byte
		expError bool
	}{
		{
			name: "push data",
			packet: Packet{
				ProtocolVersion: ProtocolVersion2,
				Token:           0x1234,
				Type:            PushData,
				GatewayID:       gatewayID,
				Payload:         []byte(`{}`),
			},
			bytes: []byte{0x02, 0x12, 0x34, 0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, '{', '}'},
		},
		{
			name: "push ack",
			packet: Packet{
				ProtocolVersion: ProtocolVersion2,
				Token:           0x1234,
				Type:            PushAck,
			},
			bytes: []byte{0x02, 0x12, 0x34, 0x01},
		},
		{
			name: "pull data",
			packet: Packet{
				ProtocolVersion: ProtocolVersion2,
				Token:           0xabcd,
				Type:            PullData,
				GatewayID:       gatewayID,
			},
			bytes: []byte{0x02, 0xab, 0xcd, 0x02, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
		},
		{
			name: "pull ack",
			packet: Packet{
				ProtocolVersion: ProtocolVersion2,
				Token:           0xabcd,
				Type:            PullAck,
			},
			bytes: []byte{0x02, 0xab, 0xcd, 0x04},
		},
		{
			name: "tx ack",
			packet: Packet{
				ProtocolVersion: ProtocolVersion2,
				Token:           1,
				Type:            TXAck,
				Payload:         []byte(`{}`),
			},
			bytes: []byte{0x02, 0x00, 0x01, 0x05, '{', '}'},
		},
	}

	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			assert := require.New(t)

			b, err := tst.packet.MarshalBinary()
			assert.NoError(err)
			assert.Equal(tst.bytes, b)

			var p Packet
			assert.NoError(p.UnmarshalBinary(tst.bytes))
			assert.Equal(tst.packet, p)
		})
	}
}

func TestPacketUnmarshalErrors(t *testing.T) {
	tests := []struct {
		name  string
		bytes []byte
	}{
		{"too short", []byte{0x02, 0x00}},
		{"push data without gateway id", []byte{0x02, 0x00, 0x01, 0x00, 0x01, 0x02}},
		{"unknown type", []byte{0x02, 0x00, 0x01, 0x09}},
	}

	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			assert := require.New(t)

			var p Packet
			assert.Error(p.UnmarshalBinary(tst.bytes))
		})
	}
}

func TestPacketAck(t *testing.T) {
	assert := require.New(t)

	ack, err := Packet{ProtocolVersion: 1, Token: 10, Type: PushData}.Ack()
	assert.NoError(err)
	assert.Equal(Packet{ProtocolVersion: 1, Token: 10, Type: PushAck}, ack)

	ack, err = Packet{ProtocolVersion: 2, Token: 11, Type: PullData}.Ack()
	assert.NoError(err)
	assert.Equal(Packet{ProtocolVersion: 2, Token: 11, Type: PullAck}, ack)

	_, err = Packet{Type: TXAck}.Ack()
	assert.Error(err)
}
