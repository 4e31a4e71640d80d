package storage

import (
	"context"
	"time"

	"github.com/brocaar/lorawan"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/require"
)

func (b *StorageTestSuite) TestUplinkFrame() {
	assert := require.New(b.T())
	ctx := context.Background()

	devAddr := lorawan.DevAddr{0x01, 0x02, 0x03, 0x04}
	gatewayID := lorawan.EUI64{1, 2, 3, 4, 5, 6, 7, 8}
	now := time.Now().Round(time.Millisecond).UTC()

	frames := []UplinkFrame{
		{
			ReceivedAt: now.Add(-time.Minute),
			DevAddr:    devAddr,
			FCnt:       1,
			FPort:      1,
			MType:      int(lorawan.UnconfirmedDataUp),
			Payload:    []byte{0xde, 0xad, 0xbe, 0xef},
			DataSize:   17,
			GatewayID:  &gatewayID,
			RSSI:       -60,
			SNR:        7.5,
			ElapsedUS:  120,
		},
		{
			ReceivedAt: now,
			DevAddr:    devAddr,
			FCnt:       2,
			FPort:      1,
			MType:      int(lorawan.UnconfirmedDataUp),
			Payload:    []byte{0x01},
			DataSize:   14,
		},
	}

	for i := range frames {
		assert.NoError(CreateUplinkFrame(ctx, b.Tx(), &frames[i]))
		assert.NotEqual(uuid.Nil, frames[i].ID)
	}

	count, err := GetUplinkFrameCount(ctx, b.Tx(), devAddr)
	assert.NoError(err)
	assert.Equal(2, count)

	items, err := GetUplinkFrames(ctx, b.Tx(), devAddr, 10)
	assert.NoError(err)
	assert.Len(items, 2)
	assert.Equal(frames[1].ID, items[0].ID)
	assert.Equal(frames[0].ID, items[1].ID)
	assert.Equal(frames[0].Payload, items[1].Payload)
	assert.Equal(frames[0].GatewayID, items[1].GatewayID)
	assert.Nil(items[0].GatewayID)
	assert.True(frames[0].ReceivedAt.Equal(items[1].ReceivedAt))

	items, err = GetUplinkFrames(ctx, b.Tx(), devAddr, 1)
	assert.NoError(err)
	assert.Len(items, 1)

	assert.Equal(ErrAlreadyExists, CreateUplinkFrame(ctx, b.Tx(), &frames[0]))
}
