package storage

import (
	"context"
	"testing"
	"time"

	"github.com/brocaar/lorawan"
	"github.com/stretchr/testify/require"
)

func (b *StorageTestSuite) TestDeviceSession() {
	ctx := context.Background()

	ds := DeviceSession{
		DevAddr:   lorawan.DevAddr{0x01, 0x02, 0x03, 0x04},
		NwkSKey:   lorawan.AES128Key{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		AppSKey:   lorawan.AES128Key{16, 15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1},
		CreatedAt: time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	b.T().Run("Create", func(t *testing.T) {
		assert := require.New(t)
		assert.NoError(CreateDeviceSession(ctx, ds))

		t.Run("Create twice", func(t *testing.T) {
			assert := require.New(t)
			assert.Equal(ErrAlreadyExists, CreateDeviceSession(ctx, ds))
		})

		t.Run("Get", func(t *testing.T) {
			assert := require.New(t)

			dsGet, err := GetDeviceSession(ctx, ds.DevAddr)
			assert.NoError(err)
			assert.Equal(ds, dsGet)
		})

		t.Run("List", func(t *testing.T) {
			assert := require.New(t)

			items, err := GetDeviceSessions(ctx)
			assert.NoError(err)
			assert.Equal([]DeviceSession{ds}, items)
		})

		t.Run("Delete", func(t *testing.T) {
			assert := require.New(t)

			assert.NoError(DeleteDeviceSession(ctx, ds.DevAddr))
			assert.Equal(ErrDoesNotExist, DeleteDeviceSession(ctx, ds.DevAddr))

			_, err := GetDeviceSession(ctx, ds.DevAddr)
			assert.Equal(ErrDoesNotExist, err)
		})
	})

	b.T().Run("Create with KEK", func(t *testing.T) {
		assert := require.New(t)
		assert.NoError(SetKEK([]byte{1, 2, 3, 4, 5, 6, 7, 8, 1, 2, 3, 4, 5, 6, 7, 8}))
		assert.NoError(CreateDeviceSession(ctx, ds))

		raw, err := RedisClient().HGet(ctx, GetRedisKey(deviceSessionKeyTempl, ds.DevAddr), "nwk_s_key").Bytes()
		assert.NoError(err)
		assert.Len(raw, 24)

		dsGet, err := GetDeviceSession(ctx, ds.DevAddr)
		assert.NoError(err)
		assert.Equal(ds, dsGet)

		assert.NoError(SetKEK(nil))
		_, err = GetDeviceSession(ctx, ds.DevAddr)
		assert.Error(err)
	})

	b.T().Run("NewDeviceSession", func(t *testing.T) {
		assert := require.New(t)
		netID := lorawan.NetID{0x00, 0x00, 0x13}

		ds, err := NewDeviceSession(ctx, netID)
		assert.NoError(err)
		assert.True(ds.DevAddr.IsNetID(netID))
		assert.NotEqual(ds.NwkSKey, ds.AppSKey)
	})
}

func TestGetRandomDevAddr(t *testing.T) {
	assert := require.New(t)
	netID := lorawan.NetID{1, 2, 3}

	seen := make(map[lorawan.DevAddr]struct{})
	for i := 0; i < 1000; i++ {
		devAddr, err := GetRandomDevAddr(netID)
		assert.NoError(err)
		assert.True(devAddr.IsNetID(netID), "DevAddr %s does not have NetID %s prefix", devAddr, netID)
		seen[devAddr] = struct{}{}
	}
	assert.True(len(seen) > 990)
}

func TestKeyWrap(t *testing.T) {
	assert := require.New(t)
	defer SetKEK(nil)

	key := lorawan.AES128Key{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}

	b, wrapped, err := wrapKey(key)
	assert.NoError(err)
	assert.False(wrapped)
	assert.Equal(key[:], b)

	assert.Equal(ErrInvalidKEK, SetKEK([]byte{1, 2, 3}))
	assert.NoError(SetKEK(make([]byte, 16)))

	b, wrapped, err = wrapKey(key)
	assert.NoError(err)
	assert.True(wrapped)
	assert.Len(b, 24)

	out, err := unwrapKey(b, true)
	assert.NoError(err)
	assert.Equal(key, out)

	b[0] ^= 0x01
	_, err = unwrapKey(b, true)
	assert.Error(err)
}
