package storage

import (
	"context"
	"crypto/rand"
	"sort"
	"time"

	"github.com/brocaar/lorawan"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/brocaar/loramac-ascon/internal/logging"
)

const (
	deviceSessionKeyTempl = "lora:ns:device:%s"
	deviceSessionSetKey   = "lora:ns:devices"
)

// DeviceSession holds the session keys of an activated device.
type DeviceSession struct {
	DevAddr   lorawan.DevAddr
	NwkSKey   lorawan.AES128Key
	AppSKey   lorawan.AES128Key
	CreatedAt time.Time
}

// CreateDeviceSession creates the given device-session. When a KEK is
// configured, the session keys are wrapped before they are stored.
func CreateDeviceSession(ctx context.Context, ds DeviceSession) error {
	key := GetRedisKey(deviceSessionKeyTempl, ds.DevAddr)

	n, err := RedisClient().Exists(ctx, key).Result()
	if err != nil {
		return errors.Wrap(err, "exists error")
	}
	if n != 0 {
		return ErrAlreadyExists
	}

	if ds.CreatedAt.IsZero() {
		ds.CreatedAt = time.Now()
	}

	nwkSKey, wrapped, err := wrapKey(ds.NwkSKey)
	if err != nil {
		return errors.Wrap(err, "wrap nwk_s_key error")
	}
	appSKey, _, err := wrapKey(ds.AppSKey)
	if err != nil {
		return errors.Wrap(err, "wrap app_s_key error")
	}

	pipe := RedisClient().TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"nwk_s_key":  nwkSKey,
		"app_s_key":  appSKey,
		"wrapped":    wrapped,
		"created_at": ds.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	pipe.SAdd(ctx, GetRedisKey(deviceSessionSetKey), ds.DevAddr.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "exec error")
	}

	log.WithFields(log.Fields{
		"dev_addr": ds.DevAddr,
		"wrapped":  wrapped,
		"ctx_id":   ctx.Value(logging.ContextIDKey),
	}).Info("storage: device-session created")

	return nil
}

// GetDeviceSession returns the device-session for the given DevAddr.
func GetDeviceSession(ctx context.Context, devAddr lorawan.DevAddr) (DeviceSession, error) {
	ds := DeviceSession{
		DevAddr: devAddr,
	}

	val, err := RedisClient().HGetAll(ctx, GetRedisKey(deviceSessionKeyTempl, devAddr)).Result()
	if err != nil {
		if err == redis.Nil {
			return ds, ErrDoesNotExist
		}
		return ds, errors.Wrap(err, "hgetall error")
	}
	if len(val) == 0 {
		return ds, ErrDoesNotExist
	}

	wrapped := val["wrapped"] == "1"

	ds.NwkSKey, err = unwrapKey([]byte(val["nwk_s_key"]), wrapped)
	if err != nil {
		return ds, errors.Wrap(err, "nwk_s_key error")
	}
	ds.AppSKey, err = unwrapKey([]byte(val["app_s_key"]), wrapped)
	if err != nil {
		return ds, errors.Wrap(err, "app_s_key error")
	}

	if s := val["created_at"]; s != "" {
		ds.CreatedAt, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return ds, errors.Wrap(err, "parse created_at error")
		}
	}

	return ds, nil
}

// GetDeviceSessions returns all device-sessions, sorted by DevAddr.
func GetDeviceSessions(ctx context.Context) ([]DeviceSession, error) {
	members, err := RedisClient().SMembers(ctx, GetRedisKey(deviceSessionSetKey)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "smembers error")
	}
	sort.Strings(members)

	var out []DeviceSession
	for _, m := range members {
		var devAddr lorawan.DevAddr
		if err := devAddr.UnmarshalText([]byte(m)); err != nil {
			return nil, errors.Wrap(err, "decode devaddr error")
		}

		ds, err := GetDeviceSession(ctx, devAddr)
		if err != nil {
			if err == ErrDoesNotExist {
				continue
			}
			return nil, err
		}
		out = append(out, ds)
	}

	return out, nil
}

// DeleteDeviceSession deletes the device-session for the given DevAddr.
func DeleteDeviceSession(ctx context.Context, devAddr lorawan.DevAddr) error {
	pipe := RedisClient().TxPipeline()
	del := pipe.Del(ctx, GetRedisKey(deviceSessionKeyTempl, devAddr))
	pipe.SRem(ctx, GetRedisKey(deviceSessionSetKey), devAddr.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "exec error")
	}
	if del.Val() == 0 {
		return ErrDoesNotExist
	}

	log.WithFields(log.Fields{
		"dev_addr": devAddr,
		"ctx_id":   ctx.Value(logging.ContextIDKey),
	}).Info("storage: device-session deleted")

	return nil
}

// GetRandomDevAddr returns a random DevAddr, prefixed with the NwkID based
// on the given NetID.
func GetRandomDevAddr(netID lorawan.NetID) (lorawan.DevAddr, error) {
	var d lorawan.DevAddr
	b := make([]byte, len(d))
	if _, err := rand.Read(b); err != nil {
		return d, errors.Wrap(err, "read random bytes error")
	}
	copy(d[:], b)
	d.SetAddrPrefix(netID)

	return d, nil
}

// NewDeviceSession returns a device-session with a random, unused DevAddr
// and random session keys.
func NewDeviceSession(ctx context.Context, netID lorawan.NetID) (DeviceSession, error) {
	var ds DeviceSession

	for {
		devAddr, err := GetRandomDevAddr(netID)
		if err != nil {
			return ds, err
		}

		n, err := RedisClient().Exists(ctx, GetRedisKey(deviceSessionKeyTempl, devAddr)).Result()
		if err != nil {
			return ds, errors.Wrap(err, "exists error")
		}
		if n == 0 {
			ds.DevAddr = devAddr
			break
		}
	}

	if _, err := rand.Read(ds.NwkSKey[:]); err != nil {
		return ds, errors.Wrap(err, "read random bytes error")
	}
	if _, err := rand.Read(ds.AppSKey[:]); err != nil {
		return ds, errors.Wrap(err, "read random bytes error")
	}
	ds.CreatedAt = time.Now()

	return ds, nil
}
