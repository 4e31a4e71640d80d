package storage

import (
	"context"

	"github.com/brocaar/lorawan"
)

// Store exposes the device-session and uplink frame storage functions as
// methods, using the Redis and PostgreSQL connections set up by Setup.
type Store struct{}

// GetDeviceSession returns the device-session for the given DevAddr.
func (Store) GetDeviceSession(ctx context.Context, devAddr lorawan.DevAddr) (DeviceSession, error) {
	return GetDeviceSession(ctx, devAddr)
}

// CreateUplinkFrame stores the given uplink frame.
func (Store) CreateUplinkFrame(ctx context.Context, f *UplinkFrame) error {
	return CreateUplinkFrame(ctx, DB(), f)
}
