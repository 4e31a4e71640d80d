// Package integration defines the application integration interface.
package integration

import (
	"context"
	"time"

	"github.com/brocaar/lorawan"
)

// UplinkEvent contains a decrypted uplink.
type UplinkEvent struct {
	DevAddr    lorawan.DevAddr `json:"devAddr"`
	FCnt       uint16          `json:"fCnt"`
	FPort      uint8           `json:"fPort"`
	Data       []byte          `json:"data"`
	GatewayID  lorawan.EUI64   `json:"gatewayID"`
	RSSI       int             `json:"rssi"`
	SNR        float64         `json:"snr"`
	ReceivedAt time.Time       `json:"receivedAt"`
}

// Integration defines the interface of an application integration.
type Integration interface {
	PublishUplink(ctx context.Context, pl UplinkEvent) error // publish the given uplink event
	Close() error                                            // close the integration
}

// NopIntegration implements a no-op integration.
type NopIntegration struct{}

// PublishUplink does nothing.
func (NopIntegration) PublishUplink(ctx context.Context, pl UplinkEvent) error {
	return nil
}

// Close does nothing.
func (NopIntegration) Close() error {
	return nil
}
