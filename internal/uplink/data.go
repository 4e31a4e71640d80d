package uplink

import (
	"context"
	"time"

	"github.com/brocaar/lorawan"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/brocaar/loramac-ascon/internal/backend/gateway/semtech"
	"github.com/brocaar/loramac-ascon/internal/integration"
	"github.com/brocaar/loramac-ascon/internal/logging"
	"github.com/brocaar/loramac-ascon/internal/loramac"
	"github.com/brocaar/loramac-ascon/internal/storage"
)

// ErrAbort is used to abort the flow without error
var ErrAbort = errors.New("nothing to do")

type dataContext struct {
	ctx    context.Context
	server *Server
	start  time.Time

	uplinkFrame   semtech.UplinkFrame
	phyPayload    loramac.PHYPayload
	deviceSession storage.DeviceSession
	elapsed       time.Duration
	storedFrame   storage.UplinkFrame
}

func (ctx *dataContext) handle() error {
	for _, f := range []func() error{
		ctx.filterMType,
		ctx.decodePHYPayload,
		ctx.getDeviceSession,
		ctx.decryptPHYPayload,
		ctx.storeUplinkFrame,
		ctx.publishUplinkEvent,
	} {
		if err := f(); err != nil {
			if err == ErrAbort {
				return nil
			}
			return err
		}
	}

	return nil
}

func (ctx *dataContext) log() *log.Entry {
	return logging.FromContext(ctx.ctx).WithField("gateway_id", ctx.uplinkFrame.GatewayID)
}

// filterMType ignores everything but unconfirmed data-up frames.
func (ctx *dataContext) filterMType() error {
	if len(ctx.uplinkFrame.PHYPayload) == 0 {
		return errors.Wrap(loramac.ErrInvalidInput, "empty phypayload")
	}

	mType := lorawan.MType(ctx.uplinkFrame.PHYPayload[0] >> 5)
	uplinkFrameCounter(mType.String()).Inc()

	if mType != lorawan.UnconfirmedDataUp {
		ctx.log().WithField("m_type", mType).Debug("uplink: ignoring frame")
		return ErrAbort
	}
	return nil
}

func (ctx *dataContext) decodePHYPayload() error {
	p, err := loramac.Decode(ctx.uplinkFrame.PHYPayload)
	if err != nil {
		return errors.Wrap(err, "decode phypayload error")
	}
	ctx.phyPayload = p
	return nil
}

func (ctx *dataContext) getDeviceSession() error {
	devAddr := ctx.phyPayload.MACPayload.FHDR.DevAddr

	ds, err := ctx.server.deviceSessions.GetDeviceSession(ctx.ctx, devAddr)
	if err != nil {
		if errors.Cause(err) == storage.ErrDoesNotExist {
			unknownDevAddrCounter().Inc()
			ctx.log().WithField("dev_addr", devAddr).Warning("uplink: unknown devaddr")
			return ErrAbort
		}
		return errors.Wrap(err, "get device-session error")
	}
	ctx.deviceSession = ds
	return nil
}

// decryptPHYPayload validates the MIC and decrypts the FRMPayload. Frames
// failing the MIC check are dropped.
func (ctx *dataContext) decryptPHYPayload() error {
	p, err := ctx.server.engine.DecryptFrame(ctx.uplinkFrame.PHYPayload, ctx.deviceSession.NwkSKey, ctx.deviceSession.AppSKey)
	ctx.elapsed = time.Since(ctx.start)
	if err != nil {
		if errors.Cause(err) == loramac.ErrInvalidMIC {
			micErrorCounter().Inc()
			ctx.log().WithFields(log.Fields{
				"dev_addr": ctx.phyPayload.MACPayload.FHDR.DevAddr,
				"f_cnt":    ctx.phyPayload.MACPayload.FHDR.FCnt,
			}).Warning("uplink: invalid mic, frame dropped")
			return ErrAbort
		}
		return errors.Wrap(err, "decrypt frame error")
	}

	ctx.phyPayload = p
	decryptedFrameCounter().Inc()
	processingDuration().Observe(ctx.elapsed.Seconds())

	ctx.log().WithFields(log.Fields{
		"dev_addr": p.MACPayload.FHDR.DevAddr,
		"f_cnt":    p.MACPayload.FHDR.FCnt,
		"f_port":   p.MACPayload.FPort,
		"elapsed":  ctx.elapsed,
	}).Info("uplink: frame decrypted")

	return nil
}

func (ctx *dataContext) storeUplinkFrame() error {
	gatewayID := ctx.uplinkFrame.GatewayID

	ctx.storedFrame = storage.UplinkFrame{
		ReceivedAt: ctx.uplinkFrame.ReceivedAt,
		DevAddr:    ctx.phyPayload.MACPayload.FHDR.DevAddr,
		FCnt:       int(ctx.phyPayload.MACPayload.FHDR.FCnt),
		FPort:      int(ctx.phyPayload.MACPayload.FPort),
		MType:      int(ctx.phyPayload.MHDR.MType),
		Payload:    ctx.phyPayload.MACPayload.FRMPayload,
		DataSize:   len(ctx.uplinkFrame.PHYPayload),
		GatewayID:  &gatewayID,
		RSSI:       ctx.uplinkFrame.RSSI,
		SNR:        ctx.uplinkFrame.SNR,
		ElapsedUS:  ctx.elapsed.Microseconds(),
	}

	if err := ctx.server.uplinkFrames.CreateUplinkFrame(ctx.ctx, &ctx.storedFrame); err != nil {
		return errors.Wrap(err, "store uplink frame error")
	}
	return nil
}

func (ctx *dataContext) publishUplinkEvent() error {
	pl := integration.UplinkEvent{
		DevAddr:    ctx.phyPayload.MACPayload.FHDR.DevAddr,
		FCnt:       ctx.phyPayload.MACPayload.FHDR.FCnt,
		FPort:      ctx.phyPayload.MACPayload.FPort,
		Data:       ctx.phyPayload.MACPayload.FRMPayload,
		GatewayID:  ctx.uplinkFrame.GatewayID,
		RSSI:       ctx.uplinkFrame.RSSI,
		SNR:        ctx.uplinkFrame.SNR,
		ReceivedAt: ctx.uplinkFrame.ReceivedAt,
	}

	if err := ctx.server.integration.PublishUplink(ctx.ctx, pl); err != nil {
		return errors.Wrap(err, "publish uplink event error")
	}
	return nil
}
