package uplink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/brocaar/lorawan"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"

	"github.com/brocaar/loramac-ascon/internal/backend/gateway/semtech"
	"github.com/brocaar/loramac-ascon/internal/engine"
	"github.com/brocaar/loramac-ascon/internal/integration"
	"github.com/brocaar/loramac-ascon/internal/loramac"
	"github.com/brocaar/loramac-ascon/internal/storage"
)

type testGatewayBackend struct {
	uplinkFrameChan chan semtech.UplinkFrame
}

func (b *testGatewayBackend) UplinkFrameChan() chan semtech.UplinkFrame {
	return b.uplinkFrameChan
}

func (b *testGatewayBackend) Close() error {
	close(b.uplinkFrameChan)
	return nil
}

type testStore struct {
	sync.Mutex
	deviceSessions map[lorawan.DevAddr]storage.DeviceSession
	uplinkFrames   []storage.UplinkFrame
	createErr      error
}

func (s *testStore) GetDeviceSession(ctx context.Context, devAddr lorawan.DevAddr) (storage.DeviceSession, error) {
	ds, ok := s.deviceSessions[devAddr]
	if !ok {
		return ds, storage.ErrDoesNotExist
	}
	return ds, nil
}

func (s *testStore) CreateUplinkFrame(ctx context.Context, f *storage.UplinkFrame) error {
	s.Lock()
	defer s.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.uplinkFrames = append(s.uplinkFrames, *f)
	return nil
}

type testIntegration struct {
	sync.Mutex
	uplinkEvents []integration.UplinkEvent
}

func (i *testIntegration) PublishUplink(ctx context.Context, pl integration.UplinkEvent) error {
	i.Lock()
	defer i.Unlock()
	i.uplinkEvents = append(i.uplinkEvents, pl)
	return nil
}

func (i *testIntegration) Close() error {
	return nil
}

func encryptFrame(e *engine.Engine, mType lorawan.MType, ds storage.DeviceSession, fCnt uint16, payload []byte) ([]byte, error) {
	res, err := e.Execute(engine.DataEncrypt{
		MType:   mType,
		DevAddr: ds.DevAddr,
		FCnt:    fCnt,
		FPort:   10,
		Payload: payload,
		NwkSKey: ds.NwkSKey,
		AppSKey: ds.AppSKey,
	})
	if err != nil {
		return nil, err
	}
	return res.(engine.DataEncryptResult).Frame, nil
}

func TestHandleUplinkFrame(t *testing.T) {
	Convey("Given a server with a device-session", t, func() {
		e, err := engine.NewByName(loramac.AlgorithmAsconMAC)
		So(err, ShouldBeNil)

		ds := storage.DeviceSession{
			DevAddr: lorawan.DevAddr{0x01, 0x02, 0x03, 0x04},
			NwkSKey: lorawan.AES128Key{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
			AppSKey: lorawan.AES128Key{16, 15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1},
		}

		store := &testStore{
			deviceSessions: map[lorawan.DevAddr]storage.DeviceSession{
				ds.DevAddr: ds,
			},
		}
		i := &testIntegration{}
		s := NewServer(nil, e, store, store, i, 0)

		frame := semtech.UplinkFrame{
			GatewayID:  lorawan.EUI64{1, 1, 1, 1, 1, 1, 1, 1},
			RSSI:       -60,
			SNR:        7.5,
			ReceivedAt: time.Now().UTC(),
		}

		Convey("When handling a valid unconfirmed data-up frame", func() {
			frame.PHYPayload, err = encryptFrame(e, lorawan.UnconfirmedDataUp, ds, 12, []byte{0xde, 0xad, 0xbe, 0xef})
			So(err, ShouldBeNil)
			So(s.HandleUplinkFrame(context.Background(), frame), ShouldBeNil)

			Convey("Then the decrypted frame is stored", func() {
				So(store.uplinkFrames, ShouldHaveLength, 1)
				f := store.uplinkFrames[0]
				So(f.DevAddr, ShouldEqual, ds.DevAddr)
				So(f.FCnt, ShouldEqual, 12)
				So(f.FPort, ShouldEqual, 10)
				So(f.MType, ShouldEqual, int(lorawan.UnconfirmedDataUp))
				So(f.Payload, ShouldResemble, []byte{0xde, 0xad, 0xbe, 0xef})
				So(f.DataSize, ShouldEqual, len(frame.PHYPayload))
				So(*f.GatewayID, ShouldResemble, frame.GatewayID)
				So(f.RSSI, ShouldEqual, -60)
				So(f.SNR, ShouldEqual, 7.5)
				So(f.ElapsedUS, ShouldBeGreaterThanOrEqualTo, int64(0))
			})

			Convey("Then the uplink event is published", func() {
				So(i.uplinkEvents, ShouldResemble, []integration.UplinkEvent{
					{
						DevAddr:    ds.DevAddr,
						FCnt:       12,
						FPort:      10,
						Data:       []byte{0xde, 0xad, 0xbe, 0xef},
						GatewayID:  frame.GatewayID,
						RSSI:       -60,
						SNR:        7.5,
						ReceivedAt: frame.ReceivedAt,
					},
				})
			})
		})

		Convey("When handling a frame with a corrupted MIC", func() {
			frame.PHYPayload, err = encryptFrame(e, lorawan.UnconfirmedDataUp, ds, 12, []byte{0xde, 0xad, 0xbe, 0xef})
			So(err, ShouldBeNil)
			frame.PHYPayload[len(frame.PHYPayload)-1] ^= 0xff

			Convey("Then the frame is dropped without error", func() {
				So(s.HandleUplinkFrame(context.Background(), frame), ShouldBeNil)
				So(store.uplinkFrames, ShouldHaveLength, 0)
				So(i.uplinkEvents, ShouldHaveLength, 0)
			})
		})

		Convey("When handling a frame for an unknown DevAddr", func() {
			unknown := ds
			unknown.DevAddr = lorawan.DevAddr{0x04, 0x03, 0x02, 0x01}
			frame.PHYPayload, err = encryptFrame(e, lorawan.UnconfirmedDataUp, unknown, 1, []byte{0x01})
			So(err, ShouldBeNil)

			Convey("Then the frame is dropped without error", func() {
				So(s.HandleUplinkFrame(context.Background(), frame), ShouldBeNil)
				So(store.uplinkFrames, ShouldHaveLength, 0)
			})
		})

		Convey("When handling an unconfirmed data-down frame", func() {
			frame.PHYPayload, err = encryptFrame(e, lorawan.UnconfirmedDataDown, ds, 1, []byte{0x01})
			So(err, ShouldBeNil)

			Convey("Then the frame is ignored", func() {
				So(s.HandleUplinkFrame(context.Background(), frame), ShouldBeNil)
				So(store.uplinkFrames, ShouldHaveLength, 0)
			})
		})

		Convey("When handling an empty frame", func() {
			Convey("Then an invalid input error is returned", func() {
				err := s.HandleUplinkFrame(context.Background(), frame)
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When storing the frame fails", func() {
			store.createErr = errors.New("boom")
			frame.PHYPayload, err = encryptFrame(e, lorawan.UnconfirmedDataUp, ds, 1, []byte{0x01})
			So(err, ShouldBeNil)

			Convey("Then an error is returned and nothing is published", func() {
				So(s.HandleUplinkFrame(context.Background(), frame), ShouldNotBeNil)
				So(i.uplinkEvents, ShouldHaveLength, 0)
			})
		})
	})
}

func TestServerStartStop(t *testing.T) {
	assert := require.New(t)

	e, err := engine.NewByName(loramac.AlgorithmAsconMAC)
	assert.NoError(err)

	ds := storage.DeviceSession{
		DevAddr: lorawan.DevAddr{0x01, 0x02, 0x03, 0x04},
		NwkSKey: lorawan.AES128Key{1},
		AppSKey: lorawan.AES128Key{2},
	}
	store := &testStore{
		deviceSessions: map[lorawan.DevAddr]storage.DeviceSession{
			ds.DevAddr: ds,
		},
	}
	i := &testIntegration{}
	gw := &testGatewayBackend{
		uplinkFrameChan: make(chan semtech.UplinkFrame, 10),
	}

	s := NewServer(gw, e, store, store, i, time.Second)
	assert.NoError(s.Start())

	for fCnt := uint16(0); fCnt < 5; fCnt++ {
		b, err := encryptFrame(e, lorawan.UnconfirmedDataUp, ds, fCnt, []byte{byte(fCnt)})
		assert.NoError(err)
		gw.uplinkFrameChan <- semtech.UplinkFrame{PHYPayload: b}
	}

	// Stop closes the channel and waits for the pending frames
	assert.NoError(s.Stop())

	assert.Len(store.uplinkFrames, 5)
	assert.Len(i.uplinkEvents, 5)
}
