// Package uplink handles the uplink frames received by the gateway backend.
package uplink

import (
	"context"
	"sync"
	"time"

	"github.com/brocaar/lorawan"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/brocaar/loramac-ascon/internal/backend/gateway/semtech"
	"github.com/brocaar/loramac-ascon/internal/engine"
	"github.com/brocaar/loramac-ascon/internal/integration"
	"github.com/brocaar/loramac-ascon/internal/logging"
	"github.com/brocaar/loramac-ascon/internal/storage"
)

// GatewayBackend defines the interface of the gateway backend.
type GatewayBackend interface {
	UplinkFrameChan() chan semtech.UplinkFrame // channel containing the received frames
	Close() error                              // close the gateway backend
}

// DeviceSessionStore defines the interface to retrieve device-sessions.
type DeviceSessionStore interface {
	GetDeviceSession(ctx context.Context, devAddr lorawan.DevAddr) (storage.DeviceSession, error)
}

// UplinkFrameStore defines the interface to store decrypted uplink frames.
type UplinkFrameStore interface {
	CreateUplinkFrame(ctx context.Context, f *storage.UplinkFrame) error
}

// Server represents a server handling the uplink frames.
type Server struct {
	wg sync.WaitGroup

	gateway        GatewayBackend
	engine         *engine.Engine
	deviceSessions DeviceSessionStore
	uplinkFrames   UplinkFrameStore
	integration    integration.Integration
	processTimeout time.Duration
}

// NewServer creates a new server.
func NewServer(gw GatewayBackend, e *engine.Engine, ds DeviceSessionStore, uf UplinkFrameStore, i integration.Integration, processTimeout time.Duration) *Server {
	return &Server{
		gateway:        gw,
		engine:         e,
		deviceSessions: ds,
		uplinkFrames:   uf,
		integration:    i,
		processTimeout: processTimeout,
	}
}

// Start starts the server.
func (s *Server) Start() error {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.handleUplinkFrames()
	}()
	return nil
}

// Stop closes the gateway backend and waits for the server to complete the
// pending frames.
func (s *Server) Stop() error {
	if err := s.gateway.Close(); err != nil {
		return errors.Wrap(err, "close gateway backend error")
	}
	log.Info("uplink: waiting for pending actions to complete")
	s.wg.Wait()
	return nil
}

// handleUplinkFrames consumes the frames received by the gateway backend and
// handles each frame in a separate go-routine. Errors are logged.
func (s *Server) handleUplinkFrames() {
	for frame := range s.gateway.UplinkFrameChan() {
		s.wg.Add(1)
		go func(frame semtech.UplinkFrame) {
			defer s.wg.Done()

			ctx := context.Background()
			if s.processTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, s.processTimeout)
				defer cancel()
			}

			if err := s.HandleUplinkFrame(ctx, frame); err != nil {
				uplinkFrameErrorCounter().Inc()
				logging.FromContext(ctx).WithError(err).WithField("gateway_id", frame.GatewayID).Error("uplink: processing uplink frame error")
			}
		}(frame)
	}
}

// HandleUplinkFrame handles a single uplink frame.
func (s *Server) HandleUplinkFrame(ctx context.Context, frame semtech.UplinkFrame) error {
	ctx, err := logging.NewContext(ctx)
	if err != nil {
		return err
	}

	dctx := dataContext{
		ctx:         ctx,
		server:      s,
		uplinkFrame: frame,
		start:       time.Now(),
	}

	return dctx.handle()
}
