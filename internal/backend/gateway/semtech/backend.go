package semtech

import (
	"encoding/base64"
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/brocaar/lorawan"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const readBufferSize = 65507

// UplinkFrame contains a frame received by a gateway.
type UplinkFrame struct {
	GatewayID  lorawan.EUI64
	PHYPayload []byte
	Frequency  float64
	DataRate   string
	RSSI       int
	SNR        float64
	CRCStatus  int8
	ReceivedAt time.Time
}

// Backend implements a Semtech UDP packet-forwarder backend.
type Backend struct {
	sync.RWMutex

	wg     sync.WaitGroup
	conn   *net.UDPConn
	closed bool
	done   chan struct{}

	uplinkFrameChan chan UplinkFrame
	gateways        map[lorawan.EUI64]*net.UDPAddr
}

// NewBackend creates a new Backend listening on the given bind address.
func NewBackend(bind string, queueSize int) (*Backend, error) {
	addr, err := net.ResolveUDPAddr("udp", bind)
	if err != nil {
		return nil, errors.Wrap(err, "gateway/semtech: resolve udp addr error")
	}

	log.WithField("bind", bind).Info("gateway/semtech: starting gateway udp listener")
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "gateway/semtech: listen udp error")
	}

	b := Backend{
		conn:            conn,
		done:            make(chan struct{}),
		uplinkFrameChan: make(chan UplinkFrame, queueSize),
		gateways:        make(map[lorawan.EUI64]*net.UDPAddr),
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.readPackets()
	}()

	return &b, nil
}

// Addr returns the local address of the listener.
func (b *Backend) Addr() net.Addr {
	return b.conn.LocalAddr()
}

// UplinkFrameChan returns the uplink-frame channel.
func (b *Backend) UplinkFrameChan() chan UplinkFrame {
	return b.uplinkFrameChan
}

// Close closes the backend and the uplink-frame channel.
func (b *Backend) Close() error {
	log.Info("gateway/semtech: closing gateway backend")

	b.Lock()
	if b.closed {
		b.Unlock()
		return nil
	}
	b.closed = true
	close(b.done)
	b.Unlock()

	if err := b.conn.Close(); err != nil {
		return errors.Wrap(err, "gateway/semtech: close udp listener error")
	}

	log.Info("gateway/semtech: handling last packets")
	b.wg.Wait()
	close(b.uplinkFrameChan)
	return nil
}

func (b *Backend) isClosed() bool {
	b.RLock()
	defer b.RUnlock()
	return b.closed
}

func (b *Backend) readPackets() {
	buf := make([]byte, readBufferSize)
	for {
		n, addr, err := b.conn.ReadFromUDP(buf)
		if err != nil {
			if b.isClosed() {
				return
			}
			log.WithError(err).Error("gateway/semtech: read from udp error")
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		if err := b.handlePacket(addr, data); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"addr":        addr,
				"data_base64": base64.StdEncoding.EncodeToString(data),
			}).Error("gateway/semtech: could not handle packet")
		}
	}
}

func (b *Backend) handlePacket(addr *net.UDPAddr, data []byte) error {
	var p Packet
	if err := p.UnmarshalBinary(data); err != nil {
		gatewayPacketCounter("Unknown").Inc()
		return errors.Wrap(err, "unmarshal packet error")
	}
	gatewayPacketCounter(p.Type.String()).Inc()

	log.WithFields(log.Fields{
		"addr":             addr,
		"type":             p.Type,
		"protocol_version": p.ProtocolVersion,
		"gateway_id":       p.GatewayID,
	}).Debug("gateway/semtech: received udp packet from gateway")

	switch p.Type {
	case PullData:
		b.setGatewayAddr(p.GatewayID, addr)
		return b.sendAck(addr, p)
	case PushData:
		if err := b.sendAck(addr, p); err != nil {
			return err
		}
		return b.handlePushData(p)
	default:
		log.WithFields(log.Fields{
			"addr": addr,
			"type": p.Type,
		}).Warning("gateway/semtech: ignoring packet type")
		return nil
	}
}

func (b *Backend) sendAck(addr *net.UDPAddr, p Packet) error {
	ack, err := p.Ack()
	if err != nil {
		return err
	}

	bb, err := ack.MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "marshal ack error")
	}

	if _, err := b.conn.WriteToUDP(bb, addr); err != nil {
		return errors.Wrap(err, "write ack error")
	}
	return nil
}

func (b *Backend) handlePushData(p Packet) error {
	if len(p.Payload) == 0 {
		return nil
	}

	var pl PushDataPayload
	if err := json.Unmarshal(p.Payload, &pl); err != nil {
		return errors.Wrap(err, "unmarshal push-data payload error")
	}

	for _, rxpk := range pl.RXPK {
		if rxpk.Stat == -1 {
			log.WithField("gateway_id", p.GatewayID).Debug("gateway/semtech: ignoring rxpk with crc error")
			continue
		}

		frame, err := newUplinkFrame(p.GatewayID, rxpk)
		if err != nil {
			log.WithError(err).WithField("gateway_id", p.GatewayID).Error("gateway/semtech: decode rxpk error")
			continue
		}

		select {
		case b.uplinkFrameChan <- frame:
		case <-b.done:
			return nil
		}
	}

	return nil
}

func newUplinkFrame(gatewayID lorawan.EUI64, rxpk RXPK) (UplinkFrame, error) {
	phy, err := base64.StdEncoding.DecodeString(rxpk.Data)
	if err != nil {
		// the packet-forwarder may omit the padding
		phy, err = base64.RawStdEncoding.DecodeString(rxpk.Data)
		if err != nil {
			return UplinkFrame{}, errors.Wrap(err, "decode base64 data error")
		}
	}

	return UplinkFrame{
		GatewayID:  gatewayID,
		PHYPayload: phy,
		Frequency:  rxpk.Freq,
		DataRate:   rxpk.DatR,
		RSSI:       rxpk.RSSI,
		SNR:        rxpk.LSNR,
		CRCStatus:  rxpk.Stat,
		ReceivedAt: time.Now(),
	}, nil
}

func (b *Backend) setGatewayAddr(gatewayID lorawan.EUI64, addr *net.UDPAddr) {
	b.Lock()
	defer b.Unlock()
	b.gateways[gatewayID] = addr
}

// GatewayAddr returns the address from which the gateway sent its last
// PullData.
func (b *Backend) GatewayAddr(gatewayID lorawan.EUI64) (*net.UDPAddr, bool) {
	b.RLock()
	defer b.RUnlock()
	addr, ok := b.gateways[gatewayID]
	return addr, ok
}
