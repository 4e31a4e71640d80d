package semtech

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gpc = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backend_semtech_gateway_packet_count",
		Help: "The number of udp packets received from gateways (per packet type).",
	}, []string{"type"})
)

func gatewayPacketCounter(t string) prometheus.Counter {
	return gpc.With(prometheus.Labels{"type": t})
}
