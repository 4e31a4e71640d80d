package uplink

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	uc = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uplink_counter",
		Help: "The number of handled uplink frames (per message type).",
	}, []string{"mType"})
	ufce = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uplink_frame_error_count",
		Help: "The number of uplink frames that failed to be processed.",
	})
	umec = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uplink_mic_error_count",
		Help: "The number of uplink frames dropped because of an invalid MIC.",
	})
	uudc = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uplink_unknown_dev_addr_count",
		Help: "The number of uplink frames dropped because of an unknown DevAddr.",
	})
	udc = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uplink_decrypted_count",
		Help: "The number of decrypted uplink frames.",
	})
	upd = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "uplink_processing_duration_seconds",
		Help:    "The duration of the MIC validation and decryption of an uplink frame.",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
	})
)

func uplinkFrameCounter(mType string) prometheus.Counter {
	return uc.With(prometheus.Labels{"mType": mType})
}

func uplinkFrameErrorCounter() prometheus.Counter {
	return ufce
}

func micErrorCounter() prometheus.Counter {
	return umec
}

func unknownDevAddrCounter() prometheus.Counter {
	return uudc
}

func decryptedFrameCounter() prometheus.Counter {
	return udc
}

func processingDuration() prometheus.Observer {
	return upd
}
