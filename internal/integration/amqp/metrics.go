package amqp

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pc = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "integration_amqp_publish_count",
		Help: "The number of events published by the AMQP / RabbitMQ integration (per event type).",
	}, []string{"event"})
)

func amqpPublishCounter(e string) prometheus.Counter {
	return pc.With(prometheus.Labels{"event": e})
}
