// Package amqp implements the AMQP / RabbitMQ application integration.
package amqp

import (
	"bytes"
	"context"
	"encoding/json"
	"text/template"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"github.com/brocaar/loramac-ascon/internal/integration"
	"github.com/brocaar/loramac-ascon/internal/logging"
)

const exchange = "amq.topic"

// Config holds the AMQP integration configuration.
type Config struct {
	URL                string `mapstructure:"url"`
	RoutingKeyTemplate string `mapstructure:"routing_key_template"`
	PoolSize           int    `mapstructure:"pool_size"`
}

// Integration implements an AMQP integration.
type Integration struct {
	chPool     *pool
	routingKey *template.Template
}

// New creates a new AMQP integration.
func New(c Config) (*Integration, error) {
	tmpl, err := parseRoutingKeyTemplate(c.RoutingKeyTemplate)
	if err != nil {
		return nil, err
	}

	size := c.PoolSize
	if size <= 0 {
		size = 10
	}

	log.Info("integration/amqp: connecting to AMQP server")
	p, err := newPool(size, c.URL)
	if err != nil {
		return nil, errors.Wrap(err, "integration/amqp: new amqp channel pool error")
	}

	return &Integration{
		chPool:     p,
		routingKey: tmpl,
	}, nil
}

func parseRoutingKeyTemplate(s string) (*template.Template, error) {
	tmpl, err := template.New("routing_key").Parse(s)
	if err != nil {
		return nil, errors.Wrap(err, "integration/amqp: parse routing-key template error")
	}
	return tmpl, nil
}

// PublishUplink publishes the given uplink event.
func (i *Integration) PublishUplink(ctx context.Context, pl integration.UplinkEvent) error {
	routingKey := bytes.NewBuffer(nil)
	if err := i.routingKey.Execute(routingKey, pl); err != nil {
		return errors.Wrap(err, "execute routing-key template error")
	}

	b, err := json.Marshal(pl)
	if err != nil {
		return errors.Wrap(err, "marshal json error")
	}

	ch, err := i.chPool.get()
	if err != nil {
		return errors.Wrap(err, "get amqp channel from pool error")
	}
	defer ch.close()

	logging.FromContext(ctx).WithField("routing_key", routingKey.String()).Info("integration/amqp: publishing uplink event")
	amqpPublishCounter("up").Inc()

	err = ch.ch.Publish(
		exchange,
		routingKey.String(),
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        b,
		},
	)
	if err != nil {
		ch.markUnusable()
		return errors.Wrap(err, "integration/amqp: publish uplink event error")
	}

	return nil
}

// Close closes the integration.
func (i *Integration) Close() error {
	log.Info("integration/amqp: closing integration")
	return i.chPool.close()
}
