// Package mqtt implements the MQTT application integration.
package mqtt

import (
	"bytes"
	"context"
	"encoding/json"
	"text/template"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/brocaar/loramac-ascon/internal/integration"
	"github.com/brocaar/loramac-ascon/internal/logging"
)

// Config holds the MQTT integration configuration.
type Config struct {
	Server              string
	Username            string
	Password            string
	QOS                 uint8  `mapstructure:"qos"`
	CleanSession        bool   `mapstructure:"clean_session"`
	ClientID            string `mapstructure:"client_id"`
	UplinkTopicTemplate string `mapstructure:"uplink_topic_template"`
}

// Integration implements a MQTT integration.
type Integration struct {
	conn           paho.Client
	qos            uint8
	uplinkTemplate *template.Template
}

// New creates a new MQTT integration and connects to the broker.
func New(c Config) (*Integration, error) {
	opts := paho.NewClientOptions()
	opts.AddBroker(c.Server)
	opts.SetUsername(c.Username)
	opts.SetPassword(c.Password)
	opts.SetCleanSession(c.CleanSession)
	opts.SetClientID(c.ClientID)
	opts.SetOnConnectHandler(func(paho.Client) {
		log.Info("integration/mqtt: connected to mqtt broker")
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.WithError(err).Error("integration/mqtt: mqtt connection error")
	})

	i, err := newIntegration(paho.NewClient(opts), c)
	if err != nil {
		return nil, err
	}

	log.WithField("server", c.Server).Info("integration/mqtt: connecting to mqtt broker")
	for {
		if token := i.conn.Connect(); token.Wait() && token.Error() != nil {
			log.Errorf("integration/mqtt: connecting to mqtt broker failed, will retry in 2s: %s", token.Error())
			time.Sleep(2 * time.Second)
		} else {
			break
		}
	}

	return i, nil
}

func newIntegration(conn paho.Client, c Config) (*Integration, error) {
	tmpl, err := template.New("uplink").Parse(c.UplinkTopicTemplate)
	if err != nil {
		return nil, errors.Wrap(err, "integration/mqtt: parse uplink template error")
	}

	return &Integration{
		conn:           conn,
		qos:            c.QOS,
		uplinkTemplate: tmpl,
	}, nil
}

// PublishUplink publishes the given uplink event.
func (i *Integration) PublishUplink(ctx context.Context, pl integration.UplinkEvent) error {
	topic := bytes.NewBuffer(nil)
	if err := i.uplinkTemplate.Execute(topic, pl); err != nil {
		return errors.Wrap(err, "execute uplink template error")
	}

	b, err := json.Marshal(pl)
	if err != nil {
		return errors.Wrap(err, "marshal json error")
	}

	log.WithFields(log.Fields{
		"topic":  topic.String(),
		"qos":    i.qos,
		"ctx_id": ctx.Value(logging.ContextIDKey),
	}).Info("integration/mqtt: publishing uplink event")

	if token := i.conn.Publish(topic.String(), i.qos, false, b); token.Wait() && token.Error() != nil {
		return errors.Wrap(token.Error(), "integration/mqtt: publish uplink event error")
	}
	return nil
}

// Close closes the integration.
func (i *Integration) Close() error {
	log.Info("integration/mqtt: closing integration")
	i.conn.Disconnect(250)
	return nil
}
