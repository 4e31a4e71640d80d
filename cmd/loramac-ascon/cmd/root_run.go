package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/brocaar/loramac-ascon/internal/backend/gateway/semtech"
	"github.com/brocaar/loramac-ascon/internal/config"
	"github.com/brocaar/loramac-ascon/internal/engine"
	"github.com/brocaar/loramac-ascon/internal/integration"
	"github.com/brocaar/loramac-ascon/internal/integration/amqp"
	"github.com/brocaar/loramac-ascon/internal/integration/mqtt"
	"github.com/brocaar/loramac-ascon/internal/monitoring"
	"github.com/brocaar/loramac-ascon/internal/storage"
	"github.com/brocaar/loramac-ascon/internal/uplink"
)

var (
	eng            *engine.Engine
	gatewayBackend *semtech.Backend
	appIntegration integration.Integration
	uplinkServer   *uplink.Server
)

func run(cmd *cobra.Command, args []string) error {
	tasks := []func() error{
		setLogLevel,
		setSyslog,
		printStartMessage,
		setupMonitoring,
		setupStorage,
		setupEngine,
		setupIntegration,
		setupGatewayBackend,
		startUplink,
	}

	for _, t := range tasks {
		if err := t(); err != nil {
			log.Fatal(err)
		}
	}

	sigChan := make(chan os.Signal, 1)
	exitChan := make(chan struct{})
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	log.WithField("signal", <-sigChan).Info("signal received")
	go func() {
		log.Warning("stopping loramac-ascon")
		if err := uplinkServer.Stop(); err != nil {
			log.Fatal(err)
		}
		if err := appIntegration.Close(); err != nil {
			log.Fatal(err)
		}
		exitChan <- struct{}{}
	}()
	select {
	case <-exitChan:
	case s := <-sigChan:
		log.WithField("signal", s).Info("signal received, stopping immediately")
	}

	return nil
}

func setLogLevel() error {
	log.SetLevel(log.Level(uint8(config.C.General.LogLevel)))
	return nil
}

func printStartMessage() error {
	log.WithFields(log.Fields{
		"version":       version,
		"net_id":        config.C.NetworkServer.NetID.String(),
		"mic_algorithm": config.C.Crypto.MICAlgorithm,
	}).Info("starting LoRaMAC Ascon")
	return nil
}

func setupMonitoring() error {
	if err := monitoring.Setup(config.C); err != nil {
		return errors.Wrap(err, "setup monitoring error")
	}
	return nil
}

func setupStorage() error {
	if err := storage.Setup(config.C); err != nil {
		return errors.Wrap(err, "setup storage error")
	}
	return nil
}

func setupEngine() error {
	var err error
	eng, err = engine.NewByName(config.C.Crypto.MICAlgorithm)
	if err != nil {
		return errors.Wrap(err, "setup engine error")
	}
	return nil
}

func setupIntegration() error {
	var integrations []integration.Integration

	mqttConf := config.C.ApplicationServer.Integration.MQTT
	if mqttConf.Server != "" {
		i, err := mqtt.New(mqtt.Config{
			Server:              mqttConf.Server,
			Username:            mqttConf.Username,
			Password:            mqttConf.Password,
			QOS:                 mqttConf.QOS,
			CleanSession:        mqttConf.CleanSession,
			ClientID:            mqttConf.ClientID,
			UplinkTopicTemplate: mqttConf.UplinkTopicTemplate,
		})
		if err != nil {
			return errors.Wrap(err, "setup mqtt integration error")
		}
		integrations = append(integrations, i)
	}

	amqpConf := config.C.ApplicationServer.Integration.AMQP
	if amqpConf.URL != "" {
		i, err := amqp.New(amqp.Config{
			URL:                amqpConf.URL,
			RoutingKeyTemplate: amqpConf.RoutingKeyTemplate,
			PoolSize:           amqpConf.PoolSize,
		})
		if err != nil {
			return errors.Wrap(err, "setup amqp integration error")
		}
		integrations = append(integrations, i)
	}

	if len(integrations) == 0 {
		log.Info("integration: no integration configured, uplinks will not be published")
		appIntegration = integration.NopIntegration{}
		return nil
	}

	appIntegration = integration.NewMultiIntegration(integrations...)
	return nil
}

func setupGatewayBackend() error {
	var err error
	gatewayBackend, err = semtech.NewBackend(config.C.NetworkServer.Gateway.Bind, config.C.NetworkServer.Gateway.UplinkQueueSize)
	if err != nil {
		return errors.Wrap(err, "setup gateway backend error")
	}
	return nil
}

func startUplink() error {
	uplinkServer = uplink.NewServer(
		gatewayBackend,
		eng,
		storage.Store{},
		storage.Store{},
		appIntegration,
		config.C.NetworkServer.Gateway.ProcessTimeout,
	)
	if err := uplinkServer.Start(); err != nil {
		return errors.Wrap(err, "start uplink server error")
	}
	return nil
}
