package config

import (
	"time"

	"github.com/brocaar/lorawan"
)

// Version defines the loramac-ascon version.
var Version string

// Config defines the configuration structure.
type Config struct {
	General struct {
		LogLevel    int  `mapstructure:"log_level"`
		LogToSyslog bool `mapstructure:"log_to_syslog"`
	} `mapstructure:"general"`

	Crypto struct {
		MICAlgorithm string `mapstructure:"mic_algorithm"`
	} `mapstructure:"crypto"`

	PostgreSQL struct {
		DSN                string `mapstructure:"dsn"`
		Automigrate        bool   `mapstructure:"automigrate"`
		MaxOpenConnections int    `mapstructure:"max_open_connections"`
		MaxIdleConnections int    `mapstructure:"max_idle_connections"`
	} `mapstructure:"postgresql"`

	Redis struct {
		URL        string   `mapstructure:"url"` // deprecated
		Servers    []string `mapstructure:"servers"`
		Cluster    bool     `mapstructure:"cluster"`
		MasterName string   `mapstructure:"master_name"`
		PoolSize   int      `mapstructure:"pool_size"`
		Password   string   `mapstructure:"password"`
		Database   int      `mapstructure:"database"`
		TLSEnabled bool     `mapstructure:"tls_enabled"`
		KeyPrefix  string   `mapstructure:"key_prefix"`
	} `mapstructure:"redis"`

	Storage struct {
		KEK string `mapstructure:"kek"`
	} `mapstructure:"storage"`

	NetworkServer struct {
		NetID       lorawan.NetID `mapstructure:"-"`
		NetIDString string        `mapstructure:"net_id"`

		Gateway struct {
			Bind            string        `mapstructure:"bind"`
			ProcessTimeout  time.Duration `mapstructure:"process_timeout"`
			UplinkQueueSize int           `mapstructure:"uplink_queue_size"`
		} `mapstructure:"gateway"`
	} `mapstructure:"network_server"`

	ApplicationServer struct {
		Integration struct {
			MQTT struct {
				Server              string `mapstructure:"server"`
				Username            string `mapstructure:"username"`
				Password            string `mapstructure:"password"`
				QOS                 uint8  `mapstructure:"qos"`
				CleanSession        bool   `mapstructure:"clean_session"`
				ClientID            string `mapstructure:"client_id"`
				UplinkTopicTemplate string `mapstructure:"uplink_topic_template"`
			} `mapstructure:"mqtt"`

			AMQP struct {
				URL                string `mapstructure:"url"`
				RoutingKeyTemplate string `mapstructure:"routing_key_template"`
				PoolSize           int    `mapstructure:"pool_size"`
			} `mapstructure:"amqp"`
		} `mapstructure:"integration"`
	} `mapstructure:"application_server"`

	Monitoring struct {
		Bind                string `mapstructure:"bind"`
		PrometheusEndpoint  bool   `mapstructure:"prometheus_endpoint"`
		HealthcheckEndpoint bool   `mapstructure:"healthcheck_endpoint"`
	} `mapstructure:"monitoring"`
}

// C holds the global configuration.
var C Config
