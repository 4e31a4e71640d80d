package cmd

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/mitchellh/mapstructure"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/brocaar/loramac-ascon/internal/config"
	"github.com/brocaar/loramac-ascon/internal/loramac"
)

var (
	cfgFile string
	version string
)

var rootCmd = &cobra.Command{
	Use:   "loramac-ascon",
	Short: "LoRaMAC Ascon",
	Long: `LoRaMAC Ascon validates, decrypts and encrypts LoRaWAN frames authenticated with Ascon-Mac.
	Without sub-command it runs the network-server, receiving uplinks from Semtech UDP packet-forwarders.`,
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to configuration file (optional)")
	rootCmd.PersistentFlags().Int("log-level", 4, "debug=5, info=4, error=2, fatal=1, panic=0")
	rootCmd.PersistentFlags().String("mic-algorithm", loramac.AlgorithmAsconMAC, "mic algorithm (ascon-mac or aes-cmac)")

	viper.BindPFlag("general.log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("crypto.mic_algorithm", rootCmd.PersistentFlags().Lookup("mic-algorithm"))

	// default values
	viper.SetDefault("redis.servers", []string{"localhost:6379"})
	viper.SetDefault("redis.key_prefix", "")

	viper.SetDefault("postgresql.dsn", "postgres://localhost/loramac_ascon?sslmode=disable")
	viper.SetDefault("postgresql.automigrate", true)
	viper.SetDefault("postgresql.max_idle_connections", 2)

	viper.SetDefault("network_server.net_id", "000000")
	viper.SetDefault("network_server.gateway.bind", "0.0.0.0:1700")
	viper.SetDefault("network_server.gateway.process_timeout", 5*time.Second)
	viper.SetDefault("network_server.gateway.uplink_queue_size", 100)

	viper.SetDefault("application_server.integration.mqtt.server", "")
	viper.SetDefault("application_server.integration.mqtt.clean_session", true)
	viper.SetDefault("application_server.integration.mqtt.uplink_topic_template", "application/{{ .DevAddr }}/rx")

	viper.SetDefault("application_server.integration.amqp.url", "")
	viper.SetDefault("application_server.integration.amqp.routing_key_template", "application.{{ .DevAddr }}.rx")
	viper.SetDefault("application_server.integration.amqp.pool_size", 10)

	viper.SetDefault("monitoring.bind", "")
	viper.SetDefault("monitoring.prometheus_endpoint", true)
	viper.SetDefault("monitoring.healthcheck_endpoint", true)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(joinRequestCmd)
	rootCmd.AddCommand(joinAcceptCmd)
	rootCmd.AddCommand(decryptCmd)
	rootCmd.AddCommand(encryptCmd)
	rootCmd.AddCommand(macCmd)
	rootCmd.AddCommand(deviceCmd)
	rootCmd.AddCommand(uplinkFramesCmd)
}

// Execute executes the root command.
func Execute(v string) {
	version = v

	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("loramac-ascon: command failed")
		os.Exit(exitCode(err))
	}
}

func initConfig() {
	config.Version = version

	if cfgFile != "" {
		b, err := ioutil.ReadFile(cfgFile)
		if err != nil {
			log.WithError(err).WithField("config", cfgFile).Fatal("error loading config file")
		}
		viper.SetConfigType("toml")
		if err := viper.ReadConfig(bytes.NewBuffer(b)); err != nil {
			log.WithError(err).WithField("config", cfgFile).Fatal("error loading config file")
		}
	} else {
		viper.SetConfigName("loramac-ascon")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/loramac-ascon")
		viper.AddConfigPath("/etc/loramac-ascon")
		if err := viper.ReadInConfig(); err != nil {
			switch err.(type) {
			case viper.ConfigFileNotFoundError:
				log.Debug("no configuration file found, using defaults")
			default:
				log.WithError(err).Fatal("read configuration file error")
			}
		}
	}

	for _, pair := range os.Environ() {
		d := strings.SplitN(pair, "=", 2)
		if strings.Contains(d[0], ".") {
			log.Warning("Using dots in env variable is illegal and deprecated. Please use double underscore `__` for: ", d[0])
			underscoreName := strings.ReplaceAll(d[0], ".", "__")
			// Set only when the underscore version doesn't already exist.
			if _, exists := os.LookupEnv(underscoreName); !exists {
				os.Setenv(underscoreName, d[1])
			}
		}
	}

	viperBindEnvs(config.C)

	viperHooks := mapstructure.ComposeDecodeHookFunc(
		viperDecodeJSONSlice,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)

	if err := viper.Unmarshal(&config.C, viper.DecodeHook(viperHooks)); err != nil {
		log.WithError(err).Fatal("unmarshal config error")
	}

	// decode netid
	if err := config.C.NetworkServer.NetID.UnmarshalText([]byte(config.C.NetworkServer.NetIDString)); err != nil {
		log.WithError(err).Fatal("decode net_id error")
	}

	if config.C.Redis.URL != "" {
		opt, err := redis.ParseURL(config.C.Redis.URL)
		if err != nil {
			log.WithError(err).Fatal("redis url error")
		}

		config.C.Redis.Servers = []string{opt.Addr}
		config.C.Redis.Database = opt.DB
		config.C.Redis.Password = opt.Password
	}
}

func viperBindEnvs(iface interface{}, parts ...string) {
	ifv := reflect.ValueOf(iface)
	ift := reflect.TypeOf(iface)
	for i := 0; i < ift.NumField(); i++ {
		v := ifv.Field(i)
		t := ift.Field(i)
		tv, ok := t.Tag.Lookup("mapstructure")
		if !ok {
			tv = strings.ToLower(t.Name)
		}
		if tv == "-" {
			continue
		}

		switch v.Kind() {
		case reflect.Struct:
			viperBindEnvs(v.Interface(), append(parts, tv)...)
		default:
			// Bash doesn't allow env variable names with a dot so
			// bind the double underscore version.
			keyDot := strings.Join(append(parts, tv), ".")
			keyUnderscore := strings.Join(append(parts, tv), "__")
			viper.BindEnv(keyDot, strings.ToUpper(keyUnderscore))
		}
	}
}

func viperDecodeJSONSlice(rf reflect.Kind, rt reflect.Kind, data interface{}) (interface{}, error) {
	// input must be a string and destination must be a slice
	if rf != reflect.String || rt != reflect.Slice {
		return data, nil
	}

	raw := data.(string)

	// this decoder expects a JSON list
	if !strings.HasPrefix(raw, "[") || !strings.HasSuffix(raw, "]") {
		return data, nil
	}

	var out []map[string]interface{}
	err := json.Unmarshal([]byte(raw), &out)

	return out, err
}
