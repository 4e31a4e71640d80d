// Package monitoring implements the Prometheus metrics and healthcheck
// endpoints.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/brocaar/loramac-ascon/internal/config"
)

// Setup sets up the monitoring server.
func Setup(c config.Config) error {
	if c.Monitoring.Bind == "" {
		return nil
	}

	log.WithFields(log.Fields{
		"bind": c.Monitoring.Bind,
	}).Info("monitoring: setting up monitoring endpoint")

	server := http.Server{
		Handler: newServeMux(c, storagePinger{}),
		Addr:    c.Monitoring.Bind,
	}

	go func() {
		err := server.ListenAndServe()
		log.WithError(err).Error("monitoring: monitoring server error")
	}()

	return nil
}

func newServeMux(c config.Config, p pinger) *http.ServeMux {
	mux := http.NewServeMux()

	if c.Monitoring.PrometheusEndpoint {
		log.WithFields(log.Fields{
			"endpoint": "/metrics",
		}).Info("monitoring: registering Prometheus endpoint")
		mux.Handle("/metrics", promhttp.Handler())
	}

	if c.Monitoring.HealthcheckEndpoint {
		log.WithFields(log.Fields{
			"endpoint": "/health",
		}).Info("monitoring: registering healthcheck endpoint")
		mux.Handle("/health", healthCheckHandler{pinger: p})
	}

	return mux
}
