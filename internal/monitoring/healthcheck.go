package monitoring

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/brocaar/loramac-ascon/internal/storage"
)

type pinger interface {
	PingRedis(ctx context.Context) error
	PingPostgreSQL(ctx context.Context) error
}

type storagePinger struct{}

func (storagePinger) PingRedis(ctx context.Context) error {
	return storage.RedisClient().Ping(ctx).Err()
}

func (storagePinger) PingPostgreSQL(ctx context.Context) error {
	return storage.DB().PingContext(ctx)
}

type healthCheckHandler struct {
	pinger pinger
}

func (h healthCheckHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.pinger.PingRedis(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(errors.Wrap(err, "redis ping error").Error()))
		return
	}

	if err := h.pinger.PingPostgreSQL(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(errors.Wrap(err, "postgresql ping error").Error()))
		return
	}

	w.WriteHeader(http.StatusOK)
}
