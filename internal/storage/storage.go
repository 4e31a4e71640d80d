package storage

import (
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	// register postgresql driver
	_ "github.com/lib/pq"

	"github.com/brocaar/loramac-ascon/internal/config"
	"github.com/brocaar/loramac-ascon/internal/storage/migrations"
)

var (
	redisClient redis.UniversalClient
	db          *sqlx.DB
	keyPrefix   string
)

// Setup configures the storage backend.
func Setup(c config.Config) error {
	log.Info("storage: setting up storage module")

	if c.Storage.KEK != "" {
		kek, err := hex.DecodeString(c.Storage.KEK)
		if err != nil {
			return errors.Wrap(err, "storage: decode kek error")
		}
		if err := SetKEK(kek); err != nil {
			return err
		}
	}

	log.Info("storage: setting up Redis client")
	if len(c.Redis.Servers) == 0 {
		return errors.New("at least one redis server must be configured")
	}

	var tlsConfig *tls.Config
	if c.Redis.TLSEnabled {
		tlsConfig = &tls.Config{}
	}

	if c.Redis.Cluster {
		redisClient = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:     c.Redis.Servers,
			PoolSize:  c.Redis.PoolSize,
			Password:  c.Redis.Password,
			TLSConfig: tlsConfig,
		})
	} else if c.Redis.MasterName != "" {
		redisClient = redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:       c.Redis.MasterName,
			SentinelAddrs:    c.Redis.Servers,
			SentinelPassword: c.Redis.Password,
			DB:               c.Redis.Database,
			PoolSize:         c.Redis.PoolSize,
			TLSConfig:        tlsConfig,
		})
	} else {
		redisClient = redis.NewClient(&redis.Options{
			Addr:      c.Redis.Servers[0],
			DB:        c.Redis.Database,
			Password:  c.Redis.Password,
			PoolSize:  c.Redis.PoolSize,
			TLSConfig: tlsConfig,
		})
	}
	keyPrefix = c.Redis.KeyPrefix

	log.Info("storage: connecting to PostgreSQL")
	d, err := sqlx.Open("postgres", c.PostgreSQL.DSN)
	if err != nil {
		return errors.Wrap(err, "storage: PostgreSQL connection error")
	}
	d.SetMaxOpenConns(c.PostgreSQL.MaxOpenConnections)
	d.SetMaxIdleConns(c.PostgreSQL.MaxIdleConnections)
	for {
		if err := d.Ping(); err != nil {
			log.WithError(err).Warning("storage: ping PostgreSQL database error, will retry in 2s")
			time.Sleep(2 * time.Second)
		} else {
			break
		}
	}

	db = d

	if c.PostgreSQL.Automigrate {
		if err := MigrateUp(db); err != nil {
			return err
		}
	}

	return nil
}

// MigrateUp applies the PostgreSQL schema migrations.
func MigrateUp(db *sqlx.DB) error {
	log.Info("storage: applying PostgreSQL schema migrations")

	m, err := newMigrate(db)
	if err != nil {
		return err
	}

	oldVersion, _, _ := m.Version()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "storage: migrate up error")
	}

	newVersion, _, _ := m.Version()

	if oldVersion != newVersion {
		log.WithFields(log.Fields{
			"from_version": oldVersion,
			"to_version":   newVersion,
		}).Info("storage: applied PostgreSQL schema migrations")
	}

	return nil
}

// MigrateDown reverts all PostgreSQL schema migrations.
func MigrateDown(db *sqlx.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return err
	}

	if err := m.Down(); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "storage: migrate down error")
	}
	return nil
}

func newMigrate(db *sqlx.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, errors.Wrap(err, "storage: new migrate source error")
	}

	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "storage: new migrate driver error")
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, errors.Wrap(err, "storage: new migrate instance error")
	}
	return m, nil
}

// DB returns the PostgreSQL database object.
func DB() *sqlx.DB {
	return db
}

// RedisClient returns the Redis client.
func RedisClient() redis.UniversalClient {
	return redisClient
}

// GetRedisKey returns the Redis key given a template and parameters.
func GetRedisKey(tmpl string, params ...interface{}) string {
	return keyPrefix + fmt.Sprintf(tmpl, params...)
}
