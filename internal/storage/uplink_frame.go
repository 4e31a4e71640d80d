package storage

import (
	"context"
	"time"

	"github.com/brocaar/lorawan"
	"github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/brocaar/loramac-ascon/internal/logging"
)

// UplinkFrame defines a decrypted uplink frame.
type UplinkFrame struct {
	ID         uuid.UUID       `db:"id"`
	ReceivedAt time.Time       `db:"received_at"`
	DevAddr    lorawan.DevAddr `db:"dev_addr"`
	FCnt       int             `db:"f_cnt"`
	FPort      int             `db:"f_port"`
	MType      int             `db:"m_type"`
	Payload    []byte          `db:"payload"`
	DataSize   int             `db:"data_size"`
	GatewayID  *lorawan.EUI64  `db:"gateway_id"`
	RSSI       int             `db:"rssi"`
	SNR        float64         `db:"snr"`
	ElapsedUS  int64           `db:"elapsed_us"`
}

// CreateUplinkFrame stores the given uplink frame.
func CreateUplinkFrame(ctx context.Context, db sqlx.Execer, f *UplinkFrame) error {
	if f.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return errors.Wrap(err, "new uuid v4 error")
		}
		f.ID = id
	}

	if f.ReceivedAt.IsZero() {
		f.ReceivedAt = time.Now()
	}

	_, err := db.Exec(`
		insert into uplink_frame (
			id,
			received_at,
			dev_addr,
			f_cnt,
			f_port,
			m_type,
			payload,
			data_size,
			gateway_id,
			rssi,
			snr,
			elapsed_us
		) values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		f.ID,
		f.ReceivedAt,
		f.DevAddr[:],
		f.FCnt,
		f.FPort,
		f.MType,
		f.Payload,
		f.DataSize,
		f.GatewayID,
		f.RSSI,
		f.SNR,
		f.ElapsedUS,
	)
	if err != nil {
		return handlePSQLError(err, "insert error")
	}

	log.WithFields(log.Fields{
		"id":       f.ID,
		"dev_addr": f.DevAddr,
		"f_cnt":    f.FCnt,
		"ctx_id":   ctx.Value(logging.ContextIDKey),
	}).Info("storage: uplink frame created")

	return nil
}

// GetUplinkFrames returns the most recent uplink frames of the given
// DevAddr, newest first.
func GetUplinkFrames(ctx context.Context, db sqlx.Queryer, devAddr lorawan.DevAddr, limit int) ([]UplinkFrame, error) {
	var items []UplinkFrame

	err := sqlx.Select(db, &items, `
		select
			*
		from
			uplink_frame
		where
			dev_addr = $1
		order by
			received_at desc
		limit $2`,
		devAddr[:],
		limit,
	)
	if err != nil {
		return nil, handlePSQLError(err, "select error")
	}

	return items, nil
}

// GetUplinkFrameCount returns the number of stored uplink frames of the
// given DevAddr.
func GetUplinkFrameCount(ctx context.Context, db sqlx.Queryer, devAddr lorawan.DevAddr) (int, error) {
	var count int
	err := sqlx.Get(db, &count, `
		select
			count(*)
		from
			uplink_frame
		where
			dev_addr = $1`,
		devAddr[:],
	)
	if err != nil {
		return 0, handlePSQLError(err, "select error")
	}
	return count, nil
}
