// Package sqlite keeps a log of per-channel delivery outcomes.
package sqlite

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/openrport/dashnotify/db/migration/deliveries"
	"github.com/openrport/dashnotify/db/sqlite"
	"github.com/openrport/dashnotify/notifications"
	"github.com/openrport/dashnotify/share/logger"
)

const timestampFormat = "2006-01-02 15:04:05"

type Repository struct {
	db     *sqlx.DB
	logger *logger.Logger
}

type sqlDelivery struct {
	NotificationID string    `db:"notification_id"`
	Channel        string    `db:"channel"`
	State          string    `db:"state"`
	Out            string    `db:"out"`
	Timestamp      time.Time `db:"timestamp"`
}

// Open creates or migrates the delivery log database at dataSourceName.
func Open(dataSourceName string, l *logger.Logger) (*Repository, error) {
	db, err := sqlite.New(
		dataSourceName,
		deliveries.AssetNames(),
		deliveries.Asset,
		sqlite.DataSourceOptions{WALEnabled: dataSourceName != ":memory:"},
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open delivery log")
	}
	return NewRepository(db, l), nil
}

func NewRepository(db *sqlx.DB, l *logger.Logger) *Repository {
	return &Repository{db: db, logger: l}
}

func (r *Repository) Record(ctx context.Context, d notifications.Delivery) error {
	ts := d.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := r.db.ExecContext(
		ctx,
		"INSERT INTO `deliveries_log` (`notification_id`, `channel`, `state`, `out`, `timestamp`) VALUES (?, ?, ?, ?, ?)",
		d.NotificationID,
		d.Channel,
		string(d.State),
		d.Out,
		ts.UTC().Format(timestampFormat),
	)
	return err
}

// List returns the outcomes recorded for notificationID, oldest first.
func (r *Repository) List(ctx context.Context, notificationID string) ([]notifications.Delivery, error) {
	var rows []sqlDelivery
	err := r.db.SelectContext(
		ctx,
		&rows,
		"SELECT `notification_id`, `channel`, `state`, `out`, `timestamp` FROM `deliveries_log` WHERE `notification_id` = ? ORDER BY oid ASC",
		notificationID,
	)
	if err != nil {
		return nil, err
	}
	return convert(rows), nil
}

// Recent returns the latest outcomes across all notifications, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]notifications.Delivery, error) {
	var rows []sqlDelivery
	err := r.db.SelectContext(
		ctx,
		&rows,
		"SELECT `notification_id`, `channel`, `state`, `out`, `timestamp` FROM `deliveries_log` ORDER BY oid DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	return convert(rows), nil
}

func (r *Repository) deleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(
		ctx,
		"DELETE FROM `deliveries_log` WHERE `timestamp` <= ?",
		before.UTC().Format(timestampFormat),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func convert(rows []sqlDelivery) []notifications.Delivery {
	out := make([]notifications.Delivery, 0, len(rows))
	for _, row := range rows {
		out = append(out, notifications.Delivery{
			NotificationID: row.NotificationID,
			Channel:        row.Channel,
			State:          notifications.DeliveryState(row.State),
			Out:            row.Out,
			Timestamp:      row.Timestamp,
		})
	}
	return out
}
