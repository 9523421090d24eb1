package sqlitekv

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/openrport/dashnotify/db/migration/kv"
	"github.com/openrport/dashnotify/db/sqlite"
)

// SQLiteKV keeps keys in the `kv` table of a sqlite database.
type SQLiteKV struct {
	db *sqlx.DB
}

func Open(dataSourceName string) (*SQLiteKV, error) {
	db, err := sqlite.New(dataSourceName, kv.AssetNames(), kv.Asset, sqlite.DataSourceOptions{WALEnabled: dataSourceName != ":memory:"})
	if err != nil {
		return nil, err
	}
	return New(db), nil
}

func New(db *sqlx.DB) *SQLiteKV {
	return &SQLiteKV{db: db}
}

func (s *SQLiteKV) Read(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := s.db.GetContext(ctx, &data, "SELECT `value` FROM `kv` WHERE `key` = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *SQLiteKV) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(
		ctx,
		"INSERT INTO `kv` (`key`, `value`, `updated_at`) VALUES (?, ?, CURRENT_TIMESTAMP) "+
			"ON CONFLICT(`key`) DO UPDATE SET `value` = excluded.`value`, `updated_at` = excluded.`updated_at`",
		key, data,
	)
	return err
}

func (s *SQLiteKV) ReadAll(ctx context.Context, reader func(key string, data []byte) error) error {
	var rows []struct {
		Key   string `db:"key"`
		Value []byte `db:"value"`
	}
	if err := s.db.SelectContext(ctx, &rows, "SELECT `key`, `value` FROM `kv` ORDER BY `key`"); err != nil {
		return err
	}
	for _, r := range rows {
		if err := reader(r.Key, r.Value); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteKV) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM `kv` WHERE `key` = ?", key)
	return err
}

func (s *SQLiteKV) Close() error {
	return s.db.Close()
}
