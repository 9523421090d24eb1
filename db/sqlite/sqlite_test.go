package sqlite

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrport/dashnotify/db/migration/kv"
)

func TestSqliteWALEnabled(t *testing.T) {
	dataSourceName := t.TempDir() + "/test-db.sqlite3"
	db, err := New(dataSourceName, kv.AssetNames(), kv.Asset, DataSourceOptions{WALEnabled: true})
	require.NoError(t, err)
	defer db.Close()
	_, err = os.Stat(dataSourceName + "-shm")
	require.NoError(t, err)
	_, err = os.Stat(dataSourceName + "-wal")
	require.NoError(t, err)
}

func TestSqliteWALDisabled(t *testing.T) {
	dataSourceName := t.TempDir() + "/test-db.sqlite3"
	db, err := New(dataSourceName, kv.AssetNames(), kv.Asset, DataSourceOptions{WALEnabled: false})
	require.NoError(t, err)
	defer db.Close()
	_, err = os.Stat(dataSourceName + "-shm")
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(dataSourceName + "-wal")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSqliteMigratesSchema(t *testing.T) {
	db, err := New(":memory:", kv.AssetNames(), kv.Asset, DataSourceOptions{})
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM `kv`"))
	assert.Equal(t, 0, count)
}
