package persistence

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/openrport/dashnotify/share/simplestore"
	"github.com/openrport/dashnotify/share/simplestore/kvs/boltkv"
	"github.com/openrport/dashnotify/share/simplestore/kvs/fskv"
	"github.com/openrport/dashnotify/share/simplestore/kvs/inmemory"
	"github.com/openrport/dashnotify/share/simplestore/kvs/sqlitekv"
)

const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
	DriverMemory = "memory"
)

var Drivers = []string{DriverFile, DriverSQLite, DriverBolt, DriverMemory}

const (
	sqliteFileName = "notifications.db"
	boltFileName   = "notifications.bolt"
	fileDirName    = "notifications"
)

// OpenKV opens the key/value backend for driver below dataDir.
func OpenKV(driver, dataDir string) (simplestore.KVStore, error) {
	if driver == DriverMemory {
		return inmemory.NewInMemory(), nil
	}
	if dataDir == "" {
		return nil, errors.Errorf("storage driver %q requires a data directory", driver)
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, errors.Wrapf(err, "failed to create data directory %q", dataDir)
	}

	var (
		kv  simplestore.KVStore
		err error
	)
	switch driver {
	case DriverFile, "":
		kv, err = fskv.NewFSKV(filepath.Join(dataDir, fileDirName))
	case DriverSQLite:
		kv, err = sqlitekv.Open(filepath.Join(dataDir, sqliteFileName))
	case DriverBolt:
		kv, err = boltkv.Open(filepath.Join(dataDir, boltFileName))
	default:
		return nil, errors.Errorf("unknown storage driver %q, expected one of %v", driver, Drivers)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s storage", driver)
	}
	return kv, nil
}
