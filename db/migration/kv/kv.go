package kv

import (
	"embed"

	"github.com/openrport/dashnotify/db/migration"
)

//go:embed *.sql
var files embed.FS

var assets = migration.NewAssets(files)

func AssetNames() []string {
	return assets.Names()
}

func Asset(name string) ([]byte, error) {
	return assets.Asset(name)
}
