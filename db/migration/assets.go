// Package migration holds the SQL schema of every sqlite database dashnotify keeps.
// Each subpackage embeds its *.sql files and exposes them through AssetNames/Asset,
// the shape golang-migrate's go_bindata source expects.
package migration

import (
	"embed"
	"io/fs"
	"sort"
)

type Assets struct {
	files embed.FS
}

func NewAssets(files embed.FS) Assets {
	return Assets{files: files}
}

func (a Assets) Names() []string {
	names, err := fs.Glob(a.files, "*.sql")
	if err != nil {
		return nil
	}
	sort.Strings(names)
	return names
}

func (a Assets) Asset(name string) ([]byte, error) {
	return a.files.ReadFile(name)
}
