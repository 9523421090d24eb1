package fskv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// FSKV keeps one file per key below basePath.
type FSKV struct {
	basePath string
}

func NewFSKV(basePath string) (*FSKV, error) {
	err := os.MkdirAll(basePath, 0700)
	return &FSKV{basePath: basePath}, err
}

func (F FSKV) path(key string) string {
	return filepath.Join(F.basePath, key+".json")
}

func (F FSKV) Read(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(F.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Put writes to a temp file first and renames it over the old one,
// a crash mid-write leaves the previous value intact.
func (F FSKV) Put(_ context.Context, key string, data []byte) error {
	tmp, err := os.CreateTemp(F.basePath, key+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), F.path(key))
}

func (F FSKV) ReadAll(_ context.Context, reader func(key string, data []byte) error) error {
	list, err := os.ReadDir(F.basePath)
	if err != nil {
		return err
	}

	for _, f := range list {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(F.basePath, f.Name()))
		if err != nil {
			return err
		}
		if err := reader(strings.TrimSuffix(f.Name(), ".json"), data); err != nil {
			return err
		}
	}

	return nil
}

func (F FSKV) Delete(_ context.Context, key string) error {
	err := os.Remove(F.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (F FSKV) Close() error {
	return nil
}
