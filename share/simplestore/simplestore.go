package simplestore

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// KVStore is a flat key/value backend. Every Put is a full rewrite of the key.
type KVStore interface {
	Read(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, data []byte) error
	ReadAll(ctx context.Context, reader func(key string, data []byte) error) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// ErrCorrupt is returned (wrapped) by Record.Load when stored bytes don't decode.
var ErrCorrupt = errors.New("corrupt record")

// Record is a single JSON encoded value living under one key of a KVStore.
type Record[T any] struct {
	kv  KVStore
	key string
	def func() T
}

func NewRecord[T any](kv KVStore, key string, def func() T) Record[T] {
	return Record[T]{kv: kv, key: key, def: def}
}

func (r Record[T]) Key() string {
	return r.key
}

// Load returns the stored value and whether it was present. A missing key
// yields the default value, and stored data is decoded on top of it so absent
// fields keep their defaults. Unreadable or undecodable data also yields the
// default value, together with an error so the caller can report it.
func (r Record[T]) Load(ctx context.Context) (T, bool, error) {
	data, found, err := r.kv.Read(ctx, r.key)
	if err != nil {
		return r.def(), false, errors.Wrapf(err, "reading %q", r.key)
	}
	if !found || len(data) == 0 {
		return r.def(), false, nil
	}

	obj := r.def()
	if err := json.Unmarshal(data, &obj); err != nil {
		return r.def(), false, errors.Wrapf(ErrCorrupt, "%q: %v", r.key, err)
	}
	return obj, true, nil
}

func (r Record[T]) Save(ctx context.Context, obj T) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return errors.Wrapf(err, "encoding %q", r.key)
	}
	return errors.Wrapf(r.kv.Put(ctx, r.key, data), "writing %q", r.key)
}

func (r Record[T]) Delete(ctx context.Context) error {
	return errors.Wrapf(r.kv.Delete(ctx, r.key), "deleting %q", r.key)
}
