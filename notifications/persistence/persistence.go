// Package persistence keeps the notification list, the settings and the poll
// watermark as three independent records of a key/value store.
package persistence

import (
	"context"
	"time"

	"github.com/openrport/dashnotify/notifications"
	"github.com/openrport/dashnotify/share/logger"
	"github.com/openrport/dashnotify/share/simplestore"
)

const (
	KeyNotifications = "notifications"
	KeySettings      = "settings"
	KeyWatermark     = "poll_watermark"
)

type watermark struct {
	At time.Time `json:"at"`
}

// Adapter reads and writes the persisted records. A record that cannot be
// read or decoded falls back to its default without affecting the others.
type Adapter struct {
	kv            simplestore.KVStore
	notifications simplestore.Record[[]notifications.Notification]
	settings      simplestore.Record[notifications.Settings]
	watermark     simplestore.Record[watermark]
	logger        *logger.Logger
}

func NewAdapter(kv simplestore.KVStore, l *logger.Logger) *Adapter {
	return &Adapter{
		kv: kv,
		notifications: simplestore.NewRecord(kv, KeyNotifications, func() []notifications.Notification {
			return nil
		}),
		settings:  simplestore.NewRecord(kv, KeySettings, notifications.DefaultSettings),
		watermark: simplestore.NewRecord(kv, KeyWatermark, func() watermark { return watermark{} }),
		logger:    l,
	}
}

func (a *Adapter) LoadNotifications(ctx context.Context) []notifications.Notification {
	list, _, err := a.notifications.Load(ctx)
	if err != nil {
		a.logger.Errorf("failed loading notifications, starting empty: %v", err)
	}
	return list
}

// LoadSettings returns the stored settings, or the defaults when none are
// stored or they can't be decoded. Fields missing from the stored record keep
// their defaults.
func (a *Adapter) LoadSettings(ctx context.Context) notifications.Settings {
	settings, found, err := a.settings.Load(ctx)
	if err != nil {
		a.logger.Errorf("failed loading settings, using defaults: %v", err)
		return settings
	}
	if !found {
		return settings
	}
	return settings.Normalize()
}

// LoadWatermark returns the last poll watermark and whether one was stored.
func (a *Adapter) LoadWatermark(ctx context.Context) (time.Time, bool) {
	wm, found, err := a.watermark.Load(ctx)
	if err != nil {
		a.logger.Errorf("failed loading poll watermark: %v", err)
		return time.Time{}, false
	}
	return wm.At, found && !wm.At.IsZero()
}

// Load restores a full State. The connection flag always starts false.
func (a *Adapter) Load(ctx context.Context) notifications.State {
	return notifications.NewState(a.LoadNotifications(ctx), a.LoadSettings(ctx))
}

func (a *Adapter) SaveNotifications(ctx context.Context, list []notifications.Notification) error {
	if list == nil {
		list = []notifications.Notification{}
	}
	return a.notifications.Save(ctx, list)
}

func (a *Adapter) SaveSettings(ctx context.Context, settings notifications.Settings) error {
	return a.settings.Save(ctx, settings)
}

func (a *Adapter) SaveWatermark(ctx context.Context, at time.Time) error {
	return a.watermark.Save(ctx, watermark{At: at})
}

func (a *Adapter) Close() error {
	return a.kv.Close()
}
