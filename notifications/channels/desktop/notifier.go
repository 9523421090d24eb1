package desktop

import (
	"context"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
)

const (
	dbusDest      = "org.freedesktop.Notifications"
	dbusPath      = "/org/freedesktop/Notifications"
	dbusInterface = "org.freedesktop.Notifications"
)

type Urgency byte

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

// Alert is one OS level notification.
type Alert struct {
	AppName    string
	ReplacesID uint32
	Icon       string
	Summary    string
	Body       string
	Urgency    Urgency
	Timeout    int32
}

// Notifier raises alerts on the desktop. Permitted reports whether the
// desktop accepts alerts from this process at all.
type Notifier interface {
	Permitted(ctx context.Context) bool
	Notify(ctx context.Context, a Alert) (uint32, error)
}

// DBusNotifier talks to the freedesktop notification server on the session bus.
type DBusNotifier struct {
	connect func() (*dbus.Conn, error)

	mu   sync.Mutex
	conn *dbus.Conn
}

func NewDBusNotifier() *DBusNotifier {
	return &DBusNotifier{connect: func() (*dbus.Conn, error) { return dbus.ConnectSessionBus() }}
}

func (d *DBusNotifier) object() (dbus.BusObject, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil || !d.conn.Connected() {
		conn, err := d.connect()
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect to session bus")
		}
		d.conn = conn
	}
	return d.conn.Object(dbusDest, dbusPath), nil
}

// Permitted asks the notification server for its capabilities. A missing
// server or a refused call means alerts are not permitted.
func (d *DBusNotifier) Permitted(ctx context.Context) bool {
	obj, err := d.object()
	if err != nil {
		return false
	}
	var caps []string
	return obj.CallWithContext(ctx, dbusInterface+".GetCapabilities", 0).Store(&caps) == nil
}

func (d *DBusNotifier) Notify(ctx context.Context, a Alert) (uint32, error) {
	obj, err := d.object()
	if err != nil {
		return 0, err
	}
	hints := map[string]dbus.Variant{
		"suppress-sound": dbus.MakeVariant(true),
		"urgency":        dbus.MakeVariant(byte(a.Urgency)),
	}
	var id uint32
	err = obj.CallWithContext(ctx, dbusInterface+".Notify", 0,
		a.AppName,
		a.ReplacesID,
		a.Icon,
		a.Summary,
		a.Body,
		[]string{},
		hints,
		a.Timeout,
	).Store(&id)
	if err != nil {
		return 0, errors.Wrap(err, "notify call failed")
	}
	return id, nil
}

func (d *DBusNotifier) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}
