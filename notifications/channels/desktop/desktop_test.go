package desktop

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrport/dashnotify/notifications"
	"github.com/openrport/dashnotify/share/logger"
)

type fakeNotifier struct {
	permitted bool
	err       error
	nextID    uint32
	alerts    []Alert
}

func (f *fakeNotifier) Permitted(context.Context) bool {
	return f.permitted
}

func (f *fakeNotifier) Notify(_ context.Context, a Alert) (uint32, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.alerts = append(f.alerts, a)
	if a.ReplacesID != 0 {
		return a.ReplacesID, nil
	}
	f.nextID++
	return f.nextID, nil
}

func order(id string) notifications.Notification {
	return notifications.Notification{
		ID:       id,
		Type:     notifications.TypeOrder,
		Title:    "New order",
		Message:  "Alice · 50,000",
		Priority: notifications.PriorityHigh,
	}
}

func TestDisabled(t *testing.T) {
	notifier := &fakeNotifier{permitted: true}
	c := New(notifier, Options{}, logger.NewDiscardLogger())

	settings := notifications.DefaultSettings()
	settings.DesktopEnabled = false

	delivered, err := c.Deliver(context.Background(), order("order-1"), settings)
	require.NoError(t, err)
	assert.False(t, delivered)
	assert.Empty(t, notifier.alerts)
}

func TestNotPermitted(t *testing.T) {
	notifier := &fakeNotifier{permitted: false}
	c := New(notifier, Options{}, logger.NewDiscardLogger())

	delivered, err := c.Deliver(context.Background(), order("order-1"), notifications.DefaultSettings())
	require.NoError(t, err)
	assert.False(t, delivered)
	assert.Empty(t, notifier.alerts)
}

func TestSameIDReplacesAlert(t *testing.T) {
	notifier := &fakeNotifier{permitted: true}
	c := New(notifier, Options{Icon: "dialog-information", Timeout: -1}, logger.NewDiscardLogger())

	for _, id := range []string{"order-1", "order-2", "order-1"} {
		delivered, err := c.Deliver(context.Background(), order(id), notifications.DefaultSettings())
		require.NoError(t, err)
		assert.True(t, delivered)
	}

	require.Len(t, notifier.alerts, 3)
	assert.Equal(t, Alert{
		AppName: "dashnotify",
		Icon:    "dialog-information",
		Summary: "New order",
		Body:    "Alice · 50,000",
		Urgency: UrgencyCritical,
		Timeout: -1,
	}, notifier.alerts[0])
	assert.Equal(t, uint32(0), notifier.alerts[1].ReplacesID)
	assert.Equal(t, uint32(1), notifier.alerts[2].ReplacesID)
}

func TestNotifyErrorIsReturned(t *testing.T) {
	notifier := &fakeNotifier{permitted: true, err: errors.New("notify call failed")}
	c := New(notifier, Options{}, logger.NewDiscardLogger())

	delivered, err := c.Deliver(context.Background(), order("order-1"), notifications.DefaultSettings())
	assert.EqualError(t, err, "notify call failed")
	assert.False(t, delivered)
}

func TestUrgency(t *testing.T) {
	assert.Equal(t, UrgencyCritical, urgency(notifications.PriorityHigh))
	assert.Equal(t, UrgencyNormal, urgency(notifications.PriorityMedium))
	assert.Equal(t, UrgencyLow, urgency(notifications.PriorityLow))
}

func TestNewDBusNotifierDefersConnect(t *testing.T) {
	n := NewDBusNotifier()
	require.NotNil(t, n.connect)
	assert.NoError(t, n.Close())
}
