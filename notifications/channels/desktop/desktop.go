// Package desktop raises OS level alerts for delivered notifications.
package desktop

import (
	"context"
	"sync"

	"github.com/openrport/dashnotify/notifications"
	"github.com/openrport/dashnotify/share/logger"
)

const Name = "desktop"

// maxTracked bounds the notification id to alert id table.
const maxTracked = 1000

type Options struct {
	AppName string
	Icon    string
	// Timeout in milliseconds, -1 leaves it to the notification server.
	Timeout int32
}

// Channel raises one alert per notification. Delivering the same
// notification id again replaces its alert instead of stacking a new one.
// The alert never plays a sound of its own.
type Channel struct {
	notifier Notifier
	opts     Options
	logger   *logger.Logger

	mu       sync.Mutex
	alertIDs map[string]uint32
}

func New(notifier Notifier, opts Options, l *logger.Logger) *Channel {
	if opts.AppName == "" {
		opts.AppName = "dashnotify"
	}
	return &Channel{
		notifier: notifier,
		opts:     opts,
		logger:   l,
		alertIDs: make(map[string]uint32),
	}
}

func (c *Channel) Name() string {
	return Name
}

func (c *Channel) Deliver(ctx context.Context, n notifications.Notification, settings notifications.Settings) (bool, error) {
	if !settings.DesktopEnabled {
		return false, nil
	}
	if !c.notifier.Permitted(ctx) {
		c.logger.Debugf("desktop alerts not permitted, skipping %s", n.ID)
		return false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	id, err := c.notifier.Notify(ctx, Alert{
		AppName:    c.opts.AppName,
		ReplacesID: c.alertIDs[n.ID],
		Icon:       c.opts.Icon,
		Summary:    n.Title,
		Body:       n.Message,
		Urgency:    urgency(n.Priority),
		Timeout:    c.opts.Timeout,
	})
	if err != nil {
		return false, err
	}

	if _, known := c.alertIDs[n.ID]; !known && len(c.alertIDs) >= maxTracked {
		c.alertIDs = make(map[string]uint32)
	}
	c.alertIDs[n.ID] = id
	return true, nil
}

func urgency(p notifications.Priority) Urgency {
	switch p {
	case notifications.PriorityHigh:
		return UrgencyCritical
	case notifications.PriorityLow:
		return UrgencyLow
	default:
		return UrgencyNormal
	}
}
