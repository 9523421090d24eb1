// Package logger is a channel that writes every delivered notification to the log.
package logger

import (
	"context"

	"github.com/openrport/dashnotify/notifications"
	"github.com/openrport/dashnotify/share/logger"
)

const Name = "log"

type logChannel struct {
	logger *logger.Logger
}

//nolint:revive
func NewLogChannel(l *logger.Logger) *logChannel {
	return &logChannel{logger: l}
}

func (l logChannel) Name() string {
	return Name
}

func (l logChannel) Deliver(_ context.Context, n notifications.Notification, _ notifications.Settings) (bool, error) {
	l.logger.Logf(l.logger.Level, "received notification %s [%s/%s]: %s: %s", n.ID, n.Type, n.Priority, n.Title, n.Message)
	return true, nil
}
