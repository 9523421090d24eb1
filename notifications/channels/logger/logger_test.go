package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrport/dashnotify/notifications"
	"github.com/openrport/dashnotify/share/logger"
)

func TestLogChannel(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "dashnotify.log")
	output := logger.NewLogOutput(logFile)
	require.NoError(t, output.Start())
	l := logger.NewLogger("notifications", output, logger.LogLevelInfo)
	c := NewLogChannel(l)

	delivered, err := c.Deliver(context.Background(), notifications.Notification{
		ID:        "order-42",
		Type:      notifications.TypeOrder,
		Title:     "New order",
		Message:   "Alice · 50,000",
		Priority:  notifications.PriorityHigh,
		CreatedAt: time.Now(),
	}, notifications.DefaultSettings())

	require.NoError(t, err)
	assert.True(t, delivered)
	assert.Equal(t, "log", c.Name())
	output.Shutdown()

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "info: notifications: received notification order-42 [order/high]: New order: Alice · 50,000")
}
