package logger

import (
	"fmt"
	"time"
)

// FormatConnectionState renders the push connection state for status lines.
func FormatConnectionState(connected bool, disconnectedAt *time.Time) string {
	if connected {
		return "connected"
	}
	if disconnectedAt != nil {
		return fmt.Sprintf("disconnected since %s", disconnectedAt.Format(time.RFC3339))
	}
	return "disconnected"
}
