package middleware

import (
	"fmt"
	"strings"

	"github.com/openrport/dashnotify/share/logger"
)

// RecoveryLogger adapts the logger to gorilla handlers' RecoveryHandlerLogger.
type RecoveryLogger struct {
	*logger.Logger
}

func NewRecoveryLogger(l *logger.Logger) *RecoveryLogger {
	return &RecoveryLogger{
		Logger: l,
	}
}

func (l *RecoveryLogger) Println(v ...interface{}) {
	l.Errorf("%s", strings.TrimSpace(fmt.Sprintln(v...)))
}
