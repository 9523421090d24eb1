package logger

import (
	"fmt"
	"sync"
)

type memEntry struct {
	level LogLevel
	msg   string
}

// MemLogger keeps messages in memory, in order, until the configured logger
// exists. Used while the config file is still being read.
type MemLogger struct {
	mu      sync.Mutex
	entries []memEntry
}

func NewMemLogger() *MemLogger {
	return &MemLogger{}
}

func (ml *MemLogger) add(level LogLevel, msg string) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	ml.entries = append(ml.entries, memEntry{level: level, msg: msg})
}

func (ml *MemLogger) Debugf(msg string, args ...interface{}) {
	ml.add(LogLevelDebug, fmt.Sprintf(msg, args...))
}

func (ml *MemLogger) Infof(msg string, args ...interface{}) {
	ml.add(LogLevelInfo, fmt.Sprintf(msg, args...))
}

func (ml *MemLogger) Errorf(msg string, args ...interface{}) {
	ml.add(LogLevelError, fmt.Sprintf(msg, args...))
}

// Flush writes everything buffered so far to l and empties the buffer.
func (ml *MemLogger) Flush(l *Logger) {
	ml.mu.Lock()
	entries := ml.entries
	ml.entries = nil
	ml.mu.Unlock()

	for _, e := range entries {
		l.Logf(e.level, "%s", e.msg)
	}
}
