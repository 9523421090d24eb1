package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

type LogLevel int

const (
	LogLevelError LogLevel = 0
	LogLevelInfo  LogLevel = 1
	LogLevelDebug LogLevel = 2
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelInfo:
		return "info"
	case LogLevelDebug:
		return "debug"
	case LogLevelError:
		return "error"
	default:
		return ""
	}
}

func ParseLogLevel(str string) (LogLevel, error) {
	var m = map[string]LogLevel{
		"error": LogLevelError,
		"info":  LogLevelInfo,
		"debug": LogLevelDebug,
	}
	if result, ok := m[strings.ToLower(strings.TrimSpace(str))]; ok {
		return result, nil
	}
	return LogLevelError, fmt.Errorf("invalid log level: %q", str)
}

// LogOutput is where log lines end up: a file when filePath is set, stdout otherwise.
type LogOutput struct {
	File     *os.File
	filePath string
}

func NewLogOutput(filePath string) LogOutput {
	return LogOutput{
		filePath: filePath,
	}
}

func (o *LogOutput) Start() error {
	if o.filePath == "" {
		o.File = os.Stdout
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(o.filePath), 0700); err != nil {
		return fmt.Errorf("can't create log dir for %s: %s", o.filePath, err)
	}

	var err error
	o.File, err = os.OpenFile(o.filePath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("can't open log file %s: %s", o.filePath, err)
	}
	return nil
}

func (o *LogOutput) Shutdown() {
	if o.File != nil && o.File != os.Stdout {
		_ = o.File.Close()
	}
}

func (o LogOutput) writer() io.Writer {
	if o.File == nil {
		return io.Discard
	}
	return o.File
}

type Logger struct {
	prefix string
	logger *log.Logger
	output LogOutput
	Level  LogLevel
}

func NewLogger(prefix string, output LogOutput, level LogLevel) *Logger {
	l := &Logger{
		prefix: prefix,
		logger: log.New(output.writer(), "", log.Ldate|log.Ltime),
		output: output,
		Level:  level,
	}
	return l
}

// NewDiscardLogger returns a logger that drops everything, handy in tests.
func NewDiscardLogger() *Logger {
	return NewLogger("discard", LogOutput{}, LogLevelError)
}

func (l *Logger) Errorf(f string, args ...interface{}) {
	l.Logf(LogLevelError, f, args...)
}

func (l *Logger) Infof(f string, args ...interface{}) {
	l.Logf(LogLevelInfo, f, args...)
}

func (l *Logger) Debugf(f string, args ...interface{}) {
	l.Logf(LogLevelDebug, f, args...)
}

func (l *Logger) Logf(severity LogLevel, f string, args ...interface{}) {
	if l.Level >= severity {
		l.logger.Printf(severity.String()+": "+l.prefix+": "+f, args...)
	}
}

// Fork creates a child logger sharing output and level, prefixed with the parent prefix.
func (l *Logger) Fork(prefix string, args ...interface{}) *Logger {
	args = append([]interface{}{l.prefix}, args...)
	return NewLogger(fmt.Sprintf("%s: "+prefix, args...), l.output, l.Level)
}

func (l *Logger) Prefix() string {
	return l.prefix
}
