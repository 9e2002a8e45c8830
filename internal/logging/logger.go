// Package logging provides leveled, component-scoped logging backed by zap.
package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents different logging levels
type LogLevel int

const (
	// LevelError only logs errors
	LevelError LogLevel = iota
	// LevelWarn logs warnings and errors
	LevelWarn
	// LevelInfo logs general information, warnings and errors
	LevelInfo
	// LevelDebug logs detailed debug information and all above
	LevelDebug
	// LevelTrace logs very detailed trace information and all above
	LevelTrace
)

var levelNames = map[LogLevel]string{
	LevelError: "error",
	LevelWarn:  "warn",
	LevelInfo:  "info",
	LevelDebug: "debug",
	LevelTrace: "trace",
}

// String returns the lower-case level name.
func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LogLevel(%d)", int(l))
}

// ParseLevel converts a level name (case-insensitive) into a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for level, name := range levelNames {
		if name == want {
			return level, nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level %q (valid levels: error, warn, info, debug, trace)", s)
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LevelError:
		return zapcore.ErrorLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// sink is shared by a logger and every logger derived from it, so that
// reconfiguring the output or level affects all components at once.
type sink struct {
	mu    sync.RWMutex
	base  *zap.Logger
	level zap.AtomicLevel
	trace atomic.Bool
}

func (s *sink) logger() *zap.Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base
}

func (s *sink) replace(base *zap.Logger) *zap.Logger {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.base
	s.base = base
	return old
}

// Logger provides structured logging capabilities
type Logger struct {
	prefix string
	sink   *sink
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// GetLogger returns the default logger instance
func GetLogger() *Logger {
	once.Do(func() {
		defaultLogger = NewLogger("lsysfs")
		if level, ok := levelFromEnv(); ok {
			defaultLogger.SetLevel(level)
		}
	})
	return defaultLogger
}

// levelFromEnv returns the level requested through LOG_LEVEL. FUSE_DEBUG
// forces debug logging.
func levelFromEnv() (LogLevel, bool) {
	if os.Getenv("FUSE_DEBUG") != "" {
		return LevelDebug, true
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		if parsed, err := ParseLevel(level); err == nil {
			return parsed, true
		}
	}
	return LevelInfo, false
}

// NewLogger creates a console logger writing to stdout at info level.
func NewLogger(prefix string) *Logger {
	s := &sink{level: zap.NewAtomicLevelAt(zapcore.InfoLevel)}
	s.base = zap.New(
		zapcore.NewCore(consoleEncoder(), zapcore.Lock(os.Stdout), s.level),
		zap.AddCaller(),
		zap.AddCallerSkip(2),
	)
	return &Logger{prefix: prefix, sink: s}
}

// NewWithCore creates a logger on top of an existing zap core. The core's own
// level check still applies after the logger's level.
func NewWithCore(prefix string, core zapcore.Core) *Logger {
	s := &sink{level: zap.NewAtomicLevelAt(zapcore.InfoLevel)}
	s.base = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2))
	return &Logger{prefix: prefix, sink: s}
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level LogLevel) {
	l.sink.level.SetLevel(level.zapLevel())
	l.sink.trace.Store(level >= LevelTrace)
}

// Level returns the current logging level.
func (l *Logger) Level() LogLevel {
	if l.sink.trace.Load() {
		return LevelTrace
	}
	switch l.sink.level.Level() {
	case zapcore.ErrorLevel:
		return LevelError
	case zapcore.WarnLevel:
		return LevelWarn
	case zapcore.InfoLevel:
		return LevelInfo
	default:
		return LevelDebug
	}
}

// Zap exposes the underlying zap logger, scoped to this logger's component.
func (l *Logger) Zap() *zap.Logger {
	return l.sink.logger().With(zap.String("component", l.prefix))
}

// log performs the actual logging
func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if level == LevelTrace && !l.sink.trace.Load() {
		return
	}
	zl := level.zapLevel()
	if !l.sink.level.Enabled(zl) {
		return
	}
	base := l.sink.logger()
	if ce := base.Check(zl, fmt.Sprintf(format, args...)); ce != nil {
		ce.Write(zap.String("component", l.prefix))
	}
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

// Trace logs a trace message
func (l *Logger) Trace(format string, args ...interface{}) {
	l.log(LevelTrace, format, args...)
}

// WithPrefix creates a logger for a sub-component. It shares output and level
// with its parent.
func (l *Logger) WithPrefix(prefix string) *Logger {
	return &Logger{
		prefix: prefix,
		sink:   l.sink,
	}
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	return l.sink.logger().Sync()
}

func consoleEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

func jsonEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(cfg)
}
