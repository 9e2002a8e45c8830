package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Supported log destinations.
const (
	TypeStdout  = "stdout"
	TypeStderr  = "stderr"
	TypeLogFile = "logfile"
)

// Supported encodings.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config describes where and how log messages are written.
type Config struct {
	// Level is empty to fall back to LOG_LEVEL, FUSE_DEBUG or info.
	Level           string `mapstructure:"level"`
	Format          string `mapstructure:"format"`
	Type            string `mapstructure:"type"`
	File            string `mapstructure:"file"`
	MaxSize         int    `mapstructure:"max-size"`
	NumRotatedFiles int    `mapstructure:"num-rotated-files"`
}

// Validate reports configuration values the logger cannot work with.
func (c Config) Validate() error {
	if c.Level != "" {
		if _, err := ParseLevel(c.Level); err != nil {
			return err
		}
	}
	switch c.Format {
	case FormatConsole, FormatJSON:
	default:
		return fmt.Errorf("unsupported log format %q (valid formats: %s, %s)", c.Format, FormatConsole, FormatJSON)
	}
	switch c.Type {
	case TypeStdout, TypeStderr:
	case TypeLogFile:
		if c.File == "" {
			return fmt.Errorf("log type %q requires a log file path", TypeLogFile)
		}
	default:
		return fmt.Errorf("unsupported log type %q (valid types: %s, %s, %s)", c.Type, TypeStdout, TypeStderr, TypeLogFile)
	}
	return nil
}

// Configure replaces the output and level of l and of every logger derived
// from it with WithPrefix.
func (l *Logger) Configure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, _ := levelFromEnv()
	if cfg.Level != "" {
		level, _ = ParseLevel(cfg.Level)
	}

	var encoder zapcore.Encoder
	if cfg.Format == FormatJSON {
		encoder = jsonEncoder()
	} else {
		encoder = consoleEncoder()
	}

	var dest zapcore.WriteSyncer
	switch cfg.Type {
	case TypeStdout:
		dest = zapcore.Lock(os.Stdout)
	case TypeStderr:
		dest = zapcore.Lock(os.Stderr)
	case TypeLogFile:
		if err := ensureLogDirExists(filepath.Dir(cfg.File), 0755); err != nil {
			return fmt.Errorf("unable to create log directory: %w", err)
		}
		dest = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.NumRotatedFiles,
		})
	}

	l.SetLevel(level)
	old := l.sink.replace(zap.New(
		zapcore.NewCore(encoder, dest, l.sink.level),
		zap.AddCaller(),
		zap.AddCallerSkip(2),
	))
	if old != nil {
		_ = old.Sync()
	}
	return nil
}

// ensureLogDirExists will check if the provided directory exists and create it
// with the provided permissions if needed.
func ensureLogDirExists(dirPath string, perm os.FileMode) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, perm)
	} else if err != nil {
		return err
	}
	return nil
}
