package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(t *testing.T) (*Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return NewWithCore("test", core), logs
}

func TestLevels(t *testing.T) {
	l, logs := newObserved(t)

	l.Debug("hidden at info")
	l.Info("shown %d", 1)
	l.Warn("shown %d", 2)
	l.Error("shown %d", 3)
	assert.Equal(t, 3, logs.Len())

	l.SetLevel(LevelError)
	l.Warn("hidden")
	assert.Equal(t, 3, logs.Len())
	assert.Equal(t, LevelError, l.Level())
}

func TestTraceRequiresTraceLevel(t *testing.T) {
	l, logs := newObserved(t)

	l.SetLevel(LevelDebug)
	l.Trace("hidden at debug")
	l.Debug("shown")
	assert.Equal(t, 1, logs.Len())

	l.SetLevel(LevelTrace)
	l.Trace("shown at trace")
	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "shown at trace", logs.All()[1].Message)
	assert.Equal(t, LevelTrace, l.Level())
}

func TestWithPrefixSharesLevel(t *testing.T) {
	l, logs := newObserved(t)
	child := l.WithPrefix("dir")

	child.Info("from child %q", "x")
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, `from child "x"`, entry.Message)
	assert.Equal(t, "dir", entry.ContextMap()["component"])

	l.SetLevel(LevelError)
	child.Info("suppressed")
	assert.Equal(t, 1, logs.Len())
}

func TestParseLevel(t *testing.T) {
	for _, name := range []string{"error", "WARN", "Info", "debug", "trace"} {
		_, err := ParseLevel(name)
		assert.NoError(t, err, name)
	}
	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	valid := Config{Level: "info", Format: FormatConsole, Type: TypeStderr}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name string
		cfg  Config
	}{
		{"bad level", Config{Level: "loud", Format: FormatConsole, Type: TypeStdout}},
		{"bad format", Config{Level: "info", Format: "xml", Type: TypeStdout}},
		{"bad type", Config{Level: "info", Format: FormatJSON, Type: "syslog"}},
		{"logfile without path", Config{Level: "info", Format: FormatJSON, Type: TypeLogFile}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}
}

func TestConfigureLogFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "logs", "lsysfs.log")

	l := NewLogger("test")
	child := l.WithPrefix("vfs")
	require.NoError(t, l.Configure(Config{
		Level:           "debug",
		Format:          FormatJSON,
		Type:            TypeLogFile,
		File:            file,
		MaxSize:         1,
		NumRotatedFiles: 1,
	}))

	child.Debug("written to %s", "file")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
	assert.Contains(t, string(data), `"component":"vfs"`)
}

func TestConfigureLevelFallsBackToEnvironment(t *testing.T) {
	base := Config{Format: FormatConsole, Type: TypeStderr}

	t.Run("LOG_LEVEL", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "debug")
		l := NewLogger("test")
		require.NoError(t, l.Configure(base))
		assert.Equal(t, LevelDebug, l.Level())
	})

	t.Run("FUSE_DEBUG", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "error")
		t.Setenv("FUSE_DEBUG", "1")
		l := NewLogger("test")
		require.NoError(t, l.Configure(base))
		assert.Equal(t, LevelDebug, l.Level())
	})

	t.Run("NoEnvironment", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "")
		t.Setenv("FUSE_DEBUG", "")
		l := NewLogger("test")
		l.SetLevel(LevelTrace)
		require.NoError(t, l.Configure(base))
		assert.Equal(t, LevelInfo, l.Level())
	})

	t.Run("ExplicitLevelWins", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "debug")
		l := NewLogger("test")
		cfg := base
		cfg.Level = "warn"
		require.NoError(t, l.Configure(cfg))
		assert.Equal(t, LevelWarn, l.Level())
	})

	t.Run("InvalidEnvironmentIgnored", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "loud")
		t.Setenv("FUSE_DEBUG", "")
		l := NewLogger("test")
		require.NoError(t, l.Configure(base))
		assert.Equal(t, LevelInfo, l.Level())
	})
}
