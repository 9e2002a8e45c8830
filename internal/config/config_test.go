package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"lsysfs/internal/logging"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("lsysfs", pflag.ContinueOnError)
	RegisterFlags(flags)
	require.NoError(t, flags.Parse(args))
	return flags
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(parseFlags(t, "--mount", "/mnt/lsysfs"))
	require.NoError(t, err)

	assert.Equal(t, "/mnt/lsysfs", cfg.MountPoint)
	assert.Equal(t, 256, cfg.Capacity)
	assert.Equal(t, "lsysfs", cfg.FSName)
	assert.False(t, cfg.AllowOther)
	assert.Equal(t, -1, cfg.UID)
	assert.Equal(t, -1, cfg.GID)
	assert.Equal(t, 10*time.Second, cfg.UnmountTimeout)
	assert.Empty(t, cfg.Log.Level, "an unset level defers to the logger's environment")
	assert.Equal(t, logging.FormatConsole, cfg.Log.Format)
	assert.Equal(t, logging.TypeStderr, cfg.Log.Type)
	assert.Equal(t, 100, cfg.Log.MaxSize)
	assert.Empty(t, cfg.Metrics.Address)
}

func TestLoadFlags(t *testing.T) {
	cfg, err := Load(parseFlags(t,
		"--mount", "/tmp/m",
		"--capacity", "0",
		"--allow-other",
		"--uid", "1000",
		"--unmount-timeout", "3s",
		"--log.level", "trace",
		"--log.format", "json",
		"--metrics.address", ":9100",
	))
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Capacity)
	assert.True(t, cfg.AllowOther)
	assert.Equal(t, 1000, cfg.UID)
	assert.Equal(t, 3*time.Second, cfg.UnmountTimeout)
	assert.Equal(t, "trace", cfg.Log.Level)
	assert.Equal(t, logging.FormatJSON, cfg.Log.Format)
	assert.Equal(t, ":9100", cfg.Metrics.Address)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("LSYSFS_MOUNT", "/env/mount")
	t.Setenv("LSYSFS_CAPACITY", "12")
	t.Setenv("LSYSFS_LOG_LEVEL", "debug")
	t.Setenv("LSYSFS_LOG_MAX_SIZE", "7")
	t.Setenv("LSYSFS_METRICS_ADDRESS", "127.0.0.1:9200")

	cfg, err := Load(parseFlags(t))
	require.NoError(t, err)

	assert.Equal(t, "/env/mount", cfg.MountPoint)
	assert.Equal(t, 12, cfg.Capacity)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 7, cfg.Log.MaxSize)
	assert.Equal(t, "127.0.0.1:9200", cfg.Metrics.Address)
}

func TestLegacyLogEnvironmentLeavesLevelUnset(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("FUSE_DEBUG", "1")

	cfg, err := Load(parseFlags(t, "--mount", "/m"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Log.Level)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("LSYSFS_CAPACITY", "12")

	cfg, err := Load(parseFlags(t, "--mount", "/m", "--capacity", "3"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Capacity)
}

func TestLoadConfigFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "lsysfs.toml")
	content := `
mount = "/from/file"
capacity = 64
unmount-timeout = "1m"

[log]
level = "warn"
type = "stdout"

[metrics]
address = ":9300"
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))

	t.Run("FileValues", func(t *testing.T) {
		cfg, err := Load(parseFlags(t, "--config", file))
		require.NoError(t, err)

		assert.Equal(t, "/from/file", cfg.MountPoint)
		assert.Equal(t, 64, cfg.Capacity)
		assert.Equal(t, time.Minute, cfg.UnmountTimeout)
		assert.Equal(t, "warn", cfg.Log.Level)
		assert.Equal(t, logging.TypeStdout, cfg.Log.Type)
		assert.Equal(t, logging.FormatConsole, cfg.Log.Format)
		assert.Equal(t, ":9300", cfg.Metrics.Address)
	})

	t.Run("FlagWins", func(t *testing.T) {
		cfg, err := Load(parseFlags(t, "--config", file, "--capacity", "5"))
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.Capacity)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(parseFlags(t, "--config", filepath.Join(t.TempDir(), "missing.toml")))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			MountPoint:     "/mnt",
			Capacity:       10,
			FSName:         "lsysfs",
			UID:            -1,
			GID:            -1,
			UnmountTimeout: time.Second,
			Log: logging.Config{
				Level:  "info",
				Format: logging.FormatConsole,
				Type:   logging.TypeStderr,
			},
		}
	}

	require.NoError(t, valid().Validate())

	unsetLevel := valid()
	unsetLevel.Log.Level = ""
	require.NoError(t, unsetLevel.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no mount point", func(c *Config) { c.MountPoint = "" }, "mount point"},
		{"negative capacity", func(c *Config) { c.Capacity = -1 }, "capacity"},
		{"empty fsname", func(c *Config) { c.FSName = "" }, "filesystem name"},
		{"bad uid", func(c *Config) { c.UID = -2 }, "uid"},
		{"bad gid", func(c *Config) { c.GID = -5 }, "gid"},
		{"zero timeout", func(c *Config) { c.UnmountTimeout = 0 }, "unmount timeout"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("JoinsErrors", func(t *testing.T) {
		cfg := valid()
		cfg.MountPoint = ""
		cfg.Capacity = -1
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mount point")
		assert.Contains(t, err.Error(), "capacity")
	})
}
