// Package config handles the command line flags, environment variable bindings
// and the optional config file of the lsysfs binary.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"lsysfs/internal/logging"
	"lsysfs/internal/table"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. LSYSFS_LOG_LEVEL.
const EnvPrefix = "lsysfs"

// Flag and viper keys.
const (
	ConfigFileKey     = "config"
	MountPointKey     = "mount"
	CapacityKey       = "capacity"
	FSNameKey         = "fsname"
	AllowOtherKey     = "allow-other"
	UIDKey            = "uid"
	GIDKey            = "gid"
	UnmountTimeoutKey = "unmount-timeout"
	LogLevelKey       = "log.level"
	LogFormatKey      = "log.format"
	LogTypeKey        = "log.type"
	LogFileKey        = "log.file"
	LogMaxSizeKey     = "log.max-size"
	LogNumRotatedKey  = "log.num-rotated-files"
	MetricsAddressKey = "metrics.address"
)

// Config is the merged configuration of flags, environment and config file.
type Config struct {
	MountPoint     string         `mapstructure:"mount"`
	Capacity       int            `mapstructure:"capacity"`
	FSName         string         `mapstructure:"fsname"`
	AllowOther     bool           `mapstructure:"allow-other"`
	UID            int            `mapstructure:"uid"`
	GID            int            `mapstructure:"gid"`
	UnmountTimeout time.Duration  `mapstructure:"unmount-timeout"`
	Log            logging.Config `mapstructure:"log"`
	Metrics        MetricsConfig  `mapstructure:"metrics"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Address the Prometheus handler listens on. Empty disables it.
	Address string `mapstructure:"address"`
}

// RegisterFlags defines every configuration flag on flags. Flag defaults are
// also the configuration defaults.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String(ConfigFileKey, "", "Optional config file (TOML, YAML or JSON). Flags and environment variables take precedence.")
	flags.String(MountPointKey, "", "Directory to mount the filesystem on.")
	flags.Int(CapacityKey, table.DefaultCapacity, "Maximum number of directories and, separately, of files. 0 means unbounded.")
	flags.String(FSNameKey, "lsysfs", "Filesystem name reported to the kernel.")
	flags.Bool(AllowOtherKey, false, "Allow users other than the mounting user to access the filesystem.")
	flags.Int(UIDKey, -1, "Owner reported for every entry. -1 uses $PUID or the current user.")
	flags.Int(GIDKey, -1, "Group reported for every entry. -1 uses $PGID or the current group.")
	flags.Duration(UnmountTimeoutKey, 10*time.Second, "How long to wait for the FUSE server to stop after unmounting.")
	flags.String(LogLevelKey, "", "Log level (error, warn, info, debug, trace). Unset uses $LOG_LEVEL, debug when $FUSE_DEBUG is set, or info.")
	flags.String(LogFormatKey, logging.FormatConsole, fmt.Sprintf("Log encoding (%s, %s).", logging.FormatConsole, logging.FormatJSON))
	flags.String(LogTypeKey, logging.TypeStderr, fmt.Sprintf("Log destination (%s, %s, %s).", logging.TypeStdout, logging.TypeStderr, logging.TypeLogFile))
	flags.String(LogFileKey, "/var/log/lsysfs/lsysfs.log", fmt.Sprintf("Log file used when --%s=%s.", LogTypeKey, logging.TypeLogFile))
	flags.Int(LogMaxSizeKey, 100, "Size in megabytes a log file may reach before it is rotated.")
	flags.Int(LogNumRotatedKey, 5, "Number of rotated log files to keep.")
	flags.String(MetricsAddressKey, "", "Address to serve Prometheus metrics on, e.g. :9100. Empty disables metrics.")
}

// Load merges flags, LSYSFS_* environment variables and the optional config
// file into a validated Config. Flags registered by RegisterFlags must already
// be parsed.
func Load(flags *pflag.FlagSet) (Config, error) {
	v := viper.New()

	if err := v.BindPFlags(flags); err != nil {
		return Config{}, fmt.Errorf("unable to bind command line flags: %w", err)
	}

	// LSYSFS_LOG_MAX_SIZE maps to log.max-size.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile := v.GetString(ConfigFileKey); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("unable to read config file %q: %w", cfgFile, err)
		}
	}

	var cfg Config
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	))
	if err := v.Unmarshal(&cfg, hooks); err != nil {
		return Config{}, fmt.Errorf("unable to parse configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid value, not just the first.
func (c Config) Validate() error {
	var errs []error
	if c.MountPoint == "" {
		errs = append(errs, fmt.Errorf("a mount point is required (--%s)", MountPointKey))
	}
	if c.Capacity < 0 {
		errs = append(errs, fmt.Errorf("capacity must not be negative (got %d)", c.Capacity))
	}
	if c.FSName == "" {
		errs = append(errs, errors.New("filesystem name must not be empty"))
	}
	if c.UID < -1 {
		errs = append(errs, fmt.Errorf("invalid uid %d", c.UID))
	}
	if c.GID < -1 {
		errs = append(errs, fmt.Errorf("invalid gid %d", c.GID))
	}
	if c.UnmountTimeout <= 0 {
		errs = append(errs, fmt.Errorf("unmount timeout must be positive (got %s)", c.UnmountTimeout))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}
	return errors.Join(errs...)
}
