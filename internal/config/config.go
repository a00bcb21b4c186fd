// Package config loads and watches the application configuration.
//
// Configuration is layered: built-in defaults, then the YAML file under the
// config directory, then REMIND_* environment variables. A running daemon
// can react to file edits through Watch.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config is the full application configuration.
type Config struct {
	// DataDir holds the local store database and daemon state.
	DataDir string `mapstructure:"data_dir"`

	// Timezone is the default zone for parsing natural-language times.
	// Empty means the system's local zone.
	Timezone string `mapstructure:"timezone"`

	Remote    Remote    `mapstructure:"remote"`
	Parser    Parser    `mapstructure:"parser"`
	Daemon    Daemon    `mapstructure:"daemon"`
	Dashboard Dashboard `mapstructure:"dashboard"`
	Log       Log       `mapstructure:"log"`
}

// Remote configures the remote mirror connection.
type Remote struct {
	// URL is the libSQL DSN: libsql://... for a hosted database or
	// file:... for a local one. Empty disables syncing entirely.
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// Parser configures natural-language parsing.
type Parser struct {
	// AnthropicAPIKey enables the model-backed parser. Empty means the
	// rule-based parser only.
	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`
	Model           string `mapstructure:"model"`
}

// Daemon configures the background process.
type Daemon struct {
	// ResyncInterval is a cron @every duration for the periodic sweep.
	ResyncInterval time.Duration `mapstructure:"resync_interval"`
}

// Dashboard configures the WebSocket dashboard.
type Dashboard struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Log configures daemon log rotation.
type Log struct {
	// File is the rotated log destination. Empty logs to stderr.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// DefaultDir returns the default configuration directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "remind")
}

// Loader owns the viper instance so the configuration can be re-read when
// the file changes.
type Loader struct {
	v *viper.Viper
}

// Load reads the configuration from dir. A missing file is not an error;
// defaults and environment variables still apply.
func Load(dir string) (*Loader, *Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("REMIND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("data_dir", filepath.Join(dir, "data"))
	v.SetDefault("timezone", "")
	v.SetDefault("remote.url", "")
	v.SetDefault("remote.auth_token", "")
	v.SetDefault("parser.anthropic_api_key", "")
	v.SetDefault("parser.model", "")
	v.SetDefault("daemon.resync_interval", 5*time.Minute)
	v.SetDefault("dashboard.enabled", false)
	v.SetDefault("dashboard.port", 8080)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 30)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, nil, err
	}
	return &Loader{v: v}, cfg, nil
}

// Watch re-reads the configuration whenever the file changes and calls fn
// with the fresh result. Invalid edits are reported to fn as an error with
// the previous configuration left in effect.
func (l *Loader) Watch(fn func(*Config, error)) {
	l.v.OnConfigChange(func(fsnotify.Event) {
		cfg, err := unmarshal(l.v)
		fn(cfg, err)
	})
	l.v.WatchConfig()
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// StorePath returns the local store database location.
func (c *Config) StorePath() string {
	return filepath.Join(c.DataDir, "remind.db")
}

// LogWriter returns the daemon log destination: a size-rotated file when
// one is configured, stderr otherwise.
func (c *Config) LogWriter() io.Writer {
	if c.Log.File == "" {
		return os.Stderr
	}
	return &lumberjack.Logger{
		Filename:   c.Log.File,
		MaxSize:    c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAge:     c.Log.MaxAgeDays,
		Compress:   true,
	}
}
