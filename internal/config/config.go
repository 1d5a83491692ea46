package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/DevelApp-ai/PluginJobRunner/internal/branding"
	"github.com/DevelApp-ai/PluginJobRunner/internal/security"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Config is the runner configuration.
type Config struct {
	Plugins PluginsConfig `mapstructure:"plugins"`
	Jobs    JobsConfig    `mapstructure:"jobs"`
	Log     LogConfig     `mapstructure:"log"`
}

// PluginsConfig controls executor discovery and admission.
type PluginsConfig struct {
	// Location is the module directory (path or file:// URI).
	Location string `mapstructure:"location"`
	// Retention is how many versions older than the newest are kept.
	Retention int `mapstructure:"retention"`
	// RiskThreshold is the lowest risk level that rejects an executor.
	RiskThreshold      string   `mapstructure:"risk_threshold"`
	DeniedCapabilities []string `mapstructure:"denied_capabilities"`
	RequireChecksum    bool     `mapstructure:"require_checksum"`
	// Builtins exposes compiled-in executors even without a manifest.
	Builtins bool `mapstructure:"builtins"`
	// PluginDebug forwards go-plugin client logs to stderr.
	PluginDebug bool `mapstructure:"plugin_debug"`
}

// JobsConfig controls job execution.
type JobsConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	Concurrency int           `mapstructure:"concurrency"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: stdout, stderr, or file paths
	Outputs     []string       `mapstructure:"outputs"`
	Rotation    RotationConfig `mapstructure:"rotation"`
	Development bool           `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool `mapstructure:"enable"`
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}

// Default returns a Config populated with defaults.
func Default() *Config {
	return &Config{
		Plugins: PluginsConfig{
			Location:      filepath.Join(Dir(), "modules"),
			Retention:     2,
			RiskThreshold: security.RiskHigh.String(),
			Builtins:      true,
		},
		Jobs: JobsConfig{
			Timeout:     5 * time.Minute,
			Concurrency: 4,
		},
		Log: LogConfig{
			Level:   "warn",
			Format:  "console",
			Outputs: []string{"stderr"},
			Rotation: RotationConfig{
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
	}
}

// Dir returns the path to the config directory (~/.jobrunner/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.jobrunner/config.yaml).
// The JOBRUNNER_CONFIG environment variable overrides it.
func FilePath() string {
	if p := os.Getenv(branding.EnvVar("config")); p != "" {
		return p
	}
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the directory holding path if it does not exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

func newViper(path string) *viper.Viper {
	cfg := Default()
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(fileType)
	v.SetEnvPrefix(branding.EnvPrefix())
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Defaults are seeded so env-only configs work.
	v.SetDefault("plugins.location", cfg.Plugins.Location)
	v.SetDefault("plugins.retention", cfg.Plugins.Retention)
	v.SetDefault("plugins.risk_threshold", cfg.Plugins.RiskThreshold)
	v.SetDefault("plugins.denied_capabilities", cfg.Plugins.DeniedCapabilities)
	v.SetDefault("plugins.require_checksum", cfg.Plugins.RequireChecksum)
	v.SetDefault("plugins.builtins", cfg.Plugins.Builtins)
	v.SetDefault("plugins.plugin_debug", cfg.Plugins.PluginDebug)
	v.SetDefault("jobs.timeout", cfg.Jobs.Timeout)
	v.SetDefault("jobs.concurrency", cfg.Jobs.Concurrency)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
	return v
}

// Load reads the config file at path (FilePath when empty) and applies
// environment overrides, e.g. JOBRUNNER_PLUGINS_LOCATION. A missing file is
// not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = FilePath()
	}
	v := newViper(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Threshold returns the parsed risk threshold.
func (c *PluginsConfig) Threshold() security.RiskLevel {
	lvl, err := security.ParseRiskLevel(c.RiskThreshold)
	if err != nil {
		return security.RiskHigh
	}
	return lvl
}

func (c *Config) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	if _, err := security.ParseRiskLevel(c.Plugins.RiskThreshold); err != nil {
		return fmt.Errorf("invalid plugins.risk_threshold: %w", err)
	}
	if c.Plugins.Retention < 0 {
		return fmt.Errorf("invalid plugins.retention: %d", c.Plugins.Retention)
	}
	if c.Jobs.Concurrency < 1 {
		c.Jobs.Concurrency = 1
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stderr"}
	}
	return nil
}

// Keys lists every recognized configuration key.
func Keys() []string {
	keys := newViper(os.DevNull).AllKeys()
	slices.Sort(keys)
	return keys
}

// Get returns a config value by key from the file at path, with
// environment overrides and defaults applied. Returns "" if unknown.
func Get(path, key string) (string, error) {
	if path == "" {
		path = FilePath()
	}
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return "", fmt.Errorf("read config: %w", err)
		}
	}
	val := v.Get(key)
	switch t := val.(type) {
	case nil:
		return "", nil
	case []string:
		return strings.Join(t, ","), nil
	case []any:
		parts := make([]string, len(t))
		for i, p := range t {
			parts[i] = fmt.Sprint(p)
		}
		return strings.Join(parts, ","), nil
	default:
		return fmt.Sprint(t), nil
	}
}

// Set writes a config key-value pair to the file at path and saves it.
// Only keys listed by Keys are accepted.
func Set(path, key, value string) error {
	if path == "" {
		path = FilePath()
	}
	key = strings.ToLower(key)
	if !slices.Contains(Keys(), key) {
		return fmt.Errorf("unknown config key %q", key)
	}
	if err := EnsureDir(path); err != nil {
		return err
	}

	// A plain viper without defaults or env so only explicit keys are written.
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(fileType)
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	var typed any = value
	if strings.HasSuffix(key, "outputs") || strings.HasSuffix(key, "capabilities") {
		var parts []string
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		typed = parts
	}
	v.Set(key, typed)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
