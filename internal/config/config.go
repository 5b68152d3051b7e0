// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Report() ReportConfig
	Batch() BatchConfig
	Watch() WatchConfig
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg LoggerConfig `mapstructure:"logger" yaml:"logger"`
	ReportCfg ReportConfig `mapstructure:"report" yaml:"report"`
	BatchCfg  BatchConfig  `mapstructure:"batch" yaml:"batch"`
	WatchCfg  WatchConfig  `mapstructure:"watch" yaml:"watch"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig { return c.LoggerCfg }
func (c *Config) Report() ReportConfig { return c.ReportCfg }
func (c *Config) Batch() BatchConfig   { return c.BatchCfg }
func (c *Config) Watch() WatchConfig   { return c.WatchCfg }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// ReportConfig tunes report assembly and serialization.
type ReportConfig struct {
	// Provider labels the upstream model provider in cross-agent commentary.
	Provider string `mapstructure:"provider" yaml:"provider"`
	// RoleNames overrides the display name per task key, e.g.
	// market_analysis: "Quant Desk".
	RoleNames map[string]string `mapstructure:"role_names" yaml:"role_names"`
	// Format selects input interpretation: auto, text or state.
	Format string `mapstructure:"format" yaml:"format"`
	Pretty bool   `mapstructure:"pretty" yaml:"pretty"`
}

// BatchConfig configures the concurrent directory normalizer.
type BatchConfig struct {
	Glob        string `mapstructure:"glob" yaml:"glob"`
	OutDir      string `mapstructure:"out_dir" yaml:"out_dir"`
	Concurrency int    `mapstructure:"concurrency" yaml:"concurrency"`
}

// WatchConfig configures the event-log follower.
type WatchConfig struct {
	// Interval is the minimum delay between report rebuilds while events
	// stream in.
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	Burst    int           `mapstructure:"burst" yaml:"burst"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "fintel")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Report --
	v.SetDefault("report.provider", "")
	v.SetDefault("report.format", "auto")
	v.SetDefault("report.pretty", true)

	// -- Batch --
	v.SetDefault("batch.glob", "*.json")
	v.SetDefault("batch.out_dir", "")
	v.SetDefault("batch.concurrency", 4)

	// -- Watch --
	v.SetDefault("watch.interval", "2s")
	v.SetDefault("watch.burst", 1)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Shorthand for the most commonly overridden key.
	v.BindEnv("report.provider", "FINTEL_PROVIDER")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	switch c.ReportCfg.Format {
	case "auto", "text", "state":
	default:
		return fmt.Errorf("report.format must be one of auto, text, state")
	}
	if c.BatchCfg.Concurrency <= 0 {
		return fmt.Errorf("batch.concurrency must be a positive integer")
	}
	if err := c.WatchCfg.Validate(); err != nil {
		return fmt.Errorf("watch configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the watch follower settings.
func (w *WatchConfig) Validate() error {
	if w.Interval <= 0 {
		return fmt.Errorf("interval must be a positive duration")
	}
	if w.Burst <= 0 {
		return fmt.Errorf("burst must be a positive integer")
	}
	return nil
}
