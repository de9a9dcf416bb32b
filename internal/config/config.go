// Package config loads server, scheduler, and default auto-completion
// settings from an optional splitsignal.yaml, environment variables
// (SPLITSIGNAL_ prefix), and built-in defaults, in that priority order.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/splitsignal/splitsignal/internal/engine"
)

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type SchedulerConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type AutoCompleteConfig struct {
	Enabled             bool    `mapstructure:"enabled"`
	MinimumSampleSize   int     `mapstructure:"minimum_sample_size"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
}

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	AutoComplete AutoCompleteConfig `mapstructure:"autocomplete"`
}

// DefaultPolicy is the auto-completion policy applied to tests that
// don't override it.
func (c *Config) DefaultPolicy() engine.Policy {
	return engine.Policy{
		AutoCompleteEnabled: c.AutoComplete.Enabled,
		MinimumSampleSize:   c.AutoComplete.MinimumSampleSize,
		ConfidenceThreshold: c.AutoComplete.ConfidenceThreshold,
	}
}

// Load reads configuration. path may be empty, in which case only the
// working directory is searched; a missing config file is fine, defaults
// apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8173)
	v.SetDefault("scheduler.interval", "15m")
	v.SetDefault("autocomplete.enabled", true)
	v.SetDefault("autocomplete.minimum_sample_size", 100)
	v.SetDefault("autocomplete.confidence_threshold", 95.0)

	v.SetEnvPrefix("SPLITSIGNAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("splitsignal")
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine unless one was named explicitly.
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.AutoComplete.ConfidenceThreshold <= 0 || cfg.AutoComplete.ConfidenceThreshold > 100 {
		return nil, fmt.Errorf("autocomplete.confidence_threshold must be in (0, 100], got %v",
			cfg.AutoComplete.ConfidenceThreshold)
	}
	if cfg.AutoComplete.MinimumSampleSize < 0 {
		return nil, fmt.Errorf("autocomplete.minimum_sample_size must not be negative, got %d",
			cfg.AutoComplete.MinimumSampleSize)
	}

	return &cfg, nil
}
