package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// Defaults for the reader and cache limits.
const (
	DefaultCacheCapacity     = 512
	DefaultMaxDescriptorSize = 10 << 20
	DefaultMaxPayloadSize    = 256 << 20
)

type Config struct {
	CacheCapacity     int    `mapstructure:"cache_capacity"`
	Workers           int    `mapstructure:"workers"`
	MaxDescriptorSize int64  `mapstructure:"max_descriptor_size"`
	MaxPayloadSize    int64  `mapstructure:"max_payload_size"`
	LogLevel          string `mapstructure:"log_level"`
	LogFormat         string `mapstructure:"log_format"`
}

// Load reads configuration from cfgFile, or from wadinfo.yaml in the home
// or working directory when cfgFile is empty. WADINFO_* environment
// variables override file values.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("cache_capacity", DefaultCacheCapacity)
	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("max_descriptor_size", DefaultMaxDescriptorSize)
	v.SetDefault("max_payload_size", DefaultMaxPayloadSize)
	v.SetDefault("log_level", LogLevelInfo)
	v.SetDefault("log_format", LogFormatText)

	v.SetEnvPrefix("WADINFO")
	v.AutomaticEnv()

	// Config file handling
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		v.AddConfigPath(home)
		v.AddConfigPath(".")
		v.SetConfigName("wadinfo")
		v.SetConfigType("yaml")
	}

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field and is also run after command-line overrides.
func (c *Config) Validate() error {
	if err := validateLimits(c); err != nil {
		return fmt.Errorf("invalid limit configuration: %w", err)
	}
	if err := validateLogging(c.LogLevel, c.LogFormat); err != nil {
		return fmt.Errorf("invalid logging configuration: %w", err)
	}
	return nil
}
