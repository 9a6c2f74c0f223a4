// Package config loads the widget settings from an optional YAML file, a .env file
// and COINCONV_ environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g. COINCONV_API_BASE_URL
const EnvPrefix = "COINCONV"

// Storage drivers
const (
	DriverBadger = "badger"
	DriverSQLite = "sqlite"
)

// Config represents the complete application configuration
type Config struct {
	API      APIConfig      `mapstructure:"api"      yaml:"api"`
	Exchange ExchangeConfig `mapstructure:"exchange" yaml:"exchange"`
	Storage  StorageConfig  `mapstructure:"storage"  yaml:"storage"`
	Server   ServerConfig   `mapstructure:"server"   yaml:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
}

// APIConfig holds the remote coin API settings
type APIConfig struct {
	BaseURL           string        `mapstructure:"base_url"            yaml:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"             yaml:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"` // 0 disables limiting
}

// ExchangeConfig holds the conversion behaviour settings
type ExchangeConfig struct {
	MaxDecimals   int           `mapstructure:"max_decimals"   yaml:"max_decimals"`
	DebounceDelay time.Duration `mapstructure:"debounce_delay" yaml:"debounce_delay"` // view-layer search debounce
	CacheTTL      time.Duration `mapstructure:"cache_ttl"      yaml:"cache_ttl"`
	DefaultFrom   string        `mapstructure:"default_from"   yaml:"default_from"`
	DefaultTo     string        `mapstructure:"default_to"     yaml:"default_to"`
}

// StorageConfig holds the session persistence settings
type StorageConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"` // "badger" or "sqlite"
	Path   string `mapstructure:"path"   yaml:"path"`
	Key    string `mapstructure:"key"    yaml:"key"`
}

// ServerConfig holds the HTTP view surface settings
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"` // "debug", "info", "warn", "error"
}

// Load reads the configuration. When path is empty the file is looked up as
// ./config/coinconv.yaml and then ./coinconv.yaml; a missing file is not an error.
// A .env file in the working directory is loaded first and never overrides
// variables already set in the environment.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // .env is optional

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("coinconv")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(".", "config"))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration with only defaults applied
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// Defaults always decode
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:3000/api")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("api.requests_per_second", 0)

	v.SetDefault("exchange.max_decimals", 6)
	v.SetDefault("exchange.debounce_delay", 300*time.Millisecond)
	v.SetDefault("exchange.cache_ttl", time.Minute)
	v.SetDefault("exchange.default_from", "BTC")
	v.SetDefault("exchange.default_to", "ETH")

	v.SetDefault("storage.driver", DriverBadger)
	v.SetDefault("storage.path", filepath.Join(".", "data"))
	v.SetDefault("storage.key", "exchange-state")

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("logging.level", "info")
}

// Validate checks values that would otherwise fail later at startup
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if c.API.RequestsPerSecond < 0 {
		return fmt.Errorf("api.requests_per_second must not be negative, got %v", c.API.RequestsPerSecond)
	}
	if c.Exchange.MaxDecimals <= 0 {
		return fmt.Errorf("exchange.max_decimals must be positive, got %d", c.Exchange.MaxDecimals)
	}
	if c.Exchange.CacheTTL <= 0 {
		return fmt.Errorf("exchange.cache_ttl must be positive, got %s", c.Exchange.CacheTTL)
	}
	switch c.Storage.Driver {
	case DriverBadger, DriverSQLite:
	default:
		return fmt.Errorf("unsupported storage.driver %q", c.Storage.Driver)
	}
	if c.Storage.Key == "" {
		return errors.New("storage.key is required")
	}
	return nil
}

// Dump renders the effective configuration as YAML
func (c *Config) Dump() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return out, nil
}

// MarshalYAML writes the timeout in time.Duration notation
func (c APIConfig) MarshalYAML() (interface{}, error) {
	return struct {
		BaseURL           string  `yaml:"base_url"`
		Timeout           string  `yaml:"timeout"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
	}{c.BaseURL, c.Timeout.String(), c.RequestsPerSecond}, nil
}

// MarshalYAML writes durations in time.Duration notation
func (c ExchangeConfig) MarshalYAML() (interface{}, error) {
	return struct {
		MaxDecimals   int    `yaml:"max_decimals"`
		DebounceDelay string `yaml:"debounce_delay"`
		CacheTTL      string `yaml:"cache_ttl"`
		DefaultFrom   string `yaml:"default_from"`
		DefaultTo     string `yaml:"default_to"`
	}{c.MaxDecimals, c.DebounceDelay.String(), c.CacheTTL.String(), c.DefaultFrom, c.DefaultTo}, nil
}
