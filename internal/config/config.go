// Package config loads artic-select settings from defaults, an optional YAML
// file, a .env file and ARTIC_SELECT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Sternrassler/artic-select/pkg/client"
	"github.com/Sternrassler/artic-select/pkg/pagination"
)

// EnvPrefix prefixes every environment override, e.g. ARTIC_SELECT_API_PAGE_SIZE.
const EnvPrefix = "ARTIC_SELECT"

// PathEnv names the variable holding an explicit config file path.
const PathEnv = "ARTIC_SELECT_CONFIG"

// Config holds application configuration.
type Config struct {
	API    APIConfig    `mapstructure:"api"`
	Bulk   BulkConfig   `mapstructure:"bulk"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
}

// APIConfig holds upstream settings.
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	PageSize  int           `mapstructure:"page_size"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// BulkConfig holds bulk selection settings.
type BulkConfig struct {
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	PageTimeout    time.Duration `mapstructure:"page_timeout"`
}

// RedisConfig enables the page cache when Addr is set.
type RedisConfig struct {
	Addr string `mapstructure:"addr"`
	DB   int    `mapstructure:"db"`
}

// ServerConfig holds HTTP surface settings.
type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Load reads configuration. A missing config file or .env is not an error;
// a malformed one is.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path := os.Getenv(PathEnv); path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "artic-select"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	bulk := pagination.DefaultConfig()

	v.SetDefault("api.base_url", client.DefaultBaseURL)
	v.SetDefault("api.page_size", bulk.PageSize)
	v.SetDefault("api.user_agent", "artic-select/0.1.0")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("bulk.max_concurrency", bulk.MaxConcurrency)
	v.SetDefault("bulk.page_timeout", bulk.PageTimeout)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:4200"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Validate rejects settings no component can work with.
func (c Config) Validate() error {
	if c.API.UserAgent == "" {
		return fmt.Errorf("api.user_agent is required")
	}
	if c.API.PageSize < 1 {
		return fmt.Errorf("api.page_size must be positive (got %d)", c.API.PageSize)
	}
	if c.Bulk.MaxConcurrency < 1 {
		return fmt.Errorf("bulk.max_concurrency must be positive (got %d)", c.Bulk.MaxConcurrency)
	}
	return nil
}

// ClientConfig derives the page client settings. Redis is left for the
// caller to attach.
func (c Config) ClientConfig() client.Config {
	cfg := client.DefaultConfig(c.API.UserAgent)
	cfg.BaseURL = c.API.BaseURL
	cfg.Timeout = c.API.Timeout
	return cfg
}

// AssemblerConfig derives the bulk assembler settings.
func (c Config) AssemblerConfig() pagination.Config {
	cfg := pagination.DefaultConfig()
	cfg.PageSize = c.API.PageSize
	cfg.MaxConcurrency = c.Bulk.MaxConcurrency
	cfg.PageTimeout = c.Bulk.PageTimeout
	return cfg
}
