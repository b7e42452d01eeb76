package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Remote   RemoteConfig   `toml:"remote"`
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
}

// RemoteConfig describes the scrape service endpoint.
type RemoteConfig struct {
	BaseURL           string        `toml:"base_url" validate:"required,url"`
	ScrapePath        string        `toml:"scrape_path" default:"/api/scrape-playlist" validate:"required,startswith=/"`
	HealthPath        string        `toml:"health_path" default:"/api/health" validate:"required,startswith=/"`
	Timeout           time.Duration `toml:"timeout" default:"2m" validate:"gt=0"`
	RequestsPerSecond float64       `toml:"requests_per_second" default:"0.5" validate:"gt=0"`
	DownloadPath      string        `toml:"download_path"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" default:"./sunnify.db" validate:"required"`
	MaxOpenConns int    `toml:"max_open_conns" default:"1" validate:"gte=1"`
	MaxIdleConns int    `toml:"max_idle_conns" default:"1" validate:"gte=0"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level" default:"info" validate:"oneof=debug info warn error fatal"`
	File  string `toml:"file" default:"./tmp/sunnify-tui.log"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Environment variables override file values, then defaults fill anything left empty.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.overrideFromEnv()

	if err := defaults.Set(&config); err != nil {
		return nil, fmt.Errorf("failed to set defaults: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.overrideFromEnv()
	if err := defaults.Set(&config); err != nil {
		panic(fmt.Sprintf("failed to set config defaults: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the configuration against its struct constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ScrapeURL returns the absolute URL of the scrape endpoint.
func (c *Config) ScrapeURL() string {
	return c.Remote.BaseURL + c.Remote.ScrapePath
}

func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SUNNIFY_BASE_URL"); v != "" {
		c.Remote.BaseURL = v
	}
	if v := os.Getenv("SUNNIFY_DOWNLOAD_PATH"); v != "" {
		c.Remote.DownloadPath = v
	}
	if v := os.Getenv("SUNNIFY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Remote.Timeout = d
		}
	}
	if v := os.Getenv("SUNNIFY_REQUESTS_PER_SECOND"); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			c.Remote.RequestsPerSecond = rps
		}
	}
	if v := os.Getenv("SUNNIFY_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}
