package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	Dataset  DatasetConfig  `mapstructure:"dataset"`
	Forecast ForecastConfig `mapstructure:"forecast"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Backend         string `mapstructure:"backend"`
	DataBucket      string `mapstructure:"data_bucket"`
	ChartsBucket    string `mapstructure:"charts_bucket"`
	CredentialsFile string `mapstructure:"credentials_file"`
	BaseDir         string `mapstructure:"base_dir"`
	PublicCharts    bool   `mapstructure:"public_charts"`
}

// DatasetConfig holds the object keys of the exported CSV files
type DatasetConfig struct {
	OrdersKey string `mapstructure:"orders_key"`
	EventsKey string `mapstructure:"events_key"`
	OutputKey string `mapstructure:"output_key"`
}

// ForecastConfig holds forecasting behavior configuration
type ForecastConfig struct {
	MinOrders     int     `mapstructure:"min_orders"`
	Capacity      float64 `mapstructure:"capacity"`
	IntervalWidth float64 `mapstructure:"interval_width"`
	MaxEvents     int     `mapstructure:"max_events"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// ServerConfig holds the optional HTTP trigger configuration
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from an optional YAML file and environment
// variables. An empty path skips the file and relies on defaults plus
// REVCAST_-prefixed environment overrides.
func Load(path string) (*Config, error) {
	// Load .env if present; absence is fine
	_ = godotenv.Load()

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("REVCAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Storage defaults
	v.SetDefault("storage.backend", "gcs")
	v.SetDefault("storage.data_bucket", "revcast-data")
	v.SetDefault("storage.charts_bucket", "revcast-charts")
	v.SetDefault("storage.credentials_file", "")
	v.SetDefault("storage.base_dir", "./data")
	v.SetDefault("storage.public_charts", true)

	// Dataset defaults
	v.SetDefault("dataset.orders_key", "order_data.csv")
	v.SetDefault("dataset.events_key", "event_data.csv")
	v.SetDefault("dataset.output_key", "forecast.csv")

	// Forecast defaults
	v.SetDefault("forecast.min_orders", 50)
	v.SetDefault("forecast.capacity", 1.0)
	v.SetDefault("forecast.interval_width", 0.8)
	v.SetDefault("forecast.max_events", 0)

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Server defaults
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.listen", ":8080")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Storage config
	if c.Storage.Backend != "gcs" && c.Storage.Backend != "local" {
		return fmt.Errorf("storage.backend must be one of: gcs, local")
	}
	if c.Storage.DataBucket == "" {
		return fmt.Errorf("storage.data_bucket is required")
	}
	if c.Storage.ChartsBucket == "" {
		return fmt.Errorf("storage.charts_bucket is required")
	}
	if c.Storage.Backend == "local" && c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir is required for the local backend")
	}

	// Validate Dataset config
	if c.Dataset.OrdersKey == "" {
		return fmt.Errorf("dataset.orders_key is required")
	}
	if c.Dataset.EventsKey == "" {
		return fmt.Errorf("dataset.events_key is required")
	}
	if c.Dataset.OutputKey == "" {
		return fmt.Errorf("dataset.output_key is required")
	}

	// Validate Forecast config
	if c.Forecast.MinOrders < 1 {
		return fmt.Errorf("forecast.min_orders must be at least 1")
	}
	if c.Forecast.Capacity <= 0 {
		return fmt.Errorf("forecast.capacity must be positive")
	}
	if c.Forecast.IntervalWidth <= 0.0 || c.Forecast.IntervalWidth >= 1.0 {
		return fmt.Errorf("forecast.interval_width must be strictly between 0.0 and 1.0")
	}
	if c.Forecast.MaxEvents < 0 {
		return fmt.Errorf("forecast.max_events must not be negative")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Server config
	if c.Server.Enabled && c.Server.Listen == "" {
		return fmt.Errorf("server.listen is required when the server is enabled")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
