package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"CandleQuery/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	ObjStore struct {
		Endpoint       string        `yaml:"endpoint"`
		Region         string        `yaml:"region"`
		AccessKey      string        `yaml:"access_key"`
		SecretKey      string        `yaml:"secret_key"`
		UseSSL         bool          `yaml:"use_ssl"`
		Bucket         string        `yaml:"bucket"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
	} `yaml:"objstore"`
	Engine struct {
		Type       string `yaml:"type"` // parquet or clickhouse
		ClickHouse struct {
			Host             string        `yaml:"host"`
			Port             int           `yaml:"port"`
			Database         string        `yaml:"database"`
			User             string        `yaml:"user"`
			Password         string        `yaml:"password"`
			DialTimeout      time.Duration `yaml:"dial_timeout"`
			ReadTimeout      time.Duration `yaml:"read_timeout"`
			MaxExecutionTime time.Duration `yaml:"max_execution_time"`
		} `yaml:"clickhouse"`
	} `yaml:"engine"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Cache struct {
		MemoryMaxSize int           `yaml:"memory_max_size"`
		CurrentDayTTL time.Duration `yaml:"current_day_ttl"`
		MetadataTTL   time.Duration `yaml:"metadata_ttl"`
	} `yaml:"cache"`
	Limits struct {
		MaxRecords    int                `yaml:"max_records"`
		MaxDays       map[string]int     `yaml:"max_days"`
		RecordsPerDay map[string]float64 `yaml:"records_per_day"`
		AutoAdjust    struct {
			Enabled         bool `yaml:"enabled"`
			HourlyAfterDays int  `yaml:"hourly_after_days"`
			DailyAfterDays  int  `yaml:"daily_after_days"`
		} `yaml:"auto_adjust"`
		MinuteSourceMaxDays int `yaml:"minute_source_max_days"`
	} `yaml:"limits"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("OBJSTORE_ENDPOINT"); v != "" {
		c.ObjStore.Endpoint = v
	}
	if v := os.Getenv("OBJSTORE_ACCESS_KEY"); v != "" {
		c.ObjStore.AccessKey = v
	}
	if v := os.Getenv("OBJSTORE_SECRET_KEY"); v != "" {
		c.ObjStore.SecretKey = v
	}
	if v := os.Getenv("OBJSTORE_BUCKET"); v != "" {
		c.ObjStore.Bucket = v
	}
	if v := os.Getenv("ENGINE"); v != "" {
		c.Engine.Type = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		c.Redis.Port = util.ParseIntDefault(v, c.Redis.Port)
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.ObjStore.Region == "" {
		c.ObjStore.Region = "us-east-1"
	}
	if c.ObjStore.RequestTimeout == 0 {
		c.ObjStore.RequestTimeout = 30 * time.Second
	}
	if c.Engine.Type == "" {
		c.Engine.Type = "parquet"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "candlequery"
	}
	if c.Cache.MemoryMaxSize == 0 {
		c.Cache.MemoryMaxSize = 1000
	}
	if c.Cache.CurrentDayTTL == 0 {
		c.Cache.CurrentDayTTL = 60 * time.Second
	}
	if c.Cache.MetadataTTL == 0 {
		c.Cache.MetadataTTL = 5 * time.Minute
	}
	if c.Limits.MaxRecords == 0 {
		c.Limits.MaxRecords = 50000
	}
	if len(c.Limits.MaxDays) == 0 {
		c.Limits.MaxDays = DefaultMaxDays()
	}
	if len(c.Limits.RecordsPerDay) == 0 {
		c.Limits.RecordsPerDay = DefaultRecordsPerDay()
	}
	if c.Limits.AutoAdjust.HourlyAfterDays == 0 {
		c.Limits.AutoAdjust.HourlyAfterDays = 30
	}
	if c.Limits.AutoAdjust.DailyAfterDays == 0 {
		c.Limits.AutoAdjust.DailyAfterDays = 365
	}
	if c.Limits.MinuteSourceMaxDays == 0 {
		c.Limits.MinuteSourceMaxDays = 7
	}
}

// DefaultMaxDays is the per-timeframe day-span limit table. Values are
// product configuration, not invariants.
func DefaultMaxDays() map[string]int {
	return map[string]int{
		"1m": 30, "5m": 90, "15m": 180, "30m": 365,
		"1h": 730, "4h": 1460, "1d": 3650, "1w": 7300,
		"1M": 10950, "1Y": 36500,
	}
}

// DefaultRecordsPerDay estimates records produced per calendar day per
// timeframe, used for pre-query size checks.
func DefaultRecordsPerDay() map[string]float64 {
	return map[string]float64{
		"1m": 1440, "5m": 288, "15m": 96, "30m": 48,
		"1h": 24, "4h": 6, "1d": 1, "1w": 1.0 / 7,
		"1M": 1.0 / 30, "1Y": 1.0 / 365,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Engine.Type != "parquet" && c.Engine.Type != "clickhouse" {
		return fmt.Errorf("engine.type must be 'parquet' or 'clickhouse', got '%s'", c.Engine.Type)
	}
	if c.ObjStore.Bucket == "" {
		return fmt.Errorf("objstore.bucket is required")
	}
	if c.Engine.Type == "clickhouse" && c.Engine.ClickHouse.Host == "" {
		return fmt.Errorf("engine.clickhouse.host is required for the clickhouse engine")
	}
	return nil
}
