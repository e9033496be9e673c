package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"StockCharts/internal/services/indicators"
	"StockCharts/internal/services/timerange"
	xutil "StockCharts/pkg/util"
)

const (
	ProviderYahoo      = "yahoo"
	ProviderClickHouse = "clickhouse"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host" default:"127.0.0.1"`
		Port            int           `yaml:"port" default:"8050"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		RequestTimeout  time.Duration `yaml:"request_timeout" default:"20s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"2s"`
		CORSOrigins     []string      `yaml:"cors_origins" default:"[\"*\"]"`
	} `yaml:"server"`
	Log struct {
		Level      string `yaml:"level" default:"info"`
		Format     string `yaml:"format" default:"console"`
		Output     string `yaml:"output" default:"stdout"`
		TimeFormat string `yaml:"time_format"`
		Collector  struct {
			Enabled   bool          `yaml:"enabled"`
			Topic     string        `yaml:"topic" default:"stockcharts.logs"`
			Interval  time.Duration `yaml:"interval" default:"30s"`
			Threshold int           `yaml:"threshold" default:"100"`
		} `yaml:"collector"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool `yaml:"enabled" default:"true"`
	} `yaml:"metrics"`
	RateLimit struct {
		Enabled       bool          `yaml:"enabled" default:"true"`
		Capacity      float64       `yaml:"capacity" default:"30"`
		RefillPerSec  float64       `yaml:"refill_per_sec" default:"1"`
		PruneInterval time.Duration `yaml:"prune_interval" default:"10m"`
	} `yaml:"rate_limit"`
	Provider struct {
		Type    string        `yaml:"type" default:"yahoo"`
		Timeout time.Duration `yaml:"timeout" default:"15s"`
	} `yaml:"provider"`
	Yahoo struct {
		HistoryStart string `yaml:"history_start" default:"1970-01-02"`
		PricePlaces  int32  `yaml:"price_places" default:"4"`
	} `yaml:"yahoo"`
	Cache struct {
		TTL    time.Duration `yaml:"ttl" default:"1h"`
		Memory struct {
			MaxSize         int           `yaml:"max_size" default:"256"`
			CleanupInterval time.Duration `yaml:"cleanup_interval" default:"5m"`
		} `yaml:"memory"`
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			PoolSize int    `yaml:"pool_size" default:"10"`
			Prefix   string `yaml:"prefix" default:"stockcharts"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Archive          bool          `yaml:"archive"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"stockcharts"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert" default:"true"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxOpenConns     int           `yaml:"max_open_conns" default:"10"`
		MaxIdleConns     int           `yaml:"max_idle_conns" default:"5"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
		BarsTable        string        `yaml:"bars_table" default:"daily_bars"`
		SymbolsTable     string        `yaml:"symbols_table" default:"symbols"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers" default:"[\"localhost:9092\"]"`
		ChartTopic   string   `yaml:"chart_topic" default:"stockcharts.charts"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async" default:"true"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Pipeline struct {
		DefaultSymbol string            `yaml:"default_symbol" default:"^DJI"`
		DefaultRange  string            `yaml:"default_range" default:"ytd"`
		ComputeScope  string            `yaml:"compute_scope" default:"window"`
		Indicators    indicators.Params `yaml:"indicators"`
		Axes          struct {
			PriceOffsetPct float64 `yaml:"price_offset_pct" default:"0.01"`
			VolumeShare    float64 `yaml:"volume_share" default:"0.08"`
		} `yaml:"axes"`
	} `yaml:"pipeline"`
	Warmup struct {
		Enabled  bool          `yaml:"enabled"`
		Schedule string        `yaml:"schedule" default:"@every 15m"`
		Symbols  []string      `yaml:"symbols" default:"[\"^DJI\"]"`
		OnStart  bool          `yaml:"on_start" default:"true"`
		Timeout  time.Duration `yaml:"timeout" default:"2m"`
	} `yaml:"warmup"`
}

// Default returns a config holding only default values.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}
	return &c, nil
}

func load(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return c, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

// Load reads and parses a YAML configuration file on top of the defaults.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	c, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with STOCKCHARTS_*
// environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadDotEnv loads .env style files into the process environment. Missing
// files are skipped; variables already set win.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str("STOCKCHARTS_ENV", &c.Environment)
	str("STOCKCHARTS_HOST", &c.Server.Host)
	c.Server.Port = xutil.ParseIntDefault(getenv("STOCKCHARTS_PORT"), c.Server.Port)
	str("STOCKCHARTS_LOG_LEVEL", &c.Log.Level)
	str("STOCKCHARTS_LOG_FORMAT", &c.Log.Format)
	str("STOCKCHARTS_PROVIDER", &c.Provider.Type)
	str("STOCKCHARTS_DEFAULT_SYMBOL", &c.Pipeline.DefaultSymbol)
	str("STOCKCHARTS_DEFAULT_RANGE", &c.Pipeline.DefaultRange)
	str("STOCKCHARTS_COMPUTE_SCOPE", &c.Pipeline.ComputeScope)

	c.Cache.Redis.Enabled = xutil.ParseBoolDefault(getenv("STOCKCHARTS_REDIS_ENABLED"), c.Cache.Redis.Enabled)
	str("STOCKCHARTS_REDIS_HOST", &c.Cache.Redis.Host)
	str("STOCKCHARTS_REDIS_PASSWORD", &c.Cache.Redis.Password)

	c.ClickHouse.Enabled = xutil.ParseBoolDefault(getenv("STOCKCHARTS_CLICKHOUSE_ENABLED"), c.ClickHouse.Enabled)
	str("STOCKCHARTS_CLICKHOUSE_HOST", &c.ClickHouse.Host)
	str("STOCKCHARTS_CLICKHOUSE_USER", &c.ClickHouse.User)
	str("STOCKCHARTS_CLICKHOUSE_PASSWORD", &c.ClickHouse.Password)

	c.Kafka.Enabled = xutil.ParseBoolDefault(getenv("STOCKCHARTS_KAFKA_ENABLED"), c.Kafka.Enabled)
	if v := xutil.SplitList(getenv("STOCKCHARTS_KAFKA_BROKERS")); len(v) > 0 {
		c.Kafka.Brokers = v
	}
	if v := xutil.SplitList(getenv("STOCKCHARTS_WARMUP_SYMBOLS")); len(v) > 0 {
		c.Warmup.Symbols = v
	}
}

// Validate checks if the configuration is valid. A config that fails here
// must stop startup.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be 'json' or 'console', got '%s'", c.Log.Format)
	}

	switch c.Provider.Type {
	case ProviderYahoo:
	case ProviderClickHouse:
		if !c.ClickHouse.Enabled {
			return fmt.Errorf("provider.type 'clickhouse' requires clickhouse.enabled")
		}
	default:
		return fmt.Errorf("provider.type must be '%s' or '%s', got '%s'", ProviderYahoo, ProviderClickHouse, c.Provider.Type)
	}
	if c.ClickHouse.Archive && !c.ClickHouse.Enabled {
		return fmt.Errorf("clickhouse.archive requires clickhouse.enabled")
	}
	if c.ClickHouse.Archive && c.Provider.Type == ProviderClickHouse {
		return fmt.Errorf("clickhouse.archive makes no sense with the clickhouse provider")
	}
	if _, err := time.Parse(xutil.DayLayout, c.Yahoo.HistoryStart); err != nil {
		return fmt.Errorf("yahoo.history_start must be YYYY-MM-DD: %w", err)
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	if c.Cache.Memory.MaxSize <= 0 {
		return fmt.Errorf("cache.memory.max_size must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Log.Collector.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("log.collector requires kafka.enabled")
	}
	if c.RateLimit.Enabled && (c.RateLimit.Capacity < 1 || c.RateLimit.RefillPerSec <= 0 || c.RateLimit.PruneInterval <= 0) {
		return fmt.Errorf("rate_limit needs capacity >= 1, refill_per_sec > 0 and a positive prune_interval")
	}

	switch c.Pipeline.ComputeScope {
	case "window", "history":
	default:
		return fmt.Errorf("pipeline.compute_scope must be 'window' or 'history', got '%s'", c.Pipeline.ComputeScope)
	}
	if err := c.Pipeline.Indicators.Validate(); err != nil {
		return fmt.Errorf("pipeline.indicators: %w", err)
	}
	if c.Pipeline.Axes.PriceOffsetPct < 0 || c.Pipeline.Axes.VolumeShare <= 0 {
		return fmt.Errorf("pipeline.axes: price_offset_pct must be >= 0 and volume_share > 0")
	}
	if err := timerange.ValidateTable(); err != nil {
		return fmt.Errorf("range table: %w", err)
	}

	if c.Warmup.Enabled {
		if _, err := cron.ParseStandard(c.Warmup.Schedule); err != nil {
			return fmt.Errorf("warmup.schedule: %w", err)
		}
		if len(c.Warmup.Symbols) == 0 {
			return fmt.Errorf("warmup.symbols cannot be empty when warmup is enabled")
		}
	}
	return nil
}
