package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"GlucoPlot/internal/domain/models"
	"GlucoPlot/internal/services/plot"
	"GlucoPlot/pkg/logger"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"oneof=development staging production"`
	// Timezone is the IANA zone charts and daily buckets are computed in.
	Timezone string `yaml:"timezone" default:"UTC" validate:"required"`
	Server   struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		CORSOrigins     []string      `yaml:"cors_origins" default:"[\"*\"]"`
		RateLimit       struct {
			RPS   float64 `yaml:"rps" default:"2" validate:"gt=0"`
			Burst int     `yaml:"burst" default:"5" validate:"gte=1"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Logger  logger.Config     `yaml:"logger"`
	Glucose models.Thresholds `yaml:"glucose"`
	Plot    struct {
		Layout plot.BandLayout `yaml:"layout"`
		// Weekdays included in the weekly chart, 0 = Sunday.
		Weekdays    []int  `yaml:"weekdays" default:"[0,1,2,3,4,5]" validate:"min=1,max=7,dive,gte=0,lte=6"`
		WeekStart   string `yaml:"week_start" default:"monday" validate:"oneof=sunday monday tuesday wednesday thursday friday saturday"`
		OrderPolicy string `yaml:"order_policy" default:"sort" validate:"oneof=sort strict"`
		DailyHours  int    `yaml:"daily_hours" default:"12" validate:"gte=1,lte=72"`
		Width       int    `yaml:"width" default:"1400" validate:"gte=200"`
		Height      int    `yaml:"height" default:"700" validate:"gte=100"`
		// CacheTTL keeps built chart specs; 0 disables the chart cache.
		CacheTTL time.Duration `yaml:"cache_ttl" default:"30s"`
	} `yaml:"plot"`
	Store struct {
		Backend    string `yaml:"backend" default:"sqlite" validate:"oneof=sqlite clickhouse"`
		SQLitePath string `yaml:"sqlite_path" default:"glucoplot.db"`
	} `yaml:"store"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"glucoplot"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"glucoplot"`
		PoolSize int    `yaml:"pool_size" default:"10" validate:"gte=1"`
		// BlobTTL bounds how long rendered images are kept; 0 uses the
		// store default.
		BlobTTL    time.Duration `yaml:"blob_ttl"`
		MemorySize int           `yaml:"memory_size" default:"256" validate:"gte=1"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled     bool     `yaml:"enabled"`
		Brokers     []string `yaml:"brokers"`
		EventsTopic string   `yaml:"events_topic" default:"glucoplot.events"`
		PlotsTopic  string   `yaml:"plots_topic" default:"glucoplot.plots"`
		Compression string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		Producer    struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"100ms"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"glucoplot"`
			Workers    int           `yaml:"workers" default:"2" validate:"gte=1"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"glucoplot.events.dlq"`
			SlowAfter  time.Duration `yaml:"slow_after" default:"500ms"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Scheduler struct {
		Enabled bool `yaml:"enabled" default:"true"`
		// Cron specs use the standard five fields and run in Timezone.
		Daily   string        `yaml:"daily" default:"0 */2 * * *"`
		Weekly  string        `yaml:"weekly" default:"30 6 * * 1"`
		LockTTL time.Duration `yaml:"lock_ttl" default:"5m"`
		Workers int           `yaml:"workers" default:"1" validate:"gte=1"`
	} `yaml:"scheduler"`
}

// Default returns a validated configuration built from defaults only.
func Default() (*Config, error) {
	return parse(nil, false)
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return parse(b, false)
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// An empty path starts from defaults.
func LoadWithEnv(path string) (*Config, error) {
	var b []byte
	if path != "" {
		var err error
		if b, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return parse(b, true)
}

func parse(b []byte, env bool) (*Config, error) {
	var c Config
	// defaults first so explicit false/zero values in YAML survive
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if len(b) > 0 {
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if env {
		c.applyEnv()
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("GLUCOPLOT_TIMEZONE"); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if err := plot.ValidateThresholds(c.Glucose); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	if _, err := c.WeekdaySet(); err != nil {
		return err
	}
	if c.Store.Backend == "clickhouse" && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required for the clickhouse store")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}

// Location loads Timezone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) WeekdaySet() (plot.WeekdaySet, error) {
	return plot.NewWeekdaySet(c.Plot.Weekdays...)
}

func (c *Config) WeekStart() time.Weekday {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), c.Plot.WeekStart) {
			return d
		}
	}
	return time.Monday
}

func (c *Config) OrderPolicy() plot.OrderPolicy {
	if c.Plot.OrderPolicy == "strict" {
		return plot.Strict
	}
	return plot.SortStable
}
