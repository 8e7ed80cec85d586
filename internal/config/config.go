package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"ammowatch/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Intel    IntelConfig    `mapstructure:"intel"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Export   ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// IntelConfig parameterises the price intelligence engine: window
// lengths, eligibility thresholds, completeness caps, and request
// handling.
type IntelConfig struct {
	CurrentWindowDays int           `mapstructure:"current_window_days"`
	MedianWindowDays  int           `mapstructure:"median_window_days"`
	LowestWindowDays  int           `mapstructure:"lowest_window_days"`
	DropPct           float64       `mapstructure:"drop_pct"`
	MinMedianDays     int           `mapstructure:"min_median_days"`
	MinOutageDays     int           `mapstructure:"min_outage_days"`
	RestockWindowDays int           `mapstructure:"restock_window_days"`
	CandidateCap      int           `mapstructure:"candidate_cap"`
	MatchedDisplayCap int           `mapstructure:"matched_display_cap"`
	OtherDisplayCap   int           `mapstructure:"other_display_cap"`
	Workers           int           `mapstructure:"workers"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
}

// IngestConfig governs the retailer feed poller.
type IngestConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToInterval bool          `mapstructure:"align_to_interval"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	UserAgent       string        `mapstructure:"user_agent"`
	Feeds           []FeedConfig  `mapstructure:"feeds"`
}

// FeedConfig identifies one retailer price feed.
type FeedConfig struct {
	Name       string `mapstructure:"name"`
	RetailerID string `mapstructure:"retailer_id"`
	URL        string `mapstructure:"url"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AMMOWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "ammowatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("intel.current_window_days", 7)
	v.SetDefault("intel.median_window_days", 30)
	v.SetDefault("intel.lowest_window_days", 90)
	v.SetDefault("intel.drop_pct", 15.0)
	v.SetDefault("intel.min_median_days", 5)
	v.SetDefault("intel.min_outage_days", 7)
	v.SetDefault("intel.restock_window_days", 7)
	v.SetDefault("intel.candidate_cap", 300)
	v.SetDefault("intel.matched_display_cap", 12)
	v.SetDefault("intel.other_display_cap", 24)
	v.SetDefault("intel.workers", 4)
	v.SetDefault("intel.cache_ttl", "90s")
	v.SetDefault("intel.request_timeout", "10s")

	v.SetDefault("ingest.interval", "30m")
	v.SetDefault("ingest.align_to_interval", true)
	v.SetDefault("ingest.startup_delay", "0s")
	v.SetDefault("ingest.request_timeout", "20s")
	v.SetDefault("ingest.user_agent", "ammowatch/1.0")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Intel.CurrentWindowDays <= 0 || c.Intel.MedianWindowDays <= 0 || c.Intel.LowestWindowDays <= 0 {
		return fmt.Errorf("intel window lengths must be greater than zero")
	}
	if c.Intel.MedianWindowDays > c.Intel.LowestWindowDays {
		return fmt.Errorf("intel.median_window_days cannot exceed intel.lowest_window_days")
	}
	if c.Intel.DropPct <= 0 || c.Intel.DropPct >= 100 {
		return fmt.Errorf("intel.drop_pct must be between 0 and 100")
	}
	if c.Intel.MinMedianDays <= 0 {
		return fmt.Errorf("intel.min_median_days must be greater than zero")
	}
	if c.Intel.CandidateCap <= 0 {
		return fmt.Errorf("intel.candidate_cap must be greater than zero")
	}
	if c.Intel.Workers <= 0 {
		return fmt.Errorf("intel.workers must be greater than zero")
	}
	if c.Ingest.Interval <= 0 {
		return fmt.Errorf("ingest.interval must be greater than zero")
	}
	for _, feed := range c.Ingest.Feeds {
		if feed.Name == "" || feed.URL == "" || feed.RetailerID == "" {
			return fmt.Errorf("ingest.feeds entries require name, retailer_id, and url")
		}
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	return nil
}
