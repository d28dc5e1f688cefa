package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"churn-alerts/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Watch     WatchConfig     `mapstructure:"watch"`
	RiskModel RiskModelConfig `mapstructure:"riskmodel"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// AnalysisConfig tunes the churn and competitor engines.
type AnalysisConfig struct {
	LookbackWeeks int `mapstructure:"lookback_weeks"`
	BaselineWeeks int `mapstructure:"baseline_weeks"`
	CurrentWeeks  int `mapstructure:"current_weeks"`

	StoppedWeeks        int     `mapstructure:"stopped_weeks"`
	DeclinePct          float64 `mapstructure:"decline_pct"`
	CriticalDeclinePct  float64 `mapstructure:"critical_decline_pct"`
	VolatilityThreshold float64 `mapstructure:"volatility_threshold"`

	MaxActions    int `mapstructure:"max_actions"`
	MaxStrategies int `mapstructure:"max_strategies"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity. An empty DSN disables
// persistence entirely; analysis commands still run.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// AlertingConfig defines notification routing for watch runs.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Channels []string       `mapstructure:"channels"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig holds Telegram bot credentials.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// WatchConfig governs the periodic re-analysis loop.
type WatchConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
}

// RiskModelConfig points at the external scoring collaborator. An empty endpoint
// disables risk scoring.
type RiskModelConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxRows int `mapstructure:"max_rows"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CHURNWATCH")
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
	v.SetDefault("app.name", "churnwatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("analysis.lookback_weeks", 12)
	v.SetDefault("analysis.baseline_weeks", 8)
	v.SetDefault("analysis.current_weeks", 4)
	v.SetDefault("analysis.stopped_weeks", 4)
	v.SetDefault("analysis.decline_pct", 40.0)
	v.SetDefault("analysis.critical_decline_pct", 70.0)
	v.SetDefault("analysis.volatility_threshold", 0.5)
	v.SetDefault("analysis.max_actions", 10)
	v.SetDefault("analysis.max_strategies", 15)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("watch.interval", "24h")
	v.SetDefault("watch.align_to_bucket", true)
	v.SetDefault("watch.startup_delay", "0s")
	v.SetDefault("watch.advisory_lock_key", int64(0x6368726e))

	v.SetDefault("riskmodel.request_timeout", "10s")

	v.SetDefault("export.max_rows", 10000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
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
	a := c.Analysis
	if a.LookbackWeeks <= 0 {
		return fmt.Errorf("analysis.lookback_weeks must be greater than zero")
	}
	if a.BaselineWeeks <= 0 || a.BaselineWeeks > a.LookbackWeeks {
		return fmt.Errorf("analysis.baseline_weeks must be within (0, lookback_weeks]")
	}
	if a.CurrentWeeks <= 0 {
		return fmt.Errorf("analysis.current_weeks must be greater than zero")
	}
	if a.StoppedWeeks <= 0 {
		return fmt.Errorf("analysis.stopped_weeks must be greater than zero")
	}
	if a.DeclinePct <= 0 || a.CriticalDeclinePct < a.DeclinePct {
		return fmt.Errorf("analysis decline thresholds must satisfy 0 < decline_pct <= critical_decline_pct")
	}
	if a.MaxActions <= 0 || a.MaxStrategies <= 0 {
		return fmt.Errorf("analysis.max_actions and analysis.max_strategies must be greater than zero")
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be greater than zero")
	}
	if c.Export.MaxRows <= 0 {
		return fmt.Errorf("export.max_rows must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required when telegram is enabled")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required when telegram is enabled")
		}
	}
	return nil
}

// ResolveMaxRows returns either the CLI override or config default.
func (c *Config) ResolveMaxRows(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxRows
}
