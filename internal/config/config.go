// Package config loads and validates application configuration from a YAML
// file with environment variable overrides.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Market    MarketConfig    `mapstructure:"market"`
	Inventory InventoryConfig `mapstructure:"inventory"`
	News      NewsConfig      `mapstructure:"news"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Sessions  SessionsConfig  `mapstructure:"sessions"`
	Macro     MacroConfig     `mapstructure:"macro"`
	Digest    DigestConfig    `mapstructure:"digest"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// MarketConfig holds market data source configuration.
type MarketConfig struct {
	ChartAPIURL  string        `mapstructure:"chart_api_url"`
	Symbol       string        `mapstructure:"symbol"`
	Interval     string        `mapstructure:"interval"`
	LookbackBars int           `mapstructure:"lookback_bars"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

// InventoryConfig holds the reference/actual data source configuration for
// the weekly inventory report.
type InventoryConfig struct {
	APIURL         string        `mapstructure:"api_url"`
	APIKey         string        `mapstructure:"api_key"`
	SeriesID       string        `mapstructure:"series_id"`
	Timeout        time.Duration `mapstructure:"timeout"`
	ExpectedLevel  float64       `mapstructure:"expected_level"`
	PreviousLevel  float64       `mapstructure:"previous_level"`
	SimulateActual bool          `mapstructure:"simulate_actual"`
}

// NewsConfig holds the RSS news feed configuration.
type NewsConfig struct {
	FeedURL  string        `mapstructure:"feed_url"`
	Keywords []string      `mapstructure:"keywords"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Enabled  bool          `mapstructure:"enabled"`
}

// MonitorConfig enumerates the detector thresholds and cooldowns once, so
// every detector reads from a single configuration surface.
type MonitorConfig struct {
	PollInterval           time.Duration `mapstructure:"poll_interval"`
	Timezone               string        `mapstructure:"timezone"`
	Volatility1hPct        float64       `mapstructure:"volatility_1h_pct"`
	VolCooldown            time.Duration `mapstructure:"vol_cooldown"`
	RSIPeriod              int           `mapstructure:"rsi_period"`
	RSIOverbought          float64       `mapstructure:"rsi_overbought"`
	RSIOversold            float64       `mapstructure:"rsi_oversold"`
	RSIMargin              float64       `mapstructure:"rsi_margin"`
	BreakoutLookback       int           `mapstructure:"breakout_lookback"`
	BreakoutCooldown       time.Duration `mapstructure:"breakout_cooldown"`
	ReversalCooldown       time.Duration `mapstructure:"reversal_cooldown"`
	CheckpointInterval     int           `mapstructure:"checkpoint_interval"`
	MaxConsecutiveFailures int           `mapstructure:"max_consecutive_failures"`
}

// SessionsConfig holds the session open/close local times as "HH:MM".
type SessionsConfig struct {
	AsiaOpen   string `mapstructure:"asia_open"`
	EuropeOpen string `mapstructure:"europe_open"`
	USOpen     string `mapstructure:"us_open"`
	Close      string `mapstructure:"close"`
}

// MacroConfig holds the scheduled macro event (weekly inventory report)
// configuration.
type MacroConfig struct {
	Weekday       int           `mapstructure:"weekday"` // 0 = Sunday
	Time          string        `mapstructure:"time"`    // "HH:MM"
	ResampleDelay time.Duration `mapstructure:"resample_delay"`
	SummaryDelay  time.Duration `mapstructure:"summary_delay"`
	Enabled       bool          `mapstructure:"enabled"`
}

// DigestConfig holds the daily digest configuration.
type DigestConfig struct {
	Time    string `mapstructure:"time"` // "HH:MM"
	Enabled bool   `mapstructure:"enabled"`
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// StorageConfig holds persistence configuration.
type StorageConfig struct {
	DBPath    string `mapstructure:"db_path"`
	MaxAlerts int    `mapstructure:"max_alerts"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	setDefaults(v)

	v.SetEnvPrefix("CRUDE_MASTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("market.chart_api_url", "https://query1.finance.yahoo.com")
	v.SetDefault("market.symbol", "CL=F")
	v.SetDefault("market.interval", "1h")
	v.SetDefault("market.lookback_bars", 24)
	v.SetDefault("market.timeout", "30s")
	v.SetDefault("market.max_retries", 3)

	v.SetDefault("inventory.api_url", "https://api.eia.gov")
	v.SetDefault("inventory.series_id", "petroleum/stoc/wstk")
	v.SetDefault("inventory.timeout", "30s")
	v.SetDefault("inventory.expected_level", 455.2)
	v.SetDefault("inventory.previous_level", 455.2)
	v.SetDefault("inventory.simulate_actual", true)

	v.SetDefault("news.feed_url", "https://www.investing.com/rss/commodities_Crude_Oil.rss")
	v.SetDefault("news.keywords", []string{"opec", "crude", "inventory", "pipeline", "sanctions"})
	v.SetDefault("news.timeout", "30s")
	v.SetDefault("news.enabled", true)

	v.SetDefault("monitor.poll_interval", "30s")
	v.SetDefault("monitor.timezone", "Asia/Kolkata")
	v.SetDefault("monitor.volatility_1h_pct", 1.5)
	v.SetDefault("monitor.vol_cooldown", "1h")
	v.SetDefault("monitor.rsi_period", 14)
	v.SetDefault("monitor.rsi_overbought", 70.0)
	v.SetDefault("monitor.rsi_oversold", 30.0)
	v.SetDefault("monitor.rsi_margin", 5.0)
	v.SetDefault("monitor.breakout_lookback", 12)
	v.SetDefault("monitor.breakout_cooldown", "30m")
	v.SetDefault("monitor.reversal_cooldown", "1h")
	v.SetDefault("monitor.checkpoint_interval", 20)
	v.SetDefault("monitor.max_consecutive_failures", 10)

	v.SetDefault("sessions.asia_open", "09:00")
	v.SetDefault("sessions.europe_open", "13:30")
	v.SetDefault("sessions.us_open", "19:00")
	v.SetDefault("sessions.close", "23:30")

	v.SetDefault("macro.weekday", 3) // Wednesday
	v.SetDefault("macro.time", "20:00")
	v.SetDefault("macro.resample_delay", "5m")
	v.SetDefault("macro.summary_delay", "15m")
	v.SetDefault("macro.enabled", true)

	v.SetDefault("digest.time", "18:00")
	v.SetDefault("digest.enabled", true)

	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	v.SetDefault("storage.db_path", "./data/crude-master.db")
	v.SetDefault("storage.max_alerts", 1000)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// ParseClockTime parses an "HH:MM" string into hour and minute.
func ParseClockTime(s string) (int, int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock time %q: want HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in clock time %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in clock time %q", s)
	}
	return hour, minute, nil
}

// Location resolves the configured monitoring timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Monitor.Timezone)
}

// Validate checks that all configuration values are valid. Configuration
// errors are fatal at startup only, never mid-run.
func (c *Config) Validate() error {
	if c.Market.ChartAPIURL == "" {
		return fmt.Errorf("market.chart_api_url is required")
	}
	if c.Market.Symbol == "" {
		return fmt.Errorf("market.symbol is required")
	}
	if c.Market.LookbackBars < 2 {
		return fmt.Errorf("market.lookback_bars must be at least 2")
	}
	if c.Market.Timeout <= 0 {
		return fmt.Errorf("market.timeout must be positive")
	}

	if c.Monitor.PollInterval < time.Second {
		return fmt.Errorf("monitor.poll_interval must be at least 1 second")
	}
	if _, err := time.LoadLocation(c.Monitor.Timezone); err != nil {
		return fmt.Errorf("monitor.timezone is invalid: %w", err)
	}
	if c.Monitor.Volatility1hPct <= 0 {
		return fmt.Errorf("monitor.volatility_1h_pct must be positive")
	}
	if c.Monitor.VolCooldown <= 0 {
		return fmt.Errorf("monitor.vol_cooldown must be positive")
	}
	if c.Monitor.RSIPeriod < 2 {
		return fmt.Errorf("monitor.rsi_period must be at least 2")
	}
	if c.Monitor.RSIOversold < 0 || c.Monitor.RSIOverbought > 100 ||
		c.Monitor.RSIOversold >= c.Monitor.RSIOverbought {
		return fmt.Errorf("monitor.rsi_oversold must be below monitor.rsi_overbought within [0, 100]")
	}
	if c.Monitor.RSIMargin < 0 {
		return fmt.Errorf("monitor.rsi_margin must not be negative")
	}
	if c.Monitor.BreakoutLookback < 2 {
		return fmt.Errorf("monitor.breakout_lookback must be at least 2")
	}
	if c.Monitor.BreakoutCooldown <= 0 {
		return fmt.Errorf("monitor.breakout_cooldown must be positive")
	}
	if c.Monitor.CheckpointInterval < 1 {
		return fmt.Errorf("monitor.checkpoint_interval must be at least 1")
	}
	if c.Monitor.MaxConsecutiveFailures < 1 {
		return fmt.Errorf("monitor.max_consecutive_failures must be at least 1")
	}

	for _, ct := range []struct{ name, value string }{
		{"sessions.asia_open", c.Sessions.AsiaOpen},
		{"sessions.europe_open", c.Sessions.EuropeOpen},
		{"sessions.us_open", c.Sessions.USOpen},
		{"sessions.close", c.Sessions.Close},
		{"macro.time", c.Macro.Time},
		{"digest.time", c.Digest.Time},
	} {
		if _, _, err := ParseClockTime(ct.value); err != nil {
			return fmt.Errorf("%s: %w", ct.name, err)
		}
	}

	if c.Macro.Weekday < 0 || c.Macro.Weekday > 6 {
		return fmt.Errorf("macro.weekday must be between 0 (Sunday) and 6 (Saturday)")
	}
	if c.Macro.ResampleDelay <= 0 || c.Macro.SummaryDelay <= c.Macro.ResampleDelay {
		return fmt.Errorf("macro.summary_delay must be greater than macro.resample_delay, both positive")
	}
	if c.Macro.Enabled && !c.Inventory.SimulateActual && c.Inventory.APIKey == "" {
		return fmt.Errorf("inventory.api_key is required when macro is enabled and simulate_actual is false")
	}

	if c.News.Enabled {
		if c.News.FeedURL == "" {
			return fmt.Errorf("news.feed_url is required when news is enabled")
		}
		if len(c.News.Keywords) == 0 {
			return fmt.Errorf("news.keywords must contain at least one keyword when news is enabled")
		}
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}
	if c.Storage.MaxAlerts < 1 {
		return fmt.Errorf("storage.max_alerts must be at least 1")
	}

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
