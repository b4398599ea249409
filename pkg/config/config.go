package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the full engine configuration: a JSON file provides the base
// and environment variables override individual fields.
type Config struct {
	Session        string  `json:"session"`
	InitialCapital float64 `json:"initial_capital"`

	Engine struct {
		CycleInterval     string `json:"cycle_interval"` // Go duration string
		PriceWorkers      int    `json:"price_workers"`
		OpportunityBuffer int    `json:"opportunity_buffer"`
		BenchmarkSymbol   string `json:"benchmark_symbol"`
		BenchmarkBars     int    `json:"benchmark_bars"`
	} `json:"engine"`

	Allocator struct {
		MaxRiskPerTrade  float64 `json:"max_risk_per_trade"`
		KellyScale       float64 `json:"kelly_scale"`
		KellyMinTrades   int     `json:"kelly_min_trades"`
		MaxPositionPct   float64 `json:"max_position_pct"`
		MinPositionValue float64 `json:"min_position_value"`
	} `json:"allocator"`

	Risk struct {
		MaxDailyLossPct  float64 `json:"max_daily_loss_pct"`
		MinorDrawdownPct float64 `json:"minor_drawdown_pct"`
		MajorDrawdownPct float64 `json:"major_drawdown_pct"`
		HardDrawdownPct  float64 `json:"hard_drawdown_pct"`
		PauseHours       int     `json:"pause_hours"`
		MarketCrashPct   float64 `json:"market_crash_pct"`
	} `json:"risk"`

	Regime struct {
		CheckIntervalMinutes int `json:"check_interval_minutes"`
	} `json:"regime"`

	Exchange struct {
		APIKey    string `json:"-"` // env only, never persisted
		APISecret string `json:"-"`
		Testnet   bool   `json:"testnet"`
		Category  string `json:"category"`
	} `json:"exchange"`

	Notifications struct {
		TelegramToken  string `json:"-"`
		TelegramChatID string `json:"-"`
		DiscordWebhook string `json:"-"`
	} `json:"notifications"`

	Monitoring struct {
		Enabled        bool `json:"enabled"`
		PrometheusPort int  `json:"prometheus_port"`
		HealthPort     int  `json:"health_port"`
	} `json:"monitoring"`

	Persistence struct {
		StateDir string `json:"state_dir"`
	} `json:"persistence"`
}

// Default returns the production defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.Session = "risk-engine"
	cfg.InitialCapital = 100000

	cfg.Engine.CycleInterval = "1m"
	cfg.Engine.PriceWorkers = 4
	cfg.Engine.OpportunityBuffer = 64
	cfg.Engine.BenchmarkSymbol = "BTCUSDT"
	cfg.Engine.BenchmarkBars = 120

	cfg.Allocator.MaxRiskPerTrade = 0.02
	cfg.Allocator.KellyScale = 0.25
	cfg.Allocator.KellyMinTrades = 10
	cfg.Allocator.MaxPositionPct = 0.25

	cfg.Risk.MaxDailyLossPct = 0.03
	cfg.Risk.MinorDrawdownPct = 0.05
	cfg.Risk.MajorDrawdownPct = 0.10
	cfg.Risk.HardDrawdownPct = 0.15
	cfg.Risk.PauseHours = 24
	cfg.Risk.MarketCrashPct = -0.02

	cfg.Regime.CheckIntervalMinutes = 60

	cfg.Exchange.Category = "spot"

	cfg.Monitoring.Enabled = true
	cfg.Monitoring.PrometheusPort = 8080
	cfg.Monitoring.HealthPort = 8081

	cfg.Persistence.StateDir = "state"

	return cfg
}

// Load builds the configuration: defaults, then the JSON file if present,
// then environment overrides, then validation.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.Session = getEnv("ENGINE_SESSION", c.Session)
	c.InitialCapital = getEnvFloat("INITIAL_CAPITAL", c.InitialCapital)

	c.Engine.CycleInterval = getEnv("CYCLE_INTERVAL", c.Engine.CycleInterval)
	c.Engine.BenchmarkSymbol = getEnv("BENCHMARK_SYMBOL", c.Engine.BenchmarkSymbol)

	c.Exchange.APIKey = getEnv("BYBIT_API_KEY", c.Exchange.APIKey)
	c.Exchange.APISecret = getEnv("BYBIT_API_SECRET", c.Exchange.APISecret)
	c.Exchange.Testnet = getEnvBool("BYBIT_TESTNET", c.Exchange.Testnet)
	c.Exchange.Category = getEnv("BYBIT_CATEGORY", c.Exchange.Category)

	c.Notifications.TelegramToken = getEnv("TELEGRAM_TOKEN", c.Notifications.TelegramToken)
	c.Notifications.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", c.Notifications.TelegramChatID)
	c.Notifications.DiscordWebhook = getEnv("DISCORD_WEBHOOK", c.Notifications.DiscordWebhook)

	c.Monitoring.PrometheusPort = getEnvInt("PROMETHEUS_PORT", c.Monitoring.PrometheusPort)
	c.Monitoring.HealthPort = getEnvInt("HEALTH_PORT", c.Monitoring.HealthPort)

	c.Persistence.StateDir = getEnv("STATE_DIR", c.Persistence.StateDir)
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.InitialCapital <= 0 {
		return fmt.Errorf("initial_capital must be positive, got %.2f", c.InitialCapital)
	}
	if _, err := time.ParseDuration(c.Engine.CycleInterval); err != nil {
		return fmt.Errorf("invalid cycle_interval %q: %w", c.Engine.CycleInterval, err)
	}
	if c.Allocator.MaxRiskPerTrade <= 0 || c.Allocator.MaxRiskPerTrade > 0.1 {
		return fmt.Errorf("max_risk_per_trade must be in (0, 0.1], got %.4f", c.Allocator.MaxRiskPerTrade)
	}
	if c.Allocator.MaxPositionPct <= 0 || c.Allocator.MaxPositionPct > 1 {
		return fmt.Errorf("max_position_pct must be in (0, 1], got %.4f", c.Allocator.MaxPositionPct)
	}
	if c.Risk.MinorDrawdownPct >= c.Risk.MajorDrawdownPct ||
		c.Risk.MajorDrawdownPct >= c.Risk.HardDrawdownPct {
		return fmt.Errorf("drawdown thresholds must be strictly increasing: %.2f / %.2f / %.2f",
			c.Risk.MinorDrawdownPct, c.Risk.MajorDrawdownPct, c.Risk.HardDrawdownPct)
	}
	if c.Risk.MarketCrashPct >= 0 {
		return fmt.Errorf("market_crash_pct must be negative, got %.4f", c.Risk.MarketCrashPct)
	}
	if c.Regime.CheckIntervalMinutes <= 0 {
		return fmt.Errorf("regime check_interval_minutes must be positive, got %d", c.Regime.CheckIntervalMinutes)
	}
	return nil
}

// CycleInterval returns the parsed cycle interval. Validate must have passed.
func (c *Config) CycleInterval() time.Duration {
	d, _ := time.ParseDuration(c.Engine.CycleInterval)
	return d
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return defaultVal
}
