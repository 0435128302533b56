package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RedisCfg struct {
	Addr      string `yaml:"addr"`
	DB        int    `yaml:"db"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Stream    string `yaml:"stream"`
	ActiveKey string `yaml:"active_key"`
}

type PriorityCfg struct {
	VolumeWeight        float64 `yaml:"volume_weight"`
	VolatilityWeight    float64 `yaml:"volatility_weight"`
	HistoryWeight       float64 `yaml:"history_weight"`
	RecomputeIntervalMs int     `yaml:"recompute_interval_ms"`
}

type WorkersCfg struct {
	Tier0      int `yaml:"tier0"`
	Background int `yaml:"background"`
}

type FeeCfg struct {
	TakerPct float64 `yaml:"taker_pct"`
	MakerPct float64 `yaml:"maker_pct"`
}

type ProviderCfg struct {
	RestURL string `yaml:"rest_url"`
}

type Config struct {
	Exchanges      []string `yaml:"exchanges"`
	DefaultSymbols []string `yaml:"default_symbols"`

	MinProfitPct     float64 `yaml:"min_profit_pct"`
	TradeNotionalUSD float64 `yaml:"trade_notional_usd"`

	Scan struct {
		IntervalMs        int `yaml:"interval_ms"`
		BatchSize         int `yaml:"batch_size"`
		MaxTiers          int `yaml:"max_tiers"`
		CycleTimeoutMs    int `yaml:"cycle_timeout_ms"`
		ProviderTimeoutMs int `yaml:"provider_timeout_ms"`
	} `yaml:"scan"`

	Cache struct {
		TickerTTLMs int `yaml:"ticker_ttl_ms"`
		BookTTLMs   int `yaml:"book_ttl_ms"`
	} `yaml:"cache"`

	Workers   WorkersCfg             `yaml:"workers"`
	Priority  PriorityCfg            `yaml:"priority"`
	Fees      map[string]FeeCfg      `yaml:"fees"`
	Providers map[string]ProviderCfg `yaml:"providers"`

	Redis   RedisCfg `yaml:"redis"`
	Metrics struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"metrics"`
	Feed struct {
		Exchange string `yaml:"exchange"`
		WsURL    string `yaml:"ws_url"`
	} `yaml:"feed"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if len(c.Exchanges) < 2 {
		return nil, fmt.Errorf("config: need at least 2 exchanges, got %d", len(c.Exchanges))
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if len(c.DefaultSymbols) == 0 {
		c.DefaultSymbols = []string{
			"BTC/USDT", "ETH/USDT", "BNB/USDT", "SOL/USDT", "XRP/USDT",
		}
	}
	if c.MinProfitPct == 0 {
		c.MinProfitPct = 0.5
	}
	if c.TradeNotionalUSD == 0 {
		c.TradeNotionalUSD = 10000
	}
	if c.Scan.IntervalMs == 0 {
		c.Scan.IntervalMs = 10000
	}
	if c.Scan.BatchSize == 0 {
		c.Scan.BatchSize = 20
	}
	if c.Scan.MaxTiers == 0 {
		c.Scan.MaxTiers = 3
	}
	if c.Scan.CycleTimeoutMs == 0 {
		c.Scan.CycleTimeoutMs = 8000
	}
	if c.Scan.ProviderTimeoutMs == 0 {
		c.Scan.ProviderTimeoutMs = 2000
	}
	if c.Cache.TickerTTLMs == 0 {
		c.Cache.TickerTTLMs = 2000
	}
	if c.Cache.BookTTLMs == 0 {
		c.Cache.BookTTLMs = 5000
	}
	if c.Workers.Tier0 == 0 {
		c.Workers.Tier0 = 8
	}
	if c.Workers.Background == 0 {
		c.Workers.Background = 4
	}
	if c.Priority.VolumeWeight == 0 && c.Priority.VolatilityWeight == 0 && c.Priority.HistoryWeight == 0 {
		c.Priority.VolumeWeight = 0.5
		c.Priority.VolatilityWeight = 0.3
		c.Priority.HistoryWeight = 0.2
	}
	if c.Priority.RecomputeIntervalMs == 0 {
		c.Priority.RecomputeIntervalMs = 60000
	}
	if c.Redis.Stream == "" {
		c.Redis.Stream = "opp:stream"
	}
	if c.Redis.ActiveKey == "" {
		c.Redis.ActiveKey = "opp:active"
	}
}

func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Scan.IntervalMs) * time.Millisecond
}
func (c *Config) CycleTimeout() time.Duration {
	return time.Duration(c.Scan.CycleTimeoutMs) * time.Millisecond
}
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Scan.ProviderTimeoutMs) * time.Millisecond
}
func (c *Config) TickerTTL() time.Duration {
	return time.Duration(c.Cache.TickerTTLMs) * time.Millisecond
}
func (c *Config) BookTTL() time.Duration {
	return time.Duration(c.Cache.BookTTLMs) * time.Millisecond
}
func (c *Config) RecomputeInterval() time.Duration {
	return time.Duration(c.Priority.RecomputeIntervalMs) * time.Millisecond
}
