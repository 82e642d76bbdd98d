package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/scalper/backend"
	"github.com/rustyeddy/scalper/market"
	"github.com/rustyeddy/scalper/market/strategies"
	"github.com/rustyeddy/scalper/pkg/logger"
	"github.com/rustyeddy/scalper/runner"
	"github.com/rustyeddy/scalper/sim"
)

// Config is the complete scalper configuration.
type Config struct {
	Backend  BackendConfig             `json:"backend" yaml:"backend"`
	Market   MarketConfig              `json:"market" yaml:"market"`
	Strategy strategies.EMACrossConfig `json:"strategy" yaml:"strategy"`
	Engine   EngineConfig              `json:"engine" yaml:"engine"`
	Journal  JournalConfig             `json:"journal" yaml:"journal"`
	Log      LogConfig                 `json:"log" yaml:"log"`
	Feed     FeedConfig                `json:"feed" yaml:"feed"`
}

type BackendConfig struct {
	URL     string `json:"url" yaml:"url"`
	Timeout string `json:"timeout" yaml:"timeout"` // e.g. "10s"
}

type MarketConfig struct {
	Symbol   string `json:"symbol" yaml:"symbol"`
	Interval string `json:"interval" yaml:"interval"` // 1m, 5m, ...
	Limit    int    `json:"limit" yaml:"limit"`
}

type EngineConfig struct {
	WindowCap       int     `json:"window_cap" yaml:"window_cap"`
	SlowTick        string  `json:"slow_tick" yaml:"slow_tick"`
	FastTick        string  `json:"fast_tick" yaml:"fast_tick"`
	BaselineEquity  float64 `json:"baseline_equity" yaml:"baseline_equity"`
	SignalDisplay   int     `json:"signal_display" yaml:"signal_display"`
	FallbackPrice   float64 `json:"fallback_price" yaml:"fallback_price"`
	FallbackCandles int     `json:"fallback_candles" yaml:"fallback_candles"`
}

type JournalConfig struct {
	Type        string `json:"type" yaml:"type"` // "sqlite", "csv" or "none"
	DBPath      string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	TradesFile  string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	SignalsFile string `json:"signals_file,omitempty" yaml:"signals_file,omitempty"`
	EquityFile  string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
}

type FeedConfig struct {
	Addr string `json:"addr" yaml:"addr"` // empty disables the feed
}

// LoadFromFile loads and validates configuration from a YAML or JSON file on
// top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// YAML first; JSON is a subset but report its error when both fail
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", jerr)
		}
	}
	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	if _, err := parseDuration("backend.timeout", c.Backend.Timeout); err != nil {
		return err
	}
	if c.Market.Symbol == "" {
		return fmt.Errorf("market.symbol is required")
	}
	if _, err := market.IntervalSeconds(c.Market.Interval); err != nil {
		return fmt.Errorf("market.interval: %w", err)
	}
	if c.Market.Limit <= 0 {
		return fmt.Errorf("market.limit must be positive")
	}
	if err := c.Strategy.Validate(); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	if c.Engine.WindowCap <= c.Strategy.SlowPeriod {
		return fmt.Errorf("engine.window_cap must exceed strategy.slow_period")
	}
	if _, err := parseDuration("engine.slow_tick", c.Engine.SlowTick); err != nil {
		return err
	}
	if _, err := parseDuration("engine.fast_tick", c.Engine.FastTick); err != nil {
		return err
	}
	if c.Engine.BaselineEquity <= 0 {
		return fmt.Errorf("engine.baseline_equity must be positive")
	}
	if c.Engine.FallbackPrice <= 0 || c.Engine.FallbackCandles <= 0 {
		return fmt.Errorf("engine fallback price and candles must be positive")
	}
	switch c.Journal.Type {
	case "none":
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.SignalsFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file, signals_file and equity_file required for CSV type")
		}
	default:
		return fmt.Errorf("journal.type must be 'sqlite', 'csv' or 'none'")
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

func parseDuration(key, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}

// Default returns the configuration the scalper runs with out of the box.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:     backend.DefaultURL,
			Timeout: "10s",
		},
		Market: MarketConfig{
			Symbol:   "SOLUSDT",
			Interval: "1m",
			Limit:    100,
		},
		Strategy: strategies.EMACrossConfigDefaults(),
		Engine: EngineConfig{
			WindowCap:       market.DefaultCap,
			SlowTick:        "60s",
			FastTick:        "2s",
			BaselineEquity:  sim.DefaultBaselineEquity,
			SignalDisplay:   sim.DefaultSignalDisplay,
			FallbackPrice:   market.DefaultFallbackPrice,
			FallbackCandles: market.DefaultFallbackCandles,
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./scalper.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Feed: FeedConfig{
			Addr: "127.0.0.1:8089",
		},
	}
}

// BackendTimeout assumes a validated config.
func (c *Config) BackendTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Backend.Timeout)
	return d
}

// EngineConfig maps the file sections onto sim.Config.
func (c *Config) EngineConfig() sim.Config {
	interval, err := market.IntervalSeconds(c.Market.Interval)
	if err != nil {
		interval = market.DefaultInterval
	}
	return sim.Config{
		Symbol:          c.Market.Symbol,
		Strategy:        c.Strategy,
		WindowCap:       c.Engine.WindowCap,
		CandleInterval:  interval,
		BaselineEquity:  c.Engine.BaselineEquity,
		SignalDisplay:   c.Engine.SignalDisplay,
		FallbackPrice:   c.Engine.FallbackPrice,
		FallbackCandles: c.Engine.FallbackCandles,
	}
}

func (c *Config) RunnerConfig() runner.Config {
	slow, _ := time.ParseDuration(c.Engine.SlowTick)
	fast, _ := time.ParseDuration(c.Engine.FastTick)
	return runner.Config{
		Market: backend.CandlesRequest{
			Symbol:   c.Market.Symbol,
			Interval: c.Market.Interval,
			Limit:    c.Market.Limit,
		},
		SlowTick: slow,
		FastTick: fast,
	}
}
