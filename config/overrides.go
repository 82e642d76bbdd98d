package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix scopes environment overrides, e.g. SCALPER_BACKEND_URL.
const EnvPrefix = "SCALPER"

// NewViper returns a viper instance reading SCALPER_* environment variables
// with dotted keys mapped to underscores.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load builds the effective configuration: defaults, then the file at path
// when path is non-empty, then the overrides in v. The result is validated
// once, after every layer is applied.
func Load(path string, v *viper.Viper) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = readFile(path); err != nil {
			return nil, err
		}
	}
	if v != nil {
		cfg.ApplyOverrides(v)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyOverrides copies every key set in v, through a bound flag or the
// environment, onto c.
func (c *Config) ApplyOverrides(v *viper.Viper) {
	str := map[string]*string{
		"backend.url":          &c.Backend.URL,
		"backend.timeout":      &c.Backend.Timeout,
		"market.symbol":        &c.Market.Symbol,
		"market.interval":      &c.Market.Interval,
		"engine.slow_tick":     &c.Engine.SlowTick,
		"engine.fast_tick":     &c.Engine.FastTick,
		"journal.type":         &c.Journal.Type,
		"journal.db_path":      &c.Journal.DBPath,
		"journal.trades_file":  &c.Journal.TradesFile,
		"journal.signals_file": &c.Journal.SignalsFile,
		"journal.equity_file":  &c.Journal.EquityFile,
		"log.level":            &c.Log.Level,
		"feed.addr":            &c.Feed.Addr,
	}
	for key, dst := range str {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	ints := map[string]*int{
		"market.limit":         &c.Market.Limit,
		"strategy.fast_period": &c.Strategy.FastPeriod,
		"strategy.slow_period": &c.Strategy.SlowPeriod,
		"engine.window_cap":    &c.Engine.WindowCap,
	}
	for key, dst := range ints {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}

	if v.IsSet("engine.baseline_equity") {
		c.Engine.BaselineEquity = v.GetFloat64("engine.baseline_equity")
	}
}
