package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/scalper/journal"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://127.0.0.1:5000/api", cfg.Backend.URL)
	assert.Equal(t, 10*time.Second, cfg.BackendTimeout())
	assert.Equal(t, "SOLUSDT", cfg.Market.Symbol)
	assert.Equal(t, 5, cfg.Strategy.FastPeriod)
	assert.Equal(t, 13, cfg.Strategy.SlowPeriod)

	ec := cfg.EngineConfig()
	assert.Equal(t, int64(60), ec.CandleInterval)
	assert.Equal(t, 200, ec.WindowCap)
	assert.Equal(t, 1000.0, ec.BaselineEquity)
	assert.NoError(t, ec.Validate())

	rc := cfg.RunnerConfig()
	assert.Equal(t, 60*time.Second, rc.SlowTick)
	assert.Equal(t, 2*time.Second, rc.FastTick)
	assert.Equal(t, 100, rc.Market.Limit)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"missing url", func(c *Config) { c.Backend.URL = "" }, "backend.url is required"},
		{"bad timeout", func(c *Config) { c.Backend.Timeout = "soon" }, "backend.timeout"},
		{"zero timeout", func(c *Config) { c.Backend.Timeout = "0s" }, "backend.timeout must be positive"},
		{"missing symbol", func(c *Config) { c.Market.Symbol = "" }, "market.symbol is required"},
		{"bad interval", func(c *Config) { c.Market.Interval = "7m" }, "market.interval"},
		{"bad limit", func(c *Config) { c.Market.Limit = 0 }, "market.limit must be positive"},
		{"fast not below slow", func(c *Config) { c.Strategy.FastPeriod = 13 }, "strategy"},
		{"window too small", func(c *Config) { c.Engine.WindowCap = 13 }, "engine.window_cap"},
		{"bad fast tick", func(c *Config) { c.Engine.FastTick = "" }, "engine.fast_tick"},
		{"bad equity", func(c *Config) { c.Engine.BaselineEquity = -1 }, "engine.baseline_equity"},
		{"bad journal type", func(c *Config) { c.Journal.Type = "postgres" }, "journal.type"},
		{"sqlite needs path", func(c *Config) { c.Journal.DBPath = "" }, "db_path required"},
		{"csv needs files", func(c *Config) { c.Journal.Type = "csv" }, "required for CSV type"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	cfg := Default()
	cfg.Journal = JournalConfig{Type: "none"}
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	t.Run("partial yaml keeps defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "scalper.yaml")
		data := `
backend:
  url: http://10.0.0.5:5000/api
market:
  symbol: BTCUSDT
strategy:
  fast_period: 8
  slow_period: 21
journal:
  type: none
`
		require.NoError(t, os.WriteFile(path, []byte(data), 0644))

		cfg, err := LoadFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, "http://10.0.0.5:5000/api", cfg.Backend.URL)
		assert.Equal(t, "BTCUSDT", cfg.Market.Symbol)
		assert.Equal(t, 8, cfg.Strategy.FastPeriod)
		assert.Equal(t, 21, cfg.Strategy.SlowPeriod)
		assert.Equal(t, "1m", cfg.Market.Interval)
		assert.Equal(t, "10s", cfg.Backend.Timeout)
	})

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "scalper.json")
		data := `{"market": {"symbol": "ETHUSDT", "interval": "5m", "limit": 50}}`
		require.NoError(t, os.WriteFile(path, []byte(data), 0644))

		cfg, err := LoadFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, "ETHUSDT", cfg.Market.Symbol)
		assert.Equal(t, int64(300), cfg.EngineConfig().CandleInterval)
	})

	t.Run("invalid", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "scalper.yaml")
		require.NoError(t, os.WriteFile(path, []byte("engine:\n  baseline_equity: 0\n"), 0644))

		_, err := LoadFromFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid config")
	})

	t.Run("missing", func(t *testing.T) {
		_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Market.Symbol = "BNBUSDT"
	cfg.Engine.BaselineEquity = 2500

	for _, name := range []string{"c.yaml", "c.yml", "c.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, cfg.SaveToFile(path))

		got, err := LoadFromFile(path)
		require.NoError(t, err, name)
		assert.Equal(t, cfg, got, name)
	}
}

func TestApplyOverrides(t *testing.T) {
	t.Setenv("SCALPER_BACKEND_URL", "http://backend:5000/api")
	t.Setenv("SCALPER_STRATEGY_FAST_PERIOD", "3")
	t.Setenv("SCALPER_ENGINE_BASELINE_EQUITY", "500")

	v := NewViper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "info", "")
	flags.String("symbol", "SOLUSDT", "")
	require.NoError(t, v.BindPFlag("log.level", flags.Lookup("log-level")))
	require.NoError(t, v.BindPFlag("market.symbol", flags.Lookup("symbol")))
	require.NoError(t, flags.Parse([]string{"--log-level=debug"}))

	cfg := Default()
	cfg.ApplyOverrides(v)

	assert.Equal(t, "http://backend:5000/api", cfg.Backend.URL)
	assert.Equal(t, 3, cfg.Strategy.FastPeriod)
	assert.Equal(t, 500.0, cfg.Engine.BaselineEquity)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "SOLUSDT", cfg.Market.Symbol, "unchanged flag does not override")
	assert.NoError(t, cfg.Validate())
}

func TestLoadValidatesAfterOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scalper.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend:\n  url: \"\"\n"), 0644))

	_, err := LoadFromFile(path)
	require.Error(t, err, "file alone is incomplete")

	_, err = Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend.url")

	t.Setenv("SCALPER_BACKEND_URL", "http://backend:5000/api")
	cfg, err := Load(path, NewViper())
	require.NoError(t, err)
	assert.Equal(t, "http://backend:5000/api", cfg.Backend.URL)

	t.Setenv("SCALPER_STRATEGY_FAST_PERIOD", "0")
	_, err = Load(path, NewViper())
	assert.Error(t, err, "overrides are validated too")

	_, err = Load(filepath.Join(t.TempDir(), "nope.yaml"), NewViper())
	assert.Error(t, err)
}

func TestJournalOpen(t *testing.T) {
	dir := t.TempDir()

	j, err := JournalConfig{Type: "none"}.Open()
	require.NoError(t, err)
	assert.Nil(t, j)

	j, err = JournalConfig{Type: "sqlite", DBPath: filepath.Join(dir, "j.db")}.Open()
	require.NoError(t, err)
	assert.IsType(t, &journal.SQLite{}, j)
	require.NoError(t, j.Close())

	j, err = JournalConfig{
		Type:        "csv",
		TradesFile:  filepath.Join(dir, "trades.csv"),
		SignalsFile: filepath.Join(dir, "signals.csv"),
		EquityFile:  filepath.Join(dir, "equity.csv"),
	}.Open()
	require.NoError(t, err)
	assert.IsType(t, &journal.CSVJournal{}, j)
	require.NoError(t, j.Close())

	_, err = JournalConfig{Type: "mongo"}.Open()
	assert.Error(t, err)
}
