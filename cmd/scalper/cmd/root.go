package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/scalper/config"
	"github.com/rustyeddy/scalper/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "scalper",
	Short: "EMA crossover scalping engine for a crypto dashboard",
	Long: `Scalper follows a rolling window of one minute candles from the scalper
backend, tracks a fast and a slow EMA, opens and closes a simulated position
on every crossover and keeps equity and win/loss statistics.

Settings come from a YAML or JSON file (--config) and can be overridden with
flags or SCALPER_* environment variables, e.g. SCALPER_BACKEND_URL.`,
	SilenceUsage: true,
}

var (
	cfgFile = ""
	v       = config.NewViper()
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON)")
	pf.String("backend-url", "", "backend API root (default "+config.Default().Backend.URL+")")
	pf.String("symbol", "", "market symbol, e.g. SOLUSDT")
	pf.String("log-level", "", "debug, info, warn or error")
	pf.String("journal-type", "", "sqlite, csv or none")
	pf.String("db", "", "SQLite journal path")

	bind := map[string]string{
		"backend.url":     "backend-url",
		"market.symbol":   "symbol",
		"log.level":       "log-level",
		"journal.type":    "journal-type",
		"journal.db_path": "db",
	}
	for key, flag := range bind {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

// loadConfig reads --config (or the defaults) and applies flag and
// environment overrides.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile, v)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New("scalper", cfg.Log.Level)
}
