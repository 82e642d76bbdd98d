package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/scalper/config"
	"github.com/rustyeddy/scalper/journal"
	"github.com/rustyeddy/scalper/market"
	"github.com/rustyeddy/scalper/pkg/id"
	"github.com/rustyeddy/scalper/sim"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the engine offline over a synthetic random walk",
	Long: `Simulate seeds the window with synthetic candles, then replays further
synthetic candles through the same slow and fast ticks the live runner uses,
on a simulated clock. Trades and a session summary are printed; with a
sqlite journal the session is recorded too.

Example:
  scalper simulate --candles 600 --seed 42 --org`,
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

var (
	simCandles int
	simSeed    int64
	simPrice   float64
	simOrg     bool
)

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().IntVarP(&simCandles, "candles", "n", 500, "candles to replay after the seed window")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 0, "random walk seed, 0 for time based")
	simulateCmd.Flags().Float64Var(&simPrice, "price", 0, "starting price (default engine.fallback_price)")
	simulateCmd.Flags().BoolVar(&simOrg, "org", false, "print the session and trades as Org-mode")
}

type simOptions struct {
	Candles int
	Seed    int64
	Price   float64
	End     time.Time
}

type simResult struct {
	Session journal.Session
	Trades  []sim.Trade
	Open    sim.Position
}

// simulate replays opts.Candles synthetic candles ending at opts.End through
// a fresh engine. j may be nil.
func simulate(cfg *config.Config, j journal.Journal, opts simOptions) (simResult, error) {
	ecfg := cfg.EngineConfig()
	ecfg.FallbackSeed = opts.Seed
	if opts.Price > 0 {
		ecfg.FallbackPrice = opts.Price
	}

	e, err := sim.NewEngine(ecfg, j, sim.NewEventLog(sim.DefaultEventLogSize, nil))
	if err != nil {
		return simResult{}, err
	}

	walk := market.NewRandomWalk(ecfg.FallbackPrice, ecfg.CandleInterval, opts.Seed)
	series := walk.Generate(ecfg.FallbackCandles+opts.Candles, opts.End.Unix())
	seed, rest := series[:ecfg.FallbackCandles], series[ecfg.FallbackCandles:]

	clock := time.Unix(seed[len(seed)-1].Time, 0)
	e.SetClock(func() time.Time { return clock })

	if e.IngestSnapshot(seed) {
		return simResult{}, fmt.Errorf("synthetic seed window rejected")
	}
	e.SetRunning(true)

	for _, c := range rest {
		clock = time.Unix(c.Time, 0)
		e.OnSlowTick(c.Close, clock)
		e.OnFastTick(c.High)
		e.OnFastTick(c.Low)
		e.OnFastTick(c.Close)
	}

	acct := e.Account()
	s := journal.Session{
		SessionID:   id.New(),
		Created:     time.Now(),
		Symbol:      ecfg.Symbol,
		Source:      sim.SourceSynthetic,
		FastPeriod:  ecfg.Strategy.FastPeriod,
		SlowPeriod:  ecfg.Strategy.SlowPeriod,
		Trades:      acct.Wins + acct.Losses,
		Wins:        acct.Wins,
		Losses:      acct.Losses,
		StartEquity: ecfg.BaselineEquity,
		EndEquity:   acct.Equity,
	}
	return simResult{Session: s, Trades: e.Trades(), Open: e.Position()}, nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	j, err := cfg.Journal.Open()
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	if j != nil {
		defer j.Close()
	}

	res, err := simulate(cfg, j, simOptions{
		Candles: simCandles,
		Seed:    simSeed,
		Price:   simPrice,
		End:     time.Now(),
	})
	if err != nil {
		return err
	}

	if db, ok := j.(*journal.SQLite); ok {
		if err := db.RecordSession(res.Session); err != nil {
			return fmt.Errorf("record session: %w", err)
		}
	}

	if simOrg {
		if err := res.Session.WriteOrg(os.Stdout); err != nil {
			return err
		}
		recs := make([]journal.TradeRecord, 0, len(res.Trades))
		for _, t := range res.Trades {
			recs = append(recs, t.Record(res.Session.Symbol))
		}
		fmt.Println(journal.FormatTradesOrg(recs))
		return nil
	}

	for _, t := range res.Trades {
		fmt.Printf("%s  %-5s %.4f -> %.4f  %+.4f\n",
			t.ExitTime.Local().Format("2006-01-02 15:04"), t.Entry.Side, t.Entry.EntryPrice, t.ExitPrice, t.PnL)
	}
	if res.Open.Side != sim.Flat {
		fmt.Printf("Open: %s @ %.4f\n", res.Open.Side, res.Open.EntryPrice)
	}

	s := res.Session
	fmt.Printf("\nSimulation complete (%s)\n", s.SessionID)
	fmt.Printf("  Trades: %d (%d won / %d lost, %.1f%%)\n", s.Trades, s.Wins, s.Losses, s.WinRate())
	fmt.Printf("  Equity: %.4f -> %.4f (%+.4f)\n", s.StartEquity, s.EndEquity, s.NetPL())
	return nil
}
