package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/scalper/journal"
	"github.com/rustyeddy/scalper/pkg/id"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the trade journal",
	Long: `Query and display records from the SQLite journal (--db or journal.db_path).

Subcommands:
  trade    - Get details of a specific trade by ID
  today    - List trades closed today
  day      - List trades closed on a specific day
  signals  - List the most recent signals
  session  - Print a recorded simulation session
  equity   - Print the latest equity snapshot

Examples:
  scalper journal trade <trade-id>
  scalper journal today
  scalper journal day 2026-01-15
  scalper journal signals --limit 20
  scalper journal equity`,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <trade-id>",
	Short: "Get details of a specific trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List trades closed today",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List trades closed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalSignalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "List the most recent signals",
	Args:  cobra.NoArgs,
	RunE:  runJournalSignals,
}

var journalSessionCmd = &cobra.Command{
	Use:   "session <session-id>",
	Short: "Print a recorded simulation session",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalSession,
}

var journalEquityCmd = &cobra.Command{
	Use:   "equity",
	Short: "Print the latest equity snapshot",
	Args:  cobra.NoArgs,
	RunE:  runJournalEquity,
}

var journalSignalLimit int

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTradeCmd, journalTodayCmd, journalDayCmd, journalSignalsCmd, journalSessionCmd, journalEquityCmd)

	journalSignalsCmd.Flags().IntVarP(&journalSignalLimit, "limit", "n", 20, "number of signals to show, 0 for all")
}

func openJournal() (*journal.SQLite, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	j, err := journal.NewSQLite(cfg.Journal.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	if _, err := id.Time(args[0]); err != nil {
		return fmt.Errorf("trade id %q: %w", args[0], err)
	}

	rec, err := j.GetTrade(args[0])
	if err != nil {
		return fmt.Errorf("get trade: %w", err)
	}

	fmt.Println(journal.FormatTradeOrg(rec))
	return nil
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	return listDay(time.Now().In(time.Local).Format("2006-01-02"))
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	return listDay(args[0])
}

func listDay(day string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	start, end, err := dayBounds(time.Local, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	recs, err := j.ListTradesClosedBetween(start, end)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	fmt.Println(journal.FormatTradesOrg(recs))
	return nil
}

func runJournalSignals(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.ListSignals(journalSignalLimit)
	if err != nil {
		return fmt.Errorf("query signals: %w", err)
	}

	for _, s := range recs {
		pnl := ""
		if s.PnL != nil {
			pnl = fmt.Sprintf("  pnl %+.4f", *s.PnL)
		}
		fmt.Printf("%s  %-5s %-4s %-8s %.4f%s\n",
			s.Time.Local().Format("2006-01-02 15:04:05"), s.Action, s.Side, s.Symbol, s.Price, pnl)
	}
	return nil
}

func runJournalSession(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	s, err := j.GetSession(args[0])
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	return s.WriteOrg(os.Stdout)
}

func runJournalEquity(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	return writeEquity(os.Stdout, j)
}

func writeEquity(w io.Writer, j *journal.SQLite) error {
	e, err := j.LatestEquity()
	if err != nil {
		return fmt.Errorf("latest equity: %w", err)
	}

	trades := e.Wins + e.Losses
	rate := 0.0
	if trades > 0 {
		rate = float64(e.Wins) / float64(trades) * 100
	}
	fmt.Fprintf(w, "As of:    %s\n", e.Time.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Equity:   %.2f\n", e.Equity)
	fmt.Fprintf(w, "Trades:   %d (%d wins, %d losses)\n", trades, e.Wins, e.Losses)
	fmt.Fprintf(w, "Win rate: %.1f%%\n", rate)
	return nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.Add(24 * time.Hour)
	return start, end, nil
}
