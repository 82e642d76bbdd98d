package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/scalper/backend"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check backend health and print the scalper status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Ask the backend to start the scalper",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd.Context(), "start", (*backend.Client).Start)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Ask the backend to stop the scalper",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd.Context(), "stop", (*backend.Client).Stop)
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Ask the backend to reset the scalper",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd.Context(), "reset", (*backend.Client).Reset)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd, startCmd, stopCmd, resetCmd)
}

func newClient() (*backend.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return backend.NewClient(cfg.Backend.URL, cfg.BackendTimeout()), nil
}

func runCommand(ctx context.Context, name string, fn func(*backend.Client, context.Context) (backend.CommandResult, error)) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := fn(c, ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	msg := res.Message
	if msg == "" {
		msg = res.Status
	}
	fmt.Printf("✓ %s: %s\n", name, msg)
	if res.Strategy != "" {
		fmt.Printf("  Strategy: %s\n", res.Strategy)
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := c.Health(ctx); err != nil {
		return fmt.Errorf("backend %s unreachable: %w", c.BaseURL(), err)
	}
	fmt.Printf("✓ Backend healthy: %s\n", c.BaseURL())

	st, err := c.Status(ctx)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	printStatus(st)
	return nil
}

func printStatus(st backend.Status) {
	s := st.Scalper

	position := "FLAT"
	if s.Position != "" {
		position = s.Position
	}
	fmt.Printf("  Running: %t (stream %t %s)\n", s.Running, st.Stream.Running, st.Stream.Symbol)
	if s.EntryPrice != nil {
		fmt.Printf("  Position: %s @ %.4f\n", position, *s.EntryPrice)
	} else {
		fmt.Printf("  Position: %s\n", position)
	}
	fmt.Printf("  Equity: $%.2f\n", s.Equity)
	fmt.Printf("  Signals: %d  Trades: %d\n", s.TotalSignals, s.TotalTrades)
	fmt.Printf("  Win rate: %.1f%% (%d won / %d lost)\n", s.WinRate, s.Performance.WinningTrades, s.Performance.LosingTrades)
}
