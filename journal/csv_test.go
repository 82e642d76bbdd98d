package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	fh, err := os.Open(path)
	require.NoError(t, err)
	defer fh.Close()

	rows, err := csv.NewReader(fh).ReadAll()
	require.NoError(t, err)
	return rows
}

func newTestCSV(t *testing.T) (*CSVJournal, [3]string) {
	t.Helper()

	dir := t.TempDir()
	paths := [3]string{
		filepath.Join(dir, "signals.csv"),
		filepath.Join(dir, "trades.csv"),
		filepath.Join(dir, "equity.csv"),
	}
	j, err := NewCSV(paths[0], paths[1], paths[2])
	require.NoError(t, err)
	return j, paths
}

func TestCSVJournalHeaders(t *testing.T) {
	t.Parallel()

	j, paths := newTestCSV(t)
	require.NoError(t, j.Close())

	assert.Equal(t, signalHeader, readCSV(t, paths[0])[0])
	assert.Equal(t, tradeHeader, readCSV(t, paths[1])[0])
	assert.Equal(t, equityHeader, readCSV(t, paths[2])[0])
}

func TestCSVJournalRecords(t *testing.T) {
	t.Parallel()

	j, paths := newTestCSV(t)

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, j.RecordSignal(SignalRecord{
		SignalID: "S1", Time: ts, Symbol: "SOLUSDT", Side: "BUY", Action: "ENTER", Price: 86.24,
	}))
	require.NoError(t, j.RecordSignal(SignalRecord{
		SignalID: "S2", Time: ts, Symbol: "SOLUSDT", Side: "SELL", Action: "EXIT", Price: 86.5, PnL: pnl(0.26),
	}))
	require.NoError(t, j.RecordTrade(TradeRecord{
		TradeID: "T1", Symbol: "SOLUSDT", Side: "LONG",
		EntryPrice: 86.24, ExitPrice: 86.5, OpenTime: ts, CloseTime: ts, RealizedPL: 0.26, Reason: "ExitOnBearCross",
	}))
	require.NoError(t, j.RecordEquity(EquitySnapshot{Time: ts, Equity: 1000.26, Wins: 1}))
	require.NoError(t, j.Close())

	signals := readCSV(t, paths[0])
	require.Len(t, signals, 3)
	assert.Equal(t, "", signals[1][6], "entries carry no pnl")
	assert.Equal(t, "0.260000", signals[2][6])

	trades := readCSV(t, paths[1])
	require.Len(t, trades, 2)
	assert.Equal(t, []string{
		"T1", "SOLUSDT", "LONG", "86.240000", "86.500000",
		"2024-01-02T03:04:05Z", "2024-01-02T03:04:05Z", "0.260000", "ExitOnBearCross",
	}, trades[1])

	equity := readCSV(t, paths[2])
	require.Len(t, equity, 2)
	assert.Equal(t, []string{"2024-01-02T03:04:05Z", "1000.260000", "1", "0"}, equity[1])
}

func TestNewCSVBadPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := NewCSV(filepath.Join(dir, "s.csv"), filepath.Join(dir, "missing", "t.csv"), filepath.Join(dir, "e.csv"))
	assert.Error(t, err)
}
