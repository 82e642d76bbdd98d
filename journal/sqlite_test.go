package journal

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	return j, path
}

func pnl(v float64) *float64 { return &v }

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table'`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())

	for _, name := range []string{"signals", "trades", "equity", "sessions"} {
		assert.True(t, found[name], name)
	}
}

func TestSQLiteTrades(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)

	open := time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC)
	closeT := time.Date(2024, 1, 2, 3, 9, 0, 0, time.UTC)

	rec := TradeRecord{
		TradeID:    "T1",
		Symbol:     "SOLUSDT",
		Side:       "LONG",
		EntryPrice: 86.24,
		ExitPrice:  87.10,
		OpenTime:   open,
		CloseTime:  closeT,
		RealizedPL: 0.86,
		Reason:     "ExitOnBearCross",
	}
	require.NoError(t, j.RecordTrade(rec))

	got, err := j.GetTrade("T1")
	require.NoError(t, err)
	assert.Equal(t, rec.Symbol, got.Symbol)
	assert.Equal(t, rec.Side, got.Side)
	assert.InDelta(t, rec.EntryPrice, got.EntryPrice, 1e-9)
	assert.InDelta(t, rec.RealizedPL, got.RealizedPL, 1e-9)
	assert.True(t, rec.OpenTime.Equal(got.OpenTime))
	assert.True(t, rec.CloseTime.Equal(got.CloseTime))

	_, err = j.GetTrade("missing")
	assert.ErrorContains(t, err, "not found")

	require.NoError(t, j.RecordTrade(TradeRecord{
		TradeID:   "T2",
		Symbol:    "SOLUSDT",
		Side:      "SHORT",
		OpenTime:  closeT,
		CloseTime: closeT.Add(time.Hour),
		Reason:    "ExitOnBullCross",
	}))

	all, err := j.ListTrades()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "T1", all[0].TradeID)

	window, err := j.ListTradesClosedBetween(closeT.Add(time.Minute), closeT.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, "T2", window[0].TradeID)
}

func TestSQLiteSignals(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, s := range []SignalRecord{
		{SignalID: "S1", Side: "BUY", Action: "ENTER", Price: 100},
		{SignalID: "S2", Side: "SELL", Action: "EXIT", Price: 101, PnL: pnl(1)},
		{SignalID: "S3", Side: "SELL", Action: "ENTER", Price: 101},
	} {
		s.Time = base.Add(time.Duration(i) * time.Minute)
		s.Symbol = "SOLUSDT"
		require.NoError(t, j.RecordSignal(s))
	}

	all, err := j.ListSignals(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "S1", all[0].SignalID)
	assert.Nil(t, all[0].PnL)
	require.NotNil(t, all[1].PnL)
	assert.Equal(t, 1.0, *all[1].PnL)

	recent, err := j.ListSignals(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "S2", recent[0].SignalID)
	assert.Equal(t, "S3", recent[1].SignalID)
}

func TestSQLiteEquityAndSessions(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)

	_, err := j.LatestEquity()
	assert.Error(t, err)

	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordEquity(EquitySnapshot{Time: t0, Equity: 1000}))
	require.NoError(t, j.RecordEquity(EquitySnapshot{Time: t0.Add(time.Minute), Equity: 1001.5, Wins: 1}))

	e, err := j.LatestEquity()
	require.NoError(t, err)
	assert.Equal(t, 1001.5, e.Equity)
	assert.Equal(t, 1, e.Wins)

	s := Session{
		SessionID:   "SESS1",
		Created:     t0,
		Symbol:      "SOLUSDT",
		Source:      "synthetic",
		FastPeriod:  5,
		SlowPeriod:  13,
		Trades:      4,
		Wins:        3,
		Losses:      1,
		StartEquity: 1000,
		EndEquity:   1002,
	}
	require.NoError(t, j.RecordSession(s))

	got, err := j.GetSession("SESS1")
	require.NoError(t, err)
	assert.Equal(t, s.Trades, got.Trades)
	assert.Equal(t, s.Source, got.Source)
	assert.Equal(t, s.EndEquity, got.EndEquity)

	_, err = j.GetSession("nope")
	assert.ErrorContains(t, err, "not found")
}
