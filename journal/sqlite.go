package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordSignal(s SignalRecord) error {
	var pnl sql.NullFloat64
	if s.PnL != nil {
		pnl = sql.NullFloat64{Float64: *s.PnL, Valid: true}
	}
	_, err := j.db.Exec(`
		INSERT INTO signals
		(signal_id, time, symbol, side, action, price, pnl, fast_ema, slow_ema)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.SignalID, s.Time, s.Symbol, s.Side, s.Action, s.Price, pnl, s.FastEMA, s.SlowEMA,
	)
	return err
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, symbol, side, entry_price, exit_price, open_time, close_time, realized_pl, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.Symbol, t.Side, t.EntryPrice,
		t.ExitPrice, t.OpenTime, t.CloseTime, t.RealizedPL, t.Reason,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(time, equity, wins, losses)
		VALUES (?, ?, ?, ?)`,
		e.Time, e.Equity, e.Wins, e.Losses,
	)
	return err
}

func (j *SQLite) RecordSession(s Session) error {
	_, err := j.db.Exec(`
		INSERT INTO sessions
		(session_id, created, symbol, source, fast_period, slow_period, trades, wins, losses, start_equity, end_equity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.SessionID, s.Created, s.Symbol, s.Source, s.FastPeriod, s.SlowPeriod,
		s.Trades, s.Wins, s.Losses, s.StartEquity, s.EndEquity,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
