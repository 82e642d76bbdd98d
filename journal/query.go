package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const tradeColumns = `trade_id, symbol, side, entry_price, exit_price, open_time, close_time, realized_pl, reason`

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(s scanner) (TradeRecord, error) {
	var rec TradeRecord
	err := s.Scan(
		&rec.TradeID,
		&rec.Symbol,
		&rec.Side,
		&rec.EntryPrice,
		&rec.ExitPrice,
		&rec.OpenTime,
		&rec.CloseTime,
		&rec.RealizedPL,
		&rec.Reason,
	)
	return rec, err
}

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(tradeID string) (TradeRecord, error) {
	row := j.db.QueryRow(`SELECT `+tradeColumns+` FROM trades WHERE trade_id = ?`, tradeID)

	rec, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TradeRecord{}, fmt.Errorf("trade %q not found", tradeID)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}

// ListTrades returns every trade ordered by close time.
func (j *SQLite) ListTrades() ([]TradeRecord, error) {
	rows, err := j.db.Query(`SELECT ` + tradeColumns + ` FROM trades ORDER BY close_time ASC`)
	if err != nil {
		return nil, err
	}
	return collectTrades(rows)
}

// ListTradesClosedBetween returns trades whose close_time is within [start, end).
func (j *SQLite) ListTradesClosedBetween(start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT `+tradeColumns+`
		FROM trades
		WHERE close_time >= ? AND close_time < ?
		ORDER BY close_time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	return collectTrades(rows)
}

func collectTrades(rows *sql.Rows) ([]TradeRecord, error) {
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListSignals returns the newest limit signals in chronological order.
// limit <= 0 returns all of them.
func (j *SQLite) ListSignals(limit int) ([]SignalRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.Query(`
		SELECT signal_id, time, symbol, side, action, price, pnl, fast_ema, slow_ema
		FROM signals
		ORDER BY time DESC, signal_id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SignalRecord
	for rows.Next() {
		var (
			rec SignalRecord
			pnl sql.NullFloat64
		)
		if err := rows.Scan(
			&rec.SignalID,
			&rec.Time,
			&rec.Symbol,
			&rec.Side,
			&rec.Action,
			&rec.Price,
			&pnl,
			&rec.FastEMA,
			&rec.SlowEMA,
		); err != nil {
			return nil, err
		}
		if pnl.Valid {
			v := pnl.Float64
			rec.PnL = &v
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return out, nil
}

// LatestEquity returns the most recent equity snapshot.
func (j *SQLite) LatestEquity() (EquitySnapshot, error) {
	var e EquitySnapshot
	err := j.db.QueryRow(`
		SELECT time, equity, wins, losses
		FROM equity
		ORDER BY time DESC
		LIMIT 1`).Scan(&e.Time, &e.Equity, &e.Wins, &e.Losses)
	if errors.Is(err, sql.ErrNoRows) {
		return EquitySnapshot{}, fmt.Errorf("no equity recorded")
	}
	return e, err
}

// GetSession loads a recorded session summary.
func (j *SQLite) GetSession(sessionID string) (Session, error) {
	var s Session
	err := j.db.QueryRow(`
		SELECT session_id, created, symbol, source, fast_period, slow_period, trades, wins, losses, start_equity, end_equity
		FROM sessions
		WHERE session_id = ?`, sessionID).Scan(
		&s.SessionID,
		&s.Created,
		&s.Symbol,
		&s.Source,
		&s.FastPeriod,
		&s.SlowPeriod,
		&s.Trades,
		&s.Wins,
		&s.Losses,
		&s.StartEquity,
		&s.EndEquity,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("session %q not found", sessionID)
	}
	return s, err
}
