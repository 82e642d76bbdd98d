// Package journal records the engine's signals, closed trades and equity.
package journal

import "time"

type SignalRecord struct {
	SignalID string
	Time     time.Time
	Symbol   string
	Side     string // BUY or SELL
	Action   string // ENTER or EXIT
	Price    float64
	PnL      *float64 // exits only
	FastEMA  float64
	SlowEMA  float64
}

type TradeRecord struct {
	TradeID    string
	Symbol     string
	Side       string // LONG or SHORT
	EntryPrice float64
	ExitPrice  float64
	OpenTime   time.Time
	CloseTime  time.Time
	RealizedPL float64
	Reason     string
}

type EquitySnapshot struct {
	Time   time.Time
	Equity float64
	Wins   int
	Losses int
}

type Journal interface {
	RecordSignal(SignalRecord) error
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}
