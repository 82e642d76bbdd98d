package sim

import (
	"time"

	"github.com/rustyeddy/scalper/market"
	"github.com/rustyeddy/scalper/market/indicators"
)

// Snapshot is a read-only copy of the engine state handed to renderers.
type Snapshot struct {
	Time      time.Time `json:"time"`
	Symbol    string    `json:"symbol"`
	Strategy  string    `json:"strategy"`
	Running   bool      `json:"running"`
	Source    string    `json:"source"`
	LastPrice float64   `json:"last_price"`

	Candles []market.Candle    `json:"candles"`
	Fast    []indicators.Point `json:"fast_ema"`
	Slow    []indicators.Point `json:"slow_ema"`

	Position   Position `json:"position"`
	Unrealized float64  `json:"unrealized_pnl"`

	// Signals holds at most the display limit, newest first.
	Signals      []Signal     `json:"signals"`
	TotalSignals int          `json:"total_signals"`
	Trades       int          `json:"trades"`
	Account      AccountState `json:"account"`
}

func (s Snapshot) Flat() bool {
	return s.Position.Side == Flat
}
