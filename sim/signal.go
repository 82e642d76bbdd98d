package sim

import (
	"time"

	"github.com/rustyeddy/scalper/journal"
	"github.com/rustyeddy/scalper/market/strategies"
)

type Action string

const (
	Enter Action = "ENTER"
	Exit  Action = "EXIT"
)

// Signal is an immutable log entry; the engine only ever appends them.
type Signal struct {
	ID      string            `json:"id"`
	Time    time.Time         `json:"timestamp"`
	Side    strategies.Signal `json:"side"`
	Action  Action            `json:"action"`
	Price   float64           `json:"price"`
	PnL     *float64          `json:"pnl,omitempty"`
	FastEMA float64           `json:"fast_ema,omitempty"`
	SlowEMA float64           `json:"slow_ema,omitempty"`
}

func (s Signal) record(symbol string) journal.SignalRecord {
	rec := journal.SignalRecord{
		SignalID: s.ID,
		Time:     s.Time,
		Symbol:   symbol,
		Side:     s.Side.String(),
		Action:   string(s.Action),
		Price:    s.Price,
		FastEMA:  s.FastEMA,
		SlowEMA:  s.SlowEMA,
	}
	if s.PnL != nil {
		v := *s.PnL
		rec.PnL = &v
	}
	return rec
}
