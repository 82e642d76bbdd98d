package sim

import (
	"time"

	"github.com/rustyeddy/scalper/journal"
)

// Trade is a closed position.
type Trade struct {
	ID        string    `json:"id"`
	Entry     Position  `json:"entry"`
	ExitPrice float64   `json:"exit_price"`
	ExitTime  time.Time `json:"exit_time"`
	PnL       float64   `json:"pnl"`
	Reason    string    `json:"reason"`
}

func (t Trade) Win() bool {
	return t.PnL > 0
}

// Record converts t to its journal row.
func (t Trade) Record(symbol string) journal.TradeRecord {
	return journal.TradeRecord{
		TradeID:    t.ID,
		Symbol:     symbol,
		Side:       t.Entry.Side.String(),
		EntryPrice: t.Entry.EntryPrice,
		ExitPrice:  t.ExitPrice,
		OpenTime:   t.Entry.EntryTime,
		CloseTime:  t.ExitTime,
		RealizedPL: t.PnL,
		Reason:     t.Reason,
	}
}
