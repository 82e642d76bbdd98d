package runner

import (
	"github.com/rustyeddy/scalper/backend"
	"github.com/rustyeddy/scalper/sim"
)

// Status reports the local engine in the backend's status shape so both can
// be rendered the same way.
func (r *Runner) Status() backend.Status {
	return StatusFrom(r.engine.Snapshot(), r.Running())
}

func StatusFrom(s sim.Snapshot, streaming bool) backend.Status {
	st := backend.Status{
		Scalper: backend.ScalperStatus{
			Running:      s.Running,
			Equity:       s.Account.Equity,
			TotalSignals: s.TotalSignals,
			TotalTrades:  s.Trades,
			WinRate:      s.Account.WinRate,
			Performance: backend.Performance{
				WinningTrades: s.Account.Wins,
				LosingTrades:  s.Account.Losses,
			},
		},
		Stream: backend.StreamStatus{
			Running: streaming,
			Symbol:  s.Symbol,
		},
	}
	if !s.Flat() {
		entry := s.Position.EntryPrice
		st.Scalper.Position = s.Position.Side.String()
		st.Scalper.EntryPrice = &entry
	}
	return st
}
