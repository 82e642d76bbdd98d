package sim

import (
	"github.com/shopspring/decimal"
)

// DefaultBaselineEquity is the equity every fresh or reset account starts at.
const DefaultBaselineEquity = 1000.0

// Account tracks realized equity and the win/loss tally. Equity is kept as a
// decimal so that it always equals the baseline plus the exact sum of the
// realized PnL values.
type Account struct {
	baseline decimal.Decimal
	equity   decimal.Decimal
	wins     int
	losses   int
}

type AccountState struct {
	Equity  float64 `json:"equity"`
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	WinRate float64 `json:"win_rate"`
}

func NewAccount(baseline float64) *Account {
	b := decimal.NewFromFloat(baseline)
	return &Account{baseline: b, equity: b}
}

// Realize books a closed trade's pnl. Zero counts as a loss.
func (a *Account) Realize(pnl float64) (win bool) {
	a.equity = a.equity.Add(decimal.NewFromFloat(pnl))
	if pnl > 0 {
		a.wins++
		return true
	}
	a.losses++
	return false
}

func (a *Account) Reset() {
	a.equity = a.baseline
	a.wins = 0
	a.losses = 0
}

func (a *Account) Equity() decimal.Decimal   { return a.equity }
func (a *Account) Baseline() decimal.Decimal { return a.baseline }
func (a *Account) Wins() int                 { return a.wins }
func (a *Account) Losses() int               { return a.losses }
func (a *Account) Trades() int               { return a.wins + a.losses }

// WinRate is a percentage, 0 before the first closed trade.
func (a *Account) WinRate() float64 {
	n := a.Trades()
	if n == 0 {
		return 0
	}
	return float64(a.wins) / float64(n) * 100
}

func (a *Account) State() AccountState {
	return AccountState{
		Equity:  a.equity.InexactFloat64(),
		Wins:    a.wins,
		Losses:  a.losses,
		WinRate: a.WinRate(),
	}
}
