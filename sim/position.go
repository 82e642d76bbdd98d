package sim

import (
	"fmt"
	"time"
)

type Side int

const (
	Flat Side = iota
	Long
	Short
)

func (s Side) String() string {
	switch s {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "FLAT"
	}
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(b []byte) error {
	switch string(b) {
	case "LONG":
		*s = Long
	case "SHORT":
		*s = Short
	case "FLAT", "":
		*s = Flat
	default:
		return fmt.Errorf("unknown side %q", b)
	}
	return nil
}

// Position is the single open position the engine may hold.
type Position struct {
	Side       Side      `json:"side"`
	EntryPrice float64   `json:"entry_price"`
	EntryTime  time.Time `json:"entry_time"`
}

// PnL is the signed price move in the position's favour.
func (p Position) PnL(exitPrice float64) float64 {
	if p.Side == Short {
		return p.EntryPrice - exitPrice
	}
	return exitPrice - p.EntryPrice
}
