package strategies

import "fmt"

type Signal int

const (
	Hold Signal = iota
	Buy
	Sell
)

func (s Signal) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "HOLD"
	}
}

func (s Signal) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Signal) UnmarshalText(b []byte) error {
	switch string(b) {
	case "BUY":
		*s = Buy
	case "SELL":
		*s = Sell
	case "HOLD", "":
		*s = Hold
	default:
		return fmt.Errorf("unknown signal %q", b)
	}
	return nil
}
