package market

import (
	"fmt"
	"math"
)

// Candle represents OHLC (Open, High, Low, Close) candlestick data.
// Time is the unix second the candle opened.
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume,omitempty"`
}

// ValidPrice reports whether p is a usable quote: positive and finite.
func ValidPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0)
}

// Validate checks the OHLC invariants of a single candle.
func (c Candle) Validate() error {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close} {
		if !ValidPrice(v) {
			return fmt.Errorf("candle %d: prices must be positive and finite", c.Time)
		}
	}
	if c.High < math.Max(c.Open, c.Close) {
		return fmt.Errorf("candle %d: high %.6f below body", c.Time, c.High)
	}
	if c.Low > math.Min(c.Open, c.Close) {
		return fmt.Errorf("candle %d: low %.6f above body", c.Time, c.Low)
	}
	return nil
}

// widen moves the close to price and stretches high/low to include it.
func (c *Candle) widen(price float64) {
	c.Close = price
	if price > c.High {
		c.High = price
	}
	if price < c.Low {
		c.Low = price
	}
}
