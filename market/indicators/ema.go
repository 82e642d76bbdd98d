// Package indicators computes moving averages over market candles.
package indicators

import (
	"fmt"

	"github.com/rustyeddy/scalper/market"
)

// Point is one indicator value aligned to the candle that produced it.
type Point struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// EMA is a streaming Exponential Moving Average.
//
// The first Period closes are averaged into a simple seed; every close after
// that applies ema = (close - prev) * 2/(period+1) + prev.
type EMA struct {
	n     int
	alpha float64

	seen  int
	sum   float64
	value float64

	name string
}

func NewEMA(period int) *EMA {
	if period <= 0 {
		panic("EMA period must be > 0")
	}
	return &EMA{
		n:     period,
		alpha: 2.0 / float64(period+1),
		name:  fmt.Sprintf("EMA(%d)", period),
	}
}

func (e *EMA) Name() string { return e.name }
func (e *EMA) Warmup() int  { return e.n }
func (e *EMA) Ready() bool  { return e.seen >= e.n }

// Value is 0 until the seed window is complete.
func (e *EMA) Value() float64 {
	if !e.Ready() {
		return 0
	}
	return e.value
}

func (e *EMA) Reset() {
	e.seen = 0
	e.sum = 0
	e.value = 0
}

// Update consumes the next close.
func (e *EMA) Update(close float64) {
	e.seen++
	if e.seen < e.n {
		e.sum += close
		return
	}
	if e.seen == e.n {
		e.sum += close
		e.value = e.sum / float64(e.n)
		return
	}
	e.value = (close-e.value)*e.alpha + e.value
}

// Series computes the EMA of the candle closes from scratch. Points start at
// index period, so the result has len(candles)-period entries and is empty
// when there are not enough candles.
func Series(candles []market.Candle, period int) []Point {
	if period <= 0 || len(candles) <= period {
		return []Point{}
	}

	e := NewEMA(period)
	out := make([]Point, 0, len(candles)-period)
	for i, c := range candles {
		e.Update(c.Close)
		if i < period {
			continue
		}
		out = append(out, Point{Time: c.Time, Value: e.Value()})
	}
	return out
}

// Last returns the newest two values of a series, previous first.
func Last(s []Point) (prev, cur float64, ok bool) {
	if len(s) < 2 {
		return 0, 0, false
	}
	return s[len(s)-2].Value, s[len(s)-1].Value, true
}
