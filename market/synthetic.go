package market

import (
	"math"
	"math/rand"
	"time"
)

const (
	// DefaultFallbackPrice is the price the backend reports when it has no feed.
	DefaultFallbackPrice = 86.24

	// DefaultFallbackCandles seeds enough history for the slow EMA to settle.
	DefaultFallbackCandles = 101
)

// RandomWalk synthesizes candles from a geometric random walk. It stands in
// for the backend when candles cannot be fetched so the EMA and crossover
// logic stay exercisable offline.
type RandomWalk struct {
	Base     float64 // starting price
	Step     float64 // max fractional move per candle, 0.01 = ±1%
	Interval int64   // seconds between candles

	rnd  *rand.Rand
	last float64
}

func NewRandomWalk(base float64, interval int64, seed int64) *RandomWalk {
	if base <= 0 {
		base = DefaultFallbackPrice
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomWalk{
		Base:     base,
		Step:     0.01,
		Interval: interval,
		rnd:      rand.New(rand.NewSource(seed)),
		last:     base,
	}
}

// Next advances the walk one step and returns the new price.
func (r *RandomWalk) Next() float64 {
	move := (r.rnd.Float64()*2 - 1) * r.Step
	r.last = r.last * (1 + move)
	return r.last
}

// Generate returns n candles, Interval seconds apart, the newest opening in
// the interval that contains end. The walk restarts from Base.
func (r *RandomWalk) Generate(n int, end int64) []Candle {
	if n <= 0 {
		return nil
	}
	r.last = r.Base

	start := floor(end, r.Interval) - int64(n-1)*r.Interval
	out := make([]Candle, 0, n)
	for i := 0; i < n; i++ {
		open := r.last
		close := r.Next()
		wick := r.rnd.Float64() * r.Step * 0.25
		out = append(out, Candle{
			Time:  start + int64(i)*r.Interval,
			Open:  open,
			High:  math.Max(open, close) * (1 + wick),
			Low:   math.Min(open, close) * (1 - wick),
			Close: close,
		})
	}
	return out
}
