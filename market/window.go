package market

import (
	"errors"
	"fmt"
)

const (
	// DefaultCap is the number of candles a Window keeps.
	DefaultCap = 200

	// DefaultInterval is one minute in seconds.
	DefaultInterval int64 = 60
)

var (
	ErrEmptySnapshot = errors.New("empty candle snapshot")
	ErrUnordered     = errors.New("candles not in strictly increasing time order")
)

// Window is a bounded, time ordered run of the most recent candles.
// Once Cap is exceeded the oldest candle is evicted first.
type Window struct {
	Cap      int
	Interval int64 // seconds per candle

	candles []Candle
}

func NewWindow(cap int, interval int64) *Window {
	if cap <= 0 {
		cap = DefaultCap
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Window{
		Cap:      cap,
		Interval: interval,
		candles:  make([]Candle, 0, cap),
	}
}

// Ingest replaces the window wholesale. Only the newest Cap candles are kept.
// The window is left untouched when the snapshot is rejected.
func (w *Window) Ingest(candles []Candle) error {
	if len(candles) == 0 {
		return ErrEmptySnapshot
	}
	for i, c := range candles {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("ingest: %w", err)
		}
		if i > 0 && c.Time <= candles[i-1].Time {
			return fmt.Errorf("ingest at index %d: %w", i, ErrUnordered)
		}
	}

	if len(candles) > w.Cap {
		candles = candles[len(candles)-w.Cap:]
	}
	w.candles = append(w.candles[:0], candles...)
	return nil
}

// AppendIfDue adds a new candle when at least one full interval has passed
// since the last candle opened. The new candle opens flat at the last close
// and then takes latestPrice (when valid) as its close.
func (w *Window) AppendIfDue(latestPrice float64, now int64) bool {
	last, ok := w.Last()
	if !ok {
		return false
	}
	elapsed := now - last.Time
	if elapsed < w.Interval {
		return false
	}

	px := last.Close
	c := Candle{
		Time:  last.Time + floor(elapsed, w.Interval),
		Open:  px,
		High:  px,
		Low:   px,
		Close: px,
	}
	w.push(c)
	w.UpdateLastClose(latestPrice)
	return true
}

// UpdateLastClose refreshes the most recent candle without creating a new one.
// Prices that are not positive and finite are ignored.
func (w *Window) UpdateLastClose(price float64) {
	if len(w.candles) == 0 || !ValidPrice(price) {
		return
	}
	w.candles[len(w.candles)-1].widen(price)
}

func (w *Window) push(c Candle) {
	if len(w.candles) >= w.Cap {
		// shift instead of reslicing so the backing array does not grow
		copy(w.candles, w.candles[1:])
		w.candles = w.candles[:len(w.candles)-1]
	}
	w.candles = append(w.candles, c)
}

func (w *Window) Len() int {
	return len(w.candles)
}

func (w *Window) Last() (Candle, bool) {
	if len(w.candles) == 0 {
		return Candle{}, false
	}
	return w.candles[len(w.candles)-1], true
}

// Candles returns a copy of the window contents, oldest first.
func (w *Window) Candles() []Candle {
	out := make([]Candle, len(w.candles))
	copy(out, w.candles)
	return out
}

func (w *Window) Reset() {
	w.candles = w.candles[:0]
}

type Iterator struct {
	w   *Window
	idx int
}

func (w *Window) Iterator() *Iterator {
	return &Iterator{
		w:   w,
		idx: -1,
	}
}

func (it *Iterator) Next() bool {
	it.idx++
	return it.idx < len(it.w.candles)
}

func (it *Iterator) Candle() Candle {
	return it.w.candles[it.idx]
}

func (it *Iterator) Index() int {
	return it.idx
}
