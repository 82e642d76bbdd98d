package sim

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rustyeddy/scalper/journal"
	"github.com/rustyeddy/scalper/market"
	"github.com/rustyeddy/scalper/market/indicators"
	"github.com/rustyeddy/scalper/market/strategies"
	"github.com/rustyeddy/scalper/pkg/id"
)

const (
	SourceBackend   = "backend"
	SourceSynthetic = "synthetic"

	DefaultSignalDisplay = 20
)

type Config struct {
	Symbol          string
	Strategy        strategies.EMACrossConfig
	WindowCap       int
	CandleInterval  int64
	BaselineEquity  float64
	SignalDisplay   int
	FallbackPrice   float64
	FallbackCandles int

	// FallbackSeed seeds the synthetic generator; 0 picks a time based seed.
	FallbackSeed int64
}

func DefaultConfig() Config {
	return Config{
		Symbol:          "SOLUSDT",
		Strategy:        strategies.EMACrossConfigDefaults(),
		WindowCap:       market.DefaultCap,
		CandleInterval:  market.DefaultInterval,
		BaselineEquity:  DefaultBaselineEquity,
		SignalDisplay:   DefaultSignalDisplay,
		FallbackPrice:   market.DefaultFallbackPrice,
		FallbackCandles: market.DefaultFallbackCandles,
	}
}

func (c Config) Validate() error {
	if err := c.Strategy.Validate(); err != nil {
		return err
	}
	if c.WindowCap <= c.Strategy.SlowPeriod {
		return fmt.Errorf("engine: window cap %d must exceed slow period %d", c.WindowCap, c.Strategy.SlowPeriod)
	}
	if c.CandleInterval <= 0 {
		return errors.New("engine: candle interval must be > 0")
	}
	if c.BaselineEquity <= 0 {
		return errors.New("engine: baseline equity must be > 0")
	}
	if c.FallbackPrice <= 0 || c.FallbackCandles <= 0 {
		return errors.New("engine: fallback price and candle count must be > 0")
	}
	return nil
}

// Engine owns the candle window, the EMA series, the single position and the
// signal/trade history. All methods are safe for concurrent use; subscribers
// are called after the lock is released.
type Engine struct {
	mu sync.Mutex

	cfg     Config
	cross   *strategies.EMACross
	window  *market.Window
	walk    *market.RandomWalk
	journal journal.Journal
	events  EventSink
	now     func() time.Time

	fast     []indicators.Point
	slow     []indicators.Point
	source   string
	running  bool
	lastEval int64

	position Position
	signals  []Signal
	trades   []Trade
	acct     *Account

	subs []func(Snapshot)
}

// NewEngine builds a stopped, flat engine. j may be nil to disable the
// journal; events may be nil to drop operator messages.
func NewEngine(cfg Config, j journal.Journal, events EventSink) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cross, err := strategies.NewEMACross(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	if cfg.SignalDisplay <= 0 {
		cfg.SignalDisplay = DefaultSignalDisplay
	}
	if events == nil {
		events = NewEventLog(DefaultEventLogSize, nil)
	}
	return &Engine{
		cfg:     cfg,
		cross:   cross,
		window:  market.NewWindow(cfg.WindowCap, cfg.CandleInterval),
		walk:    market.NewRandomWalk(cfg.FallbackPrice, cfg.CandleInterval, cfg.FallbackSeed),
		journal: j,
		events:  events,
		now:     time.Now,
		acct:    NewAccount(cfg.BaselineEquity),
	}, nil
}

// SetClock replaces the wall clock, used by simulations and tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// Subscribe registers a render callback invoked with a fresh snapshot after
// every state change.
func (e *Engine) Subscribe(render func(Snapshot)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, render)
}

func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) Name() string { return e.cross.Name() }

// IngestSnapshot replaces the window with candles from the backend. A
// rejected snapshot is replaced by a synthetic series; the error is reported
// to the event sink and never returned. It reports whether the fallback was
// used.
func (e *Engine) IngestSnapshot(candles []market.Candle) (fallback bool) {
	e.mu.Lock()
	if err := e.window.Ingest(candles); err != nil {
		e.events.Log(fmt.Sprintf("Market data rejected (%v); using synthetic candles", err), Warning)
		e.ingestFallbackLocked()
		fallback = true
	} else {
		e.source = SourceBackend
	}
	e.recomputeLocked()
	if e.running {
		e.evaluateLocked(e.now())
	}
	snap, subs := e.snapshotLocked(), e.subscribers()
	e.mu.Unlock()

	notify(subs, snap)
	return fallback
}

// IngestFallback seeds the window with the synthetic generator.
func (e *Engine) IngestFallback() {
	e.mu.Lock()
	e.ingestFallbackLocked()
	e.recomputeLocked()
	if e.running {
		e.evaluateLocked(e.now())
	}
	snap, subs := e.snapshotLocked(), e.subscribers()
	e.mu.Unlock()

	notify(subs, snap)
}

func (e *Engine) ingestFallbackLocked() {
	series := e.walk.Generate(e.cfg.FallbackCandles, e.now().Unix())
	if err := e.window.Ingest(series); err != nil {
		e.events.Log(fmt.Sprintf("Synthetic candles rejected: %v", err), Error)
		return
	}
	e.source = SourceSynthetic
}

// OnSlowTick appends a candle when one is due, rebuilds both EMAs and runs the
// crossover check. price is the latest polled price, 0 when unknown.
func (e *Engine) OnSlowTick(price float64, now time.Time) {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	if e.window.Len() == 0 {
		e.ingestFallbackLocked()
	}
	if !e.window.AppendIfDue(price, now.Unix()) {
		e.window.UpdateLastClose(price)
	}
	e.recomputeLocked()
	e.evaluateLocked(now)
	e.recordEquityLocked(now)
	snap, subs := e.snapshotLocked(), e.subscribers()
	e.mu.Unlock()

	notify(subs, snap)
}

// OnFastTick refreshes the forming candle only. EMAs and the crossover
// check are left to the slow tick.
func (e *Engine) OnFastTick(price float64) {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.window.UpdateLastClose(price)
	snap, subs := e.snapshotLocked(), e.subscribers()
	e.mu.Unlock()

	notify(subs, snap)
}

// Evaluate runs the crossover check against the current series. It is a
// no-op when the engine is stopped.
func (e *Engine) Evaluate() strategies.EMACrossDecision {
	e.mu.Lock()
	var d strategies.EMACrossDecision
	if e.running {
		d = e.evaluateLocked(e.now())
	}
	snap, subs := e.snapshotLocked(), e.subscribers()
	e.mu.Unlock()

	notify(subs, snap)
	return d
}

func (e *Engine) recomputeLocked() {
	e.fast, e.slow = e.cross.Series(e.window.Candles())
}

// evaluateLocked applies at most one transition per candle:
//
//	FLAT  + Buy  -> LONG     FLAT  + Sell -> SHORT
//	LONG  + Sell -> FLAT     SHORT + Buy  -> FLAT
//
// Signals, positions and trades are stamped with t.
func (e *Engine) evaluateLocked(t time.Time) strategies.EMACrossDecision {
	d := strategies.Cross(e.fast, e.slow)

	last, ok := e.window.Last()
	if !ok || d.Signal() == strategies.Hold {
		return d
	}
	if last.Time == e.lastEval {
		return d
	}
	e.lastEval = last.Time

	switch e.position.Side {
	case Flat:
		e.enterLocked(d.Signal(), last.Close, t, d.Reason())
	case Long:
		if d.Signal() == strategies.Sell {
			e.exitLocked(last.Close, t, d.Reason())
		}
	case Short:
		if d.Signal() == strategies.Buy {
			e.exitLocked(last.Close, t, d.Reason())
		}
	}
	return d
}

// Enter opens a position at price. It returns false when a position is
// already open, side is Hold, or price is not positive and finite.
func (e *Engine) Enter(side strategies.Signal, price float64, t time.Time) bool {
	e.mu.Lock()
	ok := e.enterLocked(side, price, t, "manual")
	snap, subs := e.snapshotLocked(), e.subscribers()
	e.mu.Unlock()

	if ok {
		notify(subs, snap)
	}
	return ok
}

// Exit closes the open position at price. It returns false when flat or when
// price is not positive and finite.
func (e *Engine) Exit(price float64, t time.Time) (Trade, bool) {
	e.mu.Lock()
	tr, ok := e.exitLocked(price, t, "manual")
	snap, subs := e.snapshotLocked(), e.subscribers()
	e.mu.Unlock()

	if ok {
		notify(subs, snap)
	}
	return tr, ok
}

func (e *Engine) enterLocked(side strategies.Signal, price float64, t time.Time, reason string) bool {
	if e.position.Side != Flat || !market.ValidPrice(price) {
		return false
	}
	switch side {
	case strategies.Buy:
		e.position = Position{Side: Long, EntryPrice: price, EntryTime: t}
	case strategies.Sell:
		e.position = Position{Side: Short, EntryPrice: price, EntryTime: t}
	default:
		return false
	}

	sig := e.appendSignalLocked(side, Enter, price, t, nil)
	e.events.Log(fmt.Sprintf("%s entry at %.4f (%s)", e.position.Side, price, reason), Info)
	if e.journal != nil {
		if err := e.journal.RecordSignal(sig.record(e.cfg.Symbol)); err != nil {
			e.events.Log(fmt.Sprintf("journal signal %s: %v", sig.ID, err), Error)
		}
	}
	return true
}

func (e *Engine) exitLocked(price float64, t time.Time, reason string) (Trade, bool) {
	if e.position.Side == Flat || !market.ValidPrice(price) {
		return Trade{}, false
	}

	pos := e.position
	pnl := pos.PnL(price)
	side := strategies.Sell
	if pos.Side == Short {
		side = strategies.Buy
	}

	tr := Trade{
		ID:        id.NewAt(t),
		Entry:     pos,
		ExitPrice: price,
		ExitTime:  t,
		PnL:       pnl,
		Reason:    reason,
	}
	e.trades = append(e.trades, tr)
	e.position = Position{}
	win := e.acct.Realize(pnl)
	sig := e.appendSignalLocked(side, Exit, price, t, &pnl)

	sev := Warning
	if win {
		sev = Success
	}
	e.events.Log(fmt.Sprintf("%s exit at %.4f, PnL %+.4f", pos.Side, price, pnl), sev)

	if e.journal != nil {
		if err := e.journal.RecordSignal(sig.record(e.cfg.Symbol)); err != nil {
			e.events.Log(fmt.Sprintf("journal signal %s: %v", sig.ID, err), Error)
		}
		if err := e.journal.RecordTrade(tr.Record(e.cfg.Symbol)); err != nil {
			e.events.Log(fmt.Sprintf("journal trade %s: %v", tr.ID, err), Error)
		}
	}
	return tr, true
}

func (e *Engine) appendSignalLocked(side strategies.Signal, action Action, price float64, t time.Time, pnl *float64) Signal {
	sig := Signal{
		ID:     id.NewAt(t),
		Time:   t,
		Side:   side,
		Action: action,
		Price:  price,
		PnL:    pnl,
	}
	if _, f, ok := indicators.Last(e.fast); ok {
		sig.FastEMA = f
	}
	if _, s, ok := indicators.Last(e.slow); ok {
		sig.SlowEMA = s
	}
	e.signals = append(e.signals, sig)
	return sig
}

func (e *Engine) recordEquityLocked(t time.Time) {
	if e.journal == nil {
		return
	}
	err := e.journal.RecordEquity(journal.EquitySnapshot{
		Time:   t,
		Equity: e.acct.Equity().InexactFloat64(),
		Wins:   e.acct.Wins(),
		Losses: e.acct.Losses(),
	})
	if err != nil {
		e.events.Log(fmt.Sprintf("journal equity: %v", err), Error)
	}
}

// SetRunning gates all tick processing. Stopping leaves any open position
// in place.
func (e *Engine) SetRunning(running bool) {
	e.mu.Lock()
	e.running = running
	snap, subs := e.snapshotLocked(), e.subscribers()
	e.mu.Unlock()

	notify(subs, snap)
}

func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Reset returns the engine to flat with baseline equity, empty histories and
// an empty window. The running flag is kept; callers reseed the window with
// IngestSnapshot or IngestFallback.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.position = Position{}
	e.signals = nil
	e.trades = nil
	e.acct.Reset()
	e.window.Reset()
	e.fast, e.slow = nil, nil
	e.lastEval = 0
	e.source = ""
	e.events.Log("Engine reset", Info)
	snap, subs := e.snapshotLocked(), e.subscribers()
	e.mu.Unlock()

	notify(subs, snap)
}

func (e *Engine) Position() Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position
}

// Signals returns the full signal history in the order it was produced.
func (e *Engine) Signals() []Signal {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Signal, len(e.signals))
	copy(out, e.signals)
	return out
}

func (e *Engine) Trades() []Trade {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Trade, len(e.trades))
	copy(out, e.trades)
	return out
}

func (e *Engine) Account() AccountState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acct.State()
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	s := Snapshot{
		Time:         e.now(),
		Symbol:       e.cfg.Symbol,
		Strategy:     e.cross.Name(),
		Running:      e.running,
		Source:       e.source,
		Candles:      e.window.Candles(),
		Fast:         append([]indicators.Point(nil), e.fast...),
		Slow:         append([]indicators.Point(nil), e.slow...),
		Position:     e.position,
		TotalSignals: len(e.signals),
		Trades:       len(e.trades),
		Account:      e.acct.State(),
	}
	if last, ok := e.window.Last(); ok {
		s.LastPrice = last.Close
		if e.position.Side != Flat {
			s.Unrealized = e.position.PnL(last.Close)
		}
	}

	n := min(len(e.signals), e.cfg.SignalDisplay)
	s.Signals = make([]Signal, 0, n)
	for i := len(e.signals) - 1; i >= len(e.signals)-n; i-- {
		s.Signals = append(s.Signals, e.signals[i])
	}
	return s
}

func (e *Engine) subscribers() []func(Snapshot) {
	out := make([]func(Snapshot), len(e.subs))
	copy(out, e.subs)
	return out
}

func notify(subs []func(Snapshot), s Snapshot) {
	for _, fn := range subs {
		fn(s)
	}
}
