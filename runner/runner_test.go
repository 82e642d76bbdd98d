package runner

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/scalper/backend"
	"github.com/rustyeddy/scalper/market"
	"github.com/rustyeddy/scalper/market/strategies"
	"github.com/rustyeddy/scalper/sim"
)

const t0 int64 = 1_700_000_040

type fakeBackend struct {
	mu         sync.Mutex
	candles    []market.Candle
	candlesErr error
	cmdErr     error
	price      float64
	priceErr   error
	cmds       []string
	priceCalls atomic.Int32
	onCandles  func()
}

func (f *fakeBackend) GetCandles(ctx context.Context, req backend.CandlesRequest) (backend.Candles, error) {
	f.mu.Lock()
	hook := f.onCandles
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.candlesErr != nil {
		return backend.Candles{}, f.candlesErr
	}
	return backend.Candles{Candles: f.candles}, nil
}

func (f *fakeBackend) command(name string) (backend.CommandResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = append(f.cmds, name)
	if f.cmdErr != nil {
		return backend.CommandResult{}, f.cmdErr
	}
	return backend.CommandResult{Status: "success", Strategy: "EMA 2/4"}, nil
}

func (f *fakeBackend) Start(ctx context.Context) (backend.CommandResult, error) {
	return f.command("start")
}

func (f *fakeBackend) Stop(ctx context.Context) (backend.CommandResult, error) {
	return f.command("stop")
}

func (f *fakeBackend) Reset(ctx context.Context) (backend.CommandResult, error) {
	return f.command("reset")
}

func (f *fakeBackend) Price(ctx context.Context) (float64, error) {
	f.priceCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.price, f.priceErr
}

func candlesFrom(start int64, closes ...float64) []market.Candle {
	out := make([]market.Candle, 0, len(closes))
	prev := closes[0]
	for i, c := range closes {
		out = append(out, market.Candle{
			Time:  start + int64(i)*60,
			Open:  prev,
			High:  math.Max(prev, c),
			Low:   math.Min(prev, c),
			Close: c,
		})
		prev = c
	}
	return out
}

func newTestRunner(t *testing.T, api *fakeBackend, cfg Config) (*Runner, *sim.EventLog) {
	t.Helper()

	ecfg := sim.DefaultConfig()
	ecfg.Strategy = strategies.EMACrossConfig{FastPeriod: 2, SlowPeriod: 4}
	ecfg.FallbackSeed = 1
	events := sim.NewEventLog(sim.DefaultEventLogSize, nil)
	e, err := sim.NewEngine(ecfg, nil, events)
	require.NoError(t, err)

	r := New(cfg, e, api, events, nil)
	t.Cleanup(r.Close)
	return r, events
}

// idle keeps the ticker from firing during command tests.
var idle = Config{SlowTick: time.Hour, FastTick: time.Hour}

func TestStartStop(t *testing.T) {
	api := &fakeBackend{candles: candlesFrom(t0, 20, 19, 18, 17, 16, 15, 14, 13)}
	r, events := newTestRunner(t, api, idle)
	ctx := context.Background()

	require.NoError(t, r.Start(ctx))
	assert.True(t, r.Running())
	assert.True(t, r.Engine().Running())

	s := r.Engine().Snapshot()
	assert.Equal(t, sim.SourceBackend, s.Source)
	assert.Len(t, s.Candles, 8)
	assert.Equal(t, "Scalper started: EMA 2/4", events.Entries()[0].Message)

	require.NoError(t, r.Start(ctx), "second start is a no-op")

	require.NoError(t, r.Stop(ctx))
	assert.False(t, r.Running())
	assert.False(t, r.Engine().Running())
	assert.Equal(t, []string{"start", "stop"}, api.cmds)
}

func TestCommandFailureKeepsState(t *testing.T) {
	api := &fakeBackend{cmdErr: &backend.APIError{Endpoint: "/scalper/start", Status: 500, Message: "binance down"}}
	r, events := newTestRunner(t, api, idle)
	ctx := context.Background()

	err := r.Start(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrBackend)
	assert.False(t, r.Running())
	assert.False(t, r.Engine().Running())

	ev := events.Entries()[0]
	assert.Equal(t, sim.Error, ev.Severity)
	assert.Equal(t, "Start failed: binance down", ev.Message)

	api.cmdErr = nil
	require.NoError(t, r.Start(ctx))

	api.cmdErr = &backend.APIError{Endpoint: "/scalper/stop", Message: "timeout"}
	require.Error(t, r.Stop(ctx))
	assert.True(t, r.Running(), "running flag unchanged on failed stop")
	assert.True(t, r.Engine().Running())
}

func TestStartFallsBackWithoutCandles(t *testing.T) {
	api := &fakeBackend{candlesErr: &backend.APIError{Endpoint: "/candles", Message: "connection refused"}}
	r, events := newTestRunner(t, api, idle)

	require.NoError(t, r.Start(context.Background()))

	s := r.Engine().Snapshot()
	assert.Equal(t, sim.SourceSynthetic, s.Source)
	assert.Len(t, s.Candles, market.DefaultFallbackCandles)

	var warned bool
	for _, ev := range events.Entries() {
		if ev.Severity == sim.Warning {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestReset(t *testing.T) {
	api := &fakeBackend{candles: candlesFrom(t0, 20, 19, 18, 17, 16, 15, 14, 13)}
	r, _ := newTestRunner(t, api, idle)
	ctx := context.Background()

	require.NoError(t, r.Start(ctx))
	now := time.Unix(t0, 0)
	require.True(t, r.Engine().Enter(strategies.Buy, 13, now))
	r.Engine().Exit(14, now)
	require.Equal(t, 1001.0, r.Engine().Account().Equity)

	require.NoError(t, r.Reset(ctx))
	s := r.Engine().Snapshot()
	assert.Equal(t, 1000.0, s.Account.Equity)
	assert.Zero(t, s.TotalSignals)
	assert.Len(t, s.Candles, 8, "window reloaded")
	assert.True(t, r.Running())

	api.cmdErr = &backend.APIError{Endpoint: "/scalper/reset", Message: "nope"}
	r.Engine().Enter(strategies.Buy, 13, now)
	require.Error(t, r.Reset(ctx))
	assert.Equal(t, 1, r.Engine().Snapshot().TotalSignals)
}

func TestResetIgnoresTicksUntilReloaded(t *testing.T) {
	api := &fakeBackend{candles: candlesFrom(t0, 20, 19, 18, 17, 16, 15, 14, 13)}
	r, _ := newTestRunner(t, api, idle)
	ctx := context.Background()
	require.NoError(t, r.Start(ctx))

	var during sim.Snapshot
	api.onCandles = func() {
		// a slow tick landing while the backend is still serving candles
		r.Engine().OnSlowTick(50, time.Unix(t0+60*60, 0))
		r.Engine().OnFastTick(50)
		during = r.Engine().Snapshot()
	}
	require.NoError(t, r.Reset(ctx))

	assert.Empty(t, during.Candles, "no synthetic seed between reset and reload")
	assert.Zero(t, during.TotalSignals)

	s := r.Engine().Snapshot()
	assert.Equal(t, sim.SourceBackend, s.Source)
	assert.Len(t, s.Candles, 8)
	assert.Equal(t, sim.Flat, s.Position.Side)
	assert.Zero(t, s.TotalSignals)
	assert.True(t, r.Running())
	assert.True(t, r.Engine().Running(), "running flag restored after reload")
}

func TestSlowTickAppendsAndEvaluates(t *testing.T) {
	api := &fakeBackend{candles: candlesFrom(t0, 20, 19, 18, 17, 16, 15, 14, 13), price: 30}
	r, _ := newTestRunner(t, api, idle)
	ctx := context.Background()
	require.NoError(t, r.Start(ctx))

	r.now = func() time.Time { return time.Unix(t0+8*60, 0) }
	r.slowTick(ctx)

	s := r.Engine().Snapshot()
	assert.Len(t, s.Candles, 9)
	assert.Equal(t, sim.Long, s.Position.Side)
	assert.Equal(t, 30.0, s.Position.EntryPrice)

	st := r.Status()
	assert.Equal(t, "LONG", st.Scalper.Position)
	require.NotNil(t, st.Scalper.EntryPrice)
	assert.Equal(t, 30.0, *st.Scalper.EntryPrice)
	assert.True(t, st.Stream.Running)
}

func TestSlowTickProbeFailureUsesStaleData(t *testing.T) {
	api := &fakeBackend{
		candles:  candlesFrom(t0, 20, 19, 18, 17, 16, 15, 14, 13),
		priceErr: &backend.APIError{Endpoint: "/scalper/test", Message: "timeout"},
	}
	r, events := newTestRunner(t, api, idle)
	ctx := context.Background()
	require.NoError(t, r.Start(ctx))

	r.now = func() time.Time { return time.Unix(t0+8*60, 0) }
	r.slowTick(ctx)
	r.fastTick(ctx)

	s := r.Engine().Snapshot()
	require.Len(t, s.Candles, 9)
	assert.Equal(t, 13.0, s.LastPrice, "new candle opens flat at the last close")
	assert.Equal(t, sim.Warning, events.Entries()[0].Severity)
}

func TestLoopTicks(t *testing.T) {
	api := &fakeBackend{candles: candlesFrom(t0, 20, 19, 18, 17, 16, 15, 14, 13), price: 13.5}
	r, _ := newTestRunner(t, api, Config{SlowTick: 20 * time.Millisecond, FastTick: 5 * time.Millisecond})

	require.NoError(t, r.Start(context.Background()))
	require.Eventually(t, func() bool {
		return api.priceCalls.Load() >= 5
	}, 2*time.Second, 5*time.Millisecond)

	r.Close()
	n := api.priceCalls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, api.priceCalls.Load(), "no ticks after close")
	assert.Equal(t, 13.5, r.Engine().Snapshot().LastPrice)
}
