// Package runner hosts a sim.Engine: it drives the slow and fast ticks from
// one goroutine and relays start, stop and reset to the backend.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/scalper/backend"
	"github.com/rustyeddy/scalper/sim"
)

const (
	DefaultSlowTick = 60 * time.Second
	DefaultFastTick = 2 * time.Second
)

// Backend is the subset of backend.Client the runner uses.
type Backend interface {
	GetCandles(ctx context.Context, req backend.CandlesRequest) (backend.Candles, error)
	Start(ctx context.Context) (backend.CommandResult, error)
	Stop(ctx context.Context) (backend.CommandResult, error)
	Reset(ctx context.Context) (backend.CommandResult, error)
	Price(ctx context.Context) (float64, error)
}

type Config struct {
	Market   backend.CandlesRequest
	SlowTick time.Duration
	FastTick time.Duration
}

type Runner struct {
	cfg    Config
	engine *sim.Engine
	api    Backend
	events sim.EventSink
	log    *zap.Logger
	now    func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(cfg Config, engine *sim.Engine, api Backend, events sim.EventSink, log *zap.Logger) *Runner {
	if cfg.SlowTick <= 0 {
		cfg.SlowTick = DefaultSlowTick
	}
	if cfg.FastTick <= 0 {
		cfg.FastTick = DefaultFastTick
	}
	if log == nil {
		log = zap.NewNop()
	}
	if events == nil {
		events = sim.NewEventLog(sim.DefaultEventLogSize, log)
	}
	return &Runner{
		cfg:    cfg,
		engine: engine,
		api:    api,
		events: events,
		log:    log.Named("runner"),
		now:    time.Now,
	}
}

func (r *Runner) Engine() *sim.Engine { return r.engine }

// Running reports whether the tick loop is active.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

// Start asks the backend to start, loads the candle window and arms the tick
// loop. On a backend failure nothing changes and the error is returned.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.events.Log("Scalper already running", sim.Info)
		return nil
	}

	res, err := r.api.Start(ctx)
	if err != nil {
		r.events.Log(fmt.Sprintf("Start failed: %s", message(err)), sim.Error)
		return fmt.Errorf("start: %w", err)
	}

	r.refresh(ctx)
	r.engine.SetRunning(true)

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.loop(loopCtx, r.done)

	msg := "Scalper started"
	if res.Strategy != "" {
		msg = fmt.Sprintf("Scalper started: %s", res.Strategy)
	}
	r.events.Log(msg, sim.Success)
	r.log.Info("tick loop armed",
		zap.Duration("slow", r.cfg.SlowTick),
		zap.Duration("fast", r.cfg.FastTick),
	)
	return nil
}

// Stop asks the backend to stop, then halts the tick loop. An open position
// is left as is.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.api.Stop(ctx); err != nil {
		r.events.Log(fmt.Sprintf("Stop failed: %s", message(err)), sim.Error)
		return fmt.Errorf("stop: %w", err)
	}

	r.haltLocked()
	r.engine.SetRunning(false)
	r.events.Log("Scalper stopped", sim.Info)
	return nil
}

// Reset asks the backend to reset, then clears the engine and reloads the
// candle window. The engine is paused across the reload and the running
// state is restored afterwards.
func (r *Runner) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.api.Reset(ctx); err != nil {
		r.events.Log(fmt.Sprintf("Reset failed: %s", message(err)), sim.Error)
		return fmt.Errorf("reset: %w", err)
	}

	// ticks are inert until the window is reloaded
	running := r.engine.Running()
	r.engine.SetRunning(false)
	r.engine.Reset()
	r.refresh(ctx)
	if running {
		r.engine.SetRunning(true)
		r.engine.Evaluate()
	}
	r.events.Log("Scalper reset", sim.Success)
	return nil
}

// Refresh reloads the candle window from the backend, falling back to the
// synthetic series when the backend cannot serve it.
func (r *Runner) Refresh(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refresh(ctx)
}

func (r *Runner) refresh(ctx context.Context) {
	snap, err := r.api.GetCandles(ctx, r.cfg.Market)
	if err != nil {
		r.events.Log(fmt.Sprintf("Candles unavailable (%s); using synthetic candles", message(err)), sim.Warning)
		r.engine.IngestFallback()
		return
	}
	if r.engine.IngestSnapshot(snap.Candles) {
		return
	}
	if snap.CurrentPrice > 0 {
		r.engine.OnFastTick(snap.CurrentPrice)
	}
	r.log.Debug("candles loaded", zap.Int("count", len(snap.Candles)))
}

// Close halts the tick loop without contacting the backend.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.haltLocked()
	r.engine.SetRunning(false)
}

func (r *Runner) haltLocked() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.cancel = nil
	r.done = nil
}

func (r *Runner) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	slow := time.NewTicker(r.cfg.SlowTick)
	defer slow.Stop()
	fast := time.NewTicker(r.cfg.FastTick)
	defer fast.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Debug("tick loop stopped")
			return
		case <-slow.C:
			r.slowTick(ctx)
		case <-fast.C:
			r.fastTick(ctx)
		}
	}
}

// slowTick keeps going with a stale price when the price check fails.
func (r *Runner) slowTick(ctx context.Context) {
	price, err := r.api.Price(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		r.events.Log(fmt.Sprintf("Price check failed: %s", message(err)), sim.Warning)
		price = 0
	}
	r.engine.OnSlowTick(price, r.now())
}

func (r *Runner) fastTick(ctx context.Context) {
	price, err := r.api.Price(ctx)
	if err != nil {
		r.log.Debug("fast tick price check failed", zap.Error(err))
		return
	}
	r.engine.OnFastTick(price)
}

func message(err error) string {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
