package strategies

import (
	"fmt"

	"github.com/rustyeddy/scalper/market"
	"github.com/rustyeddy/scalper/market/indicators"
)

const (
	DefaultFastPeriod = 5
	DefaultSlowPeriod = 13
)

type EMACrossConfig struct {
	FastPeriod int `json:"fast_period" yaml:"fast_period"`
	SlowPeriod int `json:"slow_period" yaml:"slow_period"`
}

func EMACrossConfigDefaults() EMACrossConfig {
	return EMACrossConfig{
		FastPeriod: DefaultFastPeriod,
		SlowPeriod: DefaultSlowPeriod,
	}
}

func (c EMACrossConfig) Validate() error {
	if c.FastPeriod <= 0 || c.SlowPeriod <= 0 {
		return fmt.Errorf("ema-cross: periods must be > 0 (fast=%d slow=%d)", c.FastPeriod, c.SlowPeriod)
	}
	if c.FastPeriod >= c.SlowPeriod {
		return fmt.Errorf("ema-cross: fast period %d must be below slow period %d", c.FastPeriod, c.SlowPeriod)
	}
	return nil
}

// EMACross computes a fast and a slow EMA over a candle window and reports
// crossover events between them. It keeps no state between calls: the
// series are rebuilt from the window every time.
type EMACross struct {
	EMACrossConfig
	name string
}

func NewEMACross(cfg EMACrossConfig) (*EMACross, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &EMACross{
		EMACrossConfig: cfg,
		name:           fmt.Sprintf("EMA_CROSS(%d,%d)", cfg.FastPeriod, cfg.SlowPeriod),
	}, nil
}

func (x *EMACross) Name() string { return x.name }

// Warmup is the candle count needed before a cross can be reported: the slow
// seed plus two slow points.
func (x *EMACross) Warmup() int { return x.SlowPeriod + 2 }

func (x *EMACross) Series(candles []market.Candle) (fast, slow []indicators.Point) {
	return indicators.Series(candles, x.FastPeriod), indicators.Series(candles, x.SlowPeriod)
}

// Cross compares the last two values of each series.
//
//   - Buy:  prevFast <= prevSlow and fast > slow
//   - Sell: prevFast >= prevSlow and fast < slow
//
// Both cannot hold at once since fast cannot be above and below slow.
func Cross(fast, slow []indicators.Point) EMACrossDecision {
	pf, f, okf := indicators.Last(fast)
	ps, s, oks := indicators.Last(slow)
	if !okf || !oks {
		return EMACrossDecision{signal: Hold, reason: "warming up"}
	}

	d := EMACrossDecision{
		PrevFast: pf,
		PrevSlow: ps,
		Fast:     f,
		Slow:     s,
	}
	switch {
	case pf <= ps && f > s:
		d.signal = Buy
		d.reason = "fast EMA crossed above slow EMA"
	case pf >= ps && f < s:
		d.signal = Sell
		d.reason = "fast EMA crossed below slow EMA"
	default:
		d.signal = Hold
		d.reason = "no cross"
	}
	return d
}

type EMACrossDecision struct {
	signal Signal
	reason string

	PrevFast float64
	PrevSlow float64
	Fast     float64
	Slow     float64
}

func (x EMACrossDecision) Signal() Signal {
	return x.signal
}

func (x EMACrossDecision) Reason() string {
	return x.reason
}
