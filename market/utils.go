package market

import (
	"fmt"
	"strings"
)

// IntervalSeconds maps a Binance style interval ("1m", "5m", "1h") to
// seconds.
func IntervalSeconds(interval string) (int64, error) {
	switch strings.TrimSpace(interval) {
	case "1m":
		return 60, nil
	case "3m":
		return 180, nil
	case "5m":
		return 300, nil
	case "15m":
		return 900, nil
	case "30m":
		return 1800, nil
	case "1h":
		return 3600, nil
	case "4h":
		return 14400, nil
	case "1d":
		return 86400, nil
	default:
		return 0, fmt.Errorf("unsupported interval string: %q", interval)
	}
}

// floor aligns ts down to a multiple of step.
func floor(ts, step int64) int64 {
	if step <= 0 {
		return ts
	}
	return (ts / step) * step
}
