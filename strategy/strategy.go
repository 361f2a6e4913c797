// Package strategy decides, per symbol and cycle, whether the v4.4j
// trend-continuation entry fires and at which risk tier.
package strategy

import (
	"time"

	"github.com/rustyeddy/atlas/market"
	"github.com/rustyeddy/atlas/risk"
)

// Gate names a step of the signal pipeline.
type Gate string

const (
	GateWindow     Gate = "time_window"
	GateCooldown   Gate = "cooldown"
	GateTrend      Gate = "trend_strength"
	GateVolatility Gate = "volatility"
	GateFastCross  Gate = "fast_cross"
	GateSlowCross  Gate = "slow_cross"
	GateTier       Gate = "tier"
)

// Decision is the outcome of one evaluation. Gate is the first gate that
// failed and is empty when the signal fired.
type Decision struct {
	Symbol     string
	Tier       risk.Tier
	Entry      float64
	Indicators market.IndicatorSnapshot
	Gate       Gate
	Reason     string
}

// Signal reports whether an entry should be attempted.
func (d Decision) Signal() bool {
	return d.Gate == "" && d.Tier != risk.None
}

// Cooldowns tracks each symbol's last accepted entry.
type Cooldowns interface {
	LastEntry(symbol string) (time.Time, bool)
	CoolingDown(symbol string, now time.Time, cooldown time.Duration) bool
}

type Params struct {
	EMAPeriod       int
	ATRPeriod       int
	ADXPeriod       int
	ADRWindowDays   int
	VolatilityRatio float64
	Cooldown        time.Duration
	Location        *time.Location // trading windows and session start

	FastLookback time.Duration // 5-minute history for the fast cross
	SlowLookback time.Duration // hourly history for the slow cross
}

// DefaultParams are the v4.4j values.
func DefaultParams() Params {
	return Params{
		EMAPeriod:       50,
		ATRPeriod:       14,
		ADXPeriod:       14,
		ADRWindowDays:   14,
		VolatilityRatio: 0.5,
		Cooldown:        time.Hour,
		Location:        time.UTC,
		FastLookback:    4 * 24 * time.Hour,
		SlowLookback:    3 * 24 * time.Hour,
	}
}
