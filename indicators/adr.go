package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/atlas/market"
)

// ADR is the Average Daily Range: the mean high-low of the last window
// daily candles.
func ADR(daily []market.Candle, window int) (float64, error) {
	if err := checkPeriod(window); err != nil {
		return 0, err
	}
	if len(daily) < window {
		return 0, insufficient(fmt.Sprintf("ADR(%d)", window), window, len(daily))
	}

	sum := 0.0
	for _, c := range daily[len(daily)-window:] {
		sum += c.Range()
	}
	return sum / float64(window), nil
}

// Range returns the highest high minus the lowest low across candles,
// i.e. the realized range of a session. No candles means no range.
func Range(candles []market.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	high := math.Inf(-1)
	low := math.Inf(1)
	for _, c := range candles {
		high = math.Max(high, c.High)
		low = math.Min(low, c.Low)
	}
	return high - low
}
