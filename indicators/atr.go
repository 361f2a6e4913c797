package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/atlas/market"
)

// ATR calculates the Average True Range for the given period using
// Wilder's smoothing. It needs period+1 candles because every true range
// looks at the previous close.
func ATR(candles []market.Candle, period int) (float64, error) {
	if err := checkPeriod(period); err != nil {
		return 0, err
	}
	if len(candles) < period+1 {
		return 0, insufficient(fmt.Sprintf("ATR(%d)", period), period+1, len(candles))
	}

	trueRanges := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		trueRanges = append(trueRanges, trueRange(candles[i], candles[i-1]))
	}

	// Initial ATR is the SMA of the first period true ranges
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += trueRanges[i]
	}
	atr := sum / float64(period)

	p := float64(period)
	for i := period; i < len(trueRanges); i++ {
		atr = (atr*(p-1) + trueRanges[i]) / p
	}

	return atr, nil
}

// trueRange calculates the True Range for a candle given the previous candle
func trueRange(current, previous market.Candle) float64 {
	highLow := current.High - current.Low
	highClose := math.Abs(current.High - previous.Close)
	lowClose := math.Abs(current.Low - previous.Close)

	return math.Max(highLow, math.Max(highClose, lowClose))
}
