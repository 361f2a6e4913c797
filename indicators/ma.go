package indicators

import (
	"fmt"

	"github.com/rustyeddy/atlas/market"
)

// EMA calculates the Exponential Moving Average of closes with span
// period, as of the last candle.
//
// The average is the adjusted form: every close since the start of the
// slice is weighted by (1-alpha)^age and the weights are normalised, so
// the result does not depend on an arbitrary seed value.
func EMA(candles []market.Candle, period int) (float64, error) {
	if err := checkPeriod(period); err != nil {
		return 0, err
	}
	if len(candles) < period {
		return 0, insufficient(fmt.Sprintf("EMA(%d)", period), period, len(candles))
	}

	alpha := 2.0 / float64(period+1)
	decay := 1.0 - alpha

	var num, den float64
	for _, c := range candles {
		num = num*decay + c.Close
		den = den*decay + 1.0
	}
	return num / den, nil
}
