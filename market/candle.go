package market

import "time"

// Candle represents OHLC (Open, High, Low, Close) candlestick data.
// Complete is false for the bar that is still forming.
type Candle struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	time.Time
	Volume   float64
	Complete bool
}

// Range is the high-low span of the candle.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// BarSeries is an ordered run of candles for one symbol and timeframe.
// The most recent candle may still be forming.
type BarSeries struct {
	Symbol    string
	Timeframe Timeframe
	Candles   []Candle
}

func (bs BarSeries) Len() int {
	return len(bs.Candles)
}

// Closed returns the completed candles only. A forming bar can only
// appear at the tail, so everything from the first incomplete candle on
// is dropped.
func (bs BarSeries) Closed() []Candle {
	for i, c := range bs.Candles {
		if !c.Complete {
			return bs.Candles[:i]
		}
	}
	return bs.Candles
}

// Last returns the most recent closed candle.
func (bs BarSeries) Last() (Candle, bool) {
	closed := bs.Closed()
	if len(closed) == 0 {
		return Candle{}, false
	}
	return closed[len(closed)-1], true
}
