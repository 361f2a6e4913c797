package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/atlas/market"
)

// ADX computes the Average Directional Index (Wilder) over candle OHLC.
//
// Readiness / warmup:
//  1. N periods to build initial smoothed TR/+DM/-DM
//  2. N DX values to seed the initial ADX (average of first N DX)
//
// The first DX shares its period with the end of step 1, so the stream is
// ready after 2N candles.
type ADX struct {
	n    int
	name string

	prev    market.Candle
	hasPrev bool
	ready   bool
	adx     float64
	plusDI  float64
	minusDI float64
	lastDX  float64
	periods int

	sumTR      float64
	sumPlusDM  float64
	sumMinusDM float64

	smTR      float64
	smPlusDM  float64
	smMinusDM float64

	dxSum   float64
	dxCount int
}

func NewADX(period int) *ADX {
	if period <= 0 {
		panic("ADX period must be > 0")
	}
	return &ADX{
		n:    period,
		name: fmt.Sprintf("ADX(%d)", period),
	}
}

func (a *ADX) Name() string     { return a.name }
func (a *ADX) Warmup() int      { return 2 * a.n }
func (a *ADX) Ready() bool      { return a.ready }
func (a *ADX) Float64() float64 { return a.adx }

// Update consumes the next closed candle.
func (a *ADX) Update(c market.Candle) {
	if !a.hasPrev {
		a.prev = c
		a.hasPrev = true
		return
	}

	tr := trueRange(c, a.prev)

	upMove := c.High - a.prev.High
	downMove := a.prev.Low - c.Low

	var plusDM, minusDM float64
	if upMove > downMove && upMove > 0 {
		plusDM = upMove
	}
	if downMove > upMove && downMove > 0 {
		minusDM = downMove
	}

	a.periods++

	if a.periods <= a.n {
		a.sumTR += tr
		a.sumPlusDM += plusDM
		a.sumMinusDM += minusDM

		if a.periods == a.n {
			a.smTR = a.sumTR
			a.smPlusDM = a.sumPlusDM
			a.smMinusDM = a.sumMinusDM

			a.plusDI, a.minusDI = di(a.smPlusDM, a.smMinusDM, a.smTR)
			a.lastDX = dx(a.plusDI, a.minusDI)
			a.dxSum = a.lastDX
			a.dxCount = 1
		}

		a.prev = c
		return
	}

	// smoothed = prior_smoothed - (prior_smoothed / N) + current
	nf := float64(a.n)
	a.smTR = a.smTR - (a.smTR / nf) + tr
	a.smPlusDM = a.smPlusDM - (a.smPlusDM / nf) + plusDM
	a.smMinusDM = a.smMinusDM - (a.smMinusDM / nf) + minusDM

	a.plusDI, a.minusDI = di(a.smPlusDM, a.smMinusDM, a.smTR)
	a.lastDX = dx(a.plusDI, a.minusDI)

	if !a.ready {
		a.dxSum += a.lastDX
		a.dxCount++
		if a.dxCount >= a.n {
			a.adx = a.dxSum / nf
			a.ready = true
		}
	} else {
		a.adx = (a.adx*(nf-1.0) + a.lastDX) / nf
	}

	a.prev = c
}

// ADXValue feeds candles through a fresh ADX and returns the value as of
// the last one.
func ADXValue(candles []market.Candle, period int) (float64, error) {
	if err := checkPeriod(period); err != nil {
		return 0, err
	}
	a := NewADX(period)
	if len(candles) < a.Warmup() {
		return 0, insufficient(a.Name(), a.Warmup(), len(candles))
	}
	for _, c := range candles {
		a.Update(c)
	}
	if !a.Ready() {
		return 0, insufficient(a.Name(), a.Warmup(), len(candles))
	}
	return a.Float64(), nil
}

func di(smPlusDM, smMinusDM, smTR float64) (plusDI, minusDI float64) {
	if smTR <= 0 {
		return 0, 0
	}
	plusDI = 100.0 * (smPlusDM / smTR)
	minusDI = 100.0 * (smMinusDM / smTR)
	return plusDI, minusDI
}

func dx(plusDI, minusDI float64) float64 {
	den := plusDI + minusDI
	if den <= 0 {
		return 0
	}
	return 100.0 * (math.Abs(plusDI-minusDI) / den)
}
