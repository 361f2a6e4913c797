package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/atlas/broker"
	"github.com/rustyeddy/atlas/indicators"
	"github.com/rustyeddy/atlas/market"
	"github.com/rustyeddy/atlas/risk"
	"go.uber.org/zap"
)

const day = 24 * time.Hour

type Evaluator struct {
	gw  broker.Gateway
	cd  Cooldowns
	p   Params
	log *zap.Logger
}

func NewEvaluator(gw broker.Gateway, cd Cooldowns, p Params, log *zap.Logger) *Evaluator {
	if p.Location == nil {
		p.Location = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{gw: gw, cd: cd, p: p, log: log}
}

// Evaluate runs the gates in order and stops at the first failure. The
// clock and cooldown gates run before any broker call. A gate failure,
// including too little history for an indicator, is a Decision with
// Gate set and a nil error; only broker failures return an error.
func (e *Evaluator) Evaluate(ctx context.Context, sym market.Symbol, now time.Time) (Decision, error) {
	d := Decision{Symbol: sym.Name}
	d.Indicators.Time = now

	local := now.In(e.p.Location)
	if !sym.InWindow(local.Hour()) {
		return e.skip(d, GateWindow, fmt.Sprintf("hour %d outside %v", local.Hour(), sym.Windows)), nil
	}

	if e.cd.CoolingDown(sym.Name, now, e.p.Cooldown) {
		last, _ := e.cd.LastEntry(sym.Name)
		return e.skip(d, GateCooldown, fmt.Sprintf("last entry %s ago", now.Sub(last).Round(time.Second))), nil
	}

	// Trend strength over the symbol's own lookback.
	trend, err := e.closed(ctx, sym.Name, market.H1, time.Duration(sym.ADXLookbackDays)*day)
	if err != nil {
		return d, err
	}
	adx, err := indicators.ADXValue(trend, e.p.ADXPeriod)
	if err != nil {
		return e.noData(d, GateTrend, err)
	}
	d.Indicators.ADX = adx
	if adx < sym.EntryADX {
		return e.skip(d, GateTrend, fmt.Sprintf("adx %.2f below %.2f", adx, sym.EntryADX)), nil
	}

	// Today's realized range against the average daily range.
	daily, err := e.closed(ctx, sym.Name, market.D1, time.Duration(2*e.p.ADRWindowDays)*day)
	if err != nil {
		return d, err
	}
	adr, err := indicators.ADR(daily, e.p.ADRWindowDays)
	if err != nil {
		return e.noData(d, GateVolatility, err)
	}
	fast, err := e.closed(ctx, sym.Name, market.M5, e.p.FastLookback)
	if err != nil {
		return d, err
	}
	session := indicators.Range(since(fast, midnight(local)))
	d.Indicators.ADR = adr
	d.Indicators.SessionRange = session
	if session <= 0 || session < e.p.VolatilityRatio*adr {
		return e.skip(d, GateVolatility, fmt.Sprintf("session range %.5f below %.2f x adr %.5f", session, e.p.VolatilityRatio, adr)), nil
	}

	ok, snap, err := crossedUp(fast, e.p.EMAPeriod)
	if err != nil {
		return e.noData(d, GateFastCross, err)
	}
	if !ok {
		return e.skip(d, GateFastCross, fmt.Sprintf("no 5m cross: prev %.5f ema %.5f last %.5f", snap.PrevClose, snap.EMA, snap.Close)), nil
	}

	slow, err := e.closed(ctx, sym.Name, market.H1, e.p.SlowLookback)
	if err != nil {
		return d, err
	}
	ok, snap, err = crossedUp(slow, e.p.EMAPeriod)
	if err != nil {
		return e.noData(d, GateSlowCross, err)
	}
	d.Indicators.EMA = snap.EMA
	d.Indicators.Close = snap.Close
	d.Indicators.PrevClose = snap.PrevClose
	if !ok {
		return e.skip(d, GateSlowCross, fmt.Sprintf("no 1h cross: prev %.5f ema %.5f last %.5f", snap.PrevClose, snap.EMA, snap.Close)), nil
	}

	atr, err := indicators.ATR(slow, e.p.ATRPeriod)
	if err != nil {
		return e.noData(d, GateSlowCross, err)
	}
	d.Indicators.ATR = atr

	d.Tier = risk.TierFor(adx, sym.EntryADX, sym.HighADX)
	if d.Tier == risk.None {
		return e.skip(d, GateTier, "adx below entry threshold"), nil
	}
	d.Entry = snap.Close

	e.log.Info("entry signal",
		zap.String("symbol", sym.Name),
		zap.Stringer("tier", d.Tier),
		zap.Float64("entry", d.Entry),
		zap.Float64("adx", adx),
		zap.Float64("atr", atr),
	)
	return d, nil
}

func (e *Evaluator) closed(ctx context.Context, symbol string, tf market.Timeframe, span time.Duration) ([]market.Candle, error) {
	bs, err := e.gw.FetchBars(ctx, broker.BarRequest{
		Symbol:        symbol,
		Duration:      span,
		Timeframe:     tf,
		Price:         broker.Midpoint,
		ExtendedHours: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%s %s bars: %w", symbol, tf, err)
	}
	return bs.Closed(), nil
}

func (e *Evaluator) skip(d Decision, g Gate, reason string) Decision {
	d.Tier = risk.None
	d.Gate = g
	d.Reason = reason
	e.log.Debug("no signal", zap.String("symbol", d.Symbol), zap.String("gate", string(g)), zap.String("reason", reason))
	return d
}

func (e *Evaluator) noData(d Decision, g Gate, err error) (Decision, error) {
	if !errors.Is(err, indicators.ErrInsufficientData) {
		return d, err
	}
	return e.skip(d, g, err.Error()), nil
}

// crossedUp reports whether the last closed bar closed above the EMA
// while the one before closed at or below it.
func crossedUp(candles []market.Candle, period int) (bool, market.IndicatorSnapshot, error) {
	var snap market.IndicatorSnapshot
	if len(candles) < period+1 {
		return false, snap, fmt.Errorf("EMA(%d) cross: %w: need %d candles, got %d",
			period, indicators.ErrInsufficientData, period+1, len(candles))
	}
	ema, err := indicators.EMA(candles, period)
	if err != nil {
		return false, snap, err
	}
	last := candles[len(candles)-1]
	snap.EMA = ema
	snap.Close = last.Close
	snap.PrevClose = candles[len(candles)-2].Close
	snap.Time = last.Time
	return snap.PrevClose <= ema && ema < snap.Close, snap, nil
}

func midnight(t time.Time) time.Time {
	y, m, dd := t.Date()
	return time.Date(y, m, dd, 0, 0, 0, 0, t.Location())
}

// since returns the tail of candles opened at or after start.
func since(candles []market.Candle, start time.Time) []market.Candle {
	for i, c := range candles {
		if !c.Time.Before(start) {
			return candles[i:]
		}
	}
	return nil
}
