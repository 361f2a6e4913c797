package orders

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/atlas/market"
	"github.com/shopspring/decimal"
)

// ErrInvalidPlan is returned when a bracket breaks stop < entry < target
// or undercuts the minimum size.
var ErrInvalidPlan = errors.New("invalid order plan")

// Plan is a long bracket: a limit entry protected by a stop and a target
// that cancel each other through Group.
type Plan struct {
	Symbol    string
	Entry     float64
	Stop      float64
	Target    float64
	Quantity  int64
	Group     string
	ATR       float64
	CreatedAt time.Time
}

// Notional is the position value in quote currency.
func (p Plan) Notional() float64 {
	return p.Entry * float64(p.Quantity)
}

func (p Plan) String() string {
	return fmt.Sprintf("BUY %d@%g SL@%g TP@%g", p.Quantity, p.Entry, p.Stop, p.Target)
}

func (p Plan) Validate(minUnits int64) error {
	if !(p.Stop < p.Entry && p.Entry < p.Target) {
		return fmt.Errorf("%w: %s want stop %g < entry %g < target %g", ErrInvalidPlan, p.Symbol, p.Stop, p.Entry, p.Target)
	}
	if p.Quantity < minUnits || p.Quantity <= 0 {
		return fmt.Errorf("%w: %s quantity %d below minimum %d", ErrInvalidPlan, p.Symbol, p.Quantity, minUnits)
	}
	if p.Group == "" {
		return fmt.Errorf("%w: %s missing group", ErrInvalidPlan, p.Symbol)
	}
	return nil
}

// GroupID names the linkage group for a symbol's bracket at t.
func GroupID(symbol string, t time.Time) string {
	return fmt.Sprintf("OCA_%s_%d", symbol, t.Unix())
}

func roundPrice(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// offset returns base + mult*atr rounded to places, computed in decimal
// so 1.1 - 1.3*0.001 lands exactly on 1.0987.
func offset(base, mult, atr float64, places int32) float64 {
	d := decimal.NewFromFloat(base).Add(decimal.NewFromFloat(mult).Mul(decimal.NewFromFloat(atr)))
	return d.Round(places).InexactFloat64()
}

// Plan builds a validated bracket for sym at entry.
func (b *Builder) Plan(sym market.Symbol, entry, atr float64, qty int64, now time.Time) (Plan, error) {
	places := sym.PriceDecimals()
	p := Plan{
		Symbol:    sym.Name,
		Entry:     roundPrice(entry, places),
		Stop:      offset(entry, -b.cfg.StopATRMult, atr, places),
		Target:    offset(entry, b.cfg.TargetATRMult, atr, places),
		Quantity:  qty,
		Group:     GroupID(sym.Name, now),
		ATR:       atr,
		CreatedAt: now.UTC(),
	}
	if err := p.Validate(b.cfg.MinUnits); err != nil {
		return Plan{}, err
	}
	return p, nil
}
