package risk

import (
	"fmt"
	"math"
)

// Policy holds the sizing constants.
type Policy struct {
	ReserveFraction float64 // share of equity never put at risk
	RiskHigh        float64 // 0.025
	RiskMedium      float64 // 0.01
	StopATRMult     float64
	MinUnits        int64
	MinBuyingPower  float64 // spendable capital floor; 0 disables
}

func (p Policy) Validate() error {
	if p.ReserveFraction < 0 || p.ReserveFraction >= 1 {
		return fmt.Errorf("reserve fraction must be in [0,1), got %v", p.ReserveFraction)
	}
	if p.RiskMedium <= 0 || p.RiskHigh <= 0 {
		return fmt.Errorf("risk percentages must be positive")
	}
	if p.RiskHigh < p.RiskMedium {
		return fmt.Errorf("high risk %v below medium risk %v", p.RiskHigh, p.RiskMedium)
	}
	if p.StopATRMult <= 0 {
		return fmt.Errorf("stop ATR multiplier must be positive")
	}
	if p.MinUnits <= 0 {
		return fmt.Errorf("min units must be positive")
	}
	if p.MinBuyingPower < 0 {
		return fmt.Errorf("min buying power must not be negative")
	}
	return nil
}

// Pct returns the fraction of usable capital risked for a tier.
func (p Policy) Pct(t Tier) float64 {
	switch t {
	case High:
		return p.RiskHigh
	case Medium:
		return p.RiskMedium
	default:
		return 0
	}
}

type Inputs struct {
	Tier      Tier
	Equity    float64
	Spendable float64 // capital available for new positions
	Entry     float64
	ATR       float64
	PipSize   float64
}

// Veto names the reason a sizing produced no order.
type Veto string

const (
	VetoNone          Veto = ""
	VetoNoTier        Veto = "no_tier"
	VetoBadInput      Veto = "bad_input"
	VetoNoEquity      Veto = "no_equity"
	VetoNoStop        Veto = "zero_stop_distance"
	VetoBuyingPower   Veto = "buying_power_floor"
	VetoNotionalLimit Veto = "notional_exceeds_buying_power"
)

type Result struct {
	Quantity   int64
	RiskAmount float64
	StopPips   float64
	Notional   float64
	Veto       Veto
}

// OK reports whether the result carries an order quantity.
func (r Result) OK() bool {
	return r.Veto == VetoNone && r.Quantity > 0
}

type Sizer struct {
	Policy Policy
}

func NewSizer(p Policy) *Sizer {
	return &Sizer{Policy: p}
}

// Size converts a tier and account state into a unit quantity. The
// quantity is never below MinUnits; when its notional would exceed the
// spendable capital the result is vetoed rather than shrunk.
func (s *Sizer) Size(in Inputs) Result {
	p := s.Policy
	if in.Tier == None {
		return Result{Veto: VetoNoTier}
	}
	if in.Entry <= 0 || in.PipSize <= 0 || in.ATR < 0 {
		return Result{Veto: VetoBadInput}
	}
	if in.Equity <= 0 {
		return Result{Veto: VetoNoEquity}
	}
	if in.Spendable < p.MinBuyingPower || in.Spendable <= 0 {
		return Result{Veto: VetoBuyingPower}
	}

	usable := in.Equity * (1 - p.ReserveFraction)
	risk := usable * p.Pct(in.Tier)

	stopDist := in.ATR * p.StopATRMult
	stopPips := stopDist / in.PipSize
	if stopPips <= 0 {
		return Result{RiskAmount: risk, Veto: VetoNoStop}
	}

	raw := risk / stopPips / in.PipSize
	qty := int64(math.Floor(raw))
	if qty < p.MinUnits {
		qty = p.MinUnits
	}

	r := Result{
		Quantity:   qty,
		RiskAmount: risk,
		StopPips:   stopPips,
		Notional:   in.Entry * float64(qty),
	}
	if r.Notional > in.Spendable {
		r.Quantity = 0
		r.Veto = VetoNotionalLimit
	}
	return r
}
