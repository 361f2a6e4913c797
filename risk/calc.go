package risk

import "math"

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// PlannedRisk is the loss in account currency if the stop is hit.
// quoteToAccountRate converts the pair's quote currency into the account
// currency (1.0 for EURUSD in a USD account).
func PlannedRisk(units, entry, stop, quoteToAccountRate float64) float64 {
	return units * abs(entry-stop) * quoteToAccountRate
}

// RR is the reward to risk ratio of a bracket.
func RR(entry, stop, takeProfit float64) float64 {
	risk := abs(entry - stop)
	reward := abs(takeProfit - entry)
	if risk == 0 {
		return 0
	}
	return reward / risk
}

// RiskPct is planned risk as a fraction of equity.
func RiskPct(plannedRisk, equity float64) float64 {
	if equity <= 0 {
		return math.Inf(1)
	}
	return plannedRisk / equity
}
