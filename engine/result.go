package engine

import (
	"time"

	"github.com/rustyeddy/atlas/orders"
	"github.com/rustyeddy/atlas/strategy"
)

type Outcome string

const (
	Entered Outcome = "entered"
	Skipped Outcome = "skipped"
	Failed  Outcome = "failed"
)

// Reasons for Failed results. Skips use the strategy gate or risk veto.
const (
	ReasonMarketData    = "market_data"
	ReasonAccount       = "account"
	ReasonInvalidPlan   = "invalid_plan"
	ReasonOrderRejected = "order_rejected"
	ReasonPanic         = "panic"
	ReasonCancelled     = "cancelled"
)

// Result is what happened to one symbol in one cycle.
type Result struct {
	Symbol   string
	Outcome  Outcome
	Reason   string
	Err      error
	Decision strategy.Decision
	Plan     *orders.Plan
	Elapsed  time.Duration
}

// Report aggregates the results of one cycle.
type Report struct {
	Started  time.Time
	Finished time.Time
	Results  []Result
}

func (r Report) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Result returns the entry for symbol.
func (r Report) Result(symbol string) (Result, bool) {
	for _, res := range r.Results {
		if res.Symbol == symbol {
			return res, true
		}
	}
	return Result{}, false
}
