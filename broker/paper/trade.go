package paper

import (
	"math"
	"time"

	"github.com/rustyeddy/atlas/broker"
)

// order is a resting order on the paper book. Only bars that start at
// or after placed can fill it.
type order struct {
	id     string
	seq    int
	placed time.Time
	req    broker.OrderRequest
}

// Trade is a position opened by a filled entry order.
type Trade struct {
	ID         string
	Group      string
	Symbol     string
	Units      int64 // signed, negative is short
	EntryPrice float64
	OpenTime   time.Time // close of the bar that filled the entry

	ClosePrice float64
	CloseTime  time.Time
	RealizedPL float64 // account currency
	Reason     string
	Open       bool
}

// UnrealizedPL values the trade at price, in account currency.
func (t Trade) UnrealizedPL(price, quoteToAccount float64) float64 {
	plQuote := float64(t.Units) * (price - t.EntryPrice)
	return plQuote * quoteToAccount
}

// TradeMargin is the margin held for units at price.
func TradeMargin(units int64, price, quoteToAccount, marginRate float64) float64 {
	return math.Abs(float64(units)) * price * quoteToAccount * marginRate
}

// triggered reports whether a resting order trades inside bar range
// [low, high]. Buy limits and sell stops fill on the way down, sell
// limits and buy stops on the way up.
func triggered(req broker.OrderRequest, low, high float64) bool {
	switch {
	case req.Side == broker.Buy && req.Kind == broker.Limit:
		return low <= req.Price
	case req.Side == broker.Sell && req.Kind == broker.Stop:
		return low <= req.Price
	case req.Side == broker.Sell && req.Kind == broker.Limit:
		return high >= req.Price
	case req.Side == broker.Buy && req.Kind == broker.Stop:
		return high >= req.Price
	}
	return false
}

func signed(req broker.OrderRequest) int64 {
	if req.Side == broker.Sell {
		return -req.Quantity
	}
	return req.Quantity
}
