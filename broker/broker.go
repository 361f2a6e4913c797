package broker

import (
	"context"
	"errors"
	"time"

	"github.com/rustyeddy/atlas/market"
)

var (
	// ErrDisconnected marks a broken broker session. Only errors matching
	// it are eligible for the supervisor's reconnect-and-retry.
	ErrDisconnected = errors.New("broker session disconnected")

	// ErrRejected marks an order or request the venue refused.
	ErrRejected = errors.New("rejected by broker")
)

// Gateway is the broker surface the trader consumes: market data,
// account metrics and order entry.
type Gateway interface {
	FetchBars(ctx context.Context, req BarRequest) (market.BarSeries, error)
	AccountSummary(ctx context.Context) (AccountSnapshot, error)
	SubmitOrder(ctx context.Context, req OrderRequest) (OrderAck, error)
	CancelOrder(ctx context.Context, orderID string) error

	// Reconnect drops the current session and opens a new one, returning
	// the fresh session identifier.
	Reconnect(ctx context.Context) (string, error)
}

// PriceSource selects which side of the book bars are built from.
type PriceSource string

const (
	Midpoint PriceSource = "MIDPOINT"
	Bid      PriceSource = "BID"
	Ask      PriceSource = "ASK"
)

type BarRequest struct {
	Symbol        string
	Duration      time.Duration // how far back from now
	Timeframe     market.Timeframe
	Price         PriceSource
	ExtendedHours bool
}

// AccountSnapshot is the typed view of the broker's account metrics.
// AvailableFunds and BuyingPower are optional because venues report one,
// the other, or neither.
type AccountSnapshot struct {
	ID             string
	Currency       string
	Equity         float64 // net liquidation value
	AvailableFunds *float64
	BuyingPower    *float64
}

// Spendable returns the capital available to open new positions:
// AvailableFunds when reported, else BuyingPower when reported, else
// Equity.
func (a AccountSnapshot) Spendable() float64 {
	if a.AvailableFunds != nil {
		return *a.AvailableFunds
	}
	if a.BuyingPower != nil {
		return *a.BuyingPower
	}
	return a.Equity
}

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

type OrderKind string

const (
	Limit OrderKind = "LIMIT"
	Stop  OrderKind = "STOP"
)

type TimeInForce string

const (
	GTC TimeInForce = "GTC"
	GTD TimeInForce = "GTD"
)

// OrderRequest is a single leg. Group ties the legs of one bracket
// together; OCA marks the legs where a fill cancels the other OCA legs
// of the same group.
type OrderRequest struct {
	Symbol      string
	Side        Side
	Quantity    int64
	Price       float64
	Kind        OrderKind
	Group       string
	OCA         bool
	TimeInForce TimeInForce
	ClientID    string
}

type OrderAck struct {
	OrderID  string
	ClientID string
	Status   string
}
