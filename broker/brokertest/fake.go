// Package brokertest provides an in-memory broker.Gateway for tests.
package brokertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rustyeddy/atlas/broker"
	"github.com/rustyeddy/atlas/market"
)

// Fake is a scripted gateway. Bars are keyed by symbol and timeframe;
// errors queued with FailNext are returned before any real work, one per
// call, in order.
type Fake struct {
	mu sync.Mutex

	Bars    map[string]market.BarSeries
	Account broker.AccountSnapshot

	// spans overrides Bars for one exact request duration.
	spans map[string]market.BarSeries

	// RejectLeg makes SubmitOrder fail with broker.ErrRejected for the
	// n-th submitted order (1-based). Zero disables it.
	RejectLeg int
	// CancelErr is returned by CancelOrder when set.
	CancelErr error

	failures map[string][]error

	Calls      map[string]int
	Submitted  []broker.OrderRequest
	Cancelled  []string
	Sessions   int
	BarQueries []broker.BarRequest

	nextID int
}

func NewFake() *Fake {
	return &Fake{
		Bars:     map[string]market.BarSeries{},
		spans:    map[string]market.BarSeries{},
		Calls:    map[string]int{},
		failures: map[string][]error{},
	}
}

func key(symbol string, tf market.Timeframe) string {
	return symbol + "/" + string(tf)
}

// SetBars installs the series returned for symbol/timeframe.
func (f *Fake) SetBars(symbol string, tf market.Timeframe, candles []market.Candle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Bars[key(symbol, tf)] = market.BarSeries{Symbol: symbol, Timeframe: tf, Candles: candles}
}

// SetBarsFor installs the series returned for symbol/timeframe when the
// request asks for exactly d of history. It wins over SetBars.
func (f *Fake) SetBarsFor(symbol string, tf market.Timeframe, d time.Duration, candles []market.Candle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spans[key(symbol, tf)+"/"+d.String()] = market.BarSeries{Symbol: symbol, Timeframe: tf, Candles: candles}
}

// FailNext queues err for the next call of op ("fetch_bars",
// "account_summary", "submit_order", "cancel_order", "reconnect").
func (f *Fake) FailNext(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = append(f.failures[op], err)
}

// NetworkCalls counts data, account and order calls, excluding reconnects.
func (f *Fake) NetworkCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls["fetch_bars"] + f.Calls["account_summary"] + f.Calls["submit_order"] + f.Calls["cancel_order"]
}

func (f *Fake) Count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[op]
}

func (f *Fake) enter(op string) error {
	f.Calls[op]++
	q := f.failures[op]
	if len(q) == 0 {
		return nil
	}
	err := q[0]
	f.failures[op] = q[1:]
	return err
}

func (f *Fake) FetchBars(ctx context.Context, req broker.BarRequest) (market.BarSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("fetch_bars"); err != nil {
		return market.BarSeries{}, err
	}
	f.BarQueries = append(f.BarQueries, req)
	if bs, ok := f.spans[key(req.Symbol, req.Timeframe)+"/"+req.Duration.String()]; ok {
		return bs, nil
	}
	bs, ok := f.Bars[key(req.Symbol, req.Timeframe)]
	if !ok {
		return market.BarSeries{Symbol: req.Symbol, Timeframe: req.Timeframe}, nil
	}
	return bs, nil
}

func (f *Fake) AccountSummary(ctx context.Context) (broker.AccountSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("account_summary"); err != nil {
		return broker.AccountSnapshot{}, err
	}
	return f.Account, nil
}

func (f *Fake) SubmitOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("submit_order"); err != nil {
		return broker.OrderAck{}, err
	}
	if f.RejectLeg > 0 && f.Calls["submit_order"] == f.RejectLeg {
		return broker.OrderAck{}, fmt.Errorf("%s %s @ %.5f: %w", req.Side, req.Kind, req.Price, broker.ErrRejected)
	}
	f.nextID++
	f.Submitted = append(f.Submitted, req)
	return broker.OrderAck{
		OrderID:  fmt.Sprintf("ord-%d", f.nextID),
		ClientID: req.ClientID,
		Status:   "PENDING",
	}, nil
}

func (f *Fake) CancelOrder(ctx context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("cancel_order"); err != nil {
		return err
	}
	if f.CancelErr != nil {
		return f.CancelErr
	}
	f.Cancelled = append(f.Cancelled, orderID)
	return nil
}

func (f *Fake) Reconnect(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("reconnect"); err != nil {
		return "", err
	}
	f.Sessions++
	return fmt.Sprintf("session-%d", f.Sessions), nil
}
