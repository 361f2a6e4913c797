// Package paper is a local broker.Gateway for dry runs. Market data comes
// from a real source; orders rest on an in-memory book and fill against
// the bars the trader fetches, with one-cancels-all enforced per group.
package paper

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rustyeddy/atlas/broker"
	"github.com/rustyeddy/atlas/market"
	"go.uber.org/zap"
)

var ErrOrderNotFound = errors.New("order not found")

type Config struct {
	Balance    float64
	Currency   string
	MarginRate float64 // fraction of notional held as margin
}

func (c Config) withDefaults() Config {
	if c.Currency == "" {
		c.Currency = "USD"
	}
	if c.MarginRate <= 0 {
		c.MarginRate = 0.02
	}
	return c
}

type Broker struct {
	mu      sync.Mutex
	data    broker.Gateway
	cfg     Config
	log     *zap.Logger
	balance float64
	session string

	resting map[string]*order
	trades  map[string]*Trade // by group
	marks   map[string]float64
	seen    map[string]time.Time // newest bar start per symbol/timeframe
	nextID  int
	now     func() time.Time
}

// New wraps data, which serves FetchBars; everything else stays local.
func New(data broker.Gateway, cfg Config, log *zap.Logger) (*Broker, error) {
	if data == nil {
		return nil, errors.New("paper: bar source required")
	}
	if cfg.Balance <= 0 {
		return nil, fmt.Errorf("paper: balance must be > 0, got %g", cfg.Balance)
	}
	if log == nil {
		log = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	return &Broker{
		data:    data,
		cfg:     cfg,
		log:     log.Named("paper"),
		balance: cfg.Balance,
		session: uuid.NewString(),
		resting: map[string]*order{},
		trades:  map[string]*Trade{},
		marks:   map[string]float64{},
		seen:    map[string]time.Time{},
		now:     time.Now,
	}, nil
}

// FetchBars fetches from the data source and then runs the newest bar
// across the book.
func (b *Broker) FetchBars(ctx context.Context, req broker.BarRequest) (market.BarSeries, error) {
	bs, err := b.data.FetchBars(ctx, req)
	if err != nil {
		return bs, err
	}
	if last, ok := bs.Last(); ok {
		b.Mark(req.Symbol, req.Timeframe, last)
	}
	return bs, nil
}

// Mark records c, a closed bar of timeframe tf, as the latest price for
// symbol and fills any resting order it trades through. A bar no newer
// than the last one marked for symbol and tf is ignored, and a bar only
// acts on orders placed and positions opened before it started.
func (b *Broker) Mark(symbol string, tf market.Timeframe, c market.Candle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := symbol + "/" + string(tf)
	if last, ok := b.seen[key]; ok && !c.Time.After(last) {
		return
	}
	b.seen[key] = c.Time
	b.marks[symbol] = c.Close

	for _, t := range b.openTrades(symbol) {
		if c.Time.Before(t.OpenTime) {
			continue
		}
		b.protectLocked(t, c)
	}
	end := c.Time.Add(tf.Duration())
	for _, o := range b.sorted() {
		if o.req.Symbol != symbol || o.req.OCA || c.Time.Before(o.placed) {
			continue
		}
		if triggered(o.req, c.Low, c.High) {
			b.fillEntryLocked(o, end)
		}
	}
}

func (b *Broker) protectLocked(t *Trade, c market.Candle) {
	var stop, target *order
	for _, o := range b.sorted() {
		if o.req.Group != t.Group || !o.req.OCA {
			continue
		}
		switch o.req.Kind {
		case broker.Stop:
			stop = o
		case broker.Limit:
			target = o
		}
	}

	// When a bar spans both, assume the stop traded first.
	hit := stop
	if hit == nil || !triggered(hit.req, c.Low, c.High) {
		hit = target
	}
	if hit == nil || !triggered(hit.req, c.Low, c.High) {
		return
	}

	reason := "stop_loss"
	if hit == target {
		reason = "take_profit"
	}
	b.closeLocked(t, hit.req.Price, c.Time, reason)
	delete(b.resting, hit.id)
	b.cancelGroupLocked(t.Group)
}

func (b *Broker) fillEntryLocked(o *order, at time.Time) {
	delete(b.resting, o.id)
	t := &Trade{
		ID:         o.id,
		Group:      o.req.Group,
		Symbol:     o.req.Symbol,
		Units:      signed(o.req),
		EntryPrice: o.req.Price,
		OpenTime:   at,
		Open:       true,
	}
	b.trades[t.Group] = t
	b.log.Info("entry filled",
		zap.String("symbol", t.Symbol),
		zap.String("group", t.Group),
		zap.Int64("units", t.Units),
		zap.Float64("price", t.EntryPrice),
	)
}

func (b *Broker) closeLocked(t *Trade, price float64, at time.Time, reason string) {
	rate := b.rateLocked(t.Symbol, price)
	t.ClosePrice = price
	t.CloseTime = at
	t.RealizedPL = t.UnrealizedPL(price, rate)
	t.Reason = reason
	t.Open = false
	b.balance += t.RealizedPL
	b.log.Info("trade closed",
		zap.String("symbol", t.Symbol),
		zap.String("group", t.Group),
		zap.String("reason", reason),
		zap.Float64("pl", t.RealizedPL),
	)
}

// cancelGroupLocked drops the remaining OCA siblings of group.
func (b *Broker) cancelGroupLocked(group string) {
	for id, o := range b.resting {
		if o.req.Group == group && o.req.OCA {
			delete(b.resting, id)
			b.log.Debug("oca sibling cancelled", zap.String("order", id), zap.String("group", group))
		}
	}
}

func (b *Broker) rateLocked(symbol string, mid float64) float64 {
	rate, err := market.QuoteToAccountRate(market.Symbol{Name: symbol}, b.cfg.Currency, mid)
	if err != nil {
		b.log.Warn("no conversion rate, valuing at par", zap.String("symbol", symbol), zap.Error(err))
		return 1.0
	}
	return rate
}

func (b *Broker) openTrades(symbol string) []*Trade {
	var out []*Trade
	for _, t := range b.trades {
		if t.Open && t.Symbol == symbol {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Group < out[j].Group })
	return out
}

// sorted returns resting orders in submission order.
func (b *Broker) sorted() []*order {
	out := make([]*order, 0, len(b.resting))
	for _, o := range b.resting {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// AccountSummary values open trades at the latest marks. Buying power
// is free margin grossed up by the margin rate; available funds are not
// reported.
func (b *Broker) AccountSummary(ctx context.Context) (broker.AccountSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return broker.AccountSnapshot{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	equity := b.balance
	var used float64
	for _, t := range b.trades {
		if !t.Open {
			continue
		}
		mark, ok := b.marks[t.Symbol]
		if !ok {
			mark = t.EntryPrice
		}
		rate := b.rateLocked(t.Symbol, mark)
		equity += t.UnrealizedPL(mark, rate)
		used += TradeMargin(t.Units, mark, rate, b.cfg.MarginRate)
	}

	bp := (equity - used) / b.cfg.MarginRate
	if bp < 0 {
		bp = 0
	}
	return broker.AccountSnapshot{
		ID:          "paper-" + b.session[:8],
		Currency:    b.cfg.Currency,
		Equity:      equity,
		BuyingPower: &bp,
	}, nil
}

func (b *Broker) SubmitOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderAck, error) {
	if err := ctx.Err(); err != nil {
		return broker.OrderAck{}, err
	}
	switch {
	case req.Symbol == "":
		return broker.OrderAck{}, fmt.Errorf("paper: symbol required: %w", broker.ErrRejected)
	case req.Quantity <= 0:
		return broker.OrderAck{}, fmt.Errorf("paper: quantity must be > 0: %w", broker.ErrRejected)
	case req.Price <= 0:
		return broker.OrderAck{}, fmt.Errorf("paper: price must be > 0: %w", broker.ErrRejected)
	case req.Kind != broker.Limit && req.Kind != broker.Stop:
		return broker.OrderAck{}, fmt.Errorf("paper: unsupported order kind %q: %w", req.Kind, broker.ErrRejected)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := fmt.Sprintf("%d", b.nextID)
	b.resting[id] = &order{id: id, seq: b.nextID, placed: b.now(), req: req}
	return broker.OrderAck{OrderID: id, ClientID: req.ClientID, Status: "PENDING"}, nil
}

func (b *Broker) CancelOrder(ctx context.Context, orderID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.resting[orderID]; !ok {
		return fmt.Errorf("cancel %s: %w", orderID, ErrOrderNotFound)
	}
	delete(b.resting, orderID)
	return nil
}

// Reconnect rotates the paper session and reconnects the data source.
func (b *Broker) Reconnect(ctx context.Context) (string, error) {
	if _, err := b.data.Reconnect(ctx); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session = uuid.NewString()
	return b.session, nil
}

// Resting returns the ids of orders still on the book.
func (b *Broker) Resting() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.resting))
	for _, o := range b.sorted() {
		out = append(out, o.id)
	}
	return out
}

// Trades returns a copy of every trade, open or closed.
func (b *Broker) Trades() []Trade {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Trade, 0, len(b.trades))
	for _, t := range b.trades {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenTime.Before(out[j].OpenTime) })
	return out
}

func (b *Broker) Balance() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balance
}
