package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rustyeddy/atlas/broker"
	"github.com/rustyeddy/atlas/broker/brokertest"
	"github.com/rustyeddy/atlas/journal"
	"github.com/rustyeddy/atlas/market"
	"github.com/rustyeddy/atlas/metrics"
	"github.com/rustyeddy/atlas/orders"
	"github.com/rustyeddy/atlas/risk"
	"github.com/rustyeddy/atlas/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const day = 24 * time.Hour

var newYork = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		panic(err)
	}
	return loc
}()

// 09:30 New York on a Friday.
var now = time.Date(2024, 1, 5, 9, 30, 0, 0, newYork)

func symbol(name string) market.Symbol {
	return market.Symbol{
		Name:            name,
		EntryADX:        18,
		HighADX:         30,
		ADXLookbackDays: 7,
		Windows:         []market.Window{{Start: 8, End: 12}},
	}
}

func bar(t time.Time, o, h, l, c float64) market.Candle {
	return market.Candle{Open: o, High: h, Low: l, Close: c, Time: t, Complete: true}
}

func uptrend(n int) []market.Candle {
	out := make([]market.Candle, 0, n)
	p := 1.0
	for i := 0; i < n; i++ {
		c := p + 0.0001
		out = append(out, bar(now.Add(-time.Duration(n-i)*time.Hour), p, c+0.00005, p-0.00005, c))
		p = c
	}
	return out
}

func crossing(n int, step time.Duration) []market.Candle {
	out := make([]market.Candle, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, bar(now.Add(-time.Duration(n-i)*step), 1.1, 1.1005, 1.0995, 1.1))
	}
	out[10].High, out[10].Low = 1.1040, 1.0980
	out[n-2].Low, out[n-2].Close = 1.0985, 1.0990
	out[n-1].High, out[n-1].Close = 1.1015, 1.1010
	return out
}

func daily(n int) []market.Candle {
	out := make([]market.Candle, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, bar(now.Add(-time.Duration(n-i)*day), 1.1, 1.105, 1.095, 1.1))
	}
	return out
}

func signalling(f *brokertest.Fake, name string) {
	f.SetBarsFor(name, market.H1, 7*day, uptrend(40))
	f.SetBarsFor(name, market.H1, 3*day, crossing(60, time.Hour))
	f.SetBars(name, market.D1, daily(20))
	f.SetBars(name, market.M5, crossing(60, 5*time.Minute))
}

func funds(v float64) *float64 { return &v }

func fakeBroker(symbols ...string) *brokertest.Fake {
	f := brokertest.NewFake()
	f.Account = broker.AccountSnapshot{ID: "acct", Currency: "USD", Equity: 10_000, AvailableFunds: funds(1_000_000)}
	for _, s := range symbols {
		signalling(f, s)
	}
	return f
}

// memJournal keeps records in memory.
type memJournal struct {
	mu       sync.Mutex
	brackets []journal.BracketRecord
	equity   []journal.EquitySnapshot
	err      error
}

func (m *memJournal) RecordBracket(b journal.BracketRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.brackets = append(m.brackets, b)
	return m.err
}

func (m *memJournal) RecordEquity(e journal.EquitySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.equity = append(m.equity, e)
	return m.err
}

func (m *memJournal) Close() error { return nil }

func newScheduler(gw broker.Gateway, j journal.Journal, log *zap.Logger, symbols ...market.Symbol) *Scheduler {
	sp := strategy.DefaultParams()
	sp.Location = newYork
	return NewScheduler(Options{
		Symbols:  symbols,
		Gateway:  broker.NewSupervisor(gw, log).Gateway(),
		Strategy: sp,
		Risk: risk.Policy{
			ReserveFraction: 0.25,
			RiskHigh:        0.025,
			RiskMedium:      0.01,
			StopATRMult:     1.3,
			MinUnits:        1000,
		},
		Orders:   orders.Config{StopATRMult: 1.3, TargetATRMult: 2.6, MinUnits: 1000},
		Interval: time.Second,
		Journal:  j,
		Logger:   log,
		Clock:    func() time.Time { return now },
	})
}

func TestProcessSymbolEnters(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	fake := fakeBroker("EURUSD")
	j := &memJournal{}
	s := newScheduler(fake, j, zap.New(core), symbol("EURUSD"))

	res := s.ProcessSymbol(context.Background(), symbol("EURUSD"))
	require.Equal(t, Entered, res.Outcome, "%s: %v", res.Reason, res.Err)
	require.NotNil(t, res.Plan)
	assert.Equal(t, risk.High, res.Decision.Tier)

	require.Len(t, fake.Submitted, 3)
	group := fake.Submitted[0].Group
	assert.Equal(t, fmt.Sprintf("OCA_EURUSD_%d", now.Unix()), group)
	for _, req := range fake.Submitted {
		assert.Equal(t, group, req.Group)
		assert.Equal(t, res.Plan.Quantity, req.Quantity)
		assert.GreaterOrEqual(t, req.Quantity, int64(1000))
	}

	last, ok := s.State().LastEntry("EURUSD")
	require.True(t, ok)
	assert.True(t, now.Equal(last))

	require.Len(t, j.brackets, 1)
	b := j.brackets[0]
	assert.Equal(t, group, b.Group)
	assert.Equal(t, "high", b.Tier)
	assert.Equal(t, "ord-1", b.EntryOrderID)
	assert.Equal(t, "ord-2", b.StopOrderID)
	assert.Equal(t, "ord-3", b.TargetOrderID)
	assert.InDelta(t, 2.0, b.RR, 0.05)
	assert.NotEmpty(t, b.ID)

	require.Len(t, j.equity, 1)
	assert.Equal(t, 1_000_000.0, j.equity[0].Spendable)

	entered := logs.FilterMessage("entered").All()
	require.Len(t, entered, 1)
	fields := entered[0].ContextMap()
	assert.InDelta(t, res.Plan.Notional(), fields["notional"], 1e-9)
	assert.InDelta(t, risk.RiskPct(b.PlannedRisk, j.equity[0].Equity), fields["risk_pct"], 1e-12)
}

func TestProcessSymbolCooldownAfterEntry(t *testing.T) {
	t.Parallel()

	fake := fakeBroker("EURUSD")
	s := newScheduler(fake, nil, nil, symbol("EURUSD"))

	first := s.ProcessSymbol(context.Background(), symbol("EURUSD"))
	require.Equal(t, Entered, first.Outcome)

	calls := fake.NetworkCalls()
	second := s.ProcessSymbol(context.Background(), symbol("EURUSD"))
	assert.Equal(t, Skipped, second.Outcome)
	assert.Equal(t, string(strategy.GateCooldown), second.Reason)
	assert.Equal(t, calls, fake.NetworkCalls())
}

func TestProcessSymbolCapitalVeto(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	fake := fakeBroker("EURUSD")
	fake.Account.AvailableFunds = funds(10_000)
	s := newScheduler(fake, nil, zap.New(core), symbol("EURUSD"))

	res := s.ProcessSymbol(context.Background(), symbol("EURUSD"))
	assert.Equal(t, Skipped, res.Outcome)
	assert.Equal(t, string(risk.VetoNotionalLimit), res.Reason)
	assert.Empty(t, fake.Submitted)
	_, ok := s.State().LastEntry("EURUSD")
	assert.False(t, ok)
	assert.Equal(t, 1, logs.FilterMessage("position vetoed").Len())
}

func TestProcessSymbolRejectedLeg(t *testing.T) {
	t.Parallel()

	fake := fakeBroker("EURUSD")
	fake.RejectLeg = 2
	j := &memJournal{}
	s := newScheduler(fake, j, nil, symbol("EURUSD"))

	res := s.ProcessSymbol(context.Background(), symbol("EURUSD"))
	assert.Equal(t, Failed, res.Outcome)
	assert.Equal(t, ReasonOrderRejected, res.Reason)
	assert.ErrorIs(t, res.Err, broker.ErrRejected)
	assert.Equal(t, []string{"ord-1"}, fake.Cancelled)
	assert.Empty(t, j.brackets)

	_, ok := s.State().LastEntry("EURUSD")
	assert.False(t, ok, "no cooldown without a full bracket")
}

func TestProcessSymbolReconnectsOnce(t *testing.T) {
	t.Parallel()

	fake := fakeBroker("EURUSD")
	fake.FailNext("fetch_bars", fmt.Errorf("read: %w", broker.ErrDisconnected))
	s := newScheduler(fake, nil, nil, symbol("EURUSD"))

	res := s.ProcessSymbol(context.Background(), symbol("EURUSD"))
	assert.Equal(t, Entered, res.Outcome, "%v", res.Err)
	assert.Equal(t, 1, fake.Sessions)
}

func TestProcessSymbolFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		op     string
		err    error
		reason string
	}{
		{"data disconnected twice", "fetch_bars", broker.ErrDisconnected, ReasonMarketData},
		{"account", "account_summary", errors.New("boom"), ReasonAccount},
		{"cancelled", "fetch_bars", context.Canceled, ReasonCancelled},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fake := fakeBroker("EURUSD")
			fake.FailNext(tt.op, tt.err)
			fake.FailNext(tt.op, tt.err)
			s := newScheduler(fake, nil, nil, symbol("EURUSD"))

			res := s.ProcessSymbol(context.Background(), symbol("EURUSD"))
			assert.Equal(t, Failed, res.Outcome)
			assert.Equal(t, tt.reason, res.Reason)
			assert.ErrorIs(t, res.Err, tt.err)
			assert.Empty(t, fake.Submitted)
		})
	}
}

// panicky blows up on any request for one symbol.
type panicky struct {
	broker.Gateway
	symbol string
}

func (p panicky) FetchBars(ctx context.Context, req broker.BarRequest) (market.BarSeries, error) {
	if req.Symbol == p.symbol {
		panic("corrupt bars")
	}
	return p.Gateway.FetchBars(ctx, req)
}

func TestRunCycleIsolatesSymbols(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.ErrorLevel)
	fake := fakeBroker("EURUSD", "GBPUSD")
	quiet := symbol("USDJPY")
	quiet.Windows = []market.Window{{Start: 19, End: 20}}

	s := newScheduler(panicky{fake, "EURUSD"}, nil, zap.New(core), symbol("EURUSD"), quiet, symbol("GBPUSD"))
	rep := s.RunCycle(context.Background())

	require.Len(t, rep.Results, 3)
	eur, _ := rep.Result("EURUSD")
	assert.Equal(t, Failed, eur.Outcome)
	assert.Equal(t, ReasonPanic, eur.Reason)

	jpy, _ := rep.Result("USDJPY")
	assert.Equal(t, Skipped, jpy.Outcome)
	assert.Equal(t, string(strategy.GateWindow), jpy.Reason)

	gbp, _ := rep.Result("GBPUSD")
	assert.Equal(t, Entered, gbp.Outcome, "%v", gbp.Err)

	assert.Equal(t, 1, rep.Count(Entered))
	assert.Equal(t, 1, rep.Count(Skipped))
	assert.Equal(t, 1, rep.Count(Failed))
	assert.Equal(t, 1, logs.FilterMessage("symbol processing panicked").Len())
	assert.False(t, s.Running())
}

func TestRunCycleStopsWhenCancelled(t *testing.T) {
	t.Parallel()

	fake := fakeBroker()
	s := newScheduler(fake, nil, nil, symbol("EURUSD"), symbol("GBPUSD"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep := s.RunCycle(ctx)
	assert.Empty(t, rep.Results)
	assert.Zero(t, fake.NetworkCalls())
}

func TestRunStartsImmediatelyAndStops(t *testing.T) {
	// Not parallel: reads the global cycle counter.
	quiet := symbol("EURUSD")
	quiet.Windows = []market.Window{{Start: 19, End: 20}}
	s := newScheduler(fakeBroker(), nil, nil, quiet)

	before := testutil.ToFloat64(metrics.Cycles)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.Cycles) >= before+1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
