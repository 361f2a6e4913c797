package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rustyeddy/atlas/broker"
	"github.com/rustyeddy/atlas/broker/brokertest"
	"github.com/rustyeddy/atlas/market"
	"github.com/rustyeddy/atlas/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	eurusd = market.Symbol{Name: "EURUSD", EntryADX: 18, HighADX: 30, ADXLookbackDays: 7}
	usdjpy = market.Symbol{Name: "USDJPY", EntryADX: 15, HighADX: 28, ADXLookbackDays: 7}
	at     = time.Date(2024, 1, 5, 13, 0, 0, 0, time.UTC)
)

func v44j() Config {
	return Config{StopATRMult: 1.3, TargetATRMult: 2.2, MinUnits: 1000}
}

func TestPlanScenario(t *testing.T) {
	t.Parallel()

	b := NewBuilder(brokertest.NewFake(), v44j(), nil, nil)
	p, err := b.Plan(eurusd, 1.1000, 0.0010, 57692, at)
	require.NoError(t, err)

	assert.Equal(t, 1.0987, p.Stop)
	assert.Equal(t, 1.1022, p.Target)
	assert.Equal(t, 1.1, p.Entry)
	assert.Equal(t, "OCA_EURUSD_1704459600", p.Group)
	assert.Equal(t, "BUY 57692@1.1 SL@1.0987 TP@1.1022", p.String())
}

func TestPlanRoundsYenToThreePlaces(t *testing.T) {
	t.Parallel()

	b := NewBuilder(brokertest.NewFake(), v44j(), nil, nil)
	p, err := b.Plan(usdjpy, 150.123, 0.1234, 2000, at)
	require.NoError(t, err)

	// 150.123 - 0.16042 and 150.123 + 0.27148
	assert.Equal(t, 149.963, p.Stop)
	assert.Equal(t, 150.394, p.Target)
}

func TestPlanInvariants(t *testing.T) {
	t.Parallel()

	b := NewBuilder(brokertest.NewFake(), v44j(), nil, nil)
	for _, entry := range []float64{0.6543, 1.0, 1.27891} {
		for _, atr := range []float64{0.0002, 0.0011, 0.0090} {
			p, err := b.Plan(eurusd, entry, atr, 1000, at)
			require.NoError(t, err)
			assert.Less(t, p.Stop, p.Entry)
			assert.Less(t, p.Entry, p.Target)
		}
	}
}

func TestPlanRejectsInvalid(t *testing.T) {
	t.Parallel()

	b := NewBuilder(brokertest.NewFake(), v44j(), nil, nil)

	_, err := b.Plan(eurusd, 1.1, 0, 57692, at)
	assert.ErrorIs(t, err, ErrInvalidPlan)

	// collapses to the entry after rounding to 5 places
	_, err = b.Plan(eurusd, 1.1, 0.000001, 57692, at)
	assert.ErrorIs(t, err, ErrInvalidPlan)

	_, err = b.Plan(eurusd, 1.1, 0.001, 999, at)
	assert.ErrorIs(t, err, ErrInvalidPlan)
}

func TestSubmitOrdersLegs(t *testing.T) {
	fake := brokertest.NewFake()
	b := NewBuilder(fake, v44j(), nil, nil)
	p, err := b.Plan(eurusd, 1.1, 0.001, 57692, at)
	require.NoError(t, err)

	entries := testutil.ToFloat64(metrics.OrdersSubmitted.WithLabelValues("entry"))

	sub, err := b.Submit(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, sub.Legs, 3)
	assert.Equal(t, []Leg{EntryLeg, StopLeg, TargetLeg}, []Leg{sub.Legs[0].Leg, sub.Legs[1].Leg, sub.Legs[2].Leg})
	assert.Equal(t, entries+1, testutil.ToFloat64(metrics.OrdersSubmitted.WithLabelValues("entry")))

	require.Len(t, fake.Submitted, 3)
	entry, stop, target := fake.Submitted[0], fake.Submitted[1], fake.Submitted[2]

	assert.Equal(t, broker.Buy, entry.Side)
	assert.Equal(t, broker.Limit, entry.Kind)
	assert.False(t, entry.OCA)

	assert.Equal(t, broker.Sell, stop.Side)
	assert.Equal(t, broker.Stop, stop.Kind)
	assert.Equal(t, 1.0987, stop.Price)
	assert.True(t, stop.OCA)

	assert.Equal(t, broker.Sell, target.Side)
	assert.Equal(t, broker.Limit, target.Kind)
	assert.Equal(t, 1.1022, target.Price)
	assert.True(t, target.OCA)

	ids := map[string]bool{}
	for _, r := range fake.Submitted {
		assert.Equal(t, p.Group, r.Group)
		assert.Equal(t, int64(57692), r.Quantity)
		assert.Equal(t, broker.GTC, r.TimeInForce)
		assert.NotEmpty(t, r.ClientID)
		ids[r.ClientID] = true
	}
	assert.Len(t, ids, 3)
}

func TestSubmitRollsBackAcceptedLegs(t *testing.T) {
	tests := []struct {
		name       string
		rejectLeg  int
		failedLeg  string
		cancelled  []string
		rollbacked float64
	}{
		{"entry rejected", 1, "entry leg", nil, 0},
		{"stop rejected", 2, "stop leg", []string{"ord-1"}, 1},
		{"target rejected", 3, "target leg", []string{"ord-2", "ord-1"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := brokertest.NewFake()
			fake.RejectLeg = tt.rejectLeg
			b := NewBuilder(fake, v44j(), nil, nil)
			p, err := b.Plan(eurusd, 1.1, 0.001, 57692, at)
			require.NoError(t, err)

			before := testutil.ToFloat64(metrics.OrderRollbacks)
			_, err = b.Submit(context.Background(), p)
			require.Error(t, err)
			assert.ErrorIs(t, err, broker.ErrRejected)
			assert.Contains(t, err.Error(), tt.failedLeg)
			assert.Equal(t, tt.cancelled, fake.Cancelled)
			assert.Equal(t, before+tt.rollbacked, testutil.ToFloat64(metrics.OrderRollbacks))
			assert.Equal(t, tt.rejectLeg, fake.Count("submit_order"))
		})
	}
}

func TestSubmitReportsFailedCancels(t *testing.T) {
	t.Parallel()

	cancelErr := errors.New("order already filled")
	fake := brokertest.NewFake()
	fake.RejectLeg = 3
	fake.CancelErr = cancelErr
	b := NewBuilder(fake, v44j(), nil, nil)
	p, err := b.Plan(eurusd, 1.1, 0.001, 57692, at)
	require.NoError(t, err)

	_, err = b.Submit(context.Background(), p)
	assert.ErrorIs(t, err, broker.ErrRejected)
	assert.ErrorIs(t, err, cancelErr)
	assert.Equal(t, 2, fake.Count("cancel_order"))
}

func TestSubmitValidatesPlan(t *testing.T) {
	t.Parallel()

	fake := brokertest.NewFake()
	b := NewBuilder(fake, v44j(), nil, nil)
	_, err := b.Submit(context.Background(), Plan{Symbol: "EURUSD", Entry: 1.1, Stop: 1.2, Target: 1.3, Quantity: 5000, Group: "g"})
	assert.ErrorIs(t, err, ErrInvalidPlan)
	assert.Zero(t, fake.NetworkCalls())
}

// interrupted cancels the caller's context while the second leg is in
// flight, the way a shutdown signal would.
type interrupted struct {
	*brokertest.Fake
	cancel context.CancelFunc
	calls  int
}

func (g *interrupted) SubmitOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderAck, error) {
	g.calls++
	if g.calls == 2 {
		g.cancel()
		return broker.OrderAck{}, ctx.Err()
	}
	return g.Fake.SubmitOrder(ctx, req)
}

func (g *interrupted) CancelOrder(ctx context.Context, orderID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("compensating cancel without a deadline")
	}
	return g.Fake.CancelOrder(ctx, orderID)
}

func TestSubmitRollsBackAfterShutdown(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gw := &interrupted{Fake: brokertest.NewFake(), cancel: cancel}

	b := NewBuilder(gw, v44j(), nil, nil)
	p, err := b.Plan(eurusd, 1.1000, 0.0010, 57692, at)
	require.NoError(t, err)

	_, err = b.Submit(ctx, p)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"ord-1"}, gw.Cancelled, "entry must not stay live without its stop")
	assert.NotContains(t, err.Error(), "cancel entry leg")
}
