package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/atlas/broker"
	"github.com/rustyeddy/atlas/metrics"
	"github.com/rustyeddy/atlas/pkg/id"
	"go.uber.org/zap"
)

type Config struct {
	StopATRMult   float64
	TargetATRMult float64
	MinUnits      int64
}

// Leg names one order of a bracket.
type Leg string

const (
	EntryLeg  Leg = "entry"
	StopLeg   Leg = "stop"
	TargetLeg Leg = "target"
)

type LegAck struct {
	Leg Leg
	broker.OrderAck
}

// Submission is the outcome of a fully accepted bracket.
type Submission struct {
	Plan Plan
	Legs []LegAck
}

type Builder struct {
	gw  broker.Gateway
	cfg Config
	ids *id.Generator
	log *zap.Logger
}

func NewBuilder(gw broker.Gateway, cfg Config, ids *id.Generator, log *zap.Logger) *Builder {
	if ids == nil {
		ids = id.NewGenerator(nil)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{gw: gw, cfg: cfg, ids: ids, log: log}
}

// Requests expands a plan into its three legs in submission order.
func (b *Builder) Requests(p Plan) []broker.OrderRequest {
	base := broker.OrderRequest{
		Symbol:      p.Symbol,
		Quantity:    p.Quantity,
		Group:       p.Group,
		TimeInForce: broker.GTC,
	}

	entry := base
	entry.Side, entry.Kind, entry.Price = broker.Buy, broker.Limit, p.Entry

	stop := base
	stop.Side, stop.Kind, stop.Price, stop.OCA = broker.Sell, broker.Stop, p.Stop, true

	target := base
	target.Side, target.Kind, target.Price, target.OCA = broker.Sell, broker.Limit, p.Target, true

	reqs := []broker.OrderRequest{entry, stop, target}
	for i := range reqs {
		reqs[i].ClientID = b.ids.New()
	}
	return reqs
}

var legOrder = []Leg{EntryLeg, StopLeg, TargetLeg}

// cancelTimeout bounds the compensating cancels, which must still run
// when the caller's context is already done.
const cancelTimeout = 30 * time.Second

// Submit places entry, stop and target in that order. If any leg fails
// the legs already accepted are cancelled newest first and the joined
// error is returned; the bracket is then either fully live or gone.
func (b *Builder) Submit(ctx context.Context, p Plan) (Submission, error) {
	if err := p.Validate(b.cfg.MinUnits); err != nil {
		return Submission{}, err
	}

	log := b.log.With(zap.String("symbol", p.Symbol), zap.String("group", p.Group))
	reqs := b.Requests(p)
	accepted := make([]LegAck, 0, len(reqs))

	for i, req := range reqs {
		leg := legOrder[i]
		ack, err := b.gw.SubmitOrder(ctx, req)
		if err != nil {
			log.Error("order leg failed", zap.String("leg", string(leg)), zap.Float64("price", req.Price), zap.Error(err))
			return Submission{}, b.rollback(ctx, log, leg, err, accepted)
		}
		metrics.OrdersSubmitted.WithLabelValues(string(leg)).Inc()
		accepted = append(accepted, LegAck{Leg: leg, OrderAck: ack})
	}

	log.Info("bracket submitted", zap.String("plan", p.String()))
	return Submission{Plan: p, Legs: accepted}, nil
}

func (b *Builder) rollback(ctx context.Context, log *zap.Logger, failed Leg, cause error, accepted []LegAck) error {
	errs := []error{fmt.Errorf("%s leg: %w", failed, cause)}
	if len(accepted) == 0 {
		return errs[0]
	}

	metrics.OrderRollbacks.Inc()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelTimeout)
	defer cancel()
	for i := len(accepted) - 1; i >= 0; i-- {
		a := accepted[i]
		if err := b.gw.CancelOrder(ctx, a.OrderID); err != nil {
			log.Error("compensating cancel failed", zap.String("leg", string(a.Leg)), zap.String("order_id", a.OrderID), zap.Error(err))
			errs = append(errs, fmt.Errorf("cancel %s leg %s: %w", a.Leg, a.OrderID, err))
			continue
		}
		log.Warn("leg cancelled", zap.String("leg", string(a.Leg)), zap.String("order_id", a.OrderID))
	}
	return errors.Join(errs...)
}
